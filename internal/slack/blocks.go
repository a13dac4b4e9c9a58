package slack

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	slackapi "github.com/slack-go/slack"

	"github.com/anshMconsultadd/timesheet-bot/internal/domain"
)

func markdownSection(text string) *slackapi.SectionBlock {
	return slackapi.NewSectionBlock(
		slackapi.NewTextBlockObject(slackapi.MarkdownType, text, false, false), nil, nil)
}

func plainText(text string) *slackapi.TextBlockObject {
	return slackapi.NewTextBlockObject(slackapi.PlainTextType, text, false, false)
}

// NewSubmissionModal builds the weekly or monthly submission form with the
// given number of entry rows and the origin channel in private metadata.
func NewSubmissionModal(t domain.Type, channelID string, rows int) slackapi.ModalViewRequest {
	callbackID := CallbackSubmitWeekly
	title := "Weekly Timesheet"
	if t == domain.Monthly {
		callbackID = CallbackSubmitMonthly
		title = "Monthly Timesheet"
	}

	blocks := []slackapi.Block{
		markdownSection(fmt.Sprintf("*📝 %s Submission*\nPlease fill in your timesheet details.", title)),
		slackapi.NewDividerBlock(),
		entryCountBlock(rows),
	}
	blocks = append(blocks, entryRowBlocks(rows, nil)...)

	return slackapi.ModalViewRequest{
		Type:            slackapi.VTModal,
		CallbackID:      callbackID,
		Title:           plainText(title),
		Submit:          plainText("Submit"),
		Close:           plainText("Cancel"),
		Blocks:          slackapi.Blocks{BlockSet: blocks},
		PrivateMetadata: ViewMeta{ChannelID: channelID, Type: t}.Encode(),
	}
}

// NewEditModal builds a prefilled form over the user's latest batch. The
// entry IDs ride along in private metadata so submission can be reconciled
// against the stored rows.
func NewEditModal(meta ViewMeta, entries []domain.TimesheetEntry, loc *time.Location) slackapi.ModalViewRequest {
	title := "Edit " + typeTitle(meta.Type)

	blocks := []slackapi.Block{
		markdownSection("*Date:* " + domain.FormatDate(entries[0].SubmissionDate, loc)),
		slackapi.NewDividerBlock(),
		markdownSection("*📋 Edit your timesheet entries*\nClear both fields of a row to remove that entry."),
		slackapi.NewDividerBlock(),
	}
	blocks = append(blocks, entryRowBlocks(len(entries), entries)...)

	return slackapi.ModalViewRequest{
		Type:            slackapi.VTModal,
		CallbackID:      CallbackEdit,
		Title:           plainText(title),
		Submit:          plainText("Save"),
		Close:           plainText("Cancel"),
		Blocks:          slackapi.Blocks{BlockSet: blocks},
		PrivateMetadata: meta.Encode(),
	}
}

func entryCountBlock(selected int) *slackapi.InputBlock {
	options := make([]*slackapi.OptionBlockObject, 0, 3)
	var initial *slackapi.OptionBlockObject
	for i := 1; i <= 3; i++ {
		opt := slackapi.NewOptionBlockObject(strconv.Itoa(i), plainText(strconv.Itoa(i)), nil)
		options = append(options, opt)
		if i == selected {
			initial = opt
		}
	}
	sel := slackapi.NewOptionsSelectBlockElement(
		slackapi.OptTypeStatic, plainText("Select number of entries"), ActionEntryCount, options...)
	sel.InitialOption = initial

	block := slackapi.NewInputBlock(entryCountBlockID, plainText("Number of entries"), nil, sel)
	block.DispatchAction = true
	return block
}

// entryRowBlocks renders the indexed entry rows; prefill, when non-nil,
// supplies initial values per index.
func entryRowBlocks(rows int, prefill []domain.TimesheetEntry) []slackapi.Block {
	var blocks []slackapi.Block
	for i := 0; i < rows; i++ {
		client := slackapi.NewPlainTextInputBlockElement(plainText("Enter client name"), clientActionID(i))
		hours := slackapi.NewNumberInputBlockElement(plainText("Enter hours"), hoursActionID(i), true)
		if i < len(prefill) {
			client.InitialValue = prefill[i].ClientName
			hours.InitialValue = strconv.FormatFloat(prefill[i].Hours, 'f', -1, 64)
		}

		clientBlock := slackapi.NewInputBlock(clientBlockID(i), plainText("Client Name"), nil, client)
		clientBlock.Optional = true
		hoursBlock := slackapi.NewInputBlock(hoursBlockID(i), plainText("Hours"), nil, hours)
		hoursBlock.Optional = true

		blocks = append(blocks,
			markdownSection(fmt.Sprintf("*Entry #%d*", i+1)),
			clientBlock,
			hoursBlock,
			slackapi.NewDividerBlock(),
		)
	}
	return blocks
}

// ReminderBlocks is the DM body for a reminder cycle.
func ReminderBlocks(t domain.Type) []slackapi.Block {
	text := weeklyReminderText
	if t == domain.Monthly {
		text = monthlyReminderText
	}
	return []slackapi.Block{markdownSection(text)}
}

// ReportBlocks renders a flat entry list with a grand total, used for a
// user's own report.
func ReportBlocks(entries []domain.TimesheetEntry, title string, loc *time.Location) []slackapi.Block {
	blocks := []slackapi.Block{
		slackapi.NewHeaderBlock(plainText(title)),
		slackapi.NewDividerBlock(),
	}
	if len(entries) == 0 {
		return append(blocks, markdownSection(noEntriesText))
	}
	for _, e := range entries {
		fields := []*slackapi.TextBlockObject{
			slackapi.NewTextBlockObject(slackapi.MarkdownType, "*Client:*\n"+e.ClientName, false, false),
			slackapi.NewTextBlockObject(slackapi.MarkdownType, fmt.Sprintf("*Hours:*\n%g", e.Hours), false, false),
			slackapi.NewTextBlockObject(slackapi.MarkdownType, "*Date:*\n"+domain.FormatDate(e.SubmissionDate, loc), false, false),
		}
		blocks = append(blocks,
			slackapi.NewSectionBlock(nil, fields, nil),
			slackapi.NewDividerBlock(),
		)
	}
	total := domain.TotalHours(entries)
	return append(blocks, markdownSection("*Total Hours:* "+total.String()))
}

// GroupedReportBlocks renders the manager report: per-user client breakdowns
// followed by the missing-submitter mentions.
func GroupedReportBlocks(summaries []domain.UserSummary, title string, missing []string) []slackapi.Block {
	blocks := []slackapi.Block{
		slackapi.NewHeaderBlock(plainText(title)),
		slackapi.NewDividerBlock(),
	}
	if len(summaries) == 0 {
		blocks = append(blocks, markdownSection(noEntriesText))
	}
	for _, s := range summaries {
		var clients []string
		for _, e := range s.Entries {
			clients = append(clients, fmt.Sprintf("• %s: %g hours", e.ClientName, e.Hours))
		}
		blocks = append(blocks,
			markdownSection(fmt.Sprintf("*👤 %s*\n*Number of Clients:* %d\n*Total Hours:* %s\n\n*Clients & Hours:*\n%s",
				s.Username, len(s.Entries), s.Total.String(), strings.Join(clients, "\n"))),
			slackapi.NewDividerBlock(),
		)
	}
	if len(missing) > 0 {
		blocks = append(blocks,
			slackapi.NewDividerBlock(),
			markdownSection("*⚠️ Users who haven't submitted timesheet:*\n"+Mentions(missing)),
		)
	}
	return blocks
}

// MissingUsersBlocks is the follow-up post for one channel.
func MissingUsersBlocks(t domain.Type, missing []string) []slackapi.Block {
	return []slackapi.Block{
		markdownSection(fmt.Sprintf("*⏰ %s timesheet still pending for:*\n%s",
			typeTitle(t), Mentions(missing))),
	}
}

// SubmissionPostBlocks is the channel post announcing a submitted batch.
// Edits rewrite the same post via its recorded timestamp.
func SubmissionPostBlocks(userID string, t domain.Type, entries []domain.TimesheetEntry) []slackapi.Block {
	lines := make([]string, 0, len(entries))
	for _, e := range entries {
		lines = append(lines, fmt.Sprintf("• %s: %g hours", e.ClientName, e.Hours))
	}
	total := domain.TotalHours(entries)
	return []slackapi.Block{markdownSection(fmt.Sprintf(
		"*📝 <@%s> submitted a %s timesheet*\n%s\n*Total:* %s hours",
		userID, string(t), strings.Join(lines, "\n"), total.String()))}
}

// Mentions renders user IDs as Slack mention markup, one per line.
func Mentions(userIDs []string) string {
	mentions := make([]string, 0, len(userIDs))
	for _, id := range userIDs {
		mentions = append(mentions, "<@"+id+">")
	}
	return strings.Join(mentions, "\n")
}

// ConfirmationText summarizes an accepted submission, listing persisted
// entries and the 1-based indices of skipped rows.
func ConfirmationText(t domain.Type, accepted []domain.TimesheetEntry, skipped []int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "✅ %s Timesheet submitted successfully!\n\n", typeTitle(t))
	for i, e := range accepted {
		fmt.Fprintf(&b, "%d. %s - %g hours\n", i+1, e.ClientName, e.Hours)
	}
	if len(skipped) > 0 {
		idx := make([]string, 0, len(skipped))
		for _, i := range skipped {
			idx = append(idx, strconv.Itoa(i))
		}
		fmt.Fprintf(&b, "\n⚠️ Entries #%s were skipped (missing or invalid fields).", strings.Join(idx, ", "))
	}
	return b.String()
}
