package slack

import (
	"strings"
	"testing"
	"time"

	slackapi "github.com/slack-go/slack"

	"github.com/anshMconsultadd/timesheet-bot/internal/domain"
)

func sectionTexts(blocks []slackapi.Block) string {
	var b strings.Builder
	for _, blk := range blocks {
		if s, ok := blk.(*slackapi.SectionBlock); ok && s.Text != nil {
			b.WriteString(s.Text.Text)
			b.WriteString("\n")
		}
	}
	return b.String()
}

func TestGroupedReportBlocks_MentionsMissing(t *testing.T) {
	summaries := domain.SummarizeByUser([]domain.TimesheetEntry{
		{UserID: "U1", Username: "amy", ClientName: "Acme", Hours: 5},
	})
	blocks := GroupedReportBlocks(summaries, "Weekly Report", []string{"U3", "U4"})
	text := sectionTexts(blocks)
	if !strings.Contains(text, "amy") || !strings.Contains(text, "Acme: 5 hours") {
		t.Fatalf("report missing submitter details:\n%s", text)
	}
	if !strings.Contains(text, "<@U3>") || !strings.Contains(text, "<@U4>") {
		t.Fatalf("report missing mention section:\n%s", text)
	}
}

func TestGroupedReportBlocks_EmptyPeriod(t *testing.T) {
	blocks := GroupedReportBlocks(nil, "Weekly Report", nil)
	if !strings.Contains(sectionTexts(blocks), "No timesheet entries") {
		t.Fatalf("empty report should say so")
	}
}

func TestReportBlocks_TotalIsExact(t *testing.T) {
	entries := []domain.TimesheetEntry{
		{ClientName: "A", Hours: 0.1, SubmissionDate: time.Now().UTC()},
		{ClientName: "B", Hours: 0.2, SubmissionDate: time.Now().UTC()},
	}
	text := sectionTexts(ReportBlocks(entries, "Your Report", time.UTC))
	if !strings.Contains(text, "*Total Hours:* 0.3") {
		t.Fatalf("expected exact total 0.3:\n%s", text)
	}
}

func TestConfirmationText_ListsSkips(t *testing.T) {
	accepted := []domain.TimesheetEntry{
		{ClientName: "Acme", Hours: 5},
		{ClientName: "Globex", Hours: 2.5},
	}
	text := ConfirmationText(domain.Weekly, accepted, []int{2})
	if !strings.Contains(text, "1. Acme - 5 hours") {
		t.Fatalf("missing accepted entry:\n%s", text)
	}
	if !strings.Contains(text, "Entries #2 were skipped") {
		t.Fatalf("missing skip report:\n%s", text)
	}
}

func TestSubmissionPostBlocks(t *testing.T) {
	entries := []domain.TimesheetEntry{
		{ClientName: "Acme", Hours: 5},
		{ClientName: "Globex", Hours: 2.5},
	}
	text := sectionTexts(SubmissionPostBlocks("U1", domain.Weekly, entries))
	if !strings.Contains(text, "<@U1>") || !strings.Contains(text, "weekly") {
		t.Fatalf("post misses submitter or type:\n%s", text)
	}
	if !strings.Contains(text, "• Acme: 5 hours") || !strings.Contains(text, "*Total:* 7.5 hours") {
		t.Fatalf("post misses entries or total:\n%s", text)
	}
}

func TestMissingUsersBlocks(t *testing.T) {
	text := sectionTexts(MissingUsersBlocks(domain.Monthly, []string{"U7"}))
	if !strings.Contains(text, "Monthly") || !strings.Contains(text, "<@U7>") {
		t.Fatalf("unexpected follow-up text:\n%s", text)
	}
}

func TestNewEditModal_PrefillsRows(t *testing.T) {
	entries := []domain.TimesheetEntry{
		{ID: 7, ClientName: "Acme", Hours: 5, Type: domain.Weekly, SubmissionDate: time.Now().UTC()},
	}
	meta := ViewMeta{ChannelID: "C1", EntryIDs: []uint{7}, Type: domain.Weekly}
	view := NewEditModal(meta, entries, time.UTC)
	if view.CallbackID != CallbackEdit {
		t.Fatalf("unexpected callback: %s", view.CallbackID)
	}
	var found bool
	for _, b := range view.Blocks.BlockSet {
		in, ok := b.(*slackapi.InputBlock)
		if !ok || in.BlockID != clientBlockID(0) {
			continue
		}
		el, ok := in.Element.(*slackapi.PlainTextInputBlockElement)
		if !ok {
			t.Fatalf("client element has wrong type: %T", in.Element)
		}
		if el.InitialValue != "Acme" {
			t.Fatalf("client not prefilled: %q", el.InitialValue)
		}
		found = true
	}
	if !found {
		t.Fatalf("edit modal has no client input for row 0")
	}
}
