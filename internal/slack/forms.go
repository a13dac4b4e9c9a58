package slack

import (
	"encoding/json"
	"fmt"

	slackapi "github.com/slack-go/slack"

	"github.com/anshMconsultadd/timesheet-bot/internal/domain"
)

// Callback and action identifiers shared between form construction and
// payload dispatch.
const (
	CallbackSubmitWeekly  = "submit_weekly_timesheet"
	CallbackSubmitMonthly = "submit_monthly_timesheet"
	CallbackEdit          = "edit_timesheet_modal"

	ActionEntryCount = "entry_count_select"
	ActionSubmit     = "submit_timesheet"

	entryCountBlockID = "entry_count_block"
)

// DefaultEntryRows is the number of entry rows a fresh submission form shows.
// Kept small to stay within Slack's block limits.
const DefaultEntryRows = 3

// Form fields are addressed by integer index through one encode/decode pair:
// row i renders as blocks client_block_i / hours_block_i and is read back the
// same way. Nothing else in the codebase builds these IDs.
func clientBlockID(i int) string  { return fmt.Sprintf("client_block_%d", i) }
func clientActionID(i int) string { return fmt.Sprintf("client_input_%d", i) }
func hoursBlockID(i int) string   { return fmt.Sprintf("hours_block_%d", i) }
func hoursActionID(i int) string  { return fmt.Sprintf("hours_input_%d", i) }

// EntryRows decodes submitted form rows from modal view state, in index
// order, stopping at the first absent row.
func EntryRows(state *slackapi.ViewState) []domain.EntryInput {
	var rows []domain.EntryInput
	if state == nil {
		return rows
	}
	for i := 0; ; i++ {
		clientBlock, ok := state.Values[clientBlockID(i)]
		if !ok {
			return rows
		}
		rows = append(rows, domain.EntryInput{
			Client: clientBlock[clientActionID(i)].Value,
			Hours:  state.Values[hoursBlockID(i)][hoursActionID(i)].Value,
		})
	}
}

// ValidationErrors maps skipped 1-based row indices to their client block IDs
// for an errors view-submission response.
func ValidationErrors(skipped []int) map[string]string {
	errs := make(map[string]string, len(skipped))
	for _, idx := range skipped {
		errs[clientBlockID(idx-1)] = "Provide a client name and valid hours."
	}
	return errs
}

// EntryCount reads the selected entry count from view state, defaulting when
// absent or unparsable.
func EntryCount(state *slackapi.ViewState) int {
	if state == nil {
		return DefaultEntryRows
	}
	v := state.Values[entryCountBlockID][ActionEntryCount].SelectedOption.Value
	var n int
	if _, err := fmt.Sscanf(v, "%d", &n); err != nil || n < 1 || n > 10 {
		return DefaultEntryRows
	}
	return n
}

// ViewMeta is carried through a modal's private metadata: the origin channel
// and, for the edit flow, the entry IDs backing each prefilled row.
type ViewMeta struct {
	ChannelID string      `json:"channel_id"`
	EntryIDs  []uint      `json:"entry_ids,omitempty"`
	Type      domain.Type `json:"timesheet_type,omitempty"`
	MessageTS string      `json:"message_ts,omitempty"` // channel post to rewrite after an edit
}

// Encode serializes metadata for ModalViewRequest.PrivateMetadata.
func (m ViewMeta) Encode() string {
	data, err := json.Marshal(m)
	if err != nil {
		return "{}"
	}
	return string(data)
}

// DecodeMeta parses private metadata; malformed input yields a zero value so
// handlers can degrade instead of failing.
func DecodeMeta(raw string) ViewMeta {
	var m ViewMeta
	if raw != "" {
		_ = json.Unmarshal([]byte(raw), &m)
	}
	return m
}
