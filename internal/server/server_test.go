package server

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	slackapi "github.com/slack-go/slack"
	"go.uber.org/zap"

	"github.com/anshMconsultadd/timesheet-bot/internal/config"
	"github.com/anshMconsultadd/timesheet-bot/internal/domain"
	slackui "github.com/anshMconsultadd/timesheet-bot/internal/slack"
	"github.com/anshMconsultadd/timesheet-bot/internal/timesheet"
)

const testSecret = "8f742231b10e8888abcd99yyyzzz85a5"

type submitCall struct {
	userID, channelID string
	t                 domain.Type
	rows              []domain.EntryInput
}

type fakeSvc struct {
	submits        []submitCall
	submitAccepted []domain.TimesheetEntry
	submitSkipped  []int

	editSums timesheet.EditSummary
	editIDs  []uint

	report []domain.TimesheetEntry
	latest []domain.TimesheetEntry

	exempted   []string
	unexempted []string
	exemptDup  bool

	attachedIDs []uint
	attachedTS  string
}

func (f *fakeSvc) SubmitBatch(_ context.Context, userID, _, channelID string, t domain.Type, rows []domain.EntryInput) ([]domain.TimesheetEntry, []int, error) {
	f.submits = append(f.submits, submitCall{userID: userID, channelID: channelID, t: t, rows: rows})
	return f.submitAccepted, f.submitSkipped, nil
}

func (f *fakeSvc) EditBatch(_ context.Context, _, _, _ string, _ domain.Type, ids []uint, _ []domain.EntryInput) (timesheet.EditSummary, error) {
	f.editIDs = ids
	return f.editSums, nil
}

func (f *fakeSvc) UserReport(context.Context, string, domain.Type) ([]domain.TimesheetEntry, error) {
	return f.report, nil
}

func (f *fakeSvc) LatestBatch(context.Context, string) ([]domain.TimesheetEntry, error) {
	return f.latest, nil
}

func (f *fakeSvc) AttachMessage(_ context.Context, ids []uint, ts string) error {
	f.attachedIDs = ids
	f.attachedTS = ts
	return nil
}

func (f *fakeSvc) Exempt(userID string) (bool, error) {
	f.exempted = append(f.exempted, userID)
	return !f.exemptDup, nil
}

func (f *fakeSvc) Unexempt(userID string) (bool, error) {
	f.unexempted = append(f.unexempted, userID)
	return true, nil
}

type fakeNotifier struct {
	openedViews  []slackapi.ModalViewRequest
	updatedViews []slackapi.ModalViewRequest
	dms          []string
	posts        []string // channel IDs
	updatedMsgs  []string // "channel:ts"
	openFails    bool
}

func (f *fakeNotifier) OpenModal(_ string, view slackapi.ModalViewRequest) bool {
	if f.openFails {
		return false
	}
	f.openedViews = append(f.openedViews, view)
	return true
}

func (f *fakeNotifier) UpdateModal(_, _ string, view slackapi.ModalViewRequest) bool {
	f.updatedViews = append(f.updatedViews, view)
	return true
}

func (f *fakeNotifier) SendDM(_ string, _ []slackapi.Block, text string) bool {
	f.dms = append(f.dms, text)
	return true
}

func (f *fakeNotifier) PostMessage(channel string, _ []slackapi.Block, _ string) (string, bool) {
	f.posts = append(f.posts, channel)
	return "1700000000.000100", true
}

func (f *fakeNotifier) UpdateMessage(channel, ts string, _ []slackapi.Block, _ string) bool {
	f.updatedMsgs = append(f.updatedMsgs, channel+":"+ts)
	return true
}

func (f *fakeNotifier) UserRealName(string) string { return "Alice Example" }

type fakeReporter struct {
	scheduled []string
}

func (f *fakeReporter) ScheduleReport(t domain.Type, managerID string) {
	f.scheduled = append(f.scheduled, string(t)+":"+managerID)
}

func newTestServer(svc *fakeSvc, notifier *fakeNotifier, reporter *fakeReporter) *Server {
	cfg := config.Config{
		SlackSigningSecret: testSecret,
		ManagerUserIDs:     "UMGR",
		Timezone:           "UTC",
		AppEnv:             "development",
	}
	return New(cfg, svc, notifier, reporter, zap.NewNop())
}

func sign(req *http.Request, body string) {
	ts := fmt.Sprintf("%d", time.Now().Unix())
	mac := hmac.New(sha256.New, []byte(testSecret))
	mac.Write([]byte("v0:" + ts + ":" + body))
	req.Header.Set("X-Slack-Request-Timestamp", ts)
	req.Header.Set("X-Slack-Signature", "v0="+hex.EncodeToString(mac.Sum(nil)))
}

func signedForm(t *testing.T, s *Server, path string, form url.Values) *httptest.ResponseRecorder {
	t.Helper()
	body := form.Encode()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	sign(req, body)
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	return w
}

func TestHealthEndpoints(t *testing.T) {
	s := newTestServer(&fakeSvc{}, &fakeNotifier{}, &fakeReporter{})
	for _, path := range []string{"/", "/healthz"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		w := httptest.NewRecorder()
		s.Handler().ServeHTTP(w, req)
		if w.Code != http.StatusOK {
			t.Fatalf("GET %s = %d, want 200", path, w.Code)
		}
	}
}

func TestSignatureRejected(t *testing.T) {
	s := newTestServer(&fakeSvc{}, &fakeNotifier{}, &fakeReporter{})

	// No signature headers at all.
	req := httptest.NewRequest(http.MethodPost, "/slack/commands/postTimesheetWeekly", strings.NewReader("user_id=U1"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("unsigned request = %d, want 401", w.Code)
	}

	// Valid headers, wrong secret.
	body := "user_id=U1"
	req = httptest.NewRequest(http.MethodPost, "/slack/commands/postTimesheetWeekly", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	ts := fmt.Sprintf("%d", time.Now().Unix())
	mac := hmac.New(sha256.New, []byte("wrong-secret"))
	mac.Write([]byte("v0:" + ts + ":" + body))
	req.Header.Set("X-Slack-Request-Timestamp", ts)
	req.Header.Set("X-Slack-Signature", "v0="+hex.EncodeToString(mac.Sum(nil)))
	w = httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("forged request = %d, want 401", w.Code)
	}
}

func TestEventsURLVerification(t *testing.T) {
	s := newTestServer(&fakeSvc{}, &fakeNotifier{}, &fakeReporter{})
	body := `{"type":"url_verification","challenge":"abc123"}`
	req := httptest.NewRequest(http.MethodPost, "/slack/events", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	sign(req, body)
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("events = %d, want 200", w.Code)
	}
	if !strings.Contains(w.Body.String(), "abc123") {
		t.Fatalf("challenge not echoed: %s", w.Body.String())
	}
}

func TestOpenFormCommand(t *testing.T) {
	notifier := &fakeNotifier{}
	s := newTestServer(&fakeSvc{}, notifier, &fakeReporter{})

	w := signedForm(t, s, "/slack/commands/postTimesheetWeekly", url.Values{
		"user_id":    {"U1"},
		"channel_id": {"C1"},
		"trigger_id": {"trig.123"},
		"command":    {"/postTimesheetWeekly"},
	})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "Opening timesheet form") {
		t.Fatalf("body = %q", w.Body.String())
	}
	if len(notifier.openedViews) != 1 {
		t.Fatalf("opened views = %d, want 1", len(notifier.openedViews))
	}
	if notifier.openedViews[0].CallbackID != slackui.CallbackSubmitWeekly {
		t.Fatalf("callback = %q", notifier.openedViews[0].CallbackID)
	}
}

func TestReportCommandManagerAndUser(t *testing.T) {
	notifier := &fakeNotifier{}
	reporter := &fakeReporter{}
	s := newTestServer(&fakeSvc{}, notifier, reporter)

	// Manager: async grouped report.
	w := signedForm(t, s, "/slack/commands/getTimesheetMonthlyReport", url.Values{
		"user_id": {"UMGR"},
	})
	if !strings.Contains(w.Body.String(), "Generating detailed report") {
		t.Fatalf("manager body = %q", w.Body.String())
	}
	if len(reporter.scheduled) != 1 || reporter.scheduled[0] != "monthly:UMGR" {
		t.Fatalf("scheduled = %v", reporter.scheduled)
	}

	// Regular user: own entries via DM, no grouped report.
	w = signedForm(t, s, "/slack/commands/getTimesheetWeeklyReport", url.Values{
		"user_id": {"U1"},
	})
	if !strings.Contains(w.Body.String(), "on its way") {
		t.Fatalf("user body = %q", w.Body.String())
	}
	if len(reporter.scheduled) != 1 {
		t.Fatalf("non-manager triggered grouped report: %v", reporter.scheduled)
	}
	if len(notifier.dms) != 1 {
		t.Fatalf("dms = %v, want the self report", notifier.dms)
	}
}

func TestExemptCommand(t *testing.T) {
	svc := &fakeSvc{}
	s := newTestServer(svc, &fakeNotifier{}, &fakeReporter{})

	// Non-manager rejected.
	w := signedForm(t, s, "/slack/commands/exemptUser", url.Values{
		"user_id": {"U1"},
		"text":    {"<@U999|bob>"},
	})
	if !strings.Contains(w.Body.String(), "Only managers") {
		t.Fatalf("body = %q", w.Body.String())
	}
	if len(svc.exempted) != 0 {
		t.Fatalf("non-manager exempted someone: %v", svc.exempted)
	}

	// Manager without a mention.
	w = signedForm(t, s, "/slack/commands/exemptUser", url.Values{
		"user_id": {"UMGR"},
		"text":    {"bob"},
	})
	if !strings.Contains(w.Body.String(), "mention a user") {
		t.Fatalf("body = %q", w.Body.String())
	}

	// Manager with a mention.
	w = signedForm(t, s, "/slack/commands/exemptUser", url.Values{
		"user_id": {"UMGR"},
		"text":    {"please skip <@U999|bob> this month"},
	})
	if !strings.Contains(w.Body.String(), "has been exempted") {
		t.Fatalf("body = %q", w.Body.String())
	}
	if len(svc.exempted) != 1 || svc.exempted[0] != "U999" {
		t.Fatalf("exempted = %v", svc.exempted)
	}
}

func TestRemoveExemptionCommand(t *testing.T) {
	svc := &fakeSvc{}
	s := newTestServer(svc, &fakeNotifier{}, &fakeReporter{})

	w := signedForm(t, s, "/slack/commands/removeExemption", url.Values{
		"user_id": {"UMGR"},
		"text":    {"<@U999|bob>"},
	})
	if !strings.Contains(w.Body.String(), "Exemption removed") {
		t.Fatalf("body = %q", w.Body.String())
	}
	if len(svc.unexempted) != 1 || svc.unexempted[0] != "U999" {
		t.Fatalf("unexempted = %v", svc.unexempted)
	}
}

func TestEditCommandNoHistory(t *testing.T) {
	s := newTestServer(&fakeSvc{}, &fakeNotifier{}, &fakeReporter{})

	w := signedForm(t, s, "/slack/commands/editTimesheet", url.Values{
		"user_id":    {"U1"},
		"trigger_id": {"trig.123"},
	})
	if !strings.Contains(w.Body.String(), "No previous timesheet") {
		t.Fatalf("body = %q", w.Body.String())
	}
}

func TestEditCommandOpensPrefilledModal(t *testing.T) {
	svc := &fakeSvc{latest: []domain.TimesheetEntry{
		{ID: 7, UserID: "U1", ClientName: "Acme", Hours: 5, Type: domain.Weekly, SubmissionDate: time.Now().UTC()},
	}}
	notifier := &fakeNotifier{}
	s := newTestServer(svc, notifier, &fakeReporter{})

	w := signedForm(t, s, "/slack/commands/editTimesheet", url.Values{
		"user_id":    {"U1"},
		"channel_id": {"C1"},
		"trigger_id": {"trig.123"},
	})
	if !strings.Contains(w.Body.String(), "Opening edit form") {
		t.Fatalf("body = %q", w.Body.String())
	}
	if len(notifier.openedViews) != 1 {
		t.Fatalf("opened views = %d", len(notifier.openedViews))
	}
	meta := slackui.DecodeMeta(notifier.openedViews[0].PrivateMetadata)
	if len(meta.EntryIDs) != 1 || meta.EntryIDs[0] != 7 {
		t.Fatalf("meta = %+v", meta)
	}
}

func interactionPayload(t *testing.T, s *Server, payload string) *httptest.ResponseRecorder {
	t.Helper()
	return signedForm(t, s, "/slack/interactions", url.Values{"payload": {payload}})
}

func TestViewSubmissionPersistsAndConfirms(t *testing.T) {
	svc := &fakeSvc{
		submitAccepted: []domain.TimesheetEntry{{ID: 3, ClientName: "Acme", Hours: 5}},
	}
	notifier := &fakeNotifier{}
	s := newTestServer(svc, notifier, &fakeReporter{})

	payload := `{
		"type": "view_submission",
		"user": {"id": "U1", "name": "alice"},
		"view": {
			"callback_id": "submit_weekly_timesheet",
			"private_metadata": "{\"channel_id\":\"C1\",\"timesheet_type\":\"weekly\"}",
			"state": {"values": {
				"client_block_0": {"client_input_0": {"value": "Acme"}},
				"hours_block_0": {"hours_input_0": {"value": "5"}}
			}}
		}
	}`
	w := interactionPayload(t, s, payload)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if len(svc.submits) != 1 {
		t.Fatalf("submits = %d, want 1", len(svc.submits))
	}
	got := svc.submits[0]
	if got.userID != "U1" || got.channelID != "C1" || got.t != domain.Weekly {
		t.Fatalf("submit call = %+v", got)
	}
	if len(got.rows) != 1 || got.rows[0].Client != "Acme" || got.rows[0].Hours != "5" {
		t.Fatalf("rows = %+v", got.rows)
	}
	if len(notifier.dms) != 1 || !strings.Contains(notifier.dms[0], "submitted successfully") {
		t.Fatalf("dms = %v", notifier.dms)
	}
	// The batch is announced in the origin channel and the post timestamp
	// recorded for later edits.
	if len(notifier.posts) != 1 || notifier.posts[0] != "C1" {
		t.Fatalf("posts = %v, want one to C1", notifier.posts)
	}
	if len(svc.attachedIDs) != 1 || svc.attachedIDs[0] != 3 || svc.attachedTS == "" {
		t.Fatalf("attach = ids %v ts %q", svc.attachedIDs, svc.attachedTS)
	}
}

func TestViewSubmissionAllInvalidReturnsErrors(t *testing.T) {
	svc := &fakeSvc{submitSkipped: []int{1}}
	s := newTestServer(svc, &fakeNotifier{}, &fakeReporter{})

	payload := `{
		"type": "view_submission",
		"user": {"id": "U1"},
		"view": {
			"callback_id": "submit_weekly_timesheet",
			"private_metadata": "{\"channel_id\":\"C1\"}",
			"state": {"values": {
				"client_block_0": {"client_input_0": {"value": ""}},
				"hours_block_0": {"hours_input_0": {"value": ""}}
			}}
		}
	}`
	w := interactionPayload(t, s, payload)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	body := w.Body.String()
	if !strings.Contains(body, `"errors"`) || !strings.Contains(body, "client_block_0") {
		t.Fatalf("body = %q, want inline errors", body)
	}
}

func TestEditSubmissionCarriesEntryIDs(t *testing.T) {
	svc := &fakeSvc{editSums: timesheet.EditSummary{Updated: 1}}
	notifier := &fakeNotifier{}
	s := newTestServer(svc, notifier, &fakeReporter{})

	payload := `{
		"type": "view_submission",
		"user": {"id": "U1"},
		"view": {
			"callback_id": "edit_timesheet_modal",
			"private_metadata": "{\"channel_id\":\"C1\",\"entry_ids\":[7],\"timesheet_type\":\"weekly\"}",
			"state": {"values": {
				"client_block_0": {"client_input_0": {"value": "Acme Corp"}},
				"hours_block_0": {"hours_input_0": {"value": "6"}}
			}}
		}
	}`
	w := interactionPayload(t, s, payload)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if len(svc.editIDs) != 1 || svc.editIDs[0] != 7 {
		t.Fatalf("edit ids = %v", svc.editIDs)
	}
	if len(notifier.dms) != 1 || !strings.Contains(notifier.dms[0], "1 updated") {
		t.Fatalf("dms = %v", notifier.dms)
	}
}

func TestEditSubmissionRewritesChannelPost(t *testing.T) {
	svc := &fakeSvc{
		editSums: timesheet.EditSummary{Updated: 1},
		latest: []domain.TimesheetEntry{
			{ID: 7, UserID: "U1", ChannelID: "C1", ClientName: "Acme Corp", Hours: 6,
				MessageTS: "1700000000.000100", Type: domain.Weekly, SubmissionDate: time.Now().UTC()},
		},
	}
	notifier := &fakeNotifier{}
	s := newTestServer(svc, notifier, &fakeReporter{})

	payload := `{
		"type": "view_submission",
		"user": {"id": "U1"},
		"view": {
			"callback_id": "edit_timesheet_modal",
			"private_metadata": "{\"channel_id\":\"C1\",\"entry_ids\":[7],\"timesheet_type\":\"weekly\",\"message_ts\":\"1700000000.000100\"}",
			"state": {"values": {
				"client_block_0": {"client_input_0": {"value": "Acme Corp"}},
				"hours_block_0": {"hours_input_0": {"value": "6"}}
			}}
		}
	}`
	w := interactionPayload(t, s, payload)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if len(notifier.updatedMsgs) != 1 || notifier.updatedMsgs[0] != "C1:1700000000.000100" {
		t.Fatalf("updated messages = %v", notifier.updatedMsgs)
	}
}

func TestBlockActionResizesModal(t *testing.T) {
	notifier := &fakeNotifier{}
	s := newTestServer(&fakeSvc{}, notifier, &fakeReporter{})

	payload := `{
		"type": "block_actions",
		"user": {"id": "U1"},
		"view": {
			"id": "V123",
			"hash": "h1",
			"callback_id": "submit_weekly_timesheet",
			"private_metadata": "{\"channel_id\":\"C1\"}",
			"state": {"values": {
				"entry_count_block": {"entry_count_select": {"selected_option": {"value": "2"}}}
			}}
		},
		"actions": [{"action_id": "entry_count_select", "block_id": "entry_count_block"}]
	}`
	w := interactionPayload(t, s, payload)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if len(notifier.updatedViews) != 1 {
		t.Fatalf("updated views = %d, want 1", len(notifier.updatedViews))
	}
	rows := 0
	for _, b := range notifier.updatedViews[0].Blocks.BlockSet {
		if input, ok := b.(*slackapi.InputBlock); ok && strings.HasPrefix(input.BlockID, "client_block_") {
			rows++
		}
	}
	if rows != 2 {
		t.Fatalf("rebuilt modal has %d rows, want 2", rows)
	}
}
