package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	slackapi "github.com/slack-go/slack"
	"go.uber.org/zap"

	"github.com/anshMconsultadd/timesheet-bot/internal/domain"
	slackui "github.com/anshMconsultadd/timesheet-bot/internal/slack"
	"github.com/anshMconsultadd/timesheet-bot/internal/timesheet"
)

// handleInteractions dispatches the interactive payload envelope: modal
// submissions and in-modal block actions.
func (s *Server) handleInteractions(c *gin.Context) {
	var cb slackapi.InteractionCallback
	if err := json.Unmarshal([]byte(c.PostForm("payload")), &cb); err != nil {
		s.log.Warn("interaction payload parse failed", zap.Error(err))
		c.AbortWithStatus(http.StatusBadRequest)
		return
	}

	switch cb.Type {
	case slackapi.InteractionTypeViewSubmission:
		s.handleViewSubmission(c, cb)
	case slackapi.InteractionTypeBlockActions:
		s.handleBlockActions(c, cb)
	default:
		c.Status(http.StatusOK)
	}
}

func (s *Server) handleViewSubmission(c *gin.Context, cb slackapi.InteractionCallback) {
	switch cb.View.CallbackID {
	case slackui.CallbackSubmitWeekly:
		s.submitTimesheet(c, cb, domain.Weekly)
	case slackui.CallbackSubmitMonthly:
		s.submitTimesheet(c, cb, domain.Monthly)
	case slackui.CallbackEdit:
		s.editTimesheet(c, cb)
	default:
		c.Status(http.StatusOK)
	}
}

// submitTimesheet persists the form rows. Invalid rows are skipped and
// reported in the confirmation DM; a form with nothing valid at all is
// bounced back with inline field errors.
func (s *Server) submitTimesheet(c *gin.Context, cb slackapi.InteractionCallback, t domain.Type) {
	meta := slackui.DecodeMeta(cb.View.PrivateMetadata)
	rows := slackui.EntryRows(cb.View.State)
	username := s.notifier.UserRealName(cb.User.ID)

	accepted, skipped, err := s.svc.SubmitBatch(c.Request.Context(), cb.User.ID, username, meta.ChannelID, t, rows)
	if err != nil {
		s.log.Error("submit batch failed", zap.String("user", cb.User.ID), zap.Error(err))
		s.notifier.SendDM(cb.User.ID, nil, slackui.TextGenericFailure)
		c.JSON(http.StatusOK, slackapi.NewClearViewSubmissionResponse())
		return
	}
	if len(accepted) == 0 && len(skipped) > 0 {
		c.JSON(http.StatusOK, slackapi.NewErrorsViewSubmissionResponse(slackui.ValidationErrors(skipped)))
		return
	}

	s.notifier.SendDM(cb.User.ID, nil, slackui.ConfirmationText(t, accepted, skipped))
	s.announceBatch(c, cb.User.ID, meta.ChannelID, t, accepted)
	c.JSON(http.StatusOK, slackapi.NewClearViewSubmissionResponse())
}

// announceBatch posts the accepted batch to the origin channel and records
// the message timestamp on the entries, so a later edit can rewrite the post.
func (s *Server) announceBatch(c *gin.Context, userID, channelID string, t domain.Type, accepted []domain.TimesheetEntry) {
	if channelID == "" || len(accepted) == 0 {
		return
	}
	ts, ok := s.notifier.PostMessage(channelID, slackui.SubmissionPostBlocks(userID, t, accepted), "Timesheet submitted")
	if !ok {
		return
	}
	ids := make([]uint, 0, len(accepted))
	for _, e := range accepted {
		ids = append(ids, e.ID)
	}
	if err := s.svc.AttachMessage(c.Request.Context(), ids, ts); err != nil {
		s.log.Warn("attach message failed", zap.String("channel", channelID), zap.Error(err))
	}
}

// editTimesheet reconciles the edited rows against the stored batch carried
// in the view's private metadata.
func (s *Server) editTimesheet(c *gin.Context, cb slackapi.InteractionCallback) {
	meta := slackui.DecodeMeta(cb.View.PrivateMetadata)
	rows := slackui.EntryRows(cb.View.State)
	username := s.notifier.UserRealName(cb.User.ID)

	t := meta.Type
	if !t.Valid() {
		t = domain.Weekly
	}
	sum, err := s.svc.EditBatch(c.Request.Context(), cb.User.ID, username, meta.ChannelID, t, meta.EntryIDs, rows)
	if err != nil {
		s.log.Error("edit batch failed", zap.String("user", cb.User.ID), zap.Error(err))
		s.notifier.SendDM(cb.User.ID, nil, slackui.TextGenericFailure)
		c.JSON(http.StatusOK, slackapi.NewClearViewSubmissionResponse())
		return
	}

	s.notifier.SendDM(cb.User.ID, nil, editResultText(sum))
	s.refreshBatchPost(c, cb.User.ID, meta)
	c.JSON(http.StatusOK, slackapi.NewClearViewSubmissionResponse())
}

// refreshBatchPost rewrites the channel post announcing the batch after an
// edit. The post lives in the batch's own channel, which may differ from
// where the edit command was typed. A fully deleted batch leaves the stale
// post alone.
func (s *Server) refreshBatchPost(c *gin.Context, userID string, meta slackui.ViewMeta) {
	if meta.MessageTS == "" {
		return
	}
	batch, err := s.svc.LatestBatch(c.Request.Context(), userID)
	if err != nil || len(batch) == 0 {
		return
	}
	s.notifier.UpdateMessage(batch[0].ChannelID, meta.MessageTS,
		slackui.SubmissionPostBlocks(userID, batch[0].Type, batch), "Timesheet updated")
}

func editResultText(sum timesheet.EditSummary) string {
	var parts []string
	if sum.Updated > 0 {
		parts = append(parts, fmt.Sprintf("%d updated", sum.Updated))
	}
	if sum.Created > 0 {
		parts = append(parts, fmt.Sprintf("%d added", sum.Created))
	}
	if sum.Deleted > 0 {
		parts = append(parts, fmt.Sprintf("%d removed", sum.Deleted))
	}
	if len(parts) == 0 {
		parts = append(parts, "no changes")
	}
	text := "✅ Timesheet updated: " + strings.Join(parts, ", ") + "."
	if sum.NotFound > 0 {
		text += fmt.Sprintf("\n⚠️ %d entries could not be found.", sum.NotFound)
	}
	if len(sum.Skipped) > 0 {
		idx := make([]string, 0, len(sum.Skipped))
		for _, i := range sum.Skipped {
			idx = append(idx, fmt.Sprintf("#%d", i))
		}
		text += fmt.Sprintf("\n⚠️ Rows %s were skipped (missing or invalid fields).", strings.Join(idx, ", "))
	}
	return text
}

// handleBlockActions resizes the submission modal when the entry count
// selector changes. Other actions are acknowledged and dropped.
func (s *Server) handleBlockActions(c *gin.Context, cb slackapi.InteractionCallback) {
	for _, action := range cb.ActionCallback.BlockActions {
		if action.ActionID != slackui.ActionEntryCount {
			continue
		}
		t := domain.Weekly
		if cb.View.CallbackID == slackui.CallbackSubmitMonthly {
			t = domain.Monthly
		}
		meta := slackui.DecodeMeta(cb.View.PrivateMetadata)
		count := slackui.EntryCount(cb.View.State)
		view := slackui.NewSubmissionModal(t, meta.ChannelID, count)
		s.notifier.UpdateModal(cb.View.ID, cb.View.Hash, view)
		break
	}
	c.Status(http.StatusOK)
}
