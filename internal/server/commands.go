package server

import (
	"fmt"
	"net/http"
	"regexp"

	"github.com/gin-gonic/gin"
	slackapi "github.com/slack-go/slack"
	"go.uber.org/zap"

	"github.com/anshMconsultadd/timesheet-bot/internal/domain"
	slackui "github.com/anshMconsultadd/timesheet-bot/internal/slack"
)

// mentionRE extracts the first mentioned user ID from slash command text,
// e.g. "<@U123ABC|jane>".
var mentionRE = regexp.MustCompile(`<@([A-Z0-9]+)`)

func (s *Server) parseCommand(c *gin.Context) (slackapi.SlashCommand, bool) {
	cmd, err := slackapi.SlashCommandParse(c.Request)
	if err != nil {
		s.log.Warn("slash command parse failed", zap.Error(err))
		c.String(http.StatusBadRequest, "invalid command payload")
		return slackapi.SlashCommand{}, false
	}
	return cmd, true
}

// handleOpenForm opens the submission modal for /postTimesheetWeekly and
// /postTimesheetMonthly.
func (s *Server) handleOpenForm(t domain.Type) gin.HandlerFunc {
	return func(c *gin.Context) {
		cmd, ok := s.parseCommand(c)
		if !ok {
			return
		}
		view := slackui.NewSubmissionModal(t, cmd.ChannelID, slackui.DefaultEntryRows)
		if !s.notifier.OpenModal(cmd.TriggerID, view) {
			c.String(http.StatusOK, slackui.TextGenericFailure)
			return
		}
		c.String(http.StatusOK, slackui.TextModalOpening)
	}
}

// handleReport serves /getTimesheetWeeklyReport and /getTimesheetMonthlyReport.
// Managers get the full grouped report asynchronously via DM; everyone else
// gets their own recent entries.
func (s *Server) handleReport(t domain.Type) gin.HandlerFunc {
	return func(c *gin.Context) {
		cmd, ok := s.parseCommand(c)
		if !ok {
			return
		}
		if s.cfg.IsManager(cmd.UserID) {
			s.reporter.ScheduleReport(t, cmd.UserID)
			c.String(http.StatusOK, slackui.TextReportGenerating)
			return
		}

		entries, err := s.svc.UserReport(c.Request.Context(), cmd.UserID, t)
		if err != nil {
			s.log.Error("user report failed", zap.String("user", cmd.UserID), zap.Error(err))
			c.String(http.StatusOK, slackui.TextGenericFailure)
			return
		}
		title := "📊 Your Recent Timesheet Entries"
		s.notifier.SendDM(cmd.UserID, slackui.ReportBlocks(entries, title, s.cfg.Location()), title)
		c.String(http.StatusOK, "📊 Your report is on its way via DM.")
	}
}

// handleExempt serves /exemptUser: managers add the mentioned user to the
// exemption list.
func (s *Server) handleExempt(c *gin.Context) {
	cmd, ok := s.parseCommand(c)
	if !ok {
		return
	}
	if !s.cfg.IsManager(cmd.UserID) {
		c.String(http.StatusOK, slackui.TextManagersOnly)
		return
	}
	m := mentionRE.FindStringSubmatch(cmd.Text)
	if m == nil {
		c.String(http.StatusOK, slackui.TextMentionRequired)
		return
	}
	target := m[1]
	added, err := s.svc.Exempt(target)
	if err != nil {
		s.log.Error("exempt failed", zap.String("target", target), zap.Error(err))
		c.String(http.StatusOK, slackui.TextGenericFailure)
		return
	}
	if !added {
		c.String(http.StatusOK, fmt.Sprintf("ℹ️ <@%s> is already exempted.", target))
		return
	}
	c.String(http.StatusOK, fmt.Sprintf("✅ <@%s> has been exempted from timesheet reminders.", target))
}

// handleUnexempt serves /removeExemption.
func (s *Server) handleUnexempt(c *gin.Context) {
	cmd, ok := s.parseCommand(c)
	if !ok {
		return
	}
	if !s.cfg.IsManager(cmd.UserID) {
		c.String(http.StatusOK, slackui.TextManagersOnly)
		return
	}
	m := mentionRE.FindStringSubmatch(cmd.Text)
	if m == nil {
		c.String(http.StatusOK, slackui.TextMentionRequired)
		return
	}
	target := m[1]
	removed, err := s.svc.Unexempt(target)
	if err != nil {
		s.log.Error("unexempt failed", zap.String("target", target), zap.Error(err))
		c.String(http.StatusOK, slackui.TextGenericFailure)
		return
	}
	if !removed {
		c.String(http.StatusOK, fmt.Sprintf("ℹ️ <@%s> was not exempted.", target))
		return
	}
	c.String(http.StatusOK, fmt.Sprintf("✅ Exemption removed for <@%s>.", target))
}

// handleEdit serves /editTimesheet: opens a prefilled modal over the user's
// latest submission batch.
func (s *Server) handleEdit(c *gin.Context) {
	cmd, ok := s.parseCommand(c)
	if !ok {
		return
	}
	batch, err := s.svc.LatestBatch(c.Request.Context(), cmd.UserID)
	if err != nil {
		s.log.Error("latest batch lookup failed", zap.String("user", cmd.UserID), zap.Error(err))
		c.String(http.StatusOK, slackui.TextGenericFailure)
		return
	}
	if len(batch) == 0 {
		c.String(http.StatusOK, slackui.TextEditNoHistory)
		return
	}

	meta := slackui.ViewMeta{ChannelID: cmd.ChannelID, Type: batch[0].Type, MessageTS: batch[0].MessageTS}
	for _, e := range batch {
		meta.EntryIDs = append(meta.EntryIDs, e.ID)
	}
	view := slackui.NewEditModal(meta, batch, s.cfg.Location())
	if !s.notifier.OpenModal(cmd.TriggerID, view) {
		c.String(http.StatusOK, slackui.TextGenericFailure)
		return
	}
	c.String(http.StatusOK, slackui.TextEditOpening)
}
