// Package server exposes the bot's HTTP surface: Slack slash commands,
// interactive payloads and the Events API callback, all behind request
// signature verification.
package server

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	slackapi "github.com/slack-go/slack"
	"go.uber.org/zap"

	"github.com/anshMconsultadd/timesheet-bot/internal/config"
	"github.com/anshMconsultadd/timesheet-bot/internal/domain"
	"github.com/anshMconsultadd/timesheet-bot/internal/timesheet"
)

// Timesheets is the application service surface the handlers call.
type Timesheets interface {
	SubmitBatch(ctx context.Context, userID, username, channelID string, t domain.Type, rows []domain.EntryInput) ([]domain.TimesheetEntry, []int, error)
	EditBatch(ctx context.Context, userID, username, channelID string, t domain.Type, ids []uint, rows []domain.EntryInput) (timesheet.EditSummary, error)
	UserReport(ctx context.Context, userID string, t domain.Type) ([]domain.TimesheetEntry, error)
	LatestBatch(ctx context.Context, userID string) ([]domain.TimesheetEntry, error)
	AttachMessage(ctx context.Context, ids []uint, ts string) error
	Exempt(userID string) (bool, error)
	Unexempt(userID string) (bool, error)
}

// Notifier is the outbound Slack surface the handlers need.
type Notifier interface {
	OpenModal(triggerID string, view slackapi.ModalViewRequest) bool
	UpdateModal(viewID, hash string, view slackapi.ModalViewRequest) bool
	SendDM(userID string, blocks []slackapi.Block, text string) bool
	PostMessage(channel string, blocks []slackapi.Block, text string) (string, bool)
	UpdateMessage(channel, ts string, blocks []slackapi.Block, text string) bool
	UserRealName(userID string) string
}

// Reporter schedules asynchronous manager report delivery.
type Reporter interface {
	ScheduleReport(t domain.Type, managerID string)
}

// Server wires the gin engine, the application service and the Slack client.
type Server struct {
	cfg      config.Config
	svc      Timesheets
	notifier Notifier
	reporter Reporter
	log      *zap.Logger
	engine   *gin.Engine
}

func New(cfg config.Config, svc Timesheets, notifier Notifier, reporter Reporter, log *zap.Logger) *Server {
	if cfg.AppEnv != "development" {
		gin.SetMode(gin.ReleaseMode)
	}
	s := &Server{
		cfg:      cfg,
		svc:      svc,
		notifier: notifier,
		reporter: reporter,
		log:      log,
		engine:   gin.New(),
	}
	s.routes()
	return s
}

// Handler exposes the router; the caller owns the http.Server around it.
func (s *Server) Handler() http.Handler {
	return s.engine
}

func (s *Server) routes() {
	s.engine.Use(gin.Recovery(), s.accessLog())

	s.engine.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"service": "timesheet-bot", "status": "running"})
	})
	s.engine.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	signed := s.engine.Group("/slack", s.verifySignature())
	signed.POST("/events", s.handleEvents)
	signed.POST("/interactions", s.handleInteractions)

	cmds := signed.Group("/commands")
	cmds.POST("/postTimesheetWeekly", s.handleOpenForm(domain.Weekly))
	cmds.POST("/postTimesheetMonthly", s.handleOpenForm(domain.Monthly))
	cmds.POST("/getTimesheetWeeklyReport", s.handleReport(domain.Weekly))
	cmds.POST("/getTimesheetMonthlyReport", s.handleReport(domain.Monthly))
	cmds.POST("/exemptUser", s.handleExempt)
	cmds.POST("/removeExemption", s.handleUnexempt)
	cmds.POST("/editTimesheet", s.handleEdit)
}

// accessLog logs every request with a generated request id.
func (s *Server) accessLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		id := uuid.NewString()
		c.Set("request_id", id)
		c.Next()
		s.log.Info("http request",
			zap.String("request_id", id),
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
		)
	}
}

// verifySignature checks Slack's request signature over the raw body and
// restores the body for downstream form parsing.
func (s *Server) verifySignature() gin.HandlerFunc {
	return func(c *gin.Context) {
		body, err := io.ReadAll(c.Request.Body)
		if err != nil {
			c.AbortWithStatus(http.StatusBadRequest)
			return
		}
		c.Request.Body = io.NopCloser(bytes.NewReader(body))

		verifier, err := slackapi.NewSecretsVerifier(c.Request.Header, s.cfg.SlackSigningSecret)
		if err != nil {
			s.log.Warn("signature header parse failed", zap.Error(err))
			c.AbortWithStatus(http.StatusUnauthorized)
			return
		}
		if _, err := verifier.Write(body); err != nil {
			c.AbortWithStatus(http.StatusInternalServerError)
			return
		}
		if err := verifier.Ensure(); err != nil {
			s.log.Warn("request signature rejected", zap.String("path", c.Request.URL.Path))
			c.AbortWithStatus(http.StatusUnauthorized)
			return
		}
		c.Next()
	}
}

// handleEvents answers the Events API: the url_verification handshake echoes
// the challenge, everything else is acknowledged.
func (s *Server) handleEvents(c *gin.Context) {
	var payload struct {
		Type      string `json:"type"`
		Challenge string `json:"challenge"`
	}
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.AbortWithStatus(http.StatusBadRequest)
		return
	}
	if payload.Type == "url_verification" {
		c.JSON(http.StatusOK, gin.H{"challenge": payload.Challenge})
		return
	}
	c.Status(http.StatusOK)
}
