// Package scheduler drives the bot's time-based behaviors: weekly and
// month-end reminder fan-out, the delayed missing-submitter follow-up, and
// asynchronous manager report delivery.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	slackapi "github.com/slack-go/slack"
	"go.uber.org/zap"

	"github.com/anshMconsultadd/timesheet-bot/internal/domain"
	slackclient "github.com/anshMconsultadd/timesheet-bot/internal/slack"
)

// Timesheets is the service surface the scheduler consumes.
type Timesheets interface {
	ReminderRecipients(ctx context.Context) ([]string, error)
	Channels(ctx context.Context) ([]string, error)
	MissingForChannel(ctx context.Context, t domain.Type, channelID string) ([]string, error)
	Reconcile(ctx context.Context, t domain.Type) (domain.ReconcileResult, error)
}

// Messenger is the outbound Slack surface the scheduler needs.
type Messenger interface {
	SendDM(userID string, blocks []slackapi.Block, text string) bool
	PostMessage(channel string, blocks []slackapi.Block, text string) (string, bool)
}

// Scheduler owns the cron runner and the one-shot follow-up timers. All jobs
// recover from panics so a bad cycle never kills the process.
type Scheduler struct {
	cron  *cron.Cron
	svc   Timesheets
	msg   Messenger
	loc   *time.Location
	hour  int
	delay time.Duration
	log   *zap.Logger
	now   func() time.Time

	mu        sync.Mutex
	followups map[string]*time.Timer
}

func New(svc Timesheets, msg Messenger, loc *time.Location, reminderHour int, followUpDelay time.Duration, log *zap.Logger) *Scheduler {
	return &Scheduler{
		cron:      cron.New(cron.WithLocation(loc)),
		svc:       svc,
		msg:       msg,
		loc:       loc,
		hour:      reminderHour,
		delay:     followUpDelay,
		log:       log,
		now:       time.Now,
		followups: make(map[string]*time.Timer),
	}
}

// Start registers the recurring jobs and starts the cron runner. The monthly
// reminder runs as a daily check gated on the last working day, since cron
// cannot express "last weekday of the month" directly.
func (s *Scheduler) Start() error {
	weekly := fmt.Sprintf("0 %d * * FRI", s.hour)
	if _, err := s.cron.AddFunc(weekly, func() {
		s.guard("weekly reminder", func() { s.remind(domain.Weekly) })
	}); err != nil {
		return fmt.Errorf("register weekly reminder: %w", err)
	}

	daily := fmt.Sprintf("0 %d * * *", s.hour)
	if _, err := s.cron.AddFunc(daily, func() {
		s.guard("monthly reminder", func() {
			if !domain.IsLastWorkingDay(s.now(), s.loc) {
				return
			}
			s.remind(domain.Monthly)
		})
	}); err != nil {
		return fmt.Errorf("register monthly reminder: %w", err)
	}

	s.cron.Start()
	s.log.Info("scheduler started",
		zap.String("weekly", weekly),
		zap.String("daily", daily),
		zap.String("timezone", s.loc.String()),
		zap.Duration("followup_delay", s.delay),
	)
	return nil
}

// Stop halts the cron runner and cancels pending follow-up timers.
func (s *Scheduler) Stop() {
	s.cron.Stop()
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, timer := range s.followups {
		timer.Stop()
		delete(s.followups, id)
	}
	s.log.Info("scheduler stopped")
}

// guard runs a job with panic recovery.
func (s *Scheduler) guard(name string, job func()) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Error("scheduled job panicked", zap.String("job", name), zap.Any("panic", r))
		}
	}()
	job()
}

// remind DMs every reminder recipient and schedules the follow-up check.
// Per-user delivery failures are counted, never fatal.
func (s *Scheduler) remind(t domain.Type) {
	ctx := context.Background()
	users, err := s.svc.ReminderRecipients(ctx)
	if err != nil {
		s.log.Error("reminder recipients lookup failed", zap.String("type", string(t)), zap.Error(err))
		return
	}

	blocks := slackclient.ReminderBlocks(t)
	sent, failed := 0, 0
	for _, u := range users {
		if s.msg.SendDM(u, blocks, "Timesheet reminder") {
			sent++
		} else {
			failed++
		}
	}
	s.log.Info("reminders sent",
		zap.String("type", string(t)),
		zap.Int("sent", sent),
		zap.Int("failed", failed),
	)
	s.ScheduleFollowUp(t)
}

// FollowUpID is the registry key for a pending follow-up: one per type and
// fire time, so a re-triggered reminder in the same instant cannot double-book.
func FollowUpID(t domain.Type, fireAt time.Time) string {
	return fmt.Sprintf("followup:%s:%s", t, fireAt.UTC().Format(time.RFC3339Nano))
}

// ScheduleFollowUp arms a one-shot timer that posts missing-submitter lists
// after the configured delay. The registry is in-memory only; pending
// follow-ups do not survive a restart.
func (s *Scheduler) ScheduleFollowUp(t domain.Type) string {
	fireAt := s.now().Add(s.delay)
	id := FollowUpID(t, fireAt)

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.followups[id]; exists {
		return id
	}
	s.followups[id] = time.AfterFunc(s.delay, func() {
		s.mu.Lock()
		delete(s.followups, id)
		s.mu.Unlock()
		s.guard("followup", func() { s.runFollowUp(t) })
	})
	s.log.Info("follow-up scheduled", zap.String("id", id))
	return id
}

// runFollowUp posts the per-channel missing list to every channel with
// submission history that still has non-submitters. Channels where everyone
// submitted stay quiet.
func (s *Scheduler) runFollowUp(t domain.Type) {
	ctx := context.Background()
	channels, err := s.svc.Channels(ctx)
	if err != nil {
		s.log.Error("follow-up channel listing failed", zap.Error(err))
		return
	}
	for _, ch := range channels {
		missing, err := s.svc.MissingForChannel(ctx, t, ch)
		if err != nil {
			s.log.Warn("follow-up reconcile failed", zap.String("channel", ch), zap.Error(err))
			continue
		}
		if len(missing) == 0 {
			continue
		}
		s.msg.PostMessage(ch, slackclient.MissingUsersBlocks(t, missing), "Missing timesheet submissions")
	}
}

// ScheduleReport delivers a full grouped report to the manager asynchronously,
// so the slash command can acknowledge within Slack's response deadline. It
// rides the same one-shot registry as follow-ups, so Stop covers it.
func (s *Scheduler) ScheduleReport(t domain.Type, managerID string) {
	id := fmt.Sprintf("report:%s:%s:%s", t, managerID, s.now().UTC().Format(time.RFC3339Nano))
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.followups[id]; exists {
		return
	}
	s.followups[id] = time.AfterFunc(0, func() {
		s.mu.Lock()
		delete(s.followups, id)
		s.mu.Unlock()
		s.guard("manager report", func() { s.runReport(t, managerID) })
	})
}

func (s *Scheduler) runReport(t domain.Type, managerID string) {
	result, err := s.svc.Reconcile(context.Background(), t)
	if err != nil {
		s.log.Error("manager report reconcile failed", zap.String("type", string(t)), zap.Error(err))
		s.msg.SendDM(managerID, nil, "Failed to generate the timesheet report. Please try again.")
		return
	}
	title := fmt.Sprintf("📊 %s Timesheet Report", titleFor(t))
	blocks := slackclient.GroupedReportBlocks(result.Summaries, title, result.Missing)
	s.msg.SendDM(managerID, blocks, title)
}

func titleFor(t domain.Type) string {
	if t == domain.Monthly {
		return "Monthly"
	}
	return "Weekly"
}
