// Package timesheet holds the application service tying entry storage, the
// channel roster and the exemption list together: submission batches,
// edits with ownership checks, and submitted-vs-missing reconciliation.
package timesheet

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/anshMconsultadd/timesheet-bot/internal/domain"
	"github.com/anshMconsultadd/timesheet-bot/internal/store"
)

// Roster fetches the expected-submitter population from channel membership.
// *slack.Client implements it.
type Roster interface {
	BotChannels() ([]string, error)
	UsersFromChannels(channels []string) []string
}

// Service implements the timesheet operations behind the dispatch layer and
// the scheduler.
type Service struct {
	entries     store.EntryRepo
	exemptions  store.ExemptionRepo
	roster      Roster
	envExcluded []string
	loc         *time.Location
	log         *zap.Logger
	now         func() time.Time
}

func NewService(entries store.EntryRepo, exemptions store.ExemptionRepo, roster Roster, envExcluded []string, loc *time.Location, log *zap.Logger) *Service {
	return &Service{
		entries:     entries,
		exemptions:  exemptions,
		roster:      roster,
		envExcluded: envExcluded,
		loc:         loc,
		log:         log,
		now:         time.Now,
	}
}

// SubmitBatch validates and persists a batch of form rows. Rows with a blank
// client or unparsable hours are skipped, their 1-based indices collected,
// and the remaining rows still persisted (partial acceptance).
func (s *Service) SubmitBatch(ctx context.Context, userID, username, channelID string, t domain.Type, rows []domain.EntryInput) ([]domain.TimesheetEntry, []int, error) {
	now := s.now().UTC()
	var accepted []domain.TimesheetEntry
	var skipped []int

	for i, row := range rows {
		client := strings.TrimSpace(row.Client)
		hours, err := domain.ParseHours(row.Hours)
		if client == "" || err != nil {
			skipped = append(skipped, i+1)
			continue
		}
		e := domain.TimesheetEntry{
			UserID:         userID,
			Username:       username,
			ChannelID:      channelID,
			ClientName:     client,
			Hours:          hours,
			Type:           t,
			SubmissionDate: now,
		}
		if err := s.entries.Create(ctx, &e); err != nil {
			return accepted, skipped, err
		}
		accepted = append(accepted, e)
	}
	s.log.Info("timesheet batch submitted",
		zap.String("user", userID),
		zap.String("type", string(t)),
		zap.Int("accepted", len(accepted)),
		zap.Int("skipped", len(skipped)),
	)
	return accepted, skipped, nil
}

// EditSummary reports what an edit submission changed.
type EditSummary struct {
	Updated  int
	Created  int
	Deleted  int
	Skipped  []int // 1-based indices of rows with invalid fields
	NotFound int   // rows whose target entry was absent or not owned
}

// EditBatch reconciles a revised form against the stored batch it was opened
// from: matching rows update in place (submission date refreshed), emptied
// rows delete their entry, rows beyond the stored IDs create new entries.
// Ownership is enforced per row; a non-owned target counts as not found and
// never mutates.
func (s *Service) EditBatch(ctx context.Context, userID, username, channelID string, t domain.Type, ids []uint, rows []domain.EntryInput) (EditSummary, error) {
	now := s.now().UTC()
	var sum EditSummary

	for i, row := range rows {
		client := strings.TrimSpace(row.Client)
		hoursRaw := strings.TrimSpace(row.Hours)
		hasID := i < len(ids)

		if client == "" && hoursRaw == "" {
			if !hasID {
				continue // blank extra row
			}
			ok, err := s.entries.Delete(ctx, ids[i], userID)
			if err != nil {
				return sum, err
			}
			if ok {
				sum.Deleted++
			} else {
				sum.NotFound++
			}
			continue
		}

		hours, err := domain.ParseHours(hoursRaw)
		if client == "" || err != nil {
			sum.Skipped = append(sum.Skipped, i+1)
			continue
		}

		if !hasID {
			e := domain.TimesheetEntry{
				UserID:         userID,
				Username:       username,
				ChannelID:      channelID,
				ClientName:     client,
				Hours:          hours,
				Type:           t,
				SubmissionDate: now,
			}
			if err := s.entries.Create(ctx, &e); err != nil {
				return sum, err
			}
			sum.Created++
			continue
		}

		ok, err := s.entries.Update(ctx, ids[i], userID, client, hours, now)
		if err != nil {
			return sum, err
		}
		if ok {
			sum.Updated++
		} else {
			sum.NotFound++
		}
	}
	s.log.Info("timesheet batch edited",
		zap.String("user", userID),
		zap.Int("updated", sum.Updated),
		zap.Int("created", sum.Created),
		zap.Int("deleted", sum.Deleted),
		zap.Int("not_found", sum.NotFound),
	)
	return sum, nil
}

// AttachMessage records the channel post timestamp for a submitted batch so
// later edits can rewrite the post in place.
func (s *Service) AttachMessage(ctx context.Context, ids []uint, ts string) error {
	return s.entries.AttachMessage(ctx, ids, ts)
}

// UserReport returns the caller's own recent entries: the last 7 days for
// weekly, 31 for monthly.
func (s *Service) UserReport(ctx context.Context, userID string, t domain.Type) ([]domain.TimesheetEntry, error) {
	days := 7
	if t == domain.Monthly {
		days = 31
	}
	since := s.now().UTC().AddDate(0, 0, -days)
	return s.entries.ListUserSince(ctx, userID, t, since)
}

// LatestBatch returns the user's most recent submission batch for prefilling
// the edit form.
func (s *Service) LatestBatch(ctx context.Context, userID string) ([]domain.TimesheetEntry, error) {
	return s.entries.LatestBatch(ctx, userID, s.loc)
}

// Exempt adds a user to the exemption file. Returns false if already present.
func (s *Service) Exempt(userID string) (bool, error) {
	return s.exemptions.Add(userID)
}

// Unexempt removes a user from the exemption file. Returns false if absent.
func (s *Service) Unexempt(userID string) (bool, error) {
	return s.exemptions.Remove(userID)
}

// Exempted returns the effective exemption set: the flat file union the
// config-level excluded IDs. A file read failure degrades to the env list.
func (s *Service) Exempted() []string {
	fileUsers, err := s.exemptions.List()
	if err != nil {
		s.log.Warn("exemption file read failed", zap.Error(err))
	}
	seen := make(map[string]struct{})
	var out []string
	for _, id := range append(append([]string{}, s.envExcluded...), fileUsers...) {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

// Channels lists channels with submission history.
func (s *Service) Channels(ctx context.Context) ([]string, error) {
	return s.entries.DistinctChannels(ctx)
}

// ReminderRecipients is the union of memberships across channels with
// submission history. When the roster comes back empty (API failure or no
// reachable channels) it falls back to users with submission history so a
// reminder cycle still reaches someone.
func (s *Service) ReminderRecipients(ctx context.Context) ([]string, error) {
	channels, err := s.entries.DistinctChannels(ctx)
	if err != nil {
		return nil, err
	}
	users := s.roster.UsersFromChannels(channels)
	if len(users) > 0 {
		return users, nil
	}
	return s.entries.DistinctUsers(ctx)
}

// Reconcile computes submitted-vs-missing for the current period of t.
// Roster failures degrade to a submitters-only result with an empty missing
// list; they are never a hard error.
func (s *Service) Reconcile(ctx context.Context, t domain.Type) (domain.ReconcileResult, error) {
	now := s.now()
	from := domain.PeriodStart(t, now, s.loc)
	entries, err := s.entries.ListInWindow(ctx, t, from, now.UTC())
	if err != nil {
		return domain.ReconcileResult{}, err
	}
	result := domain.ReconcileResult{Summaries: domain.SummarizeByUser(entries)}

	channels, err := s.roster.BotChannels()
	if err != nil || len(channels) == 0 {
		if err != nil {
			s.log.Warn("bot channel listing failed, falling back to submission history", zap.Error(err))
		}
		channels, err = s.entries.DistinctChannels(ctx)
		if err != nil {
			s.log.Warn("channel fallback failed, reporting submitters only", zap.Error(err))
			return result, nil
		}
	}
	roster := s.roster.UsersFromChannels(channels)
	if len(roster) == 0 {
		return result, nil
	}

	submitted := make([]string, 0, len(result.Summaries))
	for _, u := range result.Summaries {
		submitted = append(submitted, u.UserID)
	}
	result.Missing = domain.MissingUsers(roster, submitted, s.Exempted())
	return result, nil
}

// MissingForChannel computes the missing-submitter list for one channel's
// membership, used by the follow-up job. An empty or failed roster yields an
// empty list.
func (s *Service) MissingForChannel(ctx context.Context, t domain.Type, channelID string) ([]string, error) {
	now := s.now()
	from := domain.PeriodStart(t, now, s.loc)
	entries, err := s.entries.ListInWindow(ctx, t, from, now.UTC())
	if err != nil {
		return nil, err
	}
	roster := s.roster.UsersFromChannels([]string{channelID})
	if len(roster) == 0 {
		return nil, nil
	}
	submitted := make([]string, 0, len(entries))
	for _, e := range entries {
		submitted = append(submitted, e.UserID)
	}
	return domain.MissingUsers(roster, submitted, s.Exempted()), nil
}
