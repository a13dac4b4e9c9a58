package store

import (
	"context"
	"time"

	"github.com/anshMconsultadd/timesheet-bot/internal/domain"
)

// EntryRepo defines storage operations for timesheet entries.
type EntryRepo interface {
	Create(ctx context.Context, e *domain.TimesheetEntry) error
	// ListInWindow returns entries of the given type with a submission date in
	// [from, to], ordered by user then submission date. The upper bound is
	// inclusive so a reconcile at time T sees entries submitted at T.
	ListInWindow(ctx context.Context, t domain.Type, from, to time.Time) ([]domain.TimesheetEntry, error)
	// ListUserSince returns one user's entries of the given type since the cutoff.
	ListUserSince(ctx context.Context, userID string, t domain.Type, since time.Time) ([]domain.TimesheetEntry, error)
	// LatestBatch returns the user's most recent submission batch: all entries
	// sharing the type and local calendar day of the user's newest entry.
	LatestBatch(ctx context.Context, userID string, loc *time.Location) ([]domain.TimesheetEntry, error)
	// Update rewrites client/hours for an entry owned by userID and refreshes
	// the submission date. Returns false when no owned entry matched.
	Update(ctx context.Context, id uint, userID, clientName string, hours float64, at time.Time) (bool, error)
	// Delete removes an entry owned by userID. Returns false when no owned
	// entry matched.
	Delete(ctx context.Context, id uint, userID string) (bool, error)
	// AttachMessage stamps the channel post timestamp onto a batch of entries.
	AttachMessage(ctx context.Context, ids []uint, ts string) error
	// DistinctChannels lists channels that have submission history.
	DistinctChannels(ctx context.Context) ([]string, error)
	// DistinctUsers lists users that have submission history.
	DistinctUsers(ctx context.Context) ([]string, error)
	Close() error
}

// ExemptionRepo manages the set of users excluded from missing-submitter
// calculations.
type ExemptionRepo interface {
	List() ([]string, error)
	// Add returns false if the user was already exempted.
	Add(userID string) (bool, error)
	// Remove returns false if the user was not exempted.
	Remove(userID string) (bool, error)
}
