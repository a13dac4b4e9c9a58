package store

import (
	"context"
	"errors"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/anshMconsultadd/timesheet-bot/internal/domain"
)

// GormRepo implements EntryRepo on a gorm-managed relational database.
// Production uses Postgres; tests construct it over in-memory SQLite.
type GormRepo struct{ db *gorm.DB }

// Open connects to Postgres with the given DSN and runs migrations.
func Open(dsn string) (*GormRepo, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
	})
	if err != nil {
		return nil, err
	}
	if err := Migrate(db); err != nil {
		return nil, err
	}
	return &GormRepo{db: db}, nil
}

// New wraps an already-open gorm handle. The caller is responsible for
// migrations.
func New(db *gorm.DB) *GormRepo { return &GormRepo{db: db} }

// Migrate applies the schema for all persisted models.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(&domain.TimesheetEntry{})
}

// Close releases the underlying connection pool.
func (r *GormRepo) Close() error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (r *GormRepo) Create(ctx context.Context, e *domain.TimesheetEntry) error {
	if e == nil {
		return errors.New("nil entry")
	}
	return r.db.WithContext(ctx).Create(e).Error
}

func (r *GormRepo) ListInWindow(ctx context.Context, t domain.Type, from, to time.Time) ([]domain.TimesheetEntry, error) {
	var entries []domain.TimesheetEntry
	err := r.db.WithContext(ctx).
		Where("timesheet_type = ? AND submission_date >= ? AND submission_date <= ?", t, from.UTC(), to.UTC()).
		Order("user_id, submission_date").
		Find(&entries).Error
	return entries, err
}

func (r *GormRepo) ListUserSince(ctx context.Context, userID string, t domain.Type, since time.Time) ([]domain.TimesheetEntry, error) {
	var entries []domain.TimesheetEntry
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND timesheet_type = ? AND submission_date >= ?", userID, t, since.UTC()).
		Order("submission_date").
		Find(&entries).Error
	return entries, err
}

func (r *GormRepo) LatestBatch(ctx context.Context, userID string, loc *time.Location) ([]domain.TimesheetEntry, error) {
	var newest domain.TimesheetEntry
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("submission_date DESC").
		First(&newest).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	// Next midnight is computed calendar-wise, not as +24h, so a DST
	// transition does not clip or stretch the batch window.
	local := newest.SubmissionDate.In(loc)
	dayStart := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc).UTC()
	dayEnd := time.Date(local.Year(), local.Month(), local.Day()+1, 0, 0, 0, 0, loc).UTC()

	var entries []domain.TimesheetEntry
	err = r.db.WithContext(ctx).
		Where("user_id = ? AND timesheet_type = ? AND submission_date >= ? AND submission_date < ?",
			userID, newest.Type, dayStart, dayEnd).
		Order("id").
		Find(&entries).Error
	return entries, err
}

func (r *GormRepo) Update(ctx context.Context, id uint, userID, clientName string, hours float64, at time.Time) (bool, error) {
	// Ownership is enforced in the WHERE clause; a non-owner simply matches
	// zero rows, which callers report as "not found".
	res := r.db.WithContext(ctx).
		Model(&domain.TimesheetEntry{}).
		Where("id = ? AND user_id = ?", id, userID).
		Updates(map[string]any{
			"client_name":     clientName,
			"hours":           hours,
			"submission_date": at.UTC(),
		})
	return res.RowsAffected > 0, res.Error
}

func (r *GormRepo) Delete(ctx context.Context, id uint, userID string) (bool, error) {
	res := r.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		Delete(&domain.TimesheetEntry{})
	return res.RowsAffected > 0, res.Error
}

func (r *GormRepo) AttachMessage(ctx context.Context, ids []uint, ts string) error {
	if len(ids) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Model(&domain.TimesheetEntry{}).
		Where("id IN ?", ids).
		Update("message_ts", ts).Error
}

func (r *GormRepo) DistinctChannels(ctx context.Context) ([]string, error) {
	var channels []string
	err := r.db.WithContext(ctx).
		Model(&domain.TimesheetEntry{}).
		Distinct("channel_id").
		Order("channel_id").
		Pluck("channel_id", &channels).Error
	return channels, err
}

func (r *GormRepo) DistinctUsers(ctx context.Context) ([]string, error) {
	var users []string
	err := r.db.WithContext(ctx).
		Model(&domain.TimesheetEntry{}).
		Distinct("user_id").
		Order("user_id").
		Pluck("user_id", &users).Error
	return users, err
}
