package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Type is the reporting cadence of a timesheet entry.
type Type string

const (
	Weekly  Type = "weekly"
	Monthly Type = "monthly"
)

// Valid reports whether t is a known timesheet type.
func (t Type) Valid() bool {
	return t == Weekly || t == Monthly
}

// TimesheetEntry is one (client, hours) work record tied to a user, channel
// and period type. SubmissionDate is refreshed on edit; CreatedAt is not.
// Timestamps are stored in UTC.
type TimesheetEntry struct {
	ID             uint      `gorm:"primaryKey"`
	UserID         string    `gorm:"size:50;not null;index"`
	Username       string    `gorm:"size:100;not null"` // display snapshot, not normalized
	ChannelID      string    `gorm:"size:50;not null;index"`
	ClientName     string    `gorm:"size:200;not null"`
	Hours          float64   `gorm:"not null"`
	MessageTS      string    `gorm:"column:message_ts;size:50"` // channel post carrying this batch, empty when posting failed
	Type           Type      `gorm:"column:timesheet_type;size:20;not null;default:weekly;index"`
	SubmissionDate time.Time `gorm:"not null;index"`
	CreatedAt      time.Time
}

// TableName keeps the table name stable across gorm pluralization rules.
func (TimesheetEntry) TableName() string { return "timesheet_entries" }

// EntryInput is one raw submitted form row before validation.
type EntryInput struct {
	Client string
	Hours  string
}

// UserSummary aggregates one user's entries for a reporting period.
type UserSummary struct {
	UserID   string
	Username string
	Entries  []TimesheetEntry // ordered by submission date
	Total    decimal.Decimal
}
