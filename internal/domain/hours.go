package domain

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	ErrEmptyHours    = errors.New("empty hours")
	ErrNegativeHours = errors.New("hours must be non-negative")
)

// ParseHours validates a submitted hours string. Anything that does not parse
// as a finite non-negative number is rejected so it never reaches storage.
func ParseHours(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, ErrEmptyHours
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("invalid hours %q: %w", s, err)
	}
	if d.IsNegative() {
		return 0, ErrNegativeHours
	}
	return d.InexactFloat64(), nil
}

// TotalHours sums entry hours exactly, avoiding float accumulation drift.
func TotalHours(entries []TimesheetEntry) decimal.Decimal {
	total := decimal.Zero
	for _, e := range entries {
		total = total.Add(decimal.NewFromFloat(e.Hours))
	}
	return total
}
