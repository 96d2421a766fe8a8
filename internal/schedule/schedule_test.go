package schedule

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"postpilot/internal/models"
)

func TestNormalizeDisplayRoundTrip(t *testing.T) {
	cases := []struct {
		date string
		time string
	}{
		{"2026-01-15", "09:30"},
		{"2026-06-30", "23:59"},
		{"2026-12-31", "00:00"},
		{"2027-02-28", "12:00"},
	}

	for _, tc := range cases {
		got, err := Normalize(tc.date, tc.time)
		require.NoError(t, err)

		dateStr, timeStr := Display(got)
		assert.Equal(t, tc.date, dateStr)
		assert.Equal(t, tc.time, timeStr)
	}
}

// The round trip must hold regardless of the timezone of the process that
// re-reads the stored value. A reader in Tokyo and a reader in New York
// both display the wall-clock the user picked.
func TestRoundTripIndependentOfReaderZone(t *testing.T) {
	stored, err := Normalize("2026-03-10", "18:45")
	require.NoError(t, err)

	tokyo, err := time.LoadLocation("Asia/Tokyo")
	require.NoError(t, err)

	rereadInTokyo := stored.In(tokyo)
	dateStr, timeStr := Display(rereadInTokyo)
	assert.Equal(t, "2026-03-10", dateStr)
	assert.Equal(t, "18:45", timeStr)
}

// The stored value is deliberately not a faithful instant: the user's real
// offset is discarded. A user at UTC+9 picking 18:45 gets a stored value
// nine hours later than the true instant they meant. Due-ness comparisons
// only line up when both sides go through Now() from this package.
func TestNaiveConventionDiscardsRealOffset(t *testing.T) {
	tokyo, err := time.LoadLocation("Asia/Tokyo")
	require.NoError(t, err)

	stored, err := Normalize("2026-03-10", "18:45")
	require.NoError(t, err)

	trueInstant := time.Date(2026, 3, 10, 18, 45, 0, 0, tokyo)
	assert.Equal(t, 9*time.Hour, stored.Sub(trueInstant.UTC()))
	assert.NotEqual(t, trueInstant.UTC(), stored)
}

func TestNormalizeRejectsMalformedInput(t *testing.T) {
	cases := []struct {
		date string
		time string
	}{
		{"2026/01/15", "09:30"},
		{"2026-01-15", "9.30"},
		{"yesterday", "09:30"},
		{"2026-01-15", ""},
		{"", ""},
	}

	for _, tc := range cases {
		_, err := Normalize(tc.date, tc.time)
		require.Error(t, err)

		var verr *models.ValidationError
		assert.ErrorAs(t, err, &verr)
	}
}

func TestValidateLeadTime(t *testing.T) {
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

	t.Run("30 seconds ahead is below the 1 minute floor", func(t *testing.T) {
		err := ValidateLeadTime(now.Add(30*time.Second), now)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "at least 1 minute")
	})

	t.Run("2 minutes ahead is accepted", func(t *testing.T) {
		assert.NoError(t, ValidateLeadTime(now.Add(2*time.Minute), now))
	})

	t.Run("exactly at the floor is accepted", func(t *testing.T) {
		assert.NoError(t, ValidateLeadTime(now.Add(MinLeadTime), now))
	})

	t.Run("past times are rejected", func(t *testing.T) {
		require.Error(t, ValidateLeadTime(now.Add(-time.Hour), now))
	})

	t.Run("beyond a year is rejected naming the ceiling", func(t *testing.T) {
		err := ValidateLeadTime(now.Add(MaxLeadTime+time.Hour), now)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "at most 1 year")
	})
}

func TestIsAtLeastInFuture(t *testing.T) {
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

	assert.True(t, IsAtLeastInFuture(now.Add(time.Minute), now, time.Minute))
	assert.True(t, IsAtLeastInFuture(now.Add(2*time.Minute), now, time.Minute))
	assert.False(t, IsAtLeastInFuture(now.Add(59*time.Second), now, time.Minute))
	assert.False(t, IsAtLeastInFuture(now.Add(-time.Second), now, time.Minute))
}
