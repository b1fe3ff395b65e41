package stats

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestRecordActiveFirstEverCheck(t *testing.T) {
	got := RecordActive(Stats{}, day(2026, 1, 5))

	assert.Equal(t, 1, got.CurrentStreak)
	assert.Equal(t, 1, got.LongestStreak)
	assert.Equal(t, 1, got.CurrentMonthActive)
	assert.Equal(t, 1, got.TotalActiveDays)
	require.NotNil(t, got.LastActiveDate)
	require.NotNil(t, got.LastCheckedDate)
	assert.Equal(t, day(2026, 1, 5), *got.LastActiveDate)
	assert.Equal(t, day(2026, 1, 5), *got.LastCheckedDate)
}

func TestRecordActiveConsecutiveDay(t *testing.T) {
	last := day(2026, 1, 19)
	s := Stats{CurrentStreak: 6, LongestStreak: 6, TotalActiveDays: 10, CurrentMonthActive: 6, LastActiveDate: &last, LastCheckedDate: &last}

	got := RecordActive(s, day(2026, 1, 20))

	assert.Equal(t, 7, got.CurrentStreak)
	assert.Equal(t, 7, got.LongestStreak)
	assert.Equal(t, 11, got.TotalActiveDays)
	assert.Equal(t, 7, got.CurrentMonthActive)
}

func TestRecordActiveAfterGapRestartsStreak(t *testing.T) {
	lastActive := day(2026, 1, 10)
	lastChecked := day(2026, 1, 12)
	s := Stats{CurrentStreak: 0, LongestStreak: 4, LastActiveDate: &lastActive, LastCheckedDate: &lastChecked}

	got := RecordActive(s, day(2026, 1, 13))

	assert.Equal(t, 1, got.CurrentStreak)
	assert.Equal(t, 4, got.LongestStreak)
}

func TestRecordActiveIgnoresTimeOfDay(t *testing.T) {
	last := time.Date(2026, 1, 19, 23, 59, 0, 0, time.UTC)
	s := Stats{CurrentStreak: 2, LongestStreak: 2, LastActiveDate: &last, LastCheckedDate: &last}

	got := RecordActive(s, time.Date(2026, 1, 20, 0, 1, 0, 0, time.UTC))

	assert.Equal(t, 3, got.CurrentStreak)
	assert.Equal(t, day(2026, 1, 20), *got.LastActiveDate)
}

func TestRecordInactive(t *testing.T) {
	last := day(2026, 1, 19)
	s := Stats{CurrentStreak: 5, LongestStreak: 5, TotalActiveDays: 5, CurrentMonthActive: 5, LastActiveDate: &last, LastCheckedDate: &last}

	got := RecordInactive(s, day(2026, 1, 20))

	assert.Equal(t, 0, got.CurrentStreak)
	assert.GreaterOrEqual(t, got.LongestStreak, 5)
	assert.Equal(t, 1, got.TotalInactiveDays)
	assert.Equal(t, 1, got.CurrentMonthInactive)
	assert.Equal(t, 5, got.TotalActiveDays)
	assert.Equal(t, last, *got.LastActiveDate)
	assert.Equal(t, day(2026, 1, 20), *got.LastCheckedDate)
}

func TestActiveThenInactiveNextDayKeepsLongest(t *testing.T) {
	cases := []Stats{
		{},
		{CurrentStreak: 3, LongestStreak: 9, TotalActiveDays: 40},
		{CurrentStreak: 12, LongestStreak: 12, TotalActiveDays: 12, TotalInactiveDays: 3},
	}

	for _, s := range cases {
		if s.CurrentStreak > 0 {
			prev := day(2026, 4, 1)
			s.LastActiveDate = &prev
			s.LastCheckedDate = &prev
		}

		active := RecordActive(s, day(2026, 4, 2))
		inactive := RecordInactive(active, day(2026, 4, 3))

		assert.Equal(t, 0, inactive.CurrentStreak)
		assert.Equal(t, active.LongestStreak, inactive.LongestStreak)
		assert.GreaterOrEqual(t, inactive.LongestStreak, inactive.CurrentStreak)
	}
}

func TestMonthRollover(t *testing.T) {
	last := day(2026, 1, 31)
	s := Stats{
		CurrentMonthActive:   20,
		CurrentMonthInactive: 11,
		TotalActiveDays:      50,
		TotalInactiveDays:    30,
		CurrentStreak:        2,
		LongestStreak:        8,
		LastActiveDate:       &last,
		LastCheckedDate:      &last,
	}

	active := RecordActive(s, day(2026, 2, 1))
	assert.Equal(t, 1, active.CurrentMonthActive)
	assert.Equal(t, 0, active.CurrentMonthInactive)
	assert.Equal(t, 51, active.TotalActiveDays)
	assert.Equal(t, 30, active.TotalInactiveDays)
	assert.Equal(t, 3, active.CurrentStreak)

	inactive := RecordInactive(s, day(2026, 2, 1))
	assert.Equal(t, 0, inactive.CurrentMonthActive)
	assert.Equal(t, 1, inactive.CurrentMonthInactive)
	assert.Equal(t, 50, inactive.TotalActiveDays)
	assert.Equal(t, 31, inactive.TotalInactiveDays)
}

func TestYearRolloverSameMonthNumber(t *testing.T) {
	last := day(2025, 3, 15)
	s := Stats{CurrentMonthActive: 4, LastActiveDate: &last, LastCheckedDate: &last}

	got := RecordActive(s, day(2026, 3, 2))

	assert.Equal(t, 1, got.CurrentMonthActive)
	assert.Equal(t, 1, got.CurrentStreak)
}

func TestRecordDoesNotMutateInput(t *testing.T) {
	last := day(2026, 1, 1)
	s := Stats{CurrentStreak: 1, LongestStreak: 1, LastActiveDate: &last, LastCheckedDate: &last}

	_ = Record(s, day(2026, 1, 2), true)

	assert.Equal(t, 1, s.CurrentStreak)
	assert.Equal(t, day(2026, 1, 1), *s.LastActiveDate)
}
