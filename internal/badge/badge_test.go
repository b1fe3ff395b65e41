package badge

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"PushOrShame/internal/stats"
)

func TestDeriveFirstPush(t *testing.T) {
	set, earned := Derive(stats.Stats{TotalActiveDays: 1, CurrentStreak: 1, LongestStreak: 1}, nil)

	assert.Equal(t, []string{"first_push"}, earned)
	assert.Equal(t, Set{"first_push"}, set)
}

func TestDeriveIsIdempotent(t *testing.T) {
	s := stats.Stats{TotalActiveDays: 12, CurrentStreak: 7, LongestStreak: 7}

	first, earned := Derive(s, nil)
	assert.ElementsMatch(t, []string{"first_push", "streak_3", "streak_7", "total_10"}, earned)

	second, earnedAgain := Derive(s, first)
	assert.Equal(t, first, second)
	assert.Empty(t, earnedAgain)
}

func TestDeriveNeverShrinks(t *testing.T) {
	existing := Set{"month_20", "streak_30"}

	set, earned := Derive(stats.Stats{}, existing)

	assert.Empty(t, earned)
	assert.Equal(t, existing, set)
}

func TestComebackBadge(t *testing.T) {
	_, earned := Derive(stats.Stats{TotalActiveDays: 3, TotalInactiveDays: 1, CurrentStreak: 1, LongestStreak: 2}, Set{"first_push"})
	assert.Equal(t, []string{"comeback"}, earned)

	_, earned = Derive(stats.Stats{TotalActiveDays: 3, TotalInactiveDays: 1, CurrentStreak: 0, LongestStreak: 3}, Set{"first_push", "streak_3"})
	assert.Empty(t, earned)
}

func TestDeriveWithCustomTable(t *testing.T) {
	table := []Rule{{ID: "always", Predicate: func(stats.Stats) bool { return true }}}

	set, earned := DeriveWith(table, stats.Stats{}, Set{"legacy"})

	assert.Equal(t, []string{"always"}, earned)
	assert.Equal(t, Set{"always", "legacy"}, set)
}
