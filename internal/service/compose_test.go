package service

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"PushOrShame/internal/milestone"
	"PushOrShame/internal/model"
	"PushOrShame/internal/stats"
)

func TestComposeShame(t *testing.T) {
	p := &model.Participant{Nickname: "octo", XHandle: "octo_x"}

	text, err := ComposeShame(p, stats.Stats{TotalInactiveDays: 1, CurrentMonthInactive: 1}, "2026-01-20")
	require.NoError(t, err)
	assert.Contains(t, text, "@octo_x")
	assert.Contains(t, text, "First strike")

	text, err = ComposeShame(p, stats.Stats{TotalInactiveDays: 4, CurrentMonthInactive: 3}, "2026-01-20")
	require.NoError(t, err)
	assert.Contains(t, text, "3 missed days this month")
}

func TestComposeMilestone(t *testing.T) {
	p := &model.Participant{GitHubHandle: "octocat"}

	text, err := ComposeMilestone(p, milestone.Milestone{Kind: milestone.KindStreak, Value: 30})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(text, "octocat has pushed code 30 days in a row"))

	text, err = ComposeMilestone(p, milestone.Milestone{Kind: milestone.KindTotal, Value: 50})
	require.NoError(t, err)
	assert.Contains(t, text, "50 total days")

	_, err = ComposeMilestone(p, milestone.Milestone{Kind: "weird", Value: 1})
	assert.Error(t, err)
}

func TestComposeSummary(t *testing.T) {
	text, err := ComposeSummary(&model.DailySummary{SummaryDate: "2026-01-20", Eligible: 12, Active: 9, Inactive: 3})
	require.NoError(t, err)
	assert.Contains(t, text, "9 of 12")
}
