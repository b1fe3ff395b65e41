package service

import (
	"fmt"

	"PushOrShame/internal/milestone"
	"PushOrShame/internal/model"
	"PushOrShame/internal/stats"
	"PushOrShame/pkg/twitter"
)

// 帖子文案。所有文本在交给 Poster 前都经过 twitter.ValidateText

const hashtag = "#PushOrShame"

// ComposeShame 未提交日的公开"处刑"文案
func ComposeShame(p *model.Participant, after stats.Stats, dateKey string) (string, error) {
	name := displayName(p)
	var text string
	switch {
	case after.TotalInactiveDays <= 1:
		text = fmt.Sprintf("%s didn't push a single commit on %s. First strike. %s", name, dateKey, hashtag)
	case after.CurrentMonthInactive > 1:
		text = fmt.Sprintf("%s skipped GitHub again on %s. That's %d missed days this month. %s",
			name, dateKey, after.CurrentMonthInactive, hashtag)
	default:
		text = fmt.Sprintf("%s didn't push on %s. Missed days so far: %d. %s",
			name, dateKey, after.TotalInactiveDays, hashtag)
	}
	return text, twitter.ValidateText(text)
}

// ComposeMilestone 里程碑庆祝文案
func ComposeMilestone(p *model.Participant, m milestone.Milestone) (string, error) {
	name := displayName(p)
	var text string
	switch m.Kind {
	case milestone.KindStreak:
		text = fmt.Sprintf("%s has pushed code %d days in a row! Keep the streak alive. %s", name, m.Value, hashtag)
	case milestone.KindTotal:
		text = fmt.Sprintf("%s just reached %d total days of pushing code. %s", name, m.Value, hashtag)
	default:
		return "", fmt.Errorf("unknown milestone kind %q", m.Kind)
	}
	return text, twitter.ValidateText(text)
}

// ComposeSummary 服务账号发布的每日汇总
func ComposeSummary(summary *model.DailySummary) (string, error) {
	text := fmt.Sprintf("Daily report %s: %d of %d participants pushed code today, %d did not. %s",
		summary.SummaryDate, summary.Active, summary.Eligible, summary.Inactive, hashtag)
	return text, twitter.ValidateText(text)
}

func displayName(p *model.Participant) string {
	if p.XHandle != "" {
		return "@" + p.XHandle
	}
	if p.Nickname != "" {
		return p.Nickname
	}
	return p.GitHubHandle
}
