package dto

import "time"

// ========== Check 相关 DTO ==========

// CheckResultData 单日检查结果
type CheckResultData struct {
	Date            string   `json:"date"`
	Outcome         string   `json:"outcome"`
	Active          bool     `json:"active"`
	ActivityCount   int      `json:"activity_count"`
	Source          string   `json:"source,omitempty"`
	CurrentStreak   int      `json:"current_streak"`
	MilestoneKind   string   `json:"milestone_kind,omitempty"`
	MilestoneValue  int      `json:"milestone_value,omitempty"`
	ShamePosted     bool     `json:"shame_posted"`
	MilestonePosted bool     `json:"milestone_posted"`
	NewBadges       []string `json:"new_badges,omitempty"`
	Message         string   `json:"message,omitempty"`
}

// AdHocCheckResponse 手动触发：先补昨天，再查今天
type AdHocCheckResponse struct {
	Yesterday *CheckResultData `json:"yesterday,omitempty"`
	Today     *CheckResultData `json:"today"`
}

// CheckHistoryQuery 历史查询参数
type CheckHistoryQuery struct {
	Limit int `query:"limit"`
}

type CheckHistoryItem struct {
	CheckedAt       time.Time `json:"checked_at"`
	Date            string    `json:"date"`
	Trigger         string    `json:"trigger"`
	Source          string    `json:"source"`
	MilestoneKind   string    `json:"milestone_kind,omitempty"`
	Active          bool      `json:"active"`
	ActivityCount   int       `json:"activity_count"`
	StreakAfter     int       `json:"streak_after"`
	MilestoneValue  int       `json:"milestone_value,omitempty"`
	ShamePosted     bool      `json:"shame_posted"`
	MilestonePosted bool      `json:"milestone_posted"`
}

type CheckHistoryData struct {
	Items []CheckHistoryItem `json:"items"`
}

// ========== Participant 相关 DTO ==========

// ParticipantStatsData 统计快照，会被缓存
type ParticipantStatsData struct {
	LastActiveDate            string   `json:"last_active_date,omitempty"`
	LastCheckedDate           string   `json:"last_checked_date,omitempty"`
	PublicID                  string   `json:"participant_id"`
	Nickname                  string   `json:"nickname"`
	GitHubHandle              string   `json:"github_handle"`
	XHandle                   string   `json:"x_handle,omitempty"`
	Badges                    []string `json:"badges"`
	AnnouncedStreakMilestones []int    `json:"announced_streak_milestones"`
	AnnouncedTotalMilestones  []int    `json:"announced_total_milestones"`
	CurrentMonthActive        int      `json:"current_month_active"`
	CurrentMonthInactive      int      `json:"current_month_inactive"`
	TotalActiveDays           int      `json:"total_active_days"`
	TotalInactiveDays         int      `json:"total_inactive_days"`
	CurrentStreak             int      `json:"current_streak"`
	LongestStreak             int      `json:"longest_streak"`
	Eligible                  bool     `json:"eligible"`
}

// ========== Webhook 相关 DTO ==========

type WebhookAck struct {
	Event    string `json:"event"`
	Status   string `json:"status"` // stored, duplicate, ignored, pong
	Delivery string `json:"delivery"`
}
