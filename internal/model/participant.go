package model

import (
	"time"

	"PushOrShame/internal/badge"
	"PushOrShame/internal/milestone"
	"PushOrShame/internal/stats"
)

// ParticipantStatus 参与者状态枚举
type ParticipantStatus string

const (
	ParticipantStatusOnboarding ParticipantStatus = "onboarding" // 尚未完成引导
	ParticipantStatusActive     ParticipantStatus = "active"
	ParticipantStatusSuspended  ParticipantStatus = "suspended"
)

// Participant 参与者模型，计数器、徽章和里程碑账本都挂在这一行上，
// 只能通过 repository 的乐观锁提交修改
type Participant struct {
	BaseModel
	PublicID int64             `gorm:"uniqueIndex;not null" json:"public_id"`
	Nickname string            `gorm:"type:varchar(64);not null;default:''" json:"nickname"`
	Status   ParticipantStatus `gorm:"type:varchar(16);not null;default:'onboarding';index:idx_participants_status" json:"status"`

	GitHubHandle      string `gorm:"column:github_handle;type:varchar(39);not null;default:'';index:idx_participants_github_handle" json:"github_handle"`
	GitHubTokenCipher []byte `gorm:"column:github_token_cipher" json:"-"`
	XHandle           string `gorm:"column:x_handle;type:varchar(32);not null;default:''" json:"x_handle"`
	XTokenCipher      []byte `gorm:"column:x_token_cipher" json:"-"`
	DeviceToken       string `gorm:"type:varchar(255);not null;default:''" json:"-"` // FCM token

	OnboardingCompleted bool `gorm:"not null;default:false" json:"onboarding_completed"`
	SubscriptionActive  bool `gorm:"not null;default:false" json:"subscription_active"`
	AdminExempt         bool `gorm:"not null;default:false" json:"admin_exempt"`

	// 计数器
	CurrentMonthActive   int        `gorm:"not null;default:0" json:"current_month_active"`
	CurrentMonthInactive int        `gorm:"not null;default:0" json:"current_month_inactive"`
	TotalActiveDays      int        `gorm:"not null;default:0" json:"total_active_days"`
	TotalInactiveDays    int        `gorm:"not null;default:0" json:"total_inactive_days"`
	CurrentStreak        int        `gorm:"not null;default:0" json:"current_streak"`
	LongestStreak        int        `gorm:"not null;default:0" json:"longest_streak"`
	LastActiveDate       *time.Time `gorm:"type:date" json:"last_active_date,omitempty"`
	LastCheckedDate      *time.Time `gorm:"type:date" json:"last_checked_date,omitempty"`

	Badges                    badge.Set     `gorm:"type:text;serializer:json" json:"badges"`
	AnnouncedStreakMilestones milestone.Set `gorm:"type:text;serializer:json" json:"announced_streak_milestones"`
	AnnouncedTotalMilestones  milestone.Set `gorm:"type:text;serializer:json" json:"announced_total_milestones"`

	Version int64 `gorm:"not null;default:0" json:"-"`
}

// TableName 指定表名
func (Participant) TableName() string {
	return "participants"
}

// Eligible 完成引导、绑定 GitHub、订阅有效或被管理员豁免
func (p *Participant) Eligible() bool {
	return p.Status == ParticipantStatusActive &&
		p.OnboardingCompleted &&
		p.ActivitySourceLinked() &&
		(p.SubscriptionActive || p.AdminExempt)
}

func (p *Participant) ActivitySourceLinked() bool {
	return p.GitHubHandle != "" && len(p.GitHubTokenCipher) > 0
}

func (p *Participant) Stats() stats.Stats {
	return stats.Stats{
		CurrentMonthActive:   p.CurrentMonthActive,
		CurrentMonthInactive: p.CurrentMonthInactive,
		TotalActiveDays:      p.TotalActiveDays,
		TotalInactiveDays:    p.TotalInactiveDays,
		CurrentStreak:        p.CurrentStreak,
		LongestStreak:        p.LongestStreak,
		LastActiveDate:       p.LastActiveDate,
		LastCheckedDate:      p.LastCheckedDate,
	}
}

func (p *Participant) ApplyStats(s stats.Stats) {
	p.CurrentMonthActive = s.CurrentMonthActive
	p.CurrentMonthInactive = s.CurrentMonthInactive
	p.TotalActiveDays = s.TotalActiveDays
	p.TotalInactiveDays = s.TotalInactiveDays
	p.CurrentStreak = s.CurrentStreak
	p.LongestStreak = s.LongestStreak
	p.LastActiveDate = s.LastActiveDate
	p.LastCheckedDate = s.LastCheckedDate
}

func (p *Participant) Ledger() milestone.Ledger {
	return milestone.Ledger{
		Streak: p.AnnouncedStreakMilestones.Normalize(),
		Total:  p.AnnouncedTotalMilestones.Normalize(),
	}
}

func (p *Participant) ApplyLedger(l milestone.Ledger) {
	p.AnnouncedStreakMilestones = l.Streak
	p.AnnouncedTotalMilestones = l.Total
}

// StatsColumns 一次检查提交时需要更新的列
var StatsColumns = []string{
	"current_month_active",
	"current_month_inactive",
	"total_active_days",
	"total_inactive_days",
	"current_streak",
	"longest_streak",
	"last_active_date",
	"last_checked_date",
	"badges",
	"announced_streak_milestones",
	"announced_total_milestones",
	"version",
	"updated_at",
}
