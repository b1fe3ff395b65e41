package model

import "time"

// CheckTrigger 触发来源
type CheckTrigger string

const (
	CheckTriggerBatch CheckTrigger = "batch"
	CheckTriggerAdHoc CheckTrigger = "adhoc"
	CheckTriggerOps   CheckTrigger = "ops"
)

// ActivitySource 活动判定来源
type ActivitySource string

const (
	ActivitySourceVerifier ActivitySource = "verifier"
	ActivitySourceWebhook  ActivitySource = "webhook"
)

// DailyCheck 每人每天一条，幂等锚点，写入后不再修改
type DailyCheck struct {
	BaseModel
	ParticipantID     int64          `gorm:"not null;uniqueIndex:idx_daily_checks_participant_date,priority:1" json:"participant_id"`
	CheckDate         string         `gorm:"type:char(10);not null;uniqueIndex:idx_daily_checks_participant_date,priority:2;index:idx_daily_checks_date" json:"check_date"`
	Active            bool           `gorm:"not null" json:"active"`
	ActivityCount     int            `gorm:"not null;default:0" json:"activity_count"`
	ActivitySource    ActivitySource `gorm:"type:varchar(16);not null;default:'verifier'" json:"activity_source"`
	ShamePostSent     bool           `gorm:"not null;default:false" json:"shame_post_sent"`
	MilestonePostSent bool           `gorm:"not null;default:false" json:"milestone_post_sent"`
	MilestoneKind     string         `gorm:"type:varchar(16);not null;default:''" json:"milestone_kind,omitempty"`
	MilestoneValue    int            `gorm:"not null;default:0" json:"milestone_value,omitempty"`
	PostID            string         `gorm:"type:varchar(64);not null;default:''" json:"post_id,omitempty"`
	StreakAfter       int            `gorm:"not null;default:0" json:"streak_after"`
	Trigger           CheckTrigger   `gorm:"type:varchar(16);not null" json:"trigger"`
	CheckedAt         time.Time      `gorm:"not null" json:"checked_at"`
}

// TableName 指定表名
func (DailyCheck) TableName() string {
	return "daily_checks"
}

// HasMilestone 检查时是否检测到里程碑
func (c *DailyCheck) HasMilestone() bool {
	return c.MilestoneKind != "" && c.MilestoneValue > 0
}
