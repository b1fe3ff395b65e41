package model

// DailySummary 批处理的当日汇总，按日期 upsert
type DailySummary struct {
	BaseModel
	SummaryDate     string `gorm:"type:char(10);not null;uniqueIndex" json:"summary_date"`
	RunID           int64  `gorm:"not null;default:0" json:"run_id"`
	Eligible        int    `gorm:"not null;default:0" json:"eligible"`
	Active          int    `gorm:"not null;default:0" json:"active"`
	Inactive        int    `gorm:"not null;default:0" json:"inactive"`
	AlreadyChecked  int    `gorm:"not null;default:0" json:"already_checked"`
	Failed          int    `gorm:"not null;default:0" json:"failed"`
	DurationMillis  int64  `gorm:"not null;default:0" json:"duration_millis"`
	SummaryPostSent bool   `gorm:"not null;default:false" json:"summary_post_sent"`
	SummaryPostID   string `gorm:"type:varchar(64);not null;default:''" json:"summary_post_id,omitempty"`
}

// TableName 指定表名
func (DailySummary) TableName() string {
	return "daily_summaries"
}
