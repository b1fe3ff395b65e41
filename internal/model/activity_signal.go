package model

import "time"

// ActivitySignal GitHub push webhook 留下的活动信号，下一次检查据此跳过 API 查询
type ActivitySignal struct {
	ID           int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	DeliveryID   string    `gorm:"type:varchar(64);not null;uniqueIndex" json:"delivery_id"`
	GitHubHandle string    `gorm:"column:github_handle;type:varchar(39);not null;index:idx_activity_signals_handle_date,priority:1" json:"github_handle"`
	SignalDate   string    `gorm:"type:char(10);not null;index:idx_activity_signals_handle_date,priority:2" json:"signal_date"`
	CommitCount  int       `gorm:"not null;default:0" json:"commit_count"`
	Repository   string    `gorm:"type:varchar(255);not null;default:''" json:"repository"`
	PushedAt     time.Time `gorm:"not null" json:"pushed_at"`
	CreatedAt    time.Time `gorm:"not null" json:"created_at"`
}

// TableName 指定表名
func (ActivitySignal) TableName() string {
	return "activity_signals"
}
