package model

// NotificationMessage 推送任务消息
type NotificationMessage struct {
	MessageID     string            `json:"message_id"` // 消息唯一ID，用于幂等性检查
	Category      string            `json:"category"`   // realtime_push, check_result
	ParticipantID int64             `json:"participant_id"`
	DeviceToken   string            `json:"device_token"`
	Title         string            `json:"title"`
	Body          string            `json:"body"`
	Data          map[string]string `json:"data,omitempty"`
	CheckDate     string            `json:"check_date,omitempty"`
}

const (
	NotificationCategoryRealtimePush = "realtime_push"
	NotificationCategoryCheckResult  = "check_result"
)

// EventMessage 事件消息（用于事件总线）
type EventMessage struct {
	MessageID  string                 `json:"message_id"`
	Payload    map[string]interface{} `json:"payload"`
	EventKey   string                 `json:"event_key"`
	EventType  string                 `json:"event_type"`
	OccurredAt string                 `json:"occurred_at"`
}

const EventTypeCheckCompleted = "check.completed"

// CheckCompletedEvent 一次检查提交成功后发布
type CheckCompletedEvent struct {
	MessageID         string   `json:"message_id"`
	ParticipantID     int64    `json:"participant_id"`
	CheckDate         string   `json:"check_date"`
	Active            bool     `json:"active"`
	ActivityCount     int      `json:"activity_count"`
	CurrentStreak     int      `json:"current_streak"`
	ShamePostSent     bool     `json:"shame_post_sent"`
	MilestoneKind     string   `json:"milestone_kind,omitempty"`
	MilestoneValue    int      `json:"milestone_value,omitempty"`
	MilestonePostSent bool     `json:"milestone_post_sent"`
	NewBadges         []string `json:"new_badges,omitempty"`
	Trigger           string   `json:"trigger"`
	OccurredAt        string   `json:"occurred_at"`
}
