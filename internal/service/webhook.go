package service

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"PushOrShame/internal/model"
	"PushOrShame/internal/model/dto"
	pkgerrors "PushOrShame/pkg/errors"
	"PushOrShame/pkg/logger"
	"PushOrShame/utils"
)

const (
	GitHubEventPush = "push"
	GitHubEventPing = "ping"
)

type SignalStore interface {
	SaveActivitySignal(ctx context.Context, signal *model.ActivitySignal) (bool, error)
	FindParticipantByHandle(ctx context.Context, handle string) (*model.Participant, error)
}

// PushMarker 每人每天一条实时推送
type PushMarker interface {
	TryMark(ctx context.Context, date string, participantID int64) (bool, error)
	Unmark(ctx context.Context, date string, participantID int64) error
}

type NotificationPublisher interface {
	PublishNotification(ctx context.Context, msg *model.NotificationMessage) error
}

// pushPayload GitHub push 事件中用到的字段
type pushPayload struct {
	Ref        string `json:"ref"`
	Deleted    bool   `json:"deleted"`
	Repository struct {
		FullName string `json:"full_name"`
	} `json:"repository"`
	Sender struct {
		Login string `json:"login"`
	} `json:"sender"`
	Commits []struct {
		ID string `json:"id"`
	} `json:"commits"`
}

// WebhookService 接收 GitHub push，留下活动信号供下一次检查使用
type WebhookService struct {
	store     SignalStore
	marker    PushMarker
	publisher NotificationPublisher
	now       func() time.Time
}

func NewWebhookService(store SignalStore, marker PushMarker, publisher NotificationPublisher) *WebhookService {
	return &WebhookService{store: store, marker: marker, publisher: publisher, now: time.Now}
}

// Handle 按事件类型分发，签名校验在 handler 层完成
func (s *WebhookService) Handle(ctx context.Context, event, deliveryID string, payload []byte) (*dto.WebhookAck, error) {
	if deliveryID == "" {
		deliveryID = uuid.NewString()
	}
	ack := &dto.WebhookAck{Event: event, Delivery: deliveryID}

	switch event {
	case GitHubEventPing:
		ack.Status = "pong"
		return ack, nil
	case GitHubEventPush:
		status, err := s.handlePush(ctx, deliveryID, payload)
		if err != nil {
			return nil, err
		}
		ack.Status = status
		return ack, nil
	default:
		ack.Status = "ignored"
		return ack, nil
	}
}

func (s *WebhookService) handlePush(ctx context.Context, deliveryID string, payload []byte) (string, error) {
	var push pushPayload
	if err := json.Unmarshal(payload, &push); err != nil {
		return "", pkgerrors.WebhookPayloadInvalid
	}
	handle := utils.NormalizeHandle(push.Sender.Login)
	if handle == "" {
		return "", pkgerrors.WebhookPayloadInvalid
	}
	// 删除分支或空推送不算活动
	if push.Deleted || len(push.Commits) == 0 {
		return "ignored", nil
	}

	p, err := s.store.FindParticipantByHandle(ctx, handle)
	if err != nil {
		if errors.Is(err, pkgerrors.ParticipantNotFound) {
			logger.Logger.Debug("Push from unknown handle ignored", zap.String("handle", handle))
			return "ignored", nil
		}
		return "", err
	}

	now := s.now()
	date := utils.DateKey(utils.CivilDate(now))

	inserted, err := s.store.SaveActivitySignal(ctx, &model.ActivitySignal{
		DeliveryID:   deliveryID,
		GitHubHandle: handle,
		SignalDate:   date,
		CommitCount:  len(push.Commits),
		Repository:   push.Repository.FullName,
		PushedAt:     now,
		CreatedAt:    now,
	})
	if err != nil {
		return "", err
	}
	if !inserted {
		return "duplicate", nil
	}

	logger.Logger.Info("Activity signal stored",
		zap.Int64("participant_id", p.ID),
		zap.String("signal_date", date),
		zap.Int("commit_count", len(push.Commits)),
	)

	s.notify(ctx, p, date, push.Repository.FullName)
	return "stored", nil
}

// notify 尽力而为，失败时释放当日额度
func (s *WebhookService) notify(ctx context.Context, p *model.Participant, date, repo string) {
	if p.DeviceToken == "" || s.marker == nil || s.publisher == nil {
		return
	}

	first, err := s.marker.TryMark(ctx, date, p.ID)
	if err != nil {
		logger.Logger.Warn("Failed to mark realtime push", zap.Int64("participant_id", p.ID), zap.Error(err))
		return
	}
	if !first {
		return
	}

	msg := &model.NotificationMessage{
		Category:      model.NotificationCategoryRealtimePush,
		ParticipantID: p.ID,
		DeviceToken:   p.DeviceToken,
		Title:         "Push received",
		Body:          "Today's push to " + repo + " is counted. You're safe for " + date + ".",
		Data: map[string]string{
			"check_date":     date,
			"participant_id": strconv.FormatInt(p.PublicID, 10),
		},
		CheckDate: date,
	}
	if err := s.publisher.PublishNotification(ctx, msg); err != nil {
		logger.Logger.Warn("Failed to publish realtime push", zap.Int64("participant_id", p.ID), zap.Error(err))
		_ = s.marker.Unmark(ctx, date, p.ID)
	}
}
