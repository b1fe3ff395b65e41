package queue

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"PushOrShame/internal/model"
	"PushOrShame/pkg/logger"
	"PushOrShame/pkg/snowflake"
	"PushOrShame/storage/mq"
)

// publish 测试中替换
var publish = mq.PublishMessage

// Publisher 以接口形式提供给 service 层
type Publisher struct{}

func (Publisher) PublishCheckCompleted(ctx context.Context, event *model.CheckCompletedEvent) error {
	return PublishCheckCompleted(ctx, event)
}

func (Publisher) PublishNotification(ctx context.Context, msg *model.NotificationMessage) error {
	return PublishNotification(ctx, msg)
}

// PublishCheckCompleted 发布检查完成事件
func PublishCheckCompleted(ctx context.Context, event *model.CheckCompletedEvent) error {
	if event.MessageID == "" {
		id, err := snowflake.NextMessageID()
		if err != nil {
			logger.Logger.Error("Failed to generate message ID",
				zap.Int64("participant_id", event.ParticipantID),
				zap.Error(err),
			)
			return fmt.Errorf("failed to generate message ID: %w", err)
		}
		event.MessageID = "check_completed_" + id
	}
	if event.OccurredAt == "" {
		event.OccurredAt = time.Now().Format(time.RFC3339)
	}

	if err := publish(ctx, mq.ExchangeEvents, mq.RoutingKeyCheckCompleted, event); err != nil {
		logger.Logger.Error("Failed to publish check completed event",
			zap.String("message_id", event.MessageID),
			zap.Int64("participant_id", event.ParticipantID),
			zap.String("check_date", event.CheckDate),
			zap.Error(err),
		)
		return err
	}

	logger.Logger.Debug("Published check completed event",
		zap.String("message_id", event.MessageID),
		zap.Int64("participant_id", event.ParticipantID),
		zap.String("check_date", event.CheckDate),
	)
	return nil
}

// PublishNotification 发布推送任务
func PublishNotification(ctx context.Context, msg *model.NotificationMessage) error {
	if msg.MessageID == "" {
		id, err := snowflake.NextMessageID()
		if err != nil {
			logger.Logger.Error("Failed to generate message ID",
				zap.Int64("participant_id", msg.ParticipantID),
				zap.Error(err),
			)
			return fmt.Errorf("failed to generate message ID: %w", err)
		}
		msg.MessageID = "notification_" + msg.Category + "_" + id
	}

	if err := publish(ctx, mq.ExchangeNotification, mq.RoutingKeyNotificationPush, msg); err != nil {
		logger.Logger.Error("Failed to publish notification",
			zap.String("message_id", msg.MessageID),
			zap.Int64("participant_id", msg.ParticipantID),
			zap.String("category", msg.Category),
			zap.Error(err),
		)
		return err
	}

	logger.Logger.Info("Published notification",
		zap.String("message_id", msg.MessageID),
		zap.Int64("participant_id", msg.ParticipantID),
		zap.String("category", msg.Category),
	)
	return nil
}
