package queue

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"

	"PushOrShame/internal/cache"
	"PushOrShame/internal/model"
	"PushOrShame/pkg/errors"
	"PushOrShame/pkg/logger"
	"PushOrShame/pkg/metrics"
	"PushOrShame/pkg/push"
	"PushOrShame/storage/mq"
)

// ParticipantReader 消费者查设备 token 用
type ParticipantReader interface {
	GetParticipant(ctx context.Context, id int64) (*model.Participant, error)
	ClearDeviceToken(ctx context.Context, participantID int64, token string) error
}

type Consumer struct {
	notifier     push.Notifier
	participants ParticipantReader
}

func NewConsumer(notifier push.Notifier, participants ParticipantReader) *Consumer {
	return &Consumer{notifier: notifier, participants: participants}
}

// HandleNotification 处理 notification.push：按 MessageID 去重后发送 FCM
func (c *Consumer) HandleNotification(ctx context.Context, body []byte) error {
	var msg model.NotificationMessage
	if err := json.Unmarshal(body, &msg); err != nil {
		return &errors.SkipMessageError{Reason: fmt.Sprintf("invalid notification message: %v", err)}
	}

	return c.once(ctx, msg.MessageID, func() error {
		return c.send(ctx, msg.Category, msg.ParticipantID, msg.DeviceToken, push.Notification{
			Title: msg.Title,
			Body:  msg.Body,
			Data:  msg.Data,
		})
	})
}

// HandleCheckCompleted 处理 events.check.completed：把检查结果推给参与者
func (c *Consumer) HandleCheckCompleted(ctx context.Context, body []byte) error {
	var event model.CheckCompletedEvent
	if err := json.Unmarshal(body, &event); err != nil {
		return &errors.SkipMessageError{Reason: fmt.Sprintf("invalid check completed event: %v", err)}
	}

	return c.once(ctx, event.MessageID, func() error {
		p, err := c.participants.GetParticipant(ctx, event.ParticipantID)
		if err != nil {
			if stderrors.Is(err, errors.ParticipantNotFound) {
				return &errors.SkipMessageError{Reason: "participant gone"}
			}
			return err
		}
		if p.DeviceToken == "" {
			return &errors.SkipMessageError{Reason: "no device token"}
		}

		title, text := checkResultText(&event)
		return c.send(ctx, model.NotificationCategoryCheckResult, p.ID, p.DeviceToken, push.Notification{
			Title: title,
			Body:  text,
			Data: map[string]string{
				"check_date":     event.CheckDate,
				"active":         strconv.FormatBool(event.Active),
				"current_streak": strconv.Itoa(event.CurrentStreak),
			},
		})
	})
}

// once 消息级幂等：SETNX 占位，失败时释放以便重投
func (c *Consumer) once(ctx context.Context, messageID string, fn func() error) error {
	if messageID != "" {
		first, err := cache.TryMarkMessageProcessing(ctx, messageID, 24*time.Hour)
		if err != nil {
			logger.Logger.Warn("Failed to check message processed status",
				zap.String("message_id", messageID),
				zap.Error(err),
			)
		} else if !first {
			return &errors.SkipMessageError{Reason: fmt.Sprintf("Message %s already processed", messageID)}
		}
	}

	if err := fn(); err != nil {
		if messageID != "" && !errors.IsSkipMessageError(err) {
			_ = cache.UnmarkMessageProcessing(ctx, messageID)
		}
		return err
	}

	if messageID != "" {
		if err := cache.MarkMessageProcessed(ctx, messageID, 48*time.Hour); err != nil {
			logger.Logger.Warn("Failed to mark message as processed",
				zap.String("message_id", messageID),
				zap.Error(err),
			)
		}
	}
	return nil
}

func (c *Consumer) send(ctx context.Context, category string, participantID int64, token string, n push.Notification) error {
	if token == "" {
		return &errors.SkipMessageError{Reason: "no device token"}
	}
	n.DeviceToken = token

	id, err := c.notifier.Send(ctx, n)
	metrics.Get().RecordNotification(ctx, category, err)
	if err != nil {
		if stderrors.Is(err, push.ErrTokenNotRegistered) {
			if clearErr := c.participants.ClearDeviceToken(ctx, participantID, token); clearErr != nil {
				logger.Logger.Warn("Failed to clear device token",
					zap.Int64("participant_id", participantID),
					zap.Error(clearErr),
				)
			}
			return &errors.SkipMessageError{Reason: "device token not registered"}
		}
		return fmt.Errorf("failed to send push: %w", err)
	}

	logger.Logger.Info("Push sent",
		zap.Int64("participant_id", participantID),
		zap.String("category", category),
		zap.String("push_id", id),
	)
	return nil
}

func checkResultText(e *model.CheckCompletedEvent) (string, string) {
	switch {
	case e.Active && e.MilestoneValue > 0 && e.MilestoneKind == "streak":
		return "Milestone reached", fmt.Sprintf("%d days in a row. Your streak is public now.", e.MilestoneValue)
	case e.Active && e.MilestoneValue > 0:
		return "Milestone reached", fmt.Sprintf("%d total days of pushing code.", e.MilestoneValue)
	case e.Active:
		return "Pushed today", fmt.Sprintf("Streak: %d days. See you tomorrow.", e.CurrentStreak)
	case e.ShamePostSent:
		return "You got shamed", fmt.Sprintf("No push on %s. The internet knows.", e.CheckDate)
	default:
		return "Missed a day", fmt.Sprintf("No push on %s. Your streak is back to 0.", e.CheckDate)
	}
}

// StartAllConsumers 启动所有消费者，阻塞到全部退出
func (c *Consumer) StartAllConsumers(ctx context.Context) {
	var wg sync.WaitGroup

	consumers := []mq.ConsumeOptions{
		{Queue: mq.QueueNotificationPush, ConsumerTag: "notification_push_consumer", PrefetchCount: 10, Handler: c.HandleNotification},
		{Queue: mq.QueueCheckCompleted, ConsumerTag: "check_completed_consumer", PrefetchCount: 20, Handler: c.HandleCheckCompleted},
	}

	for _, opts := range consumers {
		wg.Add(1)
		go func(opts mq.ConsumeOptions) {
			defer wg.Done()

			logger.Logger.Info("Starting consumer", zap.String("queue", opts.Queue))

			// 通道断开后等待重连再消费
			for {
				err := mq.Consume(ctx, opts)
				if ctx.Err() != nil {
					return
				}
				logger.Logger.Error("Consumer exited with error",
					zap.String("queue", opts.Queue),
					zap.Error(err),
				)
				select {
				case <-ctx.Done():
					return
				case <-time.After(5 * time.Second):
				}
			}
		}(opts)
	}

	wg.Wait()
	logger.Logger.Info("All consumers stopped")
}
