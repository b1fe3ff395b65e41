package cache

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"PushOrShame/storage/redis"
)

const (
	messageProcessedPrefix = "message:processed"
	realtimePushPrefix     = "push:realtime"

	processedTTL = 48 * time.Hour
	// 覆盖任意时区下的一整天
	dailyMarkerTTL = 36 * time.Hour
)

// TryMarkMessageProcessing 尝试原子性地标记消息正在处理（使用 SETNX）
// 返回 true 表示成功标记（首次处理），false 表示已被标记（重复消息或正在处理）
func TryMarkMessageProcessing(ctx context.Context, messageID string, ttl time.Duration) (bool, error) {
	key := redis.Key(messageProcessedPrefix, messageID)
	if ttl <= 0 {
		ttl = processedTTL
	}

	result, err := redis.Client().SetNX(ctx, key, "processing", ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to mark message as processing: %w", err)
	}
	return result, nil
}

// UnmarkMessageProcessing 取消消息处理标记（处理失败时调用，允许重试）
func UnmarkMessageProcessing(ctx context.Context, messageID string) error {
	key := redis.Key(messageProcessedPrefix, messageID)
	return redis.Client().Del(ctx, key).Err()
}

// MarkMessageProcessed 标记消息已处理，延长 TTL
func MarkMessageProcessed(ctx context.Context, messageID string, ttl time.Duration) error {
	key := redis.Key(messageProcessedPrefix, messageID)
	if ttl <= 0 {
		ttl = processedTTL
	}
	return redis.Client().Set(ctx, key, "completed", ttl).Err()
}

// TryMarkRealtimePush 每个参与者每天最多一条实时推送，返回 true 表示本次可以推送
func TryMarkRealtimePush(ctx context.Context, date string, participantID int64) (bool, error) {
	key := redis.Key(realtimePushPrefix, date, strconv.FormatInt(participantID, 10))

	result, err := redis.Client().SetNX(ctx, key, "1", dailyMarkerTTL).Result()
	if err != nil {
		return false, fmt.Errorf("failed to mark realtime push: %w", err)
	}
	return result, nil
}

// UnmarkRealtimePush 推送投递失败时释放当日额度
func UnmarkRealtimePush(ctx context.Context, date string, participantID int64) error {
	key := redis.Key(realtimePushPrefix, date, strconv.FormatInt(participantID, 10))
	return redis.Client().Del(ctx, key).Err()
}

// RealtimePushMarker 以接口形式提供实时推送标记
type RealtimePushMarker struct{}

func (RealtimePushMarker) TryMark(ctx context.Context, date string, participantID int64) (bool, error) {
	return TryMarkRealtimePush(ctx, date, participantID)
}

func (RealtimePushMarker) Unmark(ctx context.Context, date string, participantID int64) error {
	return UnmarkRealtimePush(ctx, date, participantID)
}
