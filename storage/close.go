package storage

import (
	"context"
	"time"

	"go.uber.org/zap"

	"PushOrShame/pkg/logger"
	"PushOrShame/storage/database"
	"PushOrShame/storage/mq"
	"PushOrShame/storage/redis"
)

// Close 按 MQ -> Redis -> Database 的顺序关闭：先停止消息，再断开缓存，最后关库
func Close() {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	logger.Logger.Info("Closing storage connections...")

	closers := []struct {
		name  string
		close func(context.Context) error
	}{
		{"rabbitmq", mq.Close},
		{"redis", redis.Close},
		{"postgres", database.Close},
	}

	for _, c := range closers {
		if err := c.close(ctx); err != nil {
			logger.Logger.Error("Failed to close storage connection", zap.String("storage", c.name), zap.Error(err))
			continue
		}
		logger.Logger.Info("Storage connection closed", zap.String("storage", c.name))
	}
}
