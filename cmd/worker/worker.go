package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"PushOrShame/config"
	"PushOrShame/internal/queue"
	"PushOrShame/internal/service"
	"PushOrShame/pkg/logger"
	"PushOrShame/pkg/otel"
	"PushOrShame/pkg/push"
	"PushOrShame/pkg/snowflake"
	"PushOrShame/storage"
)

func main() {
	logger.Init()
	defer logger.Sync()

	if err := config.Validate(); err != nil {
		logger.Logger.Fatal("Invalid configuration", zap.Error(err))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		sig := <-sigChan
		logger.Logger.Info("Received shutdown signal",
			zap.String("signal", sig.String()),
		)
		cancel()
	}()

	shutdownOtel, err := otel.Setup(ctx, "worker")
	if err != nil {
		logger.Logger.Fatal("Failed to initialize OpenTelemetry", zap.Error(err))
	}
	defer func() {
		if err := shutdownOtel(context.Background()); err != nil {
			logger.Logger.Warn("Failed to shutdown OpenTelemetry", zap.Error(err))
		}
	}()

	if err := storage.Init(); err != nil {
		logger.Logger.Fatal("Failed to initialize storage", zap.Error(err))
	}
	defer storage.Close()

	if err := snowflake.Init(config.Cfg.SnowflakeMachineID, config.Cfg.SnowflakeDataCenter); err != nil {
		logger.Logger.Fatal("Failed to initialize snowflake", zap.Error(err))
	}

	// 未配置 FCM 时退化为只写日志
	var notifier push.Notifier = push.LogNotifier{}
	fcm, err := push.NewFCMNotifier(ctx, config.Cfg.FCMCredentialsJSON, config.Cfg.FCMCredentialsFile)
	if err != nil {
		logger.Logger.Warn("FCM notifier disabled, push notifications will be logged only", zap.Error(err))
	} else {
		notifier = fcm
	}

	logger.Logger.Info("Worker service starting",
		zap.String("service", config.Cfg.ServiceName+"-worker"),
		zap.String("environment", config.Cfg.Environment),
	)

	queue.NewConsumer(notifier, service.Store()).StartAllConsumers(ctx)

	logger.Logger.Info("Worker service shutting down gracefully")
}
