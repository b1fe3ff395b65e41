package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"PushOrShame/config"
	"PushOrShame/internal/model"
	"PushOrShame/internal/schedule"
	pkgerrors "PushOrShame/pkg/errors"
	"PushOrShame/pkg/logger"
	"PushOrShame/pkg/otel"
	"PushOrShame/pkg/snowflake"
	"PushOrShame/storage"
	"PushOrShame/utils"
)

func main() {
	logger.Init()
	defer logger.Sync()

	if err := config.Validate(); err != nil {
		logger.Logger.Fatal("Invalid configuration", zap.Error(err))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		logger.Logger.Info("Scheduler received shutdown signal",
			zap.String("signal", sig.String()),
		)
		cancel()
	}()

	shutdownOtel, err := otel.Setup(ctx, "scheduler")
	if err != nil {
		logger.Logger.Fatal("Failed to initialize OpenTelemetry", zap.Error(err))
	}
	defer func() {
		if err := shutdownOtel(context.Background()); err != nil {
			logger.Logger.Warn("Failed to shutdown OpenTelemetry", zap.Error(err))
		}
	}()

	// 批处理会发布 check.completed 事件，需要 MQ
	if err := storage.Init(); err != nil {
		logger.Logger.Fatal("Failed to initialize storage for scheduler", zap.Error(err))
	}
	defer storage.Close()

	if err := snowflake.Init(config.Cfg.SnowflakeMachineID, config.Cfg.SnowflakeDataCenter); err != nil {
		logger.Logger.Fatal("Failed to initialize snowflake for scheduler", zap.Error(err))
	}

	logger.Logger.Info("Scheduler service starting",
		zap.String("service", config.Cfg.ServiceName+"-scheduler"),
		zap.String("environment", config.Cfg.Environment),
		zap.String("batch_run_at", config.Cfg.BatchRunAt),
	)

	runDailyBatchLoop(ctx)

	logger.Logger.Info("Scheduler service shutting down gracefully")
}

// runDailyBatchLoop 每天在参与者时区的 BATCH_RUN_AT 对刚结束的前一天执行一次批处理
func runDailyBatchLoop(ctx context.Context) {
	s := schedule.GetScheduler()
	timeout := time.Duration(config.Cfg.BatchTimeoutMinutes) * time.Minute

	// development 环境下每 1 分钟执行一次，方便本地调试
	if config.Cfg.IsDevelopment() {
		ticker := time.NewTicker(1 * time.Minute)
		defer ticker.Stop()

		logger.Logger.Info("Daily batch running in development mode with 1m interval")

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				runOnce(ctx, s, timeout)
			}
		}
	}

	hour, minute, _ := config.Cfg.BatchClock()
	for {
		now := time.Now()
		next := utils.NextClock(now, hour, minute)
		delay := time.Until(next)
		logger.Logger.Info("Scheduled next daily batch",
			zap.Time("now", now),
			zap.Time("next_run", next),
			zap.Duration("delay", delay),
		)

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
			runOnce(ctx, s, timeout)
		}
	}
}

func runOnce(ctx context.Context, s *schedule.CheckScheduler, timeout time.Duration) {
	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	date := utils.YesterdayWindow(time.Now()).Date
	_, err := s.RunDailyBatch(runCtx, date, model.CheckTriggerBatch)
	switch {
	case err == nil:
	case errors.Is(err, pkgerrors.BatchAlreadyRunning):
		logger.Logger.Info("Daily batch skipped, already running", zap.String("date", utils.DateKey(date)))
	default:
		logger.Logger.Error("Daily batch run failed", zap.String("date", utils.DateKey(date)), zap.Error(err))
	}
}
