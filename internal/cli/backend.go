package cli

import (
	"context"
	"strconv"
	"sync"
	"time"

	"PushOrShame/config"
	"PushOrShame/internal/model"
	"PushOrShame/internal/schedule"
	"PushOrShame/internal/service"
	"PushOrShame/pkg/snowflake"
	"PushOrShame/pkg/token"
	"PushOrShame/storage"
)

// Backend 命令依赖的操作，测试里用假实现替换
type Backend interface {
	CheckParticipant(ctx context.Context, publicID int64, date time.Time) (*service.CheckResult, error)
	RunBatch(ctx context.Context, date time.Time) (*schedule.BatchReport, error)
	IssueToken(publicID int64, ttl time.Duration) (string, time.Time, error)
}

// LiveBackend 首次使用时才连接存储，token 命令不需要数据库
type LiveBackend struct {
	initOnce sync.Once
	initErr  error
	ready    bool
}

func (b *LiveBackend) ensureStorage() error {
	b.initOnce.Do(func() {
		if err := storage.Init(); err != nil {
			b.initErr = err
			return
		}
		b.ready = true
		b.initErr = snowflake.Init(config.Cfg.SnowflakeMachineID, config.Cfg.SnowflakeDataCenter)
	})
	return b.initErr
}

// Close 只关闭已经建立的连接
func (b *LiveBackend) Close() {
	if b.ready {
		storage.Close()
	}
}

func (b *LiveBackend) CheckParticipant(ctx context.Context, publicID int64, date time.Time) (*service.CheckResult, error) {
	if err := b.ensureStorage(); err != nil {
		return nil, err
	}
	p, err := service.Store().GetParticipantByPublicID(ctx, publicID)
	if err != nil {
		return nil, err
	}
	return service.Check().Check(ctx, service.CheckRequest{
		ParticipantID: p.ID,
		Date:          date,
		Trigger:       model.CheckTriggerOps,
		Finalize:      true,
	}), nil
}

func (b *LiveBackend) RunBatch(ctx context.Context, date time.Time) (*schedule.BatchReport, error) {
	if err := b.ensureStorage(); err != nil {
		return nil, err
	}
	return schedule.GetScheduler().RunDailyBatch(ctx, date, model.CheckTriggerOps)
}

func (b *LiveBackend) IssueToken(publicID int64, ttl time.Duration) (string, time.Time, error) {
	if err := token.Init(); err != nil {
		return "", time.Time{}, err
	}
	return token.GenerateAccessToken(strconv.FormatInt(publicID, 10), ttl)
}
