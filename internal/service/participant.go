package service

import (
	"context"
	"errors"
	"strconv"

	"go.uber.org/zap"

	"PushOrShame/internal/model"
	"PushOrShame/internal/model/dto"
	pkgerrors "PushOrShame/pkg/errors"
	"PushOrShame/pkg/logger"
	"PushOrShame/utils"
)

const (
	defaultHistoryLimit = 30
	maxHistoryLimit     = 100
)

type ParticipantStore interface {
	GetParticipantByPublicID(ctx context.Context, publicID int64) (*model.Participant, error)
	ListDailyChecks(ctx context.Context, participantID int64, limit int) ([]*model.DailyCheck, error)
}

// StatsCache 由 cache.ProtectedCache 实现
type StatsCache interface {
	Get(ctx context.Context, key string, dest interface{}) (hit bool, empty bool, err error)
	Set(ctx context.Context, key string, value interface{}) error
	Delete(ctx context.Context, key string) error
}

// ParticipantService 参与者自己的统计与历史读取
type ParticipantService struct {
	store ParticipantStore
	cache StatsCache
}

func NewParticipantService(store ParticipantStore, cache StatsCache) *ParticipantService {
	return &ParticipantService{store: store, cache: cache}
}

// ParsePublicID API 中的 participant_id 是 public_id 的十进制字符串
func ParsePublicID(raw string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, pkgerrors.InvalidParticipantID
	}
	return id, nil
}

// GetStats 读缓存，未命中回源并写回
func (s *ParticipantService) GetStats(ctx context.Context, publicID int64) (*dto.ParticipantStatsData, error) {
	key := strconv.FormatInt(publicID, 10)

	if s.cache != nil {
		var cached dto.ParticipantStatsData
		hit, empty, err := s.cache.Get(ctx, key, &cached)
		if err != nil {
			logger.Logger.Warn("Failed to read stats cache", zap.Int64("public_id", publicID), zap.Error(err))
		} else if hit {
			if empty {
				return nil, pkgerrors.ParticipantNotFound
			}
			return &cached, nil
		}
	}

	p, err := s.store.GetParticipantByPublicID(ctx, publicID)
	if err != nil {
		if errors.Is(err, pkgerrors.ParticipantNotFound) && s.cache != nil {
			_ = s.cache.Set(ctx, key, nil)
		}
		return nil, err
	}

	data := StatsData(p)
	if s.cache != nil {
		if err := s.cache.Set(ctx, key, data); err != nil {
			logger.Logger.Warn("Failed to write stats cache", zap.Int64("public_id", publicID), zap.Error(err))
		}
	}
	return data, nil
}

// Invalidate 检查提交后调用
func (s *ParticipantService) Invalidate(ctx context.Context, p *model.Participant) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, strconv.FormatInt(p.PublicID, 10)); err != nil {
		logger.Logger.Warn("Failed to invalidate stats cache", zap.Int64("public_id", p.PublicID), zap.Error(err))
	}
}

func (s *ParticipantService) GetHistory(ctx context.Context, publicID int64, limit int) (*dto.CheckHistoryData, error) {
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}

	p, err := s.store.GetParticipantByPublicID(ctx, publicID)
	if err != nil {
		return nil, err
	}
	checks, err := s.store.ListDailyChecks(ctx, p.ID, limit)
	if err != nil {
		return nil, err
	}

	items := make([]dto.CheckHistoryItem, 0, len(checks))
	for _, c := range checks {
		items = append(items, dto.CheckHistoryItem{
			CheckedAt:       c.CheckedAt,
			Date:            c.CheckDate,
			Trigger:         string(c.Trigger),
			Source:          string(c.ActivitySource),
			MilestoneKind:   c.MilestoneKind,
			Active:          c.Active,
			ActivityCount:   c.ActivityCount,
			StreakAfter:     c.StreakAfter,
			MilestoneValue:  c.MilestoneValue,
			ShamePosted:     c.ShamePostSent,
			MilestonePosted: c.MilestonePostSent,
		})
	}
	return &dto.CheckHistoryData{Items: items}, nil
}

func StatsData(p *model.Participant) *dto.ParticipantStatsData {
	data := &dto.ParticipantStatsData{
		PublicID:                  strconv.FormatInt(p.PublicID, 10),
		Nickname:                  p.Nickname,
		GitHubHandle:              p.GitHubHandle,
		XHandle:                   p.XHandle,
		Badges:                    append([]string{}, p.Badges...),
		AnnouncedStreakMilestones: append([]int{}, p.AnnouncedStreakMilestones...),
		AnnouncedTotalMilestones:  append([]int{}, p.AnnouncedTotalMilestones...),
		CurrentMonthActive:        p.CurrentMonthActive,
		CurrentMonthInactive:      p.CurrentMonthInactive,
		TotalActiveDays:           p.TotalActiveDays,
		TotalInactiveDays:         p.TotalInactiveDays,
		CurrentStreak:             p.CurrentStreak,
		LongestStreak:             p.LongestStreak,
		Eligible:                  p.Eligible(),
	}
	if p.LastActiveDate != nil {
		data.LastActiveDate = utils.DateKey(*p.LastActiveDate)
	}
	if p.LastCheckedDate != nil {
		data.LastCheckedDate = utils.DateKey(*p.LastCheckedDate)
	}
	return data
}

// ResultData 把编排结果转换为 API 输出
func ResultData(res *CheckResult) *dto.CheckResultData {
	data := &dto.CheckResultData{
		Date:            res.Date,
		Outcome:         string(res.Outcome),
		Active:          res.Active,
		ActivityCount:   res.ActivityCount,
		Source:          string(res.Source),
		CurrentStreak:   res.Stats.CurrentStreak,
		ShamePosted:     res.Shame.Sent,
		MilestonePosted: res.Celebration.Sent,
		NewBadges:       res.NewBadges,
	}
	if res.Milestone != nil {
		data.MilestoneKind = string(res.Milestone.Kind)
		data.MilestoneValue = res.Milestone.Value
	}
	if res.Err != nil && !res.Outcome.Terminal() {
		data.Message = res.Err.Error()
	}
	return data
}
