package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"PushOrShame/internal/model"
	pkgerrors "PushOrShame/pkg/errors"
)

// Store participants / daily_checks / daily_summaries / activity_signals 的读写入口
type Store struct {
	db *gorm.DB
}

func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

// CheckCommit 一次检查需要原子写入的内容。
// Participant 上已应用新的计数器、徽章和账本，Version 仍是读取时的版本
type CheckCommit struct {
	Participant *model.Participant
	Check       *model.DailyCheck
}

// ========== Participant ==========

func (s *Store) CreateParticipant(ctx context.Context, p *model.Participant) error {
	if err := s.db.WithContext(ctx).Create(p).Error; err != nil {
		return &pkgerrors.PersistenceError{Op: "create participant", Err: err}
	}
	return nil
}

// GetParticipant 按内部 ID 查询，不存在返回 pkgerrors.ParticipantNotFound
func (s *Store) GetParticipant(ctx context.Context, id int64) (*model.Participant, error) {
	return s.firstParticipant(ctx, "id = ?", id)
}

// GetParticipantByPublicID API 中的 participant_id 是 public_id
func (s *Store) GetParticipantByPublicID(ctx context.Context, publicID int64) (*model.Participant, error) {
	return s.firstParticipant(ctx, "public_id = ?", publicID)
}

// FindParticipantByHandle handle 需已规范化为小写
func (s *Store) FindParticipantByHandle(ctx context.Context, handle string) (*model.Participant, error) {
	return s.firstParticipant(ctx, "LOWER(github_handle) = ?", handle)
}

func (s *Store) firstParticipant(ctx context.Context, query string, arg interface{}) (*model.Participant, error) {
	var p model.Participant
	err := s.db.WithContext(ctx).Where(query, arg).Take(&p).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.ParticipantNotFound
		}
		return nil, fmt.Errorf("failed to query participant: %w", err)
	}
	return &p, nil
}

// ListEligibleParticipants 按 id 游标分页列出当日需要检查的参与者
func (s *Store) ListEligibleParticipants(ctx context.Context, afterID int64, limit int) ([]*model.Participant, error) {
	var list []*model.Participant
	err := s.db.WithContext(ctx).
		Where("id > ?", afterID).
		Where("status = ?", model.ParticipantStatusActive).
		Where("onboarding_completed = ?", true).
		Where("github_handle <> ''").
		Where("github_token_cipher IS NOT NULL").
		Where("(subscription_active = ? OR admin_exempt = ?)", true, true).
		Order("id ASC").
		Limit(limit).
		Find(&list).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list eligible participants: %w", err)
	}
	return list, nil
}

// ClearDeviceToken FCM 报告 token 失效时清空
func (s *Store) ClearDeviceToken(ctx context.Context, participantID int64, token string) error {
	return s.db.WithContext(ctx).Model(&model.Participant{}).
		Where("id = ? AND device_token = ?", participantID, token).
		Update("device_token", "").Error
}

// ========== DailyCheck ==========

// FindDailyCheck 未检查过返回 (nil, nil)
func (s *Store) FindDailyCheck(ctx context.Context, participantID int64, date string) (*model.DailyCheck, error) {
	var check model.DailyCheck
	err := s.db.WithContext(ctx).
		Where("participant_id = ? AND check_date = ?", participantID, date).
		Take(&check).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to query daily check: %w", err)
	}
	return &check, nil
}

// CommitCheck 在一个事务里条件插入 daily_checks 并按 version 更新参与者。
// 任一步输给并发写入者时返回 pkgerrors.ErrCheckConflict，事务整体回滚
func (s *Store) CommitCheck(ctx context.Context, c CheckCommit) error {
	if c.Participant == nil || c.Check == nil {
		return &pkgerrors.PersistenceError{Op: "commit check", Err: errors.New("incomplete commit")}
	}

	p := c.Participant
	expected := p.Version

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(c.Check)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return pkgerrors.ErrCheckConflict
		}

		p.Version = expected + 1
		res = tx.Model(p).
			Where("version = ?", expected).
			Select(model.StatsColumns).
			Updates(p)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return pkgerrors.ErrCheckConflict
		}
		return nil
	})
	if err != nil {
		p.Version = expected
		if pkgerrors.IsCheckConflict(err) {
			return pkgerrors.ErrCheckConflict
		}
		return &pkgerrors.PersistenceError{Op: "commit check", Err: err}
	}
	return nil
}

// ListDailyChecks 最近的检查记录，按日期倒序
func (s *Store) ListDailyChecks(ctx context.Context, participantID int64, limit int) ([]*model.DailyCheck, error) {
	var list []*model.DailyCheck
	err := s.db.WithContext(ctx).
		Where("participant_id = ?", participantID).
		Order("check_date DESC").
		Limit(limit).
		Find(&list).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list daily checks: %w", err)
	}
	return list, nil
}

// ========== DailySummary ==========

// GetDailySummary 不存在返回 (nil, nil)
func (s *Store) GetDailySummary(ctx context.Context, date string) (*model.DailySummary, error) {
	var summary model.DailySummary
	err := s.db.WithContext(ctx).Where("summary_date = ?", date).Take(&summary).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to query daily summary: %w", err)
	}
	return &summary, nil
}

// SaveDailySummary 按日期 upsert 计数，不覆盖汇总推文状态
func (s *Store) SaveDailySummary(ctx context.Context, summary *model.DailySummary) error {
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "summary_date"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"run_id", "eligible", "active", "inactive", "already_checked",
			"failed", "duration_millis", "updated_at",
		}),
	}).Create(summary).Error
	if err != nil {
		return &pkgerrors.PersistenceError{Op: "save daily summary", Err: err}
	}
	return nil
}

// ClaimSummaryPost 抢占当日汇总推文，返回 false 表示已经发过
func (s *Store) ClaimSummaryPost(ctx context.Context, date string) (bool, error) {
	res := s.db.WithContext(ctx).Model(&model.DailySummary{}).
		Where("summary_date = ? AND summary_post_sent = ?", date, false).
		Update("summary_post_sent", true)
	if res.Error != nil {
		return false, &pkgerrors.PersistenceError{Op: "claim summary post", Err: res.Error}
	}
	return res.RowsAffected == 1, nil
}

func (s *Store) SetSummaryPostID(ctx context.Context, date, postID string) error {
	return s.db.WithContext(ctx).Model(&model.DailySummary{}).
		Where("summary_date = ?", date).
		Update("summary_post_id", postID).Error
}

// ========== ActivitySignal ==========

// SaveActivitySignal 同一个 delivery 重复投递只保留一条，返回是否新写入
func (s *Store) SaveActivitySignal(ctx context.Context, signal *model.ActivitySignal) (bool, error) {
	res := s.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(signal)
	if res.Error != nil {
		return false, &pkgerrors.PersistenceError{Op: "save activity signal", Err: res.Error}
	}
	return res.RowsAffected == 1, nil
}

// SumActivitySignals 某 handle 某天 webhook 记录的提交数，没有信号时 found=false
func (s *Store) SumActivitySignals(ctx context.Context, handle, date string) (count int, found bool, err error) {
	var row struct {
		Signals int64
		Commits int64
	}
	err = s.db.WithContext(ctx).Model(&model.ActivitySignal{}).
		Select("COUNT(*) AS signals, COALESCE(SUM(commit_count), 0) AS commits").
		Where("github_handle = ? AND signal_date = ?", handle, date).
		Scan(&row).Error
	if err != nil {
		return 0, false, fmt.Errorf("failed to sum activity signals: %w", err)
	}
	return int(row.Commits), row.Signals > 0, nil
}
