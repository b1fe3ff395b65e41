package schedule

// 每日批处理：分页扫描合格参与者，逐个调用检查编排，汇总当日结果

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"PushOrShame/config"
	"PushOrShame/internal/cache"
	"PushOrShame/internal/model"
	"PushOrShame/internal/service"
	pkgerrors "PushOrShame/pkg/errors"
	"PushOrShame/pkg/logger"
	"PushOrShame/pkg/metrics"
	"PushOrShame/pkg/snowflake"
	"PushOrShame/utils"
)

const (
	batchLockPrefix = "batch:"
	maxCatchUpDays  = 3
)

type BatchStore interface {
	ListEligibleParticipants(ctx context.Context, afterID int64, limit int) ([]*model.Participant, error)
	SaveDailySummary(ctx context.Context, summary *model.DailySummary) error
	ClaimSummaryPost(ctx context.Context, date string) (bool, error)
	SetSummaryPostID(ctx context.Context, date, postID string) error
}

type SummaryPoster interface {
	Post(ctx context.Context, credential, text string) (string, error)
}

// BatchOptions 为零的字段取配置默认值
type BatchOptions struct {
	PageSize         int
	Concurrency      int
	LockTTL          time.Duration
	SummaryThreshold int
	ServiceToken     string
	PostTimeout      time.Duration
}

// BatchFailure 单个参与者的失败，不影响其他人
type BatchFailure struct {
	ParticipantID int64  `json:"participant_id"`
	Date          string `json:"date"`
	Outcome       string `json:"outcome"`
	Error         string `json:"error"`
}

type BatchReport struct {
	RunID          int64          `json:"run_id"`
	Date           string         `json:"date"`
	Trigger        string         `json:"trigger"`
	Eligible       int            `json:"eligible"`
	Active         int            `json:"active"`
	Inactive       int            `json:"inactive"`
	AlreadyChecked int            `json:"already_checked"`
	Failed         int            `json:"failed"`
	CaughtUp       int            `json:"caught_up"`
	Failures       []BatchFailure `json:"failures,omitempty"`
	SummaryPosted  bool           `json:"summary_posted"`
	SummaryPostID  string         `json:"summary_post_id,omitempty"`
	Duration       time.Duration  `json:"duration"`
}

var (
	schedulerOnce sync.Once
	schedulerInst *CheckScheduler
)

type CheckScheduler struct {
	logger  *zap.Logger
	store   BatchStore
	checker service.Checker
	poster  SummaryPoster
	locker  service.Locker
	opts    BatchOptions
	running atomic.Bool
	newID   func() (int64, error)
	now     func() time.Time
}

// GetScheduler 进程内单例，依赖 storage 已经 Init
func GetScheduler() *CheckScheduler {
	schedulerOnce.Do(func() {
		schedulerInst = NewCheckScheduler(service.Store(), service.Check(), service.XClient(), cache.RedisLocker{}, BatchOptions{})
	})
	return schedulerInst
}

func NewCheckScheduler(store BatchStore, checker service.Checker, poster SummaryPoster, locker service.Locker, opts BatchOptions) *CheckScheduler {
	if opts.PageSize <= 0 {
		opts.PageSize = config.Cfg.BatchPageSize
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = config.Cfg.BatchConcurrency
	}
	if opts.LockTTL <= 0 {
		opts.LockTTL = time.Duration(config.Cfg.BatchTimeoutMinutes) * time.Minute
	}
	if opts.SummaryThreshold <= 0 {
		opts.SummaryThreshold = config.Cfg.SummaryPostThreshold
	}
	if opts.ServiceToken == "" {
		opts.ServiceToken = config.Cfg.XServiceAccessToken
	}
	if opts.PostTimeout <= 0 {
		opts.PostTimeout = config.Cfg.PostTimeout()
	}
	return &CheckScheduler{
		logger:  logger.Logger,
		store:   store,
		checker: checker,
		poster:  poster,
		locker:  locker,
		opts:    opts,
		newID:   snowflake.NextID,
		now:     time.Now,
	}
}

// RunDailyBatch 对已经结束的 date 执行一次全量检查。
// 同一进程内不重入，跨进程由按日期的 Redis 锁互斥；重复运行是安全的，
// 已提交的参与者会直接得到 AlreadyChecked
func (s *CheckScheduler) RunDailyBatch(ctx context.Context, date time.Time, trigger model.CheckTrigger) (*BatchReport, error) {
	date = utils.DateOnly(date)
	dateKey := utils.DateKey(date)

	if window := utils.WindowFor(date); !window.Closed(s.now()) {
		s.logger.Warn("Refusing to run batch for a day that has not ended",
			zap.String("date", dateKey),
			zap.Time("window_end", window.End),
		)
		return nil, pkgerrors.CheckDateInvalid
	}

	if !s.running.CompareAndSwap(false, true) {
		s.logger.Info("Batch already running in this process, skipping")
		return nil, pkgerrors.BatchAlreadyRunning
	}
	defer s.running.Store(false)

	if s.locker != nil {
		release, ok, err := s.locker.TryLock(ctx, batchLockPrefix+dateKey, s.opts.LockTTL)
		if err != nil {
			return nil, fmt.Errorf("failed to acquire batch lock: %w", err)
		}
		if !ok {
			s.logger.Info("Batch lock held by another process, skipping", zap.String("date", dateKey))
			return nil, pkgerrors.BatchAlreadyRunning
		}
		defer release()
	}

	runID, err := s.newID()
	if err != nil {
		s.logger.Error("Failed to generate batch run ID", zap.Error(err))
		return nil, fmt.Errorf("failed to generate batch run ID: %w", err)
	}

	startTime := time.Now()
	report := &BatchReport{RunID: runID, Date: dateKey, Trigger: string(trigger)}

	s.logger.Info("Starting daily batch",
		zap.Int64("run_id", runID),
		zap.String("date", dateKey),
		zap.String("trigger", string(trigger)),
	)

	var mu sync.Mutex
	var g errgroup.Group
	g.SetLimit(s.opts.Concurrency)

	var afterID int64
	var listErr error
	for ctx.Err() == nil {
		page, err := s.store.ListEligibleParticipants(ctx, afterID, s.opts.PageSize)
		if err != nil {
			listErr = err
			break
		}
		if len(page) == 0 {
			break
		}

		for _, p := range page {
			if ctx.Err() != nil {
				break
			}
			participant := p
			g.Go(func() error {
				res, caughtUp := s.checkOne(ctx, participant, date, trigger)
				mu.Lock()
				report.CaughtUp += caughtUp
				report.tally(res)
				mu.Unlock()
				return nil
			})
		}

		afterID = page[len(page)-1].ID
		if len(page) < s.opts.PageSize {
			break
		}
	}
	_ = g.Wait()

	report.Duration = time.Since(startTime)
	metrics.Get().RecordBatch(ctx, report.Duration, report.Eligible, report.Failed)

	if listErr != nil {
		s.logger.Error("Failed to list eligible participants",
			zap.Int64("run_id", runID),
			zap.Int64("after_id", afterID),
			zap.Error(listErr),
		)
		return report, fmt.Errorf("failed to list eligible participants: %w", listErr)
	}
	if err := ctx.Err(); err != nil {
		s.logger.Warn("Daily batch interrupted",
			zap.Int64("run_id", runID),
			zap.Int("processed", report.Eligible),
			zap.Error(err),
		)
		return report, err
	}

	if err := s.saveSummary(ctx, report); err != nil {
		return report, err
	}
	s.postSummary(ctx, report)

	s.logger.Info("Daily batch completed",
		zap.Int64("run_id", runID),
		zap.String("date", dateKey),
		zap.Int("eligible", report.Eligible),
		zap.Int("active", report.Active),
		zap.Int("inactive", report.Inactive),
		zap.Int("already_checked", report.AlreadyChecked),
		zap.Int("failed", report.Failed),
		zap.Int("caught_up", report.CaughtUp),
		zap.Duration("duration", report.Duration),
	)
	return report, nil
}

// checkOne 单个参与者的 panic 也只算这个人失败。
// 最后检查日之后还有没有结论的日期（上次验证失败等）时按顺序先补检，
// 补检没有结论就不提交 date，否则那些日期会变成过期日期，再也无法重试
func (s *CheckScheduler) checkOne(ctx context.Context, p *model.Participant, date time.Time, trigger model.CheckTrigger) (res *service.CheckResult, caughtUp int) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("Panic while checking participant",
				zap.Int64("participant_id", p.ID),
				zap.Any("panic", r),
				zap.Stack("stack"),
			)
			res = &service.CheckResult{
				Outcome:       service.OutcomePersistenceFailed,
				ParticipantID: p.ID,
				Date:          utils.DateKey(date),
				Err:           fmt.Errorf("panic: %v", r),
			}
			caughtUp = 0
		}
	}()

	if p.LastCheckedDate != nil {
		from := utils.DateOnly(*p.LastCheckedDate).AddDate(0, 0, 1)
		// 长时间不合格的参与者只补最近几天
		if earliest := date.AddDate(0, 0, -maxCatchUpDays); from.Before(earliest) {
			from = earliest
		}
		for day := from; day.Before(date); day = day.AddDate(0, 0, 1) {
			prev := s.checker.Check(ctx, service.CheckRequest{
				ParticipantID: p.ID,
				Date:          day,
				Trigger:       trigger,
				Finalize:      true,
			})
			if !prev.Outcome.Terminal() && prev.Outcome != service.OutcomeRejected {
				s.logger.Warn("Catch-up check did not finish, skipping run date",
					zap.Int64("participant_id", p.ID),
					zap.String("catch_up_date", utils.DateKey(day)),
					zap.String("outcome", string(prev.Outcome)),
					zap.Error(prev.Err),
				)
				return prev, caughtUp
			}
			if prev.Outcome == service.OutcomeCompleted {
				caughtUp++
			}
		}
	}

	res = s.checker.Check(ctx, service.CheckRequest{
		ParticipantID: p.ID,
		Date:          date,
		Trigger:       trigger,
		Finalize:      true,
	})
	return res, caughtUp
}

func (r *BatchReport) tally(res *service.CheckResult) {
	r.Eligible++
	switch res.Outcome {
	case service.OutcomeCompleted, service.OutcomeAlreadyChecked:
		if res.Outcome == service.OutcomeAlreadyChecked {
			r.AlreadyChecked++
		}
		if res.Active {
			r.Active++
		} else {
			r.Inactive++
		}
	default:
		r.Failed++
		failure := BatchFailure{ParticipantID: res.ParticipantID, Date: res.Date, Outcome: string(res.Outcome)}
		if res.Err != nil {
			failure.Error = res.Err.Error()
		}
		r.Failures = append(r.Failures, failure)
	}
}

func (s *CheckScheduler) saveSummary(ctx context.Context, report *BatchReport) error {
	summary := &model.DailySummary{
		SummaryDate:    report.Date,
		RunID:          report.RunID,
		Eligible:       report.Eligible,
		Active:         report.Active,
		Inactive:       report.Inactive,
		AlreadyChecked: report.AlreadyChecked,
		Failed:         report.Failed,
		DurationMillis: report.Duration.Milliseconds(),
	}
	if err := s.store.SaveDailySummary(ctx, summary); err != nil {
		s.logger.Error("Failed to save daily summary", zap.String("date", report.Date), zap.Error(err))
		return &pkgerrors.PersistenceError{Op: "save daily summary", Err: err}
	}
	return nil
}

// postSummary 每个日期最多一次，先占位再发帖，发帖失败不回滚占位
func (s *CheckScheduler) postSummary(ctx context.Context, report *BatchReport) {
	if report.Eligible <= s.opts.SummaryThreshold || s.poster == nil || s.opts.ServiceToken == "" {
		return
	}

	claimed, err := s.store.ClaimSummaryPost(ctx, report.Date)
	if err != nil {
		s.logger.Warn("Failed to claim summary post", zap.String("date", report.Date), zap.Error(err))
		return
	}
	if !claimed {
		return
	}

	text, err := service.ComposeSummary(&model.DailySummary{
		SummaryDate: report.Date,
		Eligible:    report.Eligible,
		Active:      report.Active,
		Inactive:    report.Inactive,
	})
	if err != nil {
		s.logger.Warn("Summary text invalid", zap.String("date", report.Date), zap.Error(err))
		return
	}

	postCtx, cancel := context.WithTimeout(ctx, s.opts.PostTimeout)
	defer cancel()
	postID, err := s.poster.Post(postCtx, s.opts.ServiceToken, text)
	metrics.Get().RecordPost(ctx, "summary", err == nil)
	if err != nil {
		s.logger.Warn("Failed to post daily summary", zap.String("date", report.Date), zap.Error(err))
		return
	}

	report.SummaryPosted = true
	report.SummaryPostID = postID
	if err := s.store.SetSummaryPostID(ctx, report.Date, postID); err != nil {
		s.logger.Warn("Failed to record summary post ID", zap.String("date", report.Date), zap.Error(err))
	}
}
