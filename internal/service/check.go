package service

import (
	"context"
	stderrors "errors"
	"strconv"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"PushOrShame/internal/badge"
	"PushOrShame/internal/milestone"
	"PushOrShame/internal/model"
	"PushOrShame/internal/repository"
	"PushOrShame/internal/stats"
	pkgerrors "PushOrShame/pkg/errors"
	"PushOrShame/pkg/logger"
	"PushOrShame/pkg/metrics"
	"PushOrShame/utils"
)

// Outcome 一次检查最终落在哪个分支
type Outcome string

const (
	OutcomeAlreadyChecked     Outcome = "already_checked"
	OutcomeCompleted          Outcome = "completed"
	OutcomeVerificationFailed Outcome = "verification_failed"
	OutcomePersistenceFailed  Outcome = "persistence_failed"

	// 以下三种不写任何记录，稍后可以再触发
	OutcomePending    Outcome = "pending"     // 当天未结束且还没有提交
	OutcomeInProgress Outcome = "in_progress" // 另一个调用方持有锁且尚未提交
	OutcomeRejected   Outcome = "rejected"    // 参与者或日期不合法
)

// Terminal 是否已经有了当天的最终结论
func (o Outcome) Terminal() bool {
	return o == OutcomeAlreadyChecked || o == OutcomeCompleted
}

type CheckStore interface {
	GetParticipant(ctx context.Context, id int64) (*model.Participant, error)
	FindDailyCheck(ctx context.Context, participantID int64, date string) (*model.DailyCheck, error)
	SumActivitySignals(ctx context.Context, handle, date string) (int, bool, error)
	CommitCheck(ctx context.Context, c repository.CheckCommit) error
}

type ActivityVerifier interface {
	CheckActivity(ctx context.Context, handle, credential string, window utils.DayWindow) (bool, int, error)
}

type Poster interface {
	Post(ctx context.Context, credential, text string) (string, error)
}

type Locker interface {
	TryLock(ctx context.Context, key string, ttl time.Duration) (func(), bool, error)
}

type EventPublisher interface {
	PublishCheckCompleted(ctx context.Context, event *model.CheckCompletedEvent) error
}

// CheckRequest 未结束的日期没有活动时只返回 Pending；Finalize 要求日期已经结束
type CheckRequest struct {
	ParticipantID int64
	Date          time.Time
	Trigger       model.CheckTrigger
	Finalize      bool
}

type PostResult struct {
	Attempted bool
	Sent      bool
	PostID    string
	Err       error
}

type CheckResult struct {
	Outcome       Outcome
	ParticipantID int64
	Date          string
	Trigger       model.CheckTrigger
	Active        bool
	ActivityCount int
	Source        model.ActivitySource
	Milestone     *milestone.Milestone
	Shame         PostResult
	Celebration   PostResult
	NewBadges     []string
	Stats         stats.Stats
	// Conflict 输给了并发的调用方，结果取自对方提交的记录
	Conflict bool
	Err      error
}

type CheckOptions struct {
	LockTTL       time.Duration
	LockWait      time.Duration
	VerifyTimeout time.Duration
	PostTimeout   time.Duration
	CommitTimeout time.Duration
}

// CheckService 每日检查编排：闸门、加锁、验证、状态迁移、里程碑、发帖、提交
type CheckService struct {
	store     CheckStore
	verifier  ActivityVerifier
	poster    Poster
	locker    Locker
	publisher EventPublisher
	decrypt   func([]byte) (string, error)
	opts      CheckOptions

	now          func() time.Time
	onCommitted  func(ctx context.Context, p *model.Participant)
	pollInterval time.Duration
}

type CheckServiceOption func(*CheckService)

func WithLocker(l Locker) CheckServiceOption {
	return func(s *CheckService) { s.locker = l }
}

func WithPublisher(p EventPublisher) CheckServiceOption {
	return func(s *CheckService) { s.publisher = p }
}

func WithDecrypter(fn func([]byte) (string, error)) CheckServiceOption {
	return func(s *CheckService) { s.decrypt = fn }
}

func WithClock(now func() time.Time) CheckServiceOption {
	return func(s *CheckService) { s.now = now }
}

// WithCommitHook 提交成功后调用，用于失效缓存
func WithCommitHook(fn func(ctx context.Context, p *model.Participant)) CheckServiceOption {
	return func(s *CheckService) { s.onCommitted = fn }
}

func NewCheckService(store CheckStore, verifier ActivityVerifier, poster Poster, opts CheckOptions, options ...CheckServiceOption) *CheckService {
	if opts.LockTTL <= 0 {
		opts.LockTTL = 2 * time.Minute
	}
	if opts.LockWait <= 0 {
		opts.LockWait = 5 * time.Second
	}
	if opts.VerifyTimeout <= 0 {
		opts.VerifyTimeout = 15 * time.Second
	}
	if opts.PostTimeout <= 0 {
		opts.PostTimeout = 10 * time.Second
	}
	if opts.CommitTimeout <= 0 {
		opts.CommitTimeout = 10 * time.Second
	}

	s := &CheckService{
		store:        store,
		verifier:     verifier,
		poster:       poster,
		decrypt:      utils.DecryptToken,
		opts:         opts,
		now:          time.Now,
		pollInterval: 100 * time.Millisecond,
	}
	for _, o := range options {
		o(s)
	}
	return s
}

var tracer = otel.Tracer("pushorshame/service")

// Check 对 (participant, date) 执行一次检查。同一个 key 最多提交一次，
// 重复调用返回已有记录
func (s *CheckService) Check(ctx context.Context, req CheckRequest) *CheckResult {
	date := utils.DateOnly(req.Date)
	dateKey := utils.DateKey(date)

	ctx, span := tracer.Start(ctx, "CheckService.Check")
	span.SetAttributes(
		attribute.Int64("participant.id", req.ParticipantID),
		attribute.String("check.date", dateKey),
		attribute.String("check.trigger", string(req.Trigger)),
	)

	result := s.check(ctx, req, date, dateKey)

	span.SetAttributes(attribute.String("check.outcome", string(result.Outcome)))
	if result.Err != nil && !result.Outcome.Terminal() {
		span.RecordError(result.Err)
		span.SetStatus(codes.Error, result.Err.Error())
	}
	span.End()

	metrics.Get().RecordCheck(ctx, string(result.Outcome), string(req.Trigger))
	s.log(result)
	return result
}

func (s *CheckService) check(ctx context.Context, req CheckRequest, date time.Time, dateKey string) *CheckResult {
	result := &CheckResult{
		ParticipantID: req.ParticipantID,
		Date:          dateKey,
		Trigger:       req.Trigger,
	}

	// 闸门
	if res, done := s.gate(ctx, result); done {
		return res
	}

	if s.locker != nil {
		release, res := s.acquire(ctx, result)
		if res != nil {
			return res
		}
		defer release()

		// 拿到锁后重新检查，前一个持有者可能刚刚提交
		if res, done := s.gate(ctx, result); done {
			res.Conflict = res.Outcome == OutcomeAlreadyChecked
			return res
		}
	}

	p, err := s.store.GetParticipant(ctx, req.ParticipantID)
	if err != nil {
		if stderrors.Is(err, pkgerrors.ParticipantNotFound) {
			return reject(result, err)
		}
		return fail(result, OutcomePersistenceFailed, err)
	}
	if !p.ActivitySourceLinked() {
		return reject(result, pkgerrors.ActivitySourceMissing)
	}
	if p.LastCheckedDate != nil && utils.DaysBetween(*p.LastCheckedDate, date) <= 0 {
		return reject(result, pkgerrors.CheckDateStale)
	}

	now := s.now()
	window := utils.WindowFor(date)
	if now.Before(window.Start) {
		return reject(result, pkgerrors.CheckDateInvalid)
	}
	// 最终结论只能给已经结束的日期
	if req.Finalize && !window.Closed(now) {
		return reject(result, pkgerrors.CheckDateInvalid)
	}

	// 验证
	active, count, source, err := s.resolveActivity(ctx, p, window)
	if err != nil {
		return fail(result, OutcomeVerificationFailed, err)
	}
	result.Active, result.ActivityCount, result.Source = active, count, source

	if !active && !window.Closed(now) {
		result.Outcome = OutcomePending
		result.Stats = p.Stats()
		return result
	}

	// 状态迁移
	after := stats.Record(p.Stats(), date, active)
	ledger := p.Ledger()
	badges, newBadges := badge.Derive(after, p.Badges)

	var detected *milestone.Milestone
	if active {
		if m, ok := milestone.Detect(after, ledger); ok {
			detected = &m
		}
	}

	// 调用方在副作用之前放弃：什么都不写，下次重新来过
	if err := ctx.Err(); err != nil {
		return fail(result, OutcomePersistenceFailed, err)
	}

	// 副作用
	check := &model.DailyCheck{
		ParticipantID:  p.ID,
		CheckDate:      dateKey,
		Active:         active,
		ActivityCount:  count,
		ActivitySource: source,
		StreakAfter:    after.CurrentStreak,
		Trigger:        req.Trigger,
		CheckedAt:      now,
	}

	switch {
	case !active:
		result.Shame = s.post(ctx, p, "shame", func() (string, error) {
			return ComposeShame(p, after, dateKey)
		})
		check.ShamePostSent = result.Shame.Sent
		check.PostID = result.Shame.PostID
	case detected != nil:
		m := *detected
		result.Milestone = detected
		result.Celebration = s.post(ctx, p, "milestone", func() (string, error) {
			return ComposeMilestone(p, m)
		})
		check.MilestoneKind = string(m.Kind)
		check.MilestoneValue = m.Value
		check.MilestonePostSent = result.Celebration.Sent
		check.PostID = result.Celebration.PostID
		// 尝试过就记账，失败也不再重发
		if result.Celebration.Attempted {
			ledger = ledger.Append(m)
		}
	}

	// 提交：副作用已经发生，调用方取消不能阻止落库
	p.ApplyStats(after)
	p.Badges = badges
	p.ApplyLedger(ledger)

	commitCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.opts.CommitTimeout)
	defer cancel()

	if err := s.store.CommitCheck(commitCtx, repository.CheckCommit{Participant: p, Check: check}); err != nil {
		if pkgerrors.IsCheckConflict(err) {
			result.Conflict = true
			if res, done := s.gate(commitCtx, result); done {
				return res
			}
			result.Outcome = OutcomeAlreadyChecked
			result.Err = err
			return result
		}
		return fail(result, OutcomePersistenceFailed, err)
	}

	result.Outcome = OutcomeCompleted
	result.NewBadges = newBadges
	result.Stats = after

	if s.onCommitted != nil {
		s.onCommitted(commitCtx, p)
	}
	s.publish(commitCtx, p, result)
	return result
}

// gate 已有记录时直接返回记录中的结论
func (s *CheckService) gate(ctx context.Context, result *CheckResult) (*CheckResult, bool) {
	record, err := s.store.FindDailyCheck(ctx, result.ParticipantID, result.Date)
	if err != nil {
		return fail(result, OutcomePersistenceFailed, &pkgerrors.PersistenceError{Op: "read daily check", Err: err}), true
	}
	if record == nil {
		return nil, false
	}

	result.Outcome = OutcomeAlreadyChecked
	result.Err = nil
	result.Active = record.Active
	result.ActivityCount = record.ActivityCount
	result.Source = record.ActivitySource
	result.Stats.CurrentStreak = record.StreakAfter
	result.Shame = PostResult{Attempted: !record.Active, Sent: record.ShamePostSent}
	if record.HasMilestone() {
		result.Milestone = &milestone.Milestone{Kind: milestone.Kind(record.MilestoneKind), Value: record.MilestoneValue}
		result.Celebration = PostResult{Sent: record.MilestonePostSent}
	}
	if record.ShamePostSent || record.MilestonePostSent {
		if record.Active {
			result.Celebration.PostID = record.PostID
		} else {
			result.Shame.PostID = record.PostID
		}
	}
	return result, true
}

// acquire 拿不到锁时轮询：对方提交了返回 AlreadyChecked，对方放弃了由本次接手
func (s *CheckService) acquire(ctx context.Context, result *CheckResult) (func(), *CheckResult) {
	key := "check:" + result.Date + ":" + strconv.FormatInt(result.ParticipantID, 10)
	deadline := time.Now().Add(s.opts.LockWait)

	for {
		release, ok, err := s.locker.TryLock(ctx, key, s.opts.LockTTL)
		if err != nil {
			return nil, fail(result, OutcomePersistenceFailed, err)
		}
		if ok {
			return release, nil
		}

		if res, done := s.gate(ctx, result); done {
			res.Conflict = res.Outcome == OutcomeAlreadyChecked
			return nil, res
		}
		if !time.Now().Before(deadline) {
			result.Outcome = OutcomeInProgress
			result.Err = pkgerrors.CheckConflict
			return nil, result
		}

		select {
		case <-ctx.Done():
			return nil, fail(result, OutcomePersistenceFailed, ctx.Err())
		case <-time.After(s.pollInterval):
		}
	}
}

// resolveActivity webhook 信号优先，没有信号再查 GitHub
func (s *CheckService) resolveActivity(ctx context.Context, p *model.Participant, window utils.DayWindow) (bool, int, model.ActivitySource, error) {
	handle := utils.NormalizeHandle(p.GitHubHandle)

	count, found, err := s.store.SumActivitySignals(ctx, handle, window.Key())
	if err != nil {
		logger.Logger.Warn("Failed to read activity signals, falling back to verifier",
			zap.Int64("participant_id", p.ID),
			zap.Error(err),
		)
	} else if found {
		return true, count, model.ActivitySourceWebhook, nil
	}

	credential, err := s.decrypt(p.GitHubTokenCipher)
	if err != nil {
		return false, 0, model.ActivitySourceVerifier, &pkgerrors.VerificationError{Handle: handle, Err: err}
	}

	verifyCtx, cancel := context.WithTimeout(ctx, s.opts.VerifyTimeout)
	defer cancel()

	start := time.Now()
	active, count, err := s.verifier.CheckActivity(verifyCtx, handle, credential, window)
	metrics.Get().RecordVerify(ctx, string(model.ActivitySourceVerifier), time.Since(start), err)
	if err != nil {
		if !pkgerrors.IsVerificationError(err) {
			err = &pkgerrors.VerificationError{Handle: handle, Err: err}
		}
		return false, 0, model.ActivitySourceVerifier, err
	}
	return active, count, model.ActivitySourceVerifier, nil
}

// post 尽力而为。没有绑定 X 时不算尝试
func (s *CheckService) post(ctx context.Context, p *model.Participant, kind string, compose func() (string, error)) PostResult {
	if len(p.XTokenCipher) == 0 || s.poster == nil {
		return PostResult{Err: pkgerrors.PostCredentialAbsent}
	}
	credential, err := s.decrypt(p.XTokenCipher)
	if err != nil {
		return PostResult{Err: &pkgerrors.PostingError{Kind: "auth", Err: err}}
	}
	text, err := compose()
	if err != nil {
		return PostResult{Err: err}
	}

	postCtx, cancel := context.WithTimeout(ctx, s.opts.PostTimeout)
	defer cancel()

	id, err := s.poster.Post(postCtx, credential, text)
	metrics.Get().RecordPost(ctx, kind, err == nil)
	if err != nil {
		logger.Logger.Warn("Post failed",
			zap.Int64("participant_id", p.ID),
			zap.String("kind", kind),
			zap.Error(err),
		)
		return PostResult{Attempted: true, Err: err}
	}
	return PostResult{Attempted: true, Sent: true, PostID: id}
}

func (s *CheckService) publish(ctx context.Context, p *model.Participant, result *CheckResult) {
	if s.publisher == nil {
		return
	}
	event := &model.CheckCompletedEvent{
		ParticipantID:     p.ID,
		CheckDate:         result.Date,
		Active:            result.Active,
		ActivityCount:     result.ActivityCount,
		CurrentStreak:     result.Stats.CurrentStreak,
		ShamePostSent:     result.Shame.Sent,
		MilestonePostSent: result.Celebration.Sent,
		NewBadges:         result.NewBadges,
		Trigger:           string(result.Trigger),
		OccurredAt:        s.now().Format(time.RFC3339),
	}
	if result.Milestone != nil {
		event.MilestoneKind = string(result.Milestone.Kind)
		event.MilestoneValue = result.Milestone.Value
	}
	if err := s.publisher.PublishCheckCompleted(ctx, event); err != nil {
		logger.Logger.Warn("Failed to publish check completed event",
			zap.Int64("participant_id", p.ID),
			zap.String("check_date", result.Date),
			zap.Error(err),
		)
	}
}

func (s *CheckService) log(result *CheckResult) {
	fields := []zap.Field{
		zap.Int64("participant_id", result.ParticipantID),
		zap.String("check_date", result.Date),
		zap.String("trigger", string(result.Trigger)),
		zap.String("outcome", string(result.Outcome)),
	}
	switch result.Outcome {
	case OutcomeCompleted:
		fields = append(fields,
			zap.Bool("active", result.Active),
			zap.Int("current_streak", result.Stats.CurrentStreak),
			zap.Bool("shame_sent", result.Shame.Sent),
			zap.Bool("milestone_sent", result.Celebration.Sent),
		)
		logger.Logger.Info("Daily check completed", fields...)
	case OutcomeVerificationFailed, OutcomePersistenceFailed:
		logger.Logger.Error("Daily check failed", append(fields, zap.Error(result.Err))...)
	default:
		logger.Logger.Debug("Daily check finished", append(fields, zap.Bool("conflict", result.Conflict))...)
	}
}

func reject(result *CheckResult, err error) *CheckResult {
	result.Outcome = OutcomeRejected
	result.Err = err
	return result
}

func fail(result *CheckResult, outcome Outcome, err error) *CheckResult {
	result.Outcome = outcome
	result.Err = err
	return result
}
