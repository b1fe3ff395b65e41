package service

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"PushOrShame/internal/milestone"
	"PushOrShame/internal/model"
	"PushOrShame/internal/repository"
	pkgerrors "PushOrShame/pkg/errors"
	"PushOrShame/utils"
)

// ========== fakes ==========

type fakeStore struct {
	mu           sync.Mutex
	participants map[int64]*model.Participant
	checks       map[string]*model.DailyCheck
	signals      map[string]int
	commitErr    error
	commits      int
}

func newFakeStore(ps ...*model.Participant) *fakeStore {
	s := &fakeStore{
		participants: map[int64]*model.Participant{},
		checks:       map[string]*model.DailyCheck{},
		signals:      map[string]int{},
	}
	for _, p := range ps {
		s.participants[p.ID] = cloneParticipant(p)
	}
	return s
}

func cloneParticipant(p *model.Participant) *model.Participant {
	c := *p
	c.Badges = slices.Clone(p.Badges)
	c.AnnouncedStreakMilestones = slices.Clone(p.AnnouncedStreakMilestones)
	c.AnnouncedTotalMilestones = slices.Clone(p.AnnouncedTotalMilestones)
	return &c
}

func checkKey(participantID int64, date string) string {
	return fmt.Sprintf("%d:%s", participantID, date)
}

func (s *fakeStore) GetParticipant(_ context.Context, id int64) (*model.Participant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.participants[id]
	if !ok {
		return nil, pkgerrors.ParticipantNotFound
	}
	return cloneParticipant(p), nil
}

func (s *fakeStore) FindDailyCheck(_ context.Context, participantID int64, date string) (*model.DailyCheck, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.checks[checkKey(participantID, date)]
	if !ok {
		return nil, nil
	}
	cp := *c
	return &cp, nil
}

func (s *fakeStore) SumActivitySignals(_ context.Context, handle, date string) (int, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := s.signals[handle+":"+date]
	return n, ok, nil
}

func (s *fakeStore) CommitCheck(_ context.Context, c repository.CheckCommit) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.commitErr != nil {
		return &pkgerrors.PersistenceError{Op: "commit check", Err: s.commitErr}
	}
	key := checkKey(c.Check.ParticipantID, c.Check.CheckDate)
	if _, exists := s.checks[key]; exists {
		return pkgerrors.ErrCheckConflict
	}
	stored := s.participants[c.Participant.ID]
	if stored.Version != c.Participant.Version {
		return pkgerrors.ErrCheckConflict
	}
	check := *c.Check
	s.checks[key] = &check
	next := cloneParticipant(c.Participant)
	next.Version++
	s.participants[next.ID] = next
	c.Participant.Version = next.Version
	s.commits++
	return nil
}

func (s *fakeStore) participant(id int64) *model.Participant {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneParticipant(s.participants[id])
}

type fakeVerifier struct {
	active bool
	count  int
	err    error
	delay  time.Duration
	hook   func(ctx context.Context)
	calls  atomic.Int32
}

func (v *fakeVerifier) CheckActivity(ctx context.Context, _, _ string, _ utils.DayWindow) (bool, int, error) {
	v.calls.Add(1)
	if v.hook != nil {
		v.hook(ctx)
	}
	if v.delay > 0 {
		time.Sleep(v.delay)
	}
	return v.active, v.count, v.err
}

type fakePoster struct {
	mu    sync.Mutex
	err   error
	texts []string
}

func (p *fakePoster) Post(_ context.Context, _, text string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.texts = append(p.texts, text)
	if p.err != nil {
		return "", p.err
	}
	return fmt.Sprintf("post-%d", len(p.texts)), nil
}

func (p *fakePoster) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.texts)
}

type memLocker struct {
	mu   sync.Mutex
	held map[string]bool
}

func (l *memLocker) TryLock(_ context.Context, key string, _ time.Duration) (func(), bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.held == nil {
		l.held = map[string]bool{}
	}
	if l.held[key] {
		return func() {}, false, nil
	}
	l.held[key] = true
	return func() {
		l.mu.Lock()
		defer l.mu.Unlock()
		delete(l.held, key)
	}, true, nil
}

type fakePublisher struct {
	mu     sync.Mutex
	events []*model.CheckCompletedEvent
}

func (p *fakePublisher) PublishCheckCompleted(_ context.Context, e *model.CheckCompletedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return nil
}

// ========== helpers ==========

func mustDate(s string) time.Time {
	d, err := utils.ParseDateKey(s)
	if err != nil {
		panic(err)
	}
	return d
}

func datePtr(s string) *time.Time {
	d := mustDate(s)
	return &d
}

// 参与者时区 (UTC+9) 2026-01-21 00:30，2026-01-20 已经结束
var closedDayNow = time.Date(2026, 1, 20, 15, 30, 0, 0, time.UTC)

func streakParticipant(id int64, streak int, lastDate string) *model.Participant {
	return &model.Participant{
		BaseModel:                 model.BaseModel{ID: id},
		PublicID:                  id + 1000,
		Nickname:                  "octo",
		Status:                    model.ParticipantStatusActive,
		GitHubHandle:              "Octocat",
		GitHubTokenCipher:         []byte("gh-token"),
		XHandle:                   "octo_x",
		XTokenCipher:              []byte("x-token"),
		OnboardingCompleted:       true,
		SubscriptionActive:        true,
		CurrentMonthActive:        streak,
		TotalActiveDays:           streak,
		CurrentStreak:             streak,
		LongestStreak:             streak,
		LastActiveDate:            datePtr(lastDate),
		LastCheckedDate:           datePtr(lastDate),
		AnnouncedStreakMilestones: milestone.Set{3, 5},
		AnnouncedTotalMilestones:  milestone.Set{5},
	}
}

func newTestService(store *fakeStore, verifier *fakeVerifier, poster *fakePoster, options ...CheckServiceOption) *CheckService {
	base := []CheckServiceOption{
		WithDecrypter(func(b []byte) (string, error) { return string(b), nil }),
		WithClock(func() time.Time { return closedDayNow }),
	}
	svc := NewCheckService(store, verifier, poster, CheckOptions{LockWait: 2 * time.Second}, append(base, options...)...)
	svc.pollInterval = 5 * time.Millisecond
	return svc
}

func batchRequest(id int64, date string) CheckRequest {
	return CheckRequest{ParticipantID: id, Date: mustDate(date), Trigger: model.CheckTriggerBatch, Finalize: true}
}

// ========== tests ==========

func TestCheck_ActiveDayAnnouncesNextStreakMilestone(t *testing.T) {
	store := newFakeStore(streakParticipant(1, 6, "2026-01-19"))
	verifier := &fakeVerifier{active: true, count: 3}
	poster := &fakePoster{}
	publisher := &fakePublisher{}
	svc := newTestService(store, verifier, poster, WithPublisher(publisher))

	res := svc.Check(context.Background(), batchRequest(1, "2026-01-20"))

	require.Equal(t, OutcomeCompleted, res.Outcome, "err: %v", res.Err)
	assert.True(t, res.Active)
	assert.Equal(t, 3, res.ActivityCount)
	assert.Equal(t, model.ActivitySourceVerifier, res.Source)
	assert.Equal(t, 7, res.Stats.CurrentStreak)
	require.NotNil(t, res.Milestone)
	assert.Equal(t, milestone.Milestone{Kind: milestone.KindStreak, Value: 7}, *res.Milestone)
	assert.True(t, res.Celebration.Attempted)
	assert.True(t, res.Celebration.Sent)
	assert.False(t, res.Shame.Attempted)

	p := store.participant(1)
	assert.Equal(t, 7, p.CurrentStreak)
	assert.Equal(t, 7, p.LongestStreak)
	assert.Equal(t, 7, p.TotalActiveDays)
	assert.True(t, p.AnnouncedStreakMilestones.Contains(7))
	assert.Equal(t, int64(1), p.Version)

	record, _ := store.FindDailyCheck(context.Background(), 1, "2026-01-20")
	require.NotNil(t, record)
	assert.True(t, record.MilestonePostSent)
	assert.Equal(t, 7, record.MilestoneValue)
	assert.Equal(t, 7, record.StreakAfter)

	require.Len(t, publisher.events, 1)
	assert.Equal(t, 7, publisher.events[0].MilestoneValue)
	assert.Equal(t, 1, poster.count())
}

func TestCheck_InactiveDayRecordsShameAttemptEvenWhenPostFails(t *testing.T) {
	store := newFakeStore(streakParticipant(1, 5, "2026-01-19"))
	poster := &fakePoster{err: &pkgerrors.PostingError{Kind: "api", Status: 503, Err: errors.New("unavailable")}}
	svc := newTestService(store, &fakeVerifier{active: false}, poster)

	res := svc.Check(context.Background(), batchRequest(1, "2026-01-20"))

	require.Equal(t, OutcomeCompleted, res.Outcome, "err: %v", res.Err)
	assert.False(t, res.Active)
	assert.True(t, res.Shame.Attempted)
	assert.False(t, res.Shame.Sent)
	assert.True(t, pkgerrors.IsPostingError(res.Shame.Err))
	assert.Nil(t, res.Milestone)

	p := store.participant(1)
	assert.Equal(t, 0, p.CurrentStreak)
	assert.GreaterOrEqual(t, p.LongestStreak, 5)
	assert.Equal(t, 1, p.TotalInactiveDays)
	assert.Equal(t, "2026-01-20", utils.DateKey(*p.LastCheckedDate))
	assert.Equal(t, "2026-01-19", utils.DateKey(*p.LastActiveDate))

	record, _ := store.FindDailyCheck(context.Background(), 1, "2026-01-20")
	require.NotNil(t, record)
	assert.False(t, record.Active)
	assert.False(t, record.ShamePostSent)
}

func TestCheck_SecondCallIsAlreadyChecked(t *testing.T) {
	store := newFakeStore(streakParticipant(1, 6, "2026-01-19"))
	verifier := &fakeVerifier{active: true, count: 1}
	poster := &fakePoster{}
	svc := newTestService(store, verifier, poster)

	first := svc.Check(context.Background(), batchRequest(1, "2026-01-20"))
	require.Equal(t, OutcomeCompleted, first.Outcome)
	afterFirst := store.participant(1)

	second := svc.Check(context.Background(), CheckRequest{
		ParticipantID: 1, Date: mustDate("2026-01-20"), Trigger: model.CheckTriggerAdHoc,
	})
	assert.Equal(t, OutcomeAlreadyChecked, second.Outcome)
	assert.False(t, second.Conflict)
	assert.True(t, second.Active)
	require.NotNil(t, second.Milestone)
	assert.Equal(t, 7, second.Milestone.Value)
	assert.True(t, second.Celebration.Sent)

	assert.Equal(t, afterFirst.Stats(), store.participant(1).Stats())
	assert.Equal(t, int32(1), verifier.calls.Load())
	assert.Equal(t, 1, poster.count())
	assert.Equal(t, 1, store.commits)
}

func TestCheck_VerifierFailureIsIndeterminate(t *testing.T) {
	store := newFakeStore(streakParticipant(1, 6, "2026-01-19"))
	verifier := &fakeVerifier{err: &pkgerrors.VerificationError{Handle: "octocat", Status: 502, Err: errors.New("bad gateway")}}
	poster := &fakePoster{}
	svc := newTestService(store, verifier, poster)

	res := svc.Check(context.Background(), batchRequest(1, "2026-01-20"))

	assert.Equal(t, OutcomeVerificationFailed, res.Outcome)
	assert.True(t, pkgerrors.IsVerificationError(res.Err))
	assert.Equal(t, 0, poster.count())
	assert.Equal(t, 6, store.participant(1).CurrentStreak)
	record, _ := store.FindDailyCheck(context.Background(), 1, "2026-01-20")
	assert.Nil(t, record)

	// 下一次触发重新验证
	verifier.err = nil
	verifier.active = true
	res = svc.Check(context.Background(), batchRequest(1, "2026-01-20"))
	assert.Equal(t, OutcomeCompleted, res.Outcome)
	assert.Equal(t, 7, store.participant(1).CurrentStreak)
}

func TestCheck_PlainVerifierErrorIsWrapped(t *testing.T) {
	store := newFakeStore(streakParticipant(1, 6, "2026-01-19"))
	svc := newTestService(store, &fakeVerifier{err: errors.New("dial tcp: timeout")}, &fakePoster{})

	res := svc.Check(context.Background(), batchRequest(1, "2026-01-20"))
	assert.Equal(t, OutcomeVerificationFailed, res.Outcome)
	assert.True(t, pkgerrors.IsVerificationError(res.Err))
}

func TestCheck_ConcurrentCallersWithLock(t *testing.T) {
	store := newFakeStore(streakParticipant(1, 6, "2026-01-19"))
	verifier := &fakeVerifier{active: true, count: 1, delay: 30 * time.Millisecond}
	poster := &fakePoster{}
	svc := newTestService(store, verifier, poster, WithLocker(&memLocker{}))

	results := runConcurrently(svc, 2)

	assertOneCompletedOneConflict(t, results)
	assert.Equal(t, int32(1), verifier.calls.Load())
	assert.Equal(t, 1, poster.count())
	p := store.participant(1)
	assert.Equal(t, 7, p.CurrentStreak)
	assert.Equal(t, 7, p.TotalActiveDays)
}

func TestCheck_ConcurrentCallersWithoutLock(t *testing.T) {
	store := newFakeStore(streakParticipant(1, 6, "2026-01-19"))

	// 两个调用方都通过闸门并完成验证后才放行，迫使冲突落在提交阶段
	var entered sync.WaitGroup
	entered.Add(2)
	verifier := &fakeVerifier{active: true, count: 1, hook: func(context.Context) {
		entered.Done()
		entered.Wait()
	}}
	svc := newTestService(store, verifier, &fakePoster{})

	results := runConcurrently(svc, 2)

	assertOneCompletedOneConflict(t, results)
	p := store.participant(1)
	assert.Equal(t, 7, p.CurrentStreak)
	assert.Equal(t, 7, p.TotalActiveDays)
	assert.Equal(t, 1, store.commits)
}

func runConcurrently(svc *CheckService, n int) []*CheckResult {
	results := make([]*CheckResult, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			trigger := model.CheckTriggerBatch
			if i%2 == 1 {
				trigger = model.CheckTriggerAdHoc
			}
			results[i] = svc.Check(context.Background(), CheckRequest{
				ParticipantID: 1, Date: mustDate("2026-01-20"), Trigger: trigger, Finalize: true,
			})
		}(i)
	}
	wg.Wait()
	return results
}

func assertOneCompletedOneConflict(t *testing.T, results []*CheckResult) {
	t.Helper()
	var completed, already int
	for _, r := range results {
		switch r.Outcome {
		case OutcomeCompleted:
			completed++
		case OutcomeAlreadyChecked:
			already++
			assert.True(t, r.Conflict)
			assert.True(t, r.Active)
		default:
			t.Fatalf("unexpected outcome %s: %v", r.Outcome, r.Err)
		}
	}
	assert.Equal(t, 1, completed)
	assert.Equal(t, 1, already)
}

func TestCheck_LockHeldWithoutCommitReportsInProgress(t *testing.T) {
	store := newFakeStore(streakParticipant(1, 6, "2026-01-19"))
	locker := &memLocker{}
	_, ok, _ := locker.TryLock(context.Background(), "check:2026-01-20:1", time.Minute)
	require.True(t, ok)

	svc := newTestService(store, &fakeVerifier{active: true}, &fakePoster{}, WithLocker(locker))
	svc.opts.LockWait = 20 * time.Millisecond

	res := svc.Check(context.Background(), batchRequest(1, "2026-01-20"))
	assert.Equal(t, OutcomeInProgress, res.Outcome)
	assert.False(t, res.Outcome.Terminal())
	assert.Equal(t, 0, store.commits)
}

func TestCheck_OpenDayWithoutActivityIsPending(t *testing.T) {
	store := newFakeStore(streakParticipant(1, 6, "2026-01-20"))
	poster := &fakePoster{}
	svc := newTestService(store, &fakeVerifier{active: false}, poster,
		WithClock(func() time.Time { return time.Date(2026, 1, 21, 3, 0, 0, 0, time.UTC) })) // UTC+9 正午

	res := svc.Check(context.Background(), CheckRequest{
		ParticipantID: 1, Date: mustDate("2026-01-21"), Trigger: model.CheckTriggerAdHoc,
	})

	assert.Equal(t, OutcomePending, res.Outcome)
	assert.Equal(t, 0, poster.count())
	assert.Equal(t, 0, store.commits)
	assert.Equal(t, 6, res.Stats.CurrentStreak)
}

func TestCheck_FinalizeRefusedBeforeDayEnds(t *testing.T) {
	store := newFakeStore(streakParticipant(1, 6, "2026-01-19"))
	verifier := &fakeVerifier{active: false}
	poster := &fakePoster{}
	// UTC+9 2026-01-20 23:50，当天还剩十分钟
	svc := newTestService(store, verifier, poster,
		WithClock(func() time.Time { return time.Date(2026, 1, 20, 14, 50, 0, 0, time.UTC) }))

	res := svc.Check(context.Background(), batchRequest(1, "2026-01-20"))

	assert.Equal(t, OutcomeRejected, res.Outcome)
	assert.ErrorIs(t, res.Err, pkgerrors.CheckDateInvalid)
	assert.Equal(t, int32(0), verifier.calls.Load())
	assert.Equal(t, 0, poster.count())
	assert.Equal(t, 0, store.commits)
	assert.Equal(t, 6, store.participant(1).CurrentStreak)

	// 23:55 的 push 在日期结束后被看到
	verifier.active = true
	svc.now = func() time.Time { return closedDayNow }
	res = svc.Check(context.Background(), batchRequest(1, "2026-01-20"))
	require.Equal(t, OutcomeCompleted, res.Outcome, "err: %v", res.Err)
	assert.Equal(t, 7, store.participant(1).CurrentStreak)
	assert.Equal(t, 1, poster.count())
}

func TestCheck_OpenDayWithActivityCommits(t *testing.T) {
	store := newFakeStore(streakParticipant(1, 6, "2026-01-20"))
	svc := newTestService(store, &fakeVerifier{active: true, count: 2}, &fakePoster{},
		WithClock(func() time.Time { return time.Date(2026, 1, 21, 3, 0, 0, 0, time.UTC) }))

	res := svc.Check(context.Background(), CheckRequest{
		ParticipantID: 1, Date: mustDate("2026-01-21"), Trigger: model.CheckTriggerAdHoc,
	})

	require.Equal(t, OutcomeCompleted, res.Outcome, "err: %v", res.Err)
	assert.Equal(t, 7, res.Stats.CurrentStreak)
}

func TestCheck_WebhookSignalSkipsVerifier(t *testing.T) {
	store := newFakeStore(streakParticipant(1, 2, "2026-01-19"))
	store.signals["octocat:2026-01-20"] = 4
	verifier := &fakeVerifier{err: errors.New("must not be called")}
	svc := newTestService(store, verifier, &fakePoster{})

	res := svc.Check(context.Background(), batchRequest(1, "2026-01-20"))

	require.Equal(t, OutcomeCompleted, res.Outcome, "err: %v", res.Err)
	assert.Equal(t, model.ActivitySourceWebhook, res.Source)
	assert.Equal(t, 4, res.ActivityCount)
	assert.Equal(t, int32(0), verifier.calls.Load())
}

func TestCheck_RejectsStaleAndFutureDates(t *testing.T) {
	store := newFakeStore(streakParticipant(1, 6, "2026-01-19"))
	svc := newTestService(store, &fakeVerifier{active: true}, &fakePoster{})

	res := svc.Check(context.Background(), batchRequest(1, "2026-01-18"))
	assert.Equal(t, OutcomeRejected, res.Outcome)
	assert.ErrorIs(t, res.Err, pkgerrors.CheckDateStale)

	res = svc.Check(context.Background(), batchRequest(1, "2026-01-22"))
	assert.Equal(t, OutcomeRejected, res.Outcome)
	assert.ErrorIs(t, res.Err, pkgerrors.CheckDateInvalid)

	res = svc.Check(context.Background(), batchRequest(42, "2026-01-20"))
	assert.Equal(t, OutcomeRejected, res.Outcome)
	assert.ErrorIs(t, res.Err, pkgerrors.ParticipantNotFound)

	assert.Equal(t, 0, store.commits)
}

func TestCheck_CancelledBeforeSideEffects(t *testing.T) {
	store := newFakeStore(streakParticipant(1, 6, "2026-01-19"))
	ctx, cancel := context.WithCancel(context.Background())
	verifier := &fakeVerifier{active: true, hook: func(context.Context) { cancel() }}
	poster := &fakePoster{}
	svc := newTestService(store, verifier, poster)

	res := svc.Check(ctx, batchRequest(1, "2026-01-20"))

	assert.Equal(t, OutcomePersistenceFailed, res.Outcome)
	assert.ErrorIs(t, res.Err, context.Canceled)
	assert.Equal(t, 0, poster.count())
	assert.Equal(t, 0, store.commits)

	// 恢复后只会得到新的完整检查，不会凭验证结果直接变成 AlreadyChecked
	verifier.hook = nil
	res = svc.Check(context.Background(), batchRequest(1, "2026-01-20"))
	assert.Equal(t, OutcomeCompleted, res.Outcome)
}

func TestCheck_PersistenceFailureLeavesNoRecord(t *testing.T) {
	store := newFakeStore(streakParticipant(1, 6, "2026-01-19"))
	store.commitErr = errors.New("connection reset")
	svc := newTestService(store, &fakeVerifier{active: true}, &fakePoster{})

	res := svc.Check(context.Background(), batchRequest(1, "2026-01-20"))
	assert.Equal(t, OutcomePersistenceFailed, res.Outcome)
	assert.True(t, pkgerrors.IsPersistenceError(res.Err))

	store.commitErr = nil
	res = svc.Check(context.Background(), batchRequest(1, "2026-01-20"))
	assert.Equal(t, OutcomeCompleted, res.Outcome)
}

func TestCheck_FailedMilestonePostStillAppendsLedger(t *testing.T) {
	store := newFakeStore(streakParticipant(1, 6, "2026-01-19"))
	poster := &fakePoster{err: &pkgerrors.PostingError{Kind: "api", Status: 403, Err: errors.New("forbidden")}}
	svc := newTestService(store, &fakeVerifier{active: true}, poster)

	res := svc.Check(context.Background(), batchRequest(1, "2026-01-20"))
	require.Equal(t, OutcomeCompleted, res.Outcome)
	assert.True(t, res.Celebration.Attempted)
	assert.False(t, res.Celebration.Sent)
	assert.True(t, store.participant(1).AnnouncedStreakMilestones.Contains(7))
}

func TestCheck_MilestoneWithoutXAccountIsDeferred(t *testing.T) {
	p := streakParticipant(1, 6, "2026-01-19")
	p.XTokenCipher = nil
	store := newFakeStore(p)
	poster := &fakePoster{}
	svc := newTestService(store, &fakeVerifier{active: true}, poster)

	res := svc.Check(context.Background(), batchRequest(1, "2026-01-20"))
	require.Equal(t, OutcomeCompleted, res.Outcome)
	require.NotNil(t, res.Milestone)
	assert.False(t, res.Celebration.Attempted)
	assert.Equal(t, 0, poster.count())
	assert.False(t, store.participant(1).AnnouncedStreakMilestones.Contains(7))
}

func TestCheck_SkippedMilestonesAnnouncedOnePerCheck(t *testing.T) {
	p := streakParticipant(1, 9, "2026-01-19")
	p.AnnouncedStreakMilestones = nil
	p.AnnouncedTotalMilestones = milestone.Set{5, 10}
	store := newFakeStore(p)
	svc := newTestService(store, &fakeVerifier{active: true}, &fakePoster{})

	var announced []int
	for i, date := range []string{"2026-01-20", "2026-01-21", "2026-01-22", "2026-01-23"} {
		now := mustDate(date).Add(20 * time.Hour)
		svc.now = func() time.Time { return now }
		res := svc.Check(context.Background(), batchRequest(1, date))
		require.Equal(t, OutcomeCompleted, res.Outcome, "check %d: %v", i, res.Err)
		require.NotNil(t, res.Milestone, "check %d", i)
		announced = append(announced, res.Milestone.Value)
	}
	assert.Equal(t, []int{3, 5, 7, 10}, announced)
}

func TestCheck_CommitHookRuns(t *testing.T) {
	store := newFakeStore(streakParticipant(1, 1, "2026-01-19"))
	var invalidated []int64
	svc := newTestService(store, &fakeVerifier{active: true}, &fakePoster{},
		WithCommitHook(func(_ context.Context, p *model.Participant) { invalidated = append(invalidated, p.ID) }))

	svc.Check(context.Background(), batchRequest(1, "2026-01-20"))
	svc.Check(context.Background(), batchRequest(1, "2026-01-20"))
	assert.Equal(t, []int64{1}, invalidated)
}
