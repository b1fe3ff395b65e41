package service

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"PushOrShame/internal/cache"
	"PushOrShame/internal/model"
	pkgerrors "PushOrShame/pkg/errors"
	"PushOrShame/storage/redis"
)

type countingParticipantStore struct {
	participant *model.Participant
	checks      []*model.DailyCheck
	reads       int
	limit       int
}

func (s *countingParticipantStore) GetParticipantByPublicID(_ context.Context, publicID int64) (*model.Participant, error) {
	s.reads++
	if s.participant == nil || s.participant.PublicID != publicID {
		return nil, pkgerrors.ParticipantNotFound
	}
	return s.participant, nil
}

func (s *countingParticipantStore) ListDailyChecks(_ context.Context, _ int64, limit int) ([]*model.DailyCheck, error) {
	s.limit = limit
	return s.checks, nil
}

func TestParticipant_GetStatsIsCachedAndInvalidated(t *testing.T) {
	mr := miniredis.RunT(t)
	redis.SetClient(goredis.NewClient(&goredis.Options{Addr: mr.Addr()}))

	p := streakParticipant(1, 7, "2026-01-20")
	store := &countingParticipantStore{participant: p}
	svc := NewParticipantService(store, cache.NewProtectedCache("test:stats", time.Minute))
	ctx := context.Background()

	data, err := svc.GetStats(ctx, p.PublicID)
	require.NoError(t, err)
	assert.Equal(t, 7, data.CurrentStreak)
	assert.Equal(t, "2026-01-20", data.LastCheckedDate)
	assert.True(t, data.Eligible)

	_, err = svc.GetStats(ctx, p.PublicID)
	require.NoError(t, err)
	assert.Equal(t, 1, store.reads)

	svc.Invalidate(ctx, p)
	_, err = svc.GetStats(ctx, p.PublicID)
	require.NoError(t, err)
	assert.Equal(t, 2, store.reads)

	// 不存在的参与者写入空值缓存
	_, err = svc.GetStats(ctx, 999)
	assert.ErrorIs(t, err, pkgerrors.ParticipantNotFound)
	_, err = svc.GetStats(ctx, 999)
	assert.ErrorIs(t, err, pkgerrors.ParticipantNotFound)
	assert.Equal(t, 3, store.reads)
}

func TestParticipant_GetHistoryClampsLimit(t *testing.T) {
	p := streakParticipant(1, 7, "2026-01-20")
	store := &countingParticipantStore{participant: p, checks: []*model.DailyCheck{
		{CheckDate: "2026-01-20", Active: true, StreakAfter: 7, MilestoneKind: "streak", MilestoneValue: 7, MilestonePostSent: true},
		{CheckDate: "2026-01-19", Active: true, StreakAfter: 6},
	}}
	svc := NewParticipantService(store, nil)

	data, err := svc.GetHistory(context.Background(), p.PublicID, 1000)
	require.NoError(t, err)
	assert.Equal(t, maxHistoryLimit, store.limit)
	require.Len(t, data.Items, 2)
	assert.True(t, data.Items[0].MilestonePosted)

	_, err = svc.GetHistory(context.Background(), p.PublicID, 0)
	require.NoError(t, err)
	assert.Equal(t, defaultHistoryLimit, store.limit)
}

func TestParsePublicID(t *testing.T) {
	id, err := ParsePublicID("1234")
	require.NoError(t, err)
	assert.Equal(t, int64(1234), id)

	for _, raw := range []string{"", "abc", "-1", "0"} {
		_, err := ParsePublicID(raw)
		assert.ErrorIs(t, err, pkgerrors.InvalidParticipantID, raw)
	}
}
