package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"PushOrShame/internal/milestone"
	"PushOrShame/internal/model"
	"PushOrShame/internal/schedule"
	"PushOrShame/internal/service"
	"PushOrShame/internal/stats"
	"PushOrShame/utils"
)

type fakeBackend struct {
	checkPublicID int64
	checkDate     time.Time
	checkResult   *service.CheckResult
	batchDate     time.Time
	batchReport   *schedule.BatchReport
	batchErr      error
	tokenTTL      time.Duration
}

func (b *fakeBackend) CheckParticipant(_ context.Context, publicID int64, date time.Time) (*service.CheckResult, error) {
	b.checkPublicID, b.checkDate = publicID, date
	return b.checkResult, nil
}

func (b *fakeBackend) RunBatch(_ context.Context, date time.Time) (*schedule.BatchReport, error) {
	b.batchDate = date
	return b.batchReport, b.batchErr
}

func (b *fakeBackend) IssueToken(publicID int64, ttl time.Duration) (string, time.Time, error) {
	b.tokenTTL = ttl
	return "tok-" + time.Unix(publicID, 0).UTC().Format("150405"), time.Date(2026, 1, 21, 0, 0, 0, 0, time.UTC), nil
}

func run(t *testing.T, backend Backend, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCommand(backend)
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestCommandPresence(t *testing.T) {
	cmd := NewRootCommand(&fakeBackend{})
	for _, name := range []string{"check", "batch", "token"} {
		sub, _, err := cmd.Find([]string{name})
		require.NoError(t, err)
		assert.Equal(t, name, sub.Name())
	}

	formatFlag := cmd.PersistentFlags().Lookup("format")
	require.NotNil(t, formatFlag)
	assert.Equal(t, "text", formatFlag.DefValue)
}

func TestCheckCommand_TextOutput(t *testing.T) {
	backend := &fakeBackend{checkResult: &service.CheckResult{
		Outcome:     service.OutcomeCompleted,
		Date:        "2026-01-20",
		Active:      true,
		Source:      model.ActivitySourceVerifier,
		Milestone:   &milestone.Milestone{Kind: milestone.KindStreak, Value: 7},
		Celebration: service.PostResult{Attempted: true, Sent: true, PostID: "p-1"},
		Stats:       stats.Stats{CurrentStreak: 7},
		NewBadges:   []string{"streak_7"},
	}}

	out, err := run(t, backend, "check", "--participant", "1005", "--date", "2026-01-20")
	require.NoError(t, err)
	assert.Equal(t, int64(1005), backend.checkPublicID)
	assert.Equal(t, "2026-01-20", utils.DateKey(backend.checkDate))
	assert.Contains(t, out, "outcome completed")
	assert.Contains(t, out, "milestone streak:7: sent p-1")
	assert.Contains(t, out, "streak_7")
}

func TestCheckCommand_JSONFailure(t *testing.T) {
	backend := &fakeBackend{checkResult: &service.CheckResult{
		Outcome: service.OutcomeVerificationFailed,
		Date:    "2026-01-20",
		Err:     errors.New("github unreachable"),
	}}

	out, err := run(t, backend, "check", "--participant", "1005", "--date", "2026-01-20", "--format", "json")
	require.Error(t, err)

	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "error", resp.Status)
	assert.Contains(t, resp.Error, "github unreachable")
}

func TestCheckCommand_RejectsBadInput(t *testing.T) {
	_, err := run(t, &fakeBackend{}, "check", "--participant", "abc")
	assert.Error(t, err)

	_, err = run(t, &fakeBackend{}, "check", "--participant", "1005", "--date", "20-01-2026")
	assert.Error(t, err)

	_, err = run(t, &fakeBackend{}, "check")
	assert.Error(t, err)

	_, err = run(t, &fakeBackend{}, "token", "--participant", "1005", "--format", "yaml")
	assert.Error(t, err)
}

func TestBatchCommand(t *testing.T) {
	backend := &fakeBackend{batchReport: &schedule.BatchReport{
		RunID: 9, Date: "2026-01-20", Eligible: 3, Active: 1, Inactive: 1, Failed: 1, CaughtUp: 2,
		Failures: []schedule.BatchFailure{{ParticipantID: 4, Date: "2026-01-19", Outcome: "verification_failed", Error: "timeout"}},
	}}

	out, err := run(t, backend, "batch", "--date", "2026-01-20")
	require.NoError(t, err)
	assert.Contains(t, out, "eligible: 3")
	assert.Contains(t, out, "caught up: 2")
	assert.Contains(t, out, "participant 4 2026-01-19 verification_failed: timeout")
}

func TestBatchCommand_DefaultsToYesterday(t *testing.T) {
	backend := &fakeBackend{batchReport: &schedule.BatchReport{}}
	_, err := run(t, backend, "batch")
	require.NoError(t, err)
	assert.Equal(t, utils.YesterdayWindow(time.Now()).Date, backend.batchDate)
}

func TestTokenCommand(t *testing.T) {
	backend := &fakeBackend{}
	out, err := run(t, backend, "token", "--participant", "1005", "--ttl", "2h", "--format", "json")
	require.NoError(t, err)
	assert.Equal(t, 2*time.Hour, backend.tokenTTL)

	var resp struct {
		Status string      `json:"status"`
		Data   tokenOutput `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.NotEmpty(t, resp.Data.AccessToken)
}
