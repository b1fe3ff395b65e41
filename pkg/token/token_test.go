package token

import (
	"testing"
	"time"

	jwtv5 "github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"PushOrShame/config"
	"PushOrShame/pkg/errors"
)

func setup(t *testing.T) {
	t.Helper()
	prev := config.Cfg
	config.Cfg.JWTSecret = "test-secret-test-secret-test-secret"
	config.Cfg.JWTExpireMinutes = 30
	config.Cfg.JWTRefreshDays = 7
	require.NoError(t, Init())
	t.Cleanup(func() { config.Cfg = prev })
}

func TestGenerateAndParse(t *testing.T) {
	setup(t)

	tok, expiresAt, err := GenerateAccessToken("1005", 0)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(30*time.Minute), expiresAt, 5*time.Second)

	pid, err := ParseAccessToken(tok)
	require.NoError(t, err)
	assert.Equal(t, "1005", pid)
}

func TestParseRejectsExpiredAndForeignTokens(t *testing.T) {
	setup(t)

	tok, _, err := GenerateAccessToken("1005", -time.Minute)
	require.NoError(t, err)
	// ttl <= 0 使用默认有效期
	_, err = ParseAccessToken(tok)
	require.NoError(t, err)

	expired := jwtv5.NewWithClaims(jwtv5.SigningMethodHS256, jwtv5.MapClaims{
		IdentityKey: "1005",
		"exp":       time.Now().Add(-time.Hour).Unix(),
	})
	signed, err := expired.SignedString([]byte(config.Cfg.JWTSecret))
	require.NoError(t, err)
	_, err = ParseAccessToken(signed)
	assert.Error(t, err)

	foreign := jwtv5.NewWithClaims(jwtv5.SigningMethodHS256, jwtv5.MapClaims{IdentityKey: "1005"})
	signed, err = foreign.SignedString([]byte("another-secret"))
	require.NoError(t, err)
	_, err = ParseAccessToken(signed)
	assert.Error(t, err)
}

func TestIdentityFromClaims(t *testing.T) {
	pid, err := IdentityFromClaims(map[string]interface{}{IdentityKey: float64(42)})
	require.NoError(t, err)
	assert.Equal(t, "42", pid)

	_, err = IdentityFromClaims(map[string]interface{}{})
	assert.ErrorIs(t, err, errors.ErrParticipantIDNotFound)
}
