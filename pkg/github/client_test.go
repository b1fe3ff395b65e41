package github

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"PushOrShame/pkg/errors"
	"PushOrShame/utils"
)

var testWindow = utils.DayWindow{
	Date:  time.Date(2026, 1, 20, 0, 0, 0, 0, time.UTC),
	Start: time.Date(2026, 1, 19, 15, 0, 0, 0, time.UTC),
	End:   time.Date(2026, 1, 20, 15, 0, 0, 0, time.UTC),
}

type fakeEvent struct {
	Type      string                 `json:"type"`
	CreatedAt time.Time              `json:"created_at"`
	Payload   map[string]interface{} `json:"payload"`
}

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(Config{BaseURL: srv.URL, PagesToScan: 3, Timeout: 2 * time.Second})
}

func TestCheckActivityCountsPushesInsideWindow(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/users/octocat/events", r.URL.Path)
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		assert.Equal(t, acceptHeader, r.Header.Get("Accept"))

		_ = json.NewEncoder(w).Encode([]fakeEvent{
			{Type: "PushEvent", CreatedAt: testWindow.End.Add(time.Minute), Payload: map[string]interface{}{"size": 9}},
			{Type: "PushEvent", CreatedAt: testWindow.Start.Add(2 * time.Hour), Payload: map[string]interface{}{"size": 2}},
			{Type: "WatchEvent", CreatedAt: testWindow.Start.Add(time.Hour)},
			{Type: "PushEvent", CreatedAt: testWindow.Start, Payload: map[string]interface{}{}},
			{Type: "PushEvent", CreatedAt: testWindow.Start.Add(-time.Second), Payload: map[string]interface{}{"size": 5}},
		})
	})

	occurred, count, err := client.CheckActivity(context.Background(), "octocat", "tok", testWindow)

	require.NoError(t, err)
	assert.True(t, occurred)
	assert.Equal(t, 3, count)
}

func TestCheckActivityNoPushes(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode([]fakeEvent{
			{Type: "IssuesEvent", CreatedAt: testWindow.Start.Add(time.Hour)},
		})
	})

	occurred, count, err := client.CheckActivity(context.Background(), "octocat", "tok", testWindow)

	require.NoError(t, err)
	assert.False(t, occurred)
	assert.Zero(t, count)
}

func TestCheckActivityPaginates(t *testing.T) {
	var calls int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		page := atomic.AddInt32(&calls, 1)
		assert.Equal(t, fmt.Sprint(page), r.URL.Query().Get("page"))

		if page == 1 {
			events := make([]fakeEvent, eventsPerPage)
			for i := range events {
				events[i] = fakeEvent{Type: "WatchEvent", CreatedAt: testWindow.End.Add(-time.Minute)}
			}
			_ = json.NewEncoder(w).Encode(events)
			return
		}
		_ = json.NewEncoder(w).Encode([]fakeEvent{
			{Type: "PushEvent", CreatedAt: testWindow.Start.Add(time.Hour), Payload: map[string]interface{}{"size": 1}},
		})
	})

	occurred, count, err := client.CheckActivity(context.Background(), "octocat", "tok", testWindow)

	require.NoError(t, err)
	assert.True(t, occurred)
	assert.Equal(t, 1, count)
	assert.EqualValues(t, 2, atomic.LoadInt32(&calls))
}

func TestCheckActivityErrorIsNotNoActivity(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "Bad credentials", http.StatusUnauthorized)
	})

	occurred, _, err := client.CheckActivity(context.Background(), "octocat", "expired", testWindow)

	require.Error(t, err)
	assert.False(t, occurred)
	assert.True(t, errors.IsVerificationError(err))
}

func TestCheckActivityRejectsInvalidHandle(t *testing.T) {
	client := NewClient(Config{BaseURL: "http://127.0.0.1:0"})

	_, _, err := client.CheckActivity(context.Background(), "../admin", "tok", testWindow)

	assert.True(t, errors.IsVerificationError(err))
}

func TestServerErrorsOpenBreaker(t *testing.T) {
	var calls int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadGateway)
	})

	for i := 0; i < 6; i++ {
		_, _, err := client.CheckActivity(context.Background(), "octocat", "tok", testWindow)
		require.Error(t, err)
		assert.True(t, errors.IsVerificationError(err))
	}

	assert.EqualValues(t, 5, atomic.LoadInt32(&calls))
}
