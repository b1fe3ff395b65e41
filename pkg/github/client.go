// Package github 活动校验：通过 GitHub events API 判断参与者在某一天是否 push 过代码。
package github

import (
	"context"
	stderrors "errors"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"

	"PushOrShame/pkg/breaker"
	"PushOrShame/pkg/errors"
	"PushOrShame/pkg/logger"
	"PushOrShame/utils"
)

const (
	eventsPerPage  = 100
	pushEventType  = "PushEvent"
	acceptHeader   = "application/vnd.github+json"
	apiVersion     = "2022-11-28"
	maxErrorBodyKB = 4
)

type Config struct {
	BaseURL       string
	RatePerSecond float64
	PagesToScan   int
	Timeout       time.Duration
}

type Client struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	breaker    *breaker.CircuitBreaker
	pages      int
}

func NewClient(cfg Config) *Client {
	if cfg.PagesToScan <= 0 {
		cfg.PagesToScan = 3
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	limit := rate.Inf
	if cfg.RatePerSecond > 0 {
		limit = rate.Limit(cfg.RatePerSecond)
	}

	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: &http.Client{Timeout: cfg.Timeout},
		limiter:    rate.NewLimiter(limit, 1),
		breaker:    breaker.New("github_api", 5, 30*time.Second),
		pages:      cfg.PagesToScan,
	}
}

type event struct {
	Type      string    `json:"type"`
	CreatedAt time.Time `json:"created_at"`
	Repo      struct {
		Name string `json:"name"`
	} `json:"repo"`
	Payload struct {
		Size         int               `json:"size"`
		DistinctSize int               `json:"distinct_size"`
		Commits      []json.RawMessage `json:"commits"`
	} `json:"payload"`
}

// commitCount 新版 events API 可能不再返回 size，依次回退到 commits 数、1
func (e event) commitCount() int {
	switch {
	case e.Payload.Size > 0:
		return e.Payload.Size
	case len(e.Payload.Commits) > 0:
		return len(e.Payload.Commits)
	default:
		return 1
	}
}

// CheckActivity 统计窗口内的 PushEvent 提交数。任何无法判定的情况都返回 VerificationError，
// 不会把错误当成"没有活动"
func (c *Client) CheckActivity(ctx context.Context, handle, credential string, window utils.DayWindow) (bool, int, error) {
	if !utils.ValidateGitHubHandle(handle) {
		return false, 0, &errors.VerificationError{Handle: handle, Err: fmt.Errorf("invalid handle")}
	}

	httpClient := c.httpClient
	if credential != "" {
		base := context.WithValue(ctx, oauth2.HTTPClient, c.httpClient)
		httpClient = oauth2.NewClient(base, oauth2.StaticTokenSource(&oauth2.Token{AccessToken: credential, TokenType: "Bearer"}))
	}

	count := 0
	for page := 1; page <= c.pages; page++ {
		var events []event
		err := c.breaker.Call(ctx, func(ctx context.Context) error {
			var err error
			events, err = c.fetchPage(ctx, httpClient, handle, page)
			return err
		}, countsAgainstBreaker)
		if err != nil {
			if stderrors.Is(err, breaker.ErrOpen) {
				return false, 0, &errors.VerificationError{Handle: handle, Err: err}
			}
			return false, 0, err
		}

		reachedStart := false
		for _, e := range events {
			if e.CreatedAt.Before(window.Start) {
				reachedStart = true
				continue
			}
			if e.Type == pushEventType && window.Contains(e.CreatedAt) {
				count += e.commitCount()
			}
		}

		if reachedStart || len(events) < eventsPerPage {
			break
		}
	}

	logger.Logger.Debug("GitHub activity checked",
		zap.String("handle", handle),
		zap.String("date", window.Key()),
		zap.Int("commits", count),
	)
	return count > 0, count, nil
}

func (c *Client) fetchPage(ctx context.Context, httpClient *http.Client, handle string, page int) ([]event, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, &errors.VerificationError{Handle: handle, Err: err}
	}

	endpoint := fmt.Sprintf("%s/users/%s/events?per_page=%d&page=%d",
		c.baseURL, url.PathEscape(handle), eventsPerPage, page)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, &errors.VerificationError{Handle: handle, Err: err}
	}
	req.Header.Set("Accept", acceptHeader)
	req.Header.Set("X-GitHub-Api-Version", apiVersion)

	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, &errors.VerificationError{Handle: handle, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyKB<<10))
		return nil, &errors.VerificationError{
			Handle: handle,
			Status: resp.StatusCode,
			Err:    fmt.Errorf("unexpected response: %s", strings.TrimSpace(string(body))),
		}
	}

	var events []event
	if err := json.NewDecoder(resp.Body).Decode(&events); err != nil {
		return nil, &errors.VerificationError{Handle: handle, Err: fmt.Errorf("decode events: %w", err)}
	}
	return events, nil
}

// 401/404 只和单个参与者有关，不触发熔断
func countsAgainstBreaker(err error) bool {
	if stderrors.Is(err, context.Canceled) {
		return false
	}
	var verr *errors.VerificationError
	if !stderrors.As(err, &verr) {
		return true
	}
	return verr.Status == 0 || verr.Status == http.StatusTooManyRequests || verr.Status >= 500 ||
		(verr.Status == http.StatusForbidden && rateLimited(verr))
}

func rateLimited(verr *errors.VerificationError) bool {
	return verr.Err != nil && strings.Contains(strings.ToLower(verr.Err.Error()), "rate limit")
}
