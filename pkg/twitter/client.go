// Package twitter 社交发帖网关：通过 X API v2 以参与者身份发帖。
package twitter

import (
	"bytes"
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"

	"PushOrShame/pkg/breaker"
	"PushOrShame/pkg/errors"
	"PushOrShame/pkg/logger"
)

// MaxPostLength X 的单帖字符上限
const MaxPostLength = 280

type Config struct {
	BaseURL       string
	RatePerSecond float64
	Timeout       time.Duration
}

type Client struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	breaker    *breaker.CircuitBreaker
}

func NewClient(cfg Config) *Client {
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
		breaker:    breaker.New("x_api", 5, time.Minute),
	}
}

// ValidateText 发帖前校验：非空且不超过上限
func ValidateText(text string) error {
	if strings.TrimSpace(text) == "" {
		return &errors.PostingError{Kind: "validation", Err: errors.PostTextInvalid}
	}
	if utf8.RuneCountInString(text) > MaxPostLength {
		return &errors.PostingError{Kind: "validation", Err: fmt.Errorf("%w: %d characters", errors.PostTextInvalid, utf8.RuneCountInString(text))}
	}
	if !utf8.ValidString(text) {
		return &errors.PostingError{Kind: "validation", Err: errors.PostTextInvalid}
	}
	return nil
}

type createTweetRequest struct {
	Text string `json:"text"`
}

type createTweetResponse struct {
	Data struct {
		ID   string `json:"id"`
		Text string `json:"text"`
	} `json:"data"`
}

// Post 成功返回帖子 ID，失败一律返回 PostingError
func (c *Client) Post(ctx context.Context, credential, text string) (string, error) {
	if err := ValidateText(text); err != nil {
		return "", err
	}
	if credential == "" {
		return "", &errors.PostingError{Kind: "auth", Err: errors.PostCredentialAbsent}
	}

	var id string
	err := c.breaker.Call(ctx, func(ctx context.Context) error {
		var err error
		id, err = c.create(ctx, credential, text)
		return err
	}, countsAgainstBreaker)
	if stderrors.Is(err, breaker.ErrOpen) {
		return "", &errors.PostingError{Kind: "breaker", Err: err}
	}
	if err != nil {
		return "", err
	}

	logger.Logger.Debug("Post published", zap.String("post_id", id))
	return id, nil
}

func (c *Client) create(ctx context.Context, credential, text string) (string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", &errors.PostingError{Kind: "rate", Err: err}
	}

	body, err := json.Marshal(createTweetRequest{Text: text})
	if err != nil {
		return "", &errors.PostingError{Kind: "encode", Err: err}
	}

	base := context.WithValue(ctx, oauth2.HTTPClient, c.httpClient)
	httpClient := oauth2.NewClient(base, oauth2.StaticTokenSource(&oauth2.Token{AccessToken: credential, TokenType: "Bearer"}))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/2/tweets", bytes.NewReader(body))
	if err != nil {
		return "", &errors.PostingError{Kind: "request", Err: err}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := httpClient.Do(req)
	if err != nil {
		return "", &errors.PostingError{Kind: "transport", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return "", &errors.PostingError{
			Kind:   "api",
			Status: resp.StatusCode,
			Err:    fmt.Errorf("unexpected response: %s", strings.TrimSpace(string(msg))),
		}
	}

	var out createTweetResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", &errors.PostingError{Kind: "decode", Err: err}
	}
	if out.Data.ID == "" {
		return "", &errors.PostingError{Kind: "decode", Err: fmt.Errorf("missing post id")}
	}
	return out.Data.ID, nil
}

// 401/403 是单个参与者的凭证问题，不触发熔断
func countsAgainstBreaker(err error) bool {
	if stderrors.Is(err, context.Canceled) {
		return false
	}
	var perr *errors.PostingError
	if !stderrors.As(err, &perr) {
		return true
	}
	return perr.Status == 0 || perr.Status == http.StatusTooManyRequests || perr.Status >= 500
}
