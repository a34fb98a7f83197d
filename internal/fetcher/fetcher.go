// Package fetcher implements the retrying HTTP GET client used by the
// harvester. Every outbound request in a run goes through one Client.
package fetcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/aturner/newsharvest/internal/metrics"
)

// maxBodyBytes bounds how much of a response body is read.
const maxBodyBytes = 10 << 20

// Sentinel errors callers can test with errors.Is.
var (
	ErrPermanentStatus  = errors.New("permanent failure status")
	ErrRetriesExhausted = errors.New("retries exhausted")
)

// Result is a fully read HTTP response.
type Result struct {
	URL        string
	StatusCode int
	Header     http.Header
	Body       []byte
}

// Config controls Client behavior.
type Config struct {
	Timeout        time.Duration
	MaxAttempts    int
	BackoffBase    float64
	BackoffUnit    time.Duration // zero means one second
	UserAgents     []string
	AcceptLanguage string
}

// Client issues GET requests with rotating user agents and bounded retry.
// It owns the connection pool; no process-wide HTTP state is used.
type Client struct {
	cfg       Config
	direct    *http.Client
	following *http.Client
	retry     *RetryPolicy
	rng       *rand.Rand
	logger    *zap.Logger
}

// New builds a Client. The rng is the run's single randomness source,
// shared by user-agent rotation and backoff jitter.
func New(cfg Config, rng *rand.Rand, logger *zap.Logger) *Client {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.BackoffBase <= 1 {
		cfg.BackoffBase = 1.5
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	transport := &http.Transport{
		MaxIdleConns:        10,
		MaxIdleConnsPerHost: 4,
		IdleConnTimeout:     90 * time.Second,
	}
	return &Client{
		cfg: cfg,
		direct: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: transport,
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
		following: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: transport,
		},
		retry:  NewRetryPolicy(cfg.BackoffBase, cfg.BackoffUnit, rng),
		rng:    rng,
		logger: logger,
	}
}

type statusClass int

const (
	statusSuccess statusClass = iota
	statusPermanent
	statusRetryable
)

// classify maps a response status into the retry taxonomy. Redirect codes
// count as success only when redirects are not auto-followed; a following
// client surfaces them only when the redirect chain was cut short.
func classify(code int, followRedirects bool) statusClass {
	switch code {
	case http.StatusOK:
		return statusSuccess
	case http.StatusMovedPermanently, http.StatusFound:
		if !followRedirects {
			return statusSuccess
		}
		return statusRetryable
	case http.StatusForbidden, http.StatusNotFound, http.StatusGone:
		return statusPermanent
	default:
		return statusRetryable
	}
}

// Fetch issues a GET for rawURL, retrying retryable failures up to the
// configured attempt ceiling. Any returned error means the caller should
// skip this URL; ErrPermanentStatus and ErrRetriesExhausted distinguish
// the two terminal cases.
func (c *Client) Fetch(ctx context.Context, rawURL string, followRedirects bool) (*Result, error) {
	client := c.direct
	if followRedirects {
		client = c.following
	}

	var lastErr error
	for attempt := 1; attempt <= c.cfg.MaxAttempts; attempt++ {
		metrics.RecordFetchAttempt()

		res, err := c.attempt(ctx, client, rawURL)
		if err == nil {
			switch classify(res.StatusCode, followRedirects) {
			case statusSuccess:
				metrics.RecordPage(metrics.OutcomeSuccess)
				return res, nil
			case statusPermanent:
				c.logger.Warn("permanent failure status, not retrying",
					zap.String("url", rawURL),
					zap.Int("status", res.StatusCode))
				metrics.RecordPage(metrics.OutcomePermanent)
				return nil, fmt.Errorf("fetch %s: status %d: %w", rawURL, res.StatusCode, ErrPermanentStatus)
			case statusRetryable:
				err = fmt.Errorf("status %d", res.StatusCode)
			}
		}
		lastErr = err

		if ctx.Err() != nil {
			return nil, fmt.Errorf("fetch %s: %w", rawURL, ctx.Err())
		}
		if attempt == c.cfg.MaxAttempts {
			break
		}
		delay := c.retry.Backoff(attempt)
		c.logger.Warn("fetch attempt failed, backing off",
			zap.String("url", rawURL),
			zap.Int("attempt", attempt),
			zap.Duration("delay", delay),
			zap.Error(err))
		metrics.RecordFetchRetry()
		if !sleep(ctx, delay) {
			return nil, fmt.Errorf("fetch %s: %w", rawURL, ctx.Err())
		}
	}

	metrics.RecordPage(metrics.OutcomeExhausted)
	return nil, fmt.Errorf("fetch %s after %d attempts (last: %v): %w",
		rawURL, c.cfg.MaxAttempts, lastErr, ErrRetriesExhausted)
}

func (c *Client) attempt(ctx context.Context, client *http.Client, rawURL string) (*Result, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("User-Agent", c.pickUserAgent())
	if c.cfg.AcceptLanguage != "" {
		req.Header.Set("Accept-Language", c.cfg.AcceptLanguage)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			c.logger.Debug("close response body", zap.Error(cerr))
		}
	}()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	return &Result{
		URL:        resp.Request.URL.String(),
		StatusCode: resp.StatusCode,
		Header:     resp.Header.Clone(),
		Body:       body,
	}, nil
}

func (c *Client) pickUserAgent() string {
	if len(c.cfg.UserAgents) == 0 {
		return "newsharvest/0.1"
	}
	return c.cfg.UserAgents[c.rng.Intn(len(c.cfg.UserAgents))]
}

// sleep waits for the delay or the context, whichever ends first,
// reporting whether the full delay elapsed.
func sleep(ctx context.Context, delay time.Duration) bool {
	if delay <= 0 {
		return true
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
