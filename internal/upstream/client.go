// Package upstream talks to the public Habbo web API: user profiles, badges,
// groups, rooms, photos and friend lists.
package upstream

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/d60-Lab/habbo-feed/config"
	"github.com/d60-Lab/habbo-feed/internal/metrics"
	"github.com/d60-Lab/habbo-feed/internal/model"
	"github.com/d60-Lab/habbo-feed/pkg/logger"
)

// errNotFound marks a 404, which the public API returns for hidden profiles.
var errNotFound = errors.New("not found")

// Client is safe for concurrent use.
type Client struct {
	http        *resty.Client
	baseURL     string
	limiter     *rate.Limiter
	concurrency int
	now         func() time.Time
}

func New(cfg config.UpstreamConfig) *Client {
	c := resty.New().
		SetTimeout(cfg.Timeout).
		SetRetryCount(cfg.RetryCount).
		SetRetryWaitTime(200 * time.Millisecond).
		SetRetryMaxWaitTime(2 * time.Second).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			if err != nil {
				return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
			}
			return r.StatusCode() == http.StatusTooManyRequests || r.StatusCode() >= http.StatusInternalServerError
		}).
		SetHeader("Accept", "application/json")
	if cfg.UserAgent != "" {
		c.SetHeader("User-Agent", cfg.UserAgent)
	}

	limit := rate.Inf
	if cfg.RateLimit > 0 {
		limit = rate.Limit(cfg.RateLimit)
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 1
	}
	concurrency := cfg.Concurrency
	if concurrency <= 0 {
		concurrency = 4
	}
	return &Client{
		http:        c,
		baseURL:     cfg.BaseURL,
		limiter:     rate.NewLimiter(limit, burst),
		concurrency: concurrency,
		now:         time.Now,
	}
}

// Domain maps a hotel code to its web domain.
func Domain(hotel string) string {
	h := strings.ToLower(strings.TrimSpace(hotel))
	switch h {
	case "", "com", "us":
		return "com"
	case "br":
		return "com.br"
	case "tr":
		return "com.tr"
	default:
		return h
	}
}

func (c *Client) base(hotel string) string {
	if strings.Contains(c.baseURL, "%s") {
		return fmt.Sprintf(c.baseURL, Domain(hotel))
	}
	return strings.TrimRight(c.baseURL, "/")
}

// get issues a rate limited GET and decodes a 2xx JSON body into out.
func (c *Client) get(ctx context.Context, op, hotel, path string, out interface{}) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return c.classify(ctx, op, err)
	}
	resp, err := c.http.R().SetContext(ctx).Get(c.base(hotel) + path)
	if err != nil {
		return c.classify(ctx, op, err)
	}
	switch {
	case resp.StatusCode() == http.StatusNotFound:
		return errNotFound
	case resp.StatusCode() < 200 || resp.StatusCode() >= 300:
		metrics.UpstreamErrors.WithLabelValues(op, "failed").Inc()
		return fmt.Errorf("%w: %s %s: status %d", model.ErrFetchFailed, op, path, resp.StatusCode())
	}
	if err := json.Unmarshal(resp.Body(), out); err != nil {
		metrics.UpstreamErrors.WithLabelValues(op, "failed").Inc()
		return fmt.Errorf("%w: decode %s: %v", model.ErrFetchFailed, path, err)
	}
	return nil
}

func (c *Client) classify(ctx context.Context, op string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		metrics.UpstreamErrors.WithLabelValues(op, "timeout").Inc()
		return fmt.Errorf("%w: %s: %v", model.ErrFetchTimeout, op, err)
	}
	if errors.Is(err, context.Canceled) {
		return err
	}
	metrics.UpstreamErrors.WithLabelValues(op, "failed").Inc()
	return fmt.Errorf("%w: %s: %v", model.ErrFetchFailed, op, err)
}

func logSkip(op, hotel, userID string, err error) {
	logger.Warn("upstream user skipped",
		zap.String("op", op),
		zap.String("hotel", hotel),
		zap.String("user_id", userID),
		zap.Error(err),
	)
}
