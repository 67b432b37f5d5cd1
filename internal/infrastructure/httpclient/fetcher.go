package httpclient

import (
	"context"
	"errors"
	"fmt"
	"time"

	"memecoin_tracker/internal/pkg/metrics"
	"memecoin_tracker/internal/pkg/utils"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"
)

const defaultTimeout = 30 * time.Second

// Request describes one outbound call.
type Request struct {
	Method string // defaults to GET
	URL    string
	Header map[string]string
}

// Limiter gates every attempt made by a Fetcher.
type Limiter interface {
	Wait(ctx context.Context) error
}

// Fetcher performs HTTP requests through a limiter and retries throttled responses
// with exponential backoff.
type Fetcher struct {
	name    string
	client  *fasthttp.Client
	limiter Limiter
	policy  RetryPolicy
	timeout time.Duration
	logger  *zap.Logger
	sleep   func(ctx context.Context, d time.Duration) error
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithLimiter sets the limiter waited on before each attempt.
func WithLimiter(l Limiter) Option {
	return func(f *Fetcher) {
		f.limiter = l
	}
}

// WithRetryPolicy sets the retry configuration.
func WithRetryPolicy(p RetryPolicy) Option {
	return func(f *Fetcher) {
		f.policy = p
	}
}

// WithTimeout sets the per-attempt timeout used when the context carries no deadline.
func WithTimeout(d time.Duration) Option {
	return func(f *Fetcher) {
		if d > 0 {
			f.timeout = d
		}
	}
}

// WithClient sets a custom fasthttp client.
func WithClient(c *fasthttp.Client) Option {
	return func(f *Fetcher) {
		f.client = c
	}
}

// WithSleeper replaces the backoff sleep, mainly for tests.
func WithSleeper(sleep func(ctx context.Context, d time.Duration) error) Option {
	return func(f *Fetcher) {
		f.sleep = sleep
	}
}

// NewFetcher creates a Fetcher. name labels its logs and metrics.
func NewFetcher(name string, logger *zap.Logger, opts ...Option) *Fetcher {
	f := &Fetcher{
		name:    name,
		client:  &fasthttp.Client{},
		policy:  RetryPolicy{MaxRetries: 3, BaseDelay: time.Second},
		timeout: defaultTimeout,
		logger:  logger.Named("Fetcher").With(zap.String("fetcher", name)),
		sleep:   utils.Sleep,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Fetch performs req and returns the response body of the first 2xx response.
// Throttled responses (429) are retried up to policy.MaxRetries times; any other
// non-2xx status fails immediately with *HTTPError.
func (f *Fetcher) Fetch(ctx context.Context, req Request) ([]byte, error) {
	var lastErr error

	for attempt := 0; attempt <= f.policy.MaxRetries; attempt++ {
		if attempt > 0 {
			delay := f.policy.Backoff(attempt - 1)
			f.logger.Info("Rate limited, waiting before retry",
				zap.String("url", req.URL),
				zap.Duration("delay", delay),
				zap.Int("retry", attempt),
				zap.Int("maxRetries", f.policy.MaxRetries))
			metrics.FetchRetries.WithLabelValues(f.name).Inc()

			if err := f.sleep(ctx, delay); err != nil {
				return nil, fmt.Errorf("backoff before retry %d interrupted: %w", attempt, err)
			}
		}

		if f.limiter != nil {
			waitStart := time.Now()
			if err := f.limiter.Wait(ctx); err != nil {
				return nil, fmt.Errorf("rate limiter wait failed: %w", err)
			}
			metrics.LimiterWait.WithLabelValues(f.name).Observe(time.Since(waitStart).Seconds())
		}

		body, err := f.do(ctx, req)
		metrics.FetchAttempts.WithLabelValues(f.name, string(OutcomeOf(err))).Inc()
		if err == nil {
			return body, nil
		}
		lastErr = err

		var httpErr *HTTPError
		if !errors.As(err, &httpErr) || !httpErr.IsThrottled() {
			return nil, err
		}
	}

	f.logger.Warn("Giving up after repeated throttling",
		zap.String("url", req.URL),
		zap.Int("attempts", f.policy.MaxRetries+1))
	return nil, fmt.Errorf("%w after %d attempts: %w", ErrRetriesExhausted, f.policy.MaxRetries+1, lastErr)
}

// do performs a single attempt.
func (f *Fetcher) do(ctx context.Context, r Request) ([]byte, error) {
	req := fasthttp.AcquireRequest()
	defer fasthttp.ReleaseRequest(req)
	req.SetRequestURI(r.URL)
	method := r.Method
	if method == "" {
		method = fasthttp.MethodGet
	}
	req.Header.SetMethod(method)
	for k, v := range r.Header {
		req.Header.Set(k, v)
	}

	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseResponse(resp)

	f.logger.Debug("Sending request", zap.String("method", method), zap.String("url", r.URL))

	deadline, ok := ctx.Deadline()
	if ok && time.Until(deadline) < f.timeout {
		if err := f.client.DoDeadline(req, resp, deadline); err != nil {
			return nil, fmt.Errorf("failed to execute request to %s: %w", r.URL, err)
		}
	} else {
		if err := f.client.DoTimeout(req, resp, f.timeout); err != nil {
			return nil, fmt.Errorf("failed to execute request to %s with timeout %s: %w", r.URL, f.timeout, err)
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// resp is released on return; keep our own copy of the body.
	body := append([]byte(nil), resp.Body()...)
	status := resp.StatusCode()
	if status < 200 || status >= 300 {
		f.logger.Debug("Upstream returned non-success status",
			zap.String("url", r.URL),
			zap.Int("statusCode", status))
		return nil, &HTTPError{URL: r.URL, StatusCode: status, Body: body}
	}
	return body, nil
}
