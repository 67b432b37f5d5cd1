package httpclient

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"
)

type recordingSleeper struct {
	mu     sync.Mutex
	delays []time.Duration
}

func (s *recordingSleeper) sleep(ctx context.Context, d time.Duration) error {
	s.mu.Lock()
	s.delays = append(s.delays, d)
	s.mu.Unlock()
	return ctx.Err()
}

type countingLimiter struct {
	calls atomic.Int32
}

func (l *countingLimiter) Wait(ctx context.Context) error {
	l.calls.Add(1)
	return ctx.Err()
}

func statusSequence(t *testing.T, codes ...int) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := int(hits.Add(1)) - 1
		code := codes[len(codes)-1]
		if n < len(codes) {
			code = codes[n]
		}
		w.WriteHeader(code)
		if code == http.StatusOK {
			w.Write([]byte(`{"ok":true}`))
			return
		}
		w.Write([]byte(`{"error":"nope"}`))
	}))
	t.Cleanup(srv.Close)
	return srv, &hits
}

func TestFetch_RetriesThrottledWithDoublingDelay(t *testing.T) {
	srv, hits := statusSequence(t, 429, 429, 200)
	sleeper := &recordingSleeper{}
	limiter := &countingLimiter{}

	f := NewFetcher("test", zaptest.NewLogger(t),
		WithLimiter(limiter),
		WithRetryPolicy(RetryPolicy{MaxRetries: 3, BaseDelay: 10 * time.Second}),
		WithSleeper(sleeper.sleep),
	)

	body, err := f.Fetch(context.Background(), Request{URL: srv.URL})
	if err != nil {
		t.Fatalf("Fetch returned error: %v", err)
	}
	if string(body) != `{"ok":true}` {
		t.Errorf("body = %s", body)
	}
	if got := hits.Load(); got != 3 {
		t.Errorf("server hits = %d, want 3", got)
	}
	if got := limiter.calls.Load(); got != 3 {
		t.Errorf("limiter waits = %d, want one per attempt (3)", got)
	}

	want := []time.Duration{10 * time.Second, 20 * time.Second}
	if len(sleeper.delays) != len(want) {
		t.Fatalf("delays = %v, want %v", sleeper.delays, want)
	}
	for i := range want {
		if sleeper.delays[i] != want[i] {
			t.Errorf("delay[%d] = %s, want %s", i, sleeper.delays[i], want[i])
		}
	}
}

func TestFetch_ExhaustsAfterMaxRetries(t *testing.T) {
	srv, hits := statusSequence(t, 429)
	sleeper := &recordingSleeper{}

	f := NewFetcher("test", zaptest.NewLogger(t),
		WithRetryPolicy(RetryPolicy{MaxRetries: 3, BaseDelay: time.Second}),
		WithSleeper(sleeper.sleep),
	)

	_, err := f.Fetch(context.Background(), Request{URL: srv.URL})
	if !errors.Is(err, ErrRetriesExhausted) {
		t.Fatalf("expected ErrRetriesExhausted, got %v", err)
	}
	if got := hits.Load(); got != 4 {
		t.Errorf("server hits = %d, want 4", got)
	}
	if StatusCode(err) != http.StatusTooManyRequests {
		t.Errorf("wrapped status = %d, want 429", StatusCode(err))
	}
	if OutcomeOf(err) != OutcomeThrottled {
		t.Errorf("outcome = %s, want %s", OutcomeOf(err), OutcomeThrottled)
	}
}

func TestFetch_DoesNotRetryOtherStatuses(t *testing.T) {
	for _, code := range []int{http.StatusBadRequest, http.StatusNotFound, http.StatusInternalServerError} {
		t.Run(http.StatusText(code), func(t *testing.T) {
			srv, hits := statusSequence(t, code)
			sleeper := &recordingSleeper{}
			f := NewFetcher("test", zaptest.NewLogger(t), WithSleeper(sleeper.sleep))

			_, err := f.Fetch(context.Background(), Request{URL: srv.URL})
			var httpErr *HTTPError
			if !errors.As(err, &httpErr) {
				t.Fatalf("expected *HTTPError, got %v", err)
			}
			if httpErr.StatusCode != code {
				t.Errorf("status = %d, want %d", httpErr.StatusCode, code)
			}
			if string(httpErr.Body) != `{"error":"nope"}` {
				t.Errorf("body = %s", httpErr.Body)
			}
			if hits.Load() != 1 {
				t.Errorf("server hits = %d, want 1", hits.Load())
			}
			if len(sleeper.delays) != 0 {
				t.Errorf("unexpected backoff sleeps: %v", sleeper.delays)
			}
			if OutcomeOf(err) != OutcomeHTTPError {
				t.Errorf("outcome = %s", OutcomeOf(err))
			}
		})
	}
}

func TestFetch_SendsHeaders(t *testing.T) {
	gotKey := make(chan string, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotKey <- r.Header.Get("X-Cg-Api-Key")
		w.Write([]byte("[]"))
	}))
	defer srv.Close()

	f := NewFetcher("test", zaptest.NewLogger(t))
	if _, err := f.Fetch(context.Background(), Request{
		URL:    srv.URL,
		Header: map[string]string{"X-Cg-Api-Key": "secret"},
	}); err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if key := <-gotKey; key != "secret" {
		t.Errorf("header = %q, want secret", key)
	}
}

func TestFetch_CanceledDuringBackoff(t *testing.T) {
	srv, hits := statusSequence(t, 429)
	ctx, cancel := context.WithCancel(context.Background())

	f := NewFetcher("test", zaptest.NewLogger(t),
		WithRetryPolicy(RetryPolicy{MaxRetries: 5, BaseDelay: time.Hour}),
		WithSleeper(func(ctx context.Context, d time.Duration) error {
			cancel()
			return ctx.Err()
		}),
	)

	_, err := f.Fetch(ctx, Request{URL: srv.URL})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if hits.Load() != 1 {
		t.Errorf("server hits = %d, want 1", hits.Load())
	}
	if OutcomeOf(err) != OutcomeCanceled {
		t.Errorf("outcome = %s", OutcomeOf(err))
	}
}

func TestFetch_TransportErrorNotRetried(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	sleeper := &recordingSleeper{}
	f := NewFetcher("test", zaptest.NewLogger(t), WithSleeper(sleeper.sleep), WithTimeout(2*time.Second))

	_, err := f.Fetch(context.Background(), Request{URL: url})
	if err == nil {
		t.Fatal("expected an error from a closed server")
	}
	if len(sleeper.delays) != 0 {
		t.Errorf("transport errors should not back off, got %v", sleeper.delays)
	}
	if OutcomeOf(err) != OutcomeTransport {
		t.Errorf("outcome = %s, want %s", OutcomeOf(err), OutcomeTransport)
	}
}

func TestRetryPolicy_Backoff(t *testing.T) {
	tests := []struct {
		name    string
		policy  RetryPolicy
		attempt int
		want    time.Duration
	}{
		{"first", RetryPolicy{BaseDelay: time.Second, MaxDelay: 32 * time.Second}, 0, time.Second},
		{"third", RetryPolicy{BaseDelay: time.Second, MaxDelay: 32 * time.Second}, 2, 4 * time.Second},
		{"at cap", RetryPolicy{BaseDelay: time.Second, MaxDelay: 32 * time.Second}, 5, 32 * time.Second},
		{"capped", RetryPolicy{BaseDelay: time.Second, MaxDelay: 32 * time.Second}, 6, 32 * time.Second},
		{"uncapped", RetryPolicy{BaseDelay: 10 * time.Second}, 2, 40 * time.Second},
		{"huge attempt capped", RetryPolicy{BaseDelay: time.Second, MaxDelay: time.Minute}, 100, time.Minute},
		{"negative attempt", RetryPolicy{BaseDelay: time.Second}, -1, time.Second},
		{"uncapped overflow", RetryPolicy{BaseDelay: 10 * time.Second}, 30, maxBackoff},
		{"uncapped huge attempt", RetryPolicy{BaseDelay: 10 * time.Second}, 1000, maxBackoff},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.policy.Backoff(tt.attempt); got != tt.want {
				t.Errorf("Backoff(%d) = %s, want %s", tt.attempt, got, tt.want)
			}
		})
	}
}

func TestRetryPolicy_BackoffNeverShrinks(t *testing.T) {
	p := RetryPolicy{BaseDelay: 10 * time.Second}
	prev := p.Backoff(0)
	for attempt := 1; attempt <= 64; attempt++ {
		got := p.Backoff(attempt)
		if got < prev {
			t.Fatalf("Backoff(%d) = %s, smaller than Backoff(%d) = %s", attempt, got, attempt-1, prev)
		}
		prev = got
	}
}

func TestFetch_DelaysCappedForSocialPolicy(t *testing.T) {
	srv, _ := statusSequence(t, 429)
	sleeper := &recordingSleeper{}
	f := NewFetcher("social", zaptest.NewLogger(t),
		WithRetryPolicy(RetryPolicy{MaxRetries: 7, BaseDelay: time.Second, MaxDelay: 32 * time.Second}),
		WithSleeper(sleeper.sleep),
	)

	_, _ = f.Fetch(context.Background(), Request{URL: srv.URL})

	want := []time.Duration{1, 2, 4, 8, 16, 32, 32}
	if len(sleeper.delays) != len(want) {
		t.Fatalf("delays = %v", sleeper.delays)
	}
	for i, w := range want {
		if sleeper.delays[i] != w*time.Second {
			t.Errorf("delay[%d] = %s, want %s", i, sleeper.delays[i], w*time.Second)
		}
	}
}
