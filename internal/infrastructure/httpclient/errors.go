package httpclient

import (
	"context"
	"errors"
	"fmt"

	"github.com/valyala/fasthttp"
)

// ErrRetriesExhausted is returned when every attempt allowed by the retry policy was throttled.
var ErrRetriesExhausted = errors.New("retries exhausted")

// HTTPError is a non-2xx response from an upstream API.
type HTTPError struct {
	URL        string
	StatusCode int
	Body       []byte
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("request to %s failed with status %d: %s", e.URL, e.StatusCode, string(e.Body))
}

// IsThrottled reports whether the upstream asked us to slow down.
func (e *HTTPError) IsThrottled() bool {
	return e.StatusCode == fasthttp.StatusTooManyRequests
}

// Outcome classifies the result of a fetch.
type Outcome string

const (
	OutcomeOK        Outcome = "ok"
	OutcomeThrottled Outcome = "throttled"
	OutcomeHTTPError Outcome = "http_error"
	OutcomeTransport Outcome = "transport_error"
	OutcomeCanceled  Outcome = "canceled"
)

// OutcomeOf maps an error returned by Fetch (or a single attempt) to its Outcome.
func OutcomeOf(err error) Outcome {
	if err == nil {
		return OutcomeOK
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return OutcomeCanceled
	}
	if errors.Is(err, ErrRetriesExhausted) {
		return OutcomeThrottled
	}
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		if httpErr.IsThrottled() {
			return OutcomeThrottled
		}
		return OutcomeHTTPError
	}
	return OutcomeTransport
}

// StatusCode extracts the upstream status code from err, or 0 when err carries none.
func StatusCode(err error) int {
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.StatusCode
	}
	return 0
}
