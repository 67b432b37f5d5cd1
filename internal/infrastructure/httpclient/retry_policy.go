package httpclient

import (
	"math"
	"time"
)

// maxBackoff is returned when an uncapped delay no longer fits in a time.Duration.
const maxBackoff = time.Duration(math.MaxInt64)

// RetryPolicy controls how throttled requests are retried.
type RetryPolicy struct {
	MaxRetries int           // retries after the first attempt
	BaseDelay  time.Duration // delay before the first retry
	MaxDelay   time.Duration // cap on a single delay; 0 means uncapped
}

// Backoff returns the delay before retry number attempt+1: BaseDelay * 2^attempt, capped at MaxDelay.
func (p RetryPolicy) Backoff(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	if p.BaseDelay <= 0 {
		return 0
	}
	ceiling := maxBackoff
	if p.MaxDelay > 0 {
		ceiling = p.MaxDelay
	}

	delay := p.BaseDelay
	for i := 0; i < attempt; i++ {
		if delay > ceiling/2 {
			return ceiling
		}
		delay *= 2
	}
	if delay > ceiling {
		return ceiling
	}
	return delay
}
