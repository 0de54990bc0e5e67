package llm

import (
	"math/rand"
	"time"
)

// RetryPolicy bounds retries of transient provider failures. It is passed
// into the Client explicitly so tests can inject a zero-delay policy.
type RetryPolicy struct {
	MaxAttempts int           // total attempts, including the first
	BaseDelay   time.Duration // delay before the second attempt
	MaxDelay    time.Duration // cap on any single delay
	Jitter      float64       // fraction of the delay randomized, 0..1
}

// DefaultRetryPolicy returns the production defaults: 3 attempts,
// exponential backoff starting at one second, capped at thirty.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 3,
		BaseDelay:   time.Second,
		MaxDelay:    30 * time.Second,
		Jitter:      0.2,
	}
}

// ZeroDelayPolicy retries immediately. For tests.
func ZeroDelayPolicy(attempts int) RetryPolicy {
	return RetryPolicy{MaxAttempts: attempts}
}

// Backoff returns the delay before the given retry attempt (attempt 0 is
// the delay before the first retry). Exponential, jittered, capped.
func (p RetryPolicy) Backoff(attempt int) time.Duration {
	if p.BaseDelay <= 0 {
		return 0
	}
	d := p.BaseDelay << uint(attempt)
	if p.MaxDelay > 0 && d > p.MaxDelay {
		d = p.MaxDelay
	}
	if p.Jitter > 0 {
		spread := float64(d) * p.Jitter
		d = time.Duration(float64(d) - spread/2 + rand.Float64()*spread)
	}
	return d
}
