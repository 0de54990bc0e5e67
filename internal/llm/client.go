// Package llm is the unified client adapter over the supported
// chat-completion providers. It dispatches on a ModelSpec's provider tag,
// rate-limits outbound calls per provider, and retries transient failures
// with bounded exponential backoff.
package llm

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Generator is the capability every provider transport satisfies.
type Generator interface {
	Name() string
	Generate(ctx context.Context, spec ModelSpec, msgs []Message) (*Response, error)
}

// Client routes generation requests to provider transports.
// It holds no per-call state and is safe for concurrent use.
type Client struct {
	providers map[Provider]Generator
	limiters  map[Provider]*rate.Limiter
	retry     RetryPolicy
	logger    *zap.Logger
}

// NewClient creates a Client over the given provider transports.
// requestsPerMinute <= 0 disables rate limiting.
func NewClient(providers map[Provider]Generator, retry RetryPolicy, requestsPerMinute int, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	limiters := make(map[Provider]*rate.Limiter, len(providers))
	for p := range providers {
		if requestsPerMinute > 0 {
			limiters[p] = rate.NewLimiter(rate.Every(time.Minute/time.Duration(requestsPerMinute)), 1)
		}
	}
	return &Client{
		providers: providers,
		limiters:  limiters,
		retry:     retry,
		logger:    logger,
	}
}

// Providers returns the set of configured provider tags.
func (c *Client) Providers() []Provider {
	out := make([]Provider, 0, len(c.providers))
	for p := range c.providers {
		out = append(out, p)
	}
	return out
}

// Generate produces the next assistant message for the given spec and
// history, or fails with a classified error. Transient failures are retried
// per the client's RetryPolicy; auth, malformed-response, and configuration
// failures surface immediately.
func (c *Client) Generate(ctx context.Context, spec ModelSpec, msgs []Message) (*Response, error) {
	gen, ok := c.providers[spec.Provider]
	if !ok {
		return nil, &Error{
			Kind:     KindConfig,
			Provider: spec.Provider,
			Message:  fmt.Sprintf("no transport configured for provider %q", spec.Provider),
		}
	}

	attempts := c.retry.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			delay := c.retry.Backoff(attempt - 1)
			c.logger.Debug("retrying provider call",
				zap.String("model", spec.ID()),
				zap.Int("attempt", attempt+1),
				zap.Duration("delay", delay))
			select {
			case <-ctx.Done():
				return nil, fmt.Errorf("llm: %w", ctx.Err())
			case <-time.After(delay):
			}
		}

		if lim := c.limiters[spec.Provider]; lim != nil {
			if err := lim.Wait(ctx); err != nil {
				return nil, fmt.Errorf("llm: %w", err)
			}
		}

		resp, err := gen.Generate(ctx, spec, msgs)
		if err == nil {
			return resp, nil
		}
		lastErr = err
		if ctx.Err() != nil {
			return nil, fmt.Errorf("llm: %w", ctx.Err())
		}
		if !IsRetryable(err) {
			return nil, err
		}
		c.logger.Warn("transient provider failure",
			zap.String("model", spec.ID()),
			zap.Int("attempt", attempt+1),
			zap.Error(err))
	}
	return nil, lastErr
}
