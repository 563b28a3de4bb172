package retry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"net"
	"net/http"
	"time"

	"github.com/toolrack/websearch-mcp/internal/provider"
	"github.com/toolrack/websearch-mcp/internal/ratelimit"
)

// Classification is the retry decision for one failed attempt.
type Classification struct {
	// Retryable means another attempt may succeed.
	Retryable bool

	// RetryAfter is a server-provided delay hint. When positive it
	// replaces the computed backoff for the next attempt.
	RetryAfter time.Duration
}

// Classifier decides whether a failed attempt should be retried.
type Classifier func(err error) Classification

// Policy controls attempt count and backoff shape.
type Policy struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
	JitterFactor float64

	// Classify defaults to ClassifyHTTP when nil.
	Classify Classifier
}

// DefaultPolicy returns the standard upstream-fetch policy: three
// attempts, exponential backoff from 1s capped at 10s, 10% jitter.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts:  3,
		InitialDelay: 1 * time.Second,
		MaxDelay:     10 * time.Second,
		Multiplier:   2.0,
		JitterFactor: 0.1,
	}
}

// ClassifyHTTP is the default attempt classifier:
//   - API status 429 retries, honoring the Retry-After hint
//   - any other API status (4xx/5xx) is terminal
//   - network errors and attempt timeouts retry
func ClassifyHTTP(err error) Classification {
	var apiErr *provider.Error
	if errors.As(err, &apiErr) {
		if apiErr.Status == http.StatusTooManyRequests {
			return Classification{Retryable: true, RetryAfter: apiErr.RetryAfter}
		}
		return Classification{}
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return Classification{Retryable: true}
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return Classification{Retryable: true}
	}

	return Classification{}
}

// RetryAllErrors treats every failure as retryable. Suitable for calls
// whose errors carry no status information, such as embedding lookups.
func RetryAllErrors(error) Classification {
	return Classification{Retryable: true}
}

// Orchestrator runs operations under a retry policy, optionally gated by
// a rate limiter.
type Orchestrator struct {
	policy  Policy
	limiter *ratelimit.Limiter
	logger  *slog.Logger

	// sleep is swapped out in tests to avoid real waiting.
	sleep func(ctx context.Context, d time.Duration) error
}

// New creates an orchestrator. The limiter may be nil for operations
// without quota, such as embedding calls.
func New(policy Policy, limiter *ratelimit.Limiter, logger *slog.Logger) *Orchestrator {
	if policy.Classify == nil {
		policy.Classify = ClassifyHTTP
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{
		policy:  policy,
		limiter: limiter,
		logger:  logger,
		sleep:   sleepContext,
	}
}

// Run executes fn under the orchestrator's policy.
//
// Before every attempt the limiter (when present) is consulted: a soft
// limit waits out the window without consuming an attempt, a hard limit
// returns *ratelimit.QuotaExhaustedError immediately. After a successful
// attempt the limiter is committed exactly once.
//
// Terminal errors surface immediately. Retryable errors surface only
// once attempts are exhausted, wrapped with the attempt count.
func Run[T any](ctx context.Context, o *Orchestrator, label string, fn func(context.Context) (T, error)) (T, error) {
	var zero T
	var lastErr error

	for attempt := 1; attempt <= o.policy.MaxAttempts; attempt++ {
		if err := o.waitForQuota(ctx); err != nil {
			return zero, err
		}

		result, err := fn(ctx)
		if err == nil {
			if o.limiter != nil {
				o.limiter.Commit()
			}
			return result, nil
		}
		lastErr = err

		// The caller's context ending trumps any retry decision.
		if ctx.Err() != nil {
			return zero, fmt.Errorf("%s aborted: %w", label, ctx.Err())
		}

		cls := o.policy.Classify(err)
		if !cls.Retryable {
			return zero, err
		}
		if attempt == o.policy.MaxAttempts {
			break
		}

		delay := o.nextDelay(attempt, cls.RetryAfter)
		o.logger.Warn("retrying after failure",
			"operation", label,
			"attempt", attempt,
			"max_attempts", o.policy.MaxAttempts,
			"delay", delay,
			"error", err)
		if err := o.sleep(ctx, delay); err != nil {
			return zero, fmt.Errorf("%s aborted: %w", label, err)
		}
	}

	return zero, fmt.Errorf("%s failed after %d attempts: %w", label, o.policy.MaxAttempts, lastErr)
}

// waitForQuota blocks until the limiter admits one request, or returns
// the quota error when the long window is spent.
func (o *Orchestrator) waitForQuota(ctx context.Context) error {
	if o.limiter == nil {
		return nil
	}
	for {
		d := o.limiter.CheckAndReserve()
		if d.Allowed {
			return nil
		}
		if d.Terminal {
			return &ratelimit.QuotaExhaustedError{Reset: d.Reset}
		}
		o.logger.Debug("rate limited, waiting for window", "wait", d.Wait)
		if err := o.sleep(ctx, d.Wait); err != nil {
			return err
		}
	}
}

// nextDelay computes the sleep before attempt+1. A positive server hint
// wins over the exponential schedule; jitter applies either way. The
// result is clamped to [0, MaxDelay*(1+JitterFactor)].
func (o *Orchestrator) nextDelay(attempt int, hint time.Duration) time.Duration {
	p := o.policy

	delay := hint
	if delay <= 0 {
		delay = p.InitialDelay
		for i := 1; i < attempt; i++ {
			delay = time.Duration(float64(delay) * p.Multiplier)
			if delay >= p.MaxDelay {
				delay = p.MaxDelay
				break
			}
		}
	}
	if delay > p.MaxDelay {
		delay = p.MaxDelay
	}

	if p.JitterFactor > 0 {
		// Uniform in [-jitter, +jitter] around the base delay.
		offset := (rand.Float64()*2 - 1) * p.JitterFactor * float64(delay)
		delay += time.Duration(offset)
	}

	if delay < 0 {
		delay = 0
	}
	if max := time.Duration(float64(p.MaxDelay) * (1 + p.JitterFactor)); delay > max {
		delay = max
	}
	return delay
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
