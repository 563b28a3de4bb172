package retry

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"testing"
	"time"

	"github.com/toolrack/websearch-mcp/internal/provider"
	"github.com/toolrack/websearch-mcp/internal/ratelimit"
)

// newTestOrchestrator returns an orchestrator whose sleeps are recorded
// instead of performed.
func newTestOrchestrator(policy Policy, limiter *ratelimit.Limiter) (*Orchestrator, *[]time.Duration) {
	o := New(policy, limiter, slog.Default())
	var sleeps []time.Duration
	o.sleep = func(ctx context.Context, d time.Duration) error {
		sleeps = append(sleeps, d)
		return nil
	}
	return o, &sleeps
}

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "i/o timeout" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

var _ net.Error = timeoutErr{}

func TestRunSucceedsFirstAttempt(t *testing.T) {
	o, sleeps := newTestOrchestrator(DefaultPolicy(), nil)

	calls := 0
	result, err := Run(context.Background(), o, "op", func(ctx context.Context) (string, error) {
		calls++
		return "ok", nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result != "ok" || calls != 1 {
		t.Errorf("expected one successful call, got %d calls, result %q", calls, result)
	}
	if len(*sleeps) != 0 {
		t.Errorf("expected no sleeps, got %v", *sleeps)
	}
}

func TestRunRetriesUpToMaxAttempts(t *testing.T) {
	o, sleeps := newTestOrchestrator(DefaultPolicy(), nil)

	calls := 0
	_, err := Run(context.Background(), o, "op", func(ctx context.Context) (string, error) {
		calls++
		return "", timeoutErr{}
	})
	if err == nil {
		t.Fatal("expected error after exhausted attempts")
	}
	if calls != 3 {
		t.Errorf("expected exactly 3 attempts, got %d", calls)
	}
	// Two sleeps between three attempts, none after the last.
	if len(*sleeps) != 2 {
		t.Errorf("expected 2 sleeps, got %d", len(*sleeps))
	}
	if !errors.As(err, new(timeoutErr)) {
		t.Errorf("expected wrapped original error, got %v", err)
	}
}

func TestRunTerminalErrorSurfacesImmediately(t *testing.T) {
	o, _ := newTestOrchestrator(DefaultPolicy(), nil)

	terminal := &provider.Error{Status: 403}
	calls := 0
	_, err := Run(context.Background(), o, "op", func(ctx context.Context) (string, error) {
		calls++
		return "", terminal
	})
	if calls != 1 {
		t.Errorf("terminal error should not retry, got %d attempts", calls)
	}
	var apiErr *provider.Error
	if !errors.As(err, &apiErr) || apiErr.Status != 403 {
		t.Errorf("expected the terminal error unwrapped by attempts, got %v", err)
	}
}

func TestRunHonorsRetryAfterHint(t *testing.T) {
	o, sleeps := newTestOrchestrator(DefaultPolicy(), nil)

	calls := 0
	result, err := Run(context.Background(), o, "op", func(ctx context.Context) (string, error) {
		calls++
		if calls == 1 {
			return "", &provider.Error{Status: 429, RetryAfter: 2 * time.Second}
		}
		return "ok", nil
	})
	if err != nil || result != "ok" {
		t.Fatalf("expected success on second attempt, got %q, %v", result, err)
	}
	if len(*sleeps) != 1 {
		t.Fatalf("expected one sleep, got %d", len(*sleeps))
	}
	// 2s hint with 10% jitter.
	got := (*sleeps)[0]
	if got < 1800*time.Millisecond || got > 2200*time.Millisecond {
		t.Errorf("expected delay near 2s, got %v", got)
	}
}

func TestRunBackoffGrowsAndStaysBounded(t *testing.T) {
	policy := DefaultPolicy()
	policy.MaxAttempts = 5
	o, sleeps := newTestOrchestrator(policy, nil)

	_, _ = Run(context.Background(), o, "op", func(ctx context.Context) (string, error) {
		return "", timeoutErr{}
	})

	if len(*sleeps) != 4 {
		t.Fatalf("expected 4 sleeps, got %d", len(*sleeps))
	}
	bound := time.Duration(float64(policy.MaxDelay) * (1 + policy.JitterFactor))
	for i, d := range *sleeps {
		if d < 0 || d > bound {
			t.Errorf("sleep %d out of bounds: %v", i, d)
		}
	}
	// Base schedule is 1s, 2s, 4s, 8s; with 10% jitter each sleep stays
	// within its own band, so the first must be under the second's floor
	// plus slack.
	if (*sleeps)[0] > (*sleeps)[1] {
		t.Errorf("expected growing backoff, got %v then %v", (*sleeps)[0], (*sleeps)[1])
	}
}

func TestRunContextCancellationAborts(t *testing.T) {
	o, _ := newTestOrchestrator(DefaultPolicy(), nil)

	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	_, err := Run(ctx, o, "op", func(ctx context.Context) (string, error) {
		calls++
		cancel()
		return "", timeoutErr{}
	})
	if calls != 1 {
		t.Errorf("expected no retry after cancellation, got %d attempts", calls)
	}
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestRunCommitsLimiterOnSuccessOnly(t *testing.T) {
	limiter := ratelimit.New(ratelimit.Config{
		ShortWindowCap: 10,
		ShortWindow:    time.Second,
		LongWindowCap:  10,
		LongWindow:     time.Hour,
	})
	o, _ := newTestOrchestrator(DefaultPolicy(), limiter)

	calls := 0
	_, err := Run(context.Background(), o, "op", func(ctx context.Context) (string, error) {
		calls++
		if calls < 3 {
			return "", timeoutErr{}
		}
		return "ok", nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// Three attempts, one success: exactly one unit consumed.
	if s := limiter.State(); s.LongCount != 1 {
		t.Errorf("expected 1 committed unit, got %d", s.LongCount)
	}
}

func TestRunQuotaExhaustedBeforeAnyAttempt(t *testing.T) {
	limiter := ratelimit.New(ratelimit.Config{
		ShortWindowCap: 10,
		ShortWindow:    time.Second,
		LongWindowCap:  0,
		LongWindow:     time.Hour,
	})
	o, _ := newTestOrchestrator(DefaultPolicy(), limiter)

	calls := 0
	_, err := Run(context.Background(), o, "op", func(ctx context.Context) (string, error) {
		calls++
		return "ok", nil
	})
	if calls != 0 {
		t.Errorf("expected no attempts with spent quota, got %d", calls)
	}
	var quotaErr *ratelimit.QuotaExhaustedError
	if !errors.As(err, &quotaErr) {
		t.Errorf("expected QuotaExhaustedError, got %v", err)
	}
}

func TestClassifyHTTP(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		retryable bool
		hint      time.Duration
	}{
		{
			name:      "rate limited with hint",
			err:       &provider.Error{Status: 429, RetryAfter: 5 * time.Second},
			retryable: true,
			hint:      5 * time.Second,
		},
		{
			name: "client error terminal",
			err:  &provider.Error{Status: 401},
		},
		{
			name: "server error terminal",
			err:  &provider.Error{Status: 503},
		},
		{
			name:      "network timeout",
			err:       timeoutErr{},
			retryable: true,
		},
		{
			name:      "attempt deadline",
			err:       context.DeadlineExceeded,
			retryable: true,
		},
		{
			name: "unknown error terminal",
			err:  errors.New("boom"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cls := ClassifyHTTP(tt.err)
			if cls.Retryable != tt.retryable {
				t.Errorf("retryable: expected %v, got %v", tt.retryable, cls.Retryable)
			}
			if cls.RetryAfter != tt.hint {
				t.Errorf("hint: expected %v, got %v", tt.hint, cls.RetryAfter)
			}
		})
	}
}
