package ratelimit

import (
	"fmt"
	"sync"
	"time"
)

// Config configures the two quota windows.
type Config struct {
	// ShortWindowCap is the number of requests allowed per short window
	// (e.g. 1 per second). Exceeding it delays, never fails.
	ShortWindowCap int
	ShortWindow    time.Duration

	// LongWindowCap is the hard quota per long window (e.g. 2000 per
	// month). Exceeding it is terminal until the window rolls over.
	LongWindowCap int
	LongWindow    time.Duration
}

// Decision is the outcome of a reservation check.
type Decision struct {
	// Allowed means the caller may proceed with one upstream request.
	Allowed bool

	// Wait is how long to wait before re-checking when soft-limited.
	Wait time.Duration

	// Terminal means the long-window quota is exhausted; waiting within
	// the request is pointless.
	Terminal bool

	// Reset is the time until the long window rolls over. Only set on
	// terminal decisions.
	Reset time.Duration
}

// Snapshot is a point-in-time view of the limiter state, for diagnostics.
type Snapshot struct {
	ShortCount int
	ShortCap   int
	ShortReset time.Duration
	LongCount  int
	LongCap    int
	LongReset  time.Duration
}

// QuotaExhaustedError reports that the long-window quota is spent.
type QuotaExhaustedError struct {
	Reset time.Duration
}

func (e *QuotaExhaustedError) Error() string {
	return fmt.Sprintf("search quota exhausted, resets in %s", e.Reset.Round(time.Second))
}

// Limiter enforces a soft short-window cap and a hard long-window quota
// over upstream search calls. Counters are process-local: multiple
// processes sharing one cache database do not share quota.
type Limiter struct {
	cfg Config
	now func() time.Time

	mu           sync.Mutex
	shortCount   int
	shortResetAt time.Time
	longCount    int
	longResetAt  time.Time
}

// New creates a limiter using the wall clock.
func New(cfg Config) *Limiter {
	return NewWithClock(cfg, time.Now)
}

// NewWithClock creates a limiter with an injectable clock for tests.
func NewWithClock(cfg Config, now func() time.Time) *Limiter {
	start := now()
	return &Limiter{
		cfg:          cfg,
		now:          now,
		shortResetAt: start.Add(cfg.ShortWindow),
		longResetAt:  start.Add(cfg.LongWindow),
	}
}

// CheckAndReserve reports whether one upstream request may proceed right
// now. It does not consume quota: consumption happens in Commit, after a
// successful response, so failed or retried attempts never count.
//
// The rollover and the check happen under one mutex hold so that two
// concurrent callers can never both observe the last remaining unit.
func (l *Limiter) CheckAndReserve() Decision {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	l.rollover(now)

	if l.longCount >= l.cfg.LongWindowCap {
		return Decision{Terminal: true, Reset: l.longResetAt.Sub(now)}
	}
	if l.shortCount >= l.cfg.ShortWindowCap {
		return Decision{Wait: l.shortResetAt.Sub(now)}
	}
	return Decision{Allowed: true}
}

// Commit consumes one unit of both windows. Call exactly once per
// successful upstream response, never per attempt.
func (l *Limiter) Commit() {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.rollover(l.now())
	l.shortCount++
	l.longCount++
}

// State returns a snapshot of the current counters.
func (l *Limiter) State() Snapshot {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	l.rollover(now)

	return Snapshot{
		ShortCount: l.shortCount,
		ShortCap:   l.cfg.ShortWindowCap,
		ShortReset: l.shortResetAt.Sub(now),
		LongCount:  l.longCount,
		LongCap:    l.cfg.LongWindowCap,
		LongReset:  l.longResetAt.Sub(now),
	}
}

// rollover resets any window whose boundary has passed. Counts reset at
// the boundary crossing only, never retroactively. Caller holds l.mu.
func (l *Limiter) rollover(now time.Time) {
	if !now.Before(l.shortResetAt) {
		l.shortCount = 0
		l.shortResetAt = now.Add(l.cfg.ShortWindow)
	}
	if !now.Before(l.longResetAt) {
		l.longCount = 0
		l.longResetAt = now.Add(l.cfg.LongWindow)
	}
}
