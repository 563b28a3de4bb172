package ratelimit

import (
	"testing"
	"time"
)

// fakeClock is a manually advanced clock for limiter tests.
type fakeClock struct {
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Unix(1700000000, 0)}
}

func (c *fakeClock) Now() time.Time          { return c.now }
func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func testConfig() Config {
	return Config{
		ShortWindowCap: 1,
		ShortWindow:    time.Second,
		LongWindowCap:  2,
		LongWindow:     30 * 24 * time.Hour,
	}
}

func TestCheckAndReserveAllowsUnderCaps(t *testing.T) {
	clock := newFakeClock()
	l := NewWithClock(testConfig(), clock.Now)

	d := l.CheckAndReserve()
	if !d.Allowed {
		t.Fatalf("expected allowed, got %+v", d)
	}
}

func TestCheckDoesNotConsumeQuota(t *testing.T) {
	clock := newFakeClock()
	l := NewWithClock(testConfig(), clock.Now)

	// Repeated checks without commits never exhaust anything.
	for i := 0; i < 10; i++ {
		if d := l.CheckAndReserve(); !d.Allowed {
			t.Fatalf("check %d denied: %+v", i, d)
		}
	}
	if s := l.State(); s.ShortCount != 0 || s.LongCount != 0 {
		t.Errorf("counters moved without commit: %+v", s)
	}
}

func TestShortWindowDelays(t *testing.T) {
	clock := newFakeClock()
	l := NewWithClock(testConfig(), clock.Now)

	l.Commit()

	d := l.CheckAndReserve()
	if d.Allowed {
		t.Fatal("expected soft limit after one commit")
	}
	if d.Terminal {
		t.Fatal("short window must delay, not fail")
	}
	if d.Wait <= 0 || d.Wait > time.Second {
		t.Errorf("unexpected wait %v", d.Wait)
	}

	// After the window boundary the request goes through.
	clock.Advance(d.Wait)
	if d := l.CheckAndReserve(); !d.Allowed {
		t.Errorf("expected allowed after window rollover, got %+v", d)
	}
}

func TestLongWindowIsTerminal(t *testing.T) {
	clock := newFakeClock()
	l := NewWithClock(testConfig(), clock.Now)

	// Spend the full long-window quota, spacing commits past the short
	// window.
	l.Commit()
	clock.Advance(time.Second)
	l.Commit()

	d := l.CheckAndReserve()
	if d.Allowed || !d.Terminal {
		t.Fatalf("expected terminal decision, got %+v", d)
	}
	if d.Reset <= 0 {
		t.Errorf("expected positive reset duration, got %v", d.Reset)
	}

	// Waiting out the short window does not help.
	clock.Advance(time.Minute)
	if d := l.CheckAndReserve(); !d.Terminal {
		t.Errorf("expected terminal until long window resets, got %+v", d)
	}
}

func TestLongWindowRollover(t *testing.T) {
	cfg := testConfig()
	clock := newFakeClock()
	l := NewWithClock(cfg, clock.Now)

	l.Commit()
	clock.Advance(time.Second)
	l.Commit()

	if d := l.CheckAndReserve(); !d.Terminal {
		t.Fatalf("expected terminal, got %+v", d)
	}

	clock.Advance(cfg.LongWindow)
	if d := l.CheckAndReserve(); !d.Allowed {
		t.Errorf("expected allowed after long window rollover, got %+v", d)
	}
	if s := l.State(); s.LongCount != 0 {
		t.Errorf("expected long counter reset, got %d", s.LongCount)
	}
}

func TestStateSnapshot(t *testing.T) {
	clock := newFakeClock()
	l := NewWithClock(testConfig(), clock.Now)

	l.Commit()
	s := l.State()

	if s.ShortCount != 1 || s.ShortCap != 1 {
		t.Errorf("unexpected short window state: %+v", s)
	}
	if s.LongCount != 1 || s.LongCap != 2 {
		t.Errorf("unexpected long window state: %+v", s)
	}
	if s.LongReset <= 0 {
		t.Errorf("expected positive long reset, got %v", s.LongReset)
	}
}

func TestQuotaExhaustedErrorMessage(t *testing.T) {
	err := &QuotaExhaustedError{Reset: 90 * time.Minute}
	want := "search quota exhausted, resets in 1h30m0s"
	if err.Error() != want {
		t.Errorf("expected %q, got %q", want, err.Error())
	}
}
