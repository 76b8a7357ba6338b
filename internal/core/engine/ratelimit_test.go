package engine

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func TestFixedWindowLimiterQuota(t *testing.T) {
	clock := newFakeClock()
	limiter, err := NewFixedWindowLimiter(time.Minute, 3, WithClock(clock.Now))
	require.NoError(t, err)

	require.True(t, limiter.Allow())
	require.True(t, limiter.Allow())
	require.True(t, limiter.Allow())
	require.False(t, limiter.Allow())
	require.False(t, limiter.Allow())
}

func TestFixedWindowLimiterTimeline(t *testing.T) {
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	steps := []struct {
		at      time.Duration
		allowed bool
	}{
		{0, true},
		{1 * time.Millisecond, true},
		{2 * time.Millisecond, true},
		{3 * time.Millisecond, false},
		{61000 * time.Millisecond, true},
	}

	var now time.Time
	limiter, err := NewFixedWindowLimiter(60*time.Second, 3, WithClock(func() time.Time { return now }))
	require.NoError(t, err)

	for _, step := range steps {
		now = start.Add(step.at)
		require.Equal(t, step.allowed, limiter.Allow(), "call at %s", step.at)
	}
}

func TestFixedWindowLimiterFullQuotaAfterRollover(t *testing.T) {
	clock := newFakeClock()
	limiter, err := NewFixedWindowLimiter(time.Minute, 3, WithClock(clock.Now))
	require.NoError(t, err)

	first := make([]bool, 0, 5)
	for i := 0; i < 5; i++ {
		first = append(first, limiter.Allow())
	}
	require.Equal(t, []bool{true, true, true, false, false}, first)

	clock.Advance(time.Minute + time.Nanosecond)

	second := make([]bool, 0, 4)
	for i := 0; i < 4; i++ {
		second = append(second, limiter.Allow())
	}
	require.Equal(t, []bool{true, true, true, false}, second)

	state := limiter.Snapshot()
	require.Equal(t, clock.Now(), state.WindowStart)
	require.Equal(t, 4, state.Count)
}

func TestFixedWindowLimiterDefaultClockIsMonotonic(t *testing.T) {
	limiter, err := NewFixedWindowLimiter(time.Hour, 1)
	require.NoError(t, err)

	require.True(t, limiter.Allow())

	// Round(0) strips the monotonic reading; a time.Now default keeps it.
	start := limiter.Snapshot().WindowStart
	require.NotEqual(t, start.Round(0).String(), start.String())
}

func TestFixedWindowLimiterBoundaryIsExclusive(t *testing.T) {
	clock := newFakeClock()
	limiter, err := NewFixedWindowLimiter(time.Second, 1, WithClock(clock.Now))
	require.NoError(t, err)

	require.True(t, limiter.Allow())

	// Exactly one window later the window has not yet elapsed.
	clock.Advance(time.Second)
	require.False(t, limiter.Allow())

	clock.Advance(time.Millisecond)
	require.True(t, limiter.Allow())
}

func TestFixedWindowLimiterWindowAnchorsToCrossingCall(t *testing.T) {
	clock := newFakeClock()
	limiter, err := NewFixedWindowLimiter(10*time.Second, 1, WithClock(clock.Now))
	require.NoError(t, err)

	require.True(t, limiter.Allow())

	clock.Advance(25 * time.Second)
	require.True(t, limiter.Allow())
	crossing := clock.Now()

	clock.Advance(9 * time.Second)
	require.False(t, limiter.Allow())

	state := limiter.Snapshot()
	require.Equal(t, crossing, state.WindowStart)
	require.Equal(t, crossing.Add(10*time.Second), state.ResetAt())
}

func TestFixedWindowLimiterRejectedCallsConsumeCounter(t *testing.T) {
	clock := newFakeClock()
	limiter, err := NewFixedWindowLimiter(time.Minute, 2, WithClock(clock.Now))
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		limiter.Allow()
	}

	state := limiter.Snapshot()
	require.Equal(t, 5, state.Count)
	require.Equal(t, 0, state.Remaining())
}

func TestFixedWindowLimiterFirstCallOpensWindow(t *testing.T) {
	clock := newFakeClock()
	limiter, err := NewFixedWindowLimiter(time.Hour, 1, WithClock(clock.Now))
	require.NoError(t, err)

	state := limiter.Snapshot()
	require.True(t, state.WindowStart.IsZero())
	require.True(t, state.ResetAt().IsZero())
	require.Equal(t, 1, state.Remaining())

	require.True(t, limiter.Allow())
	require.Equal(t, clock.Now(), limiter.Snapshot().WindowStart)
}

func TestFixedWindowLimiterRetryAfter(t *testing.T) {
	clock := newFakeClock()
	limiter, err := NewFixedWindowLimiter(time.Minute, 1, WithClock(clock.Now))
	require.NoError(t, err)

	require.Zero(t, limiter.RetryAfter())
	require.True(t, limiter.Allow())

	clock.Advance(20 * time.Second)
	require.Equal(t, 40*time.Second, limiter.RetryAfter())

	clock.Advance(2 * time.Minute)
	require.Zero(t, limiter.RetryAfter())
}

func TestFixedWindowLimiterConcurrentCallers(t *testing.T) {
	const (
		quota   = 25
		callers = 200
	)

	clock := newFakeClock()
	limiter, err := NewFixedWindowLimiter(time.Hour, quota, WithClock(clock.Now))
	require.NoError(t, err)

	var (
		wg      sync.WaitGroup
		allowed atomic.Int64
		start   = make(chan struct{})
	)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			if limiter.Allow() {
				allowed.Add(1)
			}
		}()
	}
	close(start)
	wg.Wait()

	require.Equal(t, int64(quota), allowed.Load())
	require.Equal(t, callers, limiter.Snapshot().Count)
}

func TestNewFixedWindowLimiterRejectsInvalidConfiguration(t *testing.T) {
	tests := []struct {
		name   string
		window time.Duration
		quota  int
	}{
		{"zero quota", time.Minute, 0},
		{"negative quota", time.Minute, -1},
		{"zero window", 0, 1},
		{"negative window", -time.Second, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			limiter, err := NewFixedWindowLimiter(tt.window, tt.quota)
			require.Nil(t, limiter)
			require.True(t, errors.Is(err, ErrInvalidConfiguration))
		})
	}
}

func TestWindowForUnit(t *testing.T) {
	tests := map[string]time.Duration{
		"millisecond": time.Millisecond,
		"SECONDS":     time.Second,
		"minute":      time.Minute,
		" hours ":     time.Hour,
		"day":         24 * time.Hour,
	}
	for unit, expected := range tests {
		window, err := WindowForUnit(unit)
		require.NoError(t, err, unit)
		require.Equal(t, expected, window, unit)
	}

	_, err := WindowForUnit("fortnight")
	require.ErrorIs(t, err, ErrInvalidConfiguration)
}

func TestRateLimitMargin(t *testing.T) {
	limit := RateLimit{RequestsPerWindow: 10, WindowDuration: time.Minute}
	require.Equal(t, 9, limit.WithMargin(0.9).RequestsPerWindow)
	require.Equal(t, 10, limit.WithMargin(0).RequestsPerWindow)
	require.Equal(t, 10, limit.WithMargin(1.5).RequestsPerWindow)
	require.Equal(t, 1, RateLimit{RequestsPerWindow: 1, WindowDuration: time.Minute}.WithMargin(0.1).RequestsPerWindow)
}

func TestTrackedLimiterReportsDecisions(t *testing.T) {
	limiter, err := NewFixedWindowLimiter(time.Minute, 1)
	require.NoError(t, err)

	var decisions []string
	tracked := NewTrackedLimiter(limiter, func(decision string) {
		decisions = append(decisions, decision)
	})

	require.True(t, tracked.Allow())
	require.False(t, tracked.Allow())
	require.Equal(t, []string{DecisionAllowed, DecisionRejected}, decisions)

	passthrough := NewTrackedLimiter(limiter, nil)
	require.False(t, passthrough.Allow())
}
