package engine

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/docsubmit/docsubmit/internal/core"
)

// ErrInvalidConfiguration is returned when a limiter is built with a
// non-positive quota or window.
var ErrInvalidConfiguration = errors.New("invalid rate limit configuration")

// Limiter decides whether a call may proceed right now.
type Limiter interface {
	Allow() bool
}

// RateLimit represents a rate limit window.
type RateLimit struct {
	RequestsPerWindow int
	WindowDuration    time.Duration
}

// Validate reports ErrInvalidConfiguration for non-positive values.
func (l RateLimit) Validate() error {
	if l.RequestsPerWindow <= 0 {
		return fmt.Errorf("%w: requests per window must be positive, got %d", ErrInvalidConfiguration, l.RequestsPerWindow)
	}
	if l.WindowDuration <= 0 {
		return fmt.Errorf("%w: window must be positive, got %s", ErrInvalidConfiguration, l.WindowDuration)
	}
	return nil
}

// WithMargin scales the quota by a ratio in (0, 1], keeping at least one request.
func (l RateLimit) WithMargin(margin float64) RateLimit {
	if margin <= 0 || margin >= 1 || l.RequestsPerWindow <= 0 {
		return l
	}
	adjusted := int(math.Floor(float64(l.RequestsPerWindow) * margin))
	if adjusted < 1 {
		adjusted = 1
	}
	l.RequestsPerWindow = adjusted
	return l
}

// WindowForUnit maps a time unit name to a window of exactly one unit.
func WindowForUnit(unit string) (time.Duration, error) {
	switch strings.ToLower(strings.TrimSpace(unit)) {
	case "ms", "millisecond", "milliseconds":
		return time.Millisecond, nil
	case "s", "second", "seconds":
		return time.Second, nil
	case "m", "minute", "minutes":
		return time.Minute, nil
	case "h", "hour", "hours":
		return time.Hour, nil
	case "d", "day", "days":
		return 24 * time.Hour, nil
	default:
		return 0, fmt.Errorf("%w: unknown time unit %q", ErrInvalidConfiguration, unit)
	}
}

// LimiterOption customizes a FixedWindowLimiter.
type LimiterOption func(*FixedWindowLimiter)

// WithClock overrides the time source. The default is time.Now, whose
// monotonic reading keeps window arithmetic immune to wall-clock steps.
func WithClock(clock func() time.Time) LimiterOption {
	return func(l *FixedWindowLimiter) {
		if clock != nil {
			l.clock = clock
		}
	}
}

// FixedWindowLimiter admits at most quota calls per window. The window opens
// on the first call and restarts on the first call made after it has elapsed.
// Rejected calls still count against the current window.
type FixedWindowLimiter struct {
	window time.Duration
	quota  int
	clock  func() time.Time

	mu          sync.Mutex
	windowStart time.Time
	count       int
}

// NewFixedWindowLimiter builds a limiter allowing quota calls per window.
func NewFixedWindowLimiter(window time.Duration, quota int, opts ...LimiterOption) (*FixedWindowLimiter, error) {
	if err := (RateLimit{RequestsPerWindow: quota, WindowDuration: window}).Validate(); err != nil {
		return nil, err
	}

	l := &FixedWindowLimiter{
		window: window,
		quota:  quota,
		clock:  time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l, nil
}

// NewLimiterFromRateLimit is a convenience wrapper around NewFixedWindowLimiter.
func NewLimiterFromRateLimit(limit RateLimit, opts ...LimiterOption) (*FixedWindowLimiter, error) {
	return NewFixedWindowLimiter(limit.WindowDuration, limit.RequestsPerWindow, opts...)
}

// Allow records an attempt and reports whether it fits in the current window.
func (l *FixedWindowLimiter) Allow() bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.clock()
	if l.windowStart.IsZero() || now.After(l.windowStart.Add(l.window)) {
		l.count = 0
		l.windowStart = now
	}

	l.count++
	return l.count <= l.quota
}

// Snapshot returns the current window state without recording an attempt.
func (l *FixedWindowLimiter) Snapshot() core.WindowState {
	l.mu.Lock()
	defer l.mu.Unlock()

	return core.WindowState{
		WindowStart: l.windowStart,
		Window:      l.window,
		Quota:       l.quota,
		Count:       l.count,
	}
}

// RetryAfter estimates how long a rejected caller should wait before the
// next call opens a new window. It returns zero when capacity remains.
func (l *FixedWindowLimiter) RetryAfter() time.Duration {
	state := l.Snapshot()
	if state.Remaining() > 0 || state.WindowStart.IsZero() {
		return 0
	}
	wait := state.ResetAt().Sub(l.clock())
	if wait < 0 {
		return 0
	}
	return wait
}

// Quota returns the configured admissions per window.
func (l *FixedWindowLimiter) Quota() int {
	return l.quota
}

// Window returns the configured window length.
func (l *FixedWindowLimiter) Window() time.Duration {
	return l.window
}
