package engine

// Decision labels passed to a TrackedLimiter observer.
const (
	DecisionAllowed  = "allowed"
	DecisionRejected = "rejected"
)

// TrackedLimiter reports every decision of the wrapped limiter to an observer.
// It never changes the decision.
type TrackedLimiter struct {
	Limiter
	observe func(decision string)
}

// NewTrackedLimiter wraps limiter. A nil observer makes it a pass-through.
func NewTrackedLimiter(limiter Limiter, observe func(decision string)) *TrackedLimiter {
	return &TrackedLimiter{Limiter: limiter, observe: observe}
}

// Allow delegates to the wrapped limiter and reports the result.
func (t *TrackedLimiter) Allow() bool {
	allowed := t.Limiter.Allow()
	if t.observe != nil {
		if allowed {
			t.observe(DecisionAllowed)
		} else {
			t.observe(DecisionRejected)
		}
	}
	return allowed
}
