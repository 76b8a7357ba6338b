package core

import "time"

// WindowState is a point-in-time view of a fixed-window limiter.
type WindowState struct {
	WindowStart time.Time     `json:"window_start"`
	Window      time.Duration `json:"window_ns"`
	Quota       int           `json:"quota"`
	Count       int           `json:"count"`
}

// Remaining returns the admissions left in the current window.
func (s WindowState) Remaining() int {
	if s.Count >= s.Quota {
		return 0
	}
	return s.Quota - s.Count
}

// ResetAt returns the instant after which the next call opens a new window.
// It is zero when no window has been opened yet.
func (s WindowState) ResetAt() time.Time {
	if s.WindowStart.IsZero() {
		return time.Time{}
	}
	return s.WindowStart.Add(s.Window)
}
