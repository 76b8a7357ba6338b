package transport

import (
	"errors"
	"fmt"
	"time"
)

// ErrTransport marks failures to deliver a payload, including non-2xx replies.
var ErrTransport = errors.New("transport error")

// StatusError is returned when the registry responds with a non-2xx status.
//
// Body holds the raw response bytes. It must never include the bearer token.
type StatusError struct {
	StatusCode int
	Message    string
	RetryAfter time.Duration
	Body       []byte
}

func (e *StatusError) Error() string {
	if e == nil {
		return "registry error"
	}
	if e.Message == "" {
		return fmt.Sprintf("registry request failed: status %d", e.StatusCode)
	}
	return fmt.Sprintf("registry request failed: status %d: %s", e.StatusCode, e.Message)
}

// Is lets errors.Is(err, ErrTransport) match status failures.
func (e *StatusError) Is(target error) bool {
	return target == ErrTransport
}

// Temporary reports whether the failure is likely to clear on its own.
func (e *StatusError) Temporary() bool {
	if e == nil {
		return false
	}
	return e.StatusCode == 429 || e.StatusCode >= 500
}
