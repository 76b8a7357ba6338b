package core

import (
	"strings"
	"time"
)

// SubmitOutcome reports whether a submission was admitted by the rate limiter.
type SubmitOutcome string

const (
	// OutcomeAccepted means the limiter admitted the call and the document was sent.
	OutcomeAccepted SubmitOutcome = "accepted"
	// OutcomeRateLimited means the quota for the current window was exhausted.
	OutcomeRateLimited SubmitOutcome = "rate_limited"
)

// ParseSubmitOutcome normalizes an outcome label.
func ParseSubmitOutcome(value string) (SubmitOutcome, bool) {
	outcome := SubmitOutcome(strings.ToLower(strings.TrimSpace(value)))
	switch outcome {
	case OutcomeAccepted, OutcomeRateLimited:
		return outcome, true
	default:
		return "", false
	}
}

// Submission is a journal entry describing one submit attempt.
type Submission struct {
	ID           string        `json:"id"`
	DocID        string        `json:"doc_id,omitempty"`
	DocType      string        `json:"doc_type,omitempty"`
	Outcome      SubmitOutcome `json:"outcome"`
	StatusCode   int           `json:"status_code,omitempty"`
	Error        string        `json:"error,omitempty"`
	Response     string        `json:"response,omitempty"`
	PayloadBytes int           `json:"payload_bytes,omitempty"`
	Duration     time.Duration `json:"duration_ns,omitempty"`
	RequestedAt  time.Time     `json:"requested_at"`
	CompletedAt  time.Time     `json:"completed_at"`
}

// Failed reports whether the submission was admitted but could not be delivered.
func (s *Submission) Failed() bool {
	return s != nil && s.Outcome == OutcomeAccepted && s.Error != ""
}
