package metrics

import (
	"time"

	"github.com/docsubmit/docsubmit/internal/core"
	"github.com/docsubmit/docsubmit/internal/observability"
)

// Submission metrics following Prometheus conventions
const (
	SubmissionsTotal      = "submissions_total"
	LimiterDecisionsTotal = "limiter_decisions_total"
	TransportDurationMS   = "transport_duration_ms"

	// Server lifecycle metrics
	ServerStartTime = "app_server_start_time_seconds"
)

// Submission status labels
const (
	StatusDelivered = "delivered"
	StatusFailed    = "failed"
	StatusLimited   = "limited"
)

// SubmissionStatus classifies a journal entry for the status label.
func SubmissionStatus(submission *core.Submission) string {
	switch {
	case submission == nil:
		return ""
	case submission.Outcome == core.OutcomeRateLimited:
		return StatusLimited
	case submission.Failed():
		return StatusFailed
	default:
		return StatusDelivered
	}
}

// RecordSubmission records one submit attempt and, when the document reached
// the registry, its transport latency.
func RecordSubmission(submission *core.Submission) {
	if submission == nil || observability.TelemetrySystem == nil {
		return
	}

	_ = observability.TelemetrySystem.Counter(
		SubmissionsTotal,
		1,
		map[string]string{
			"outcome": string(submission.Outcome),
			"status":  SubmissionStatus(submission),
		},
	)

	if submission.Duration > 0 {
		RecordTransportDuration(submission.Duration)
	}
}

// RecordLimiterDecision counts limiter admissions and rejections.
func RecordLimiterDecision(decision string) {
	if observability.TelemetrySystem != nil {
		_ = observability.TelemetrySystem.Counter(
			LimiterDecisionsTotal,
			1,
			map[string]string{
				"decision": decision,
			},
		)
	}
}

// RecordTransportDuration records the time spent on one registry request.
func RecordTransportDuration(duration time.Duration) {
	if observability.TelemetrySystem != nil {
		_ = observability.TelemetrySystem.Histogram(
			TransportDurationMS,
			duration,
			nil,
		)
	}
}

// SetServerStartTime records the server start time (Unix timestamp)
func SetServerStartTime(timestamp int64) {
	if observability.TelemetrySystem != nil {
		_ = observability.TelemetrySystem.Gauge(
			ServerStartTime,
			float64(timestamp),
			nil,
		)
	}
}
