package metrics

import (
	"strconv"

	"github.com/docsubmit/docsubmit/internal/observability"
)

// Error metrics emitted by the HTTP error envelope and panic recovery.
const (
	ErrorsTotal      = "errors_total"
	ErrorsByEndpoint = "errors_by_endpoint"
	PanicsTotal      = "panics_total"
)

// RecordError counts one error response. The per-endpoint series is only
// emitted when endpoint is known.
func RecordError(errorCode string, httpStatus int, endpoint string) {
	if observability.TelemetrySystem == nil {
		return
	}

	_ = observability.TelemetrySystem.Counter(
		ErrorsTotal,
		1,
		map[string]string{
			"error_code":  errorCode,
			"http_status": strconv.Itoa(httpStatus),
		},
	)
	if endpoint == "" {
		return
	}
	_ = observability.TelemetrySystem.Counter(
		ErrorsByEndpoint,
		1,
		map[string]string{
			"endpoint":   endpoint,
			"error_code": errorCode,
		},
	)
}

// RecordPanic counts a recovered handler panic.
func RecordPanic() {
	if observability.TelemetrySystem != nil {
		_ = observability.TelemetrySystem.Counter(PanicsTotal, 1, nil)
	}
}
