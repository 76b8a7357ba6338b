package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/docsubmit/docsubmit/internal/observability"
)

// HTTP metric names.
const (
	HTTPRequestsTotal     = "http_requests_total"
	HTTPRequestDurationMS = "http_request_duration_ms"
	HTTPRequestSizeBytes  = "http_request_size_bytes"
	HTTPResponseSizeBytes = "http_response_size_bytes"
	HTTPErrorsTotal       = "http_errors_total"
)

// Values of the error_type label on HTTPErrorsTotal.
const (
	ErrorTypeRateLimited = "rate_limited"
	ErrorTypeClient      = "client_error"
	ErrorTypeServer      = "server_error"
)

// knownEndpoints maps request paths to metric labels when chi has no route
// pattern, such as for middleware tests or unmatched requests.
var knownEndpoints = map[string]string{
	"/":               "/",
	"/v1/documents":   "/v1/documents",
	"/v1/limiter":     "/v1/limiter",
	"/version":        "/version",
	"/metrics":        "/metrics",
	"/health":         "/health/*",
	"/health/live":    "/health/*",
	"/health/ready":   "/health/*",
	"/health/startup": "/health/*",
}

// statusRecorder captures the status code and body size of a response.
type statusRecorder struct {
	http.ResponseWriter
	status int
	bytes  int64
}

func (rw *statusRecorder) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *statusRecorder) Write(b []byte) (int, error) {
	n, err := rw.ResponseWriter.Write(b)
	rw.bytes += int64(n)
	return n, err
}

// getEndpointPattern returns a low-cardinality endpoint label.
func getEndpointPattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if pattern := rctx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	if endpoint, ok := knownEndpoints[r.URL.Path]; ok {
		return endpoint
	}
	return "/unknown"
}

// errorType classifies a non-2xx status. Limiter rejections are kept apart
// from other client errors so dashboards can tell throttling from bad input.
func errorType(status int) string {
	switch {
	case status == http.StatusTooManyRequests:
		return ErrorTypeRateLimited
	case status >= http.StatusInternalServerError:
		return ErrorTypeServer
	case status >= http.StatusBadRequest:
		return ErrorTypeClient
	default:
		return ""
	}
}

// RequestMetrics records request count, latency, sizes and errors for every
// request, then logs the completed request with its correlation ID.
func RequestMetrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sys := observability.TelemetrySystem
		if sys == nil {
			next.ServeHTTP(w, r)
			return
		}

		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		duration := time.Since(start)

		endpoint := getEndpointPattern(r)
		status := strconv.Itoa(rec.status)
		labels := map[string]string{
			"method":   r.Method,
			"endpoint": endpoint,
			"status":   status,
		}
		sizeLabels := map[string]string{
			"method":   r.Method,
			"endpoint": endpoint,
		}

		requestSize := r.ContentLength
		if requestSize < 0 {
			requestSize = 0
		}

		_ = sys.Counter(HTTPRequestsTotal, 1, labels)
		_ = sys.Histogram(HTTPRequestDurationMS, duration, labels)
		_ = sys.Gauge(HTTPRequestSizeBytes, float64(requestSize), sizeLabels)
		_ = sys.Gauge(HTTPResponseSizeBytes, float64(rec.bytes), sizeLabels)

		if kind := errorType(rec.status); kind != "" {
			_ = sys.Counter(HTTPErrorsTotal, 1, map[string]string{
				"method":     r.Method,
				"endpoint":   endpoint,
				"status":     status,
				"error_type": kind,
			})
		}

		if observability.ServerLogger != nil {
			observability.ServerLogger.Info("HTTP request completed",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.String("endpoint", endpoint),
				zap.Int("status", rec.status),
				zap.Duration("duration", duration),
				zap.Int64("request_size", requestSize),
				zap.Int64("response_size", rec.bytes),
				zap.String("requestID", GetRequestID(r.Context())),
			)
		}
	})
}
