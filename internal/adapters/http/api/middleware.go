package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/okian/elorank/pkg/metrics"
)

// MetricsMiddleware records request count, latency and error class for endpoint.
func MetricsMiddleware(next http.HandlerFunc, endpoint string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rec, r)

		code := strconv.Itoa(rec.status)
		metrics.RecordHTTPRequest(endpoint, r.Method, code)
		metrics.RecordHTTPRequestDuration(endpoint, r.Method, code, float64(time.Since(start).Milliseconds()))
		if rec.status >= http.StatusBadRequest {
			metrics.RecordErrorByComponent("http_"+endpoint, errorClass(rec.status))
		}
	}
}

// errorClass buckets an error status for the errors-by-component metric.
// Backpressure and unavailability are separated out since a client can
// retry both.
func errorClass(status int) string {
	switch {
	case status == http.StatusTooManyRequests:
		return "backpressure"
	case status == http.StatusServiceUnavailable:
		return "unavailable"
	case status == http.StatusNotFound:
		return "not_found"
	case status >= http.StatusInternalServerError:
		return "server_error"
	case status >= http.StatusBadRequest:
		return "client_error"
	default:
		return "unknown"
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (rec *statusRecorder) WriteHeader(code int) {
	rec.status = code
	rec.ResponseWriter.WriteHeader(code)
}
