package api

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/okian/orgchart/pkg/metrics"
)

// MetricsMiddleware wraps HTTP handlers to record Prometheus metrics. Error
// responses are counted under the API error code the handler wrote, or
// "not_found" for rejected methods and paths.
func MetricsMiddleware(next http.HandlerFunc, endpoint string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(wrapped, r)

		durationMs := float64(time.Since(start).Milliseconds())
		statusCodeStr := strconv.Itoa(wrapped.statusCode)

		metrics.RecordHTTPRequest(endpoint, r.Method, statusCodeStr)
		metrics.RecordHTTPRequestDuration(endpoint, r.Method, statusCodeStr, durationMs)

		if wrapped.statusCode >= http.StatusBadRequest {
			metrics.RecordHTTPError(endpoint, wrapped.errorType(), errorSeverity(wrapped.statusCode))
		}
	}
}

// errorSeverity is "high" for server-side failures and "medium" for
// rejected requests.
func errorSeverity(statusCode int) string {
	if statusCode >= http.StatusInternalServerError {
		return "high"
	}
	return "medium"
}

// errorCoder is implemented by writers that want the API error code of a
// response; writeError reports it before writing the body.
type errorCoder interface {
	setErrorCode(code string)
}

// responseWriter captures the status code and API error code of a response.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
	errorCode  string
}

func (rw *responseWriter) setErrorCode(code string) { rw.errorCode = code }

func (rw *responseWriter) errorType() string {
	switch {
	case rw.errorCode != "":
		return rw.errorCode
	case rw.statusCode == http.StatusNotFound:
		return "not_found"
	case rw.statusCode >= http.StatusInternalServerError:
		return "internal_error"
	default:
		return "bad_request"
	}
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	n, err := rw.ResponseWriter.Write(b)
	if err != nil {
		return n, fmt.Errorf("failed to write response: %w", err)
	}
	return n, nil
}
