package middleware

import (
	"net/http"
	"time"

	"github.com/google/uuid"
)

const RequestIDHeader = "X-Request-ID"

type logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// Health checks and scrapes hit the gateway all the time, they are logged at debug level
var quietRoutes = map[string]bool{
	"GET /healthz": true,
	"GET /metrics": true,
}

// LoggerMiddleware writes access log line per request
// Request id is taken from X-Request-ID or generated, and echoed back in the response
func LoggerMiddleware(l logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			requestID := r.Header.Get(RequestIDHeader)
			if requestID == "" {
				requestID = uuid.NewString()
			}
			w.Header().Set(RequestIDHeader, requestID)

			rec := newStatusRecorder(w)
			next.ServeHTTP(rec, r)

			args := []any{
				"request_id", requestID,
				"method", r.Method,
				"uri", r.RequestURI,
				"route", route(r),
				"duration", time.Since(start),
				"status", rec.status,
				"size", rec.size,
			}

			switch {
			case rec.status >= http.StatusInternalServerError:
				l.Error("got HTTP request", args...)
			case quietRoutes[r.Pattern]:
				l.Debug("got HTTP request", args...)
			case rec.status >= http.StatusBadRequest:
				l.Warn("got HTTP request", args...)
			default:
				l.Info("got HTTP request", args...)
			}
		})
	}
}
