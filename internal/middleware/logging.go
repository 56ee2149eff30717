package middleware

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/splitbook/splitbook/internal/metrics"
)

// Logging logs every request and records its latency in the Prometheus
// histogram. Placed after RequireAuth it also captures the acting user.
func Logging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		duration := time.Since(start)
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		actor := ActorFrom(r.Context())

		metrics.RequestDuration.WithLabelValues(
			r.Method, r.URL.Path, strconv.Itoa(status),
		).Observe(duration.Seconds())

		logFn := slog.Info
		if status >= http.StatusInternalServerError {
			logFn = slog.Error
		} else if status >= http.StatusBadRequest {
			logFn = slog.Warn
		}
		logFn("request completed",
			"method", r.Method,
			"path", r.URL.Path,
			"status", status,
			"user_id", actor.ID,
			"duration_ms", duration.Milliseconds(),
		)
	})
}
