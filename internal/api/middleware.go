package api

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/rosy/taxirides/internal/logging"
	"github.com/rosy/taxirides/internal/metrics"
)

// RequestLogger wraps a handler with per-request logging and metrics. Each
// request gets a generated id that is echoed in the X-Request-Id header.
func RequestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-Id")
		if requestID == "" {
			requestID = uuid.NewString()
		}
		w.Header().Set("X-Request-Id", requestID)

		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		elapsed := time.Since(start)

		metrics.ObserveHTTPRequest(r.Method, r.URL.Path, rec.status, elapsed)
		logging.Op().Info("request",
			"request_id", requestID,
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration_ms", elapsed.Milliseconds(),
		)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (rec *statusRecorder) WriteHeader(code int) {
	rec.status = code
	rec.ResponseWriter.WriteHeader(code)
}
