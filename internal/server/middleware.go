package server

import (
	"crypto/rand"
	"encoding/hex"
	"log/slog"
	"net/http"
	"time"

	"github.com/openclaw/gcalbridge/internal/instrumentation"
	"github.com/openclaw/gcalbridge/internal/logging"
)

// statusRecorder captures the status code written by a handler.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	return r.ResponseWriter.Write(b)
}

// requestID returns a short random identifier for request correlation.
func requestID() string {
	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return "unknown"
	}
	return hex.EncodeToString(buf[:])
}

// withObservability wraps a handler with request logging and HTTP metrics.
// The pattern (not the raw path) is used as the metrics label to keep
// cardinality bounded.
func withObservability(next http.Handler, pattern string, logger *slog.Logger, metrics *instrumentation.Metrics) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := &statusRecorder{ResponseWriter: w}

		reqLogger := logger.With(
			slog.String("request_id", requestID()),
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
		)
		if userID := r.Header.Get(userIDHeader); userID != "" {
			reqLogger = reqLogger.With(logging.UserHash(userID))
		}

		reqLogger.InfoContext(r.Context(), "incoming request")

		next.ServeHTTP(recorder, r)

		if recorder.status == 0 {
			recorder.status = http.StatusOK
		}

		if metrics != nil {
			metrics.RecordHTTPRequest(r.Context(), r.Method, pattern, recorder.status, time.Since(start))
		}

		reqLogger.InfoContext(r.Context(), "request completed",
			slog.Int("status", recorder.status),
			slog.Duration(logging.KeyDuration, time.Since(start)),
		)
	})
}

// normalizeTrailingSlash redirects "/calendar/today/" style paths to their
// canonical form. The root path is left alone.
func normalizeTrailingSlash(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := r.URL.Path
		if len(path) > 1 && path[len(path)-1] == '/' {
			trimmed := *r.URL
			trimmed.Path = path[:len(path)-1]
			http.Redirect(w, r, trimmed.String(), http.StatusPermanentRedirect)
			return
		}
		next.ServeHTTP(w, r)
	})
}
