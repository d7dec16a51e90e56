package debugsrv

import (
	"context"
	"net/http"
	"time"

	"github.com/me/mgfw/pkg/logging"
)

type ctxKey string

const ctxKeyRequestID ctxKey = "request_id"

// requestIDFromContext extracts the request ID stashed by requestIDMiddleware.
func requestIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(ctxKeyRequestID).(string); ok {
		return id
	}
	return ""
}

// requestIDMiddleware generates a request id and stores it in context,
// mirroring wilke-GoWe's internal/server/middleware.go.
func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := newRequestID()
		ctx := context.WithValue(r.Context(), ctxKeyRequestID, reqID)
		w.Header().Set("X-Request-ID", reqID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// loggingMiddleware logs every request at Info level once it completes.
func loggingMiddleware(sink logging.Sink) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}

			next.ServeHTTP(sw, r)

			sink.Info(r.Method + " " + r.URL.Path +
				" status=" + http.StatusText(sw.status) +
				" duration=" + time.Since(start).String() +
				" request_id=" + requestIDFromContext(r.Context()))
		})
	}
}

// statusWriter captures the response status code, as in middleware.go.
type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}
