package httpmw

import (
	"log/slog"
	"net/http"
	"time"

	middlewareChi "github.com/go-chi/chi/v5/middleware"

	"github.com/cwrk-planet/chat-service/pkg/logger"
)

// RequestLogger emits one line per finished request, carrying trace
// attributes when a span is active on the request context.
func RequestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middlewareChi.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		attrs := append(logger.AttrsFromCtx(r.Context()),
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Int("status", ww.Status()),
			slog.Duration("took", time.Since(start)),
		)
		slog.LogAttrs(r.Context(), slog.LevelInfo, "http request", attrs...)
	})
}
