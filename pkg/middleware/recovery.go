package middleware

import (
	"log/slog"
	"net/http"
	"runtime/debug"

	"github.com/Kodar11/Blog/pkg/httputil"
	"github.com/Kodar11/Blog/pkg/logger"
)

// Recovery recovers from panics and writes a 500 envelope instead of crashing.
func Recovery(l *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				l.ErrorContext(r.Context(), "panic recovered",
					slog.Any("panic", rec),
					slog.String("stack", string(debug.Stack())),
					slog.String("method", r.Method),
					slog.String("path", r.URL.Path),
				)

				resp := httputil.NewResponse(http.StatusInternalServerError, nil, "an internal error occurred")
				resp.RequestID = logger.CorrelationIDFromContext(r.Context())
				httputil.WriteJSON(w, http.StatusInternalServerError, resp)
			}()

			next.ServeHTTP(w, r)
		})
	}
}
