package middleware

import (
	"log/slog"
	"net/http"
	"runtime/debug"

	"github.com/vitalvas/oasroute/route"
)

// RecoveryConfig configures the Recovery middleware.
type RecoveryConfig struct {
	// Logger receives the recovered value and stack; nil uses slog.Default.
	Logger *slog.Logger
	// Stack includes the goroutine stack in the log record.
	Stack bool
}

// Recovery returns a middleware that recovers from panics in downstream
// handlers and answers 500 Internal Server Error.
func Recovery(cfg RecoveryConfig) func(http.Handler) http.Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

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

				attrs := []any{
					slog.Any("panic", rec),
					slog.String("method", r.Method),
					slog.String("path", r.URL.Path),
					slog.String("request_id", RequestIDFromContext(r.Context())),
				}
				if cfg.Stack {
					attrs = append(attrs, slog.String("stack", string(debug.Stack())))
				}
				logger.Error("panic recovered", attrs...)

				he := route.NewHTTPError(http.StatusInternalServerError, "")
				_ = route.JSON(w, he.Status, map[string]any{"code": he.Status, "message": he.Message})
			}()

			next.ServeHTTP(w, r)
		})
	}
}
