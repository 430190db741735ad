package middleware

import (
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"

	apperrors "github.com/share-pet/share-pet/internal/errors"
)

// Recovery turns a panic in next into a generic 500 response. The panic is
// passed to the error handler so it reaches Sentry.
func Recovery(handler *apperrors.Handler, log *slog.Logger) Middleware {
	if log == nil {
		log = slog.Default()
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			recorder := newStatusRecorder(w)

			defer func() {
				recovered := recover()
				if recovered == nil {
					return
				}
				if recovered == http.ErrAbortHandler {
					panic(recovered)
				}

				log.ErrorContext(r.Context(), "panic serving request",
					slog.String("path", r.URL.Path),
					slog.Any("panic", recovered),
					slog.String("stack", string(debug.Stack())),
				)

				message := apperrors.FallbackUserMessage
				if handler != nil {
					message, _ = handler.Handle(r.Context(), fmt.Errorf("panic: %v", recovered))
				}

				if recorder.wroteHeader() {
					return
				}
				writeJSONError(recorder, http.StatusInternalServerError, message)
			}()

			next.ServeHTTP(recorder, r)
		})
	}
}
