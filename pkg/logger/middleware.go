package logger

import (
	"context"
	"net/http"

	"github.com/google/uuid"
)

// RequestIDHeader carries the correlation identifier in and out of the service.
const RequestIDHeader = "X-Request-ID"

// correlationIDKey marks the context storage slot for the correlation identifier.
type correlationIDKey struct{}

// CorrelationIDFromContext returns the correlation identifier stored in ctx, or an empty string when absent.
func CorrelationIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(correlationIDKey{}).(string); ok {
		return id
	}

	return ""
}

// ContextWithCorrelationID stores id in ctx. Queue workers use it to keep the id of the request that enqueued a task.
func ContextWithCorrelationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, correlationIDKey{}, id)
}

// Middleware injects a correlation identifier into the request context before delegating to the next handler.
// An incoming X-Request-ID is reused when it parses as a UUID.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		correlationID := r.Header.Get(RequestIDHeader)
		if _, err := uuid.Parse(correlationID); err != nil {
			correlationID = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, correlationID)
		next.ServeHTTP(w, r.WithContext(ContextWithCorrelationID(r.Context(), correlationID)))
	})
}
