package middleware

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/helixml/runfilter/internal/log"
)

// CorrelationIDHeader is echoed on every response.
const CorrelationIDHeader = "X-Correlation-ID"

// CorrelationID stores a correlation ID in the request context and response headers.
// An incoming X-Correlation-ID is kept; otherwise chi's request ID or a new UUID is used.
func CorrelationID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(CorrelationIDHeader)
		if id == "" {
			id = middleware.GetReqID(r.Context())
		}
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(CorrelationIDHeader, id)
		ctx := log.WithCorrelationID(r.Context(), id)
		if reqID := middleware.GetReqID(r.Context()); reqID != "" {
			ctx = log.WithRequestID(ctx, reqID)
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetCorrelationID returns the correlation ID stored by CorrelationID, if any.
func GetCorrelationID(ctx context.Context) string {
	return log.CorrelationID(ctx)
}
