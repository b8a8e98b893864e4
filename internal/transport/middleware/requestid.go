package middleware

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/frahmantamala/time-tracking/pkg/logger"
)

// RequestID propagates X-Trace-ID through the context logger and echoes it
// back on the response, minting one when the client sent none.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		traceID := r.Header.Get("X-Trace-ID")
		if traceID == "" {
			traceID = uuid.NewString()
		}

		ctx := logger.With(r.Context(), "traceID", traceID)
		w.Header().Set("X-Trace-ID", traceID)

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
