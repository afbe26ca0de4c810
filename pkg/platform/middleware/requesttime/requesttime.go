// Package requesttime provides middleware for request-scoped time and ids.
// All operations within a single HTTP request use the same "now" timestamp,
// so store writes and cache writes agree on lastValidatedAt.
package requesttime

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"verigate/pkg/requestcontext"
)

// Middleware captures the current time at the start of the request and
// assigns a request id, honouring an inbound X-Request-ID.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", requestID)

		ctx := requestcontext.WithTime(r.Context(), time.Now())
		ctx = requestcontext.WithRequestID(ctx, requestID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
