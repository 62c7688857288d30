// Package requestid assigns each request a correlation ID, honoring an
// incoming X-Request-ID header and minting a UUID otherwise.
package requestid

import (
	"net/http"

	"github.com/google/uuid"

	"dronewatch/pkg/requestcontext"
)

// Header is the correlation ID header, both inbound and outbound.
const Header = "X-Request-ID"

// Middleware stores the request ID in the context and echoes it on the
// response.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get(Header)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		w.Header().Set(Header, requestID)
		ctx := requestcontext.WithRequestID(r.Context(), requestID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
