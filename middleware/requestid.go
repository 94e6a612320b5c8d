package middleware

import (
	"context"
	"net/http"

	"github.com/google/uuid"
)

type requestIDKey struct{}

// RequestIDFromContext returns the request id stored by RequestID, or "".
func RequestIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDKey{}).(string); ok {
		return id
	}
	return ""
}

// RequestIDConfig configures the RequestID middleware.
type RequestIDConfig struct {
	// HeaderName defaults to "X-Request-ID".
	HeaderName string
	// Generate returns a new id; defaults to UUIDv7.
	Generate func(r *http.Request) string
	// TrustIncoming reuses an id sent by the client.
	TrustIncoming bool
}

// RequestID returns a middleware that sets the request id on the request
// header, the response header and the request context.
func RequestID(cfg RequestIDConfig) func(http.Handler) http.Handler {
	header := cfg.HeaderName
	if header == "" {
		header = "X-Request-ID"
	}
	generate := cfg.Generate
	if generate == nil {
		generate = UUIDv7
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var id string
			if cfg.TrustIncoming {
				id = r.Header.Get(header)
			}
			if id == "" {
				id = generate(r)
			}

			if id != "" {
				r.Header.Set(header, id)
				w.Header().Set(header, id)
				r = r.WithContext(context.WithValue(r.Context(), requestIDKey{}, id))
			}

			next.ServeHTTP(w, r)
		})
	}
}

// UUIDv7 returns a time-ordered UUID.
//
// See: https://www.rfc-editor.org/rfc/rfc9562#section-5.7
func UUIDv7(_ *http.Request) string {
	return uuid.Must(uuid.NewV7()).String()
}

// UUIDv4 returns a random UUID.
func UUIDv4(_ *http.Request) string {
	return uuid.New().String()
}
