package ratelimit

import (
	"net/http"

	"github.com/rs/zerolog"
)

// Middleware rejects a request through deny once its subject is over the
// limit. Limiter errors let the request through.
func Middleware(l Limiter, subject func(*http.Request) string, deny http.Handler, log zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := subject(r)
			ok, err := l.Allow(r.Context(), key)
			if err != nil {
				log.Warn().Err(err).Str("subject", key).Msg("rate limiter unavailable")
				next.ServeHTTP(w, r)
				return
			}
			if !ok {
				deny.ServeHTTP(w, r)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
