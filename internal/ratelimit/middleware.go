package ratelimit

import (
	"log/slog"
	"net"
	"net/http"
)

// Middleware rejects clients over the limit with 429. Limiter failures let
// the request through.
func Middleware(l Limiter, log *slog.Logger) func(http.Handler) http.Handler {
	if log == nil {
		log = slog.Default()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ok, err := l.Allow(r.Context(), r.URL.Path+"|"+clientIP(r))
			if err != nil {
				log.Warn("rate limiter unavailable", "err", err)
			}
			if !ok {
				w.Header().Set("Content-Type", "application/json")
				w.Header().Set("Retry-After", "60")
				w.WriteHeader(http.StatusTooManyRequests)
				_, _ = w.Write([]byte(`{"error":"Muitas tentativas. Tente novamente mais tarde."}`))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
