package middleware

import (
	"net"
	"net/http"
	"time"

	"AuthVaultPlatform/internal/handler"
	"AuthVaultPlatform/pkg/logger"
	"AuthVaultPlatform/pkg/ratelimit"
)

// RateLimitMiddleware ограничивает частоту запросов по IP адресу клиента
// фиксированным окном в одну минуту
func RateLimitMiddleware(rateLimiter ratelimit.RateLimiter, limit int, log logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := "ip:" + getIP(r)

			limitExceeded, err := rateLimiter.CheckRateLimit(r.Context(), key, limit, time.Minute)
			if err != nil {
				// При недоступном Redis запрос пропускается: ограничение
				// частоты не должно ронять аутентификацию
				log.Error("Rate limit check failed",
					logger.Error(err),
					logger.String("key", key))
				next.ServeHTTP(w, r)
				return
			}

			if limitExceeded {
				log.Warn("Rate limit exceeded",
					logger.String("key", key),
					logger.String("method", r.Method),
					logger.String("path", r.URL.Path))
				w.Header().Set("Retry-After", "60")
				handler.TooManyRequests(w, "Too many requests.")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// getIP извлекает IP клиента с учетом прокси-заголовков
func getIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		return forwarded
	}
	if realIP := r.Header.Get("X-Real-IP"); realIP != "" {
		return realIP
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
