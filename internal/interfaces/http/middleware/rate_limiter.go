package middleware

import (
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"

	"github.com/yyyooosi/stock-analyzer-2025-sub001/internal/metrics"
	"github.com/yyyooosi/stock-analyzer-2025-sub001/internal/ratelimit"
)

// RateLimit применяет именованную policy к endpoint'у.
// Каждый ответ несет X-RateLimit-* заголовки; отклоненный запрос
// получает 429 с Retry-After.
func RateLimit(limiter *ratelimit.Limiter, policy ratelimit.Policy, m *metrics.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			decision := limiter.Check(ClientID(r), policy)

			resetSeconds := int(math.Ceil(decision.ResetIn.Seconds()))
			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(decision.Limit))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(decision.Remaining))
			w.Header().Set("X-RateLimit-Reset", strconv.Itoa(resetSeconds))

			if !decision.Allowed {
				if m != nil {
					m.RateLimitDropped.Inc()
				}
				w.Header().Set("Retry-After", strconv.Itoa(resetSeconds))
				WriteJSON(w, http.StatusTooManyRequests, map[string]any{
					"success": false,
					"error":   "rate limit exceeded",
				})
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// ClientID извлекает идентификатор клиента: первый адрес из
// X-Forwarded-For, затем X-Real-IP, затем RemoteAddr без порта
func ClientID(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		parts := strings.Split(forwarded, ",")
		if ip := strings.TrimSpace(parts[0]); ip != "" {
			return ip
		}
	}
	if ip := strings.TrimSpace(r.Header.Get("X-Real-IP")); ip != "" {
		return ip
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
