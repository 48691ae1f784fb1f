package middleware

import (
	"encoding/json"
	"log/slog"
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"

	"github.com/iudanet/campussync/internal/gate"
	"github.com/iudanet/campussync/pkg/api"
)

// RateLimitMiddleware создает middleware для ограничения частоты запросов.
// Решение принимает RateGate по IP клиента; жизненным циклом gate владеет вызывающий.
func RateLimitMiddleware(g *gate.Gate, logger *slog.Logger) func(http.Handler) http.Handler {
	return RateLimitByPathMiddleware(nil, g, logger)
}

// PathRateLimit отдельный лимит для конкретного пути
type PathRateLimit struct {
	Gate *gate.Gate
	Path string
}

// RateLimitByPathMiddleware создает middleware с кастомными лимитами для путей
func RateLimitByPathMiddleware(limits []PathRateLimit, defaultGate *gate.Gate, logger *slog.Logger) func(http.Handler) http.Handler {
	gates := make(map[string]*gate.Gate, len(limits))
	for _, limit := range limits {
		gates[limit.Path] = limit.Gate
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// Выбираем соответствующий gate
			g, exists := gates[r.URL.Path]
			if !exists {
				g = defaultGate
			}

			key := getClientIP(r)
			d := g.Admit(key)
			if !d.Allowed {
				logger.Warn("Rate limit exceeded",
					"ip", key,
					"method", r.Method,
					"path", r.URL.Path,
					"retry_after", d.RetryAfter,
				)

				// Retry-After в целых секундах, округление вверх
				w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(d.RetryAfter.Seconds()))))
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusTooManyRequests)
				_ = json.NewEncoder(w).Encode(api.ErrorResponse{
					Error:   api.ErrCodeRateLimited,
					Message: "rate limit exceeded, please try again later",
				})
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// getClientIP извлекает IP адрес клиента из запроса
// Проверяет заголовки X-Forwarded-For и X-Real-IP для прокси
func getClientIP(r *http.Request) string {
	// Проверяем X-Forwarded-For (для прокси/load balancers)
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		// Берем первый IP из списка (реальный клиент)
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}

	// Проверяем X-Real-IP
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}

	// Используем RemoteAddr без порта
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
