package middleware

import (
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/studyhive/studyroom-server/internal/audit"
)

const (
	loginMaxAttempts    = 5
	loginWindowDuration = time.Minute
	loginLimitKeyPrefix = "loginlimit:"
)

// LoginRateLimiter caps signin attempts per client IP. The counter lives in
// redis so the cap holds across nodes.
type LoginRateLimiter struct {
	client redis.Cmdable
}

func NewLoginRateLimiter(client redis.Cmdable) *LoginRateLimiter {
	return &LoginRateLimiter{client: client}
}

func (l *LoginRateLimiter) isAllowed(r *http.Request, ip string) bool {
	key := loginLimitKeyPrefix + ip

	count, err := l.client.Incr(r.Context(), key).Result()
	if err != nil {
		log.Warn().Err(err).Str("ip", ip).Msg("login limit check failed, allowing request")
		return true
	}
	if count == 1 {
		l.client.Expire(r.Context(), key, loginWindowDuration)
	}

	return count <= loginMaxAttempts
}

func (l *LoginRateLimiter) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := r.RemoteAddr
		if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
			ip = forwarded
		}

		if !l.isAllowed(r, ip) {
			audit.LogFromRequest(r, audit.Event{Type: audit.EventRateLimitExceed})
			w.Header().Set("Retry-After", "60")
			writeJSON(w, http.StatusTooManyRequests, map[string]string{
				"error": "Too many login attempts. Please try again later.",
			})
			return
		}

		next.ServeHTTP(w, r)
	})
}
