package authkit

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

const loginRateLimiterMaxKeys = 5000

// LoginRateLimiter caps login attempts per client IP within a sliding window.
type LoginRateLimiter struct {
	mutex   sync.Mutex
	maxHits int
	window  time.Duration
	hitByIP map[string][]time.Time
	clock   Clock
}

// NewLoginRateLimiter constructs a limiter; non-positive values fall back to 10 per minute.
func NewLoginRateLimiter(maxHits int, window time.Duration, clock Clock) *LoginRateLimiter {
	if maxHits <= 0 {
		maxHits = defaultLoginMaxAttempts
	}
	if window <= 0 {
		window = defaultLoginWindow
	}
	if clock == nil {
		clock = systemClock{}
	}
	return &LoginRateLimiter{
		maxHits: maxHits,
		window:  window,
		hitByIP: make(map[string][]time.Time),
		clock:   clock,
	}
}

// Middleware rejects over-limit callers with 429 and a Retry-After header.
func (limiter *LoginRateLimiter) Middleware() gin.HandlerFunc {
	return func(contextGin *gin.Context) {
		allowed, retryAfter := limiter.allow(contextGin.ClientIP(), limiter.clock.Now().UTC())
		if !allowed {
			contextGin.Header("Retry-After", strconv.Itoa(int(retryAfter.Seconds())))
			contextGin.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "too_many_login_attempts"})
			return
		}
		contextGin.Next()
	}
}

func (limiter *LoginRateLimiter) allow(clientIP string, now time.Time) (bool, time.Duration) {
	threshold := now.Add(-limiter.window)

	limiter.mutex.Lock()
	defer limiter.mutex.Unlock()

	hits := limiter.hitByIP[clientIP]
	recent := make([]time.Time, 0, len(hits)+1)
	for _, hit := range hits {
		if hit.After(threshold) {
			recent = append(recent, hit)
		}
	}

	if len(recent) >= limiter.maxHits {
		retryAfter := recent[0].Add(limiter.window).Sub(now)
		if retryAfter < time.Second {
			retryAfter = time.Second
		}
		limiter.hitByIP[clientIP] = recent
		return false, retryAfter
	}

	limiter.hitByIP[clientIP] = append(recent, now)

	if len(limiter.hitByIP) > loginRateLimiterMaxKeys {
		for key, value := range limiter.hitByIP {
			if len(value) == 0 || value[len(value)-1].Before(threshold) {
				delete(limiter.hitByIP, key)
			}
		}
	}
	return true, 0
}
