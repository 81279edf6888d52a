package middleware

import (
	"net/http"
	"sync"
	"time"

	"artisan-marketplace/internal/models"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// RateLimiter keeps one token bucket per key
type RateLimiter struct {
	mu       sync.Mutex
	limiters map[string]*visitor
	rate     rate.Limit
	burst    int
	ttl      time.Duration
	now      func() time.Time
}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewRateLimiter creates a limiter allowing perSecond requests with the given burst per key
func NewRateLimiter(perSecond float64, burst int) *RateLimiter {
	rl := &RateLimiter{
		limiters: make(map[string]*visitor),
		rate:     rate.Limit(perSecond),
		burst:    burst,
		ttl:      5 * time.Minute,
		now:      time.Now,
	}
	go rl.cleanupLoop()
	return rl
}

// cleanupLoop removes idle keys
func (rl *RateLimiter) cleanupLoop() {
	ticker := time.NewTicker(rl.ttl)
	for now := range ticker.C {
		rl.evict(now)
	}
}

// Allow checks if a request for key should be allowed
func (rl *RateLimiter) Allow(key string) bool {
	rl.mu.Lock()
	now := rl.now()
	v, exists := rl.limiters[key]
	if !exists {
		v = &visitor{limiter: rate.NewLimiter(rl.rate, rl.burst)}
		rl.limiters[key] = v
	}
	v.lastSeen = now
	rl.mu.Unlock()

	return v.limiter.AllowN(now, 1)
}

// evict drops keys not seen within ttl of now
func (rl *RateLimiter) evict(now time.Time) {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	for key, v := range rl.limiters {
		if now.Sub(v.lastSeen) > rl.ttl {
			delete(rl.limiters, key)
		}
	}
}

// RateLimitMiddleware creates a rate limiting middleware
// keyType is "user" or "ip"
func RateLimitMiddleware(limiter *RateLimiter, keyType string) gin.HandlerFunc {
	return func(c *gin.Context) {
		var key string
		switch keyType {
		case "user":
			key = c.GetString(ContextUserID)
			if key == "" {
				key = c.ClientIP()
			}
		default:
			key = c.ClientIP()
		}

		if !limiter.Allow(key) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests,
				models.NewErrorResponse("RATE_LIMITED", "Too many requests, please try again later"))
			return
		}

		c.Next()
	}
}

// RateLimits groups the limiters used by the router
type RateLimits struct {
	Auth       *RateLimiter // login and registration
	AI         *RateLimiter // generative tools
	APIGeneral *RateLimiter
	Webhook    *RateLimiter
}

// NewRateLimits creates the router's rate limiters
func NewRateLimits() *RateLimits {
	return &RateLimits{
		Auth:       NewRateLimiter(1, 10),
		AI:         NewRateLimiter(0.5, 5),
		APIGeneral: NewRateLimiter(50, 100),
		Webhook:    NewRateLimiter(200, 500),
	}
}
