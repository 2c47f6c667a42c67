package middlewares

import (
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// RateLimiter hands out one token bucket per key.
type RateLimiter struct {
	limit rate.Limit
	burst int

	mu          sync.Mutex
	buckets     map[string]*rate.Limiter
	lastCleanup time.Time
}

// NewRateLimiter allows perMinute requests per key with all of them available as a burst.
func NewRateLimiter(perMinute int) *RateLimiter {
	if perMinute <= 0 {
		perMinute = 10
	}

	return &RateLimiter{
		limit:       rate.Limit(float64(perMinute) / time.Minute.Seconds()),
		burst:       perMinute,
		buckets:     make(map[string]*rate.Limiter),
		lastCleanup: time.Now(),
	}
}

func (rl *RateLimiter) limiter(key string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	// idle buckets refill to burst; dropping them loses nothing
	if time.Since(rl.lastCleanup) > 5*time.Minute {
		for k, l := range rl.buckets {
			if l.Tokens() >= float64(rl.burst) {
				delete(rl.buckets, k)
			}
		}
		rl.lastCleanup = time.Now()
	}

	l, ok := rl.buckets[key]
	if !ok {
		l = rate.NewLimiter(rl.limit, rl.burst)
		rl.buckets[key] = l
	}
	return l
}

func (rl *RateLimiter) Middleware(keyFn func(*gin.Context) string) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := keyFn(c)
		if key == "" {
			key = clientIP(c)
		}

		l := rl.limiter(key)
		if !l.Allow() {
			r := l.Reserve()
			delay := r.Delay()
			r.Cancel()

			c.Header("Retry-After", strconv.Itoa(max(int(delay.Seconds()), 1)))
			abortError(c, http.StatusTooManyRequests, "rate_limited", "Too many requests. Please try again shortly.")
			return
		}

		c.Next()
	}
}

// for unauthenticated endpoints: rate limit by IP
func KeyByIP(c *gin.Context) string {
	return clientIP(c)
}

func KeyByUserOrIP(c *gin.Context) string {
	if p, ok := PrincipalFromContext(c); ok && p.UserID != "" {
		return "user:" + p.UserID
	}
	return clientIP(c)
}

func clientIP(c *gin.Context) string {
	ip := c.ClientIP()

	host, _, err := net.SplitHostPort(ip)
	if err == nil && host != "" {
		return host
	}
	return ip
}
