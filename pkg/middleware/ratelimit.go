package middleware

import (
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sirosfoundation/glados-registry/pkg/config"
)

// idleLimiterTTL is how long an unused per-client limiter is kept
const idleLimiterTTL = 10 * time.Minute

// RateLimiter keeps one token bucket per client key
type RateLimiter struct {
	limit  rate.Limit
	burst  int
	logger *zap.Logger

	mu          sync.Mutex
	limiters    map[string]*clientLimiter
	lastCleanup time.Time
}

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewRateLimiter creates a limiter from the status rate limit configuration.
// It returns nil when limiting is disabled.
func NewRateLimiter(cfg config.RateLimitConfig, logger *zap.Logger) *RateLimiter {
	if cfg.RequestsPerSecond <= 0 {
		return nil
	}
	burst := cfg.Burst
	if burst < 1 {
		burst = int(math.Ceil(cfg.RequestsPerSecond))
	}
	return &RateLimiter{
		limit:       rate.Limit(cfg.RequestsPerSecond),
		burst:       burst,
		logger:      logger.Named("ratelimit"),
		limiters:    make(map[string]*clientLimiter),
		lastCleanup: time.Now(),
	}
}

func (r *RateLimiter) get(key string) *rate.Limiter {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	if now.Sub(r.lastCleanup) > idleLimiterTTL {
		for k, l := range r.limiters {
			if now.Sub(l.lastSeen) > idleLimiterTTL {
				delete(r.limiters, k)
			}
		}
		r.lastCleanup = now
	}

	l, ok := r.limiters[key]
	if !ok {
		l = &clientLimiter{limiter: rate.NewLimiter(r.limit, r.burst)}
		r.limiters[key] = l
	}
	l.lastSeen = now
	return l.limiter
}

// Allow reports whether a request from key may proceed
func (r *RateLimiter) Allow(key string) bool {
	return r.get(key).Allow()
}

// Middleware rejects requests beyond the per-client-IP rate with 429.
// A nil RateLimiter lets every request through.
func (r *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if r == nil {
			c.Next()
			return
		}

		key := c.ClientIP()
		if !r.Allow(key) {
			r.logger.Warn("Rate limit exceeded",
				zap.String("client_ip", key),
				zap.String("path", c.Request.URL.Path))
			retryAfter := int(math.Ceil(1 / float64(r.limit)))
			c.Header("Retry-After", strconv.Itoa(max(retryAfter, 1)))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "Too many status checks, please slow down"})
			return
		}

		c.Next()
	}
}
