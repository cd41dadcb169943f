package handler

import (
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/optifit/backend/internal/model"
	"golang.org/x/time/rate"
)

type rateLimitRecorder interface {
	RecordRateLimited(route string)
}

type RateLimiterConfig struct {
	PerMinute       int
	CleanupInterval time.Duration
}

type ipLimiter struct {
	limiter    *rate.Limiter
	lastAccess time.Time
}

// IPRateLimiter throttles unauthenticated auth endpoints per client IP.
type IPRateLimiter struct {
	limit    rate.Limit
	burst    int
	interval time.Duration
	recorder rateLimitRecorder

	mu       sync.Mutex
	limiters map[string]*ipLimiter

	stopCh   chan struct{}
	stopOnce sync.Once
}

// NewIPRateLimiter starts a background cleanup loop; call Stop to end it.
// recorder may be nil.
func NewIPRateLimiter(cfg RateLimiterConfig, recorder rateLimitRecorder) *IPRateLimiter {
	perMinute := cfg.PerMinute
	if perMinute <= 0 {
		perMinute = 20
	}
	interval := cfg.CleanupInterval
	if interval <= 0 {
		interval = 5 * time.Minute
	}

	rl := &IPRateLimiter{
		limit:    rate.Limit(float64(perMinute) / 60.0),
		burst:    perMinute,
		interval: interval,
		recorder: recorder,
		limiters: make(map[string]*ipLimiter),
		stopCh:   make(chan struct{}),
	}
	go rl.cleanupLoop()
	return rl
}

func (rl *IPRateLimiter) Stop() {
	rl.stopOnce.Do(func() { close(rl.stopCh) })
}

func (rl *IPRateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		ip := c.ClientIP()
		if rl.get(ip).Allow() {
			c.Next()
			return
		}

		if rl.recorder != nil {
			rl.recorder.RecordRateLimited(c.FullPath())
		}
		slog.WarnContext(c.Request.Context(), "rate limit exceeded",
			slog.String("client_ip", ip),
			slog.String("route", c.FullPath()),
		)

		retryAfter := int(math.Ceil(1.0 / float64(rl.limit)))
		if retryAfter < 1 {
			retryAfter = 1
		}
		c.Header("Retry-After", strconv.Itoa(retryAfter))
		c.AbortWithStatusJSON(http.StatusTooManyRequests, model.ErrorResponse{Error: "too many requests"})
	}
}

func (rl *IPRateLimiter) size() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.limiters)
}

func (rl *IPRateLimiter) get(ip string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	if l, ok := rl.limiters[ip]; ok {
		l.lastAccess = time.Now()
		return l.limiter
	}
	l := &ipLimiter{
		limiter:    rate.NewLimiter(rl.limit, rl.burst),
		lastAccess: time.Now(),
	}
	rl.limiters[ip] = l
	return l.limiter
}

func (rl *IPRateLimiter) cleanupLoop() {
	ticker := time.NewTicker(rl.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rl.cleanup(time.Now())
		case <-rl.stopCh:
			return
		}
	}
}

// cleanup drops limiters idle for more than two intervals.
func (rl *IPRateLimiter) cleanup(now time.Time) {
	ttl := rl.interval * 2

	rl.mu.Lock()
	defer rl.mu.Unlock()
	for ip, l := range rl.limiters {
		if now.Sub(l.lastAccess) > ttl {
			delete(rl.limiters, ip)
		}
	}
}
