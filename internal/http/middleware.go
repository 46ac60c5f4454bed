package http

import (
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// CustomLoggerMiddleware logs one line per request. 5xx responses log at error
// level and 4xx at warn.
func CustomLoggerMiddleware(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		status := c.Writer.Status()
		attrs := []any{
			slog.String("request_id", requestid.Get(c)),
			slog.String("method", c.Request.Method),
			slog.String("path", path),
			slog.Int("status", status),
			slog.Duration("duration", time.Since(start)),
			slog.String("client_ip", c.ClientIP()),
		}
		if tenantID := c.Param("tenant_id"); tenantID != "" {
			attrs = append(attrs, slog.String("tenant_id", tenantID))
		}

		level := slog.LevelInfo
		if status >= http.StatusInternalServerError {
			level = slog.LevelError
		} else if status >= http.StatusBadRequest {
			level = slog.LevelWarn
		}
		logger.Log(c.Request.Context(), level, "http request", attrs...)
	}
}

// limiterIdleTTL is how long an address may stay silent before its bucket is dropped.
const limiterIdleTTL = time.Hour

type clientBucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// clientLimiters hands out one token bucket per client address. Idle buckets
// are swept during lookups, at most once per TTL.
type clientLimiters struct {
	mu        sync.Mutex
	buckets   map[string]*clientBucket
	limit     rate.Limit
	burst     int
	lastSweep time.Time
	now       func() time.Time
}

func newClientLimiters(rps float64, burst int) *clientLimiters {
	return &clientLimiters{
		buckets: make(map[string]*clientBucket),
		limit:   rate.Limit(rps),
		burst:   burst,
		now:     time.Now,
	}
}

func (l *clientLimiters) get(addr string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if now.Sub(l.lastSweep) >= limiterIdleTTL {
		for key, b := range l.buckets {
			if now.Sub(b.lastSeen) >= limiterIdleTTL {
				delete(l.buckets, key)
			}
		}
		l.lastSweep = now
	}

	b, ok := l.buckets[addr]
	if !ok {
		b = &clientBucket{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.buckets[addr] = b
	}
	b.lastSeen = now
	return b.limiter
}

func (l *clientLimiters) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.buckets)
}

// retryAfter is the whole number of seconds until one token refills.
func (l *clientLimiters) retryAfter() string {
	if l.limit <= 0 {
		return "1"
	}
	return strconv.Itoa(max(int(math.Ceil(1/float64(l.limit))), 1))
}

// RateLimitMiddleware allows rps requests per second per client IP with the
// given burst. Rejected requests get 429 and a Retry-After header.
func RateLimitMiddleware(rps float64, burst int, logger *slog.Logger) gin.HandlerFunc {
	return rateLimit(newClientLimiters(rps, burst), logger)
}

func rateLimit(limiters *clientLimiters, logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		clientIP := c.ClientIP()
		if limiters.get(clientIP).Allow() {
			c.Next()
			return
		}

		logger.Debug("rate limit exceeded", slog.String("client_ip", clientIP))
		c.Header("Retry-After", limiters.retryAfter())
		c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
			"error":   "rate_limit_exceeded",
			"message": "Too many requests, retry later",
		})
	}
}
