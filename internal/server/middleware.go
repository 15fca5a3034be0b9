package server

import (
	"errors"
	"net/http"
	"sync"
	"time"

	"bulk-auction/utils"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// RequestLoggerMiddleware logs incoming requests with timing
func RequestLoggerMiddleware(c *gin.Context) {
	start := time.Now()

	c.Next() // process request

	utils.Info("HTTP Request", map[string]any{
		"method":    c.Request.Method,
		"path":      c.Request.URL.Path,
		"status":    c.Writer.Status(),
		"latency":   time.Since(start).String(),
		"client_ip": c.ClientIP(),
	})
}

var errRateLimited = errors.New("rate limit exceeded")

// ClientRateLimiter hands out one token bucket per client IP
type ClientRateLimiter struct {
	mu       sync.Mutex
	limit    rate.Limit
	burst    int
	clients  map[string]*clientLimiter
	idleTTL  time.Duration
	lastTrim time.Time
}

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewClientRateLimiter allows rps sustained requests per client with the given burst.
// A non-positive rps disables limiting.
func NewClientRateLimiter(rps float64, burst int) *ClientRateLimiter {
	if burst < 1 {
		burst = 1
	}
	return &ClientRateLimiter{
		limit:   rate.Limit(rps),
		burst:   burst,
		clients: make(map[string]*clientLimiter),
		idleTTL: 10 * time.Minute,
	}
}

// Allow reports whether the client may issue another request now
func (l *ClientRateLimiter) Allow(clientIP string) bool {
	if l.limit <= 0 {
		return true
	}

	now := time.Now()
	l.mu.Lock()
	defer l.mu.Unlock()

	if now.Sub(l.lastTrim) > l.idleTTL {
		for ip, cl := range l.clients {
			if now.Sub(cl.lastSeen) > l.idleTTL {
				delete(l.clients, ip)
			}
		}
		l.lastTrim = now
	}

	cl, ok := l.clients[clientIP]
	if !ok {
		cl = &clientLimiter{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.clients[clientIP] = cl
	}
	cl.lastSeen = now
	return cl.limiter.AllowN(now, 1)
}

// Middleware rejects requests over the client's budget with 429
func (l *ClientRateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !l.Allow(c.ClientIP()) {
			utils.JSONError(c, http.StatusTooManyRequests, errRateLimited, "too many requests")
			utils.Warn("RateLimiter: request rejected", map[string]any{
				"client_ip": c.ClientIP(),
				"path":      c.Request.URL.Path,
			})
			c.Abort()
			return
		}
		c.Next()
	}
}
