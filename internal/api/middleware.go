package api

import (
	"context"
	"log"
	"net/http"
	"sync"
	"time"

	"governance-core/internal/monitor"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

// clientLimiter pairs a token bucket with its last use so idle entries
// can be evicted.
type clientLimiter struct {
	bucket   *rate.Limiter
	lastSeen time.Time
}

type limiterTable struct {
	mu      sync.Mutex
	clients map[string]*clientLimiter
	perSec  rate.Limit
	burst   int
}

func newLimiterTable(perSec float64, burst int) *limiterTable {
	t := &limiterTable{
		clients: make(map[string]*clientLimiter),
		perSec:  rate.Limit(perSec),
		burst:   burst,
	}
	go t.evictLoop()
	return t
}

func (t *limiterTable) allow(ip string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	cl, ok := t.clients[ip]
	if !ok {
		cl = &clientLimiter{bucket: rate.NewLimiter(t.perSec, t.burst)}
		t.clients[ip] = cl
	}
	cl.lastSeen = time.Now()
	return cl.bucket.Allow()
}

func (t *limiterTable) evictLoop() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for range ticker.C {
		cutoff := time.Now().Add(-10 * time.Minute)
		t.mu.Lock()
		for ip, cl := range t.clients {
			if cl.lastSeen.Before(cutoff) {
				delete(t.clients, ip)
			}
		}
		t.mu.Unlock()
	}
}

// RateLimitMiddleware throttles requests per client IP.
func RateLimitMiddleware(perSec float64, burst int) gin.HandlerFunc {
	table := newLimiterTable(perSec, burst)
	return func(c *gin.Context) {
		ip := c.ClientIP()
		if !table.allow(ip) {
			log.Printf("[RATE_LIMIT] IP %s throttled", ip)
			c.JSON(http.StatusTooManyRequests, gin.H{
				"error":   "rate limit exceeded",
				"message": "too many requests, slow down",
			})
			c.Abort()
			return
		}
		c.Next()
	}
}

// CORSMiddleware handles Cross-Origin Resource Sharing for dashboard clients.
func CORSMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		h := c.Writer.Header()
		h.Set("Access-Control-Allow-Origin", "*")
		h.Set("Access-Control-Allow-Headers", "Content-Type, Accept, Origin, X-Requested-With")
		h.Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

// RequestIDMiddleware tags each request with an id, honoring one the
// client already sent.
func RequestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		c.Set("RequestID", id)
		c.Writer.Header().Set("X-Request-ID", id)
		c.Next()
	}
}

// TimeoutMiddleware bounds handler execution time. The handler runs in
// its own goroutine so a timed-out request still gets a response.
func TimeoutMiddleware(timeout time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), timeout)
		defer cancel()
		c.Request = c.Request.WithContext(ctx)

		done := make(chan struct{})
		panicked := make(chan any, 1)

		go func() {
			defer func() {
				if p := recover(); p != nil {
					panicked <- p
				}
			}()
			c.Next()
			close(done)
		}()

		select {
		case <-done:
		case p := <-panicked:
			log.Printf("[API] panic in handler: %v", p)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
			c.Abort()
		case <-ctx.Done():
			log.Printf("[TIMEOUT] %s %s exceeded %v", c.Request.Method, c.Request.URL.Path, timeout)
			c.JSON(http.StatusRequestTimeout, gin.H{"error": "request timeout"})
			c.Abort()
		}
	}
}

// RequestLogger logs each request with timing and status and counts
// error responses toward system metrics.
func RequestLogger(metrics *monitor.SystemMetrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		method := c.Request.Method

		c.Next()

		status := c.Writer.Status()
		if metrics != nil && status >= 400 {
			metrics.IncrementErrors()
		}

		id := c.GetString("RequestID")
		if len(id) > 8 {
			id = id[:8]
		}
		log.Printf("[API] %s | %s %s | %d | %v | %s",
			id, method, path, status, time.Since(start), c.ClientIP())
	}
}
