package api

import (
	"context"
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

type clientEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter keeps one token bucket per client IP
type RateLimiter struct {
	limit       rate.Limit
	burst       int
	idleTimeout time.Duration

	clients map[string]*clientEntry
	mu      sync.Mutex
}

// NewRateLimiter creates a limiter allowing rps requests per second per client
// with the given burst. Clients idle for longer than idleTimeout are forgotten.
func NewRateLimiter(rps float64, burst int, idleTimeout time.Duration) *RateLimiter {
	if burst < 1 {
		burst = 1
	}
	return &RateLimiter{
		limit:       rate.Limit(rps),
		burst:       burst,
		idleTimeout: idleTimeout,
		clients:     make(map[string]*clientEntry),
	}
}

func (r *RateLimiter) limiterFor(client string, now time.Time) *rate.Limiter {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.clients[client]
	if !ok {
		entry = &clientEntry{limiter: rate.NewLimiter(r.limit, r.burst)}
		r.clients[client] = entry
	}
	entry.lastSeen = now
	return entry.limiter
}

// Allow reports whether client may make a request now
func (r *RateLimiter) Allow(client string) bool {
	now := time.Now()
	return r.limiterFor(client, now).AllowN(now, 1)
}

// Middleware rejects requests over the limit with 429
func (r *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !r.Allow(c.ClientIP()) {
			retryAfter := 1
			if r.limit > 0 {
				retryAfter = int(math.Ceil(1 / float64(r.limit)))
			}
			c.Header("Retry-After", strconv.Itoa(retryAfter))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "rate limit exceeded"})
			return
		}
		c.Next()
	}
}

// evictIdle drops clients not seen since idleTimeout before now
func (r *RateLimiter) evictIdle(now time.Time) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	evicted := 0
	for client, entry := range r.clients {
		if now.Sub(entry.lastSeen) > r.idleTimeout {
			delete(r.clients, client)
			evicted++
		}
	}
	return evicted
}

// StartCleanup evicts idle clients every interval until ctx is done
func (r *RateLimiter) StartCleanup(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case now := <-ticker.C:
				r.evictIdle(now)
			}
		}
	}()
}
