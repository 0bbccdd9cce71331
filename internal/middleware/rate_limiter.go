package middleware

import (
	"context"
	"net/http"
	"sync"
	"time"

	"sistema-servicios/internal/apierror"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// rateEntry tracks request counts per IP within a fixed window.
type rateEntry struct {
	count     int
	windowEnd time.Time
	mu        sync.Mutex
}

type rateLimiter struct {
	limit  int
	window time.Duration

	mu      sync.Mutex
	entries map[string]*rateEntry
}

// RateLimiter returns a per-IP limiter of limit requests per window.
// Expired entries are purged every 5 minutes until ctx is done.
func RateLimiter(ctx context.Context, limit int, window time.Duration) gin.HandlerFunc {
	rl := &rateLimiter{limit: limit, window: window, entries: make(map[string]*rateEntry)}
	go rl.purgeLoop(ctx)

	return func(c *gin.Context) {
		entry := rl.entry(c.ClientIP())

		entry.mu.Lock()
		defer entry.mu.Unlock()

		now := time.Now()
		if now.After(entry.windowEnd) {
			entry.count = 0
			entry.windowEnd = now.Add(rl.window)
		}

		entry.count++
		if entry.count > rl.limit {
			c.Header("Retry-After", entry.windowEnd.Format(time.RFC1123))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, apierror.New("Demasiadas solicitudes. Intente nuevamente en un momento."))
			return
		}
		c.Next()
	}
}

func (rl *rateLimiter) entry(ip string) *rateEntry {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	e, ok := rl.entries[ip]
	if !ok {
		e = &rateEntry{}
		rl.entries[ip] = e
	}
	return e
}

// ── Purge goroutine ───────────────────────────────────────────────────────────

const purgeInterval = 5 * time.Minute

func (rl *rateLimiter) purgeLoop(ctx context.Context) {
	ticker := time.NewTicker(purgeInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			rl.purge(time.Now())
		}
	}
}

func (rl *rateLimiter) purge(now time.Time) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	purged := 0
	for ip, entry := range rl.entries {
		entry.mu.Lock()
		if now.After(entry.windowEnd) {
			delete(rl.entries, ip)
			purged++
		}
		entry.mu.Unlock()
	}
	if purged > 0 {
		log.Debug().
			Int("entries_purged", purged).
			Int("entries_remaining", len(rl.entries)).
			Msg("rate limiter map purged")
	}
}
