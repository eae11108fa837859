package http

import (
	"net"
	"net/http"
	"sync"
	"time"
)

const (
	defaultWritesPerMinute = 60
	staleClientAfter       = 10 * time.Minute
)

// rateLimiter caps mutating requests per client in fixed one-minute
// windows. Stale clients are dropped by CleanExpired, which lets the
// limiter join the application's cache.Manager.
type rateLimiter struct {
	mu      sync.Mutex
	clients map[string]*clientWindow
	limit   int
	now     func() time.Time
}

type clientWindow struct {
	start    time.Time
	requests int
}

func newRateLimiter(limit int) *rateLimiter {
	if limit <= 0 {
		limit = defaultWritesPerMinute
	}
	return &rateLimiter{
		clients: make(map[string]*clientWindow),
		limit:   limit,
		now:     time.Now,
	}
}

func (rl *rateLimiter) allow(client string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	w, ok := rl.clients[client]
	if !ok || now.Sub(w.start) >= time.Minute {
		rl.clients[client] = &clientWindow{start: now, requests: 1}
		return true
	}
	w.requests++
	return w.requests <= rl.limit
}

// CleanExpired forgets clients idle for longer than staleClientAfter.
func (rl *rateLimiter) CleanExpired() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	cutoff := rl.now().Add(-staleClientAfter)
	removed := 0
	for client, w := range rl.clients {
		if w.start.Before(cutoff) {
			delete(rl.clients, client)
			removed++
		}
	}
	return removed
}

func (rl *rateLimiter) size() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.clients)
}

// limitFunc wraps a handler so that clients over the limit get 429.
func (rl *rateLimiter) limitFunc(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !rl.allow(remoteHost(r)) {
			ErrorResponse(http.StatusTooManyRequests, "rate limit exceeded, try again later").
				Header("Retry-After", "60").
				Write(w)
			return
		}
		next(w, r)
	}
}

func remoteHost(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
