package middleware

import (
	"net/http"
	"sync"
	"time"
)

// callerWindow tracks one remote address inside the current fixed window.
type callerWindow struct {
	count       int
	windowStart time.Time
}

// RateLimiter caps requests per remote address over a fixed window. It
// guards the login route, where every request costs a round trip to the
// Canvas instance.
type RateLimiter struct {
	mu      sync.Mutex
	callers map[string]*callerWindow
	limit   int
	window  time.Duration
}

func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	rl := &RateLimiter{
		callers: make(map[string]*callerWindow),
		limit:   limit,
		window:  window,
	}
	go rl.evictStale()
	return rl
}

// evictStale drops addresses whose window has long passed so the map does
// not grow with every address ever seen.
func (rl *RateLimiter) evictStale() {
	for {
		time.Sleep(rl.window)
		cutoff := time.Now().Add(-2 * rl.window)
		rl.mu.Lock()
		for addr, cw := range rl.callers {
			if cw.windowStart.Before(cutoff) {
				delete(rl.callers, addr)
			}
		}
		rl.mu.Unlock()
	}
}

func (rl *RateLimiter) allow(addr string) bool {
	now := time.Now()

	rl.mu.Lock()
	defer rl.mu.Unlock()

	cw, ok := rl.callers[addr]
	if !ok || now.Sub(cw.windowStart) > rl.window {
		rl.callers[addr] = &callerWindow{count: 1, windowStart: now}
		return true
	}

	cw.count++
	return cw.count <= rl.limit
}

func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !rl.allow(r.RemoteAddr) {
			writeError(w, http.StatusTooManyRequests, "RATE_LIMITED", "Too many requests. Please try again later.", r)
			return
		}
		next.ServeHTTP(w, r)
	})
}
