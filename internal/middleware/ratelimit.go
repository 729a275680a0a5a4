package middleware

import (
	"net/http"
	"sync"
	"time"
)

type window struct {
	count   int
	startAt time.Time
}

// RateLimiter is a fixed-window per-IP limiter guarding the ingestion
// endpoints. The limit is sized against the emitter's flush cadence: one
// active player emits roughly 4 progress events per minute, so the default
// of 120/min tolerates dozens of embedded players per viewer while still
// capping floods from a misbehaving client.
type RateLimiter struct {
	mu      sync.Mutex
	windows map[string]*window
	limit   int
	period  time.Duration
	now     func() time.Time
}

func NewRateLimiter(limit int, period time.Duration) *RateLimiter {
	rl := &RateLimiter{
		windows: make(map[string]*window),
		limit:   limit,
		period:  period,
		now:     time.Now,
	}

	// Drop windows for IPs that went quiet so the map stays bounded.
	go func() {
		for {
			time.Sleep(period)
			rl.mu.Lock()
			cutoff := rl.now().Add(-period)
			for ip, w := range rl.windows {
				if w.startAt.Before(cutoff) {
					delete(rl.windows, ip)
				}
			}
			rl.mu.Unlock()
		}
	}()

	return rl
}

// Allow records one request for ip and reports whether it fits in the
// current window.
func (rl *RateLimiter) Allow(ip string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	w, ok := rl.windows[ip]
	if !ok || now.Sub(w.startAt) >= rl.period {
		rl.windows[ip] = &window{count: 1, startAt: now}
		return true
	}

	w.count++
	return w.count <= rl.limit
}

func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !rl.Allow(r.RemoteAddr) {
			writeError(w, http.StatusTooManyRequests, "RATE_LIMITED", "Too many requests. Please try again later.", r)
			return
		}
		next.ServeHTTP(w, r)
	})
}
