package middleware

import (
	"net/http"
	"sync"
	"time"

	"banya/pkg/logger"
)

// CallerRateLimiter is a fixed-window limiter keyed by the supplied caller
// identity, falling back to the remote address for anonymous requests.
type CallerRateLimiter struct {
	limit  int
	window time.Duration
	log    *logger.Logger

	mu      sync.Mutex
	windows map[string]*callerWindow
	done    chan struct{}
	once    sync.Once
}

type callerWindow struct {
	count   int
	resetAt time.Time
}

func NewCallerRateLimiter(limit int, window time.Duration, log *logger.Logger) *CallerRateLimiter {
	rl := &CallerRateLimiter{
		limit:   limit,
		window:  window,
		log:     log,
		windows: make(map[string]*callerWindow),
		done:    make(chan struct{}),
	}
	go rl.sweep()
	return rl
}

func (rl *CallerRateLimiter) allow(key string) bool {
	now := time.Now()

	rl.mu.Lock()
	defer rl.mu.Unlock()

	w, ok := rl.windows[key]
	if !ok || now.After(w.resetAt) {
		rl.windows[key] = &callerWindow{count: 1, resetAt: now.Add(rl.window)}
		return true
	}
	if w.count >= rl.limit {
		return false
	}
	w.count++
	return true
}

func (rl *CallerRateLimiter) sweep() {
	ticker := time.NewTicker(rl.window)
	defer ticker.Stop()
	for {
		select {
		case <-rl.done:
			return
		case <-ticker.C:
			now := time.Now()
			rl.mu.Lock()
			for key, w := range rl.windows {
				if now.After(w.resetAt) {
					delete(rl.windows, key)
				}
			}
			rl.mu.Unlock()
		}
	}
}

func (rl *CallerRateLimiter) Stop() {
	rl.once.Do(func() { close(rl.done) })
}

func CallerRateLimit(rl *CallerRateLimiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := r.Header.Get("X-Customer-UID")
			if key == "" {
				key = r.Header.Get("X-Technician-UID")
			}
			if key == "" {
				key = r.RemoteAddr
			}

			if !rl.allow(key) {
				rl.log.Warn("Rate limit exceeded",
					"request_id", RequestID(r.Context()),
					"caller", key,
					"path", r.URL.Path,
				)
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusTooManyRequests)
				_, _ = w.Write([]byte(`{"detail":"Too many requests"}`))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
