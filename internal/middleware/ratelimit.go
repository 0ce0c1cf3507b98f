package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
)

// RateLimiter enforces a sliding-window quota per caller identity:
// authenticated requests count per user, anonymous requests per client
// address. A request is allowed when fewer than quota requests landed in
// the preceding window. Only allowed requests are recorded, so each
// identity's list is bounded by the quota and a blocked caller is admitted
// again as soon as its earlier requests age out.
type RateLimiter struct {
	mu       sync.Mutex
	visitors map[string][]time.Time
	quota    int
	window   time.Duration
	now      func() time.Time
}

func NewRateLimiter(quota int, window time.Duration) *RateLimiter {
	rl := &RateLimiter{
		visitors: make(map[string][]time.Time),
		quota:    quota,
		window:   window,
		now:      time.Now,
	}

	// Cleanup goroutine
	go func() {
		for {
			time.Sleep(window)
			rl.mu.Lock()
			cutoff := rl.now().Add(-rl.window)
			for identity, stamps := range rl.visitors {
				if len(stamps) == 0 || !stamps[len(stamps)-1].After(cutoff) {
					delete(rl.visitors, identity)
				}
			}
			rl.mu.Unlock()
		}
	}()

	return rl
}

// Allow reports whether one more request for identity fits the quota and
// records it when it does. Denied requests leave no trace. Prune, check
// and record happen under one lock so concurrent requests cannot sneak
// past the limit.
func (rl *RateLimiter) Allow(identity string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	cutoff := now.Add(-rl.window)

	stamps := rl.visitors[identity]
	pruned := stamps[:0]
	for _, ts := range stamps {
		if ts.After(cutoff) {
			pruned = append(pruned, ts)
		}
	}

	allowed := len(pruned) < rl.quota
	if allowed {
		pruned = append(pruned, now)
	}
	rl.visitors[identity] = pruned
	return allowed
}

func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !rl.Allow(identityFor(r)) {
			writeError(w, http.StatusTooManyRequests, "RATE_LIMITED", "Too many requests. Please try again later.", r)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func identityFor(r *http.Request) string {
	if userID := GetUserID(r.Context()); userID != uuid.Nil {
		return "user:" + userID.String()
	}
	return "ip:" + r.RemoteAddr
}
