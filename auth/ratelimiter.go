package auth

import (
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
)

// --- Rate Limiter ---

// RateLimiter throttles requests per caller and route over a fixed window.
// It bounds the blast radius of a compromised or runaway admin session; it
// is not a correctness mechanism. Construct one in main and share it by
// reference. The clock is injected for tests; expired entries are evicted
// on access and the key store is bounded.
type RateLimiter struct {
	mu      sync.Mutex
	entries map[string]*rateEntry

	limit   int
	window  time.Duration
	maxKeys int
	now     func() time.Time
}

type rateEntry struct {
	count       int
	windowStart time.Time
}

const defaultMaxRateKeys = 4096

func NewRateLimiter(limit int, window time.Duration, now func() time.Time) *RateLimiter {
	return &RateLimiter{
		entries: make(map[string]*rateEntry),
		limit:   limit,
		window:  window,
		maxKeys: defaultMaxRateKeys,
		now:     now,
	}
}

// Allow reports whether one more request under key fits in the current
// window.
func (rl *RateLimiter) Allow(key string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	entry, ok := rl.entries[key]
	if ok && now.Sub(entry.windowStart) < rl.window {
		if entry.count >= rl.limit {
			return false
		}
		entry.count++
		return true
	}

	if len(rl.entries) >= rl.maxKeys {
		rl.evict(now)
	}
	rl.entries[key] = &rateEntry{count: 1, windowStart: now}
	return true
}

// evict removes expired entries; if none are expired it drops the oldest
// window so the store stays bounded.
func (rl *RateLimiter) evict(now time.Time) {
	var oldestKey string
	var oldest time.Time
	for key, entry := range rl.entries {
		if now.Sub(entry.windowStart) >= rl.window {
			delete(rl.entries, key)
			continue
		}
		if oldestKey == "" || entry.windowStart.Before(oldest) {
			oldestKey = key
			oldest = entry.windowStart
		}
	}
	if len(rl.entries) >= rl.maxKeys && oldestKey != "" {
		delete(rl.entries, oldestKey)
	}
}

// Middleware applies the limit keyed by caller identity (authenticated user
// when available, client address otherwise) plus route.
func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !rl.Allow(callerKey(r) + " " + r.URL.Path) {
			RespondWithError(w, http.StatusTooManyRequests, "Too many requests")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func callerKey(r *http.Request) string {
	if id, ok := r.Context().Value(userIDKey).(uuid.UUID); ok && id != uuid.Nil {
		return id.String()
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
