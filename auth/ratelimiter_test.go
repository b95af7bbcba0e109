package auth

import (
	"fmt"
	"testing"
	"time"
)

func TestRateLimiterAllowsUpToLimit(t *testing.T) {
	now := time.Now()
	rl := NewRateLimiter(3, time.Minute, func() time.Time { return now })

	for i := 0; i < 3; i++ {
		if !rl.Allow("key") {
			t.Fatalf("request %d should be allowed", i+1)
		}
	}
	if rl.Allow("key") {
		t.Error("request over the limit should be denied")
	}
	if !rl.Allow("other") {
		t.Error("a different key should not be throttled")
	}
}

func TestRateLimiterWindowExpiry(t *testing.T) {
	now := time.Now()
	rl := NewRateLimiter(1, time.Minute, func() time.Time { return now })

	if !rl.Allow("key") {
		t.Fatal("first request should be allowed")
	}
	if rl.Allow("key") {
		t.Fatal("second request in the window should be denied")
	}

	now = now.Add(time.Minute + time.Second)
	if !rl.Allow("key") {
		t.Error("request after the window should be allowed again")
	}
}

func TestRateLimiterBoundsTrackedKeys(t *testing.T) {
	now := time.Now()
	rl := NewRateLimiter(1, time.Minute, func() time.Time { return now })

	// Far more distinct keys than the limiter retains; eviction must keep
	// the entry count bounded rather than growing without end.
	for i := 0; i < 10000; i++ {
		rl.Allow(fmt.Sprintf("key-%d", i))
	}
	if n := len(rl.entries); n > defaultMaxRateKeys {
		t.Errorf("limiter retains %d keys, want at most %d", n, defaultMaxRateKeys)
	}
}
