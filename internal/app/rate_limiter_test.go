package app

import (
	"testing"
	"time"
)

func TestRateLimiterWindow(t *testing.T) {
	now := time.Unix(1000, 0)
	rl := NewRateLimiter(2, time.Minute)
	rl.now = func() time.Time { return now }

	if !rl.Allow("ip") || !rl.Allow("ip") {
		t.Fatal("expected first two attempts allowed")
	}
	if rl.Allow("ip") {
		t.Fatal("expected third attempt refused")
	}
	if !rl.Allow("other") {
		t.Error("expected keys to be independent")
	}

	now = now.Add(time.Minute + time.Second)
	if !rl.Allow("ip") {
		t.Error("expected attempt allowed after the window slid")
	}
}

func TestRateLimiterForget(t *testing.T) {
	rl := NewRateLimiter(1, time.Hour)
	rl.Allow("k")
	if rl.Allow("k") {
		t.Fatal("expected limit reached")
	}
	rl.Forget("k")
	if !rl.Allow("k") {
		t.Error("expected fresh window after Forget")
	}
}

func TestRateLimiterDisabled(t *testing.T) {
	var nilLimiter *RateLimiter
	if !nilLimiter.Allow("k") {
		t.Error("expected nil limiter to allow")
	}
	nilLimiter.Forget("k")

	off := NewRateLimiter(0, time.Second)
	for i := 0; i < 10; i++ {
		if !off.Allow("k") {
			t.Fatal("expected zero limit to allow everything")
		}
	}
}
