// internal/utils/rate_limiter_test.go
package utils

import (
	"context"
	"testing"
	"time"
)

func TestRateLimiterAllow(t *testing.T) {
	rl := NewRateLimiter(1)
	if !rl.Allow() {
		t.Fatal("first event should be allowed")
	}
	if rl.Allow() {
		t.Error("second immediate event should be limited")
	}
}

func TestRateLimiterWaitCancelled(t *testing.T) {
	rl := NewRateLimiter(0.01)
	rl.Allow()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := rl.Wait(ctx); err == nil {
		t.Error("Wait should fail when the next event is beyond the deadline")
	}
}

func TestRateLimiterUnlimited(t *testing.T) {
	for _, r := range []float64{0, -1} {
		rl := NewRateLimiter(r)
		if !rl.Unlimited() {
			t.Errorf("rate %v should disable limiting", r)
		}
		for i := 0; i < 10; i++ {
			if !rl.Allow() {
				t.Fatalf("rate %v limited event %d", r, i)
			}
		}
	}
	if NewRateLimiter(4).Unlimited() {
		t.Error("rate 4 should limit")
	}
}
