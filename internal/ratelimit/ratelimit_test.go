package ratelimit

import (
	"context"
	"testing"
	"time"
)

func TestTryAcquire_Burst(t *testing.T) {
	l := New(Config{RequestsPerMinute: 60, Burst: 3})

	for i := 0; i < 3; i++ {
		if !l.TryAcquire() {
			t.Fatalf("token %d should be available", i)
		}
	}
	if l.TryAcquire() {
		t.Error("fourth acquire should fail")
	}
}

func TestRefill(t *testing.T) {
	now := time.Now()
	l := New(Config{RequestsPerMinute: 60, Burst: 1})
	l.now = func() time.Time { return now }
	l.lastRefill = now

	if !l.TryAcquire() {
		t.Fatal("first acquire should succeed")
	}
	if l.TryAcquire() {
		t.Fatal("bucket should be empty")
	}

	now = now.Add(1500 * time.Millisecond)
	if !l.TryAcquire() {
		t.Error("token should be refilled after 1.5s at 1/s")
	}
}

func TestRefill_CapsAtBurst(t *testing.T) {
	now := time.Now()
	l := New(Config{RequestsPerMinute: 600, Burst: 2})
	l.now = func() time.Time { return now }
	l.lastRefill = now

	now = now.Add(time.Hour)
	if got := l.Available(); got != 2 {
		t.Errorf("available = %v, want 2", got)
	}
}

func TestWait_ContextCancelled(t *testing.T) {
	l := New(Config{RequestsPerMinute: 1, Burst: 1})
	l.TryAcquire()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	if err := l.Wait(ctx); err == nil {
		t.Error("expected context error while bucket is empty")
	}
}

func TestWait_ReturnsWhenTokenAvailable(t *testing.T) {
	l := New(Config{RequestsPerMinute: 6000, Burst: 1})
	l.TryAcquire()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	start := time.Now()
	if err := l.Wait(ctx); err != nil {
		t.Fatalf("Wait: %v", err)
	}
	if time.Since(start) > 500*time.Millisecond {
		t.Error("wait took too long for 100 tokens/s")
	}
}

func TestDefaults(t *testing.T) {
	l := New(Config{})
	if l.max != 60 {
		t.Errorf("burst = %v, want 60", l.max)
	}
	if l.perSecond != 1 {
		t.Errorf("rate = %v, want 1/s", l.perSecond)
	}
}
