// Package ratelimit throttles outgoing requests to the remote sheet API.
package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Config configures a Limiter.
type Config struct {
	RequestsPerMinute int // 0 selects the default of 60
	Burst             int // 0 means the same as RequestsPerMinute
}

// Limiter is a token bucket. The zero value is not usable; use New.
type Limiter struct {
	mu         sync.Mutex
	tokens     float64
	max        float64
	perSecond  float64
	lastRefill time.Time
	now        func() time.Time
}

// New creates a limiter that starts with a full bucket.
func New(cfg Config) *Limiter {
	rpm := float64(cfg.RequestsPerMinute)
	if rpm <= 0 {
		rpm = 60
	}
	burst := float64(cfg.Burst)
	if burst <= 0 {
		burst = rpm
	}
	return &Limiter{
		tokens:     burst,
		max:        burst,
		perSecond:  rpm / 60.0,
		lastRefill: time.Now(),
		now:        time.Now,
	}
}

// Wait blocks until a token is available or ctx is done.
func (l *Limiter) Wait(ctx context.Context) error {
	for {
		if l.TryAcquire() {
			return nil
		}

		l.mu.Lock()
		missing := 1 - l.tokens
		wait := time.Duration(missing / l.perSecond * float64(time.Second))
		l.mu.Unlock()
		if wait < time.Millisecond {
			wait = time.Millisecond
		}

		t := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			t.Stop()
			return ctx.Err()
		case <-t.C:
		}
	}
}

// TryAcquire takes a token without blocking.
func (l *Limiter) TryAcquire() bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.refill()
	if l.tokens >= 1 {
		l.tokens--
		return true
	}
	return false
}

// Available returns the current number of tokens.
func (l *Limiter) Available() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.refill()
	return l.tokens
}

func (l *Limiter) refill() {
	now := l.now()
	elapsed := now.Sub(l.lastRefill).Seconds()
	l.lastRefill = now
	if elapsed <= 0 {
		return
	}
	l.tokens += elapsed * l.perSecond
	if l.tokens > l.max {
		l.tokens = l.max
	}
}
