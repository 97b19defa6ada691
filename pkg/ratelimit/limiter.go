package ratelimit

import (
	"context"
	"sync"
	"time"

	"osintgram/pkg/config"
)

// Limiter paces outgoing remote calls
type Limiter interface {
	// Allow reports whether a call may proceed now, consuming a slot if so
	Allow() bool
	// Wait blocks until a call may proceed or ctx is done
	Wait(ctx context.Context) error
	// Reset restores the full allowance
	Reset()
}

// TokenBucket refills continuously at a fixed rate up to capacity
type TokenBucket struct {
	capacity float64
	tokens   float64
	perToken time.Duration
	last     time.Time
	now      func() time.Time
	mu       sync.Mutex
}

// NewTokenBucket creates a bucket holding up to burst tokens that regains
// one token every perToken.
func NewTokenBucket(burst int, perToken time.Duration) *TokenBucket {
	if burst < 1 {
		burst = 1
	}
	tb := &TokenBucket{
		capacity: float64(burst),
		tokens:   float64(burst),
		perToken: perToken,
		now:      time.Now,
	}
	tb.last = tb.now()
	return tb
}

// FromConfig builds the limiter used for platform API calls
func FromConfig(cfg config.RateLimitConfig) *TokenBucket {
	rpm := cfg.RequestsPerMinute
	if rpm < 1 {
		rpm = 1
	}
	return NewTokenBucket(cfg.BurstSize, time.Minute/time.Duration(rpm))
}

func (tb *TokenBucket) Allow() bool {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	tb.refill()
	if tb.tokens >= 1 {
		tb.tokens--
		return true
	}
	return false
}

func (tb *TokenBucket) Wait(ctx context.Context) error {
	for !tb.Allow() {
		if err := sleep(ctx, tb.untilNextToken()); err != nil {
			return err
		}
	}
	return nil
}

func (tb *TokenBucket) Reset() {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	tb.tokens = tb.capacity
	tb.last = tb.now()
}

func (tb *TokenBucket) refill() {
	now := tb.now()
	if tb.perToken <= 0 {
		tb.tokens = tb.capacity
		tb.last = now
		return
	}
	gained := float64(now.Sub(tb.last)) / float64(tb.perToken)
	if gained <= 0 {
		return
	}
	tb.tokens += gained
	if tb.tokens > tb.capacity {
		tb.tokens = tb.capacity
	}
	tb.last = now
}

func (tb *TokenBucket) untilNextToken() time.Duration {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	missing := 1 - tb.tokens
	if missing <= 0 {
		return 0
	}
	return time.Duration(missing * float64(tb.perToken))
}

// SlidingWindow allows at most maxRequests within any windowSize span
type SlidingWindow struct {
	windowSize  time.Duration
	maxRequests int
	requests    []time.Time
	now         func() time.Time
	mu          sync.Mutex
}

// NewSlidingWindow creates a new sliding window rate limiter
func NewSlidingWindow(maxRequests int, windowSize time.Duration) *SlidingWindow {
	if maxRequests < 1 {
		maxRequests = 1
	}
	return &SlidingWindow{
		windowSize:  windowSize,
		maxRequests: maxRequests,
		requests:    make([]time.Time, 0, maxRequests),
		now:         time.Now,
	}
}

func (sw *SlidingWindow) Allow() bool {
	sw.mu.Lock()
	defer sw.mu.Unlock()

	now := sw.now()
	sw.cleanOldRequests(now)

	if len(sw.requests) < sw.maxRequests {
		sw.requests = append(sw.requests, now)
		return true
	}
	return false
}

func (sw *SlidingWindow) Wait(ctx context.Context) error {
	for !sw.Allow() {
		sw.mu.Lock()
		wait := sw.windowSize - sw.now().Sub(sw.requests[0])
		sw.mu.Unlock()

		if err := sleep(ctx, wait); err != nil {
			return err
		}
	}
	return nil
}

func (sw *SlidingWindow) Reset() {
	sw.mu.Lock()
	defer sw.mu.Unlock()

	sw.requests = sw.requests[:0]
}

// cleanOldRequests drops timestamps that left the window
func (sw *SlidingWindow) cleanOldRequests(now time.Time) {
	cutoff := now.Add(-sw.windowSize)

	i := 0
	for i < len(sw.requests) && !sw.requests[i].After(cutoff) {
		i++
	}
	if i > 0 {
		sw.requests = append(sw.requests[:0], sw.requests[i:]...)
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		d = time.Millisecond
	}
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
