// Package rate wraps golang.org/x/time/rate with the defaults and helpers
// used across reconmcp: a nil *Limiter means "no limit".
package rate

import (
	"context"
	"time"

	xrate "golang.org/x/time/rate"
)

// Limiter is a token bucket limiter. A nil *Limiter never blocks.
type Limiter struct {
	lim *xrate.Limiter
}

// New creates a limiter that refills rate tokens per second and holds at
// most burst tokens. Non-positive values default to 1.
//
// Example:
//
//	limiter := rate.New(10, 5) // 10 req/s, burst of 5
func New(rate float64, burst int) *Limiter {
	if rate <= 0 {
		rate = 1
	}
	if burst <= 0 {
		burst = 1
	}
	return &Limiter{lim: xrate.NewLimiter(xrate.Limit(rate), burst)}
}

// NewPer allows events operations per window, all of them available as
// burst. NewPer(5, time.Minute) is the scan tool throttle.
func NewPer(events int, window time.Duration) *Limiter {
	if events <= 0 {
		events = 1
	}
	if window <= 0 {
		window = time.Second
	}
	return &Limiter{lim: xrate.NewLimiter(xrate.Every(window/time.Duration(events)), events)}
}

// NewOptional returns nil (unlimited) when rate is not positive.
func NewOptional(rate float64, burst int) *Limiter {
	if rate <= 0 {
		return nil
	}
	return New(rate, burst)
}

// Wait blocks until a token is available or ctx is done.
func (l *Limiter) Wait(ctx context.Context) error {
	if l == nil {
		return ctx.Err()
	}
	return l.lim.Wait(ctx)
}

// Allow reports whether an operation can proceed now, consuming a token.
func (l *Limiter) Allow() bool {
	if l == nil {
		return true
	}
	return l.lim.Allow()
}

// Delay reports how long the caller would have to wait for a token
// without consuming it.
func (l *Limiter) Delay() time.Duration {
	if l == nil {
		return 0
	}
	r := l.lim.Reserve()
	d := r.Delay()
	r.Cancel()
	return d
}

// Available returns the whole tokens currently in the bucket. A nil
// limiter reports -1 (unlimited).
func (l *Limiter) Available() int {
	if l == nil {
		return -1
	}
	return int(l.lim.Tokens())
}

// Burst returns the bucket capacity.
func (l *Limiter) Burst() int {
	if l == nil {
		return 0
	}
	return l.lim.Burst()
}
