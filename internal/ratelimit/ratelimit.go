// Package ratelimit wraps golang.org/x/time/rate with the small surface
// the provider transports need.
package ratelimit

import (
	"context"

	"golang.org/x/time/rate"
)

// Limiter throttles outbound provider requests.
type Limiter struct {
	limiter *rate.Limiter
}

// New creates a limiter allowing requestsPerSecond sustained throughput
// with the given burst. Burst values below 1 are raised to 1 so Wait can
// always make progress.
func New(requestsPerSecond float64, burst int) *Limiter {
	if burst < 1 {
		burst = 1
	}
	return &Limiter{
		limiter: rate.NewLimiter(rate.Limit(requestsPerSecond), burst),
	}
}

// Wait blocks until a token is available or ctx is done.
func (l *Limiter) Wait(ctx context.Context) error {
	return l.limiter.Wait(ctx)
}

// Allow reports whether a request may proceed without waiting.
func (l *Limiter) Allow() bool {
	return l.limiter.Allow()
}

// Tokens returns the number of requests that could proceed immediately.
func (l *Limiter) Tokens() float64 {
	return l.limiter.Tokens()
}
