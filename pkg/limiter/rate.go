package limiter

import (
	"context"
	"math"
	"time"

	"golang.org/x/time/rate"
)

// RateLimiter
// Admission gate shared by every fetch-side call of a crawl run.
// Responsibilities:
// - Bound the aggregate request rate across all workers combined
// - Allow bursts up to the bucket capacity
// - Block callers until a token is available or their context ends
type RateLimiter interface {
	Acquire(ctx context.Context) error
	TryAcquire() bool
}

// TokenBucket is a continuous-refill token bucket.
//
// Capacity equals the requests-per-second target and the bucket starts
// full. Refill follows tokens = min(capacity, tokens + elapsed*capacity);
// a caller is admitted when at least one token is available. A single
// bucket is shared by all workers, which is what turns the per-call gate
// into a global rate guarantee.
//
// For fractional rates below one request per second the bucket still holds
// one whole token, otherwise nothing would ever be admitted.
type TokenBucket struct {
	limiter  *rate.Limiter
	capacity float64
}

func NewTokenBucket(requestsPerSecond float64) *TokenBucket {
	burst := int(math.Floor(requestsPerSecond))
	if burst < 1 {
		burst = 1
	}
	return &TokenBucket{
		limiter:  rate.NewLimiter(rate.Limit(requestsPerSecond), burst),
		capacity: float64(burst),
	}
}

// Acquire blocks until one token has been taken from the bucket.
// It returns the context error if ctx ends first, or immediately when the
// required wait would overrun the context deadline.
func (b *TokenBucket) Acquire(ctx context.Context) error {
	return b.limiter.Wait(ctx)
}

// TryAcquire takes a token if one is available right now.
func (b *TokenBucket) TryAcquire() bool {
	return b.limiter.Allow()
}

// TryAcquireAt takes a token if one is available at instant t.
func (b *TokenBucket) TryAcquireAt(t time.Time) bool {
	return b.limiter.AllowN(t, 1)
}

// Tokens returns the current (fractional) token balance.
func (b *TokenBucket) Tokens() float64 {
	return b.limiter.Tokens()
}

// TokensAt returns the token balance the bucket would hold at instant t.
func (b *TokenBucket) TokensAt(t time.Time) float64 {
	return b.limiter.TokensAt(t)
}

func (b *TokenBucket) Capacity() float64 {
	return b.capacity
}

func (b *TokenBucket) Rate() float64 {
	return float64(b.limiter.Limit())
}
