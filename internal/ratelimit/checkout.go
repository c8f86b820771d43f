package ratelimit

import (
	"context"
	"time"

	"github.com/ramonsune/custodia360/internal/config"
	redis "github.com/redis/go-redis/v9"
)

const checkoutAttemptKey = "custodia360:checkout:attempts:"

// CheckoutLimiter bounds payment-session attempts per draft session.
// A nil limiter allows everything.
type CheckoutLimiter struct {
	bucket *TokenBucket
	rate   float64
	burst  int
}

func NewCheckoutLimiter(client *redis.Client, cfg config.Config) *CheckoutLimiter {
	perMinute, burst := cfg.Checkout.AttemptsPerMinute, cfg.Checkout.AttemptBurst
	if client == nil || perMinute <= 0 || burst <= 0 {
		return nil
	}
	return &CheckoutLimiter{
		bucket: NewTokenBucket(client),
		rate:   float64(perMinute) / 60,
		burst:  burst,
	}
}

// Allow reports whether sessionID may start another checkout attempt.
// Limiter errors allow the attempt.
func (l *CheckoutLimiter) Allow(ctx context.Context, sessionID string) (bool, time.Duration, error) {
	if l == nil {
		return true, 0, nil
	}
	d, err := l.bucket.Allow(ctx, checkoutAttemptKey+sessionID, l.rate, l.burst)
	if err != nil {
		return true, 0, err
	}
	return d.Allowed, d.RetryAfter, nil
}
