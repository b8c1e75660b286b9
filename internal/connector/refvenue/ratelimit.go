// ratelimit.go groups golang.org/x/time/rate limiters by endpoint
// category, the same per-category split the reference bot's hand-rolled
// token bucket used (Order/Cancel/Book), generalized with an Account
// category for position/margin polling and swapped onto the ecosystem
// limiter instead of a bespoke one.
package refvenue

import (
	"context"

	"golang.org/x/time/rate"
)

// RateLimiter groups per-category token buckets for one venue connection.
type RateLimiter struct {
	Order   *rate.Limiter
	Cancel  *rate.Limiter
	Book    *rate.Limiter
	Account *rate.Limiter
}

// NewRateLimiter creates rate limiters tuned to conservative defaults.
// Capacities are the burst allowance, rates are steady-state per second.
func NewRateLimiter() *RateLimiter {
	return &RateLimiter{
		Order:   rate.NewLimiter(rate.Limit(50), 350),
		Cancel:  rate.NewLimiter(rate.Limit(30), 300),
		Book:    rate.NewLimiter(rate.Limit(15), 150),
		Account: rate.NewLimiter(rate.Limit(5), 20),
	}
}

// Wait blocks on the named category until a token is available or ctx is
// done. Unknown categories are not rate limited.
func (r *RateLimiter) Wait(ctx context.Context, category string) error {
	var l *rate.Limiter
	switch category {
	case "order":
		l = r.Order
	case "cancel":
		l = r.Cancel
	case "book":
		l = r.Book
	case "account":
		l = r.Account
	default:
		return nil
	}
	return l.Wait(ctx)
}
