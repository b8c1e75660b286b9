// breaker.go wraps each endpoint category in its own circuit breaker so a
// degraded venue fails fast instead of piling up timed-out requests behind
// the rate limiter. Tripping is based on consecutive failures, the simplest
// policy that still protects the atomic-submission guarantee: once the
// breaker is open, Submit/Cancel return immediately rather than leaving an
// order in an ambiguous in-flight state.
package refvenue

import (
	"time"

	"github.com/sony/gobreaker/v2"
)

// Breakers groups one circuit breaker per endpoint category, mirroring the
// RateLimiter split.
type Breakers struct {
	Order   *gobreaker.CircuitBreaker[any]
	Cancel  *gobreaker.CircuitBreaker[any]
	Book    *gobreaker.CircuitBreaker[any]
	Account *gobreaker.CircuitBreaker[any]
}

// NewBreakers builds breakers with conservative defaults: trip after 5
// consecutive failures, stay open for 15s, then allow a single trial
// request through in half-open state.
func NewBreakers(venue string) *Breakers {
	mk := func(category string) *gobreaker.CircuitBreaker[any] {
		return gobreaker.NewCircuitBreaker[any](gobreaker.Settings{
			Name:        venue + "." + category,
			MaxRequests: 1,
			Interval:    0,
			Timeout:     15 * time.Second,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= 5
			},
		})
	}
	return &Breakers{
		Order:   mk("order"),
		Cancel:  mk("cancel"),
		Book:    mk("book"),
		Account: mk("account"),
	}
}

func (b *Breakers) forCategory(category string) *gobreaker.CircuitBreaker[any] {
	switch category {
	case "order":
		return b.Order
	case "cancel":
		return b.Cancel
	case "book":
		return b.Book
	case "account":
		return b.Account
	default:
		return nil
	}
}

// Run executes fn through the named category's breaker. Categories with no
// matching breaker run fn directly.
func (b *Breakers) Run(category string, fn func() (any, error)) (any, error) {
	cb := b.forCategory(category)
	if cb == nil {
		return fn()
	}
	return cb.Execute(fn)
}
