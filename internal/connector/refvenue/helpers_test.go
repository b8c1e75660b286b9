package refvenue

import "golang.org/x/time/rate"

func newTestLimiter(ratePerSec float64, burst int) *rate.Limiter {
	return rate.NewLimiter(rate.Limit(ratePerSec), burst)
}
