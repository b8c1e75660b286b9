// validator.go implements the pre-trade checks every order passes through
// before submission: minimum size, position cap, and notional cap. It
// rejects a single order attempt; it does not track aggregate exposure
// across the process's lifetime.
package risk

import (
	"context"
	"math"

	"venueexec/internal/errs"
	"venueexec/internal/marketdata"
	"venueexec/internal/position"
	"venueexec/pkg/types"
)

// Limits are the pre-trade caps for one symbol/venue pair. Zero means
// unlimited.
type Limits struct {
	MaxPosition float64
	MaxNotional float64
}

// Validator runs validate_order against a market-data service and a
// position service.
type Validator struct {
	limits   Limits
	market   *marketdata.Service
	position *position.Service
}

// NewValidator builds a Validator enforcing limits using market and
// position for symbol/size/price resolution.
func NewValidator(limits Limits, market *marketdata.Service, position *position.Service) *Validator {
	return &Validator{limits: limits, market: market, position: position}
}

// ValidateOrder runs the three checks spec §4.3 requires in order,
// returning the first violation encountered. priceI may be zero to signal
// "use top-of-book far side" for the notional check.
func (v *Validator) ValidateOrder(ctx context.Context, symbol types.CanonicalSymbol, sizeI int64, isAsk bool, priceI int64) error {
	if err := v.market.EnsureMinSize(ctx, symbol, sizeI); err != nil {
		return &errs.RiskViolation{Rule: "min_size", Message: err.Error()}
	}

	if v.limits.MaxPosition > 0 {
		decimals, err := v.market.GetPriceSizeDecimals(ctx, symbol)
		if err != nil {
			return err
		}
		sizeDec := float64(sizeI) / pow10f(decimals.SizeDecimals)
		signed := sizeDec
		if isAsk {
			signed = -sizeDec
		}
		future := v.position.NetBase(symbol) + signed
		if math.Abs(future) > v.limits.MaxPosition {
			return &errs.RiskViolation{
				Rule:    "max_position",
				Value:   math.Abs(future),
				Limit:   v.limits.MaxPosition,
				Message: "order would breach max_position",
			}
		}
	}

	if v.limits.MaxNotional > 0 {
		decimals, err := v.market.GetPriceSizeDecimals(ctx, symbol)
		if err != nil {
			return err
		}
		effPriceI := priceI
		if effPriceI == 0 {
			tob, err := v.market.GetTopOfBook(ctx, symbol)
			if err != nil {
				return &errs.RiskViolation{Rule: "max_notional", Message: "top of book unavailable for notional check"}
			}
			if isAsk {
				effPriceI = tob.BestBidI
			} else {
				effPriceI = tob.BestAskI
			}
			if effPriceI == 0 {
				return &errs.RiskViolation{Rule: "max_notional", Message: "no price available for notional check"}
			}
		}
		price := float64(effPriceI) / pow10f(decimals.PriceDecimals)
		size := float64(sizeI) / pow10f(decimals.SizeDecimals)
		notional := price * size
		if notional > v.limits.MaxNotional {
			return &errs.RiskViolation{
				Rule:    "max_notional",
				Value:   notional,
				Limit:   v.limits.MaxNotional,
				Message: "order would breach max_notional",
			}
		}
	}

	return nil
}

func pow10f(n int) float64 {
	return math.Pow(10, float64(n))
}
