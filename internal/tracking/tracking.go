// Package tracking implements the tracking-limit engine: achieve a full
// fill of a target size by repeatedly placing a limit order pegged to the
// top of book, cancelling and re-pegging whenever the interval elapses
// without a fill, until filled, the deadline passes, or max attempts is
// exceeded. Grounded on the teacher's quote-refresh cancel/replace loop in
// strategy/maker.go, rewritten around this spec's submit→wait→cancel→
// reloop state machine instead of Avellaneda-Stoikov quote computation.
package tracking

import (
	"context"
	"fmt"
	"time"

	"venueexec/internal/errs"
	"venueexec/internal/marketdata"
	"venueexec/internal/model"
	"venueexec/internal/orderservice"
	"venueexec/pkg/types"
)

// epsilon bounds the "close enough to filled" check in basis points of the
// original target size.
const epsilonBasisPoints = 1

// Params configures one tracking-limit attempt.
type Params struct {
	Symbol           types.CanonicalSymbol
	IsAsk            bool
	TargetSizeI      int64
	PriceOffsetTicks int64
	IntervalSecs     float64
	TimeoutSecs      float64
	CancelWaitSecs   float64
	MaxAttempts      int // 0 means unbounded
	PostOnly         bool
	ReduceOnly       bool
	TraceID          string
}

// Attempt records the outcome of one submit cycle.
type Attempt struct {
	Number  int
	COI     int64
	PriceI  int64
	State   types.OrderState
	FilledI int64
}

// Result is returned once the target is filled, the deadline passes, or
// max attempts is exhausted.
type Result struct {
	FinalOrder    *model.Order
	Attempts      []Attempt
	FilledBaseI   int64
}

// Engine drives tracking-limit attempts for one venue.
type Engine struct {
	orders *orderservice.Service
	market *marketdata.Service
}

// New builds a tracking engine over orders/market for one venue.
func New(orders *orderservice.Service, market *marketdata.Service) *Engine {
	return &Engine{orders: orders, market: market}
}

// Run executes the tracking-limit algorithm described in spec §4.6.
func (e *Engine) Run(ctx context.Context, p Params) (Result, error) {
	if p.IntervalSecs <= 0 || p.TimeoutSecs <= 0 {
		return Result{}, fmt.Errorf("tracking: interval_secs and timeout_secs must be positive")
	}

	deadline := time.Now().Add(time.Duration(p.TimeoutSecs * float64(time.Second)))
	remaining := p.TargetSizeI
	epsilon := epsilonI(p.TargetSizeI)

	var attempts []Attempt
	var lastOrder *model.Order
	var lastErr error

	for attemptNum := 1; ; attemptNum++ {
		if p.MaxAttempts > 0 && attemptNum > p.MaxAttempts {
			return Result{FinalOrder: lastOrder, Attempts: attempts, FilledBaseI: p.TargetSizeI - remaining},
				&errs.TrackingLimitTimeout{Attempts: len(attempts), RemainingI: remaining, TargetI: p.TargetSizeI, LastAttemptErr: lastErr}
		}
		if time.Now().After(deadline) {
			return Result{FinalOrder: lastOrder, Attempts: attempts, FilledBaseI: p.TargetSizeI - remaining},
				&errs.TrackingLimitTimeout{Attempts: len(attempts), RemainingI: remaining, TargetI: p.TargetSizeI, LastAttemptErr: lastErr}
		}

		tob, err := e.market.GetTopOfBook(ctx, p.Symbol)
		if err != nil {
			return Result{}, fmt.Errorf("tracking: get top of book: %w", err)
		}

		priceI, err := referencePrice(tob, p.IsAsk, p.PriceOffsetTicks)
		if err != nil {
			return Result{}, fmt.Errorf("tracking: attempt %d: %w", attemptNum, err)
		}

		order, err := e.orders.SubmitLimit(ctx, p.Symbol, p.IsAsk, remaining, priceI, p.PostOnly, p.ReduceOnly, p.TraceID)
		if err != nil {
			lastErr = err
			return Result{FinalOrder: order, Attempts: attempts, FilledBaseI: p.TargetSizeI - remaining}, err
		}
		lastOrder = order
		attempt := Attempt{Number: attemptNum, COI: order.COI, PriceI: priceI}

		waitFor := p.IntervalSecs
		if left := time.Until(deadline).Seconds(); left < waitFor {
			waitFor = left
		}
		waitCtx, cancel := context.WithTimeout(ctx, durationFromSeconds(waitFor))
		evt, err := order.WaitFinal(waitCtx)
		cancel()

		if err != nil {
			// interval elapsed (or deadline reached) without a terminal state
			cancelCtx, cancelCancel := context.WithTimeout(ctx, 5*time.Second)
			cancelErr := e.orders.Cancel(cancelCtx, p.Symbol, order.COI)
			cancelCancel()
			lastErr = cancelErr

			graceCtx, graceCancel := context.WithTimeout(ctx, durationFromSeconds(p.CancelWaitSecs))
			finalEvt, finalErr := order.WaitFinal(graceCtx)
			graceCancel()

			filled := extractFilled(order, finalEvt, finalErr)
			remaining -= filled
			attempt.State = order.State()
			attempt.FilledI = filled
			attempts = append(attempts, attempt)

			if remaining <= epsilon {
				return Result{FinalOrder: order, Attempts: attempts, FilledBaseI: p.TargetSizeI - remaining}, nil
			}
			continue
		}

		attempt.State = evt.State
		switch evt.State {
		case types.Filled:
			attempt.FilledI = remaining
			attempts = append(attempts, attempt)
			return Result{FinalOrder: order, Attempts: attempts, FilledBaseI: p.TargetSizeI}, nil
		case types.Failed:
			attempts = append(attempts, attempt)
			return Result{FinalOrder: order, Attempts: attempts, FilledBaseI: p.TargetSizeI - remaining}, fmt.Errorf("tracking: attempt %d failed: %v", attemptNum, evt.Info["error"])
		case types.Cancelled:
			filled := filledFromEvent(evt)
			remaining -= filled
			attempt.FilledI = filled
			attempts = append(attempts, attempt)
			if remaining <= epsilon {
				return Result{FinalOrder: order, Attempts: attempts, FilledBaseI: p.TargetSizeI - remaining}, nil
			}
			continue
		default:
			attempts = append(attempts, attempt)
			continue
		}
	}
}

func referencePrice(tob types.TopOfBook, isAsk bool, offsetTicks int64) (int64, error) {
	var priceI int64
	if isAsk {
		if tob.BestAskI == 0 {
			return 0, fmt.Errorf("no ask reference available")
		}
		priceI = tob.BestAskI + offsetTicks
	} else {
		if tob.BestBidI == 0 {
			return 0, fmt.Errorf("no bid reference available")
		}
		priceI = tob.BestBidI - offsetTicks
	}
	if priceI <= 0 {
		return 0, fmt.Errorf("computed non-positive price %d", priceI)
	}
	return priceI, nil
}

func epsilonI(target int64) int64 {
	e := target * epsilonBasisPoints / 10000
	if e < 1 {
		e = 1
	}
	return e
}

func durationFromSeconds(s float64) time.Duration {
	if s <= 0 {
		return time.Millisecond
	}
	return time.Duration(s * float64(time.Second))
}

func filledFromEvent(evt model.Event) int64 {
	for _, key := range []string{"filled_base_i", "filled_size_i", "filled"} {
		v, ok := evt.Info[key]
		if !ok {
			continue
		}
		switch n := v.(type) {
		case int64:
			return n
		case int:
			return int64(n)
		case float64:
			return int64(n)
		}
	}
	return 0
}

func extractFilled(order *model.Order, finalEvt model.Event, finalErr error) int64 {
	if finalErr == nil {
		return filledFromEvent(finalEvt)
	}
	return order.FilledBaseI()
}
