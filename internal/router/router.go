// Package router presents a single façade over the order, market-data,
// risk, and position services plus the market cache, so strategies don't
// assemble service wiring themselves. Grounded on the teacher's engine
// struct, which held the same kind of service bundle, minus its
// strategy/scanner fields which are out of scope for this core.
package router

import (
	"context"

	"venueexec/internal/marketcache"
	"venueexec/internal/marketdata"
	"venueexec/internal/model"
	"venueexec/internal/orderservice"
	"venueexec/internal/position"
	"venueexec/internal/risk"
	"venueexec/internal/tracking"
	"venueexec/pkg/types"
)

// Router is a stateless façade over one venue's services.
type Router struct {
	orders    *orderservice.Service
	market    *marketdata.Service
	validator *risk.Validator
	positions *position.Service
	cache     *marketcache.Cache
	tracker   *tracking.Engine
}

// New builds a Router over the given services.
func New(orders *orderservice.Service, market *marketdata.Service, validator *risk.Validator, positions *position.Service, cache *marketcache.Cache, tracker *tracking.Engine) *Router {
	return &Router{
		orders:    orders,
		market:    market,
		validator: validator,
		positions: positions,
		cache:     cache,
		tracker:   tracker,
	}
}

// SubmitLimit delegates to the order service.
func (r *Router) SubmitLimit(ctx context.Context, symbol types.CanonicalSymbol, isAsk bool, sizeI, priceI int64, postOnly, reduceOnly bool, traceID string) (*model.Order, error) {
	return r.orders.SubmitLimit(ctx, symbol, isAsk, sizeI, priceI, postOnly, reduceOnly, traceID)
}

// SubmitMarket delegates to the order service.
func (r *Router) SubmitMarket(ctx context.Context, symbol types.CanonicalSymbol, isAsk bool, sizeI int64, reduceOnly bool, traceID string) (*model.Order, error) {
	return r.orders.SubmitMarket(ctx, symbol, isAsk, sizeI, reduceOnly, traceID)
}

// Cancel delegates to the order service.
func (r *Router) Cancel(ctx context.Context, symbol types.CanonicalSymbol, coi int64) error {
	return r.orders.Cancel(ctx, symbol, coi)
}

// TrackingLimit runs the tracking-limit engine for one target fill.
func (r *Router) TrackingLimit(ctx context.Context, params tracking.Params) (tracking.Result, error) {
	return r.tracker.Run(ctx, params)
}

// FetchOrder delegates to the order service.
func (r *Router) FetchOrder(ctx context.Context, symbol types.CanonicalSymbol, coi int64) (*model.Order, error) {
	return r.orders.FetchOrder(ctx, symbol, coi)
}

// MarketData exposes the market-data service to callers that need
// resolution/conversion directly.
func (r *Router) MarketData() *marketdata.Service { return r.market }

// Risk exposes the pre-trade validator.
func (r *Router) Risk() *risk.Validator { return r.validator }

// Positions exposes the position service.
func (r *Router) Positions() *position.Service { return r.positions }

// Cache exposes the market cache.
func (r *Router) Cache() *marketcache.Cache { return r.cache }

// OnTransition registers fn to be called on every order state transition,
// used to feed the diagnostic stream.
func (r *Router) OnTransition(fn func(model.Identity, model.Event)) {
	r.orders.SetNotifier(fn)
}

// Snapshot returns a read-only view of router state for the diagnostic
// HTTP surface.
type Snapshot struct {
	Market marketcache.Snapshot `json:"market"`
}

// Snapshot assembles a point-in-time view of cached market state.
func (r *Router) Snapshot() Snapshot {
	return Snapshot{Market: r.cache.Snapshot()}
}
