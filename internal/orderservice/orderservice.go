// Package orderservice owns order submission, cancellation, and update
// ingestion. It holds the client-order-index generator and the order
// registry, grounded on the teacher's engine-level order bookkeeping but
// made explicit as its own service per the connector/order-service split
// the rest of the engine depends on.
package orderservice

import (
	"context"
	"fmt"
	"sync"
	"time"

	"venueexec/internal/connector"
	"venueexec/internal/errs"
	"venueexec/internal/marketdata"
	"venueexec/internal/model"
	"venueexec/internal/orderlog"
	"venueexec/internal/risk"
	"venueexec/pkg/types"
)

// Service submits, cancels, and tracks orders for one venue.
type Service struct {
	venue     string
	conn      connector.Connector
	market    *marketdata.Service
	validator *risk.Validator
	logDir    string
	coiGen    *model.COIGenerator

	mu       sync.Mutex
	registry map[model.Identity]*model.Order
	notify   func(model.Identity, model.Event)
}

// New builds an order service for one venue. logDir is passed to
// orderlog.Open for each new order's own event-log file; empty disables
// the log.
func New(venue string, conn connector.Connector, market *marketdata.Service, validator *risk.Validator, coiModulus int64, logDir string) *Service {
	return &Service{
		venue:     venue,
		conn:      conn,
		market:    market,
		validator: validator,
		logDir:    logDir,
		coiGen:    model.NewCOIGenerator(coiModulus),
		registry:  make(map[model.Identity]*model.Order),
	}
}

// SetNotifier registers fn to be called after every state transition this
// service applies. Used to feed the diagnostic stream; nil by default.
func (s *Service) SetNotifier(fn func(model.Identity, model.Event)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notify = fn
}

func (s *Service) register(o *model.Order) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.registry[o.Identity] = o
}

func (s *Service) announce(id model.Identity, evt model.Event) {
	s.mu.Lock()
	fn := s.notify
	s.mu.Unlock()
	if fn != nil {
		fn(id, evt)
	}
}

func (s *Service) lookup(symbol types.CanonicalSymbol, coi int64) (*model.Order, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.registry[model.Identity{Venue: s.venue, Symbol: symbol, COI: coi}]
	return o, ok
}

// SubmitLimit places a resting limit order for sizeI units at priceI,
// returning the registered Order immediately after the venue acknowledges
// submission. Callers await the order's final state via WaitFinal.
func (s *Service) SubmitLimit(ctx context.Context, symbol types.CanonicalSymbol, isAsk bool, sizeI, priceI int64, postOnly, reduceOnly bool, traceID string) (*model.Order, error) {
	if err := s.validator.ValidateOrder(ctx, symbol, sizeI, isAsk, priceI); err != nil {
		return nil, err
	}

	venueSymbol, err := s.market.ResolveSymbol(symbol)
	if err != nil {
		return nil, err
	}

	coi := s.coiGen.Next()
	id := model.Identity{Venue: s.venue, Symbol: symbol, COI: coi}
	writer, err := orderlog.Open(s.logDir, s.venue, string(symbol), coi)
	if err != nil {
		return nil, &errs.ConnectorError{Venue: s.venue, Op: "open_order_log", Err: err}
	}
	order := model.New(id, isAsk, sizeI, priceI, traceID, writer)
	s.register(order)

	submitEvt := model.Event{State: types.Submitting, Info: map[string]any{
		"size_i": sizeI, "price_i": priceI, "is_ask": isAsk, "post_only": postOnly, "reduce_only": reduceOnly,
	}}
	order.Apply(submitEvt)
	s.announce(id, submitEvt)

	exchangeID, err := s.conn.SubmitLimitOrder(ctx, venueSymbol, coi, sizeI, priceI, isAsk, postOnly, reduceOnly)
	if err != nil {
		failEvt := model.Event{State: types.Failed, Info: map[string]any{"error": err.Error()}}
		order.Apply(failEvt)
		s.announce(id, failEvt)
		return order, &errs.ConnectorError{Venue: s.venue, Op: "submit_limit", Err: err}
	}

	order.SetExchangeOrderID(exchangeID)
	openEvt := model.Event{State: types.Open, Info: map[string]any{"exchange_order_id": exchangeID}}
	order.Apply(openEvt)
	s.announce(id, openEvt)
	return order, nil
}

// SubmitMarket places an immediate-execution order for sizeI units.
func (s *Service) SubmitMarket(ctx context.Context, symbol types.CanonicalSymbol, isAsk bool, sizeI int64, reduceOnly bool, traceID string) (*model.Order, error) {
	if err := s.validator.ValidateOrder(ctx, symbol, sizeI, isAsk, 0); err != nil {
		return nil, err
	}

	venueSymbol, err := s.market.ResolveSymbol(symbol)
	if err != nil {
		return nil, err
	}

	coi := s.coiGen.Next()
	id := model.Identity{Venue: s.venue, Symbol: symbol, COI: coi}
	writer, err := orderlog.Open(s.logDir, s.venue, string(symbol), coi)
	if err != nil {
		return nil, &errs.ConnectorError{Venue: s.venue, Op: "open_order_log", Err: err}
	}
	order := model.New(id, isAsk, sizeI, 0, traceID, writer)
	s.register(order)

	submitEvt := model.Event{State: types.Submitting, Info: map[string]any{
		"size_i": sizeI, "is_ask": isAsk, "reduce_only": reduceOnly,
	}}
	order.Apply(submitEvt)
	s.announce(id, submitEvt)

	exchangeID, err := s.conn.SubmitMarketOrder(ctx, venueSymbol, coi, sizeI, isAsk, reduceOnly)
	if err != nil {
		failEvt := model.Event{State: types.Failed, Info: map[string]any{"error": err.Error()}}
		order.Apply(failEvt)
		s.announce(id, failEvt)
		return order, &errs.ConnectorError{Venue: s.venue, Op: "submit_market", Err: err}
	}

	order.SetExchangeOrderID(exchangeID)
	openEvt := model.Event{State: types.Open, Info: map[string]any{"exchange_order_id": exchangeID}}
	order.Apply(openEvt)
	s.announce(id, openEvt)
	return order, nil
}

// Cancel cancels a registered order by COI. Cancellation is the
// authoritative terminal state for engine-initiated cancels; a later
// racing venue update is a no-op against an already-terminal order.
func (s *Service) Cancel(ctx context.Context, symbol types.CanonicalSymbol, coi int64) error {
	order, ok := s.lookup(symbol, coi)
	if !ok {
		return &errs.UnknownOrder{Symbol: string(symbol), COI: coi}
	}

	venueSymbol, err := s.market.ResolveSymbol(symbol)
	if err != nil {
		return err
	}

	if err := s.conn.CancelByClientID(ctx, venueSymbol, coi); err != nil {
		return &errs.ConnectorError{Venue: s.venue, Op: "cancel", Err: err}
	}

	cancelEvt := model.Event{State: types.Cancelled, Timestamp: time.Now()}
	if order.Apply(cancelEvt) {
		s.announce(order.Identity, cancelEvt)
	}
	return nil
}

// IngestUpdate implements connector.UpdateSink. It looks up the order by
// COI and applies the venue's reported state; unknown orders are dropped
// (the venue may report updates for orders this process never registered,
// e.g. after a restart).
func (s *Service) IngestUpdate(venue string, symbol types.CanonicalSymbol, coi int64, status types.VenueOrderStatus) {
	order, ok := s.lookup(symbol, coi)
	if !ok {
		return
	}
	info := map[string]any{}
	for k, v := range status.Raw {
		info[k] = v
	}
	if status.HasFilledBaseI {
		info["filled_base_i"] = status.FilledBaseI
	}
	if status.ExchangeID != "" {
		order.SetExchangeOrderID(status.ExchangeID)
		info["exchange_order_id"] = status.ExchangeID
	}
	evt := model.Event{State: status.State, Info: info}
	if order.Apply(evt) {
		s.announce(order.Identity, evt)
	}
}

// FetchOrder polls the connector for current venue state and ingests the
// result, returning the (possibly updated) Order.
func (s *Service) FetchOrder(ctx context.Context, symbol types.CanonicalSymbol, coi int64) (*model.Order, error) {
	order, ok := s.lookup(symbol, coi)
	if !ok {
		return nil, &errs.UnknownOrder{Symbol: string(symbol), COI: coi}
	}

	venueSymbol, err := s.market.ResolveSymbol(symbol)
	if err != nil {
		return nil, err
	}

	status, err := s.conn.GetOrder(ctx, venueSymbol, coi)
	if err != nil {
		return nil, &errs.ConnectorError{Venue: s.venue, Op: "fetch_order", Err: fmt.Errorf("get order: %w", err)}
	}
	s.IngestUpdate(s.venue, symbol, coi, status)
	return order, nil
}
