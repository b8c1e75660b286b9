// Package model implements the unified Order object: the engine's single
// source of truth for one order's lifecycle, event history, and awaitable
// completion. It is deliberately connector- and service-agnostic — the
// order service (internal/orderservice) is the only writer, everything
// else is a reader or a waiter.
package model

import (
	"context"
	"fmt"
	"sync"
	"time"

	"venueexec/internal/orderlog"
	"venueexec/pkg/types"
)

// Event is one observed state transition, immutable once appended.
type Event struct {
	State     types.OrderState
	Timestamp time.Time
	Info      map[string]any
}

// Identity is the engine-side correlation key: (venue, canonical symbol,
// client order index). COI survives venue retries and is the primary key
// used to route connector updates back to an Order.
type Identity struct {
	Venue   string
	Symbol  types.CanonicalSymbol
	COI     int64
}

func (id Identity) String() string {
	return fmt.Sprintf("%s/%s/%d", id.Venue, id.Symbol, id.COI)
}

// Order is the unit of execution. All mutation goes through Apply, which
// is safe to call concurrently from the submission goroutine, a websocket
// ingestion goroutine, and a reconciliation loop at once — exactly the
// three concurrent writers the spec's concurrency model describes.
type Order struct {
	Identity
	IsAsk   bool
	SizeI   int64
	PriceI  int64 // 0 for market orders
	TraceID string

	mu              sync.Mutex
	exchangeOrderID string
	state           types.OrderState
	filledBaseI     int64
	events          []Event

	log *orderlog.Writer

	finalOnce sync.Once
	finalCh   chan struct{}
	finalEvt  Event

	updateWaiters []chan Event
}

// New constructs an Order in no state yet; the caller must Apply a
// SUBMITTING event (or any first event) before anyone should observe it.
// log may be nil, in which case event persistence is a no-op.
func New(id Identity, isAsk bool, sizeI, priceI int64, traceID string, log *orderlog.Writer) *Order {
	return &Order{
		Identity: id,
		IsAsk:    isAsk,
		SizeI:    sizeI,
		PriceI:   priceI,
		TraceID:  traceID,
		log:      log,
		finalCh:  make(chan struct{}),
	}
}

// State returns the current state under lock.
func (o *Order) State() types.OrderState {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// ExchangeOrderID returns the venue-assigned id, empty until submission
// succeeds.
func (o *Order) ExchangeOrderID() string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.exchangeOrderID
}

// FilledBaseI returns the cumulative filled amount, best-effort extracted
// from event info by Apply.
func (o *Order) FilledBaseI() int64 {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.filledBaseI
}

// Events returns a snapshot copy of the event history in submission order.
func (o *Order) Events() []Event {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]Event, len(o.events))
	copy(out, o.events)
	return out
}

// SetExchangeOrderID records the venue id once the submission path learns
// it. Safe to call more than once; later calls are ignored once terminal.
func (o *Order) SetExchangeOrderID(id string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.state.Terminal() {
		return
	}
	o.exchangeOrderID = id
}

// Apply appends a new event and transitions state accordingly. If the
// order is already in a terminal state, Apply is a silent no-op and
// returns false — this is the engine's single conflict-resolution rule:
// first terminal transition wins.
//
// The event is durably logged (if a log directory is configured) before
// any waiter — final or one-shot — is released, satisfying the ordering
// invariant that durability precedes observation.
func (o *Order) Apply(evt Event) bool {
	o.mu.Lock()

	if o.state.Terminal() {
		o.mu.Unlock()
		return false
	}
	if !evt.State.Valid() {
		o.mu.Unlock()
		return false
	}
	if evt.Timestamp.IsZero() {
		evt.Timestamp = time.Now()
	}

	o.state = evt.State
	if filled, ok := extractFilledBaseI(evt.Info); ok {
		o.filledBaseI = filled
	}
	o.events = append(o.events, evt)
	waiters := o.updateWaiters
	o.updateWaiters = nil
	isTerminal := evt.State.Terminal()
	if isTerminal {
		o.finalEvt = evt
	}

	// Hold the lock across the durable write: readers calling WaitFinal or
	// NextUpdate must never observe a state change before it is on disk.
	if o.log != nil {
		_ = o.log.Append(orderlog.Entry{
			TraceID:         o.TraceID,
			ClientOrderIdx:  o.COI,
			ExchangeOrderID: o.exchangeOrderID,
			State:           string(evt.State),
			Timestamp:       evt.Timestamp,
			Info:            evt.Info,
		})
	}

	o.mu.Unlock()

	for _, w := range waiters {
		w <- evt
		close(w)
	}
	if isTerminal {
		o.finalOnce.Do(func() { close(o.finalCh) })
	}
	return true
}

// WaitFinal blocks until the order enters a terminal state, or ctx is
// done. Any number of callers may await concurrently; all observe the
// same terminal Event. Calling WaitFinal after the order is already
// terminal returns immediately with that terminal event.
func (o *Order) WaitFinal(ctx context.Context) (Event, error) {
	select {
	case <-o.finalCh:
		o.mu.Lock()
		evt := o.finalEvt
		o.mu.Unlock()
		return evt, nil
	default:
	}

	select {
	case <-o.finalCh:
		o.mu.Lock()
		evt := o.finalEvt
		o.mu.Unlock()
		return evt, nil
	case <-ctx.Done():
		return Event{}, ctx.Err()
	}
}

// NextUpdate subscribes for the next Apply and returns its event, or an
// error if ctx is done first or the order is already terminal. The event
// returned may itself be terminal: a terminal Apply releases every pending
// update waiter as well as the final handle.
func (o *Order) NextUpdate(ctx context.Context) (Event, error) {
	o.mu.Lock()
	if o.state.Terminal() {
		o.mu.Unlock()
		return Event{}, fmt.Errorf("order %s already terminal", o.Identity)
	}
	ch := make(chan Event, 1)
	o.updateWaiters = append(o.updateWaiters, ch)
	o.mu.Unlock()

	select {
	case evt := <-ch:
		return evt, nil
	case <-ctx.Done():
		return Event{}, ctx.Err()
	}
}

// extractFilledBaseI tolerates the several key spellings a venue might use
// for cumulative filled amount, per the spec's documented ambiguity.
func extractFilledBaseI(info map[string]any) (int64, bool) {
	for _, key := range []string{"filled_base_i", "filled_size_i", "filled"} {
		v, ok := info[key]
		if !ok {
			continue
		}
		switch n := v.(type) {
		case int64:
			return n, true
		case int:
			return int64(n), true
		case float64:
			return int64(n), true
		}
	}
	return 0, false
}
