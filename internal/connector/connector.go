// Package connector defines the async abstraction over one exchange (spec
// §4.1). Every call may suspend on network I/O; callers always pass a
// context so they can bound that wait.
//
// Guarantees an implementation must meet:
//
//   - Submission is atomic from the caller's viewpoint: either it returns
//     an exchange id (and the order is live at the venue) or it fails with
//     an error the engine treats as FAILED, with no open-order leak. An
//     implementation that cannot guarantee this itself must query and
//     cancel on ambiguous outcomes before surfacing the error.
//   - Cancellation is idempotent; cancelling an already-terminal order is
//     not an error.
//   - A connector running a background stream delivers out-of-band order
//     updates to the order service via its ingest entrypoint, having first
//     mapped the venue's status string onto OrderState.
//   - Integer scaling (price_decimals/size_decimals) is applied
//     consistently when converting between wire and engine representation.
package connector

import (
	"context"

	"venueexec/pkg/types"
)

// UpdateSink is implemented by the order service. A connector's background
// stream calls IngestUpdate for every order-lifecycle message it observes,
// regardless of which component originally submitted the order.
type UpdateSink interface {
	IngestUpdate(venue string, symbol types.CanonicalSymbol, coi int64, status types.VenueOrderStatus)
}

// Connector is the contract every venue implementation satisfies. Symbol
// enumeration is implicit: callers resolve a canonical symbol to a venue
// symbol string before calling any method here.
type Connector interface {
	// Start begins any background work (websocket streams, auth bootstrap).
	// Updates observed on the stream are pushed to sink.
	Start(ctx context.Context, sink UpdateSink) error
	// Stop tears down background work. Idempotent.
	Stop(ctx context.Context) error

	// GetPriceSizeDecimals returns a venue symbol's declared scaling.
	GetPriceSizeDecimals(ctx context.Context, venueSymbol string) (types.PriceSizeDecimals, error)
	// GetMinSizeI returns the minimum order size, already scaled to an
	// integer at the symbol's size decimals.
	GetMinSizeI(ctx context.Context, venueSymbol string) (int64, error)
	// GetTopOfBook returns best bid/ask, both scaled by the returned Scale.
	GetTopOfBook(ctx context.Context, venueSymbol string) (types.TopOfBook, error)

	// SubmitLimitOrder places a resting limit order. reduceOnly/postOnly
	// follow the venue's usual semantics. Returns the venue's exchange id.
	SubmitLimitOrder(ctx context.Context, venueSymbol string, coi int64, baseAmountI, priceI int64, isAsk, postOnly, reduceOnly bool) (exchangeOrderID string, err error)
	// SubmitMarketOrder places an immediate-execution order.
	SubmitMarketOrder(ctx context.Context, venueSymbol string, coi int64, sizeI int64, isAsk, reduceOnly bool) (exchangeOrderID string, err error)

	// CancelByClientID cancels by the engine-issued COI. Idempotent.
	CancelByClientID(ctx context.Context, venueSymbol string, coi int64) error
	// CancelByOrderID cancels by venue id, for connectors that support it.
	// Implementations that don't may return ErrUnsupported.
	CancelByOrderID(ctx context.Context, venueSymbol, exchangeOrderID string) error

	// GetOrder fetches current venue state for reconciliation/diagnostics.
	GetOrder(ctx context.Context, venueSymbol string, coi int64) (types.VenueOrderStatus, error)

	// GetPositions returns every open position the venue reports.
	GetPositions(ctx context.Context) ([]types.PositionSnapshot, error)
	// GetMargin returns venue-specific margin/account figures.
	GetMargin(ctx context.Context) (map[string]any, error)
}
