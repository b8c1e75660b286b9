// Package marketdata resolves canonical symbols to venue symbols and caches
// per-symbol precision, coalescing concurrent misses onto a single
// connector call. All price/size conversion crossing the engine boundary
// happens here; everywhere else in the engine, prices and sizes are
// integers.
package marketdata

import (
	"context"
	"fmt"
	"sync"

	"github.com/shopspring/decimal"

	"venueexec/internal/connector"
	"venueexec/internal/errs"
	"venueexec/pkg/types"
)

// Service resolves symbols and converts between decimal and scaled-integer
// representations for one venue connector.
type Service struct {
	venue     string
	conn      connector.Connector
	symbolMap map[string]string // canonical -> venue symbol

	mu      sync.Mutex
	entries map[types.CanonicalSymbol]*precisionEntry
}

type precisionEntry struct {
	mu      sync.Mutex
	loaded  bool
	decimal types.PriceSizeDecimals
	minSize int64
	err     error
}

// New builds a market data service for one venue, with symbolMap giving the
// canonical-to-venue-symbol mapping configured for that venue (spec §6
// `symbol_map`).
func New(venue string, conn connector.Connector, symbolMap map[string]string) *Service {
	return &Service{
		venue:     venue,
		conn:      conn,
		symbolMap: symbolMap,
		entries:   make(map[types.CanonicalSymbol]*precisionEntry),
	}
}

// ResolveSymbol maps a canonical symbol to this venue's wire symbol.
func (s *Service) ResolveSymbol(canonical types.CanonicalSymbol) (string, error) {
	venueSymbol, ok := s.symbolMap[string(canonical)]
	if !ok {
		return "", &errs.UnknownSymbol{Symbol: string(canonical)}
	}
	return venueSymbol, nil
}

func (s *Service) entryFor(canonical types.CanonicalSymbol) *precisionEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[canonical]
	if !ok {
		e = &precisionEntry{}
		s.entries[canonical] = e
	}
	return e
}

// loadPrecision ensures decimals and min size are cached for canonical,
// fetching from the connector at most once per symbol even under
// concurrent callers: the entry's own mutex serializes the fetch, and
// every caller blocked on it observes the same cached result.
func (s *Service) loadPrecision(ctx context.Context, canonical types.CanonicalSymbol) (*precisionEntry, error) {
	e := s.entryFor(canonical)
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.loaded {
		return e, e.err
	}

	venueSymbol, err := s.ResolveSymbol(canonical)
	if err != nil {
		e.err = err
		e.loaded = true
		return e, err
	}

	decimals, err := s.conn.GetPriceSizeDecimals(ctx, venueSymbol)
	if err != nil {
		e.err = fmt.Errorf("get price/size decimals for %s: %w", canonical, err)
		e.loaded = true
		return e, e.err
	}
	minSize, err := s.conn.GetMinSizeI(ctx, venueSymbol)
	if err != nil {
		e.err = fmt.Errorf("get min size for %s: %w", canonical, err)
		e.loaded = true
		return e, e.err
	}

	e.decimal = decimals
	e.minSize = minSize
	e.loaded = true
	return e, nil
}

// GetPriceSizeDecimals returns the memoized precision for canonical,
// fetching it on first use.
func (s *Service) GetPriceSizeDecimals(ctx context.Context, canonical types.CanonicalSymbol) (types.PriceSizeDecimals, error) {
	e, err := s.loadPrecision(ctx, canonical)
	if err != nil {
		return types.PriceSizeDecimals{}, err
	}
	return e.decimal, nil
}

// GetMinSizeI returns the memoized minimum order size, scaled to an integer.
func (s *Service) GetMinSizeI(ctx context.Context, canonical types.CanonicalSymbol) (int64, error) {
	e, err := s.loadPrecision(ctx, canonical)
	if err != nil {
		return 0, err
	}
	return e.minSize, nil
}

// ToPriceI converts a decimal price to a scaled integer, truncating toward
// zero (round-down: never overstate the price paid/received).
func (s *Service) ToPriceI(ctx context.Context, canonical types.CanonicalSymbol, price float64) (int64, error) {
	decimals, err := s.GetPriceSizeDecimals(ctx, canonical)
	if err != nil {
		return 0, err
	}
	return scaleDown(price, decimals.PriceDecimals), nil
}

// ToSizeI converts a decimal size to a scaled integer, truncating toward
// zero.
func (s *Service) ToSizeI(ctx context.Context, canonical types.CanonicalSymbol, size float64) (int64, error) {
	decimals, err := s.GetPriceSizeDecimals(ctx, canonical)
	if err != nil {
		return 0, err
	}
	return scaleDown(size, decimals.SizeDecimals), nil
}

// EnsureMinSize raises if sizeI is below the symbol's minimum order size.
func (s *Service) EnsureMinSize(ctx context.Context, canonical types.CanonicalSymbol, sizeI int64) error {
	min, err := s.GetMinSizeI(ctx, canonical)
	if err != nil {
		return err
	}
	if sizeI < min {
		return fmt.Errorf("size %d below minimum %d for %s", sizeI, min, canonical)
	}
	return nil
}

// GetTopOfBook resolves canonical and delegates to the connector.
func (s *Service) GetTopOfBook(ctx context.Context, canonical types.CanonicalSymbol) (types.TopOfBook, error) {
	venueSymbol, err := s.ResolveSymbol(canonical)
	if err != nil {
		return types.TopOfBook{}, err
	}
	return s.conn.GetTopOfBook(ctx, venueSymbol)
}

func scaleDown(x float64, decimals int) int64 {
	d := decimal.NewFromFloat(x)
	scale := decimal.New(1, int32(decimals))
	return d.Mul(scale).Truncate(0).IntPart()
}
