// Package position tracks the latest known position snapshot per canonical
// symbol. Ingestion is append-only: each call simply replaces the last
// committed snapshot under one lock, mirroring the teacher's Inventory
// fill-processing idiom without its running-average PnL math, which moves
// here as an optional helper instead of a mandatory part of ingest.
package position

import (
	"sync"

	"venueexec/pkg/types"
)

// Service holds the latest position snapshot per symbol for one venue.
type Service struct {
	mu   sync.Mutex
	byID map[types.CanonicalSymbol]types.PositionSnapshot
}

// New creates an empty position service.
func New() *Service {
	return &Service{byID: make(map[types.CanonicalSymbol]types.PositionSnapshot)}
}

// Ingest stores snap as the latest committed snapshot for its symbol.
func (s *Service) Ingest(snap types.PositionSnapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byID[snap.Symbol] = snap
}

// Get returns the last committed snapshot for symbol, or false if none has
// ever been ingested.
func (s *Service) Get(symbol types.CanonicalSymbol) (types.PositionSnapshot, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap, ok := s.byID[symbol]
	return snap, ok
}

// NetBase returns the last known base-asset quantity for symbol, 0 if none
// has been ingested. Used by the risk service's position-cap check.
func (s *Service) NetBase(symbol types.CanonicalSymbol) float64 {
	snap, ok := s.Get(symbol)
	if !ok {
		return 0
	}
	return snap.BaseQty
}

// Reset clears the snapshot for symbol. An empty symbol clears every
// snapshot.
func (s *Service) Reset(symbol types.CanonicalSymbol) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if symbol == "" {
		s.byID = make(map[types.CanonicalSymbol]types.PositionSnapshot)
		return
	}
	delete(s.byID, symbol)
}

// MarkToMarket computes unrealized PnL for symbol from the last snapshot's
// average-cost basis embedded in BaseQty/QuoteValue and a current mid
// price. Optional convenience, not required by ingest/reset.
func (s *Service) MarkToMarket(symbol types.CanonicalSymbol, mid float64) (float64, bool) {
	snap, ok := s.Get(symbol)
	if !ok || snap.BaseQty == 0 {
		return 0, false
	}
	avgEntry := snap.QuoteValue / snap.BaseQty
	return (mid - avgEntry) * snap.BaseQty, true
}
