// Package marketcache mirrors the latest market data the engine has seen
// per venue: top-of-book, a bounded trade history, positions, and balances,
// each behind a single mutex. Grounded on the teacher's market.Book, which
// held the same shape of data for one market behind one RWMutex; this
// generalizes it to arbitrary symbols and adds the trade/position/balance
// maps spec.md's data model requires.
package marketcache

import (
	"sync"
	"time"

	"venueexec/pkg/types"
)

const defaultTradeRingSize = 256

// Cache holds the latest market state observed for one venue.
type Cache struct {
	mu sync.RWMutex

	books     map[types.CanonicalSymbol]types.TopOfBook
	trades    map[types.CanonicalSymbol][]types.Trade
	positions map[types.CanonicalSymbol]types.PositionSnapshot
	balances  map[string]types.Balance

	ringSize int
}

// New creates an empty cache. ringSize bounds the per-symbol trade
// history; 0 uses the default of 256.
func New(ringSize int) *Cache {
	if ringSize <= 0 {
		ringSize = defaultTradeRingSize
	}
	return &Cache{
		books:     make(map[types.CanonicalSymbol]types.TopOfBook),
		trades:    make(map[types.CanonicalSymbol][]types.Trade),
		positions: make(map[types.CanonicalSymbol]types.PositionSnapshot),
		balances:  make(map[string]types.Balance),
		ringSize:  ringSize,
	}
}

// SetTopOfBook records the latest top-of-book for symbol.
func (c *Cache) SetTopOfBook(symbol types.CanonicalSymbol, tob types.TopOfBook) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.books[symbol] = tob
}

// TopOfBook returns the last recorded top-of-book for symbol.
func (c *Cache) TopOfBook(symbol types.CanonicalSymbol) (types.TopOfBook, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	tob, ok := c.books[symbol]
	return tob, ok
}

// AddTrade appends a trade to symbol's ring, evicting the oldest entry
// once ringSize is reached.
func (c *Cache) AddTrade(symbol types.CanonicalSymbol, trade types.Trade) {
	c.mu.Lock()
	defer c.mu.Unlock()
	ring := c.trades[symbol]
	ring = append(ring, trade)
	if len(ring) > c.ringSize {
		ring = ring[len(ring)-c.ringSize:]
	}
	c.trades[symbol] = ring
}

// RecentTrades returns a copy of symbol's recent trade history, oldest
// first.
func (c *Cache) RecentTrades(symbol types.CanonicalSymbol) []types.Trade {
	c.mu.RLock()
	defer c.mu.RUnlock()
	ring := c.trades[symbol]
	out := make([]types.Trade, len(ring))
	copy(out, ring)
	return out
}

// SetPosition records the latest position snapshot for symbol.
func (c *Cache) SetPosition(symbol types.CanonicalSymbol, snap types.PositionSnapshot) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.positions[symbol] = snap
}

// Position returns the last recorded position snapshot for symbol.
func (c *Cache) Position(symbol types.CanonicalSymbol) (types.PositionSnapshot, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	snap, ok := c.positions[symbol]
	return snap, ok
}

// SetBalance records the latest balance for asset.
func (c *Cache) SetBalance(asset string, bal types.Balance) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.balances[asset] = bal
}

// Balance returns the last recorded balance for asset.
func (c *Cache) Balance(asset string) (types.Balance, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	bal, ok := c.balances[asset]
	return bal, ok
}

// Snapshot is a point-in-time read of the whole cache, used by the
// diagnostic HTTP surface.
type Snapshot struct {
	Books     map[types.CanonicalSymbol]types.TopOfBook       `json:"books"`
	Positions map[types.CanonicalSymbol]types.PositionSnapshot `json:"positions"`
	Balances  map[string]types.Balance                         `json:"balances"`
	AsOf      time.Time                                        `json:"as_of"`
}

// Snapshot returns a shallow copy of the cache's current state.
func (c *Cache) Snapshot() Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()

	books := make(map[types.CanonicalSymbol]types.TopOfBook, len(c.books))
	for k, v := range c.books {
		books[k] = v
	}
	positions := make(map[types.CanonicalSymbol]types.PositionSnapshot, len(c.positions))
	for k, v := range c.positions {
		positions[k] = v
	}
	balances := make(map[string]types.Balance, len(c.balances))
	for k, v := range c.balances {
		balances[k] = v
	}
	return Snapshot{Books: books, Positions: positions, Balances: balances, AsOf: time.Now()}
}
