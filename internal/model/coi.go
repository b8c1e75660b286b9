package model

import (
	"math/rand"
	"sync"
)

// DefaultCOIModulus is the default wrap horizon for client order indices.
const DefaultCOIModulus = 1_000_000

// COIGenerator issues client order indices: a circular counter, random
// seeded so two freshly-started processes don't collide on the same
// sequence, modulo N, never emitting 0 (0 is reserved as "unset"). The
// engine does not pre-check for collisions after wraparound — a venue
// rejecting a duplicate id is the backstop, same as spec.md's COI
// generation rule documents.
type COIGenerator struct {
	mu      sync.Mutex
	modulus int64
	next    int64
}

// NewCOIGenerator creates a generator with the given modulus. modulus <= 0
// falls back to DefaultCOIModulus.
func NewCOIGenerator(modulus int64) *COIGenerator {
	if modulus <= 0 {
		modulus = DefaultCOIModulus
	}
	return &COIGenerator{
		modulus: modulus,
		next:    1 + rand.Int63n(modulus-1),
	}
}

// Next returns the next COI in the circular sequence, skipping 0.
func (g *COIGenerator) Next() int64 {
	g.mu.Lock()
	defer g.mu.Unlock()

	coi := g.next
	g.next = (g.next + 1) % g.modulus
	if g.next == 0 {
		g.next = 1
	}
	return coi
}
