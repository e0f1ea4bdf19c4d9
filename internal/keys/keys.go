// Package keys provides the identity-generation strategies used when a new
// entity has no externally assigned key.
package keys

import (
	"strconv"
	"sync"

	"github.com/google/uuid"
)

// Generator produces entity keys.
type Generator interface {
	Generate() string
}

// UUIDv7Generator generates time-sortable UUIDv7 keys.
//
// Thread-safety: UUIDv7Generator is stateless and safe for concurrent use.
type UUIDv7Generator struct{}

// Generate creates a new UUIDv7 and returns it as a hyphenated string.
// Panics if UUID generation fails (should never happen in practice).
func (g UUIDv7Generator) Generate() string {
	return uuid.Must(uuid.NewV7()).String()
}

// FixedGenerator returns predetermined keys in order, for tests.
//
// Thread-safety: FixedGenerator is safe for concurrent use via internal mutex.
type FixedGenerator struct {
	mu   sync.Mutex
	keys []string
	idx  int
}

// NewFixedGenerator creates a generator that returns keys in order.
//
//	gen := NewFixedGenerator("1", "1")
//	gen.Generate() // "1"
//	gen.Generate() // "1"
//	gen.Generate() // panic: all keys exhausted
func NewFixedGenerator(keys ...string) *FixedGenerator {
	return &FixedGenerator{keys: keys}
}

// Generate returns the next predetermined key.
// Panics once every key has been consumed so misconfigured tests fail fast.
func (g *FixedGenerator) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.idx >= len(g.keys) {
		panic("FixedGenerator: all keys exhausted")
	}
	key := g.keys[g.idx]
	g.idx++
	return key
}

// CounterGenerator hands out decimal keys from an owned counter.
// The first call to Generate returns start+1.
type CounterGenerator struct {
	mu  sync.Mutex
	seq int64
}

// NewCounterGenerator creates a counter that resumes after start.
func NewCounterGenerator(start int64) *CounterGenerator {
	return &CounterGenerator{seq: start}
}

// Generate increments the counter and returns it as a string.
func (g *CounterGenerator) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.seq++
	return strconv.FormatInt(g.seq, 10)
}

// Current returns the last key handed out without incrementing.
func (g *CounterGenerator) Current() int64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.seq
}
