package core

import (
	"fmt"
	"sync"
)

// IDGenerator mints entity and event identifiers for one controller
// instance. It is injected at construction so independent simulations
// (tests, forecasting sandboxes) never share counters: there is no
// process-wide id state anywhere in the engine.
//
// Event IDs must be unique and strictly orderable within a run.
type IDGenerator interface {
	NextEntityID() string
	NextEventID() string
}

// SequentialIDGenerator issues zero-padded counter IDs, so lexicographic
// order matches issue order.
type SequentialIDGenerator struct {
	mu       sync.Mutex
	prefix   string
	entities uint64
	events   uint64
}

// NewSequentialIDGenerator creates a generator. The prefix distinguishes
// IDs from concurrent simulation instances; it may be empty.
func NewSequentialIDGenerator(prefix string) *SequentialIDGenerator {
	return &SequentialIDGenerator{prefix: prefix}
}

func (g *SequentialIDGenerator) NextEntityID() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.entities++
	return fmt.Sprintf("%sent-%06d", g.prefix, g.entities)
}

func (g *SequentialIDGenerator) NextEventID() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.events++
	return fmt.Sprintf("%sevt-%08d", g.prefix, g.events)
}
