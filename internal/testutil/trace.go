package testutil

import (
	"fmt"
	"sync"
)

// DefaultTraceID is what a FixedTraceGenerator built with "" returns.
const DefaultTraceID = "test-trace-default"

// FixedTraceGenerator returns the same trace ID every time.
//
// The same scenario with the same FixedTraceGenerator produces byte-identical
// traces, which keeps golden snapshots stable.
//
// Thread-safety: FixedTraceGenerator is stateless and safe for concurrent use.
type FixedTraceGenerator struct {
	id string
}

// NewFixedTraceGenerator creates a generator for id. The id is typically set
// in a scenario file:
//
//	trace_id: "test-trace-0001"
func NewFixedTraceGenerator(id string) *FixedTraceGenerator {
	if id == "" {
		id = DefaultTraceID
	}
	return &FixedTraceGenerator{id: id}
}

// Generate returns the fixed trace ID.
func (g *FixedTraceGenerator) Generate() string {
	return g.id
}

// SequentialTraceGenerator returns "<prefix>-1", "<prefix>-2", ...
// Use it where every translation needs a distinct ID, such as history tests.
type SequentialTraceGenerator struct {
	mu     sync.Mutex
	prefix string
	n      int
}

// NewSequentialTraceGenerator creates a generator numbering from 1.
func NewSequentialTraceGenerator(prefix string) *SequentialTraceGenerator {
	return &SequentialTraceGenerator{prefix: prefix}
}

// Generate returns the next ID in the sequence.
func (g *SequentialTraceGenerator) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return fmt.Sprintf("%s-%d", g.prefix, g.n)
}
