// Package testutil holds deterministic helpers shared by tests and the
// scenario runner.
package testutil

import (
	"strconv"
	"sync"
)

// SequentialOpIDGenerator returns "<prefix>-1", "<prefix>-2", ...
//
// Unlike reorder.FixedOpIDGenerator it never runs out, so a scenario can
// issue any number of operations and still produce the same ids on every
// run. Safe for concurrent use.
type SequentialOpIDGenerator struct {
	mu     sync.Mutex
	prefix string
	n      int64
}

// NewSequentialOpIDGenerator creates a generator. Empty prefix means "op".
func NewSequentialOpIDGenerator(prefix string) *SequentialOpIDGenerator {
	if prefix == "" {
		prefix = "op"
	}
	return &SequentialOpIDGenerator{prefix: prefix}
}

// Generate returns the next id.
func (g *SequentialOpIDGenerator) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return g.prefix + "-" + strconv.FormatInt(g.n, 10)
}

// Count returns how many ids have been generated.
func (g *SequentialOpIDGenerator) Count() int64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.n
}

// Reset restarts the sequence at 1.
func (g *SequentialOpIDGenerator) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n = 0
}
