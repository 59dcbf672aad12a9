package reorder

import (
	"sync"

	"github.com/google/uuid"
)

// OpIDGenerator produces the id that correlates one operation's log lines,
// metrics and result.
type OpIDGenerator interface {
	Generate() string
}

// UUIDv7Generator generates time-sortable UUIDv7 operation ids.
// Safe for concurrent use.
type UUIDv7Generator struct{}

// Generate returns a new hyphenated UUIDv7.
func (UUIDv7Generator) Generate() string {
	return uuid.Must(uuid.NewV7()).String()
}

// FixedOpIDGenerator returns predetermined ids, for deterministic tests.
// Safe for concurrent use.
type FixedOpIDGenerator struct {
	mu  sync.Mutex
	ids []string
	idx int
}

// NewFixedOpIDGenerator creates a generator that returns ids in order.
func NewFixedOpIDGenerator(ids ...string) *FixedOpIDGenerator {
	return &FixedOpIDGenerator{ids: ids}
}

// Generate returns the next id. Panics when all ids are consumed, so a test
// that runs more operations than it planned for fails loudly.
func (g *FixedOpIDGenerator) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.idx >= len(g.ids) {
		panic("FixedOpIDGenerator: all ids exhausted")
	}
	id := g.ids[g.idx]
	g.idx++
	return id
}
