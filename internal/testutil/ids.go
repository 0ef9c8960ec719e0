package testutil

import (
	"fmt"
	"sync"
)

// FixedIDGenerator returns the same capture ID every time.
//
// Golden snapshots of store output stay byte-identical across runs.
//
// Thread-safety: FixedIDGenerator is stateless and safe for concurrent use.
type FixedIDGenerator struct {
	id string
}

// NewFixedIDGenerator creates a fixed generator. An empty id yields
// "capture-default".
func NewFixedIDGenerator(id string) *FixedIDGenerator {
	if id == "" {
		id = "capture-default"
	}
	return &FixedIDGenerator{id: id}
}

// Generate returns the fixed ID.
func (g *FixedIDGenerator) Generate() string {
	return g.id
}

// SequenceIDGenerator returns "capture-1", "capture-2", ... in call order.
type SequenceIDGenerator struct {
	mu   sync.Mutex
	next int
}

// Generate returns the next sequential ID.
func (g *SequenceIDGenerator) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.next++
	return fmt.Sprintf("capture-%d", g.next)
}
