package testutil

import (
	"fmt"
	"sync"
)

// SequentialRunIDs generates "<prefix>-1", "<prefix>-2", ... and never
// runs out, so it suits tests where several workers start runs in an
// unknown order. Use postimport.FixedGenerator when the exact sequence
// of IDs matters.
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type SequentialRunIDs struct {
	mu     sync.Mutex
	prefix string
	seq    int64
}

// NewSequentialRunIDs creates a generator. An empty prefix means "run".
func NewSequentialRunIDs(prefix string) *SequentialRunIDs {
	if prefix == "" {
		prefix = "run"
	}
	return &SequentialRunIDs{prefix: prefix}
}

// Generate returns the next ID. Implements postimport.RunIDGenerator.
func (g *SequentialRunIDs) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.seq++
	return fmt.Sprintf("%s-%d", g.prefix, g.seq)
}

// Count returns how many IDs were generated.
func (g *SequentialRunIDs) Count() int64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.seq
}

// Reset starts the sequence over. The next ID ends in -1.
func (g *SequentialRunIDs) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.seq = 0
}
