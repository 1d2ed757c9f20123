package testutil

import (
	"context"
	"sync"

	"github.com/roach88/datastore/internal/ir"
)

// MemoryResults is an in-memory post-import result store.
//
// Thread-safety: safe for concurrent use via internal mutex.
type MemoryResults struct {
	mu      sync.Mutex
	records []ir.PostImportRecord

	// WriteErr, when set, fails every WriteResult.
	WriteErr error
	Writes   int
}

func (m *MemoryResults) NextSeq(ctx context.Context, identifier string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var seq int64
	for _, r := range m.records {
		if r.Identifier() == identifier && r.Seq > seq {
			seq = r.Seq
		}
	}
	return seq + 1, nil
}

func (m *MemoryResults) WriteResult(ctx context.Context, rec ir.PostImportRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Writes++
	if m.WriteErr != nil {
		return m.WriteErr
	}
	m.records = append(m.records, rec)
	return nil
}

// Records returns the stored records in write order.
func (m *MemoryResults) Records() []ir.PostImportRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]ir.PostImportRecord(nil), m.records...)
}
