package numbering

import (
	"context"
	"sync"

	"github.com/garyjia/timesheet-invoicing/internal/application/port"
)

// MemorySequences is an in-process sequence store
type MemorySequences struct {
	mu       sync.Mutex
	counters map[string]int64
}

// NewMemorySequences creates an empty in-memory sequence store
func NewMemorySequences() *MemorySequences {
	return &MemorySequences{counters: make(map[string]int64)}
}

// Increment advances the counter for scheme and epoch
func (m *MemorySequences) Increment(_ context.Context, scheme, epoch string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := scheme + "\x00" + epoch
	m.counters[key]++
	return m.counters[key], nil
}

var _ port.SequenceRepository = (*MemorySequences)(nil)
