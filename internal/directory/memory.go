package directory

import (
	"context"
	"sync"
	"time"
)

// Memory is a process-local Directory guarded by a RWMutex.
type Memory struct {
	mu      sync.RWMutex
	records map[int64]Record
	now     func() time.Time
}

// NewMemory constructs a process-local Directory. Records are lost on restart.
func NewMemory() *Memory {
	return &Memory{
		records: make(map[int64]Record),
		now:     time.Now,
	}
}

// Upsert overwrites any existing record for rec.ID.
func (m *Memory) Upsert(_ context.Context, rec Record) error {
	if rec.LastSeen.IsZero() {
		rec.LastSeen = m.now()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[rec.ID] = rec
	return nil
}

// Lookup returns the record for id if the user has written before.
func (m *Memory) Lookup(_ context.Context, id int64) (Record, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.records[id]
	return rec, ok, nil
}

// Prune removes records last seen before the cutoff.
func (m *Memory) Prune(_ context.Context, before time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for id, rec := range m.records {
		if rec.LastSeen.Before(before) {
			delete(m.records, id)
			n++
		}
	}
	return n, nil
}

// Len returns the number of known users.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.records)
}
