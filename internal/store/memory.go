package store

import (
	"context"
	"sync"
)

// MemoryMirror is an in-memory Mirror for tests and ephemeral runs.
type MemoryMirror struct {
	mu   sync.Mutex
	snap *Snapshot
	// SaveErr, when set, is returned by Save. Tests use it to exercise
	// write-through failure paths.
	SaveErr error
}

// NewMemoryMirror creates an empty in-memory mirror.
func NewMemoryMirror() *MemoryMirror {
	return &MemoryMirror{}
}

func (m *MemoryMirror) Load(ctx context.Context) (*Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.snap == nil {
		return nil, nil
	}
	cp := *m.snap
	cp.Slots = append([]Slot(nil), m.snap.Slots...)
	return &cp, nil
}

func (m *MemoryMirror) Save(ctx context.Context, snap Snapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.SaveErr != nil {
		return m.SaveErr
	}
	cp := snap
	cp.Slots = append([]Slot(nil), snap.Slots...)
	m.snap = &cp
	return nil
}

// Saved returns the last snapshot written, or nil.
func (m *MemoryMirror) Saved() *Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snap
}
