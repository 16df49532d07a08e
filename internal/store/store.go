package store

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"admuse/internal/logging"
	"admuse/internal/persona"
)

const (
	// MaxVisibleCount bounds the visible window.
	MaxVisibleCount = 5
	// MinVisibleCount bounds the visible window.
	MinVisibleCount = 1
)

var (
	// ErrStaleEpoch indicates a completion from a superseded batch.
	ErrStaleEpoch = errors.New("stale generation epoch")
	// ErrIndexOutOfWindow indicates an index outside the visible window.
	ErrIndexOutOfWindow = errors.New("slot index outside visible window")
)

// PersonaStore is the single owner of persona slot state. Every mutation
// happens under the lock and is written through to the mirror before the
// call returns.
type PersonaStore struct {
	mu           sync.RWMutex
	slots        []Slot
	visibleCount int
	epoch        uint64
	brief        Brief
	mirror       Mirror
}

// NewPersonaStore creates a store over the given mirror.
func NewPersonaStore(mirror Mirror) *PersonaStore {
	return &PersonaStore{
		visibleCount: MaxVisibleCount,
		mirror:       mirror,
	}
}

// Restore loads the mirrored snapshot, if any. Called once at startup.
func (s *PersonaStore) Restore(ctx context.Context) error {
	snap, err := s.mirror.Load(ctx)
	if err != nil {
		return fmt.Errorf("failed to restore personas: %w", err)
	}
	if snap == nil {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.slots = append([]Slot(nil), snap.Slots...)
	s.visibleCount = clampVisible(snap.VisibleCount)
	s.epoch = snap.Epoch
	s.brief = snap.Brief
	logging.Store("restored %d slots, window %d, epoch %d", len(s.slots), s.visibleCount, s.epoch)
	return nil
}

// ReplaceAll installs a fresh persona list, resets slot statuses to pending,
// and advances the epoch so completions from any prior batch are discarded.
// Returns the new epoch token.
func (s *PersonaStore) ReplaceAll(ctx context.Context, personas []persona.Persona) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.epoch++
	s.slots = make([]Slot, len(personas))
	for i := range personas {
		p := personas[i]
		s.slots[i] = Slot{Persona: &p, Status: StatusPending}
	}
	logging.Store("replaced all slots: %d personas, epoch %d", len(personas), s.epoch)
	return s.epoch, s.persistLocked(ctx)
}

// Update replaces the persona at index. Used by normalization rewrites and
// by regeneration. Last writer wins per index.
func (s *PersonaStore) Update(ctx context.Context, epoch uint64, index int, p persona.Persona) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkLocked(epoch, index); err != nil {
		return err
	}
	s.slots[index].Persona = &p
	return s.persistLocked(ctx)
}

// SetPortraitURL records a successful portrait for a slot.
func (s *PersonaStore) SetPortraitURL(ctx context.Context, epoch uint64, index int, url string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkLocked(epoch, index); err != nil {
		return err
	}
	if s.slots[index].Persona == nil {
		return fmt.Errorf("slot %d is empty", index)
	}
	s.slots[index].Persona.PortraitURL = url
	s.slots[index].Status = StatusSucceeded
	s.slots[index].LastError = ""
	return s.persistLocked(ctx)
}

// MarkStatus transitions a slot's lifecycle status, recording the error for
// exhausted slots.
func (s *PersonaStore) MarkStatus(ctx context.Context, epoch uint64, index int, status SlotStatus, lastErr error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkLocked(epoch, index); err != nil {
		return err
	}
	s.slots[index].Status = status
	if lastErr != nil {
		s.slots[index].LastError = lastErr.Error()
		s.slots[index].RetryCount++
	}
	return s.persistLocked(ctx)
}

// ClearSlot empties a slot. The caller is responsible for enqueueing the
// regeneration that follows.
func (s *PersonaStore) ClearSlot(ctx context.Context, index int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if index < 0 || index >= len(s.slots) || index >= s.visibleCount {
		return ErrIndexOutOfWindow
	}
	s.slots[index] = Slot{Status: StatusEmpty}
	logging.Store("cleared slot %d", index)
	return s.persistLocked(ctx)
}

// SetVisibleCount changes the visible window. Hidden slots keep their
// contents; they just become ineligible for operations.
func (s *PersonaStore) SetVisibleCount(ctx context.Context, n int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.visibleCount = clampVisible(n)
	return s.persistLocked(ctx)
}

// SetBrief records the campaign brief behind the current persona set.
func (s *PersonaStore) SetBrief(ctx context.Context, b Brief) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.brief = b
	return s.persistLocked(ctx)
}

// Brief returns the persisted campaign brief.
func (s *PersonaStore) Brief() Brief {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.brief
}

// VisibleCount returns the current window size.
func (s *PersonaStore) VisibleCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.visibleCount
}

// Epoch returns the current generation epoch.
func (s *PersonaStore) Epoch() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.epoch
}

// Slot returns a copy of the slot at index, window-checked.
func (s *PersonaStore) Slot(index int) (Slot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if index < 0 || index >= len(s.slots) || index >= s.visibleCount {
		return Slot{}, ErrIndexOutOfWindow
	}
	return copySlot(s.slots[index]), nil
}

// VisibleSlots returns copies of the slots inside the window.
func (s *PersonaStore) VisibleSlots() []Slot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := s.visibleCount
	if n > len(s.slots) {
		n = len(s.slots)
	}
	out := make([]Slot, n)
	for i := 0; i < n; i++ {
		out[i] = copySlot(s.slots[i])
	}
	return out
}

// VisiblePersonas returns the non-empty personas inside the window.
func (s *PersonaStore) VisiblePersonas() []persona.Persona {
	var out []persona.Persona
	for _, slot := range s.VisibleSlots() {
		if slot.Persona != nil {
			out = append(out, *slot.Persona)
		}
	}
	return out
}

// checkLocked validates epoch and window for a mutation. Caller holds the lock.
func (s *PersonaStore) checkLocked(epoch uint64, index int) error {
	if epoch != s.epoch {
		logging.StoreDebug("discarding write for epoch %d (current %d)", epoch, s.epoch)
		return ErrStaleEpoch
	}
	if index < 0 || index >= len(s.slots) || index >= s.visibleCount {
		return ErrIndexOutOfWindow
	}
	return nil
}

// persistLocked writes the current state through the mirror. Caller holds
// the lock.
func (s *PersonaStore) persistLocked(ctx context.Context) error {
	snap := Snapshot{
		Slots:        make([]Slot, len(s.slots)),
		VisibleCount: s.visibleCount,
		Epoch:        s.epoch,
		Brief:        s.brief,
	}
	for i := range s.slots {
		snap.Slots[i] = copySlot(s.slots[i])
	}
	if err := s.mirror.Save(ctx, snap); err != nil {
		return fmt.Errorf("failed to persist personas: %w", err)
	}
	return nil
}

func copySlot(slot Slot) Slot {
	cp := slot
	if slot.Persona != nil {
		p := *slot.Persona
		cp.Persona = &p
	}
	return cp
}

func clampVisible(n int) int {
	if n < MinVisibleCount {
		return MinVisibleCount
	}
	if n > MaxVisibleCount {
		return MaxVisibleCount
	}
	return n
}
