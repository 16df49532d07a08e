// Package store owns persona slot state: the in-memory slot array with its
// visible window, and the write-through persistent mirror behind it.
package store

import (
	"context"
	"time"

	"admuse/internal/persona"
)

// SlotStatus tracks where a slot is in its generation lifecycle.
type SlotStatus string

const (
	StatusEmpty      SlotStatus = "empty"
	StatusPending    SlotStatus = "pending"
	StatusGenerating SlotStatus = "generating"
	StatusSucceeded  SlotStatus = "succeeded"
	StatusExhausted  SlotStatus = "exhausted"
)

// Slot binds one positional index to a persona and its retry bookkeeping.
type Slot struct {
	Persona    *persona.Persona `json:"persona,omitempty"`
	Status     SlotStatus       `json:"status"`
	RetryCount int              `json:"retry_count"`
	LastError  string           `json:"last_error,omitempty"`
}

// Brief is the campaign context a persona set was generated from. It is
// persisted with the set so single-slot regeneration keeps the original
// offering and country across restarts.
type Brief struct {
	Offering            string `json:"offering"`
	Country             string `json:"country,omitempty"`
	OrganizationContext string `json:"organization_context,omitempty"`
	OfferingContext     string `json:"offering_context,omitempty"`
}

// Snapshot is the full persisted state of a persona set.
type Snapshot struct {
	Slots        []Slot    `json:"slots"`
	VisibleCount int       `json:"visible_count"`
	Epoch        uint64    `json:"epoch"`
	Brief        Brief     `json:"brief"`
	SavedAt      time.Time `json:"saved_at"`
}

// Mirror persists snapshots. Load returns a nil snapshot when nothing
// usable is stored; corruption is treated as absence, not failure.
type Mirror interface {
	Load(ctx context.Context) (*Snapshot, error)
	Save(ctx context.Context, snap Snapshot) error
}
