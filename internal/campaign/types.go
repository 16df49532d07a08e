// Package campaign orchestrates persona generation for one campaign brief:
// the full-batch pipeline, single-slot retry, and the remove-and-regenerate
// workflow.
package campaign

import (
	"math/rand"
	"sync"
	"time"
)

// BatchOutcome is the user-facing aggregate of one batch run.
type BatchOutcome string

const (
	AllSucceeded   BatchOutcome = "all_succeeded"
	PartialSuccess BatchOutcome = "partial_success"
	AllFailed      BatchOutcome = "all_failed"
)

// BatchResult reports how a batch run resolved. Persistence has already
// happened slot by slot; this is a signal, not a control branch.
type BatchResult struct {
	RunID        string
	Outcome      BatchOutcome
	SuccessCount int
	Total        int
	Epoch        uint64
	Duration     time.Duration
}

// EventType identifies an orchestration progress event.
type EventType string

const (
	EventSlotStarted     EventType = "slot_started"
	EventSlotSucceeded   EventType = "slot_succeeded"
	EventSlotExhausted   EventType = "slot_exhausted"
	EventBatchCompleted  EventType = "batch_completed"
	EventSlotRemoved     EventType = "slot_removed"
	EventTextRegenerated EventType = "text_regenerated"
)

// Event is one progress notification from the orchestrator. Message carries
// the error text for exhausted slots and the outcome for completed batches.
type Event struct {
	Type      EventType
	Index     int
	Message   string
	Timestamp time.Time
}

// outcomeFor maps success counts to the aggregate outcome.
func outcomeFor(successes, total int) BatchOutcome {
	switch {
	case total == 0 || successes == total:
		return AllSucceeded
	case successes == 0:
		return AllFailed
	default:
		return PartialSuccess
	}
}

// lockedSource is a rand.Source64 safe for concurrent slot workers.
type lockedSource struct {
	mu  sync.Mutex
	src rand.Source64
}

func (s *lockedSource) Int63() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.src.Int63()
}

func (s *lockedSource) Uint64() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.src.Uint64()
}

func (s *lockedSource) Seed(seed int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.src.Seed(seed)
}

// NewLockedRand returns a *rand.Rand usable from concurrent goroutines.
func NewLockedRand(seed int64) *rand.Rand {
	return rand.New(&lockedSource{src: rand.NewSource(seed).(rand.Source64)})
}
