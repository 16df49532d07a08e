package campaign

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"admuse/internal/llm"
	"admuse/internal/logging"
	"admuse/internal/persona"
	"admuse/internal/portrait"
	"admuse/internal/store"
)

// Orchestrator drives persona generation for one campaign. It owns the
// concurrency of batch runs; all persona state lives in the store.
type Orchestrator struct {
	mu          sync.Mutex
	store       *store.PersonaStore
	personas    *llm.PersonaGenerator
	slots       *portrait.SlotGenerator
	rng         *rand.Rand
	concurrency int
	events      chan Event

	// cancelBatch aborts the in-flight batch when a new one supersedes it.
	cancelBatch context.CancelFunc
}

// OrchestratorConfig holds orchestrator construction parameters.
type OrchestratorConfig struct {
	Store            *store.PersonaStore
	PersonaGenerator *llm.PersonaGenerator
	SlotGenerator    *portrait.SlotGenerator
	Rand             *rand.Rand // must be safe for concurrent use
	Concurrency      int        // bounded fan-out, clamped to 1..8
	EventBuffer      int
}

// DefaultConcurrency is the bounded fan-out used when none is configured.
const DefaultConcurrency = 4

// NewOrchestrator creates an orchestrator from config.
func NewOrchestrator(cfg OrchestratorConfig) *Orchestrator {
	concurrency := cfg.Concurrency
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}
	if concurrency > 8 {
		concurrency = 8
	}
	rng := cfg.Rand
	if rng == nil {
		rng = NewLockedRand(time.Now().UnixNano())
	}
	buffer := cfg.EventBuffer
	if buffer <= 0 {
		buffer = 32
	}
	return &Orchestrator{
		store:       cfg.Store,
		personas:    cfg.PersonaGenerator,
		slots:       cfg.SlotGenerator,
		rng:         rng,
		concurrency: concurrency,
		events:      make(chan Event, buffer),
	}
}

// Events returns the progress event channel. Events are dropped when the
// buffer is full; they are advisory, never load-bearing.
func (o *Orchestrator) Events() <-chan Event {
	return o.events
}

func (o *Orchestrator) emit(e Event) {
	e.Timestamp = time.Now()
	select {
	case o.events <- e:
	default:
	}
}

// GenerateBatch runs the full pipeline for a fresh campaign brief: text
// generation, normalization, store replacement, then the portrait batch.
// Any in-flight batch is cancelled first.
func (o *Orchestrator) GenerateBatch(ctx context.Context, brief llm.Request) (BatchResult, error) {
	o.mu.Lock()
	if o.cancelBatch != nil {
		o.cancelBatch()
	}
	batchCtx, cancel := context.WithCancel(ctx)
	o.cancelBatch = cancel
	o.mu.Unlock()

	// The brief is persisted with the persona set so single-slot
	// regeneration keeps working after a restart.
	if err := o.store.SetBrief(batchCtx, toStoreBrief(brief)); err != nil {
		return BatchResult{}, err
	}

	logging.Generation("generating %d personas for offering %q", brief.Count, brief.OfferingDescription)

	raws, err := o.personas.Generate(batchCtx, brief)
	if err != nil {
		return BatchResult{}, err
	}

	normalized := make([]persona.Persona, 0, len(raws))
	for i, raw := range raws {
		p, err := persona.Normalize(raw, i, brief.OfferingDescription, o.rng)
		if err != nil {
			logging.Generation("dropping malformed persona %d: %v", i, err)
			continue
		}
		normalized = append(normalized, p)
	}
	if len(normalized) == 0 {
		return BatchResult{}, fmt.Errorf("%w: no personas survived normalization", llm.ErrGenerationFailed)
	}

	epoch, err := o.store.ReplaceAll(batchCtx, normalized)
	if err != nil {
		return BatchResult{}, err
	}

	return o.runBatch(batchCtx, epoch)
}

// RunPortraits runs the portrait batch over the current store contents
// without regenerating persona text. Used after a restart with a restored
// store.
func (o *Orchestrator) RunPortraits(ctx context.Context) (BatchResult, error) {
	o.mu.Lock()
	if o.cancelBatch != nil {
		o.cancelBatch()
	}
	batchCtx, cancel := context.WithCancel(ctx)
	o.cancelBatch = cancel
	o.mu.Unlock()

	return o.runBatch(batchCtx, o.store.Epoch())
}

// Cancel aborts any in-flight batch.
func (o *Orchestrator) Cancel() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.cancelBatch != nil {
		o.cancelBatch()
		o.cancelBatch = nil
	}
}

// runBatch fans portrait generation out over the visible slots with bounded
// concurrency. Slot assignment is left-to-right; completion order is not.
func (o *Orchestrator) runBatch(ctx context.Context, epoch uint64) (BatchResult, error) {
	start := time.Now()
	runID := uuid.NewString()
	slots := o.store.VisibleSlots()
	total := len(slots)

	logging.Batch("run %s: %d slots, epoch %d", runID, total, epoch)
	timer := logging.StartTimer(logging.CategoryBatch, "portrait batch")
	defer timer.Stop()

	var successMu sync.Mutex
	successes := 0

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.concurrency)

	for i := range slots {
		index := i
		slot := slots[i]

		if slot.Persona == nil {
			continue
		}
		// Idempotent: a slot that already has a portrait counts as a
		// success without a collaborator call.
		if slot.Persona.PortraitURL != "" {
			successMu.Lock()
			successes++
			successMu.Unlock()
			continue
		}

		g.Go(func() error {
			if err := o.generateSlot(gctx, epoch, index, *slot.Persona); err != nil {
				logging.Batch("slot %d failed: %v", index, err)
				return nil // slot failures never abort the batch
			}
			successMu.Lock()
			successes++
			successMu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return BatchResult{}, err
	}
	if ctx.Err() != nil {
		return BatchResult{}, ctx.Err()
	}

	result := BatchResult{
		RunID:        runID,
		Outcome:      outcomeFor(successes, total),
		SuccessCount: successes,
		Total:        total,
		Epoch:        epoch,
		Duration:     time.Since(start),
	}
	o.emit(Event{
		Type:    EventBatchCompleted,
		Message: fmt.Sprintf("%s (%d/%d)", result.Outcome, successes, total),
	})
	logging.Batch("batch done: %s (%d/%d)", result.Outcome, successes, total)
	return result, nil
}

// generateSlot runs the retry-aware portrait loop for one slot and records
// the result in the store. Stale-epoch rejections are silent discards.
func (o *Orchestrator) generateSlot(ctx context.Context, epoch uint64, index int, p persona.Persona) error {
	o.emit(Event{Type: EventSlotStarted, Index: index})
	if err := o.store.MarkStatus(ctx, epoch, index, store.StatusGenerating, nil); err != nil {
		return err
	}

	url, err := o.slots.Generate(ctx, p, o.offeringContext())
	if err != nil {
		o.emit(Event{Type: EventSlotExhausted, Index: index, Message: err.Error()})
		if markErr := o.store.MarkStatus(ctx, epoch, index, store.StatusExhausted, err); markErr != nil {
			return markErr
		}
		return err
	}

	if err := o.store.SetPortraitURL(ctx, epoch, index, url); err != nil {
		return err
	}
	o.emit(Event{Type: EventSlotSucceeded, Index: index})
	return nil
}

// RetrySlot reruns portrait generation for one slot, regardless of how many
// automatic retries it already spent.
func (o *Orchestrator) RetrySlot(ctx context.Context, index int) error {
	slot, err := o.store.Slot(index)
	if err != nil {
		return err
	}
	if slot.Persona == nil {
		return fmt.Errorf("slot %d has no persona to retry", index)
	}
	return o.generateSlot(ctx, o.store.Epoch(), index, *slot.Persona)
}

func (o *Orchestrator) offeringContext() string {
	return o.store.Brief().Offering
}

// currentBrief rebuilds the active campaign brief from the store, where it
// was persisted alongside the persona set.
func (o *Orchestrator) currentBrief() llm.Request {
	return fromStoreBrief(o.store.Brief())
}

// SetBrief overrides the persisted campaign brief without running a batch.
func (o *Orchestrator) SetBrief(ctx context.Context, brief llm.Request) error {
	return o.store.SetBrief(ctx, toStoreBrief(brief))
}

func toStoreBrief(r llm.Request) store.Brief {
	return store.Brief{
		Offering:            r.OfferingDescription,
		Country:             r.Country,
		OrganizationContext: r.OrganizationContext,
		OfferingContext:     r.OfferingContext,
	}
}

func fromStoreBrief(b store.Brief) llm.Request {
	return llm.Request{
		OfferingDescription: b.Offering,
		Country:             b.Country,
		OrganizationContext: b.OrganizationContext,
		OfferingContext:     b.OfferingContext,
	}
}
