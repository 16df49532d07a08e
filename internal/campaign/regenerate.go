package campaign

import (
	"context"
	"fmt"

	"admuse/internal/logging"
	"admuse/internal/persona"
)

// RemoveAndRegenerate clears a slot and immediately refills it: one text
// generation call for a single replacement persona, normalization, a store
// write at the same index, then the portrait loop for that slot alone.
//
// A text-step failure leaves the slot empty. A portrait-step failure leaves
// the persona text in place with no portrait URL; the slot stays eligible
// for manual retry.
func (o *Orchestrator) RemoveAndRegenerate(ctx context.Context, index int) error {
	brief := o.currentBrief()
	if brief.OfferingDescription == "" {
		return fmt.Errorf("no campaign brief recorded; generate a persona set first")
	}

	if err := o.store.ClearSlot(ctx, index); err != nil {
		return err
	}
	o.emit(Event{Type: EventSlotRemoved, Index: index})
	epoch := o.store.Epoch()

	logging.Generation("regenerating slot %d", index)

	raw, err := o.personas.GenerateOne(ctx, brief, o.store.VisiblePersonas())
	if err != nil {
		return fmt.Errorf("slot %d text regeneration: %w", index, err)
	}

	p, err := persona.Normalize(raw, index, brief.OfferingDescription, o.rng)
	if err != nil {
		return fmt.Errorf("slot %d text regeneration: %w", index, err)
	}

	if err := o.store.Update(ctx, epoch, index, p); err != nil {
		return err
	}
	o.emit(Event{Type: EventTextRegenerated, Index: index, Message: p.Title})

	return o.generateSlot(ctx, epoch, index, p)
}
