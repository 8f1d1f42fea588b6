package engine

import (
	"context"

	"github.com/roach88/cartsync/internal/cart"
	"github.com/roach88/cartsync/internal/journal"
)

var (
	successMessages = map[cart.MutationKind]string{
		cart.MutationAdd:         "item added",
		cart.MutationSetQuantity: "cart updated",
		cart.MutationRemove:      "item removed",
	}
	failureMessages = map[cart.MutationKind]string{
		cart.MutationAdd:         "failed to add",
		cart.MutationSetQuantity: "failed to update",
		cart.MutationRemove:      "failed to remove",
	}
)

// processCompletion confirms or rolls back the latest mutation of a product.
// Results of superseded sequences are discarded without any state change.
func (c *Coordinator) processCompletion(ctx context.Context, comp *Completion) {
	st, ok := c.states[comp.ProductID]
	if !ok || comp.Sequence != st.latest || st.pending == nil {
		latest := int64(0)
		if ok {
			latest = st.latest
		}
		stale := cart.NewStaleResult(comp.ProductID, comp.Sequence, latest)
		c.logger.Debug("stale result discarded",
			"product", comp.ProductID,
			"sequence", comp.Sequence,
			"latest", latest,
			"confirmed", comp.Confirmed(),
		)
		c.record(ctx, journal.Entry{
			ProductID: comp.ProductID,
			Sequence:  comp.Sequence,
			Kind:      comp.Kind.String(),
			Outcome:   journal.OutcomeStale,
			Detail:    stale.Error(),
		})
		return
	}

	pending := *st.pending
	st.pending = nil

	if comp.Confirmed() {
		st.confirmed, st.hasConfirmed = st.speculative, st.hasSpeculative
		c.recompute()
		c.notifier.Enqueue(successMessages[comp.Kind], cart.SeveritySuccess)
		c.logger.Debug("mutation confirmed",
			"product", comp.ProductID,
			"kind", comp.Kind.String(),
			"sequence", comp.Sequence,
		)
		c.record(ctx, journal.Entry{
			ProductID: comp.ProductID,
			Sequence:  comp.Sequence,
			Kind:      comp.Kind.String(),
			Outcome:   journal.OutcomeConfirmed,
			Quantity:  pending.Quantity,
			Line:      lineJSON(st.confirmed, st.hasConfirmed),
			RequestID: pending.RequestID,
		})
		return
	}

	c.rollback(comp.ProductID, st)
	c.recompute()
	c.notifier.Enqueue(failureMessages[comp.Kind], cart.SeverityError)
	c.logger.Warn("mutation failed, rolled back",
		"product", comp.ProductID,
		"kind", comp.Kind.String(),
		"sequence", comp.Sequence,
		"error", comp.Err,
	)
	c.record(ctx, journal.Entry{
		ProductID: comp.ProductID,
		Sequence:  comp.Sequence,
		Kind:      comp.Kind.String(),
		Outcome:   journal.OutcomeRolledBack,
		Quantity:  pending.Quantity,
		Line:      lineJSON(st.confirmed, st.hasConfirmed),
		RequestID: pending.RequestID,
		Detail:    comp.Err.Error(),
	})
}

// rollback puts the store back to the last confirmed line, in its old position.
func (c *Coordinator) rollback(id cart.ProductID, st *productState) {
	if st.hasConfirmed {
		// Cannot fail: the confirmed line was accepted by the store before.
		_ = c.store.Restore(st.confirmed)
	} else {
		c.store.Delete(id)
	}
	st.speculative, st.hasSpeculative = st.confirmed, st.hasConfirmed
}
