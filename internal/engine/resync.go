package engine

import (
	"context"
	"fmt"

	"github.com/roach88/cartsync/internal/cart"
	"github.com/roach88/cartsync/internal/journal"
	"github.com/roach88/cartsync/internal/totals"
)

// startResync launches a FetchSummary. Only the latest one is applied.
func (c *Coordinator) startResync(ctx context.Context) {
	c.resyncSeq++
	seq := c.resyncSeq
	c.logger.Debug("resync issued", "sequence", seq)

	c.launch(func() {
		rctx, cancel := context.WithTimeout(c.lifetime, c.requestTimeout)
		defer cancel()

		summary, err := c.remote.FetchSummary(rctx)
		c.queue.Enqueue(Event{
			Type:    EventTypeSummary,
			Summary: &SummaryResult{Sequence: seq, Summary: summary, Err: err},
		})
	})
}

// processSummary replaces local totals with the server's numbers.
// A failed fetch keeps the local totals; the loop never fails on it.
func (c *Coordinator) processSummary(ctx context.Context, r *SummaryResult) {
	if r.Sequence != c.resyncSeq {
		c.logger.Debug("stale summary discarded", "sequence", r.Sequence, "latest", c.resyncSeq)
		c.record(ctx, journal.Entry{
			Sequence: r.Sequence,
			Kind:     journal.KindSummary,
			Outcome:  journal.OutcomeStale,
		})
		return
	}

	if r.Err != nil {
		c.logger.Warn("resync failed, keeping local totals", "error", r.Err)
		c.record(ctx, journal.Entry{
			Sequence: r.Sequence,
			Kind:     journal.KindSummary,
			Outcome:  journal.OutcomeResyncFailed,
			Detail:   r.Err.Error(),
		})
		return
	}

	countDelta, subtotalDelta := totals.Drift(c.totals, r.Summary)
	if countDelta != 0 || !subtotalDelta.IsZero() {
		c.logger.Info("cart drift corrected",
			"item_count_delta", countDelta,
			"subtotal_delta", subtotalDelta.StringFixed(2),
		)
	}
	c.totals = totals.FromSummary(r.Summary)

	c.record(ctx, journal.Entry{
		Sequence: r.Sequence,
		Kind:     journal.KindSummary,
		Outcome:  journal.OutcomeResynced,
		Quantity: c.totals.ItemCount,
		Detail:   summaryDetail(c.totals),
	})
}

func summaryDetail(t cart.Totals) string {
	return fmt.Sprintf("item_count=%d subtotal=%s", t.ItemCount, t.Subtotal.StringFixed(2))
}
