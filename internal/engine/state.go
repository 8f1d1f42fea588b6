package engine

import (
	"context"
	"errors"

	"github.com/roach88/cartsync/internal/cart"
	"github.com/roach88/cartsync/internal/journal"
)

// productState is the state machine of one product.
//
// Idle when pending is nil: speculative equals confirmed and both equal the
// store. Optimistic otherwise: the store shows speculative and latest is the
// sequence of the request whose result will be applied.
type productState struct {
	confirmed    cart.LineItem
	hasConfirmed bool

	speculative    cart.LineItem
	hasSpeculative bool

	latest  int64
	pending *cart.PendingMutation
}

// state returns the state of id, starting it Idle from the store.
// States are never dropped: a superseded request may still be in flight,
// and its sequence must never be reused.
func (c *Coordinator) state(id cart.ProductID) *productState {
	if st, ok := c.states[id]; ok {
		return st
	}
	line, ok := c.store.Get(id)
	st := &productState{
		confirmed:      line,
		hasConfirmed:   ok,
		speculative:    line,
		hasSpeculative: ok,
	}
	c.states[id] = st
	return st
}

// processCommand applies a command optimistically and sends its request.
func (c *Coordinator) processCommand(ctx context.Context, cmd Command) error {
	var err error
	switch cmd := cmd.(type) {
	case Add:
		err = c.applyAdd(ctx, cmd)
	case SetQuantity:
		if cmd.Quantity == 0 {
			err = c.applyRemove(ctx, cmd.ProductID)
		} else {
			err = c.applySet(ctx, cmd.ProductID, cmd.Quantity)
		}
	case Adjust:
		err = c.applyAdjust(ctx, cmd)
	case Remove:
		err = c.applyRemove(ctx, cmd.ProductID)
	case Resync:
		c.startResync(ctx)
	default:
		return ErrUnknownCommand
	}

	if errors.Is(err, ErrLineNotFound) {
		id := productOf(cmd)
		c.logger.Warn("command targets a line not in the cart", "product", id)
		c.notifier.Enqueue("item not in cart", cart.SeverityWarning)
		c.record(ctx, journal.Entry{
			ProductID: id,
			Kind:      commandKind(cmd),
			Outcome:   journal.OutcomeRejected,
			Detail:    err.Error(),
		})
		return nil
	}
	return err
}

func (c *Coordinator) applyAdd(ctx context.Context, cmd Add) error {
	st := c.state(cmd.ProductID)

	qty := cmd.Quantity
	if qty == 0 {
		qty = cart.DefaultAddQuantity
	}

	line := cart.LineItem{ProductID: cmd.ProductID, Quantity: qty, UnitPrice: cmd.UnitPrice}
	if line.UnitPrice == "" && st.hasConfirmed {
		// Re-adding while a removal is in flight keeps the known price.
		line.UnitPrice = st.confirmed.UnitPrice
	}
	if st.hasSpeculative {
		line = st.speculative
		line.Quantity += qty
		if cmd.UnitPrice != "" {
			line.UnitPrice = cmd.UnitPrice
		}
	}

	return c.issue(ctx, st, cmd.ProductID, cart.MutationAdd, qty, line, true)
}

func (c *Coordinator) applySet(ctx context.Context, id cart.ProductID, qty int) error {
	st := c.state(id)
	if !st.hasSpeculative {
		return lineNotFound(id)
	}
	line := st.speculative
	line.Quantity = qty
	return c.issue(ctx, st, id, cart.MutationSetQuantity, qty, line, true)
}

func (c *Coordinator) applyAdjust(ctx context.Context, cmd Adjust) error {
	st := c.state(cmd.ProductID)
	if !st.hasSpeculative {
		return lineNotFound(cmd.ProductID)
	}
	if cmd.Delta == 0 {
		return nil
	}
	target := st.speculative.Quantity + cmd.Delta
	if target <= 0 {
		return c.applyRemove(ctx, cmd.ProductID)
	}
	return c.applySet(ctx, cmd.ProductID, target)
}

// applyRemove asks the Confirmer first. Declining changes nothing and sends nothing.
func (c *Coordinator) applyRemove(ctx context.Context, id cart.ProductID) error {
	st := c.state(id)
	if !st.hasSpeculative {
		return lineNotFound(id)
	}

	if !c.confirm.ConfirmRemove(ctx, st.speculative) {
		c.logger.Info("removal declined", "product", id)
		c.record(ctx, journal.Entry{
			ProductID: id,
			Sequence:  st.latest,
			Kind:      cart.MutationRemove.String(),
			Outcome:   journal.OutcomeDeclined,
			Line:      lineJSON(st.speculative, true),
		})
		return nil
	}

	return c.issue(ctx, st, id, cart.MutationRemove, 0, cart.LineItem{}, false)
}

// issue moves st to Optimistic with a new sequence and launches the request.
// quantity is what the server is sent; line/present is the speculative result.
func (c *Coordinator) issue(
	ctx context.Context,
	st *productState,
	id cart.ProductID,
	kind cart.MutationKind,
	quantity int,
	line cart.LineItem,
	present bool,
) error {
	seq := st.latest + 1
	requestID, err := cart.RequestID(c.session, id, kind, quantity, seq)
	if err != nil {
		return err
	}

	if present {
		if err := c.store.Upsert(line); err != nil {
			return err
		}
	} else {
		c.store.Delete(id)
	}

	st.latest = seq
	st.speculative, st.hasSpeculative = line, present
	st.pending = &cart.PendingMutation{
		ProductID: id,
		Kind:      kind,
		Quantity:  quantity,
		Sequence:  seq,
		IssuedAt:  c.now(),
		RequestID: requestID,
	}
	c.recompute()

	c.logger.Debug("mutation issued",
		"product", id,
		"kind", kind.String(),
		"quantity", quantity,
		"sequence", seq,
		"request_id", requestID,
	)
	c.record(ctx, journal.Entry{
		ProductID: id,
		Sequence:  seq,
		Kind:      kind.String(),
		Outcome:   journal.OutcomeIssued,
		Quantity:  quantity,
		Line:      lineJSON(line, present),
		RequestID: requestID,
	})

	c.launchMutation(*st.pending)
	return nil
}

// launchMutation runs the remote call off the loop and posts its result back.
func (c *Coordinator) launchMutation(m cart.PendingMutation) {
	c.launch(func() {
		ctx, cancel := context.WithTimeout(cart.WithRequestID(c.lifetime, m.RequestID), c.requestTimeout)
		defer cancel()

		var err error
		switch m.Kind {
		case cart.MutationAdd:
			err = c.remote.Add(ctx, m.ProductID, m.Quantity)
		case cart.MutationSetQuantity:
			err = c.remote.SetQuantity(ctx, m.ProductID, m.Quantity)
		case cart.MutationRemove:
			err = c.remote.Remove(ctx, m.ProductID)
		}
		if err != nil && !cart.IsRequestFailed(err) {
			err = cart.NewRequestFailed(m.ProductID, m.Kind.String(), err)
		}

		c.queue.Enqueue(Event{
			Type: EventTypeCompletion,
			Completion: &Completion{
				ProductID: m.ProductID,
				Sequence:  m.Sequence,
				Kind:      m.Kind,
				Err:       err,
			},
		})
	})
}

func commandKind(cmd Command) string {
	switch cmd := cmd.(type) {
	case Add:
		return cart.MutationAdd.String()
	case SetQuantity:
		if cmd.Quantity == 0 {
			return cart.MutationRemove.String()
		}
		return cart.MutationSetQuantity.String()
	case Adjust:
		return cart.MutationSetQuantity.String()
	case Remove:
		return cart.MutationRemove.String()
	}
	return journal.KindSummary
}

// lineJSON renders a line for the journal; "" when absent.
func lineJSON(line cart.LineItem, present bool) string {
	if !present {
		return ""
	}
	b, err := cart.MarshalCanonical(line)
	if err != nil {
		return ""
	}
	return string(b)
}

func (c *Coordinator) record(ctx context.Context, e journal.Entry) {
	if c.recorder == nil {
		return
	}
	e.Seq = c.clock.Next()
	e.RecordedAt = c.now()
	if err := c.recorder.Record(ctx, e); err != nil {
		c.logger.Error("journal write failed",
			"error", err,
			"product", e.ProductID,
			"outcome", string(e.Outcome),
			"seq", e.Seq,
		)
	}
}
