package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/roach88/cartsync/internal/cart"
	"github.com/roach88/cartsync/internal/engine"
	"github.com/roach88/cartsync/internal/journal"
	"github.com/roach88/cartsync/internal/notify"
	"github.com/roach88/cartsync/internal/remote"
	"github.com/roach88/cartsync/internal/testutil"
)

// Epoch is the fake wall-clock time every scenario starts at.
var Epoch = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

// Harness holds the collaborators of one scenario run.
type Harness struct {
	coord    *engine.Coordinator
	server   *remote.Scripted
	launcher *testutil.DeferredLauncher
	clock    *testutil.ManualClock
	center   *notify.Center
	journal  *journal.Store
	logger   *slog.Logger
}

// Run executes a scenario and returns the result.
//
// Each scenario runs against a fresh in-memory journal, a manual clock and a
// deferred launcher, so the same scenario always yields the same trace.
// A returned error means the scenario could not be executed (e.g. a step
// completes a call that was never launched); assertion failures are
// reported in the Result instead.
func Run(scenario *Scenario) (*Result, error) {
	j, err := journal.Open(journal.MemoryPath)
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory journal: %w", err)
	}
	defer j.Close()

	h := &Harness{
		server:   remote.NewScripted(nil),
		launcher: testutil.NewDeferredLauncher(),
		clock:    testutil.NewManualClock(Epoch),
		journal:  j,
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)), // Suppress logs in scenarios
	}
	h.center = notify.New(
		notify.WithScheduler(h.clock),
		notify.WithClock(h.clock.Now),
		notify.WithIDGenerator(testutil.SequentialIDs("n")),
		notify.WithLogger(h.logger),
	)
	defer h.center.Close()

	confirmer := engine.AlwaysConfirm
	if scenario.DeclineRemovals {
		confirmer = engine.ConfirmFunc(func(context.Context, cart.LineItem) bool { return false })
	}

	h.coord = engine.New(h.server,
		engine.WithLauncher(h.launcher.Launch),
		engine.WithConfirmer(confirmer),
		engine.WithRecorder(j),
		engine.WithNotifier(h.center),
		engine.WithClockFunc(h.clock.Now),
		engine.WithLogger(h.logger),
		engine.WithSessionID(scenario.Name),
	)
	defer h.coord.Stop()

	seed := make([]cart.LineItem, len(scenario.Cart))
	for i, l := range scenario.Cart {
		seed[i] = cart.LineItem{
			ProductID: cart.NewProductID(l.Product),
			Quantity:  l.Quantity,
			UnitPrice: cart.Price(l.Price),
		}
	}
	if err := h.coord.Seed(seed); err != nil {
		return nil, fmt.Errorf("failed to seed cart: %w", err)
	}
	h.server.Seed(seed)

	for _, call := range scenario.Script {
		outcome := remote.Outcome{}
		if call.Fail {
			outcome = remote.Fail
		}
		h.server.Script(remote.Op(call.Op), cart.NewProductID(call.Product), outcome)
	}

	ctx := context.Background()
	result := NewResult()

	for i, step := range scenario.Steps {
		if err := h.executeStep(ctx, step); err != nil {
			return nil, fmt.Errorf("steps[%d]: %w", i, err)
		}
	}

	if err := h.collect(ctx, result); err != nil {
		return nil, err
	}

	for _, msg := range EvaluateAssertions(result, scenario.Assertions) {
		result.AddError(msg)
	}
	return result, nil
}

func (h *Harness) executeStep(ctx context.Context, step Step) error {
	switch {
	case step.Add != nil:
		return h.dispatch(ctx, engine.Add{
			ProductID: cart.NewProductID(step.Add.Product),
			Quantity:  step.Add.Quantity,
			UnitPrice: cart.Price(step.Add.Price),
		})
	case step.Set != nil:
		return h.dispatch(ctx, engine.SetQuantity{
			ProductID: cart.NewProductID(step.Set.Product),
			Quantity:  step.Set.Quantity,
		})
	case step.Adjust != nil:
		return h.dispatch(ctx, engine.Adjust{
			ProductID: cart.NewProductID(step.Adjust.Product),
			Delta:     step.Adjust.Delta,
		})
	case step.Remove != nil:
		return h.dispatch(ctx, engine.Remove{ProductID: cart.NewProductID(step.Remove.Product)})
	case step.Resync:
		return h.dispatch(ctx, engine.Resync{})
	case step.Complete != nil:
		return h.complete(ctx, *step.Complete)
	case step.CompleteAll:
		h.launcher.RunAll()
		h.coord.Drain(ctx)
		return nil
	case step.Advance != "":
		d, err := time.ParseDuration(step.Advance)
		if err != nil {
			return err
		}
		h.clock.Advance(d)
		return nil
	case step.ServerSummary != nil:
		subtotal, err := decimal.NewFromString(step.ServerSummary.Subtotal)
		if err != nil {
			return fmt.Errorf("server_summary: %w", err)
		}
		h.server.OverrideSummary(cart.Summary{ItemCount: step.ServerSummary.ItemCount, Subtotal: subtotal})
		return nil
	}
	return fmt.Errorf("empty step")
}

// dispatch submits a command and processes it. Commands the coordinator
// refuses up front (negative quantities) are part of the scenario, not a
// harness failure.
func (h *Harness) dispatch(ctx context.Context, cmd engine.Command) error {
	if err := h.coord.Dispatch(cmd); err != nil && !cart.IsInvalidQuantity(err) {
		return err
	}
	h.coord.Drain(ctx)
	return nil
}

func (h *Harness) complete(ctx context.Context, i int) error {
	if i >= h.launcher.Total() {
		return fmt.Errorf("complete %d: only %d calls launched", i, h.launcher.Total())
	}
	if err := runOnce(h.launcher, i); err != nil {
		return err
	}
	h.coord.Drain(ctx)
	return nil
}

func runOnce(l *testutil.DeferredLauncher, i int) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("complete %d: %v", i, r)
		}
	}()
	l.Run(i)
	return nil
}

// collect fills the trace and the final state.
func (h *Harness) collect(ctx context.Context, result *Result) error {
	entries, err := h.journal.ReadAll(ctx)
	if err != nil {
		return fmt.Errorf("failed to read journal: %w", err)
	}
	for _, e := range entries {
		result.Trace = append(result.Trace, TraceEvent{
			Seq:      e.Seq,
			Product:  string(e.ProductID),
			Sequence: e.Sequence,
			Kind:     e.Kind,
			Outcome:  string(e.Outcome),
			Quantity: e.Quantity,
		})
	}

	view := h.coord.Snapshot()
	result.Final = FinalState{
		Lines:         view.Lines,
		Totals:        view.Totals,
		Notifications: h.center.Active(),
		Calls:         len(h.server.Calls()),
	}
	return nil
}
