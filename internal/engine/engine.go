package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/roach88/cartsync/internal/cart"
	"github.com/roach88/cartsync/internal/linestore"
	"github.com/roach88/cartsync/internal/notify"
	"github.com/roach88/cartsync/internal/totals"
)

// DefaultRequestTimeout bounds every remote call. Expiry is a failed request.
const DefaultRequestTimeout = 10 * time.Second

// Coordinator is the MutationCoordinator: the single writer of the cart.
//
// Thread-safety model:
//   - Dispatch(), Snapshot(), Ready(), Stop(): safe from any goroutine
//   - Run() or Drain(): called from exactly one goroutine, the loop owner
//   - Seed(): loop owner only, before any command is processed
//
// INVARIANTS:
//   - only the loop goroutine touches store, states and totals
//   - per product, only the result of the latest issued sequence is applied
//   - totals are always recomputed from the store, never edited in place
//     (except a resync, which replaces them with the server's numbers)
type Coordinator struct {
	remote RemoteCartService
	store  *linestore.Store
	states map[cart.ProductID]*productState
	totals cart.Totals
	queue  *eventQueue
	clock  *Clock

	resyncSeq int64

	// session is mixed into every request id; sequences restart per coordinator.
	session string

	launch         Launcher
	confirm        Confirmer
	recorder       Recorder
	notifier       *notify.Center
	now            func() time.Time
	logger         *slog.Logger
	requestTimeout time.Duration
	resyncInterval time.Duration

	// lifetime is the parent of every remote call; Stop cancels it.
	lifetime context.Context
	cancel   context.CancelFunc

	view atomic.Pointer[View]
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithLauncher sets how remote calls are run (default GoLauncher).
func WithLauncher(l Launcher) Option {
	return func(c *Coordinator) { c.launch = l }
}

// WithConfirmer sets the removal gate (default AlwaysConfirm).
func WithConfirmer(conf Confirmer) Option {
	return func(c *Coordinator) { c.confirm = conf }
}

// WithRecorder journals every step of every mutation.
func WithRecorder(r Recorder) Option {
	return func(c *Coordinator) { c.recorder = r }
}

// WithNotifier sets the notification center results are reported to.
func WithNotifier(n *notify.Center) Option {
	return func(c *Coordinator) { c.notifier = n }
}

// WithClockFunc sets the wall clock used for IssuedAt and journal timestamps.
func WithClockFunc(now func() time.Time) Option {
	return func(c *Coordinator) { c.now = now }
}

// WithSeqClock sets the journal clock, e.g. NewClockAt(lastSeq) to resume a journal.
func WithSeqClock(clock *Clock) Option {
	return func(c *Coordinator) { c.clock = clock }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Coordinator) { c.logger = l }
}

// WithRequestTimeout bounds each remote call.
func WithRequestTimeout(d time.Duration) Option {
	return func(c *Coordinator) {
		if d > 0 {
			c.requestTimeout = d
		}
	}
}

// WithResyncInterval makes Run issue a Resync every d. Zero disables it.
func WithResyncInterval(d time.Duration) Option {
	return func(c *Coordinator) { c.resyncInterval = d }
}

// WithSessionID fixes the session component of request ids. The default
// is a fresh UUIDv7 per coordinator.
func WithSessionID(id string) Option {
	return func(c *Coordinator) {
		if id != "" {
			c.session = id
		}
	}
}

// New creates a coordinator for remote.
func New(remote RemoteCartService, opts ...Option) *Coordinator {
	lifetime, cancel := context.WithCancel(context.Background())
	c := &Coordinator{
		remote:         remote,
		store:          linestore.New(),
		states:         make(map[cart.ProductID]*productState),
		totals:         cart.Totals{Source: cart.SourceDerived},
		queue:          newEventQueue(),
		clock:          NewClock(),
		session:        uuid.Must(uuid.NewV7()).String(),
		launch:         GoLauncher,
		confirm:        AlwaysConfirm,
		now:            time.Now,
		logger:         slog.Default(),
		requestTimeout: DefaultRequestTimeout,
		lifetime:       lifetime,
		cancel:         cancel,
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.notifier == nil {
		c.notifier = notify.New(notify.WithLogger(c.logger))
	}

	c.publish()
	return c
}

// Notifier returns the notification center results are reported to.
func (c *Coordinator) Notifier() *notify.Center {
	return c.notifier
}

// Seed loads lines the server has already confirmed (e.g. the cart as first
// rendered). Loop owner only, before any command is processed.
func (c *Coordinator) Seed(lines []cart.LineItem) error {
	for _, line := range lines {
		if err := c.store.Upsert(line); err != nil {
			return fmt.Errorf("seed %s: %w", line.ProductID, err)
		}
	}
	c.recompute()
	c.publish()
	return nil
}

// Dispatch validates cmd and queues it for the loop.
//
// Negative quantities fail here with INVALID_QUANTITY, before any state
// changes or request is sent. Checks that need the cart (is the line there?)
// happen on the loop. Returns ErrStopped after Stop.
func (c *Coordinator) Dispatch(cmd Command) error {
	if err := validate(cmd); err != nil {
		c.logger.Debug("command rejected", "product", productOf(cmd), "error", err)
		return err
	}
	if !c.queue.Enqueue(Event{Type: EventTypeCommand, Command: cmd}) {
		return ErrStopped
	}
	return nil
}

// Run is the single-writer event loop.
// Blocks until ctx is cancelled or Stop() is called.
//
// ERROR HANDLING: a failed event is logged with its context and the loop
// carries on with the next one.
func (c *Coordinator) Run(ctx context.Context) error {
	c.logger.Info("coordinator starting", "resync_interval", c.resyncInterval)

	var tick <-chan time.Time
	if c.resyncInterval > 0 {
		ticker := time.NewTicker(c.resyncInterval)
		defer ticker.Stop()
		tick = ticker.C
	}

	for {
		if event, ok := c.queue.TryDequeue(); ok {
			c.handle(ctx, event)
			continue
		}

		select {
		case <-ctx.Done():
			c.logger.Info("coordinator stopping: context cancelled")
			c.Stop()
			return ctx.Err()

		case <-c.queue.Wait():
			// The signal channel is closed by Stop, so this fires at once.
			if c.queue.Closed() && c.queue.Len() == 0 {
				c.logger.Info("coordinator stopping: queue closed")
				return nil
			}

		case <-tick:
			c.startResync(ctx)
			c.publish()
		}
	}
}

// Drain processes every queued event without blocking and returns how many
// it handled. For hosts that own the loop goroutine themselves.
func (c *Coordinator) Drain(ctx context.Context) int {
	n := 0
	for {
		event, ok := c.queue.TryDequeue()
		if !ok {
			return n
		}
		c.handle(ctx, event)
		n++
	}
}

// Ready signals that events may be waiting for Drain.
// It is closed once the coordinator is stopped.
func (c *Coordinator) Ready() <-chan struct{} {
	return c.queue.Wait()
}

// QueueLen returns the number of events waiting to be processed.
func (c *Coordinator) QueueLen() int {
	return c.queue.Len()
}

// Stop closes the queue and cancels outstanding remote calls.
// Results that arrive afterwards are dropped.
func (c *Coordinator) Stop() {
	c.queue.Close()
	c.cancel()
}

// Snapshot returns the cart as of the last processed event.
// Safe from any goroutine; the returned value must not be modified.
func (c *Coordinator) Snapshot() View {
	return *c.view.Load()
}

func (c *Coordinator) handle(ctx context.Context, event Event) {
	if err := c.processEvent(ctx, event); err != nil {
		c.logEventError(event, err)
	}
	c.publish()
}

// processEvent routes an event to its handler. Loop goroutine only.
func (c *Coordinator) processEvent(ctx context.Context, event Event) error {
	switch event.Type {
	case EventTypeCommand:
		if event.Command == nil {
			return fmt.Errorf("command event missing command")
		}
		return c.processCommand(ctx, event.Command)

	case EventTypeCompletion:
		if event.Completion == nil {
			return fmt.Errorf("completion event missing completion data")
		}
		c.processCompletion(ctx, event.Completion)
		return nil

	case EventTypeSummary:
		if event.Summary == nil {
			return fmt.Errorf("summary event missing summary data")
		}
		c.processSummary(ctx, event.Summary)
		return nil

	default:
		return fmt.Errorf("unknown event type: %d", event.Type)
	}
}

func (c *Coordinator) recompute() {
	c.totals = totals.Recompute(c.store.All(), func(err error) {
		c.logger.Warn("line price is not numeric, counted as zero", "error", err)
	})
}

// publish makes the current state visible to Snapshot.
func (c *Coordinator) publish() {
	v := View{
		Lines:   c.store.All(),
		Totals:  c.totals,
		Pending: make([]cart.PendingMutation, 0),
	}
	for _, st := range c.states {
		if st.pending != nil {
			v.Pending = append(v.Pending, *st.pending)
		}
	}
	sort.Slice(v.Pending, func(i, j int) bool {
		return v.Pending[i].ProductID < v.Pending[j].ProductID
	})
	c.view.Store(&v)
}

func (c *Coordinator) logEventError(event Event, err error) {
	switch event.Type {
	case EventTypeCommand:
		c.logger.Error("command processing failed",
			"error", err,
			"product", productOf(event.Command),
			"command", fmt.Sprintf("%T", event.Command),
		)
	case EventTypeCompletion:
		if event.Completion != nil {
			c.logger.Error("completion processing failed",
				"error", err,
				"product", event.Completion.ProductID,
				"sequence", event.Completion.Sequence,
			)
			return
		}
		c.logger.Error("completion processing failed", "error", err)
	default:
		c.logger.Error("event processing failed", "error", err, "event_type", event.Type)
	}
}
