// Package notify implements the notification center: a bounded stack of
// transient messages that expire independently of one another.
package notify

import (
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/roach88/cartsync/internal/cart"
)

// DefaultMaxVisible is the number of notifications kept before the oldest is dropped.
const DefaultMaxVisible = 5

// Center holds active notifications.
//
// Each entry owns a timer; when it fires only that entry is removed. Enqueue
// never fails: once MaxVisible entries are active the oldest is dropped and
// its timer stopped.
//
// Thread-safety: all methods are safe for concurrent use. Expiry callbacks
// run on the scheduler's goroutine.
type Center struct {
	mu         sync.Mutex
	entries    []*entry // oldest first
	sched      Scheduler
	now        func() time.Time
	newID      func() string
	ttl        time.Duration
	maxVisible int
	logger     *slog.Logger
	observers  []func(cart.Notification)
}

type entry struct {
	n     cart.Notification
	timer Timer
}

// Option configures a Center.
type Option func(*Center)

// WithScheduler replaces the wall-clock scheduler (tests use a manual one).
func WithScheduler(s Scheduler) Option {
	return func(c *Center) { c.sched = s }
}

// WithClock sets the time source used for CreatedAt.
func WithClock(now func() time.Time) Option {
	return func(c *Center) { c.now = now }
}

// WithTTL sets the default lifetime of an entry.
func WithTTL(ttl time.Duration) Option {
	return func(c *Center) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

// WithMaxVisible bounds the number of active entries.
func WithMaxVisible(n int) Option {
	return func(c *Center) {
		if n > 0 {
			c.maxVisible = n
		}
	}
}

// WithIDGenerator overrides notification id generation.
func WithIDGenerator(gen func() string) Option {
	return func(c *Center) { c.newID = gen }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Center) { c.logger = l }
}

// WithObserver calls fn with every enqueued notification, after the
// center's lock is released. Renderers use it to show toasts as they arrive.
func WithObserver(fn func(cart.Notification)) Option {
	return func(c *Center) { c.observers = append(c.observers, fn) }
}

// New creates a notification center.
func New(opts ...Option) *Center {
	c := &Center{
		sched:      RealScheduler{},
		now:        time.Now,
		newID:      func() string { return uuid.Must(uuid.NewV7()).String() },
		ttl:        cart.DefaultNotificationTTL,
		maxVisible: DefaultMaxVisible,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Enqueue adds a notification with the default TTL and returns its id.
func (c *Center) Enqueue(message string, severity cart.Severity) string {
	return c.EnqueueTTL(message, severity, c.ttl)
}

// EnqueueTTL adds a notification with an explicit TTL and returns its id.
// A non-positive ttl falls back to the default. Unknown severities become info.
func (c *Center) EnqueueTTL(message string, severity cart.Severity, ttl time.Duration) string {
	if ttl <= 0 {
		ttl = c.ttl
	}
	if !severity.Valid() {
		severity = cart.SeverityInfo
	}

	c.mu.Lock()
	n := cart.Notification{
		ID:        c.newID(),
		Message:   message,
		Severity:  severity,
		CreatedAt: c.now(),
		TTL:       ttl,
	}
	e := &entry{n: n}
	id := n.ID
	e.timer = c.sched.AfterFunc(ttl, func() { c.expire(id) })

	c.entries = append(c.entries, e)
	for len(c.entries) > c.maxVisible {
		oldest := c.entries[0]
		oldest.timer.Stop()
		c.entries[0] = nil
		c.entries = c.entries[1:]
		c.logger.Debug("notification dropped", "id", oldest.n.ID, "reason", "max_visible")
	}
	observers := c.observers
	c.mu.Unlock()

	c.logger.Debug("notification enqueued",
		"id", id,
		"severity", string(severity),
		"message", message,
		"ttl", ttl,
	)
	for _, fn := range observers {
		fn(n)
	}
	return id
}

// Dismiss removes a notification early. Returns false if it is not active.
func (c *Center) Dismiss(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	e := c.remove(id)
	if e == nil {
		return false
	}
	e.timer.Stop()
	return true
}

// Active returns the active notifications, oldest first.
func (c *Center) Active() []cart.Notification {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]cart.Notification, len(c.entries))
	for i, e := range c.entries {
		out[i] = e.n
	}
	return out
}

// Len returns the number of active notifications.
func (c *Center) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Close stops every pending timer and clears the center.
func (c *Center) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, e := range c.entries {
		e.timer.Stop()
	}
	c.entries = nil
}

func (c *Center) expire(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e := c.remove(id); e != nil {
		c.logger.Debug("notification expired", "id", id)
	}
}

// remove deletes the entry with id. Caller holds mu.
func (c *Center) remove(id string) *entry {
	for i, e := range c.entries {
		if e.n.ID == id {
			c.entries = append(c.entries[:i], c.entries[i+1:]...)
			return e
		}
	}
	return nil
}
