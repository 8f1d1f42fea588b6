package engine

import (
	"sync"

	"github.com/roach88/cartsync/internal/cart"
)

// EventType distinguishes between event kinds.
type EventType int

const (
	// EventTypeCommand is a shopper command to apply.
	EventTypeCommand EventType = iota + 1
	// EventTypeCompletion is the result of a mutation request.
	EventTypeCompletion
	// EventTypeSummary is the result of a FetchSummary request.
	EventTypeSummary
)

// Event wraps commands and remote results for the event queue.
type Event struct {
	Type       EventType
	Command    Command
	Completion *Completion
	Summary    *SummaryResult
}

// Completion is the tagged result of one mutation request.
// A nil Err means Confirmed; anything else means Failed.
type Completion struct {
	ProductID cart.ProductID
	Sequence  int64
	Kind      cart.MutationKind
	Err       error
}

// Confirmed reports whether the server accepted the mutation.
func (c *Completion) Confirmed() bool {
	return c.Err == nil
}

// SummaryResult is the result of one FetchSummary request.
type SummaryResult struct {
	Sequence int64
	Summary  cart.Summary
	Err      error
}

// eventQueue is a thread-safe FIFO queue for events.
//
// Unbounded so remote goroutines posting completions never block.
// The signal channel lets the loop wait on the queue and a context at once.
type eventQueue struct {
	mu     sync.Mutex
	events []Event
	closed bool
	signal chan struct{} // buffered, size 1
}

func newEventQueue() *eventQueue {
	return &eventQueue{
		events: make([]Event, 0, 64),
		signal: make(chan struct{}, 1),
	}
}

// Enqueue adds an event to the back of the queue.
// Returns false if the queue is closed.
func (q *eventQueue) Enqueue(e Event) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return false
	}

	q.events = append(q.events, e)

	// Non-blocking: the buffer of 1 coalesces signals.
	select {
	case q.signal <- struct{}{}:
	default:
	}

	return true
}

// TryDequeue removes the front event without blocking.
// Returns (Event{}, false) if the queue is empty.
func (q *eventQueue) TryDequeue() (Event, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.events) == 0 {
		return Event{}, false
	}

	e := q.events[0]

	// Clear the slot so the backing array does not pin the event's pointers.
	q.events[0] = Event{}

	if len(q.events) == 1 {
		q.events = q.events[:0]
	} else {
		q.events = q.events[1:]
	}

	return e, true
}

// Wait returns a channel that signals when events may be available.
// The channel is closed when the queue is closed.
func (q *eventQueue) Wait() <-chan struct{} {
	return q.signal
}

// Len returns the current queue length.
func (q *eventQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.events)
}

// Closed reports whether Close has been called.
func (q *eventQueue) Closed() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.closed
}

// Close signals that no more events will be enqueued and wakes waiters.
func (q *eventQueue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return
	}

	q.closed = true
	close(q.signal)
}
