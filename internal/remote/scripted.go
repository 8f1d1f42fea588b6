package remote

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/roach88/cartsync/internal/cart"
)

// Op names a RemoteCartService operation.
type Op string

const (
	OpAdd          Op = "add"
	OpSetQuantity  Op = "set_quantity"
	OpRemove       Op = "remove"
	OpFetchSummary Op = "fetch_summary"
)

// ErrScriptedFailure is the default error of a scripted failure.
var ErrScriptedFailure = errors.New("scripted failure")

// ErrNotInCart is returned when the server has no line for a product.
var ErrNotInCart = errors.New("product not in server cart")

// Outcome is the scripted result of one call.
type Outcome struct {
	// Err fails the call. A failed mutation leaves the server cart unchanged.
	Err error
	// Delay holds the call back; a context that ends first fails it.
	Delay time.Duration
}

// Fail is an Outcome that fails with ErrScriptedFailure.
var Fail = Outcome{Err: ErrScriptedFailure}

// Call records one request the service received.
type Call struct {
	Op        Op
	ProductID cart.ProductID
	Quantity  int
	RequestID string
}

// Scripted is an in-process cart server.
//
// It keeps its own authoritative cart, priced from a catalog, so
// FetchSummary reports what the server believes. Outcomes are scripted per
// (op, product); an empty product matches any. Unscripted calls succeed.
//
// Thread-safety: safe for concurrent use.
type Scripted struct {
	mu       sync.Mutex
	lines    map[cart.ProductID]int
	catalog  map[cart.ProductID]cart.Price
	scripts  map[scriptKey][]Outcome
	calls    []Call
	override *cart.Summary
}

type scriptKey struct {
	op Op
	id cart.ProductID
}

// NewScripted creates an empty server priced from catalog.
func NewScripted(catalog map[cart.ProductID]cart.Price) *Scripted {
	s := &Scripted{
		lines:   make(map[cart.ProductID]int),
		catalog: make(map[cart.ProductID]cart.Price),
		scripts: make(map[scriptKey][]Outcome),
	}
	for id, p := range catalog {
		s.catalog[id] = p
	}
	return s
}

// Seed puts lines into the server cart and the catalog.
func (s *Scripted) Seed(lines []cart.LineItem) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, l := range lines {
		s.lines[l.ProductID] = l.Quantity
		if l.UnitPrice != "" {
			s.catalog[l.ProductID] = l.UnitPrice
		}
	}
}

// Stock puts id in the catalog at price, so FetchSummary can price lines
// added later.
func (s *Scripted) Stock(id cart.ProductID, price cart.Price) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.catalog[id] = price
}

// Script queues outcomes for the next calls of op on id ("" = any product).
func (s *Scripted) Script(op Op, id cart.ProductID, outcomes ...Outcome) {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := scriptKey{op: op, id: id}
	s.scripts[k] = append(s.scripts[k], outcomes...)
}

// OverrideSummary makes FetchSummary return sum instead of the server cart's
// own totals, to model a server that changed behind the client's back.
func (s *Scripted) OverrideSummary(sum cart.Summary) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.override = &sum
}

// Calls returns every call received, in arrival order.
func (s *Scripted) Calls() []Call {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Call, len(s.calls))
	copy(out, s.calls)
	return out
}

// Quantity returns the server's quantity for id (0 if absent).
func (s *Scripted) Quantity(id cart.ProductID) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lines[id]
}

// Add implements engine.RemoteCartService.
func (s *Scripted) Add(ctx context.Context, id cart.ProductID, quantity int) error {
	if err := s.begin(ctx, OpAdd, id, quantity); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lines[id] += quantity
	return nil
}

// SetQuantity implements engine.RemoteCartService.
func (s *Scripted) SetQuantity(ctx context.Context, id cart.ProductID, quantity int) error {
	if err := s.begin(ctx, OpSetQuantity, id, quantity); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.lines[id]; !ok {
		return cart.NewRequestFailed(id, string(OpSetQuantity), ErrNotInCart)
	}
	if quantity <= 0 {
		delete(s.lines, id)
		return nil
	}
	s.lines[id] = quantity
	return nil
}

// Remove implements engine.RemoteCartService.
func (s *Scripted) Remove(ctx context.Context, id cart.ProductID) error {
	if err := s.begin(ctx, OpRemove, id, 0); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.lines[id]; !ok {
		return cart.NewRequestFailed(id, string(OpRemove), ErrNotInCart)
	}
	delete(s.lines, id)
	return nil
}

// FetchSummary implements engine.RemoteCartService.
func (s *Scripted) FetchSummary(ctx context.Context) (cart.Summary, error) {
	if err := s.begin(ctx, OpFetchSummary, "", 0); err != nil {
		return cart.Summary{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.override != nil {
		return *s.override, nil
	}

	sum := cart.Summary{Subtotal: decimal.Zero}
	for id, qty := range s.lines {
		sum.ItemCount += qty
		price, err := s.catalog[id].Decimal()
		if err != nil {
			continue
		}
		sum.Subtotal = sum.Subtotal.Add(price.Mul(decimal.NewFromInt(int64(qty))))
	}
	return sum, nil
}

// begin records the call and plays its scripted outcome.
func (s *Scripted) begin(ctx context.Context, op Op, id cart.ProductID, quantity int) error {
	requestID, _ := cart.RequestIDFrom(ctx)

	s.mu.Lock()
	s.calls = append(s.calls, Call{Op: op, ProductID: id, Quantity: quantity, RequestID: requestID})
	outcome := s.next(op, id)
	s.mu.Unlock()

	if outcome.Delay > 0 {
		timer := time.NewTimer(outcome.Delay)
		defer timer.Stop()
		select {
		case <-timer.C:
		case <-ctx.Done():
			return cart.NewRequestFailed(id, string(op), ctx.Err())
		}
	}
	if err := ctx.Err(); err != nil {
		return cart.NewRequestFailed(id, string(op), err)
	}
	if outcome.Err != nil {
		return cart.NewRequestFailed(id, string(op), fmt.Errorf("%s %s: %w", op, id, outcome.Err))
	}
	return nil
}

// next pops the scripted outcome for (op, id), falling back to (op, any).
// Caller holds mu.
func (s *Scripted) next(op Op, id cart.ProductID) Outcome {
	for _, k := range []scriptKey{{op: op, id: id}, {op: op}} {
		if q := s.scripts[k]; len(q) > 0 {
			s.scripts[k] = q[1:]
			return q[0]
		}
	}
	return Outcome{}
}
