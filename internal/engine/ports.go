package engine

import (
	"context"

	"github.com/roach88/cartsync/internal/cart"
	"github.com/roach88/cartsync/internal/journal"
)

// RemoteCartService is the server side of the cart.
//
// Mutating calls find their idempotency key with cart.RequestIDFrom(ctx).
// Any returned error is treated as a failed request; error kinds are not
// distinguished and nothing is retried.
type RemoteCartService interface {
	Add(ctx context.Context, id cart.ProductID, quantity int) error
	// SetQuantity is only called with quantity > 0; zero goes through Remove.
	SetQuantity(ctx context.Context, id cart.ProductID, quantity int) error
	Remove(ctx context.Context, id cart.ProductID) error
	FetchSummary(ctx context.Context) (cart.Summary, error)
}

// Confirmer is the gate in front of every removal.
// It runs on the loop goroutine and may block until the shopper answers.
type Confirmer interface {
	ConfirmRemove(ctx context.Context, line cart.LineItem) bool
}

// ConfirmFunc adapts a function to Confirmer.
type ConfirmFunc func(ctx context.Context, line cart.LineItem) bool

// ConfirmRemove implements Confirmer.
func (f ConfirmFunc) ConfirmRemove(ctx context.Context, line cart.LineItem) bool {
	return f(ctx, line)
}

// AlwaysConfirm accepts every removal.
var AlwaysConfirm Confirmer = ConfirmFunc(func(context.Context, cart.LineItem) bool { return true })

// Recorder receives journal entries. *journal.Store implements it.
type Recorder interface {
	Record(ctx context.Context, e journal.Entry) error
}

// Launcher runs a remote call off the loop goroutine.
type Launcher func(fn func())

// GoLauncher runs each call on its own goroutine.
func GoLauncher(fn func()) {
	go fn()
}
