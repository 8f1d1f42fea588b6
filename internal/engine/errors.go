package engine

import (
	"errors"
	"fmt"

	"github.com/roach88/cartsync/internal/cart"
)

var (
	// ErrStopped is returned by Dispatch after Stop.
	ErrStopped = errors.New("coordinator stopped")

	// ErrEmptyProductID is returned for a command without a product id.
	ErrEmptyProductID = errors.New("empty product id")

	// ErrUnknownCommand is returned for a nil command.
	ErrUnknownCommand = errors.New("unknown command")

	// ErrLineNotFound means a command targets a line that is not in the cart.
	ErrLineNotFound = errors.New("line not in cart")
)

func lineNotFound(id cart.ProductID) error {
	return fmt.Errorf("%w: %s", ErrLineNotFound, id)
}

// IsLineNotFound reports whether err is (or wraps) ErrLineNotFound.
func IsLineNotFound(err error) bool {
	return errors.Is(err, ErrLineNotFound)
}
