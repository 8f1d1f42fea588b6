package engine

import "github.com/roach88/cartsync/internal/cart"

// Command is a shopper action routed to the coordinator.
// The set is closed: Add, SetQuantity, Adjust, Remove and Resync.
type Command interface {
	isCommand()
}

// Add merges Quantity into the line for ProductID, creating it if needed.
// A zero Quantity means one. An empty UnitPrice keeps the price of an
// existing line.
type Add struct {
	ProductID cart.ProductID
	Quantity  int
	UnitPrice cart.Price
}

// SetQuantity sets the absolute quantity of an existing line.
// Zero routes to Remove, confirmation included.
type SetQuantity struct {
	ProductID cart.ProductID
	Quantity  int
}

// Adjust changes the quantity of an existing line by Delta (the +/- buttons).
// A result of zero or less routes to Remove.
type Adjust struct {
	ProductID cart.ProductID
	Delta     int
}

// Remove deletes a line after the shopper confirms.
type Remove struct {
	ProductID cart.ProductID
}

// Resync asks the server for its summary and replaces the local totals.
type Resync struct{}

func (Add) isCommand()         {}
func (SetQuantity) isCommand() {}
func (Adjust) isCommand()      {}
func (Remove) isCommand()      {}
func (Resync) isCommand()      {}

// validate rejects what can be rejected without looking at cart state.
func validate(cmd Command) error {
	switch c := cmd.(type) {
	case Add:
		if c.ProductID == "" {
			return ErrEmptyProductID
		}
		if c.Quantity < 0 {
			return cart.NewInvalidQuantity(c.ProductID, c.Quantity)
		}
	case SetQuantity:
		if c.ProductID == "" {
			return ErrEmptyProductID
		}
		if c.Quantity < 0 {
			return cart.NewInvalidQuantity(c.ProductID, c.Quantity)
		}
	case Adjust:
		if c.ProductID == "" {
			return ErrEmptyProductID
		}
	case Remove:
		if c.ProductID == "" {
			return ErrEmptyProductID
		}
	case Resync:
	case nil:
		return ErrUnknownCommand
	}
	return nil
}

// productOf returns the product a command targets, or "" for Resync.
func productOf(cmd Command) cart.ProductID {
	switch c := cmd.(type) {
	case Add:
		return c.ProductID
	case SetQuantity:
		return c.ProductID
	case Adjust:
		return c.ProductID
	case Remove:
		return c.ProductID
	}
	return ""
}
