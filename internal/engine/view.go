package engine

import "github.com/roach88/cartsync/internal/cart"

// View is a read-only copy of the cart for renderers.
type View struct {
	// Lines in display order, speculative changes included.
	Lines []cart.LineItem
	// Totals of Lines, or the server's numbers after a resync.
	Totals cart.Totals
	// Pending holds the outstanding latest mutation of each product, by product id.
	Pending []cart.PendingMutation
}

// Line returns the visible line for id.
func (v View) Line(id cart.ProductID) (cart.LineItem, bool) {
	for _, l := range v.Lines {
		if l.ProductID == id {
			return l, true
		}
	}
	return cart.LineItem{}, false
}

// PendingFor returns the outstanding mutation for id, if any.
func (v View) PendingFor(id cart.ProductID) (cart.PendingMutation, bool) {
	for _, p := range v.Pending {
		if p.ProductID == id {
			return p, true
		}
	}
	return cart.PendingMutation{}, false
}
