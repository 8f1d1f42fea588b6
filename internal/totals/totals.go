// Package totals derives cart totals from line items.
//
// Totals are a pure function of the lines passed in. Nothing here is stored,
// so a subtotal can never disagree with the lines it was computed from.
package totals

import (
	"github.com/shopspring/decimal"

	"github.com/roach88/cartsync/internal/cart"
)

// MalformedFunc receives a MALFORMED_NUMERIC error for each line that was
// counted as zero.
type MalformedFunc func(err error)

// Recompute returns the subtotal and item count of lines in a single pass.
//
// A line whose price cannot be parsed contributes zero to the subtotal and is
// reported through onMalformed (which may be nil); its quantity still counts
// toward the badge. The computation itself never fails.
func Recompute(lines []cart.LineItem, onMalformed MalformedFunc) cart.Totals {
	subtotal := decimal.Zero
	count := 0
	for _, line := range lines {
		if line.Quantity > 0 {
			count += line.Quantity
		}
		lineTotal, err := line.LineTotal()
		if err != nil {
			if onMalformed != nil {
				onMalformed(err)
			}
			continue
		}
		subtotal = subtotal.Add(lineTotal)
	}
	return cart.Totals{
		Subtotal:  subtotal,
		ItemCount: count,
		Source:    cart.SourceDerived,
	}
}

// FromSummary converts a server summary into server-sourced totals.
// Negative server values are clamped to zero.
func FromSummary(s cart.Summary) cart.Totals {
	count := s.ItemCount
	if count < 0 {
		count = 0
	}
	subtotal := s.Subtotal
	if subtotal.IsNegative() {
		subtotal = decimal.Zero
	}
	return cart.Totals{
		Subtotal:  subtotal,
		ItemCount: count,
		Source:    cart.SourceServer,
	}
}

// Drift reports how far local totals are from a server summary.
// A zero count delta and zero subtotal delta means the two agree.
func Drift(local cart.Totals, server cart.Summary) (countDelta int, subtotalDelta decimal.Decimal) {
	return server.ItemCount - local.ItemCount, server.Subtotal.Sub(local.Subtotal)
}
