// Package cart defines the data model shared by every cartsync component.
//
// A cart is a set of LineItems keyed by ProductID. Derived values (line
// totals, subtotal, item count) are never stored on the line: they are
// computed from Quantity and UnitPrice by the totals package, so they cannot
// drift from the values they are derived from.
//
// UnitPrice is kept as the raw text read from the display source ("$3.50").
// It is parsed into a decimal only when a total is computed; text that does
// not parse is reported as MALFORMED_NUMERIC and contributes zero.
//
// Product ids are NFC-normalized at construction so that visually identical
// keys coming from different input sources address the same line.
package cart
