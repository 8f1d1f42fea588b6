package cart

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/text/unicode/norm"
)

// ProductID is the opaque unique key of a cart line.
type ProductID string

// NewProductID trims and NFC-normalizes a raw product id.
func NewProductID(raw string) ProductID {
	return ProductID(norm.NFC.String(strings.TrimSpace(raw)))
}

// String returns the id as a plain string.
func (p ProductID) String() string {
	return string(p)
}

// DefaultAddQuantity is used when an Add command carries no quantity.
const DefaultAddQuantity = 1

// LineItem is one line of the cart.
//
// LineTotal is deliberately a method: there is no field to write.
type LineItem struct {
	ProductID ProductID
	Quantity  int
	UnitPrice Price
}

// LineTotal returns Quantity × UnitPrice.
// Returns a MALFORMED_NUMERIC error if the price cannot be parsed.
func (l LineItem) LineTotal() (decimal.Decimal, error) {
	price, err := l.UnitPrice.Decimal()
	if err != nil {
		return decimal.Zero, NewMalformedNumeric(l.ProductID, string(l.UnitPrice), err)
	}
	return price.Mul(decimal.NewFromInt(int64(l.Quantity))), nil
}

// Validate rejects negative quantities.
func (l LineItem) Validate() error {
	if l.Quantity < 0 {
		return NewInvalidQuantity(l.ProductID, l.Quantity)
	}
	return nil
}

// TotalsSource records where a Totals value came from.
type TotalsSource string

const (
	// SourceDerived marks totals computed locally from the line store.
	SourceDerived TotalsSource = "derived"
	// SourceServer marks totals copied from a server summary during resync.
	SourceServer TotalsSource = "server"
)

// Totals is the derived view of the cart: subtotal and badge count.
type Totals struct {
	Subtotal  decimal.Decimal
	ItemCount int
	Source    TotalsSource
}

// Equal compares two totals numerically.
func (t Totals) Equal(o Totals) bool {
	return t.ItemCount == o.ItemCount && t.Subtotal.Equal(o.Subtotal) && t.Source == o.Source
}

// Summary is the server-reported cart summary returned by FetchSummary.
type Summary struct {
	ItemCount int             `json:"itemCount"`
	Subtotal  decimal.Decimal `json:"subtotal"`
}

// MutationKind is the kind of change a pending mutation asks the server for.
type MutationKind int

const (
	// MutationAdd merges a quantity into a line, creating it if needed.
	MutationAdd MutationKind = iota + 1
	// MutationSetQuantity sets the absolute quantity of an existing line.
	MutationSetQuantity
	// MutationRemove deletes the line.
	MutationRemove
)

// String returns the lowercase name used in logs and the journal.
func (k MutationKind) String() string {
	switch k {
	case MutationAdd:
		return "add"
	case MutationSetQuantity:
		return "set_quantity"
	case MutationRemove:
		return "remove"
	default:
		return "unknown"
	}
}

// PendingMutation is a request the coordinator has issued and not yet reconciled.
//
// Quantity is the amount sent to the server: the delta for MutationAdd, the
// absolute target for MutationSetQuantity, and 0 for MutationRemove.
type PendingMutation struct {
	ProductID ProductID
	Kind      MutationKind
	Quantity  int
	Sequence  int64
	IssuedAt  time.Time
	RequestID string
}

// Severity classifies a notification.
type Severity string

const (
	SeveritySuccess Severity = "success"
	SeverityError   Severity = "error"
	SeverityInfo    Severity = "info"
	SeverityWarning Severity = "warning"
)

// Valid reports whether s is one of the known severities.
func (s Severity) Valid() bool {
	switch s {
	case SeveritySuccess, SeverityError, SeverityInfo, SeverityWarning:
		return true
	}
	return false
}

// DefaultNotificationTTL is the lifetime of a cart-operation notification.
const DefaultNotificationTTL = 3000 * time.Millisecond

// Notification is a transient message shown to the shopper.
type Notification struct {
	ID        string
	Message   string
	Severity  Severity
	CreatedAt time.Time
	TTL       time.Duration
}

// ExpiresAt returns the instant the notification disappears on its own.
func (n Notification) ExpiresAt() time.Time {
	return n.CreatedAt.Add(n.TTL)
}
