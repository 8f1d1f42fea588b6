package cart

import (
	"errors"
	"strings"

	"github.com/shopspring/decimal"
)

// Price is a unit price as read from the authoritative display source.
// The text may carry a currency symbol and thousands separators.
type Price string

var errNegativePrice = errors.New("price is negative")

// PriceOf renders a decimal as a Price with two decimal places.
func PriceOf(d decimal.Decimal) Price {
	return Price(d.StringFixed(2))
}

// Decimal parses the price. Empty, non-numeric, and negative prices fail.
func (p Price) Decimal() (decimal.Decimal, error) {
	s := strings.TrimSpace(string(p))
	s = strings.TrimPrefix(s, "$")
	s = strings.ReplaceAll(s, ",", "")
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return decimal.Zero, err
	}
	if d.IsNegative() {
		return decimal.Zero, errNegativePrice
	}
	return d, nil
}

// IsZero reports whether no price text was supplied.
func (p Price) IsZero() bool {
	return strings.TrimSpace(string(p)) == ""
}
