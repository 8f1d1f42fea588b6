package harness

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/cartsync/internal/cart"
)

func sampleResult() *Result {
	r := NewResult()
	r.Trace = []TraceEvent{
		{Seq: 1, Product: "A1", Sequence: 1, Kind: "set_quantity", Outcome: "issued", Quantity: 3},
		{Seq: 2, Product: "B2", Sequence: 1, Kind: "remove", Outcome: "issued"},
		{Seq: 3, Product: "A1", Sequence: 1, Kind: "set_quantity", Outcome: "confirmed", Quantity: 3},
	}
	r.Final = FinalState{
		Lines: []cart.LineItem{{ProductID: "A1", Quantity: 3, UnitPrice: "1.10"}},
		Totals: cart.Totals{
			ItemCount: 3,
			Subtotal:  decimal.RequireFromString("3.30"),
			Source:    cart.SourceDerived,
		},
		Notifications: []cart.Notification{{Message: "cart updated", Severity: cart.SeveritySuccess}},
		Calls:         2,
	}
	return r
}

func TestEvaluateAssertions_Pass(t *testing.T) {
	assertions := []Assertion{
		{Type: AssertLine, Product: "A1", Quantity: 3, Price: "1.10"},
		{Type: AssertAbsent, Product: "B2"},
		{Type: AssertTotals, ItemCount: intPtr(3), Subtotal: "3.3", Source: "derived"},
		{Type: AssertNotifications, Messages: []string{"cart updated"}},
		{Type: AssertOutcomes, Outcomes: []string{"issued", "issued", "confirmed"}},
		{Type: AssertOutcomes, Product: "A1", Outcomes: []string{"issued", "confirmed"}},
		{Type: AssertCalls, Count: intPtr(2)},
	}

	assert.Empty(t, EvaluateAssertions(sampleResult(), assertions))
}

func TestEvaluateAssertions_Failures(t *testing.T) {
	tests := []struct {
		name      string
		assertion Assertion
		wantErr   string
	}{
		{"wrong quantity", Assertion{Type: AssertLine, Product: "A1", Quantity: 2}, "A1 x3 @1.10"},
		{"wrong price", Assertion{Type: AssertLine, Product: "A1", Quantity: 3, Price: "1.00"}, "Expected: A1 x3 @1.00"},
		{"missing line", Assertion{Type: AssertLine, Product: "Z9", Quantity: 1}, "line not visible"},
		{"present line", Assertion{Type: AssertAbsent, Product: "A1"}, "A1 not visible"},
		{"wrong count", Assertion{Type: AssertTotals, ItemCount: intPtr(4)}, "item_count=4"},
		{"wrong subtotal", Assertion{Type: AssertTotals, Subtotal: "3.31"}, "subtotal=3.31"},
		{"wrong source", Assertion{Type: AssertTotals, Source: "server"}, "source=server"},
		{"bad subtotal", Assertion{Type: AssertTotals, Subtotal: "abc"}, "invalid subtotal"},
		{"wrong notifications", Assertion{Type: AssertNotifications}, `["cart updated"]`},
		{"wrong outcomes", Assertion{Type: AssertOutcomes, Product: "B2", Outcomes: []string{"confirmed"}}, "[issued]"},
		{"wrong calls", Assertion{Type: AssertCalls, Count: intPtr(0)}, "2 calls"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs := EvaluateAssertions(sampleResult(), []Assertion{tt.assertion})
			require.Len(t, errs, 1)
			assert.Contains(t, errs[0], "assertions[0]")
			assert.Contains(t, errs[0], tt.wantErr)
		})
	}
}

func TestAssertionError_IncludesTrace(t *testing.T) {
	err := &AssertionError{
		Type:     AssertOutcomes,
		Expected: "[confirmed]",
		Actual:   "[issued]",
		Trace:    sampleResult().Trace,
	}

	msg := err.Error()
	assert.Contains(t, msg, "Assertion failed: outcomes")
	assert.Contains(t, msg, "Full trace:")
	assert.Contains(t, msg, "[2] B2 remove #1 issued")
}
