package harness

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/shopspring/decimal"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string       // Assertion type for categorization
	Expected string       // Human-readable expected outcome
	Actual   string       // Human-readable actual outcome
	Trace    []TraceEvent // Full trace for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Trace) > 0 {
		fmt.Fprintf(&buf, "\nFull trace:\n")
		for _, ev := range e.Trace {
			fmt.Fprintf(&buf, "  [%d] %s %s #%d %s\n", ev.Seq, ev.Product, ev.Kind, ev.Sequence, ev.Outcome)
		}
	}

	return buf.String()
}

// EvaluateAssertions checks every assertion and returns the failure messages.
func EvaluateAssertions(result *Result, assertions []Assertion) []string {
	var errs []string
	for i, a := range assertions {
		if err := evaluate(result, a); err != nil {
			errs = append(errs, fmt.Sprintf("assertions[%d]: %s", i, err.Error()))
		}
	}
	return errs
}

func evaluate(result *Result, a Assertion) error {
	switch a.Type {
	case AssertLine:
		return assertLine(result, a)
	case AssertAbsent:
		return assertAbsent(result, a)
	case AssertTotals:
		return assertTotals(result, a)
	case AssertNotifications:
		return assertNotifications(result, a)
	case AssertOutcomes:
		return assertOutcomes(result, a)
	case AssertCalls:
		if result.Final.Calls != *a.Count {
			return &AssertionError{
				Type:     AssertCalls,
				Expected: fmt.Sprintf("%d calls", *a.Count),
				Actual:   fmt.Sprintf("%d calls", result.Final.Calls),
			}
		}
		return nil
	}
	return fmt.Errorf("unknown assertion type %q", a.Type)
}

func assertLine(result *Result, a Assertion) error {
	for _, l := range result.Final.Lines {
		if string(l.ProductID) != a.Product {
			continue
		}
		if l.Quantity != a.Quantity || (a.Price != "" && string(l.UnitPrice) != a.Price) {
			return &AssertionError{
				Type:     AssertLine,
				Expected: fmt.Sprintf("%s x%d @%s", a.Product, a.Quantity, a.Price),
				Actual:   fmt.Sprintf("%s x%d @%s", l.ProductID, l.Quantity, l.UnitPrice),
				Trace:    result.Trace,
			}
		}
		return nil
	}
	return &AssertionError{
		Type:     AssertLine,
		Expected: fmt.Sprintf("%s x%d visible", a.Product, a.Quantity),
		Actual:   "line not visible",
		Trace:    result.Trace,
	}
}

func assertAbsent(result *Result, a Assertion) error {
	for _, l := range result.Final.Lines {
		if string(l.ProductID) == a.Product {
			return &AssertionError{
				Type:     AssertAbsent,
				Expected: fmt.Sprintf("%s not visible", a.Product),
				Actual:   fmt.Sprintf("%s x%d visible", l.ProductID, l.Quantity),
				Trace:    result.Trace,
			}
		}
	}
	return nil
}

func assertTotals(result *Result, a Assertion) error {
	t := result.Final.Totals
	actual := fmt.Sprintf("item_count=%d subtotal=%s source=%s", t.ItemCount, t.Subtotal.StringFixed(2), t.Source)

	fail := func(expected string) error {
		return &AssertionError{Type: AssertTotals, Expected: expected, Actual: actual, Trace: result.Trace}
	}

	if a.ItemCount != nil && *a.ItemCount != t.ItemCount {
		return fail(fmt.Sprintf("item_count=%d", *a.ItemCount))
	}
	if a.Subtotal != "" {
		want, err := decimal.NewFromString(a.Subtotal)
		if err != nil {
			return fmt.Errorf("totals: invalid subtotal %q: %w", a.Subtotal, err)
		}
		if !want.Equal(t.Subtotal) {
			return fail("subtotal=" + a.Subtotal)
		}
	}
	if a.Source != "" && a.Source != string(t.Source) {
		return fail("source=" + a.Source)
	}
	return nil
}

func assertNotifications(result *Result, a Assertion) error {
	got := make([]string, 0, len(result.Final.Notifications))
	for _, n := range result.Final.Notifications {
		got = append(got, n.Message)
	}
	want := a.Messages
	if want == nil {
		want = []string{}
	}
	if !reflect.DeepEqual(got, want) {
		return &AssertionError{
			Type:     AssertNotifications,
			Expected: fmt.Sprintf("%q", want),
			Actual:   fmt.Sprintf("%q", got),
		}
	}
	return nil
}

// assertOutcomes compares journal outcomes in order, for one product when
// Product is set.
func assertOutcomes(result *Result, a Assertion) error {
	got := []string{}
	for _, ev := range result.Trace {
		if a.Product != "" && ev.Product != a.Product {
			continue
		}
		got = append(got, ev.Outcome)
	}
	if !reflect.DeepEqual(got, a.Outcomes) {
		return &AssertionError{
			Type:     AssertOutcomes,
			Expected: fmt.Sprintf("%v", a.Outcomes),
			Actual:   fmt.Sprintf("%v", got),
			Trace:    result.Trace,
		}
	}
	return nil
}
