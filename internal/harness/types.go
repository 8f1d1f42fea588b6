package harness

import "github.com/roach88/cartsync/internal/cart"

// TraceEvent is one journal entry, without request ids and timestamps so
// traces compare equal across runs.
type TraceEvent struct {
	Seq      int64  `json:"seq"`
	Product  string `json:"product"`
	Sequence int64  `json:"sequence"`
	Kind     string `json:"kind"`
	Outcome  string `json:"outcome"`
	Quantity int    `json:"quantity"`
}

// FinalState is what a renderer would show after the last step.
type FinalState struct {
	Lines         []cart.LineItem     `json:"lines"`
	Totals        cart.Totals         `json:"totals"`
	Notifications []cart.Notification `json:"notifications"`
	Calls         int                 `json:"calls"`
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true if every assertion held.
	Pass bool `json:"pass"`

	// Trace is the journal in seq order.
	Trace []TraceEvent `json:"trace"`

	// Final is the visible state after the last step.
	Final FinalState `json:"final"`

	// Errors contains assertion failures. Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
	}
}

// AddError adds an assertion failure and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}
