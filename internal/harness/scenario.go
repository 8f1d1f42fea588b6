package harness

import (
	"bytes"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Scenario defines a cart replay with assertions.
type Scenario struct {
	// Name identifies the scenario (also the golden file name).
	Name string `yaml:"name"`

	// Description explains what the scenario demonstrates.
	Description string `yaml:"description"`

	// Cart is the confirmed cart before the first step.
	Cart []SeedLine `yaml:"cart,omitempty"`

	// Script queues server outcomes, consumed in call order.
	Script []ScriptedCall `yaml:"script,omitempty"`

	// DeclineRemovals makes the shopper answer "no" to every removal prompt.
	DeclineRemovals bool `yaml:"decline_removals,omitempty"`

	// Steps run in order.
	Steps []Step `yaml:"steps"`

	// Assertions are checked after the last step.
	Assertions []Assertion `yaml:"assertions"`
}

// SeedLine is a line the server has already confirmed.
type SeedLine struct {
	Product  string `yaml:"product"`
	Quantity int    `yaml:"quantity"`
	Price    string `yaml:"price"`
}

// ScriptedCall scripts one server answer.
type ScriptedCall struct {
	// Op is add, set_quantity, remove or fetch_summary.
	Op string `yaml:"op"`
	// Product restricts the outcome to one product; empty matches any.
	Product string `yaml:"product,omitempty"`
	// Fail makes the call fail.
	Fail bool `yaml:"fail,omitempty"`
}

// Step is one scenario step. Exactly one field is set.
type Step struct {
	Add    *AddStep    `yaml:"add,omitempty"`
	Set    *SetStep    `yaml:"set,omitempty"`
	Adjust *AdjustStep `yaml:"adjust,omitempty"`
	Remove *RemoveStep `yaml:"remove,omitempty"`
	Resync bool        `yaml:"resync,omitempty"`

	// Complete runs the n-th launched remote call (0-based, launch order).
	Complete *int `yaml:"complete,omitempty"`
	// CompleteAll runs every outstanding remote call in launch order.
	CompleteAll bool `yaml:"complete_all,omitempty"`

	// Advance moves the notification clock (e.g. "3000ms").
	Advance string `yaml:"advance,omitempty"`

	// ServerSummary overrides what FetchSummary reports from now on.
	ServerSummary *SummaryStep `yaml:"server_summary,omitempty"`
}

// AddStep adds Quantity (default 1) of Product.
type AddStep struct {
	Product  string `yaml:"product"`
	Quantity int    `yaml:"quantity,omitempty"`
	Price    string `yaml:"price,omitempty"`
}

// SetStep sets the quantity of Product.
type SetStep struct {
	Product  string `yaml:"product"`
	Quantity int    `yaml:"quantity"`
}

// AdjustStep presses the +/- button Delta times.
type AdjustStep struct {
	Product string `yaml:"product"`
	Delta   int    `yaml:"delta"`
}

// RemoveStep removes Product.
type RemoveStep struct {
	Product string `yaml:"product"`
}

// SummaryStep is a server-reported summary.
type SummaryStep struct {
	ItemCount int    `yaml:"item_count"`
	Subtotal  string `yaml:"subtotal"`
}

// Assertion validates the final state or the trace.
type Assertion struct {
	// Type specifies the assertion type:
	// - "line": Product is visible with Quantity (and Price, if given)
	// - "absent": Product is not visible
	// - "totals": ItemCount / Subtotal / Source of the totals
	// - "notifications": active notification messages, oldest first
	// - "outcomes": journal outcomes in order (optionally for one Product)
	// - "calls": number of requests the server received
	Type string `yaml:"type"`

	Product  string `yaml:"product,omitempty"`
	Quantity int    `yaml:"quantity,omitempty"`
	Price    string `yaml:"price,omitempty"`

	ItemCount *int   `yaml:"item_count,omitempty"`
	Subtotal  string `yaml:"subtotal,omitempty"`
	Source    string `yaml:"source,omitempty"`

	Messages []string `yaml:"messages,omitempty"`
	Outcomes []string `yaml:"outcomes,omitempty"`
	Count    *int     `yaml:"count,omitempty"`
}

// Assertion type constants.
const (
	AssertLine          = "line"
	AssertAbsent        = "absent"
	AssertTotals        = "totals"
	AssertNotifications = "notifications"
	AssertOutcomes      = "outcomes"
	AssertCalls         = "calls"
)

var scriptOps = map[string]bool{
	"add":           true,
	"set_quantity":  true,
	"remove":        true,
	"fetch_summary": true,
}

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true) // Reject unknown fields
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}
	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}

	for i, line := range s.Cart {
		if line.Product == "" {
			return fmt.Errorf("cart[%d]: product is required", i)
		}
		if line.Quantity <= 0 {
			return fmt.Errorf("cart[%d]: quantity must be positive", i)
		}
	}

	for i, call := range s.Script {
		if !scriptOps[call.Op] {
			return fmt.Errorf("script[%d]: unknown op %q", i, call.Op)
		}
	}

	for i, step := range s.Steps {
		if err := validateStep(i, &step); err != nil {
			return err
		}
	}

	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion); err != nil {
			return err
		}
	}

	return nil
}

func validateStep(index int, st *Step) error {
	set := 0
	for _, present := range []bool{
		st.Add != nil,
		st.Set != nil,
		st.Adjust != nil,
		st.Remove != nil,
		st.Resync,
		st.Complete != nil,
		st.CompleteAll,
		st.Advance != "",
		st.ServerSummary != nil,
	} {
		if present {
			set++
		}
	}
	if set != 1 {
		return fmt.Errorf("steps[%d]: exactly one action is required, got %d", index, set)
	}

	switch {
	case st.Add != nil && st.Add.Product == "",
		st.Set != nil && st.Set.Product == "",
		st.Adjust != nil && st.Adjust.Product == "",
		st.Remove != nil && st.Remove.Product == "":
		return fmt.Errorf("steps[%d]: product is required", index)
	case st.Complete != nil && *st.Complete < 0:
		return fmt.Errorf("steps[%d]: complete must be non-negative", index)
	}

	if st.Advance != "" {
		if _, err := time.ParseDuration(st.Advance); err != nil {
			return fmt.Errorf("steps[%d]: invalid advance: %w", index, err)
		}
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertLine:
		if a.Product == "" || a.Quantity <= 0 {
			return fmt.Errorf("assertions[%d]: product and a positive quantity are required for line", index)
		}
	case AssertAbsent:
		if a.Product == "" {
			return fmt.Errorf("assertions[%d]: product is required for absent", index)
		}
	case AssertTotals:
		if a.ItemCount == nil && a.Subtotal == "" && a.Source == "" {
			return fmt.Errorf("assertions[%d]: item_count, subtotal or source is required for totals", index)
		}
	case AssertNotifications:
		// An empty list asserts there are none.
	case AssertOutcomes:
		if len(a.Outcomes) == 0 {
			return fmt.Errorf("assertions[%d]: outcomes list is required for outcomes", index)
		}
	case AssertCalls:
		if a.Count == nil || *a.Count < 0 {
			return fmt.Errorf("assertions[%d]: a non-negative count is required for calls", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}

	return nil
}
