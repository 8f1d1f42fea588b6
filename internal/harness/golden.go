package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/cartsync/internal/cart"
)

// TraceSnapshot captures the trace and final state of a scenario run.
// All fields use canonical JSON serialization for deterministic comparison.
type TraceSnapshot struct {
	ScenarioName string
	Trace        []TraceEvent
	Final        FinalState
}

// toCanonicalMap converts a TraceSnapshot to a map[string]any for canonical
// JSON serialization. Notification ids and timestamps are left out.
func (s *TraceSnapshot) toCanonicalMap() map[string]any {
	trace := make([]any, len(s.Trace))
	for i, ev := range s.Trace {
		trace[i] = map[string]any{
			"seq":      ev.Seq,
			"product":  ev.Product,
			"sequence": ev.Sequence,
			"kind":     ev.Kind,
			"outcome":  ev.Outcome,
			"quantity": ev.Quantity,
		}
	}

	lines := make([]any, len(s.Final.Lines))
	for i, l := range s.Final.Lines {
		lines[i] = l
	}

	notifications := make([]any, len(s.Final.Notifications))
	for i, n := range s.Final.Notifications {
		notifications[i] = map[string]any{
			"message":  n.Message,
			"severity": n.Severity,
		}
	}

	return map[string]any{
		"scenario_name": s.ScenarioName,
		"trace":         trace,
		"final": map[string]any{
			"lines":         lines,
			"notifications": notifications,
			"totals": map[string]any{
				"item_count": s.Final.Totals.ItemCount,
				"source":     s.Final.Totals.Source,
				"subtotal":   s.Final.Totals.Subtotal.StringFixed(2),
			},
			"calls": s.Final.Calls,
		},
	}
}

// MarshalSnapshot returns the canonical JSON of a scenario run.
func MarshalSnapshot(name string, result *Result) ([]byte, error) {
	snapshot := TraceSnapshot{ScenarioName: name, Trace: result.Trace, Final: result.Final}
	return cart.MarshalCanonical(snapshot.toCanonicalMap())
}

// RunWithGolden executes a scenario and compares its snapshot against
// testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns error if scenario execution fails.
// Test failure (via goldie) occurs if the snapshot doesn't match.
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return nil, err
	}

	snapshotJSON, err := MarshalSnapshot(scenario.Name, result)
	if err != nil {
		return nil, err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenario.Name, snapshotJSON)

	return result, nil
}
