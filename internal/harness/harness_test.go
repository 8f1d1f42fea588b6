package harness

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intPtr(n int) *int { return &n }

func TestRun_AddConfirmed(t *testing.T) {
	scenario := &Scenario{
		Name:        "add_confirmed",
		Description: "Adding a new product shows it at once and confirms it",
		Steps: []Step{
			{Add: &AddStep{Product: "A1", Quantity: 2, Price: "1.25"}},
			{Complete: intPtr(0)},
		},
		Assertions: []Assertion{
			{Type: AssertLine, Product: "A1", Quantity: 2, Price: "1.25"},
			{Type: AssertTotals, ItemCount: intPtr(2), Subtotal: "2.50", Source: "derived"},
			{Type: AssertNotifications, Messages: []string{"item added"}},
			{Type: AssertOutcomes, Outcomes: []string{"issued", "confirmed"}},
			{Type: AssertCalls, Count: intPtr(1)},
		},
	}

	result, err := Run(scenario)
	require.NoError(t, err)
	require.NotNil(t, result)

	assert.True(t, result.Pass, "errors: %v", result.Errors)
	assert.Empty(t, result.Errors)
	require.Len(t, result.Trace, 2)
	assert.Equal(t, "add", result.Trace[0].Kind)
	assert.Equal(t, int64(1), result.Trace[0].Sequence)
}

func TestRun_OptimisticBeforeCompletion(t *testing.T) {
	scenario := &Scenario{
		Name:        "optimistic",
		Description: "The line is visible while the request is in flight",
		Cart:        []SeedLine{{Product: "A1", Quantity: 1, Price: "2.00"}},
		Steps: []Step{
			{Set: &SetStep{Product: "A1", Quantity: 4}},
		},
		Assertions: []Assertion{
			{Type: AssertLine, Product: "A1", Quantity: 4},
			{Type: AssertTotals, Subtotal: "8.00"},
			{Type: AssertNotifications},
			{Type: AssertOutcomes, Outcomes: []string{"issued"}},
		},
	}

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
}

func TestRun_FailedAssertionReported(t *testing.T) {
	scenario := &Scenario{
		Name:        "wrong_expectation",
		Description: "A wrong expectation fails the result, not the run",
		Cart:        []SeedLine{{Product: "A1", Quantity: 1, Price: "2.00"}},
		Steps: []Step{
			{Remove: &RemoveStep{Product: "A1"}},
		},
		Assertions: []Assertion{
			{Type: AssertLine, Product: "A1", Quantity: 1},
			{Type: AssertCalls, Count: intPtr(7)},
		},
	}

	result, err := Run(scenario)
	require.NoError(t, err)

	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 2)
	assert.Contains(t, result.Errors[0], "line not visible")
	assert.Contains(t, result.Errors[1], "7 calls")
}

func TestRun_CompleteUnlaunchedCall(t *testing.T) {
	scenario := &Scenario{
		Name:        "bad_complete",
		Description: "Completing a call that was never launched is a harness error",
		Steps:       []Step{{Complete: intPtr(0)}},
		Assertions:  []Assertion{{Type: AssertCalls, Count: intPtr(0)}},
	}

	_, err := Run(scenario)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "only 0 calls launched")
}

func TestRun_CompleteTwice(t *testing.T) {
	scenario := &Scenario{
		Name:        "double_complete",
		Description: "A call can only be completed once",
		Cart:        []SeedLine{{Product: "A1", Quantity: 1, Price: "1.00"}},
		Steps: []Step{
			{Adjust: &AdjustStep{Product: "A1", Delta: 1}},
			{Complete: intPtr(0)},
			{Complete: intPtr(0)},
		},
		Assertions: []Assertion{{Type: AssertCalls, Count: intPtr(1)}},
	}

	_, err := Run(scenario)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "steps[2]")
}

func TestRun_CompleteAll(t *testing.T) {
	scenario := &Scenario{
		Name:        "complete_all",
		Description: "Every outstanding call settles in launch order",
		Cart: []SeedLine{
			{Product: "A1", Quantity: 1, Price: "1.00"},
			{Product: "B2", Quantity: 1, Price: "3.00"},
		},
		Script: []ScriptedCall{{Op: "set_quantity", Product: "B2", Fail: true}},
		Steps: []Step{
			{Adjust: &AdjustStep{Product: "A1", Delta: 2}},
			{Adjust: &AdjustStep{Product: "B2", Delta: 1}},
			{CompleteAll: true},
		},
		Assertions: []Assertion{
			{Type: AssertLine, Product: "A1", Quantity: 3},
			{Type: AssertLine, Product: "B2", Quantity: 1},
			{Type: AssertTotals, ItemCount: intPtr(4), Subtotal: "6.00"},
			{Type: AssertNotifications, Messages: []string{"cart updated", "failed to update"}},
			{Type: AssertOutcomes, Product: "B2", Outcomes: []string{"issued", "rolled_back"}},
		},
	}

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
}

func TestRun_Deterministic(t *testing.T) {
	scenario, err := LoadScenario(filepath.Join("testdata", "scenarios", "latest_wins_reverse.yaml"))
	require.NoError(t, err)

	first, err := Run(scenario)
	require.NoError(t, err)
	second, err := Run(scenario)
	require.NoError(t, err)

	a, err := MarshalSnapshot(scenario.Name, first)
	require.NoError(t, err)
	b, err := MarshalSnapshot(scenario.Name, second)
	require.NoError(t, err)
	assert.Equal(t, string(a), string(b))
}

func TestScenarios(t *testing.T) {
	paths, err := filepath.Glob(filepath.Join("testdata", "scenarios", "*.yaml"))
	require.NoError(t, err)
	require.NotEmpty(t, paths)

	for _, path := range paths {
		t.Run(filepath.Base(path), func(t *testing.T) {
			scenario, err := LoadScenario(path)
			require.NoError(t, err)

			result, err := Run(scenario)
			require.NoError(t, err)
			assert.True(t, result.Pass, "errors: %v", result.Errors)
		})
	}
}
