package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadScenario_ValidFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.yaml")

	content := `
name: test_scenario
description: "Test scenario for validation"
cart:
  - {product: A1, quantity: 2, price: "1.50"}
script:
  - {op: add, fail: true}
steps:
  - add: {product: B2, price: "0.99"}
  - complete: 0
assertions:
  - type: absent
    product: B2
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	scenario, err := LoadScenario(path)
	require.NoError(t, err)

	assert.Equal(t, "test_scenario", scenario.Name)
	assert.Equal(t, "Test scenario for validation", scenario.Description)
	require.Len(t, scenario.Cart, 1)
	assert.Equal(t, "1.50", scenario.Cart[0].Price)
	require.Len(t, scenario.Script, 1)
	assert.True(t, scenario.Script[0].Fail)
	assert.Empty(t, scenario.Script[0].Product)
	require.Len(t, scenario.Steps, 2)
	require.NotNil(t, scenario.Steps[0].Add)
	assert.Equal(t, 0, scenario.Steps[0].Add.Quantity)
	require.NotNil(t, scenario.Steps[1].Complete)
	assert.Equal(t, 0, *scenario.Steps[1].Complete)
	assert.Len(t, scenario.Assertions, 1)
}

func TestLoadScenario_MissingFile(t *testing.T) {
	_, err := LoadScenario(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read scenario file")
}

func TestParseScenario_UnknownField(t *testing.T) {
	content := `
name: typo
description: d
stepz: []
steps:
  - resync: true
assertions:
  - type: calls
    count: 0
`
	_, err := ParseScenario([]byte(content))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse YAML")
}

func TestParseScenario_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{
			name:    "missing name",
			content: "description: d\nsteps: [{resync: true}]\nassertions: [{type: calls, count: 0}]\n",
			wantErr: "name is required",
		},
		{
			name:    "missing description",
			content: "name: n\nsteps: [{resync: true}]\nassertions: [{type: calls, count: 0}]\n",
			wantErr: "description is required",
		},
		{
			name:    "no steps",
			content: "name: n\ndescription: d\nassertions: [{type: calls, count: 0}]\n",
			wantErr: "steps list is required",
		},
		{
			name:    "no assertions",
			content: "name: n\ndescription: d\nsteps: [{resync: true}]\n",
			wantErr: "assertions list is required",
		},
		{
			name:    "two actions in one step",
			content: "name: n\ndescription: d\nsteps: [{resync: true, complete_all: true}]\nassertions: [{type: calls, count: 0}]\n",
			wantErr: "exactly one action is required, got 2",
		},
		{
			name:    "empty step",
			content: "name: n\ndescription: d\nsteps: [{}]\nassertions: [{type: calls, count: 0}]\n",
			wantErr: "exactly one action is required, got 0",
		},
		{
			name:    "step without product",
			content: "name: n\ndescription: d\nsteps: [{remove: {}}]\nassertions: [{type: calls, count: 0}]\n",
			wantErr: "steps[0]: product is required",
		},
		{
			name:    "negative complete",
			content: "name: n\ndescription: d\nsteps: [{complete: -1}]\nassertions: [{type: calls, count: 0}]\n",
			wantErr: "complete must be non-negative",
		},
		{
			name:    "bad advance",
			content: "name: n\ndescription: d\nsteps: [{advance: soon}]\nassertions: [{type: calls, count: 0}]\n",
			wantErr: "invalid advance",
		},
		{
			name:    "unknown script op",
			content: "name: n\ndescription: d\nscript: [{op: checkout}]\nsteps: [{resync: true}]\nassertions: [{type: calls, count: 0}]\n",
			wantErr: `unknown op "checkout"`,
		},
		{
			name:    "seed line without quantity",
			content: "name: n\ndescription: d\ncart: [{product: A1}]\nsteps: [{resync: true}]\nassertions: [{type: calls, count: 0}]\n",
			wantErr: "cart[0]: quantity must be positive",
		},
		{
			name:    "unknown assertion",
			content: "name: n\ndescription: d\nsteps: [{resync: true}]\nassertions: [{type: vibes}]\n",
			wantErr: `unknown assertion type "vibes"`,
		},
		{
			name:    "line without quantity",
			content: "name: n\ndescription: d\nsteps: [{resync: true}]\nassertions: [{type: line, product: A1}]\n",
			wantErr: "positive quantity are required for line",
		},
		{
			name:    "empty totals",
			content: "name: n\ndescription: d\nsteps: [{resync: true}]\nassertions: [{type: totals}]\n",
			wantErr: "item_count, subtotal or source is required",
		},
		{
			name:    "calls without count",
			content: "name: n\ndescription: d\nsteps: [{resync: true}]\nassertions: [{type: calls}]\n",
			wantErr: "non-negative count is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseScenario([]byte(tt.content))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
