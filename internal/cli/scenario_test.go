package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// harnessScenarios is the scenario set the harness package tests with.
var harnessScenarios = filepath.Join("..", "harness", "testdata", "scenarios")

const failingScenario = `
name: wrong_total
description: Expects a subtotal the cart never reaches
cart:
  - {product: A1, quantity: 1, price: "2.00"}
steps:
  - adjust: {product: A1, delta: 1}
  - complete: 0
assertions:
  - type: totals
    subtotal: "5.00"
`

func TestScenario_HarnessSetPasses(t *testing.T) {
	out, _, err := execute(t, "", "scenario", harnessScenarios)
	require.NoError(t, err, out)

	assert.Contains(t, out, "✓ quantity_plus_confirmed")
	assert.Contains(t, out, "✓ remove_failure_rollback")
	assert.Contains(t, out, "✓ All scenarios passed")
}

func TestScenario_Filter(t *testing.T) {
	out, _, err := execute(t, "", "scenario", harnessScenarios, "--filter", "latest_*", "--format", "json")
	require.NoError(t, err)

	var resp struct {
		Status string     `json:"status"`
		Data   TestResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, 1, resp.Data.Total)
	assert.Equal(t, "latest_wins_reverse", resp.Data.Scenarios[0].Name)
}

func TestScenario_Failure(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "scenarios")
	require.NoError(t, os.MkdirAll(dir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "wrong_total.yaml"), []byte(failingScenario), 0644))

	out, _, err := execute(t, "", "scenario", dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "✗ wrong_total")
	assert.Contains(t, out, "subtotal=5.00")
	assert.Contains(t, out, "Summary: 0 passed, 1 failed, 1 total")
}

func TestScenario_UpdateThenCompare(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, "scenarios")
	require.NoError(t, os.MkdirAll(dir, 0755))

	data, err := os.ReadFile(filepath.Join(harnessScenarios, "resync_overwrites_drift.yaml"))
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "resync_overwrites_drift.yaml"), data, 0644))

	_, _, err = execute(t, "", "scenario", dir, "--update")
	require.NoError(t, err)

	goldenPath := filepath.Join(root, "golden", "resync_overwrites_drift.golden")
	written, err := os.ReadFile(goldenPath)
	require.NoError(t, err)
	expected, err := os.ReadFile(filepath.Join("..", "harness", "testdata", "golden", "resync_overwrites_drift.golden"))
	require.NoError(t, err)
	assert.Equal(t, string(expected), string(written))

	_, _, err = execute(t, "", "scenario", dir)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(goldenPath, []byte(`{"tampered":true}`), 0644))
	out, _, err := execute(t, "", "scenario", dir)
	require.Error(t, err)
	assert.Contains(t, out, "trace does not match golden file")
}

func TestScenario_LoadError(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.yaml"), []byte("name: [unclosed"), 0644))

	out, _, err := execute(t, "", "scenario", dir)
	require.Error(t, err)
	assert.Contains(t, out, "✗ broken.yaml")
	assert.Contains(t, out, "failed to load scenario")
}

func TestScenario_MissingDir(t *testing.T) {
	_, _, err := execute(t, "", "scenario", filepath.Join(t.TempDir(), "nope"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestScenario_Empty(t *testing.T) {
	out, _, err := execute(t, "", "scenario", t.TempDir())
	require.NoError(t, err)
	assert.Contains(t, out, "No scenarios found.")
}
