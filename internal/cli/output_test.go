package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/cartsync/internal/cart"
	"github.com/roach88/cartsync/internal/engine"
)

func TestOutputFormatter_JSONSuccess(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{
		Format: "json",
		Writer: buf,
	}

	data := map[string]string{"result": "success"}
	err := formatter.Success(data)
	require.NoError(t, err)

	var resp CLIResponse
	err = json.Unmarshal(buf.Bytes(), &resp)
	require.NoError(t, err)
	assert.Equal(t, "ok", resp.Status)
	assert.NotNil(t, resp.Data)
}

func TestOutputFormatter_JSONError(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{
		Format: "json",
		Writer: buf,
	}

	err := formatter.Error("E_JOURNAL", "journal unavailable", nil)
	require.NoError(t, err)

	var resp CLIResponse
	err = json.Unmarshal(buf.Bytes(), &resp)
	require.NoError(t, err)
	assert.Equal(t, "error", resp.Status)
	assert.NotNil(t, resp.Error)
	assert.Equal(t, "E_JOURNAL", resp.Error.Code)
	assert.Equal(t, "journal unavailable", resp.Error.Message)
}

func TestOutputFormatter_JSONErrorWithDetails(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{
		Format: "json",
		Writer: buf,
	}

	details := map[string]string{"file": "cartsync.yaml", "line": "42"}
	err := formatter.Error("E_CONFIG", "bad config", details)
	require.NoError(t, err)

	var resp CLIResponse
	err = json.Unmarshal(buf.Bytes(), &resp)
	require.NoError(t, err)
	assert.Equal(t, "error", resp.Status)
	assert.NotNil(t, resp.Error)
	assert.NotNil(t, resp.Error.Details)
}

func TestOutputFormatter_TextSuccess(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{
		Format: "text",
		Writer: buf,
	}

	err := formatter.Success("Configuration valid")
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "Configuration valid")
}

func TestOutputFormatter_TextError(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{
		Format:  "text",
		Writer:  buf,
		Verbose: false,
	}

	err := formatter.Error("E_JOURNAL", "journal unavailable", nil)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "Error [E_JOURNAL]")
	assert.Contains(t, buf.String(), "journal unavailable")
}

func TestOutputFormatter_TextErrorVerbose(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{
		Format:  "text",
		Writer:  buf,
		Verbose: true,
	}

	details := map[string]string{"file": "cartsync.yaml"}
	err := formatter.Error("E_JOURNAL", "journal unavailable", details)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "Error [E_JOURNAL]")
	assert.Contains(t, buf.String(), "Details:")
}

func TestOutputFormatter_VerboseLog(t *testing.T) {
	tests := []struct {
		name    string
		verbose bool
		wantLog bool
	}{
		{"verbose_enabled", true, true},
		{"verbose_disabled", false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := &bytes.Buffer{}
			formatter := &OutputFormatter{
				Format:  "text",
				Writer:  buf,
				Verbose: tt.verbose,
			}

			formatter.VerboseLog("Processing %s", "cartsync.yaml")

			if tt.wantLog {
				assert.Contains(t, buf.String(), "Processing cartsync.yaml")
			} else {
				assert.Empty(t, buf.String())
			}
		})
	}
}

func TestCLIResponse_JSON(t *testing.T) {
	resp := CLIResponse{
		Status: "ok",
		Data:   map[string]int{"count": 42},
	}

	data, err := json.Marshal(resp)
	require.NoError(t, err)

	var decoded CLIResponse
	err = json.Unmarshal(data, &decoded)
	require.NoError(t, err)
	assert.Equal(t, "ok", decoded.Status)
}

func TestCLIError_JSON(t *testing.T) {
	cliErr := CLIError{
		Code:    "E_VALIDATION",
		Message: "validation failed",
		Details: []string{"journal.path: empty"},
	}

	data, err := json.Marshal(cliErr)
	require.NoError(t, err)

	var decoded CLIError
	err = json.Unmarshal(data, &decoded)
	require.NoError(t, err)
	assert.Equal(t, "E_VALIDATION", decoded.Code)
	assert.Equal(t, "validation failed", decoded.Message)
}

func TestExitError(t *testing.T) {
	inner := errors.New("disk full")
	err := WrapExitError(ExitCommandError, "failed to open journal", inner)

	assert.Equal(t, "failed to open journal: disk full", err.Error())
	assert.ErrorIs(t, err, inner)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Equal(t, ExitFailure, GetExitCode(errors.New("plain")))
	assert.Equal(t, "nope", NewExitError(ExitFailure, "nope").Error())
}

func sampleView() engine.View {
	return engine.View{
		Lines: []cart.LineItem{
			{ProductID: "A123", Quantity: 3, UnitPrice: "3.50"},
			{ProductID: "B777", Quantity: 1, UnitPrice: "n/a"},
		},
		Totals: cart.Totals{
			ItemCount: 4,
			Subtotal:  decimal.RequireFromString("10.5"),
			Source:    cart.SourceDerived,
		},
		Pending: []cart.PendingMutation{{ProductID: "A123", Kind: cart.MutationSetQuantity, Quantity: 3, Sequence: 2}},
	}
}

func TestCartOutput(t *testing.T) {
	out := cartOutput(sampleView())

	assert.Equal(t, 4, out.ItemCount)
	assert.Equal(t, "10.50", out.Subtotal)
	assert.Equal(t, 1, out.Pending)
	require.Len(t, out.Lines, 2)
	assert.Equal(t, LineOutput{ProductID: "A123", Quantity: 3, UnitPrice: "3.50", LineTotal: "10.50", Pending: true}, out.Lines[0])
	assert.Equal(t, "?", out.Lines[1].LineTotal)
	assert.False(t, out.Lines[1].Pending)
}

func TestRenderCart(t *testing.T) {
	buf := &bytes.Buffer{}
	renderCart(buf, sampleView())

	text := buf.String()
	assert.Contains(t, text, "A123")
	assert.Contains(t, text, "10.50 *")
	assert.Contains(t, text, "Items: 4  Subtotal: 10.50\n")
	assert.NotContains(t, text, "from server")

	v := sampleView()
	v.Lines = nil
	v.Totals = cart.Totals{ItemCount: 2, Subtotal: decimal.RequireFromString("4"), Source: cart.SourceServer}
	buf.Reset()
	renderCart(buf, v)
	assert.Equal(t, "Cart is empty\nItems: 2  Subtotal: 4.00 (from server)\n", buf.String())
}

func TestRenderNotification(t *testing.T) {
	buf := &bytes.Buffer{}
	renderNotification(buf, cart.Notification{Message: "failed to remove", Severity: cart.SeverityError})
	assert.Equal(t, "[error] failed to remove\n", buf.String())
}
