package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/roach88/cartsync/internal/cart"
	"github.com/roach88/cartsync/internal/engine"
)

// Exit codes for CLI commands.
const (
	ExitSuccess      = 0 // Successful execution
	ExitFailure      = 1 // Scenario or validation failure
	ExitCommandError = 2 // Command error (invalid paths, database not found, bad config)
)

// Error codes used in JSON error responses.
const (
	ErrCodeConfig       = "E_CONFIG"
	ErrCodeJournal      = "E_JOURNAL"
	ErrCodeTestFailed   = "E_TEST_FAILED"
	ErrCodeCompareFull  = "E_COMPARE_FULL"
	ErrCodeInvalidInput = "E_INVALID_INPUT"
)

// ExitError represents an error with a specific exit code.
// Use this to return errors with meaningful exit codes from CLI commands.
type ExitError struct {
	Code    int    // Exit code (use ExitFailure or ExitCommandError)
	Message string // Error message
	Err     error  // Underlying error (optional)
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// NewExitError creates a new ExitError with the given code and message.
func NewExitError(code int, message string) *ExitError {
	return &ExitError{Code: code, Message: message}
}

// WrapExitError wraps an existing error with an exit code.
func WrapExitError(code int, message string, err error) *ExitError {
	return &ExitError{Code: code, Message: message, Err: err}
}

// GetExitCode extracts the exit code from an error.
// Returns ExitFailure (1) if the error is not an ExitError.
func GetExitCode(err error) int {
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitFailure
}

// OutputFormatter handles JSON vs text output for CLI commands.
type OutputFormatter struct {
	Format    string
	Writer    io.Writer
	ErrWriter io.Writer // Separate writer for verbose/diagnostic output (defaults to Writer)
	Verbose   bool
}

// CLIResponse is the standard JSON response format for CLI output.
type CLIResponse struct {
	Status string      `json:"status"`          // "ok" or "error"
	Data   interface{} `json:"data,omitempty"`  // success payload
	Error  *CLIError   `json:"error,omitempty"` // error details
}

// CLIError is the error structure for CLI responses.
type CLIError struct {
	Code    string      `json:"code"`              // "E_CONFIG", "E_JOURNAL", etc.
	Message string      `json:"message"`           // human-readable message
	Details interface{} `json:"details,omitempty"` // additional context
}

// Success outputs a successful result in the configured format.
func (f *OutputFormatter) Success(data interface{}) error {
	if f.Format == "json" {
		return json.NewEncoder(f.Writer).Encode(CLIResponse{
			Status: "ok",
			Data:   data,
		})
	}

	// Human-readable text output
	fmt.Fprintln(f.Writer, data)
	return nil
}

// Error outputs an error in the configured format.
func (f *OutputFormatter) Error(code, message string, details interface{}) error {
	if f.Format == "json" {
		return json.NewEncoder(f.Writer).Encode(CLIResponse{
			Status: "error",
			Error: &CLIError{
				Code:    code,
				Message: message,
				Details: details,
			},
		})
	}

	// Human-readable error
	fmt.Fprintf(f.Writer, "Error [%s]: %s\n", code, message)
	if f.Verbose && details != nil {
		fmt.Fprintf(f.Writer, "Details: %v\n", details)
	}
	return nil
}

// VerboseLog outputs a message only if verbose mode is enabled.
// Uses ErrWriter if set, otherwise falls back to Writer.
// When format is JSON, verbose logs go to ErrWriter to avoid corrupting JSON output.
func (f *OutputFormatter) VerboseLog(format string, args ...interface{}) {
	if !f.Verbose {
		return
	}
	w := f.ErrWriter
	if w == nil {
		w = f.Writer
	}
	fmt.Fprintf(w, format+"\n", args...)
}

// GetErrWriter returns the appropriate writer for diagnostic output.
// Returns ErrWriter if set, otherwise Writer.
func (f *OutputFormatter) GetErrWriter() io.Writer {
	if f.ErrWriter != nil {
		return f.ErrWriter
	}
	return f.Writer
}

// LineOutput is one cart line as printed by the CLI.
type LineOutput struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
	UnitPrice string `json:"unit_price"`
	LineTotal string `json:"line_total"`
	Pending   bool   `json:"pending,omitempty"`
}

// CartOutput is the printable form of an engine.View.
type CartOutput struct {
	Lines     []LineOutput `json:"lines"`
	ItemCount int          `json:"item_count"`
	Subtotal  string       `json:"subtotal"`
	Source    string       `json:"source"`
	Pending   int          `json:"pending"`
}

// cartOutput converts a view for printing. Unparseable prices show as "?".
func cartOutput(v engine.View) CartOutput {
	out := CartOutput{
		Lines:     make([]LineOutput, 0, len(v.Lines)),
		ItemCount: v.Totals.ItemCount,
		Subtotal:  v.Totals.Subtotal.StringFixed(2),
		Source:    string(v.Totals.Source),
		Pending:   len(v.Pending),
	}
	for _, l := range v.Lines {
		total := "?"
		if lt, err := l.LineTotal(); err == nil {
			total = lt.StringFixed(2)
		}
		_, pending := v.PendingFor(l.ProductID)
		out.Lines = append(out.Lines, LineOutput{
			ProductID: string(l.ProductID),
			Quantity:  l.Quantity,
			UnitPrice: string(l.UnitPrice),
			LineTotal: total,
			Pending:   pending,
		})
	}
	return out
}

// renderCart writes the text form of a view. Lines awaiting the server
// are marked with "*".
func renderCart(w io.Writer, v engine.View) {
	out := cartOutput(v)

	var buf strings.Builder
	if len(out.Lines) == 0 {
		buf.WriteString("Cart is empty\n")
	}
	for _, l := range out.Lines {
		mark := ""
		if l.Pending {
			mark = " *"
		}
		fmt.Fprintf(&buf, "  %-12s x%-4d @%-8s %10s%s\n", l.ProductID, l.Quantity, l.UnitPrice, l.LineTotal, mark)
	}
	fmt.Fprintf(&buf, "Items: %d  Subtotal: %s", out.ItemCount, out.Subtotal)
	if out.Source == string(cart.SourceServer) {
		buf.WriteString(" (from server)")
	}
	buf.WriteString("\n")

	fmt.Fprint(w, buf.String())
}

// renderNotification writes one notification as a single line.
func renderNotification(w io.Writer, n cart.Notification) {
	fmt.Fprintf(w, "[%s] %s\n", n.Severity, n.Message)
}
