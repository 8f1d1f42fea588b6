package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/cartsync/internal/cart"
	"github.com/roach88/cartsync/internal/journal"
)

// TraceOptions holds flags for the trace command.
type TraceOptions struct {
	*RootOptions
	Database string
	Product  string // optional - filter to one product
	Outcome  string // optional - filter to one outcome
}

// TraceEvent is one journal entry in the timeline.
type TraceEvent struct {
	Seq        int64  `json:"seq"`
	Product    string `json:"product,omitempty"`
	Sequence   int64  `json:"sequence"`
	Kind       string `json:"kind"`
	Outcome    string `json:"outcome"`
	Quantity   int    `json:"quantity"`
	RequestID  string `json:"request_id,omitempty"`
	Detail     string `json:"detail,omitempty"`
	RecordedAt string `json:"recorded_at"`
}

// TraceResult holds the complete trace output.
type TraceResult struct {
	Timeline []TraceEvent `json:"timeline"`
	Stats    TraceStats   `json:"stats"`
}

// TraceStats summarizes the timeline.
type TraceStats struct {
	TotalEvents int            `json:"total_events"`
	Outcomes    map[string]int `json:"outcomes"`
	// Unsettled counts issued mutations with no confirmed, rolled_back or
	// stale entry: requests that were in flight when the session ended.
	Unsettled int `json:"unsettled"`
}

// NewTraceCommand creates the trace command.
func NewTraceCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TraceOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "trace",
		Short: "Show the mutation journal",
		Long: `Show the mutation journal recorded by cartsync run.

Every issued mutation is followed by exactly one of confirmed, rolled_back
or stale for the same product and sequence. Declined removals, rejected
commands and resyncs are recorded too.

The output includes:
- Timeline: journal entries in the order they were recorded
- Stats: counts per outcome and mutations that never settled

Examples:
  cartsync trace --db ./cartsync.db
  cartsync trace --db ./cartsync.db --product A123
  cartsync trace --db ./cartsync.db --outcome rolled_back --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTrace(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to the journal database (default from config)")
	cmd.Flags().StringVar(&opts.Product, "product", "", "filter to one product")
	cmd.Flags().StringVar(&opts.Outcome, "outcome", "", "filter to one outcome (issued, confirmed, rolled_back, stale, ...)")

	return cmd
}

func runTrace(opts *TraceOptions, cmd *cobra.Command) error {
	ctx := context.Background()
	formatter := opts.formatter(cmd)

	cfg, err := opts.loadConfig()
	if err != nil {
		_ = formatter.Error(ErrCodeConfig, err.Error(), nil)
		return err
	}
	path := cfg.Journal.Path
	if opts.Database != "" {
		path = opts.Database
	}

	j, err := journal.Open(path)
	if err != nil {
		_ = formatter.Error(ErrCodeJournal, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to open journal", err)
	}
	defer j.Close()

	var entries []journal.Entry
	if opts.Product != "" {
		entries, err = j.ReadProduct(ctx, cart.NewProductID(opts.Product))
	} else {
		entries, err = j.ReadAll(ctx)
	}
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read journal", err)
	}

	unsettled := countUnsettled(entries)
	timeline := buildTimeline(entries, opts.Outcome)

	result := TraceResult{
		Timeline: timeline,
		Stats: TraceStats{
			TotalEvents: len(timeline),
			Outcomes:    countOutcomes(timeline),
			Unsettled:   unsettled,
		},
	}

	if opts.Format == "json" {
		return outputTraceJSON(cmd, result)
	}
	return outputTraceText(cmd.OutOrStdout(), result, opts.Verbose)
}

// buildTimeline converts journal entries, keeping only outcomeFilter when set.
func buildTimeline(entries []journal.Entry, outcomeFilter string) []TraceEvent {
	timeline := []TraceEvent{}
	for _, e := range entries {
		if outcomeFilter != "" && string(e.Outcome) != outcomeFilter {
			continue
		}
		timeline = append(timeline, TraceEvent{
			Seq:        e.Seq,
			Product:    string(e.ProductID),
			Sequence:   e.Sequence,
			Kind:       e.Kind,
			Outcome:    string(e.Outcome),
			Quantity:   e.Quantity,
			RequestID:  e.RequestID,
			Detail:     e.Detail,
			RecordedAt: e.RecordedAt.UTC().Format(time.RFC3339Nano),
		})
	}
	return timeline
}

func countOutcomes(timeline []TraceEvent) map[string]int {
	counts := make(map[string]int)
	for _, ev := range timeline {
		counts[ev.Outcome]++
	}
	return counts
}

// countUnsettled counts issued (product, sequence) pairs that never got a
// terminal entry.
func countUnsettled(entries []journal.Entry) int {
	type key struct {
		product  cart.ProductID
		sequence int64
	}
	open := make(map[key]bool)
	for _, e := range entries {
		k := key{e.ProductID, e.Sequence}
		switch e.Outcome {
		case journal.OutcomeIssued:
			open[k] = true
		case journal.OutcomeConfirmed, journal.OutcomeRolledBack, journal.OutcomeStale:
			delete(open, k)
		}
	}
	return len(open)
}

// outputTraceJSON outputs the trace result as JSON.
func outputTraceJSON(cmd *cobra.Command, result TraceResult) error {
	response := CLIResponse{
		Status: "ok",
		Data:   result,
	}

	encoder := json.NewEncoder(cmd.OutOrStdout())
	encoder.SetIndent("", "  ")
	return encoder.Encode(response)
}

// outputTraceText outputs the trace result as text.
func outputTraceText(w io.Writer, result TraceResult, verbose bool) error {
	fmt.Fprintln(w, "=== Timeline ===")
	if len(result.Timeline) == 0 {
		fmt.Fprintln(w, "  (no events)")
	}
	for _, ev := range result.Timeline {
		formatTimelineEvent(w, ev, verbose)
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "=== Stats ===")
	fmt.Fprintf(w, "  Total Events: %d\n", result.Stats.TotalEvents)

	// Sort keys for deterministic output
	outcomes := make([]string, 0, len(result.Stats.Outcomes))
	for o := range result.Stats.Outcomes {
		outcomes = append(outcomes, o)
	}
	sort.Strings(outcomes)
	for _, o := range outcomes {
		fmt.Fprintf(w, "  %-13s %d\n", o+":", result.Stats.Outcomes[o])
	}
	fmt.Fprintf(w, "  Unsettled:    %d\n", result.Stats.Unsettled)

	return nil
}

// formatTimelineEvent formats a single timeline event for text output.
func formatTimelineEvent(w io.Writer, ev TraceEvent, verbose bool) {
	product := ev.Product
	if product == "" {
		product = "(cart)"
	}
	fmt.Fprintf(w, "  [%d] %-12s %-12s #%d %s", ev.Seq, product, ev.Kind, ev.Sequence, ev.Outcome)
	if ev.Quantity != 0 {
		fmt.Fprintf(w, " qty=%d", ev.Quantity)
	}
	fmt.Fprintln(w)

	if !verbose {
		return
	}
	if ev.RequestID != "" {
		fmt.Fprintf(w, "       Request: %s\n", truncateID(ev.RequestID))
	}
	if ev.Detail != "" {
		fmt.Fprintf(w, "       Detail: %s\n", ev.Detail)
	}
	fmt.Fprintf(w, "       At: %s\n", ev.RecordedAt)
}

// truncateID truncates a long ID for display.
func truncateID(id string) string {
	if len(id) <= 16 {
		return id
	}
	return id[:8] + "..." + id[len(id)-8:]
}
