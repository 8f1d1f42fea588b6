package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/cartsync/internal/cart"
	"github.com/roach88/cartsync/internal/journal"
	"github.com/roach88/cartsync/internal/notify"
)

// CompareOptions holds flags for the compare commands.
type CompareOptions struct {
	*RootOptions
	Database string
}

// CompareResult is the JSON payload of every compare subcommand.
type CompareResult struct {
	Products []string `json:"products"`
	Added    *bool    `json:"added,omitempty"`
	Max      int      `json:"max"`
}

// NewCompareCommand creates the compare command and its subcommands.
func NewCompareCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CompareOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "compare",
		Short: "Manage the compare-products list",
		Long: `Manage the list of products to compare side by side.

Adding a product that is already listed removes it. The list holds at most
compare.max products (3 by default); adding more is refused with a warning.

Examples:
  cartsync compare add A123
  cartsync compare list --format json
  cartsync compare clear`,
	}

	cmd.PersistentFlags().StringVar(&opts.Database, "db", "", "path to the journal database (default from config)")

	cmd.AddCommand(&cobra.Command{
		Use:           "add <product>",
		Short:         "Toggle a product in the compare list",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompareAdd(opts, cart.NewProductID(args[0]), cmd)
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:           "list",
		Short:         "Print the compare list",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompareList(opts, cmd)
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:           "clear",
		Short:         "Empty the compare list",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompareClear(opts, cmd)
		},
	})

	return cmd
}

// compareFullMessage is the warning shown when the list is full.
func compareFullMessage(max int) string {
	return fmt.Sprintf("You can compare up to %d products at a time", max)
}

// toggleCompare toggles id and raises the warning notification when the
// list is full.
func toggleCompare(ctx context.Context, j *journal.Store, center *notify.Center, id cart.ProductID, max int) (bool, error) {
	added, err := j.ToggleCompare(ctx, id, max)
	if errors.Is(err, journal.ErrCompareFull) {
		center.Enqueue(compareFullMessage(max), cart.SeverityWarning)
	}
	return added, err
}

// openJournal resolves the config and opens the journal.
func (o *CompareOptions) openJournal() (*journal.Store, int, error) {
	cfg, err := o.loadConfig()
	if err != nil {
		return nil, 0, err
	}
	path := cfg.Journal.Path
	if o.Database != "" {
		path = o.Database
	}
	j, err := journal.Open(path)
	if err != nil {
		return nil, 0, WrapExitError(ExitCommandError, "failed to open journal", err)
	}
	return j, cfg.Compare.Max, nil
}

func runCompareAdd(opts *CompareOptions, id cart.ProductID, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)
	ctx := context.Background()

	j, max, err := opts.openJournal()
	if err != nil {
		_ = formatter.Error(ErrCodeJournal, err.Error(), nil)
		return err
	}
	defer j.Close()

	center := notify.New(notify.WithObserver(func(n cart.Notification) {
		if opts.Format != "json" {
			renderNotification(cmd.OutOrStdout(), n)
		}
	}))
	defer center.Close()

	added, err := toggleCompare(ctx, j, center, id, max)
	if errors.Is(err, journal.ErrCompareFull) {
		// Text mode already printed the warning notification.
		if opts.Format == "json" {
			_ = formatter.Error(ErrCodeCompareFull, compareFullMessage(max), map[string]string{"product": string(id)})
		}
		return WrapExitError(ExitFailure, "compare list is full", err)
	}
	if err != nil {
		_ = formatter.Error(ErrCodeJournal, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to update compare list", err)
	}

	products, err := j.CompareList(ctx)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read compare list", err)
	}

	if opts.Format == "json" {
		return formatter.Success(CompareResult{Products: productStrings(products), Added: &added, Max: max})
	}
	if added {
		fmt.Fprintf(cmd.OutOrStdout(), "%s added to compare list (%d/%d)\n", id, len(products), max)
	} else {
		fmt.Fprintf(cmd.OutOrStdout(), "%s removed from compare list (%d/%d)\n", id, len(products), max)
	}
	return nil
}

func runCompareList(opts *CompareOptions, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	j, max, err := opts.openJournal()
	if err != nil {
		_ = formatter.Error(ErrCodeJournal, err.Error(), nil)
		return err
	}
	defer j.Close()

	products, err := j.CompareList(context.Background())
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read compare list", err)
	}

	if opts.Format == "json" {
		return formatter.Success(CompareResult{Products: productStrings(products), Max: max})
	}
	w := cmd.OutOrStdout()
	if len(products) == 0 {
		fmt.Fprintln(w, "Compare list is empty")
		return nil
	}
	for i, p := range products {
		fmt.Fprintf(w, "%d. %s\n", i+1, p)
	}
	return nil
}

func runCompareClear(opts *CompareOptions, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	j, max, err := opts.openJournal()
	if err != nil {
		_ = formatter.Error(ErrCodeJournal, err.Error(), nil)
		return err
	}
	defer j.Close()

	if err := j.ClearCompare(context.Background()); err != nil {
		return WrapExitError(ExitCommandError, "failed to clear compare list", err)
	}

	if opts.Format == "json" {
		return formatter.Success(CompareResult{Products: []string{}, Max: max})
	}
	fmt.Fprintln(cmd.OutOrStdout(), "Compare list cleared")
	return nil
}

func productStrings(ids []cart.ProductID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = string(id)
	}
	return out
}
