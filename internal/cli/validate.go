package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/cartsync/internal/harness"
)

// ValidationIssue is one problem found by validate.
type ValidationIssue struct {
	Source  string `json:"source"` // "config" or a scenario path
	Message string `json:"message"`
}

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid     bool              `json:"valid"`
	Config    *ConfigSummary    `json:"config,omitempty"`
	Scenarios int               `json:"scenarios"`
	Errors    []ValidationIssue `json:"errors,omitempty"`
}

// ConfigSummary is the resolved configuration as printed by validate.
type ConfigSummary struct {
	Remote      string `json:"remote"`
	BaseURL     string `json:"base_url,omitempty"`
	Timeout     string `json:"timeout"`
	TTL         string `json:"notification_ttl"`
	MaxVisible  int    `json:"max_visible"`
	ResyncEvery string `json:"resync_interval"`
	Journal     string `json:"journal"`
	CompareMax  int    `json:"compare_max"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate [scenario.yaml...]",
		Short: "Validate configuration and scenario files",
		Long: `Validate the resolved configuration (defaults, --config file and
CARTSYNC_* environment variables) against the built-in schema, and parse
any scenario files given as arguments without running them.

Examples:
  cartsync validate --config ./cartsync.yaml
  cartsync validate ./scenarios/*.yaml --format json`,
		SilenceUsage:  true, // Don't print usage on errors
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args, cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, scenarioFiles []string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)
	result := ValidationResult{Valid: true}

	cfg, err := opts.loadConfig()
	if err != nil {
		result.Valid = false
		result.Errors = append(result.Errors, ValidationIssue{Source: "config", Message: err.Error()})
	} else {
		result.Config = &ConfigSummary{
			Remote:      cfg.Remote.Kind,
			BaseURL:     cfg.Remote.BaseURL,
			Timeout:     cfg.Remote.Timeout.String(),
			TTL:         cfg.Notifications.TTL.String(),
			MaxVisible:  cfg.Notifications.MaxVisible,
			ResyncEvery: cfg.Resync.Interval.String(),
			Journal:     cfg.Journal.Path,
			CompareMax:  cfg.Compare.Max,
		}
	}

	for _, path := range scenarioFiles {
		formatter.VerboseLog("Validating scenario: %s", path)
		if _, err := harness.LoadScenario(path); err != nil {
			result.Valid = false
			result.Errors = append(result.Errors, ValidationIssue{Source: path, Message: err.Error()})
			continue
		}
		result.Scenarios++
	}

	if !result.Valid {
		return outputValidationErrors(formatter, result)
	}
	return outputValidateSuccess(formatter, result)
}

// outputValidateSuccess outputs successful validation results.
func outputValidateSuccess(formatter *OutputFormatter, result ValidationResult) error {
	if formatter.Format == "json" {
		return formatter.Success(result)
	}

	w := formatter.Writer
	c := result.Config
	fmt.Fprintln(w, "✓ Configuration valid")
	fmt.Fprintf(w, "  remote:        %s %s\n", c.Remote, c.BaseURL)
	fmt.Fprintf(w, "  timeout:       %s\n", c.Timeout)
	fmt.Fprintf(w, "  notifications: ttl %s, at most %d\n", c.TTL, c.MaxVisible)
	fmt.Fprintf(w, "  resync:        %s\n", c.ResyncEvery)
	fmt.Fprintf(w, "  journal:       %s\n", c.Journal)
	fmt.Fprintf(w, "  compare:       at most %d\n", c.CompareMax)
	if result.Scenarios > 0 {
		fmt.Fprintf(w, "✓ %d scenario(s) valid\n", result.Scenarios)
	}
	return nil
}

// outputValidationErrors outputs every issue and returns exit code 1.
func outputValidationErrors(formatter *OutputFormatter, result ValidationResult) error {
	if formatter.Format == "json" {
		_ = formatter.Error("E_VALIDATION", fmt.Sprintf("%d problem(s) found", len(result.Errors)), result.Errors)
	} else {
		w := formatter.Writer
		for _, issue := range result.Errors {
			fmt.Fprintf(w, "✗ %s: %s\n", issue.Source, issue.Message)
		}
	}
	return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d problem(s)", len(result.Errors)))
}
