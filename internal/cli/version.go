package cli

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"
)

// Version is set at build time with -ldflags "-X .../internal/cli.Version=v1.2.3".
var Version = "dev"

// VersionInfo is the JSON payload of the version command.
type VersionInfo struct {
	Version string `json:"version"`
	Go      string `json:"go"`
}

// NewVersionCommand creates the version command.
func NewVersionCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "version",
		Short:         "Print the cartsync version",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			info := VersionInfo{Version: Version, Go: runtime.Version()}
			if rootOpts.Format == "json" {
				return rootOpts.formatter(cmd).Success(info)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "cartsync %s (%s)\n", info.Version, info.Go)
			return nil
		},
	}
}
