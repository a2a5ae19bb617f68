package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/verbatim-cli/verbatim/pkg/buildinfo"
)

// NewVersionCommand creates the version command.
func NewVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show the verbatim version",
		RunE: func(cmd *cobra.Command, args []string) error {
			info := buildinfo.Get()
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "verbatim %s\n", buildinfo.String())
			fmt.Fprintf(out, "go: %s\n", info.GoVersion)
			return nil
		},
	}
}
