// Package cli wires together the docweavectl root Cobra command and its
// subcommands (spec.md §6's operator-facing surface over persistence).
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/docweave/docweave/internal/cli/commands"
)

// NewRootCommand constructs the docweavectl root command, wiring the
// create/append/inspect/replay subcommands over a document directory.
func NewRootCommand() *cobra.Command {
	version := os.Getenv("DOCWEAVECTL_VERSION")
	if version == "" {
		version = "0.0.0-dev"
	}

	cmd := &cobra.Command{
		Use:           "docweavectl",
		Short:         "docweavectl – inspect and drive a persisted docweave document",
		Long:          "docweavectl creates, appends to, and recovers docweave document directories backed by an append-only event log and periodic snapshots.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().BoolP("verbose", "v", false, "enable verbose logging")

	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the version number of docweavectl",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "docweavectl version %s\n", version)
		},
	})

	// Subcommands kept in lexicographic order by .Use for deterministic
	// help output.
	cmd.AddCommand(commands.NewAppendCommand())
	cmd.AddCommand(commands.NewCreateCommand())
	cmd.AddCommand(commands.NewInspectCommand())
	cmd.AddCommand(commands.NewReplayCommand())

	return cmd
}
