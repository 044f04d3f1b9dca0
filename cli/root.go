// Package cli wires the mimic command line.
package cli

import (
	"github.com/spf13/cobra"
)

// NewRootCommand creates the root command for the mimic CLI.
func NewRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mimic",
		Short: "mimic - file-backed mock REST data server",
		Long: "A development fixture that serves named document collections over a\n" +
			"REST-shaped API with filtering, sorting, pagination, relationship\n" +
			"embedding, and cascading deletes, persisting every mutation to a\n" +
			"local snapshot.",
		SilenceUsage: true,
	}

	cmd.AddCommand(NewServeCommand())

	return cmd
}

// Execute runs the CLI and returns its terminal error, if any.
func Execute() error {
	return NewRootCommand().Execute()
}
