package app

import (
	"github.com/spf13/cobra"
)

// NewDynamosaCommand creates the root command for the dynamosa tool.
func NewDynamosaCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dynamosa",
		Short: "A defect-prediction-guided many-objective test generator.",
		Long:  `dynamosa runs a DynaMOSA/PreMOSA many-objective search for unit tests, prioritizing branches in defect-predicted-buggy methods.`,
		// main prints the one diagnostic line for a returned error.
		SilenceErrors: true,
		SilenceUsage:  true,
	}

	cmd.AddCommand(NewRunCommand())

	return cmd
}
