package main

import (
	"github.com/spf13/cobra"

	"github.com/aretw0/arbor/internal/cli"
)

var runCmd = &cobra.Command{
	Use:   "run <file>",
	Short: "Run an assessment interactively",
	Long: `Walks through the assessment in <file> on the terminal. Press enter to
continue, type an answer to answer, 'back' to go back, 'decline' to opt out
and 'exit' to save and quit. The result is written to the configured cache;
pass --run-id to resume a saved run.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		runID, _ := cmd.Flags().GetString("run-id")
		return cli.ExecuteFromStdio(cmd.Context(), cfg, args[0], runID)
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().String("run-id", "", "Run to resume (a new id is generated when empty)")
}
