package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/aretw0/arbor"
	"github.com/aretw0/arbor/internal/cli"
	"github.com/aretw0/arbor/internal/presentation/graph"
)

var graphCmd = &cobra.Command{
	Use:   "graph <file>",
	Short: "Print an assessment as a Mermaid flowchart",
	Long: `Renders the steps, sections and skip rules of an assessment as a Mermaid
flowchart. With --run-id the cached run is overlaid: visited steps and the
current step are highlighted.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		runID, _ := cmd.Flags().GetString("run-id")
		path := args[0]

		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		eng, err := arbor.New(filepath.Dir(path))
		if err != nil {
			return err
		}
		a, _, err := eng.Compile(data)
		if err != nil {
			return err
		}

		var overlay *graph.GraphOverlay
		if runID != "" {
			err := withBackend(func(b *cli.Backend) error {
				res, err := b.Sessions.Load(cmd.Context(), runID)
				if err != nil {
					return fmt.Errorf("error loading run '%s': %w", runID, err)
				}
				overlay = graph.OverlayFromResult(res)
				return nil
			})
			if err != nil {
				return err
			}
		}

		fmt.Fprint(cmd.OutOrStdout(), graph.GenerateMermaid(a, overlay))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(graphCmd)
	graphCmd.Flags().String("run-id", "", "Overlay the state of a cached run")
}
