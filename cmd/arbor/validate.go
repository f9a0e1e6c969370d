package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/aretw0/arbor"
)

var validateCmd = &cobra.Command{
	Use:   "validate <file>...",
	Short: "Check assessment definitions for consistency",
	Long: `Decodes each definition, checks it against the assessment schema and
validates the tree: duplicate identifiers, dangling skip targets, cyclic
skips and nested assessments. Warnings are printed but do not fail.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		strict, _ := cmd.Flags().GetBool("strict")
		out := cmd.OutOrStdout()

		failed := 0
		for _, path := range args {
			if err := validateFile(cmd, path, strict); err != nil {
				fmt.Fprintf(out, "✗ %s\n%v\n", path, err)
				failed++
				continue
			}
			fmt.Fprintf(out, "✓ %s\n", path)
		}
		if failed > 0 {
			return fmt.Errorf("%d of %d definitions are invalid", failed, len(args))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
	validateCmd.Flags().Bool("strict", false, "Treat warnings as errors")
}

func validateFile(cmd *cobra.Command, path string, strict bool) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	var opts []arbor.Option
	if strict {
		opts = append(opts, arbor.WithStrictValidation())
	}
	eng, err := arbor.New(filepath.Dir(path), opts...)
	if err != nil {
		return err
	}

	a, warnings, err := eng.Compile(data)
	for _, w := range warnings {
		fmt.Fprintf(cmd.OutOrStdout(), "  %v\n", w)
	}
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "  %s: %d top-level steps\n", a.Identifier, len(a.Children))
	return nil
}
