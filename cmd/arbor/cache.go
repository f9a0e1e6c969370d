package main

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aretw0/arbor/internal/cli"
	"github.com/aretw0/arbor/internal/logging"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Manage cached run results",
	Long:  `List, inspect, remove and garbage-collect the results kept in the configured cache.`,
}

var cacheLsCmd = &cobra.Command{
	Use:   "ls",
	Short: "List cached runs",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withBackend(func(b *cli.Backend) error {
			ids, err := b.Sessions.List(cmd.Context())
			if err != nil {
				return fmt.Errorf("error listing results: %w", err)
			}
			out := cmd.OutOrStdout()
			if len(ids) == 0 {
				fmt.Fprintln(out, "No cached results found.")
				return nil
			}
			fmt.Fprintln(out, "Cached runs:")
			for _, id := range ids {
				fmt.Fprintln(out, "- "+id)
			}
			return nil
		})
	},
}

var cacheInspectCmd = &cobra.Command{
	Use:   "inspect <run-id>",
	Short: "Print the result tree of a run as JSON",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withBackend(func(b *cli.Backend) error {
			res, err := b.Sessions.Load(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("error loading run '%s': %w", args[0], err)
			}
			data, err := json.MarshalIndent(res, "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(data))
			return nil
		})
	},
}

var cacheRmCmd = &cobra.Command{
	Use:   "rm <run-id>...",
	Short: "Remove one or more cached runs",
	RunE: func(cmd *cobra.Command, args []string) error {
		all, _ := cmd.Flags().GetBool("all")
		if !all && len(args) == 0 {
			return errors.New("give at least one run id, or --all")
		}
		return withBackend(func(b *cli.Backend) error {
			ids := args
			if all {
				var err error
				if ids, err = b.Sessions.List(cmd.Context()); err != nil {
					return err
				}
			}
			var errs []error
			for _, id := range ids {
				if err := b.Sessions.Delete(cmd.Context(), id); err != nil {
					errs = append(errs, fmt.Errorf("error removing '%s': %w", id, err))
					continue
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Removed run '%s'\n", id)
			}
			return errors.Join(errs...)
		})
	},
}

var cacheGcCmd = &cobra.Command{
	Use:   "gc",
	Short: "Remove expired results",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withBackend(func(b *cli.Backend) error {
			n, err := b.Sessions.ClearExpired(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %d expired results\n", n)
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(cacheCmd)
	cacheCmd.AddCommand(cacheLsCmd, cacheInspectCmd, cacheRmCmd, cacheGcCmd)
	cacheRmCmd.Flags().Bool("all", false, "Remove every cached run")
}

func withBackend(fn func(*cli.Backend) error) error {
	logger, err := cli.NewLogger(cfg)
	if err != nil {
		logger = logging.NewNop()
	}
	b, err := cli.OpenBackend(cfg.Cache, logger)
	if err != nil {
		return err
	}
	defer b.Close()
	return fn(b)
}
