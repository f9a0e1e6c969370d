package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/aretw0/arbor/internal/config"
)

// cfg is loaded before any subcommand runs.
var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "arbor",
	Short: "arbor runs branching research assessments",
	Long: `arbor walks participants through assessment trees with skip rules,
sections and typed answers, and caches partial results so runs can resume.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		path, _ := cmd.Flags().GetString("config")
		loaded, err := config.LoadConfig(path)
		if err != nil {
			return err
		}
		applyFlags(cmd, loaded)
		if err := loaded.Validate(); err != nil {
			return err
		}
		cfg = loaded
		return nil
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	// Persistent flags override the config file and ARBOR_* variables.
	flags := rootCmd.PersistentFlags()
	flags.String("config", "arbor.yaml", "Path to the configuration file")
	flags.String("dir", "", "Directory containing assessment definitions")
	flags.String("loader", "", "Definition loader: file or loam")
	flags.String("log-level", "", "Log level: debug, info, warn or error")
	flags.String("cache-backend", "", "Result cache: memory, file, redis or sqlite")
	flags.String("cache-path", "", "Directory (file) or database (sqlite) of the result cache")
	flags.String("cache-address", "", "Redis address of the result cache")
}

func applyFlags(cmd *cobra.Command, c *config.Config) {
	set := func(name string, dst *string) {
		if f := cmd.Flags().Lookup(name); f != nil && f.Changed {
			*dst = f.Value.String()
		}
	}
	set("dir", &c.Definitions)
	set("loader", &c.Loader)
	set("log-level", &c.LogLevel)
	set("cache-backend", &c.Cache.Backend)
	set("cache-path", &c.Cache.Path)
	set("cache-address", &c.Cache.Address)
}
