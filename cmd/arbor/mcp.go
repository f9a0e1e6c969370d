package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/aretw0/arbor"
	"github.com/aretw0/arbor/internal/cli"
	"github.com/aretw0/arbor/pkg/adapters/mcp"
	"github.com/aretw0/arbor/pkg/observability"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Run the Model Context Protocol (MCP) server",
	Long: `Starts arbor as an MCP server so that AI agents can drive assessment
runs through tools.

Supported Transports:
- stdio (default): Uses Standard Input/Output. Ideal for local process integration.
- sse: Uses Server-Sent Events over HTTP. Ideal for remote agents or debuggers.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		transport, _ := cmd.Flags().GetString("transport")
		addr, _ := cmd.Flags().GetString("addr")
		baseURL, _ := cmd.Flags().GetString("base-url")

		// Logs go to stderr so they never corrupt JSON-RPC on stdout.
		logger, err := cli.NewLogger(cfg)
		if err != nil {
			return err
		}
		engine, err := cli.NewEngine(cfg, cfg.Definitions, logger, observability.LoggingHooks(logger))
		if err != nil {
			return err
		}
		backend, err := cli.OpenBackend(cfg.Cache, logger)
		if err != nil {
			return err
		}
		defer backend.Close()

		svc := arbor.NewService(engine, backend.Sessions, arbor.WithResultTTL(cfg.Cache.TTL))
		srv := mcp.NewServer(svc, mcp.WithLogger(logger))

		switch transport {
		case "stdio":
			logger.Info("starting arbor MCP server (stdio)")
			return srv.ServeStdio()
		case "sse":
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			if baseURL == "" {
				baseURL = "http://localhost" + addr
			}
			return srv.ServeSSE(ctx, addr, baseURL)
		default:
			return fmt.Errorf("unknown transport %q, supported: stdio, sse", transport)
		}
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
	mcpCmd.Flags().String("transport", "stdio", "Transport protocol to use: 'stdio' or 'sse'")
	mcpCmd.Flags().String("addr", ":8081", "Address to listen on (only for SSE)")
	mcpCmd.Flags().String("base-url", "", "Public base URL of the SSE server")
}
