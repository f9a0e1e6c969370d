package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/aretw0/arbor"
	"github.com/aretw0/arbor/internal/cli"
	httpadapter "github.com/aretw0/arbor/pkg/adapters/http"
	"github.com/aretw0/arbor/pkg/observability"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	Long: `Serves the assessments in the definitions directory over a JSON API.
Runs are written through to the configured result cache after every change,
so several instances sharing a redis or sqlite cache can serve the same runs.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		addr := cfg.HTTPAddr
		if cmd.Flags().Changed("addr") {
			addr, _ = cmd.Flags().GetString("addr")
		}
		gcInterval, _ := cmd.Flags().GetDuration("gc-interval")

		logger, err := cli.NewLogger(cfg)
		if err != nil {
			return err
		}

		reg := prometheus.NewRegistry()
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		metrics, err := observability.NewMetrics(reg)
		if err != nil {
			return err
		}

		engine, err := cli.NewEngine(cfg, cfg.Definitions, logger, metrics.Hooks(), observability.LoggingHooks(logger))
		if err != nil {
			return err
		}
		backend, err := cli.OpenBackend(cfg.Cache, logger)
		if err != nil {
			return err
		}
		defer backend.Close()

		svc := arbor.NewService(engine, backend.Sessions, arbor.WithResultTTL(cfg.Cache.TTL))
		handler, err := httpadapter.NewHandler(svc, httpadapter.WithLogger(logger), httpadapter.WithMetrics(reg))
		if err != nil {
			return err
		}

		srv := &http.Server{
			Addr:              addr,
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		if gcInterval > 0 {
			go collectExpired(ctx, backend, gcInterval, logger)
		}

		// Channel to listen for errors coming from the listener.
		serverErrors := make(chan error, 1)
		go func() {
			logger.Info("arbor server listening", "addr", srv.Addr, "definitions", cfg.Definitions, "cache", cfg.Cache.Backend)
			serverErrors <- srv.ListenAndServe()
		}()

		select {
		case err := <-serverErrors:
			if errors.Is(err, http.ErrServerClosed) {
				return nil
			}
			return fmt.Errorf("server error: %w", err)

		case <-ctx.Done():
			logger.Info("shutting down")

			// Give outstanding requests a deadline for completion.
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				_ = srv.Close()
				return fmt.Errorf("graceful shutdown did not complete: %w", err)
			}
			logger.Info("arbor server stopped gracefully")
			return nil
		}
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().String("addr", ":8080", "Address to listen on")
	serveCmd.Flags().Duration("gc-interval", time.Hour, "How often expired results are removed (0 disables)")
}
