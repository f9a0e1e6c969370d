package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/aretw0/arbor"
	"github.com/aretw0/arbor/internal/config"
	"github.com/aretw0/arbor/internal/presentation/tui"
	"github.com/aretw0/arbor/pkg/observability"
)

// RunOptions contains all the configuration for the run command.
type RunOptions struct {
	Config *config.Config
	// File is the path of the definition to run.
	File  string
	RunID string
	Plain bool
	In    io.Reader
	Out   io.Writer
}

// Execute runs the definition in opts.File interactively. The result is
// written to the configured cache so the run can be resumed with its id.
func Execute(ctx context.Context, opts RunOptions) error {
	logger, err := NewLogger(opts.Config)
	if err != nil {
		return err
	}

	dir, name := filepath.Split(opts.File)
	name = strings.TrimSuffix(name, filepath.Ext(name))
	if dir == "" {
		dir = "."
	}

	engine, err := NewEngine(opts.Config, dir, logger, observability.LoggingHooks(logger))
	if err != nil {
		return err
	}
	backend, err := OpenBackend(opts.Config.Cache, logger)
	if err != nil {
		return err
	}
	defer backend.Close()

	svc := arbor.NewService(engine, backend.Sessions, arbor.WithResultTTL(opts.Config.Cache.TTL))

	if !opts.Plain {
		tui.PrintBanner(opts.Out, arbor.Version)
	}

	sigCtx := NewSignalContext(ctx)
	defer sigCtx.Cancel()

	_, err = RunSession(sigCtx, svc, SessionOptions{
		Assessment: name,
		RunID:      opts.RunID,
		Plain:      opts.Plain,
		In:         opts.In,
		Out:        opts.Out,
		Logger:     logger,
	})
	if sig := sigCtx.Signal(); sig != nil {
		logger.Info("run interrupted by signal", "signal", sig.String())
	}
	if err != nil {
		return fmt.Errorf("run %s: %w", name, err)
	}
	return nil
}

// ExecuteFromStdio is Execute on the process streams, with plain output
// when stdout is not a terminal.
func ExecuteFromStdio(ctx context.Context, cfg *config.Config, file, runID string) error {
	return Execute(ctx, RunOptions{
		Config: cfg,
		File:   file,
		RunID:  runID,
		Plain:  !IsTerminal(os.Stdout),
		In:     os.Stdin,
		Out:    os.Stdout,
	})
}
