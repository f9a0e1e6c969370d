package cli

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/aretw0/arbor"
	"github.com/aretw0/arbor/internal/adapters/file"
	"github.com/aretw0/arbor/internal/config"
	"github.com/aretw0/arbor/internal/logging"
	"github.com/aretw0/arbor/pkg/adapters/loam"
	"github.com/aretw0/arbor/pkg/adapters/memory"
	redisadapter "github.com/aretw0/arbor/pkg/adapters/redis"
	"github.com/aretw0/arbor/pkg/adapters/sqlite"
	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/persistence"
	"github.com/aretw0/arbor/pkg/persistence/middleware"
	"github.com/aretw0/arbor/pkg/ports"
	"github.com/aretw0/arbor/pkg/session"
)

// LockPrefix prefixes the redis keys used for run locks.
const LockPrefix = "arbor:lock:"

// NewLogger builds the application logger from configuration.
// It writes to Stderr so that Stdout stays free for prompts and JSON-RPC.
func NewLogger(cfg *config.Config) (*slog.Logger, error) {
	level, err := logging.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	return logging.NewWithWriter(os.Stderr, level, cfg.LogFormat), nil
}

// Backend is the result cache selected by configuration.
type Backend struct {
	Sessions *session.Manager
	closers  []io.Closer
}

// Close releases the connections held by the backend.
func (b *Backend) Close() error {
	var errs []error
	for _, c := range b.closers {
		errs = append(errs, c.Close())
	}
	return errors.Join(errs...)
}

// OpenBackend builds the entry store named by cfg, wraps it with the
// configured middleware and returns a session manager over it.
func OpenBackend(cfg config.CacheConfig, logger *slog.Logger) (*Backend, error) {
	b := &Backend{}
	var sessionOpts []session.Option

	var store ports.EntryStore
	switch cfg.Backend {
	case config.BackendMemory:
		store = memory.NewStore()
	case config.BackendFile:
		store = file.New(cfg.Path)
	case config.BackendSQLite:
		s, err := sqlite.Open(cfg.Path)
		if err != nil {
			return nil, err
		}
		b.closers = append(b.closers, s)
		store = s
	case config.BackendRedis:
		s := redisadapter.New(cfg.Address, cfg.Password, cfg.DB)
		b.closers = append(b.closers, s)
		sessionOpts = append(sessionOpts, session.WithLocker(redisadapter.NewLocker(s.Client(), LockPrefix)))
		store = s
	default:
		return nil, fmt.Errorf("unknown cache backend %q", cfg.Backend)
	}

	key, err := cfg.Key()
	if err != nil {
		_ = b.Close()
		return nil, err
	}
	if key != nil {
		enc, err := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: key})
		if err != nil {
			_ = b.Close()
			return nil, err
		}
		store = middleware.Chain(store, enc)
	}

	var cache ports.ResultCache = persistence.NewCache(store, persistence.WithLogger(logger))
	if len(cfg.PIIIdentifiers) > 0 {
		pii, err := middleware.NewPIIMiddleware(cfg.PIIIdentifiers)
		if err != nil {
			_ = b.Close()
			return nil, err
		}
		cache = pii(cache)
	}

	sessionOpts = append(sessionOpts, session.WithLogger(logger))
	b.Sessions = session.NewManager(cache, sessionOpts...)
	logger.Debug("result cache ready", "backend", cfg.Backend, "encrypted", key != nil)
	return b, nil
}

// NewLoader returns the definition loader for dir.
func NewLoader(kind, dir string) (ports.DefinitionLoader, error) {
	switch kind {
	case config.LoaderLoam:
		return loam.Open(dir)
	case config.LoaderFile, "":
		return file.NewLoader(dir), nil
	default:
		return nil, fmt.Errorf("unknown loader %q", kind)
	}
}

// NewEngine initializes an engine over the definitions in dir with the
// standard CLI conventions: configured logger plus logging hooks.
func NewEngine(cfg *config.Config, dir string, logger *slog.Logger, hooks ...domain.LifecycleHooks) (*arbor.Engine, error) {
	loader, err := NewLoader(cfg.Loader, dir)
	if err != nil {
		return nil, err
	}
	opts := []arbor.Option{
		arbor.WithLoader(loader),
		arbor.WithLogger(logger),
	}
	for _, h := range hooks {
		opts = append(opts, arbor.WithLifecycleHooks(h))
	}
	engine, err := arbor.New(dir, opts...)
	if err != nil {
		return nil, fmt.Errorf("error initializing engine: %w", err)
	}
	return engine, nil
}
