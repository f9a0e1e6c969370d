package arbor

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/aretw0/arbor/internal/adapters/file"
	"github.com/aretw0/arbor/internal/compiler"
	"github.com/aretw0/arbor/internal/runtime"
	"github.com/aretw0/arbor/internal/validator"
	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/ports"
	"github.com/aretw0/arbor/pkg/result"
	"github.com/google/uuid"
)

// Engine is the high-level entry point for the arbor library.
// It loads and validates definitions and starts or resumes runs of them.
type Engine struct {
	loader ports.DefinitionLoader
	parser *compiler.Parser
	hooks  domain.LifecycleHooks
	logger *slog.Logger
	clock  func() time.Time
	strict bool

	mu          sync.Mutex
	assessments map[string]*domain.Assessment

	Name string
}

// Option defines a functional option for configuring the Engine.
type Option func(*Engine)

// WithLifecycleHooks registers observability hooks. Hooks from repeated
// options are all called.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(e *Engine) {
		e.hooks = e.hooks.Merge(hooks)
	}
}

// WithLoader injects a custom DefinitionLoader, bypassing the default directory loader.
func WithLoader(l ports.DefinitionLoader) Option {
	return func(e *Engine) {
		e.loader = l
	}
}

// WithLogger sets a custom structured logger for the engine.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithClock overrides the time source stamped on results.
func WithClock(clock func() time.Time) Option {
	return func(e *Engine) {
		e.clock = clock
	}
}

// WithStrictValidation rejects definitions that produce validation warnings.
func WithStrictValidation() Option {
	return func(e *Engine) {
		e.strict = true
	}
}

// New initializes a new arbor Engine.
// By default, definitions are read from the YAML and JSON files in dir.
// If WithLoader option is provided, dir can be empty.
func New(dir string, opts ...Option) (*Engine, error) {
	eng := &Engine{assessments: make(map[string]*domain.Assessment)}

	for _, opt := range opts {
		opt(eng)
	}

	if eng.loader == nil {
		if dir == "" {
			return nil, fmt.Errorf("dir is required when no custom loader is provided")
		}
		absPath, err := filepath.Abs(dir)
		if err != nil {
			return nil, fmt.Errorf("invalid path: %w", err)
		}
		eng.Name = filepath.Base(absPath)
		eng.loader = file.NewLoader(absPath)
	} else if dir != "" {
		eng.Name = filepath.Base(dir)
	}

	if eng.logger == nil {
		eng.logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	if eng.Name != "" {
		eng.logger = eng.logger.With("catalog", eng.Name)
	}
	if eng.clock == nil {
		eng.clock = func() time.Time { return time.Now().UTC() }
	}
	eng.parser = compiler.NewParser(compiler.WithLogger(eng.logger))

	return eng, nil
}

// Loader returns the underlying DefinitionLoader used by the engine.
func (e *Engine) Loader() ports.DefinitionLoader {
	return e.loader
}

// Compile decodes and validates a raw definition. Warnings are returned
// alongside a usable tree; errors reject it.
func (e *Engine) Compile(data []byte) (*domain.Assessment, []*domain.ValidationError, error) {
	a, err := e.parser.Parse(data)
	if err != nil {
		return nil, nil, err
	}
	report := validator.Validate(a)
	if err := report.Err(); err != nil {
		return nil, report.Warnings, err
	}
	if e.strict && len(report.Warnings) > 0 {
		errs := make([]error, len(report.Warnings))
		for i, w := range report.Warnings {
			errs[i] = w
		}
		return nil, report.Warnings, &domain.AggregateError{Errors: errs}
	}
	return a, report.Warnings, nil
}

// Assessments lists the names known to the loader.
func (e *Engine) Assessments(ctx context.Context) ([]string, error) {
	return e.loader.List(ctx)
}

// Load returns the compiled assessment registered under name.
// Compiled trees are kept for the lifetime of the engine.
func (e *Engine) Load(ctx context.Context, name string) (*domain.Assessment, error) {
	e.mu.Lock()
	a, ok := e.assessments[name]
	e.mu.Unlock()
	if ok {
		return a, nil
	}

	data, err := e.loader.Load(ctx, name)
	if err != nil {
		return nil, err
	}
	a, warnings, err := e.Compile(data)
	if err != nil {
		return nil, fmt.Errorf("definition %s: %w", name, err)
	}
	for _, w := range warnings {
		e.logger.Warn("definition warning", "definition", name, "path", w.Path, "reason", w.Reason)
	}

	e.mu.Lock()
	e.assessments[name] = a
	e.mu.Unlock()
	return a, nil
}

// Lookup returns the assessment whose result identifier is id. It is used
// to find the tree a cached result belongs to.
func (e *Engine) Lookup(ctx context.Context, id string) (*domain.Assessment, error) {
	if a, err := e.Load(ctx, id); err == nil && a.ResultID() == id {
		return a, nil
	}
	names, err := e.loader.List(ctx)
	if err != nil {
		return nil, err
	}
	for _, name := range names {
		a, err := e.Load(ctx, name)
		if err != nil {
			e.logger.Debug("skipping definition", "definition", name, "err", err)
			continue
		}
		if a.ResultID() == id {
			return a, nil
		}
	}
	return nil, fmt.Errorf("%w: no definition produces %q", domain.ErrDefinitionNotFound, id)
}

func (e *Engine) runtimeOptions(runID string) []runtime.Option {
	return []runtime.Option{
		runtime.WithClock(e.clock),
		runtime.WithLifecycleHooks(e.hooks),
		runtime.WithLogger(e.logger),
		runtime.WithRunID(runID),
	}
}

// Start creates a run of a and enters its first step.
// An empty runID generates a random one.
func (e *Engine) Start(ctx context.Context, a *domain.Assessment, runID string) (*Run, error) {
	if runID == "" {
		runID = uuid.NewString()
	}
	t := runtime.New(a, e.runtimeOptions(runID)...)
	if err := t.Start(ctx); err != nil {
		return nil, err
	}
	return newRun(t), nil
}

// Resume rebuilds a run of a from a partial result. It fails with
// domain.ErrResumeNotAllowed when the assessment forbids resuming.
func (e *Engine) Resume(ctx context.Context, a *domain.Assessment, prior *result.AssessmentResult) (*Run, error) {
	if !a.Interruption.CanResume {
		return nil, domain.ErrResumeNotAllowed
	}
	t, err := runtime.Restore(ctx, a, prior, e.runtimeOptions(prior.RunID)...)
	if err != nil {
		return nil, err
	}
	return newRun(t), nil
}
