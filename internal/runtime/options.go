package runtime

import (
	"log/slog"
	"time"

	"github.com/aretw0/arbor/internal/logging"
	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/navigation"
)

// NavigatorFactory builds the navigator for a branch node.
type NavigatorFactory func(domain.BranchNode) navigation.Navigator

// Option configures a Traversal.
type Option func(*env)

// WithClock overrides the time source used for result timestamps.
func WithClock(clock func() time.Time) Option {
	return func(e *env) {
		e.clock = clock
	}
}

// WithLifecycleHooks registers observability callbacks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(e *env) {
		e.hooks = e.hooks.Merge(hooks)
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *env) {
		e.logger = logger
	}
}

// WithRunID sets the identifier stamped on the assessment result and events.
func WithRunID(id string) Option {
	return func(e *env) {
		e.runID = id
	}
}

// WithNavigatorFactory replaces the default sibling-list navigator.
func WithNavigatorFactory(f NavigatorFactory) Option {
	return func(e *env) {
		e.navigator = f
	}
}

// env is shared by every level of one traversal.
type env struct {
	clock     func() time.Time
	hooks     domain.LifecycleHooks
	logger    *slog.Logger
	runID     string
	navigator NavigatorFactory

	// points collects the navigation points produced by the last operation.
	points []navigation.Point
}

func newEnv(opts []Option) *env {
	e := &env{
		clock:  func() time.Time { return time.Now().UTC() },
		logger: logging.NewNop(),
		navigator: func(n domain.BranchNode) navigation.Navigator {
			return navigation.New(n)
		},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *env) now() time.Time { return e.clock() }
