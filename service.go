package arbor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/ports"
	"github.com/aretw0/arbor/pkg/result"
	"github.com/aretw0/arbor/pkg/session"
)

// DefaultResultTTL is how long a cached partial result stays resumable.
const DefaultResultTTL = 24 * time.Hour

// Service implements ports.RunService on top of an Engine. Live runs are
// kept in memory; every change is written through to the session cache so
// that another process can resume the run.
type Service struct {
	engine   *Engine
	sessions *session.Manager
	ttl      time.Duration

	mu   sync.Mutex
	runs map[string]*Run
}

var _ ports.RunService = (*Service)(nil)

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithResultTTL sets how long partial results stay in the cache.
func WithResultTTL(ttl time.Duration) ServiceOption {
	return func(s *Service) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

// NewService creates a Service that persists runs through sessions.
func NewService(engine *Engine, sessions *session.Manager, opts ...ServiceOption) *Service {
	s := &Service{
		engine:   engine,
		sessions: sessions,
		ttl:      DefaultResultTTL,
		runs:     make(map[string]*Run),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Assessments lists the names of the definitions that can be started.
func (s *Service) Assessments(ctx context.Context) ([]string, error) {
	return s.engine.Assessments(ctx)
}

// Start begins or resumes a run.
func (s *Service) Start(ctx context.Context, name, runID string) (*ports.RunSnapshot, error) {
	a, err := s.engine.Load(ctx, name)
	if err != nil {
		return nil, err
	}

	if runID != "" {
		if run := s.live(runID); run != nil {
			if run.Assessment() != a {
				return nil, fmt.Errorf("%w: run %s belongs to %s", domain.ErrIncompatibleResult, runID, run.Assessment().Identifier)
			}
			return run.Snapshot(), nil
		}
	}

	var run *Run
	err = s.locked(ctx, runID, func(ctx context.Context) error {
		// A concurrent Start for the same run may have registered it first.
		if runID != "" {
			if run = s.live(runID); run != nil {
				return nil
			}
		}

		// 1. Resume from a cached partial result when there is one
		if runID != "" {
			prior, err := s.sessions.Cache().Load(ctx, runID)
			switch {
			case err == nil:
				run, err = s.engine.Resume(ctx, a, prior)
				switch {
				case err == nil:
					s.engine.logger.Info("run resumed", "run_id", runID)
				case errors.Is(err, domain.ErrResumeNotAllowed), errors.Is(err, domain.ErrRunFinished):
					s.engine.logger.Info("starting over", "run_id", runID, "reason", err.Error())
					run = nil
				default:
					return err
				}
			case !errors.Is(err, domain.ErrResultNotFound):
				return err
			}
		}

		// 2. Otherwise start from the first step
		if run == nil {
			run, err = s.engine.Start(ctx, a, runID)
			if err != nil {
				return err
			}
		}
		if err := s.persist(ctx, run); err != nil {
			return err
		}
		run = s.register(run)
		return nil
	})
	if err != nil {
		return nil, err
	}
	if run.Assessment() != a {
		return nil, fmt.Errorf("%w: run %s belongs to %s", domain.ErrIncompatibleResult, runID, run.Assessment().Identifier)
	}
	return run.Snapshot(), nil
}

// Get returns the current state of a run.
func (s *Service) Get(ctx context.Context, runID string) (*ports.RunSnapshot, error) {
	run, err := s.run(ctx, runID)
	if err != nil {
		return nil, err
	}
	return run.Snapshot(), nil
}

// Answer stores value as the answer to the current question.
func (s *Service) Answer(ctx context.Context, runID string, value any) (*ports.RunSnapshot, error) {
	return s.apply(ctx, runID, func(_ context.Context, run *Run) error {
		return run.Answer(value)
	})
}

// Forward moves to the next step.
func (s *Service) Forward(ctx context.Context, runID string) (*ports.RunSnapshot, error) {
	return s.apply(ctx, runID, func(ctx context.Context, run *Run) error {
		return run.GoForward(ctx)
	})
}

// Backward moves to the previous step.
func (s *Service) Backward(ctx context.Context, runID string) (*ports.RunSnapshot, error) {
	return s.apply(ctx, runID, func(ctx context.Context, run *Run) error {
		return run.GoBackward(ctx)
	})
}

// Exit ends the run early.
func (s *Service) Exit(ctx context.Context, runID string, reason domain.FinishReason) (*ports.RunSnapshot, error) {
	return s.apply(ctx, runID, func(ctx context.Context, run *Run) error {
		return run.ExitEarly(ctx, reason)
	})
}

// Result returns a copy of the result tree of a live or cached run.
func (s *Service) Result(ctx context.Context, runID string) (*result.AssessmentResult, error) {
	if run := s.live(runID); run != nil {
		return run.Result(), nil
	}
	return s.sessions.Load(ctx, runID)
}

// Forget drops a run from memory. Its cached result is kept.
func (s *Service) Forget(runID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.runs, runID)
}

func (s *Service) apply(ctx context.Context, runID string, op func(context.Context, *Run) error) (*ports.RunSnapshot, error) {
	run, err := s.run(ctx, runID)
	if err != nil {
		return nil, err
	}
	err = s.locked(ctx, runID, func(ctx context.Context) error {
		if err := op(ctx, run); err != nil {
			return err
		}
		return s.persist(ctx, run)
	})
	if err != nil {
		return nil, err
	}
	return run.Snapshot(), nil
}

func (s *Service) live(runID string) *Run {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.runs[runID]
}

// run returns the live run, rebuilding it from the cache after a restart.
func (s *Service) run(ctx context.Context, runID string) (*Run, error) {
	if run := s.live(runID); run != nil {
		return run, nil
	}

	prior, err := s.sessions.Load(ctx, runID)
	if err != nil {
		return nil, err
	}
	a, err := s.engine.Lookup(ctx, prior.AssessmentIdentifier)
	if err != nil {
		return nil, err
	}
	run, err := s.engine.Resume(ctx, a, prior)
	if err != nil {
		return nil, err
	}

	return s.register(run), nil
}

// register makes run live unless a run with the same ID already is, in which
// case the existing one is returned.
func (s *Service) register(run *Run) *Run {
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.runs[run.ID()]; ok {
		return existing
	}
	s.runs[run.ID()] = run
	return run
}

func (s *Service) locked(ctx context.Context, runID string, fn func(context.Context) error) error {
	if runID == "" {
		return fn(ctx)
	}
	return s.sessions.WithLock(ctx, runID, fn)
}

// persist writes the result of run to the cache. Runs whose finish reason
// says the result must never be saved are removed instead.
func (s *Service) persist(ctx context.Context, run *Run) error {
	res := run.Result()
	if reason, ok := run.Reason(); ok && reason.SaveResult == domain.SaveNever {
		return s.sessions.Cache().Delete(ctx, res.RunID)
	}
	return s.sessions.Cache().Store(ctx, res.RunID, res, s.engine.clock().Add(s.ttl))
}

// ExitReason maps the exit reason names accepted by the transports to a
// finish reason. An empty name saves the partial result for later.
func ExitReason(name string) (domain.FinishReason, error) {
	switch name {
	case "", "saveForLater":
		return domain.Incomplete(domain.SaveWhenSessionExpires), nil
	case "declined":
		return domain.Declined(), nil
	case "discard":
		return domain.Incomplete(domain.SaveNever), nil
	default:
		return domain.FinishReason{}, fmt.Errorf("unknown exit reason %q", name)
	}
}
