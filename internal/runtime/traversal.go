package runtime

import (
	"context"
	"fmt"

	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/navigation"
	"github.com/aretw0/arbor/pkg/result"
)

// Traversal drives one run of an assessment. It is not safe for concurrent use.
type Traversal struct {
	assessment *domain.Assessment
	result     *result.AssessmentResult
	root       *BranchState
	env        *env
	reason     *domain.FinishReason
}

// New creates a traversal that has not started yet.
func New(a *domain.Assessment, opts ...Option) *Traversal {
	e := newEnv(opts)
	res := a.CreateResult(e.now()).(*result.AssessmentResult)
	res.RunID = e.runID
	return newTraversal(a, res, e)
}

func newTraversal(a *domain.Assessment, res *result.AssessmentResult, e *env) *Traversal {
	e.logger = e.logger.With("assessment", a.Identifier, "run_id", res.RunID)
	return &Traversal{
		assessment: a,
		result:     res,
		root:       newBranchState(e, a, &res.BranchResult, 0),
		env:        e,
	}
}

// Restore rebuilds a traversal from a previously persisted result by replaying
// its path. prior is copied, never mutated.
func Restore(ctx context.Context, a *domain.Assessment, prior *result.AssessmentResult, opts ...Option) (*Traversal, error) {
	if prior.AssessmentIdentifier != "" && prior.AssessmentIdentifier != a.ResultID() {
		return nil, fmt.Errorf("%w: result is for %q", domain.ErrIncompatibleResult, prior.AssessmentIdentifier)
	}
	if !prior.IsOpen() {
		return nil, domain.ErrRunFinished
	}

	e := newEnv(opts)
	res := prior.Clone().(*result.AssessmentResult)
	if e.runID == "" {
		e.runID = res.RunID
	}
	res.RunID = e.runID

	t := newTraversal(a, res, e)
	out, err := t.root.restore(ctx)
	if err != nil {
		return nil, err
	}
	if out.signal != moved {
		t.finish(ctx, out)
	}
	t.env.logger.Debug("run restored", "current", t.currentID())
	return t, nil
}

// Start enters the first step.
func (t *Traversal) Start(ctx context.Context) error {
	if t.root.level != NotStarted {
		return fmt.Errorf("start: %w", domain.ErrNotActive)
	}
	t.env.points = nil
	out := t.root.begin(ctx)
	if out.signal != moved {
		t.finish(ctx, out)
	}
	return nil
}

// GoForward moves to the next step, finishing the run when none is left.
func (t *Traversal) GoForward(ctx context.Context) error {
	if t.reason != nil {
		return domain.ErrRunFinished
	}
	t.env.points = nil
	out, err := t.root.forward(ctx)
	if err != nil {
		return err
	}
	if out.signal != moved {
		t.finish(ctx, out)
	}
	return nil
}

// GoBackward moves to the previous step, crossing section boundaries.
// It returns domain.ErrBackNotAllowed when there is nowhere to go.
func (t *Traversal) GoBackward(ctx context.Context) error {
	if t.reason != nil {
		return domain.ErrRunFinished
	}
	t.env.points = nil
	out, err := t.root.backward(ctx)
	if err != nil {
		return err
	}
	if out.signal == bubbleBack {
		return domain.ErrBackNotAllowed
	}
	return nil
}

// ExitEarly ends the run from any state.
func (t *Traversal) ExitEarly(ctx context.Context, reason domain.FinishReason) error {
	if t.reason != nil {
		return domain.ErrRunFinished
	}
	t.env.points = nil
	t.root.close(ctx)
	t.conclude(ctx, reason)
	return nil
}

func (t *Traversal) finish(ctx context.Context, out outcome) {
	switch {
	case out.exit:
		t.conclude(ctx, domain.Incomplete(domain.SaveNever))
	case out.unresolved != "":
		t.env.logger.Warn("skip target not found in any ancestor", "target", out.unresolved)
		t.conclude(ctx, domain.Incomplete(domain.SaveWhenSessionExpires))
	default:
		t.conclude(ctx, domain.Complete())
	}
}

func (t *Traversal) conclude(ctx context.Context, reason domain.FinishReason) {
	t.reason = &reason
	t.env.logger.Debug("run finished", "reason", reason.String())
	if t.env.hooks.OnFinish != nil {
		t.env.hooks.OnFinish(ctx, &domain.FinishEvent{
			EventBase:    domain.EventBase{Timestamp: t.env.now(), Type: domain.EventRunFinish, RunID: t.env.runID},
			AssessmentID: t.assessment.Identifier,
			Reason:       reason,
		})
	}
}

// chain returns the active states from the root down to the deepest one.
func (t *Traversal) chain() []*BranchState {
	var out []*BranchState
	for s := t.root; s != nil && s.level == Active; s = s.child {
		out = append(out, s)
	}
	return out
}

func (t *Traversal) deepest() *BranchState {
	chain := t.chain()
	if len(chain) == 0 {
		return nil
	}
	return chain[len(chain)-1]
}

// CurrentStep returns the leaf node being shown, or nil when the run is not active.
func (t *Traversal) CurrentStep() domain.Node {
	if s := t.deepest(); s != nil {
		return s.current
	}
	return nil
}

func (t *Traversal) currentID() string {
	if n := t.CurrentStep(); n != nil {
		return n.Common().Identifier
	}
	return ""
}

// CurrentResult returns the result of the current step.
func (t *Traversal) CurrentResult() result.Result {
	if s := t.deepest(); s != nil {
		return s.result.Last()
	}
	return nil
}

// Direction returns how the current step was reached.
func (t *Traversal) Direction() result.Direction {
	if t.reason != nil {
		return result.Exit
	}
	if s := t.deepest(); s != nil {
		return s.direction
	}
	return result.Forward
}

// CanGoBack reports whether GoBackward would move.
func (t *Traversal) CanGoBack() bool {
	chain := t.chain()
	if t.reason != nil || len(chain) == 0 {
		return false
	}
	leaf := chain[len(chain)-1]
	if !leaf.nav.AllowBackNavigation(leaf.current, leaf.result) {
		return false
	}
	for i := len(chain) - 1; i >= 0; i-- {
		s := chain[i]
		if s.nav.NodeBefore(s.current, s.result).Node != nil {
			return true
		}
	}
	return false
}

// HasNodeAfter reports whether GoForward would land on another node rather
// than finish the run. It follows the same resolution as GoForward: an exit
// ends the search and a target unknown to a section is looked up in its owner.
func (t *Traversal) HasNodeAfter() bool {
	if t.reason != nil {
		return false
	}
	chain := t.chain()
	unresolved := ""
	for i := len(chain) - 1; i >= 0; i-- {
		s := chain[i]
		p := s.nav.NodeAfter(s.current, s.result)
		if unresolved != "" {
			p = s.nav.Resolve(unresolved)
		}
		switch {
		case p.Node != nil:
			return true
		case p.Direction == result.Exit:
			return false
		}
		unresolved = p.Unresolved
	}
	return false
}

// Progress returns the progress of the innermost container that measures it.
func (t *Traversal) Progress() *navigation.Progress {
	chain := t.chain()
	for i := len(chain) - 1; i >= 0; i-- {
		s := chain[i]
		if p := s.nav.Progress(s.current, s.result); p != nil {
			return p
		}
	}
	return nil
}

// Points returns the navigation points produced by the last operation,
// outermost first. Hosts read permission and async action hints from them.
func (t *Traversal) Points() []navigation.Point {
	return append([]navigation.Point(nil), t.env.points...)
}

// Finished reports whether the run has ended.
func (t *Traversal) Finished() bool { return t.reason != nil }

// Reason returns why the run ended.
func (t *Traversal) Reason() (domain.FinishReason, bool) {
	if t.reason == nil {
		return domain.FinishReason{}, false
	}
	return *t.reason, true
}

// Result returns the live assessment result. Callers must Clone it before
// handing it to another goroutine.
func (t *Traversal) Result() *result.AssessmentResult { return t.result }

// Assessment returns the tree being run.
func (t *Traversal) Assessment() *domain.Assessment { return t.assessment }
