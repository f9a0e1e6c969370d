package arbor

import (
	"context"
	"fmt"
	"sync"

	"github.com/aretw0/arbor/internal/runtime"
	"github.com/aretw0/arbor/pkg/answer"
	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/navigation"
	"github.com/aretw0/arbor/pkg/ports"
	"github.com/aretw0/arbor/pkg/result"
)

// Run is one participant's pass through an assessment. It is safe for
// concurrent use; operations are applied one at a time.
type Run struct {
	mu sync.Mutex
	t  *runtime.Traversal
}

func newRun(t *runtime.Traversal) *Run {
	return &Run{t: t}
}

// ID returns the run identifier stamped on the result.
func (r *Run) ID() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.t.Result().RunID
}

// Assessment returns the tree being run.
func (r *Run) Assessment() *domain.Assessment {
	return r.t.Assessment()
}

// CurrentStep returns the step being shown, or nil once the run has finished.
func (r *Run) CurrentStep() domain.Node {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.t.CurrentStep()
}

// CanGoBack reports whether GoBackward would move.
func (r *Run) CanGoBack() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.t.CanGoBack()
}

// HasNodeAfter reports whether another step follows the current one.
func (r *Run) HasNodeAfter() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.t.HasNodeAfter()
}

// Progress returns how far the participant is, or nil when unmeasured.
func (r *Run) Progress() *navigation.Progress {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.t.Progress()
}

// Finished reports whether the run has ended.
func (r *Run) Finished() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.t.Finished()
}

// Reason returns why the run ended.
func (r *Run) Reason() (domain.FinishReason, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.t.Reason()
}

// Answer stores value, in its raw structured form, as the answer to the
// current question. A nil value records a skipped question. On a type
// mismatch the answer is cleared and an error wrapping
// answer.ErrTypeMismatch is returned.
func (r *Run) Answer(value any) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.t.Finished() {
		return domain.ErrRunFinished
	}
	ar, ok := r.t.CurrentResult().(*result.AnswerResult)
	if !ok {
		return domain.ErrNotAQuestion
	}
	if err := ar.SetValue(value); err != nil {
		return fmt.Errorf("answer %s: %w", ar.Identifier, err)
	}
	return nil
}

// GoForward moves to the next step, finishing the run when none is left.
func (r *Run) GoForward(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.t.GoForward(ctx)
}

// GoBackward moves to the previous step.
func (r *Run) GoBackward(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.t.GoBackward(ctx)
}

// ExitEarly ends the run with the given reason.
func (r *Run) ExitEarly(ctx context.Context, reason domain.FinishReason) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.t.ExitEarly(ctx, reason)
}

// Result returns a copy of the result tree.
func (r *Run) Result() *result.AssessmentResult {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.t.Result().Clone().(*result.AssessmentResult)
}

// Snapshot describes the run after the last operation.
func (r *Run) Snapshot() *ports.RunSnapshot {
	r.mu.Lock()
	defer r.mu.Unlock()

	snap := &ports.RunSnapshot{
		RunID:        r.t.Result().RunID,
		AssessmentID: r.t.Assessment().Identifier,
		Direction:    r.t.Direction(),
		CanGoBack:    r.t.CanGoBack(),
		HasNodeAfter: r.t.HasNodeAfter(),
		Progress:     r.t.Progress(),
		Finished:     r.t.Finished(),
	}
	if reason, ok := r.t.Reason(); ok {
		snap.Reason = &reason
	}
	if step := r.t.CurrentStep(); step != nil {
		snap.Step = viewOf(step)
	}
	if ar, ok := r.t.CurrentResult().(*result.AnswerResult); ok && ar.Value != nil {
		if raw, err := encodeAnswer(ar); err == nil {
			snap.Answer = raw
		}
	}
	for _, p := range r.t.Points() {
		snap.Permissions = append(snap.Permissions, p.RequestedPermissions...)
		if hint := hintOf(p.AsyncActions); hint != nil {
			snap.AsyncActions = append(snap.AsyncActions, *hint)
		}
	}
	return snap
}

func encodeAnswer(ar *result.AnswerResult) (any, error) {
	if ar.AnswerType == nil {
		return ar.Value, nil
	}
	return ar.AnswerType.Encode(ar.Value)
}

func viewOf(n domain.Node) *ports.StepView {
	base := n.Common()
	v := &ports.StepView{
		Identifier:      base.Identifier,
		Type:            n.TypeName(),
		Content:         domain.ContentOf(n),
		HiddenButtons:   base.HiddenButtons,
		ButtonOverrides: base.ButtonOverrides,
	}
	if q, ok := n.(*domain.Question); ok {
		v.AnswerType = answer.ToMap(q.AnswerType)
		v.InputFields = q.InputFields
		v.Optional = q.Optional
	}
	return v
}

func hintOf(nav *navigation.AsyncActionNavigation) *ports.AsyncActionHint {
	if nav == nil || (len(nav.Start) == 0 && len(nav.Stop) == 0) {
		return nil
	}
	hint := &ports.AsyncActionHint{Section: nav.SectionIdentifier}
	for _, c := range nav.Start {
		hint.Start = append(hint.Start, c.Identifier)
	}
	for _, c := range nav.Stop {
		hint.Stop = append(hint.Stop, c.Identifier)
	}
	return hint
}
