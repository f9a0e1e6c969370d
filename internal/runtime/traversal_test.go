package runtime_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/arbor/internal/runtime"
	"github.com/aretw0/arbor/pkg/answer"
	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/result"
)

func step(id string) *domain.Step {
	return &domain.Step{NodeBase: domain.NodeBase{Identifier: id}, StepType: domain.StepInstruction}
}

func question(id string, rules ...domain.SurveyRule) *domain.Question {
	return &domain.Question{
		NodeBase:     domain.NodeBase{Identifier: id},
		QuestionType: domain.QuestionSimple,
		AnswerType:   answer.Integer(),
		SurveyRules:  rules,
	}
}

func section(id string, children ...domain.Node) *domain.Section {
	return &domain.Section{NodeBase: domain.NodeBase{Identifier: id}, Children: children}
}

func assessment(id string, children ...domain.Node) *domain.Assessment {
	return &domain.Assessment{
		Section:      *section(id, children...),
		Interruption: domain.DefaultInterruptionHandling(),
	}
}

// tick returns a clock advancing one second per call.
func tick() func() time.Time {
	now := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)
	return func() time.Time {
		now = now.Add(time.Second)
		return now
	}
}

func start(t *testing.T, a *domain.Assessment, opts ...runtime.Option) *runtime.Traversal {
	t.Helper()
	tr := runtime.New(a, append([]runtime.Option{runtime.WithClock(tick()), runtime.WithRunID("run-1")}, opts...)...)
	require.NoError(t, tr.Start(context.Background()))
	return tr
}

func currentID(tr *runtime.Traversal) string {
	if n := tr.CurrentStep(); n != nil {
		return n.Common().Identifier
	}
	return ""
}

func forwardTo(t *testing.T, tr *runtime.Traversal, id string) {
	t.Helper()
	for i := 0; currentID(tr) != id; i++ {
		require.Less(t, i, 50, "never reached %s", id)
		require.NoError(t, tr.GoForward(context.Background()))
	}
}

func answerCurrent(t *testing.T, tr *runtime.Traversal, v any) {
	t.Helper()
	ans, ok := tr.CurrentResult().(*result.AnswerResult)
	require.True(t, ok, "current step %s is not a question", currentID(tr))
	require.NoError(t, ans.SetValue(v))
}

func pathIDs(b *result.BranchResult) []string {
	var ids []string
	for _, m := range b.Path {
		ids = append(ids, m.Identifier)
	}
	return ids
}

func TestTraversal_LinearForward(t *testing.T) {
	ctx := context.Background()
	tr := start(t, assessment("linear", step("s1"), step("s2"), step("s3"), step("s4")))

	visited := []string{currentID(tr)}
	for i := 0; i < 3; i++ {
		require.NoError(t, tr.GoForward(ctx))
		visited = append(visited, currentID(tr))
	}
	assert.Equal(t, []string{"s1", "s2", "s3", "s4"}, visited)
	assert.False(t, tr.HasNodeAfter())

	require.NoError(t, tr.GoForward(ctx))
	assert.True(t, tr.Finished())
	reason, ok := tr.Reason()
	require.True(t, ok)
	assert.Equal(t, domain.FinishComplete, reason.Kind)
	assert.ErrorIs(t, tr.GoForward(ctx), domain.ErrRunFinished)

	res := tr.Result()
	assert.Equal(t, visited, pathIDs(&res.BranchResult))
	for i, m := range res.Path {
		assert.Equal(t, result.Forward, m.Direction)
		assert.False(t, res.PathHistory[i].Common().IsOpen(), "%s left open", m.Identifier)
	}
	assert.False(t, res.IsOpen())
	assert.Equal(t, "run-1", res.RunID)
}

func TestTraversal_BackwardAcrossSections(t *testing.T) {
	ctx := context.Background()
	a := assessment("root",
		step("step1"), step("step2"), step("step3"),
		section("step4", step("stepA"), step("stepB"), step("stepC")),
		section("step5", step("stepX"), step("stepY"), step("stepZ")),
		section("step6", step("stepO"), step("stepP")),
	)
	tr := start(t, a)
	forwardTo(t, tr, "stepX")
	require.True(t, tr.CanGoBack())

	require.NoError(t, tr.GoBackward(ctx))

	assert.Equal(t, "stepC", currentID(tr))
	assert.Equal(t, result.Backward, tr.Direction())
	assert.True(t, tr.CanGoBack())

	root := tr.Result()
	assert.Equal(t, []string{"step1", "step2", "step3", "step4"}, pathIDs(&root.BranchResult))
	assert.Equal(t, result.Backward, root.Path[3].Direction)
	assert.True(t, root.PathHistory[3].Common().IsOpen(), "re-entered section is reopened")

	step4, ok := result.Branch(root.PathHistory[3])
	require.True(t, ok)
	assert.Equal(t, []string{"stepA", "stepB", "stepC"}, pathIDs(step4))
	assert.Equal(t, result.Backward, step4.Path[2].Direction)

	// Forward again re-enters step5 at its first child.
	require.NoError(t, tr.GoForward(ctx))
	assert.Equal(t, "stepX", currentID(tr))
	assert.Equal(t, result.Forward, tr.Direction())
}

func TestTraversal_BackwardAtFirstStep(t *testing.T) {
	tr := start(t, assessment("a", step("s1"), step("s2")))
	assert.False(t, tr.CanGoBack())
	assert.ErrorIs(t, tr.GoBackward(context.Background()), domain.ErrBackNotAllowed)
	assert.Equal(t, "s1", currentID(tr))
}

func TestTraversal_HiddenBackButton(t *testing.T) {
	locked := step("s2")
	locked.HiddenButtons = []domain.ButtonAction{domain.ButtonGoBackward}
	tr := start(t, assessment("a", step("s1"), locked))
	forwardTo(t, tr, "s2")

	assert.False(t, tr.CanGoBack())
	assert.ErrorIs(t, tr.GoBackward(context.Background()), domain.ErrBackNotAllowed)
}

func TestTraversal_ReentryKeepsAnswer(t *testing.T) {
	ctx := context.Background()
	tr := start(t, assessment("a", question("q1"), step("s2")))
	answerCurrent(t, tr, int64(7))

	require.NoError(t, tr.GoForward(ctx))
	require.NoError(t, tr.GoBackward(ctx))

	require.Equal(t, "q1", currentID(tr))
	ans := tr.CurrentResult().(*result.AnswerResult)
	assert.Equal(t, int64(7), ans.Value)
	assert.True(t, ans.IsOpen())
	assert.Equal(t, []string{"q1"}, pathIDs(&tr.Result().BranchResult))
}

func TestTraversal_BackAfterSkipReturnsToQuestion(t *testing.T) {
	ctx := context.Background()
	tr := start(t, assessment("a",
		question("q", domain.SurveyRule{SkipToIdentifier: "s3", MatchingValue: 1}),
		step("s2"), step("s3"),
	))
	answerCurrent(t, tr, int64(1))
	require.NoError(t, tr.GoForward(ctx))
	require.Equal(t, "s3", currentID(tr))

	require.NoError(t, tr.GoBackward(ctx))
	assert.Equal(t, "q", currentID(tr))
}

func TestTraversal_SkipTargets(t *testing.T) {
	ctx := context.Background()
	always := func(target string) domain.SurveyRule {
		return domain.SurveyRule{SkipToIdentifier: target, RuleOperator: domain.OpAlways}
	}

	t.Run("exit ends the run incomplete", func(t *testing.T) {
		tr := start(t, assessment("a", question("q", always(domain.SkipExit)), step("never")))
		require.NoError(t, tr.GoForward(ctx))

		reason, ok := tr.Reason()
		require.True(t, ok)
		assert.Equal(t, domain.Incomplete(domain.SaveNever), reason)
		assert.Equal(t, result.Exit, tr.Direction())
		assert.Nil(t, tr.CurrentStep())
		assert.False(t, tr.Result().IsOpen())
	})

	t.Run("next section leaves the section", func(t *testing.T) {
		tr := start(t, assessment("a",
			section("sec", question("q", always(domain.SkipNextSection)), step("skipped")),
			step("after"),
		))
		require.NoError(t, tr.GoForward(ctx))
		assert.Equal(t, "after", currentID(tr))
	})

	t.Run("unknown target resolves in an ancestor", func(t *testing.T) {
		tr := start(t, assessment("a",
			section("sec", question("q", always("outro")), step("skipped")),
			step("middle"),
			step("outro"),
		))
		require.NoError(t, tr.GoForward(ctx))
		assert.Equal(t, "outro", currentID(tr))
		assert.Equal(t, []string{"sec", "outro"}, pathIDs(&tr.Result().BranchResult))
	})

	t.Run("unknown target past the root", func(t *testing.T) {
		tr := start(t, assessment("a", question("q", always("nowhere")), step("s2")))
		require.NoError(t, tr.GoForward(ctx))

		reason, ok := tr.Reason()
		require.True(t, ok)
		assert.Equal(t, domain.FinishIncomplete, reason.Kind)
		assert.Equal(t, domain.SaveWhenSessionExpires, reason.SaveResult)
	})
}

func TestTraversal_HasNodeAfterFollowsSkipTargets(t *testing.T) {
	ctx := context.Background()
	always := func(target string) domain.SurveyRule {
		return domain.SurveyRule{SkipToIdentifier: target, RuleOperator: domain.OpAlways}
	}

	tests := []struct {
		name     string
		a        *domain.Assessment
		hasAfter bool
	}{
		{"exit inside a section", assessment("a",
			section("sec", question("q", always(domain.SkipExit))),
			step("outro"),
		), false},
		{"target unknown to every ancestor", assessment("a",
			section("sec", question("q", always("nowhere")), step("skipped")),
			step("outro"),
		), false},
		{"target resolved by the owner", assessment("a",
			section("sec", question("q", always("outro")), step("skipped")),
			step("outro"),
		), true},
		{"target resolved by the owner past the end", assessment("a",
			step("intro"),
			section("sec", question("q", always("intro"))),
		), true},
		{"next section at the last section", assessment("a",
			section("sec", question("q", always(domain.SkipNextSection)), step("skipped")),
		), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := start(t, tt.a)
			forwardTo(t, tr, "q")
			assert.Equal(t, tt.hasAfter, tr.HasNodeAfter())

			require.NoError(t, tr.GoForward(ctx))
			assert.Equal(t, !tt.hasAfter, tr.Finished(), "GoForward must agree with HasNodeAfter")
			assert.False(t, tr.HasNodeAfter() && tr.Finished())
		})
	}
}

func TestTraversal_ExitEarly(t *testing.T) {
	ctx := context.Background()
	var finished []domain.FinishReason
	hooks := domain.LifecycleHooks{
		OnFinish: func(_ context.Context, e *domain.FinishEvent) { finished = append(finished, e.Reason) },
	}
	tr := start(t, assessment("a", step("s1"), section("sec", step("a1"), step("a2"))), runtime.WithLifecycleHooks(hooks))
	forwardTo(t, tr, "a1")

	require.NoError(t, tr.ExitEarly(ctx, domain.Declined()))

	assert.True(t, tr.Finished())
	assert.Equal(t, []domain.FinishReason{domain.Declined()}, finished)
	root := tr.Result()
	assert.False(t, root.IsOpen())
	sec, ok := result.Branch(root.PathHistory[1])
	require.True(t, ok)
	assert.False(t, sec.IsOpen())
	assert.False(t, sec.PathHistory[0].Common().IsOpen())
	assert.ErrorIs(t, tr.ExitEarly(ctx, domain.Declined()), domain.ErrRunFinished)
}

func TestTraversal_Progress(t *testing.T) {
	ctx := context.Background()
	tr := start(t, assessment("a", step("s1"), step("s2"), step("s3"), step("s4")))

	last := -1
	for !tr.Finished() {
		p := tr.Progress()
		require.NotNil(t, p)
		assert.Equal(t, last+1, p.Current)
		assert.Equal(t, 4, p.Total)
		assert.False(t, p.IsEstimated)
		last = p.Current
		require.NoError(t, tr.GoForward(ctx))
	}
	assert.Equal(t, 3, last)
	assert.Nil(t, tr.Progress())
}

func TestTraversal_LifecycleHooks(t *testing.T) {
	ctx := context.Background()
	type visit struct {
		id    string
		depth int
	}
	var entered, left []visit
	hooks := domain.LifecycleHooks{
		OnNodeEnter: func(_ context.Context, e *domain.NodeEvent) { entered = append(entered, visit{e.NodeID, e.Depth}) },
		OnNodeLeave: func(_ context.Context, e *domain.NodeEvent) { left = append(left, visit{e.NodeID, e.Depth}) },
	}
	tr := start(t, assessment("a", step("s1"), section("sec", step("a1"))), runtime.WithLifecycleHooks(hooks))
	require.NoError(t, tr.GoForward(ctx))
	require.NoError(t, tr.GoForward(ctx))
	require.True(t, tr.Finished())

	assert.Equal(t, []visit{{"s1", 0}, {"sec", 0}, {"a1", 1}}, entered)
	assert.Equal(t, []visit{{"s1", 0}, {"a1", 1}, {"sec", 0}}, left)
}

func TestTraversal_AsyncHints(t *testing.T) {
	sec := section("sec", step("a1"), step("a2"))
	sec.AsyncActions = []domain.AsyncActionConfig{{Identifier: "motion"}}
	tr := start(t, assessment("a", step("s1"), sec))

	require.NoError(t, tr.GoForward(context.Background()))
	var started []string
	for _, p := range tr.Points() {
		if p.AsyncActions != nil {
			for _, cfg := range p.AsyncActions.Start {
				started = append(started, p.AsyncActions.SectionIdentifier+"/"+cfg.Identifier)
			}
		}
	}
	assert.Equal(t, []string{"sec/motion"}, started)
}

func TestRestore(t *testing.T) {
	ctx := context.Background()
	a := assessment("a",
		step("intro"),
		section("sec", question("q1"), question("q2")),
		step("outro"),
	)

	tr := start(t, a)
	forwardTo(t, tr, "q1")
	answerCurrent(t, tr, int64(3))
	require.NoError(t, tr.GoForward(ctx))
	paused := tr.CurrentStep()
	require.Equal(t, "q2", paused.Common().Identifier)

	data, err := json.Marshal(tr.Result())
	require.NoError(t, err)
	decoded, err := result.Unmarshal(data)
	require.NoError(t, err)
	prior, ok := decoded.(*result.AssessmentResult)
	require.True(t, ok)

	restored, err := runtime.Restore(ctx, a, prior, runtime.WithClock(tick()))
	require.NoError(t, err)

	require.NotNil(t, restored.CurrentStep())
	assert.Equal(t, paused.Common().Identifier, restored.CurrentStep().Common().Identifier)
	assert.Equal(t, paused.TypeName(), restored.CurrentStep().TypeName())
	assert.Equal(t, result.Forward, restored.Direction())
	assert.Equal(t, "run-1", restored.Result().RunID)

	require.NoError(t, restored.GoBackward(ctx))
	require.Equal(t, "q1", currentID(restored))
	assert.Equal(t, int64(3), restored.CurrentResult().(*result.AnswerResult).Value)
}

func TestRestore_AfterCompletedStep(t *testing.T) {
	a := assessment("a", step("s1"), step("s2"))
	at := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	prior := result.NewAssessment("a", "run-2", at)
	s1 := result.NewBase("s1", at)
	s1.Finish(at.Add(time.Minute))
	prior.Append("s1", s1, result.Forward)

	tr, err := runtime.Restore(context.Background(), a, prior)
	require.NoError(t, err)
	assert.Equal(t, "s2", currentID(tr))
	assert.Equal(t, []string{"s1"}, pathIDs(&prior.BranchResult), "prior result is not mutated")
}

func TestRestore_Rejects(t *testing.T) {
	a := assessment("a", step("s1"))
	at := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	other := result.NewAssessment("b", "run", at)
	_, err := runtime.Restore(context.Background(), a, other)
	assert.ErrorIs(t, err, domain.ErrIncompatibleResult)

	unknown := result.NewAssessment("a", "run", at)
	unknown.Append("gone", result.NewBase("gone", at), result.Forward)
	_, err = runtime.Restore(context.Background(), a, unknown)
	assert.ErrorIs(t, err, domain.ErrIncompatibleResult)

	done := result.NewAssessment("a", "run", at)
	done.Finish(at)
	_, err = runtime.Restore(context.Background(), a, done)
	assert.True(t, errors.Is(err, domain.ErrRunFinished))
}
