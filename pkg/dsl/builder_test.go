package dsl_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/arbor"
	"github.com/aretw0/arbor/pkg/answer"
	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/dsl"
)

func checkin() *dsl.Builder {
	b := dsl.New("checkin").Title("Daily check-in").Version("1.0")
	b.Instruction("hello").Title("Welcome back!").Hide(domain.ButtonGoBackward)
	b.Question("slept", answer.Boolean()).
		Title("Did you sleep well?").
		SkipIf(domain.OpEqual, true, "bye")
	habits := b.Section("habits").Title("Habits").ProgressMarkers("hours")
	habits.Question("hours", answer.Integer()).Optional()
	habits.Choice("mood", answer.String(),
		domain.ChoiceOption{Value: "good", Text: "Good"},
		domain.ChoiceOption{Value: "bad", Text: "Bad"},
	)
	b.Completion("bye")
	return b
}

func TestBuilder_Build(t *testing.T) {
	a, warnings, err := checkin().Build()
	require.NoError(t, err)
	assert.Empty(t, warnings)

	assert.Equal(t, "checkin", a.Identifier)
	assert.Equal(t, "Daily check-in", a.Title)
	assert.Equal(t, "1.0", a.VersionString)
	assert.True(t, a.Interruption.CanResume)
	require.Len(t, a.Children, 4)

	hello := a.Children[0].(*domain.Step)
	assert.Equal(t, domain.StepInstruction, hello.StepType)
	assert.True(t, hello.Hides(domain.ButtonGoBackward))

	slept := a.Children[1].(*domain.Question)
	assert.Equal(t, domain.QuestionSimple, slept.QuestionType)
	require.Len(t, slept.SurveyRules, 1)
	assert.Equal(t, "bye", slept.SurveyRules[0].SkipToIdentifier)

	habits := a.Children[2].(*domain.Section)
	assert.Equal(t, []string{"hours"}, habits.ProgressMarkers())
	require.Len(t, habits.Children, 2)
	assert.True(t, habits.Children[0].(*domain.Question).Optional)
	mood := habits.Children[1].(*domain.Question)
	assert.Equal(t, domain.QuestionChoice, mood.QuestionType)
	assert.Len(t, mood.InputFields[0].Choices, 2)

	assert.Equal(t, domain.StepCompletion, a.Children[3].(*domain.Step).StepType)
}

func TestBuilder_Runs(t *testing.T) {
	a, _, err := checkin().Build()
	require.NoError(t, err)

	eng, err := arbor.New("")
	require.NoError(t, err)
	ctx := context.Background()
	run, err := eng.Start(ctx, a, "r1")
	require.NoError(t, err)
	assert.Equal(t, "hello", run.CurrentStep().Common().Identifier)

	require.NoError(t, run.GoForward(ctx))
	require.NoError(t, run.Answer(true))
	require.NoError(t, run.GoForward(ctx))
	assert.Equal(t, "bye", run.CurrentStep().Common().Identifier, "the rule skips the habits section")
}

func TestBuilder_Invalid(t *testing.T) {
	t.Run("Cyclic Skip", func(t *testing.T) {
		b := dsl.New("loop")
		b.Instruction("a")
		b.Question("b", answer.Boolean()).SkipAlways("a")
		_, _, err := b.Build()
		assert.ErrorIs(t, err, domain.ErrCyclicSkip)
	})

	t.Run("Duplicate Identifier", func(t *testing.T) {
		b := dsl.New("dup")
		b.Instruction("a")
		b.Completion("a")
		_, _, err := b.Build()
		assert.ErrorIs(t, err, domain.ErrDuplicateIdentifier)
	})

	t.Run("Empty", func(t *testing.T) {
		_, _, err := dsl.New("empty").Build()
		assert.ErrorIs(t, err, domain.ErrEmptyBranch)
	})

	t.Run("Dangling Target Warns", func(t *testing.T) {
		b := dsl.New("dangling")
		b.Question("q", answer.Boolean()).SkipIf(domain.OpEqual, true, "nowhere")
		b.Completion("end")
		a, warnings, err := b.Build()
		require.NoError(t, err)
		assert.NotNil(t, a)
		assert.Len(t, warnings, 1)
	})
}
