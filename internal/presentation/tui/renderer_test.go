package tui

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/navigation"
	"github.com/aretw0/arbor/pkg/ports"
)

func TestMarkdown(t *testing.T) {
	snap := &ports.RunSnapshot{
		Progress: &navigation.Progress{Current: 2, Total: 5, IsEstimated: true},
		Step: &ports.StepView{
			Identifier: "mood",
			Content:    domain.Content{Title: "How do you feel?", Detail: "Pick one."},
			InputFields: []domain.InputField{{
				FieldLabel: "Mood",
				Choices: []domain.ChoiceOption{
					{Value: 1, Text: "Good"},
					{Value: 0, Text: "Bad"},
				},
			}},
			Optional: true,
		},
		Answer: 1,
	}

	md := Markdown(snap)
	assert.Contains(t, md, "*Step 2 of ~5*")
	assert.Contains(t, md, "# How do you feel?")
	assert.Contains(t, md, "Pick one.")
	assert.Contains(t, md, "- `1` Good")
	assert.Contains(t, md, "- `0` Bad")
	assert.Contains(t, md, "Optional")
	assert.Contains(t, md, "Current answer: `1`")
}

func TestMarkdown_FallsBackToIdentifier(t *testing.T) {
	md := Markdown(&ports.RunSnapshot{Step: &ports.StepView{Identifier: "intro"}})
	assert.Contains(t, md, "# intro")

	assert.Contains(t, Markdown(&ports.RunSnapshot{}), "Nothing to show")
}

func TestRenderer_Plain(t *testing.T) {
	r, err := NewRenderer(true)
	require.NoError(t, err)

	snap := &ports.RunSnapshot{Step: &ports.StepView{
		Identifier: "age",
		Content:    domain.Content{Title: "Age"},
		AnswerType: map[string]any{"type": "integer"},
	}}
	out, err := r.Step(snap)
	require.NoError(t, err)
	assert.Contains(t, out, "Age")

	assert.Equal(t, "[integer] > ", r.Prompt(snap))
	assert.Equal(t, ">>> saved", r.Notice("saved"))
}

func TestPrintBanner(t *testing.T) {
	var buf bytes.Buffer
	PrintBanner(&buf, "1.2.3")
	assert.Contains(t, buf.String(), "v1.2.3")
}
