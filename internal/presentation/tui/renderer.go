package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/muesli/termenv"

	"github.com/aretw0/arbor/pkg/ports"
)

// Renderer turns run snapshots into terminal text.
type Renderer struct {
	md      *glamour.TermRenderer
	profile termenv.Profile
}

// NewRenderer returns a renderer. Plain output skips colors and markdown
// styling, for pipes and tests.
func NewRenderer(plain bool) (*Renderer, error) {
	style := glamour.WithAutoStyle()
	profile := termenv.ColorProfile()
	if plain {
		style = glamour.WithStandardStyle("notty")
		profile = termenv.Ascii
	}
	md, err := glamour.NewTermRenderer(style, glamour.WithWordWrap(80))
	if err != nil {
		return nil, fmt.Errorf("failed to init markdown renderer: %w", err)
	}
	return &Renderer{md: md, profile: profile}, nil
}

// Step renders the current step of snap.
func (r *Renderer) Step(snap *ports.RunSnapshot) (string, error) {
	out, err := r.md.Render(Markdown(snap))
	if err != nil {
		return "", err
	}
	return out, nil
}

// Prompt returns the input prompt for the current step.
func (r *Renderer) Prompt(snap *ports.RunSnapshot) string {
	label := "> "
	if snap.Step != nil && snap.Step.AnswerType != nil {
		label = fmt.Sprintf("[%v] > ", snap.Step.AnswerType["type"])
	}
	return r.profile.String(label).Foreground(r.profile.Color("#a78bfa")).Bold().String()
}

// Notice styles a one-line system message.
func (r *Renderer) Notice(format string, args ...any) string {
	return r.profile.String(">>> " + fmt.Sprintf(format, args...)).Foreground(r.profile.Color("#818cf8")).String()
}

// Markdown describes the current step of snap as markdown.
func Markdown(snap *ports.RunSnapshot) string {
	var b strings.Builder
	if snap.Progress != nil && snap.Progress.Total > 0 {
		approx := ""
		if snap.Progress.IsEstimated {
			approx = "~"
		}
		fmt.Fprintf(&b, "*Step %d of %s%d*\n\n", snap.Progress.Current, approx, snap.Progress.Total)
	}

	step := snap.Step
	if step == nil {
		b.WriteString("*Nothing to show.*\n")
		return b.String()
	}

	title := step.Title
	if title == "" {
		title = step.Identifier
	}
	fmt.Fprintf(&b, "# %s\n\n", title)
	if step.Subtitle != "" {
		fmt.Fprintf(&b, "**%s**\n\n", step.Subtitle)
	}
	if step.Detail != "" {
		fmt.Fprintf(&b, "%s\n\n", step.Detail)
	}

	for _, field := range step.InputFields {
		if field.FieldLabel != "" {
			fmt.Fprintf(&b, "**%s**", field.FieldLabel)
			if field.Placeholder != "" {
				fmt.Fprintf(&b, " (%s)", field.Placeholder)
			}
			b.WriteString("\n\n")
		}
		for _, choice := range field.Choices {
			fmt.Fprintf(&b, "- `%v` %s\n", choice.Value, choice.Text)
		}
		if len(field.Choices) > 0 {
			b.WriteString("\n")
		}
	}

	if step.Optional {
		b.WriteString("*Optional: press enter to skip.*\n\n")
	}
	if snap.Answer != nil {
		fmt.Fprintf(&b, "Current answer: `%v`\n\n", snap.Answer)
	}
	if step.Footnote != "" {
		fmt.Fprintf(&b, "---\n%s\n", step.Footnote)
	}
	return b.String()
}
