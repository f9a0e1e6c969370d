package dsl

import "github.com/aretw0/arbor/pkg/domain"

// StepBuilder provides a fluent API for configuring a step.
type StepBuilder struct {
	s *domain.Step
}

// Title sets the title of the step.
func (b *StepBuilder) Title(title string) *StepBuilder {
	b.s.Title = title
	return b
}

// Detail sets the body text of the step.
func (b *StepBuilder) Detail(detail string) *StepBuilder {
	b.s.Detail = detail
	return b
}

// Next jumps to target when leaving the step.
func (b *StepBuilder) Next(target string) *StepBuilder {
	b.s.NextNodeIdentifier = target
	return b
}

// Hide hides navigation controls while the step is shown.
func (b *StepBuilder) Hide(actions ...domain.ButtonAction) *StepBuilder {
	b.s.HiddenButtons = append(b.s.HiddenButtons, actions...)
	return b
}

// Build returns the underlying step.
func (b *StepBuilder) Build() *domain.Step {
	return b.s
}

// QuestionBuilder provides a fluent API for configuring a question.
type QuestionBuilder struct {
	q *domain.Question
}

// Title sets the prompt of the question.
func (b *QuestionBuilder) Title(title string) *QuestionBuilder {
	b.q.Title = title
	return b
}

// Detail sets the body text of the question.
func (b *QuestionBuilder) Detail(detail string) *QuestionBuilder {
	b.q.Detail = detail
	return b
}

// Optional lets the participant move on without answering.
func (b *QuestionBuilder) Optional() *QuestionBuilder {
	b.q.Optional = true
	return b
}

// SkipIf adds a survey rule that skips to target when the answer compares
// to value with op. Rules are evaluated in the order they are added.
func (b *QuestionBuilder) SkipIf(op domain.RuleOperator, value any, target string) *QuestionBuilder {
	b.q.SurveyRules = append(b.q.SurveyRules, domain.SurveyRule{
		RuleOperator:     op,
		MatchingValue:    value,
		SkipToIdentifier: target,
	})
	return b
}

// SkipAlways adds an unconditional survey rule.
func (b *QuestionBuilder) SkipAlways(target string) *QuestionBuilder {
	return b.SkipIf(domain.OpAlways, nil, target)
}

// Next jumps to target when no survey rule matches.
func (b *QuestionBuilder) Next(target string) *QuestionBuilder {
	b.q.NextNodeIdentifier = target
	return b
}

// Build returns the underlying question.
func (b *QuestionBuilder) Build() *domain.Question {
	return b.q
}

// SectionBuilder adds children to a section.
type SectionBuilder struct {
	container
	s *domain.Section
}

// Title sets the title of the section.
func (b *SectionBuilder) Title(title string) *SectionBuilder {
	b.s.Title = title
	return b
}

// ProgressMarkers lists the children that count toward progress.
func (b *SectionBuilder) ProgressMarkers(ids ...string) *SectionBuilder {
	b.s.Markers = ids
	return b
}

// Next jumps to target when leaving the section.
func (b *SectionBuilder) Next(target string) *SectionBuilder {
	b.s.NextNodeIdentifier = target
	return b
}
