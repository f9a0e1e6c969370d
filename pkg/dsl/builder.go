package dsl

import (
	"github.com/aretw0/arbor/internal/validator"
	"github.com/aretw0/arbor/pkg/answer"
	"github.com/aretw0/arbor/pkg/domain"
)

// Builder manages the construction of an assessment.
type Builder struct {
	container
	a *domain.Assessment
}

// New creates a builder for an assessment with the given identifier.
func New(id string) *Builder {
	a := &domain.Assessment{Interruption: domain.DefaultInterruptionHandling()}
	a.Identifier = id
	return &Builder{container: container{children: &a.Children}, a: a}
}

// Title sets the title of the assessment.
func (b *Builder) Title(title string) *Builder {
	b.a.Title = title
	return b
}

// Version sets the version string copied to every result.
func (b *Builder) Version(v string) *Builder {
	b.a.VersionString = v
	return b
}

// Interruption replaces the default interruption handling.
func (b *Builder) Interruption(h domain.InterruptionHandling) *Builder {
	b.a.Interruption = h
	return b
}

// Build validates the tree and returns it. Warnings are returned alongside
// a valid tree; errors reject it.
func (b *Builder) Build() (*domain.Assessment, []*domain.ValidationError, error) {
	report := validator.Validate(b.a)
	if err := report.Err(); err != nil {
		return nil, report.Warnings, err
	}
	return b.a, report.Warnings, nil
}

// container adds children to a branch.
type container struct {
	children *[]domain.Node
}

func (c container) add(n domain.Node) {
	*c.children = append(*c.children, n)
}

// Instruction adds an instruction step.
func (c container) Instruction(id string) *StepBuilder {
	return c.step(id, domain.StepInstruction)
}

// Overview adds an overview step.
func (c container) Overview(id string) *StepBuilder {
	return c.step(id, domain.StepOverview)
}

// Completion adds a completion step.
func (c container) Completion(id string) *StepBuilder {
	return c.step(id, domain.StepCompletion)
}

func (c container) step(id string, typ domain.StepType) *StepBuilder {
	s := &domain.Step{StepType: typ}
	s.Identifier = id
	c.add(s)
	return &StepBuilder{s: s}
}

// Question adds a simple question answered with typ.
func (c container) Question(id string, typ answer.Type) *QuestionBuilder {
	q := &domain.Question{QuestionType: domain.QuestionSimple, AnswerType: typ}
	q.Identifier = id
	c.add(q)
	return &QuestionBuilder{q: q}
}

// Choice adds a choice question with one input field offering choices.
func (c container) Choice(id string, typ answer.Type, choices ...domain.ChoiceOption) *QuestionBuilder {
	q := &domain.Question{
		QuestionType: domain.QuestionChoice,
		AnswerType:   typ,
		InputFields:  []domain.InputField{{Choices: choices}},
	}
	q.Identifier = id
	c.add(q)
	return &QuestionBuilder{q: q}
}

// Section adds a nested section and returns its builder.
func (c container) Section(id string) *SectionBuilder {
	s := &domain.Section{}
	s.Identifier = id
	c.add(s)
	return &SectionBuilder{container: container{children: &s.Children}, s: s}
}
