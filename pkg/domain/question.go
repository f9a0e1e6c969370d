package domain

import (
	"time"

	"github.com/aretw0/arbor/pkg/answer"
	"github.com/aretw0/arbor/pkg/result"
)

// QuestionType distinguishes the kinds of questions.
type QuestionType string

const (
	QuestionSimple QuestionType = "simpleQuestion"
	QuestionChoice QuestionType = "choiceQuestion"
	QuestionText   QuestionType = "textQuestion"
)

// ChoiceOption is one selectable answer of a choice question.
type ChoiceOption struct {
	Value     any    `json:"value,omitempty" mapstructure:"value"`
	Text      string `json:"text,omitempty" mapstructure:"text"`
	Exclusive bool   `json:"exclusive,omitempty" mapstructure:"exclusive"`
}

// InputField describes one input of a question.
type InputField struct {
	Identifier  string         `json:"identifier,omitempty" mapstructure:"identifier"`
	FieldLabel  string         `json:"fieldLabel,omitempty" mapstructure:"fieldLabel"`
	Placeholder string         `json:"placeholder,omitempty" mapstructure:"placeholder"`
	Optional    bool           `json:"optional,omitempty" mapstructure:"optional"`
	Choices     []ChoiceOption `json:"choices,omitempty" mapstructure:"choices"`
}

// Question is a step that collects a typed answer.
type Question struct {
	NodeBase     `mapstructure:",squash"`
	Content      `mapstructure:",squash"`
	QuestionType QuestionType `json:"type" mapstructure:"type"`
	InputFields  []InputField `json:"inputFields,omitempty" mapstructure:"inputFields"`
	AnswerType   answer.Type  `json:"-" mapstructure:"-"`
	Optional     bool         `json:"optional,omitempty" mapstructure:"optional"`
	SurveyRules  []SurveyRule `json:"surveyRules,omitempty" mapstructure:"surveyRules"`
}

func (q *Question) TypeName() string {
	if q.QuestionType == "" {
		return string(QuestionSimple)
	}
	return string(q.QuestionType)
}

func (q *Question) CreateResult(start time.Time) result.Result {
	return result.NewAnswer(q.ResultID(), q.AnswerType, start)
}
