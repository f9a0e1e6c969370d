package ports

import (
	"context"

	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/navigation"
	"github.com/aretw0/arbor/pkg/result"
)

// RunService is the driving port shared by the HTTP and MCP transports.
// Every method that changes a run persists its result before returning.
type RunService interface {
	// Assessments lists the names of the definitions that can be started.
	Assessments(ctx context.Context) ([]string, error)

	// Start begins a run of the named assessment. When runID names a cached
	// partial result, the run resumes from it if the assessment allows it.
	// An empty runID generates a new one.
	Start(ctx context.Context, assessment, runID string) (*RunSnapshot, error)

	// Get returns the current state of a run.
	Get(ctx context.Context, runID string) (*RunSnapshot, error)

	// Answer stores value as the answer to the current question.
	Answer(ctx context.Context, runID string, value any) (*RunSnapshot, error)

	// Forward moves to the next step.
	Forward(ctx context.Context, runID string) (*RunSnapshot, error)

	// Backward moves to the previous step.
	Backward(ctx context.Context, runID string) (*RunSnapshot, error)

	// Exit ends the run early.
	Exit(ctx context.Context, runID string, reason domain.FinishReason) (*RunSnapshot, error)

	// Result returns a copy of the result tree of a run.
	Result(ctx context.Context, runID string) (*result.AssessmentResult, error)
}

// StepView is the participant-facing description of the current step.
type StepView struct {
	Identifier string `json:"identifier"`
	Type       string `json:"type"`
	domain.Content
	// AnswerType is the structured answer type of a question.
	AnswerType      map[string]any                            `json:"answerType,omitempty"`
	InputFields     []domain.InputField                       `json:"inputFields,omitempty"`
	Optional        bool                                      `json:"optional,omitempty"`
	HiddenButtons   []domain.ButtonAction                     `json:"hiddenButtons,omitempty"`
	ButtonOverrides map[domain.ButtonAction]domain.ButtonSpec `json:"buttonOverrides,omitempty"`
}

// AsyncActionHint tells the host which background actions to start or stop.
type AsyncActionHint struct {
	Section string   `json:"section"`
	Start   []string `json:"start,omitempty"`
	Stop    []string `json:"stop,omitempty"`
}

// RunSnapshot is a read-only view of a run after an operation.
type RunSnapshot struct {
	RunID        string               `json:"runId"`
	AssessmentID string               `json:"assessmentId"`
	Step         *StepView            `json:"step,omitempty"`
	Direction    result.Direction     `json:"direction"`
	Answer       any                  `json:"answer,omitempty"`
	CanGoBack    bool                 `json:"canGoBack"`
	HasNodeAfter bool                 `json:"hasNodeAfter"`
	Progress     *navigation.Progress `json:"progress,omitempty"`
	Permissions  []domain.Permission  `json:"permissions,omitempty"`
	AsyncActions []AsyncActionHint    `json:"asyncActions,omitempty"`
	Finished     bool                 `json:"finished"`
	Reason       *domain.FinishReason `json:"reason,omitempty"`
}
