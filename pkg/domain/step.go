package domain

import (
	"time"

	"github.com/aretw0/arbor/pkg/result"
)

// StepType distinguishes the kinds of plain steps.
type StepType string

const (
	StepInstruction StepType = "instruction"
	StepOverview    StepType = "overview"
	StepCompletion  StepType = "completion"
	StepPermission  StepType = "permission"
)

// Permission describes a device permission requested before or during a run.
type Permission struct {
	PermissionType string `json:"permissionType" mapstructure:"permissionType"`
	Optional       bool   `json:"optional,omitempty" mapstructure:"optional"`
	Reason         string `json:"reason,omitempty" mapstructure:"reason"`
}

// Step is a leaf node that produces a plain result.
type Step struct {
	NodeBase `mapstructure:",squash"`
	Content  `mapstructure:",squash"`
	StepType StepType `json:"type" mapstructure:"type"`
	// Permissions are requested when a permission step becomes current.
	Permissions []Permission `json:"permissions,omitempty" mapstructure:"permissions"`
}

func (s *Step) TypeName() string {
	if s.StepType == "" {
		return string(StepInstruction)
	}
	return string(s.StepType)
}

func (s *Step) CreateResult(start time.Time) result.Result {
	return result.NewBase(s.ResultID(), start)
}
