package domain

import (
	"time"

	"github.com/aretw0/arbor/pkg/result"
)

// Node type discriminators for branch nodes.
const (
	TypeSection    = "section"
	TypeAssessment = "assessment"
)

// AsyncActionConfig describes a background action (a sensor recorder or a
// web call) whose lifetime is bound to navigation within a section.
type AsyncActionConfig struct {
	Identifier string `json:"identifier" mapstructure:"identifier"`
	ActionType string `json:"type,omitempty" mapstructure:"type"`
	// StartStepIdentifier starts the action when that step becomes current.
	// Empty starts it when the section starts.
	StartStepIdentifier string `json:"startStepIdentifier,omitempty" mapstructure:"startStepIdentifier"`
	// StopStepIdentifier stops the action when that step becomes current.
	// Empty stops it when the section ends.
	StopStepIdentifier string         `json:"stopStepIdentifier,omitempty" mapstructure:"stopStepIdentifier"`
	Permissions        []Permission   `json:"permissions,omitempty" mapstructure:"permissions"`
	Config             map[string]any `json:"config,omitempty" mapstructure:"config"`
}

// Section groups children under one branch result.
type Section struct {
	NodeBase     `mapstructure:",squash"`
	Content      `mapstructure:",squash"`
	Children     []Node              `json:"-" mapstructure:"-"`
	AsyncActions []AsyncActionConfig `json:"asyncActions,omitempty" mapstructure:"asyncActions"`
	Markers      []string            `json:"progressMarkers,omitempty" mapstructure:"progressMarkers"`
}

func (s *Section) TypeName() string { return TypeSection }

func (s *Section) CreateResult(start time.Time) result.Result {
	return result.NewBranch(s.ResultID(), start)
}

func (s *Section) ChildNodes() []Node { return s.Children }

func (s *Section) AsyncActionConfigs() []AsyncActionConfig { return s.AsyncActions }

func (s *Section) ProgressMarkers() []string { return s.Markers }

// InterruptionHandling declares what a participant may do when a run is interrupted.
type InterruptionHandling struct {
	CanResume        bool   `json:"canResume" mapstructure:"canResume"`
	CanSaveForLater  bool   `json:"canSaveForLater" mapstructure:"canSaveForLater"`
	CanSkip          bool   `json:"canSkip" mapstructure:"canSkip"`
	ReviewIdentifier string `json:"reviewIdentifier,omitempty" mapstructure:"reviewIdentifier"`
}

// DefaultInterruptionHandling allows resuming and saving.
func DefaultInterruptionHandling() InterruptionHandling {
	return InterruptionHandling{CanResume: true, CanSaveForLater: true, CanSkip: true}
}

// Assessment is the root of a tree. It is never a child of another node.
type Assessment struct {
	Section          `mapstructure:",squash"`
	VersionString    string               `json:"versionString,omitempty" mapstructure:"versionString"`
	EstimatedMinutes int                  `json:"estimatedMinutes,omitempty" mapstructure:"estimatedMinutes"`
	Copyright        string               `json:"copyright,omitempty" mapstructure:"copyright"`
	Interruption     InterruptionHandling `json:"interruptionHandling" mapstructure:"interruptionHandling"`
}

func (a *Assessment) TypeName() string { return TypeAssessment }

func (a *Assessment) CreateResult(start time.Time) result.Result {
	r := result.NewAssessment(a.ResultID(), "", start)
	r.VersionString = a.VersionString
	return r
}
