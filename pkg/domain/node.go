package domain

import (
	"slices"
	"time"

	"github.com/aretw0/arbor/pkg/result"
)

// Reserved skip identifiers.
const (
	// SkipExit ends the assessment early.
	SkipExit = "exit"
	// SkipNextSection leaves the current section and continues with its parent.
	SkipNextSection = "nextSection"
)

// ButtonAction names a navigation control the UI may show.
type ButtonAction string

const (
	ButtonGoForward  ButtonAction = "goForward"
	ButtonGoBackward ButtonAction = "goBackward"
	ButtonSkip       ButtonAction = "skip"
	ButtonCancel     ButtonAction = "cancel"
	ButtonLearnMore  ButtonAction = "learnMore"
	ButtonPause      ButtonAction = "pause"
)

// ButtonSpec overrides how a navigation control is presented.
type ButtonSpec struct {
	ButtonTitle      string `json:"buttonTitle,omitempty" mapstructure:"buttonTitle"`
	ButtonImage      string `json:"buttonImage,omitempty" mapstructure:"buttonImage"`
	SkipToIdentifier string `json:"skipToIdentifier,omitempty" mapstructure:"skipToIdentifier"`
}

// Node is an element of the assessment tree.
// The set of implementations is closed: Step, Question, Section and Assessment.
type Node interface {
	// Common exposes the fields shared by every node.
	Common() *NodeBase
	// TypeName returns the "type" discriminator of the node.
	TypeName() string
	// CreateResult returns a new result for a visit starting at start.
	CreateResult(start time.Time) result.Result

	node()
}

// BranchNode is a node with ordered children.
type BranchNode interface {
	Node
	ChildNodes() []Node
	AsyncActionConfigs() []AsyncActionConfig
	// ProgressMarkers lists the child identifiers that count toward progress.
	ProgressMarkers() []string
}

// NodeBase holds the fields shared by every node.
type NodeBase struct {
	Identifier string `json:"identifier" mapstructure:"identifier"`
	// ResultIdentifier names the result; it defaults to Identifier.
	ResultIdentifier string `json:"resultIdentifier,omitempty" mapstructure:"resultIdentifier"`
	// Comment is not shown to participants.
	Comment         string                      `json:"comment,omitempty" mapstructure:"comment"`
	HiddenButtons   []ButtonAction              `json:"hiddenButtons,omitempty" mapstructure:"hiddenButtons"`
	ButtonOverrides map[ButtonAction]ButtonSpec `json:"buttonOverrides,omitempty" mapstructure:"buttonOverrides"`
	// NextNodeIdentifier is an unconditional jump taken when leaving the node.
	NextNodeIdentifier string `json:"nextStepIdentifier,omitempty" mapstructure:"nextStepIdentifier"`
}

func (b *NodeBase) Common() *NodeBase { return b }

func (b *NodeBase) node() {}

// ResultID returns the identifier used for the node's result.
func (b *NodeBase) ResultID() string {
	if b.ResultIdentifier != "" {
		return b.ResultIdentifier
	}
	return b.Identifier
}

// Hides reports whether the node hides the given control.
func (b *NodeBase) Hides(action ButtonAction) bool {
	return slices.Contains(b.HiddenButtons, action)
}

// Content holds the participant-facing text of a node.
type Content struct {
	Title    string `json:"title,omitempty" mapstructure:"title"`
	Subtitle string `json:"subtitle,omitempty" mapstructure:"subtitle"`
	Detail   string `json:"detail,omitempty" mapstructure:"detail"`
	Image    string `json:"image,omitempty" mapstructure:"image"`
	Footnote string `json:"footnote,omitempty" mapstructure:"footnote"`
}

// ContentOf returns the participant-facing text of n.
func ContentOf(n Node) Content {
	switch v := n.(type) {
	case *Step:
		return v.Content
	case *Question:
		return v.Content
	case *Section:
		return v.Content
	case *Assessment:
		return v.Content
	default:
		return Content{}
	}
}
