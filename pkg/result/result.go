package result

import (
	"time"

	"github.com/aretw0/arbor/pkg/answer"
)

// Direction records how traversal arrived at a node.
type Direction string

const (
	Forward  Direction = "forward"
	Backward Direction = "backward"
	Exit     Direction = "exit"
)

// Type discriminators written to the "type" field.
const (
	TypeBase       = "base"
	TypeAnswer     = "answer"
	TypeCollection = "collection"
	TypeSection    = "section"
	TypeAssessment = "assessment"
)

// PathMarker is one entry of the traversal history of a branch.
type PathMarker struct {
	Identifier string    `json:"identifier"`
	Direction  Direction `json:"direction"`
}

// Result is the runtime output mirroring a visited node.
// The set of implementations is closed; see the Type constants.
type Result interface {
	// Common exposes the fields shared by every result.
	Common() *Base
	// TypeName returns the serialization discriminator.
	TypeName() string
	// Clone returns a deep copy.
	Clone() Result

	sealed()
}

// Base holds the fields shared by every result. It is also the result
// produced by plain steps.
type Base struct {
	Identifier string
	StartDate  time.Time
	// EndDate is nil while the node is current.
	EndDate *time.Time
}

// NewBase returns a result started at the given time.
func NewBase(identifier string, start time.Time) *Base {
	return &Base{Identifier: identifier, StartDate: start}
}

func (b *Base) Common() *Base { return b }

func (b *Base) TypeName() string { return TypeBase }

func (b *Base) Clone() Result { return b.clone() }

func (b *Base) sealed() {}

func (b *Base) clone() *Base {
	c := *b
	if b.EndDate != nil {
		end := *b.EndDate
		c.EndDate = &end
	}
	return &c
}

// Finish marks the node as left at t.
func (b *Base) Finish(t time.Time) { b.EndDate = &t }

// Reopen clears the end date of a node that becomes current again.
func (b *Base) Reopen() { b.EndDate = nil }

// IsOpen reports whether the node is still in progress.
func (b *Base) IsOpen() bool { return b.EndDate == nil }

// AnswerResult holds the answer collected by a question.
type AnswerResult struct {
	Base
	AnswerType answer.Type
	// Value is the typed answer; nil when the question was skipped.
	Value any
}

// NewAnswer returns an empty answer started at the given time.
func NewAnswer(identifier string, typ answer.Type, start time.Time) *AnswerResult {
	return &AnswerResult{Base: Base{Identifier: identifier, StartDate: start}, AnswerType: typ}
}

func (a *AnswerResult) TypeName() string { return TypeAnswer }

func (a *AnswerResult) Clone() Result {
	c := *a
	c.Base = *a.Base.clone()
	c.Value = cloneValue(a.Value)
	return &c
}

// SetValue decodes value against the declared answer type and stores it.
// On a type mismatch the stored value is cleared and the error returned.
func (a *AnswerResult) SetValue(value any) error {
	if a.AnswerType == nil {
		a.Value = value
		return nil
	}
	typed, err := a.AnswerType.Decode(value)
	if err != nil {
		a.Value = nil
		return err
	}
	a.Value = typed
	return nil
}

// CollectionResult holds an ordered set of child results keyed by identifier.
type CollectionResult struct {
	Base
	Children []Result
}

// NewCollection returns an empty collection started at the given time.
func NewCollection(identifier string, start time.Time) *CollectionResult {
	return &CollectionResult{Base: Base{Identifier: identifier, StartDate: start}}
}

func (c *CollectionResult) TypeName() string { return TypeCollection }

func (c *CollectionResult) Clone() Result {
	out := c.cloneCollection()
	return &out
}

func (c *CollectionResult) cloneCollection() CollectionResult {
	out := CollectionResult{Base: *c.Base.clone()}
	out.Children = cloneAll(c.Children)
	return out
}

// Child returns the child with the given identifier.
func (c *CollectionResult) Child(identifier string) Result {
	for _, child := range c.Children {
		if child.Common().Identifier == identifier {
			return child
		}
	}
	return nil
}

// Insert adds r, replacing any child with the same identifier in place.
// It returns the displaced child, if any.
func (c *CollectionResult) Insert(r Result) Result {
	id := r.Common().Identifier
	for i, child := range c.Children {
		if child.Common().Identifier == id {
			c.Children[i] = r
			return child
		}
	}
	c.Children = append(c.Children, r)
	return nil
}

// Remove deletes the child with the given identifier and returns it.
func (c *CollectionResult) Remove(identifier string) Result {
	for i, child := range c.Children {
		if child.Common().Identifier == identifier {
			c.Children = append(c.Children[:i], c.Children[i+1:]...)
			if len(c.Children) == 0 {
				c.Children = nil
			}
			return child
		}
	}
	return nil
}

// BranchResult is the result of a section. PathHistory holds the result of
// every node actually visited and Path the matching markers; both always
// have the same length. Children hold async action results.
type BranchResult struct {
	CollectionResult
	PathHistory []Result
	Path        []PathMarker
}

// NewBranch returns an empty branch result started at the given time.
func NewBranch(identifier string, start time.Time) *BranchResult {
	return &BranchResult{CollectionResult: CollectionResult{Base: Base{Identifier: identifier, StartDate: start}}}
}

func (b *BranchResult) TypeName() string { return TypeSection }

func (b *BranchResult) Clone() Result {
	out := b.cloneBranch()
	return &out
}

func (b *BranchResult) cloneBranch() BranchResult {
	out := BranchResult{CollectionResult: b.cloneCollection()}
	out.PathHistory = cloneAll(b.PathHistory)
	if b.Path != nil {
		out.Path = append([]PathMarker(nil), b.Path...)
	}
	return out
}

// Branch returns the branch part of r when r is a section or assessment result.
func Branch(r Result) (*BranchResult, bool) {
	switch v := r.(type) {
	case *BranchResult:
		return v, true
	case *AssessmentResult:
		return &v.BranchResult, true
	default:
		return nil, false
	}
}

// Append records a visit to the node identified by identifier whose result is r.
func (b *BranchResult) Append(identifier string, r Result, dir Direction) {
	b.PathHistory = append(b.PathHistory, r)
	b.Path = append(b.Path, PathMarker{Identifier: identifier, Direction: dir})
}

// Truncate keeps the first n entries of the path and returns the removed results.
func (b *BranchResult) Truncate(n int) []Result {
	if n >= len(b.PathHistory) {
		return nil
	}
	removed := append([]Result(nil), b.PathHistory[n:]...)
	if n <= 0 {
		b.PathHistory, b.Path = nil, nil
		return removed
	}
	b.PathHistory = b.PathHistory[:n]
	b.Path = b.Path[:n]
	return removed
}

// LastIndex returns the position of the newest path entry for identifier, or -1.
func (b *BranchResult) LastIndex(identifier string) int {
	for i := len(b.Path) - 1; i >= 0; i-- {
		if b.Path[i].Identifier == identifier {
			return i
		}
	}
	return -1
}

// Last returns the newest path entry, or nil when nothing was visited.
func (b *BranchResult) Last() Result {
	if len(b.PathHistory) == 0 {
		return nil
	}
	return b.PathHistory[len(b.PathHistory)-1]
}

// Latest returns the newest result recorded for identifier.
func (b *BranchResult) Latest(identifier string) Result {
	if i := b.LastIndex(identifier); i >= 0 {
		return b.PathHistory[i]
	}
	return nil
}

// AssessmentResult is the root of a result tree.
type AssessmentResult struct {
	BranchResult
	RunID                string
	VersionString        string
	AssessmentIdentifier string
}

// NewAssessment returns an empty assessment result started at the given time.
func NewAssessment(identifier, runID string, start time.Time) *AssessmentResult {
	return &AssessmentResult{
		BranchResult:         *NewBranch(identifier, start),
		RunID:                runID,
		AssessmentIdentifier: identifier,
	}
}

func (a *AssessmentResult) TypeName() string { return TypeAssessment }

func (a *AssessmentResult) Clone() Result {
	c := *a
	c.BranchResult = a.cloneBranch()
	return &c
}

func cloneAll(results []Result) []Result {
	if results == nil {
		return nil
	}
	out := make([]Result, len(results))
	for i, r := range results {
		out[i] = r.Clone()
	}
	return out
}

func cloneValue(v any) any {
	switch val := v.(type) {
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = cloneValue(item)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[k] = cloneValue(item)
		}
		return out
	default:
		return v
	}
}
