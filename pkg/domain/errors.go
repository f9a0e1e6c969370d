package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrResultNotFound is returned when no usable cached result exists for a run.
	ErrResultNotFound = errors.New("result not found")
	// ErrDefinitionNotFound is returned when a loader has no definition with the given name.
	ErrDefinitionNotFound = errors.New("definition not found")
	// ErrUnknownNodeType is returned when a definition uses an unsupported "type".
	ErrUnknownNodeType = errors.New("unknown node type")
	// ErrDuplicateIdentifier is returned when two siblings share an identifier.
	ErrDuplicateIdentifier = errors.New("duplicate identifier")
	// ErrCyclicSkip is returned when a skip target does not lie after its source.
	ErrCyclicSkip = errors.New("skip target does not move forward")
	// ErrNestedAssessment is returned when an assessment appears below the root.
	ErrNestedAssessment = errors.New("assessment nested inside a tree")
	// ErrEmptyBranch is returned when a section or assessment has no children.
	ErrEmptyBranch = errors.New("branch has no children")
	// ErrRunFinished is returned when navigating a run that already ended.
	ErrRunFinished = errors.New("run already finished")
	// ErrNotActive is returned when navigating a branch that is not active.
	ErrNotActive = errors.New("branch is not active")
	// ErrNotAQuestion is returned when answering a step that collects no answer.
	ErrNotAQuestion = errors.New("current step is not a question")
	// ErrResumeNotAllowed is returned when resuming an assessment that forbids it.
	ErrResumeNotAllowed = errors.New("assessment cannot be resumed")
	// ErrBackNotAllowed is returned when the current step has no reachable predecessor
	// or hides the backward control.
	ErrBackNotAllowed = errors.New("cannot go back from current step")
	// ErrIncompatibleResult is returned when a cached result does not fit the assessment.
	ErrIncompatibleResult = errors.New("result does not match assessment")
)

// ValidationError is a single problem found in an assessment tree.
type ValidationError struct {
	Path    string // Slash-separated identifiers from the root
	Reason  string // Human-readable reason
	Err     error  // Sentinel for errors.Is, may be nil
	Warning bool   // Warnings do not reject the tree
}

func (e *ValidationError) Error() string {
	level := "error"
	if e.Warning {
		level = "warning"
	}
	return fmt.Sprintf("%s at %q: %s", level, e.Path, e.Reason)
}

func (e *ValidationError) Unwrap() error { return e.Err }

// AggregateError represents multiple validation failures.
type AggregateError struct {
	Errors []error
}

func (e *AggregateError) Error() string {
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%d validation errors:\n", len(e.Errors))
	for i, err := range e.Errors {
		fmt.Fprintf(&b, "  %d. %s\n", i+1, err.Error())
	}
	return b.String()
}

func (e *AggregateError) Unwrap() []error { return e.Errors }

// ValidationErrors returns all validation errors if err is an AggregateError.
// Otherwise returns nil.
func ValidationErrors(err error) []error {
	var aggr *AggregateError
	if errors.As(err, &aggr) {
		return aggr.Errors
	}
	return nil
}
