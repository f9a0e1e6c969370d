package validator

import (
	"fmt"
	"slices"

	"github.com/aretw0/arbor/pkg/domain"
)

// Report holds the problems found in a tree. Warnings never reject it.
type Report struct {
	Errors   []*domain.ValidationError
	Warnings []*domain.ValidationError
}

// Err returns the errors as a *domain.AggregateError, or nil when there are none.
func (r *Report) Err() error {
	if len(r.Errors) == 0 {
		return nil
	}
	errs := make([]error, len(r.Errors))
	for i, e := range r.Errors {
		errs[i] = e
	}
	return &domain.AggregateError{Errors: errs}
}

// Validate checks a decoded assessment for problems the runtime cannot
// recover from: duplicate siblings, skips that do not move forward, nested
// assessments and dangling references.
func Validate(a *domain.Assessment) *Report {
	v := &walker{report: &Report{}}
	if a == nil {
		v.fail("", "assessment is nil", nil)
		return v.report
	}
	if a.Identifier == "" {
		v.fail("", "assessment has no identifier", nil)
	}
	if len(a.Children) == 0 {
		v.fail(a.Identifier, "assessment has no children", domain.ErrEmptyBranch)
	}
	v.branch(a, []frame{{container: a}}, a.Identifier)
	return v.report
}

// frame is one level of the ancestor chain used to resolve skip targets.
type frame struct {
	container domain.BranchNode
	index     int // position of the active child
}

type walker struct {
	report *Report
}

func (v *walker) fail(path, reason string, err error) {
	v.report.Errors = append(v.report.Errors, &domain.ValidationError{Path: path, Reason: reason, Err: err})
}

func (v *walker) warn(path, reason string, err error) {
	v.report.Warnings = append(v.report.Warnings, &domain.ValidationError{Path: path, Reason: reason, Err: err, Warning: true})
}

func join(parent, id string) string {
	if parent == "" {
		return id
	}
	return parent + "/" + id
}

func (v *walker) branch(b domain.BranchNode, chain []frame, path string) {
	children := b.ChildNodes()

	// 1. Sibling identifiers
	ids := make(map[string]bool, len(children))
	resultIDs := make(map[string]bool, len(children))
	for _, child := range children {
		base := child.Common()
		if base.Identifier == "" {
			v.fail(path, "child has no identifier", nil)
			continue
		}
		rid := base.ResultID()
		switch {
		case ids[base.Identifier]:
			v.fail(join(path, base.Identifier), "duplicate sibling identifier", domain.ErrDuplicateIdentifier)
		case resultIDs[rid]:
			v.fail(join(path, base.Identifier), fmt.Sprintf("duplicate result identifier %q", rid), domain.ErrDuplicateIdentifier)
		}
		ids[base.Identifier] = true
		resultIDs[rid] = true
	}

	// 2. Progress markers and async actions refer to children
	for _, marker := range b.ProgressMarkers() {
		if !ids[marker] {
			v.fail(path, fmt.Sprintf("progress marker %q is not a child", marker), nil)
		}
	}
	actionIDs := make(map[string]bool)
	for _, cfg := range b.AsyncActionConfigs() {
		if actionIDs[cfg.Identifier] {
			v.fail(join(path, cfg.Identifier), "duplicate async action identifier", domain.ErrDuplicateIdentifier)
		}
		actionIDs[cfg.Identifier] = true
		for _, step := range []string{cfg.StartStepIdentifier, cfg.StopStepIdentifier} {
			if step != "" && !ids[step] {
				v.fail(join(path, cfg.Identifier), fmt.Sprintf("async action step %q is not a child", step), nil)
			}
		}
	}

	// 3. Children
	for i, child := range children {
		childPath := join(path, child.Common().Identifier)
		level := append(slices.Clone(chain[:len(chain)-1]), frame{container: b, index: i})
		v.node(child, level, childPath)

		switch c := child.(type) {
		case *domain.Assessment:
			v.fail(childPath, "assessments cannot be nested", domain.ErrNestedAssessment)
		case *domain.Section:
			if len(c.Children) == 0 {
				v.warn(childPath, "section has no children and is skipped", domain.ErrEmptyBranch)
			}
			v.branch(c, append(level, frame{container: c}), childPath)
		}
	}
}

func (v *walker) node(n domain.Node, chain []frame, path string) {
	base := n.Common()
	if base.NextNodeIdentifier != "" {
		v.target(base.NextNodeIdentifier, chain, path)
	}
	for action, spec := range base.ButtonOverrides {
		if spec.SkipToIdentifier != "" {
			v.target(spec.SkipToIdentifier, chain, fmt.Sprintf("%s/buttonOverrides/%s", path, action))
		}
	}

	switch node := n.(type) {
	case *domain.Question:
		for i, rule := range node.SurveyRules {
			rulePath := fmt.Sprintf("%s/surveyRules[%d]", path, i)
			if rule.SkipToIdentifier == "" {
				v.fail(rulePath, "rule has no skip target", nil)
				continue
			}
			v.target(rule.SkipToIdentifier, chain, rulePath)
			if rule.Operator() == domain.OpAlways && i < len(node.SurveyRules)-1 {
				v.warn(rulePath, "unconditional rule shadows the rules after it", nil)
			}
			switch rule.Operator() {
			case domain.OpEqual, domain.OpNotEqual, domain.OpLessThan, domain.OpGreaterThan,
				domain.OpLessThanEqual, domain.OpGreaterThanEqual, domain.OpAlways:
			default:
				v.fail(rulePath, fmt.Sprintf("unknown rule operator %q", rule.RuleOperator), nil)
			}
		}
	case *domain.Step:
		if node.StepType == domain.StepPermission && len(node.Permissions) == 0 {
			v.warn(path, "permission step requests no permissions", nil)
		}
	}
}

// target checks that a skip target moves strictly forward in the sibling
// list where it resolves. Unresolved targets end the run incomplete at runtime.
func (v *walker) target(id string, chain []frame, path string) {
	if id == domain.SkipExit || id == domain.SkipNextSection {
		return
	}
	for i := len(chain) - 1; i >= 0; i-- {
		f := chain[i]
		for j, sibling := range f.container.ChildNodes() {
			if sibling.Common().Identifier != id {
				continue
			}
			if j <= f.index {
				v.fail(path, fmt.Sprintf("skip target %q does not move forward", id), domain.ErrCyclicSkip)
			}
			return
		}
	}
	v.warn(path, fmt.Sprintf("skip target %q is not found in any enclosing section", id), nil)
}
