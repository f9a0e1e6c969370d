package navigation

import (
	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/result"
)

// NodeNavigator navigates the ordered children of a branch node.
type NodeNavigator struct {
	container domain.BranchNode
	children  []domain.Node
	index     map[string]int
}

// Ensure NodeNavigator implements Navigator
var _ Navigator = (*NodeNavigator)(nil)

// New creates a navigator over the children of container.
func New(container domain.BranchNode) *NodeNavigator {
	children := container.ChildNodes()
	index := make(map[string]int, len(children))
	for i, child := range children {
		// First declaration wins; duplicates are rejected by validation.
		if _, ok := index[child.Common().Identifier]; !ok {
			index[child.Common().Identifier] = i
		}
	}
	return &NodeNavigator{container: container, children: children, index: index}
}

func (n *NodeNavigator) Node(identifier string) domain.Node {
	if i, ok := n.index[identifier]; ok {
		return n.children[i]
	}
	return nil
}

func (n *NodeNavigator) Start(previous *result.BranchResult) Point {
	return n.NodeAfter(nil, previous)
}

func (n *NodeNavigator) NodeAfter(current domain.Node, branch *result.BranchResult) Point {
	if current == nil {
		if len(n.children) == 0 {
			return n.end()
		}
		return n.enter(n.children[0], true)
	}

	i, ok := n.index[current.Common().Identifier]
	if !ok {
		return n.end()
	}

	// 1. Direct jump declared on the node
	if target := current.Common().NextNodeIdentifier; target != "" {
		return n.Resolve(target)
	}

	// 2. Survey rules, first match wins
	if q, isQuestion := current.(*domain.Question); isQuestion && len(q.SurveyRules) > 0 {
		res := latest(branch, current)
		for _, rule := range q.SurveyRules {
			if target, matched := rule.Evaluate(res); matched {
				return n.Resolve(target)
			}
		}
	}

	// 3. Declared order
	if i+1 < len(n.children) {
		return n.enter(n.children[i+1], false)
	}
	return n.end()
}

func (n *NodeNavigator) NodeBefore(current domain.Node, branch *result.BranchResult) Point {
	if current == nil {
		if branch != nil && len(branch.Path) > 0 {
			if node := n.Node(branch.Path[len(branch.Path)-1].Identifier); node != nil {
				return Point{Node: node, Direction: result.Backward}
			}
		}
		if len(n.children) == 0 {
			return Point{Direction: result.Backward}
		}
		return Point{Node: n.children[len(n.children)-1], Direction: result.Backward}
	}

	id := current.Common().Identifier
	if branch != nil {
		switch j := branch.LastIndex(id); {
		case j == 0:
			return Point{Direction: result.Backward}
		case j > 0:
			if node := n.Node(branch.Path[j-1].Identifier); node != nil {
				return Point{Node: node, Direction: result.Backward}
			}
		}
	}

	if i, ok := n.index[id]; ok && i > 0 {
		return Point{Node: n.children[i-1], Direction: result.Backward}
	}
	return Point{Direction: result.Backward}
}

func (n *NodeNavigator) HasNodeAfter(current domain.Node, branch *result.BranchResult) bool {
	return n.NodeAfter(current, branch).Node != nil
}

func (n *NodeNavigator) AllowBackNavigation(current domain.Node, _ *result.BranchResult) bool {
	return current != nil && !current.Common().Hides(domain.ButtonGoBackward)
}

func (n *NodeNavigator) Progress(current domain.Node, _ *result.BranchResult) *Progress {
	if current == nil {
		return nil
	}
	i, ok := n.index[current.Common().Identifier]
	if !ok {
		return nil
	}

	if markers := n.container.ProgressMarkers(); len(markers) > 0 {
		return n.markerProgress(markers, i)
	}

	return &Progress{Current: i, Total: len(n.children), IsEstimated: n.canSkipFrom(i)}
}

func (n *NodeNavigator) markerProgress(markers []string, i int) *Progress {
	current, first, last := -1, -1, -1
	for m, id := range markers {
		pos, ok := n.index[id]
		if !ok {
			continue
		}
		if first < 0 || pos < first {
			first = pos
		}
		if pos > last {
			last = pos
		}
		if pos <= i {
			current = m
		}
	}
	if current < 0 || i > last {
		return nil
	}
	return &Progress{Current: current, Total: len(markers)}
}

// canSkipFrom reports whether any node from position i on can jump.
func (n *NodeNavigator) canSkipFrom(i int) bool {
	for _, child := range n.children[i:] {
		if child.Common().NextNodeIdentifier != "" {
			return true
		}
		if q, ok := child.(*domain.Question); ok && len(q.SurveyRules) > 0 {
			return true
		}
	}
	return false
}

// Resolve returns the point for a skip target found among the children.
func (n *NodeNavigator) Resolve(target string) Point {
	switch target {
	case domain.SkipExit:
		return Point{Direction: result.Exit, AsyncActions: n.hints(nil, n.container.AsyncActionConfigs())}
	case domain.SkipNextSection:
		return n.end()
	}
	if node := n.Node(target); node != nil {
		return n.enter(node, false)
	}
	p := n.end()
	p.Unresolved = target
	return p
}

func (n *NodeNavigator) enter(node domain.Node, first bool) Point {
	id := node.Common().Identifier
	var start, stop []domain.AsyncActionConfig
	for _, cfg := range n.container.AsyncActionConfigs() {
		if cfg.StartStepIdentifier == id || (first && cfg.StartStepIdentifier == "") {
			start = append(start, cfg)
		}
		if cfg.StopStepIdentifier == id {
			stop = append(stop, cfg)
		}
	}

	p := Point{Node: node, Direction: result.Forward, AsyncActions: n.hints(start, stop)}
	if step, ok := node.(*domain.Step); ok && step.StepType == domain.StepPermission && len(step.Permissions) > 0 {
		p.RequestedPermissions = step.Permissions
	}
	return p
}

func (n *NodeNavigator) end() Point {
	var stop []domain.AsyncActionConfig
	for _, cfg := range n.container.AsyncActionConfigs() {
		if cfg.StopStepIdentifier == "" {
			stop = append(stop, cfg)
		}
	}
	return Point{Direction: result.Forward, AsyncActions: n.hints(nil, stop)}
}

func (n *NodeNavigator) hints(start, stop []domain.AsyncActionConfig) *AsyncActionNavigation {
	if len(start) == 0 && len(stop) == 0 {
		return nil
	}
	return &AsyncActionNavigation{
		SectionIdentifier: n.container.Common().Identifier,
		Start:             start,
		Stop:              stop,
	}
}

func latest(branch *result.BranchResult, node domain.Node) result.Result {
	if branch == nil {
		return nil
	}
	return branch.Latest(node.Common().Identifier)
}
