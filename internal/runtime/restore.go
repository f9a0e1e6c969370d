package runtime

import (
	"context"
	"fmt"

	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/navigation"
	"github.com/aretw0/arbor/pkg/result"
)

// restore rebuilds the position from the recorded path without evaluating
// survey rules. It lands on the open last entry, or on the declared
// successor of a completed one.
func (s *BranchState) restore(ctx context.Context) (outcome, error) {
	s.level = Active

	n := len(s.result.Path)
	if n == 0 {
		return s.follow(ctx, s.nav.Start(s.result)), nil
	}

	marker := s.result.Path[n-1]
	node := s.nav.Node(marker.Identifier)
	if node == nil {
		return outcome{}, fmt.Errorf("%w: %s has no child %q", domain.ErrIncompatibleResult, s.node.Common().Identifier, marker.Identifier)
	}
	s.current = node
	s.direction = result.Forward

	last := s.result.PathHistory[n-1]
	if last.Common().IsOpen() {
		bn, isBranch := node.(domain.BranchNode)
		if !isBranch {
			return outcome{signal: moved}, nil
		}
		if _, ok := result.Branch(last); !ok {
			return outcome{}, fmt.Errorf("%w: %q recorded a %s result", domain.ErrIncompatibleResult, marker.Identifier, last.TypeName())
		}
		child := s.nest(bn, last)
		s.child = child
		out, err := child.restore(ctx)
		if err != nil || out.signal == moved {
			return out, err
		}
		s.child = nil
	}

	return s.follow(ctx, s.successor(node)), nil
}

// successor returns the point for the sibling declared after node.
func (s *BranchState) successor(node domain.Node) navigation.Point {
	children := s.node.ChildNodes()
	for i, child := range children {
		if child == node && i+1 < len(children) {
			return s.nav.Resolve(children[i+1].Common().Identifier)
		}
	}
	return s.nav.Resolve(domain.SkipNextSection)
}
