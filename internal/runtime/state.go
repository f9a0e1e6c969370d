package runtime

import (
	"context"
	"fmt"
	"time"

	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/navigation"
	"github.com/aretw0/arbor/pkg/result"
)

// Level is the lifecycle stage of one BranchState.
type Level int

const (
	NotStarted Level = iota
	Active
	Finished
)

func (l Level) String() string {
	switch l {
	case NotStarted:
		return "not_started"
	case Active:
		return "active"
	case Finished:
		return "finished"
	default:
		return fmt.Sprintf("level(%d)", int(l))
	}
}

// signal is what a nested state reports to its owner after a move.
type signal int

const (
	// moved: the state landed on a new current node.
	moved signal = iota
	// finished: the state has nothing more to show.
	finished
	// bubbleBack: the state has no predecessor; the owner must go back.
	bubbleBack
)

type outcome struct {
	signal signal
	// exit is set when the run must end without further resolution.
	exit bool
	// unresolved is a skip target the state could not find among its children.
	unresolved string
}

// BranchState owns the position within one branch node and that node's result.
// Nested branch nodes get their own BranchState, owned by this one.
type BranchState struct {
	node   domain.BranchNode
	nav    navigation.Navigator
	result *result.BranchResult
	depth  int
	env    *env

	level     Level
	current   domain.Node
	direction result.Direction
	child     *BranchState

	// stash keeps results removed from the path so a node visited again
	// gets its earlier answer back.
	stash map[string]result.Result
}

func newBranchState(e *env, node domain.BranchNode, res *result.BranchResult, depth int) *BranchState {
	return &BranchState{
		node:   node,
		nav:    e.navigator(node),
		result: res,
		depth:  depth,
		env:    e,
		stash:  make(map[string]result.Result),
	}
}

// Level returns the lifecycle stage.
func (s *BranchState) Level() Level { return s.level }

// Current returns the child node that is current at this level.
func (s *BranchState) Current() domain.Node { return s.current }

// Result returns the branch result owned by this state.
func (s *BranchState) Result() *result.BranchResult { return s.result }

// begin enters the first child.
func (s *BranchState) begin(ctx context.Context) outcome {
	s.level = Active
	return s.follow(ctx, s.nav.Start(s.result))
}

func (s *BranchState) forward(ctx context.Context) (outcome, error) {
	if s.level != Active {
		return outcome{}, fmt.Errorf("%s: %w", s.node.Common().Identifier, domain.ErrNotActive)
	}

	if s.child != nil {
		out, err := s.child.forward(ctx)
		if err != nil || out.signal == moved {
			return out, err
		}
		return s.afterChild(ctx, out), nil
	}

	return s.follow(ctx, s.nav.NodeAfter(s.current, s.result)), nil
}

// afterChild continues at this level once the nested state is done.
func (s *BranchState) afterChild(ctx context.Context, out outcome) outcome {
	s.child = nil
	if out.exit {
		s.close(ctx)
		return outcome{signal: finished, exit: true}
	}
	if out.unresolved != "" {
		return s.follow(ctx, s.nav.Resolve(out.unresolved))
	}
	return s.follow(ctx, s.nav.NodeAfter(s.current, s.result))
}

// follow leaves the current node and moves forward to p.
func (s *BranchState) follow(ctx context.Context, p navigation.Point) outcome {
	for {
		s.env.points = append(s.env.points, p)

		switch {
		case p.Node != nil:
			s.leave(ctx)
			out, landed := s.enter(ctx, p.Node, result.Forward)
			if landed {
				return outcome{signal: moved}
			}
			// The nested branch had nothing to show.
			s.child = nil
			if out.exit {
				s.close(ctx)
				return outcome{signal: finished, exit: true}
			}
			if out.unresolved != "" {
				p = s.nav.Resolve(out.unresolved)
			} else {
				p = s.nav.NodeAfter(s.current, s.result)
			}

		case p.Direction == result.Exit:
			s.close(ctx)
			return outcome{signal: finished, exit: true}

		default:
			s.close(ctx)
			return outcome{signal: finished, unresolved: p.Unresolved}
		}
	}
}

func (s *BranchState) backward(ctx context.Context) (outcome, error) {
	if s.level != Active {
		return outcome{}, fmt.Errorf("%s: %w", s.node.Common().Identifier, domain.ErrNotActive)
	}

	if s.child != nil {
		out, err := s.child.backward(ctx)
		if err != nil || out.signal == moved {
			return out, err
		}
	} else if !s.nav.AllowBackNavigation(s.current, s.result) {
		return outcome{}, domain.ErrBackNotAllowed
	}

	for {
		p := s.nav.NodeBefore(s.current, s.result)
		if p.Node == nil {
			return outcome{signal: bubbleBack}, nil
		}
		s.env.points = append(s.env.points, p)

		if s.child != nil {
			s.child.close(ctx)
			s.child = nil
		}
		s.leave(ctx)
		if s.enterBackward(ctx, p.Node) {
			return outcome{signal: moved}, nil
		}
		// Landed on a branch with nothing to revisit; keep going back.
		s.child = nil
	}
}

// enter appends node to the path and makes it current.
// For a branch node it starts the nested state and reports whether it landed.
func (s *BranchState) enter(ctx context.Context, node domain.Node, dir result.Direction) (outcome, bool) {
	res := s.resultFor(node)
	s.push(ctx, node, res, dir)

	bn, ok := node.(domain.BranchNode)
	if !ok {
		return outcome{signal: moved}, true
	}
	child := s.nest(bn, res)
	// A reused branch result replays from the start with its old answers stashed.
	child.stashFrom(0)
	s.child = child
	out := child.begin(ctx)
	return out, out.signal == moved
}

// enterBackward truncates the path to just before node's last visit and
// re-enters node. A branch node is entered at its last visited child.
func (s *BranchState) enterBackward(ctx context.Context, node domain.Node) bool {
	id := node.Common().Identifier
	if i := s.result.LastIndex(id); i >= 0 {
		s.stashFrom(i)
	}
	res := s.resultFor(node)
	s.push(ctx, node, res, result.Backward)

	bn, ok := node.(domain.BranchNode)
	if !ok {
		return true
	}
	child := s.nest(bn, res)
	s.child = child
	child.level = Active
	for {
		p := child.nav.NodeBefore(nil, child.result)
		if p.Node == nil {
			child.close(ctx)
			return false
		}
		child.env.points = append(child.env.points, p)
		if child.enterBackward(ctx, p.Node) {
			return true
		}
		child.child = nil
	}
}

func (s *BranchState) push(ctx context.Context, node domain.Node, res result.Result, dir result.Direction) {
	s.result.Append(node.Common().Identifier, res, dir)
	s.current = node
	s.direction = dir
	s.emit(ctx, domain.EventNodeEnter, node, dir, 0)
}

func (s *BranchState) nest(node domain.BranchNode, res result.Result) *BranchState {
	br, ok := result.Branch(res)
	if !ok {
		// CreateResult of a branch node always yields a branch result.
		br = result.NewBranch(node.Common().ResultID(), s.env.now())
	}
	return newBranchState(s.env, node, br, s.depth+1)
}

// resultFor returns the stashed result for node, reopened, or a new one.
func (s *BranchState) resultFor(node domain.Node) result.Result {
	id := node.Common().Identifier
	if r, ok := s.stash[id]; ok {
		delete(s.stash, id)
		r.Common().Reopen()
		return r
	}
	return node.CreateResult(s.env.now())
}

// stashFrom removes path entries from i on and keeps their results.
func (s *BranchState) stashFrom(i int) {
	if i >= len(s.result.Path) {
		return
	}
	markers := append([]result.PathMarker(nil), s.result.Path[i:]...)
	for j, r := range s.result.Truncate(i) {
		s.stash[markers[j].Identifier] = r
	}
}

// leave finishes the current node's result.
func (s *BranchState) leave(ctx context.Context) {
	if s.current == nil {
		return
	}
	var elapsed time.Duration
	if last := s.result.Last(); last != nil && last.Common().IsOpen() {
		now := s.env.now()
		last.Common().Finish(now)
		elapsed = now.Sub(last.Common().StartDate)
	}
	s.emit(ctx, domain.EventNodeLeave, s.current, s.direction, elapsed)
}

// close leaves the current node and finishes this level.
func (s *BranchState) close(ctx context.Context) {
	if s.level == Finished {
		return
	}
	if s.child != nil {
		s.child.close(ctx)
		s.child = nil
	}
	s.leave(ctx)
	if s.result.IsOpen() {
		s.result.Finish(s.env.now())
	}
	s.level = Finished
}

func (s *BranchState) emit(ctx context.Context, typ domain.EventType, node domain.Node, dir result.Direction, elapsed time.Duration) {
	hook := s.env.hooks.OnNodeEnter
	if typ == domain.EventNodeLeave {
		hook = s.env.hooks.OnNodeLeave
	}
	if hook == nil {
		return
	}
	hook(ctx, &domain.NodeEvent{
		EventBase: domain.EventBase{Timestamp: s.env.now(), Type: typ, RunID: s.env.runID},
		NodeID:    node.Common().Identifier,
		NodeType:  node.TypeName(),
		Direction: string(dir),
		Depth:     s.depth,
		Duration:  elapsed,
	})
}
