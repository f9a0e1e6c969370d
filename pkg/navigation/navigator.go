package navigation

import (
	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/result"
)

// Point is the decision returned by a Navigator.
type Point struct {
	// Node is nil when the container has nothing more to show in Direction.
	Node      domain.Node
	Direction result.Direction
	// RequestedPermissions lists permissions the host should request before showing Node.
	RequestedPermissions []domain.Permission
	// AsyncActions lists background actions to start or stop with this move.
	AsyncActions *AsyncActionNavigation
	// Unresolved holds a skip target that is not a child of this container.
	// The owner of the container resolves it against its own children.
	Unresolved string
}

// AsyncActionNavigation lists background actions affected by a move.
type AsyncActionNavigation struct {
	SectionIdentifier string
	Start             []domain.AsyncActionConfig
	Stop              []domain.AsyncActionConfig
}

// Progress describes how far a participant is through a container.
type Progress struct {
	Current int `json:"current"`
	Total   int `json:"total"`
	// IsEstimated is set when skip rules could still shorten the remaining path.
	IsEstimated bool `json:"isEstimated"`
}

// Navigator decides which child of a container comes next. Implementations
// are pure: they never mutate their arguments.
type Navigator interface {
	// Start returns the first node of the container. previous is the result
	// of an earlier run of the same container, if any.
	Start(previous *result.BranchResult) Point
	// NodeAfter returns the node to show after current. A nil current means
	// the container is being entered.
	NodeAfter(current domain.Node, branch *result.BranchResult) Point
	// NodeBefore returns the node to show before current. A nil Node means
	// there is no local predecessor and the move belongs to the parent.
	NodeBefore(current domain.Node, branch *result.BranchResult) Point
	// HasNodeAfter reports whether NodeAfter would yield a node.
	HasNodeAfter(current domain.Node, branch *result.BranchResult) bool
	// AllowBackNavigation reports whether current permits moving backward.
	AllowBackNavigation(current domain.Node, branch *result.BranchResult) bool
	// Progress returns nil when current is outside the measured range.
	Progress(current domain.Node, branch *result.BranchResult) *Progress
	// Resolve returns the point for jumping to target. Reserved targets and
	// identifiers that are not children end the container.
	Resolve(target string) Point
	// Node returns the child with the given identifier.
	Node(identifier string) domain.Node
}
