package domain

import (
	"context"
	"time"
)

// EventType defines the category of the event.
type EventType string

const (
	EventNodeEnter EventType = "node_enter"
	EventNodeLeave EventType = "node_leave"
	EventRunFinish EventType = "run_finish"
)

// EventBase contains common fields for all events.
type EventBase struct {
	Timestamp time.Time `json:"timestamp"`
	Type      EventType `json:"type"`
	RunID     string    `json:"run_id"`
}

// NodeEvent represents entry into or exit from a node.
type NodeEvent struct {
	EventBase
	NodeID    string `json:"node_id"`
	NodeType  string `json:"node_type"`
	Direction string `json:"direction"`
	// Depth is zero for children of the assessment root.
	Depth int `json:"depth"`
	// Duration is the time spent on the node; set on leave events only.
	Duration time.Duration `json:"duration,omitempty"`
}

// FinishEvent represents the end of a run.
type FinishEvent struct {
	EventBase
	AssessmentID string       `json:"assessment_id"`
	Reason       FinishReason `json:"reason"`
}

// LifecycleHooks defines callbacks for run observability.
type LifecycleHooks struct {
	OnNodeEnter func(context.Context, *NodeEvent)
	OnNodeLeave func(context.Context, *NodeEvent)
	OnFinish    func(context.Context, *FinishEvent)
}

// Merge returns hooks that call h and then other.
func (h LifecycleHooks) Merge(other LifecycleHooks) LifecycleHooks {
	return LifecycleHooks{
		OnNodeEnter: chain(h.OnNodeEnter, other.OnNodeEnter),
		OnNodeLeave: chain(h.OnNodeLeave, other.OnNodeLeave),
		OnFinish:    chain(h.OnFinish, other.OnFinish),
	}
}

func chain[E any](a, b func(context.Context, E)) func(context.Context, E) {
	switch {
	case a == nil:
		return b
	case b == nil:
		return a
	}
	return func(ctx context.Context, e E) {
		a(ctx, e)
		b(ctx, e)
	}
}
