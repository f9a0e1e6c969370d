package observability

import (
	"context"
	"errors"
	"log/slog"

	"github.com/aretw0/arbor/pkg/domain"
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus collectors fed by lifecycle hooks.
type Metrics struct {
	NodeVisits   *prometheus.CounterVec
	RunsFinished *prometheus.CounterVec
	NodeDuration *prometheus.HistogramVec
}

// NewMetrics creates the collectors and registers them with reg.
// A nil reg uses prometheus.DefaultRegisterer. Collectors already registered
// by an earlier call are reused.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &Metrics{
		NodeVisits: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "arbor_node_visits_total",
				Help: "Total number of node visits",
			},
			[]string{"node_type", "direction"},
		),
		RunsFinished: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "arbor_runs_finished_total",
				Help: "Total number of finished runs by reason",
			},
			[]string{"assessment", "reason"},
		),
		NodeDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "arbor_node_duration_seconds",
				Help:    "Time spent on a node before leaving it",
				Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 900},
			},
			[]string{"node_type"},
		),
	}

	var err error
	if m.NodeVisits, err = register(reg, m.NodeVisits); err != nil {
		return nil, err
	}
	if m.RunsFinished, err = register(reg, m.RunsFinished); err != nil {
		return nil, err
	}
	if m.NodeDuration, err = register(reg, m.NodeDuration); err != nil {
		return nil, err
	}
	return m, nil
}

func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		var already prometheus.AlreadyRegisteredError
		if errors.As(err, &already) {
			if existing, ok := already.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}

// Hooks returns lifecycle hooks that feed the collectors.
func (m *Metrics) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnNodeEnter: func(ctx context.Context, e *domain.NodeEvent) {
			m.NodeVisits.WithLabelValues(e.NodeType, e.Direction).Inc()
		},
		OnNodeLeave: func(ctx context.Context, e *domain.NodeEvent) {
			if e.Duration > 0 {
				m.NodeDuration.WithLabelValues(e.NodeType).Observe(e.Duration.Seconds())
			}
		},
		OnFinish: func(ctx context.Context, e *domain.FinishEvent) {
			m.RunsFinished.WithLabelValues(e.AssessmentID, string(e.Reason.Kind)).Inc()
		},
	}
}

// LoggingHooks returns lifecycle hooks that log every event at debug level
// and finished runs at info level.
func LoggingHooks(logger *slog.Logger) domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnNodeEnter: func(ctx context.Context, e *domain.NodeEvent) {
			logger.DebugContext(ctx, "node_enter",
				"run_id", e.RunID,
				"node_id", e.NodeID,
				"type", e.NodeType,
				"direction", e.Direction,
				"depth", e.Depth,
			)
		},
		OnNodeLeave: func(ctx context.Context, e *domain.NodeEvent) {
			logger.DebugContext(ctx, "node_leave", "run_id", e.RunID, "node_id", e.NodeID)
		},
		OnFinish: func(ctx context.Context, e *domain.FinishEvent) {
			logger.InfoContext(ctx, "run_finish",
				"run_id", e.RunID,
				"assessment", e.AssessmentID,
				"reason", e.Reason.String(),
			)
		},
	}
}
