// Package metrics exposes the control loop's prometheus instrumentation.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// CyclesTotal counts completed control cycles by outcome.
	CyclesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "mpc",
		Name:      "cycles_total",
		Help:      "Control cycles by outcome (ok, solver_failure, non_finite, error).",
	}, []string{"outcome"})

	// SolverFailuresTotal counts nonzero solver statuses by phase.
	SolverFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "mpc",
		Name:      "solver_failures_total",
		Help:      "Nonzero solver statuses by phase (preparation, feedback).",
	}, []string{"phase"})

	// TrajectoryRejectionsTotal counts reference trajectories rejected by
	// validation.
	TrajectoryRejectionsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "mpc",
		Name:      "trajectory_rejections_total",
		Help:      "Reference trajectories rejected by validation.",
	})

	// CycleDuration observes wall time per control cycle.
	CycleDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "mpc",
		Name:      "cycle_duration_seconds",
		Help:      "Wall time of one control cycle.",
		Buckets:   prometheus.ExponentialBuckets(100e-6, 2, 12),
	})

	// SolveIterations observes backend iteration counts per solve.
	SolveIterations = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "mpc",
		Name:      "solve_iterations",
		Help:      "Backend iterations per solve (zero when unavailable).",
		Buckets:   prometheus.LinearBuckets(0, 5, 10),
	})
)

// Handler serves the default prometheus registry.
func Handler() http.Handler { return promhttp.Handler() }
