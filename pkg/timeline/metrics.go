package timeline

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// investigationsStarted counts accepted investigations.
	investigationsStarted = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "crosscheck",
		Subsystem: "orchestrator",
		Name:      "investigations_started_total",
		Help:      "Total investigations accepted by start()",
	})

	// investigationsFinished counts terminal outcomes by state.
	// Labels: state (COMPLETED, PARTIAL, FAILED)
	investigationsFinished = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "crosscheck",
		Subsystem: "orchestrator",
		Name:      "investigations_finished_total",
		Help:      "Total investigations reaching a terminal state",
	}, []string{"state"})

	// investigationsActive tracks currently-running investigations.
	investigationsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "crosscheck",
		Subsystem: "orchestrator",
		Name:      "investigations_active",
		Help:      "Investigations currently in a non-terminal state",
	})

	// phaseDuration measures per-phase wall time.
	// Labels: phase
	phaseDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "crosscheck",
		Subsystem: "orchestrator",
		Name:      "phase_duration_seconds",
		Help:      "Wall time spent in each investigation phase",
		Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 15, 30, 60, 120, 300},
	}, []string{"phase"})

	// agentCalls counts entity×domain agent calls by domain and status.
	// Labels: domain, status (succeeded, failed, timeout)
	agentCalls = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "crosscheck",
		Subsystem: "coordinator",
		Name:      "agent_calls_total",
		Help:      "Entity-domain agent calls by terminal status",
	}, []string{"domain", "status"})
)
