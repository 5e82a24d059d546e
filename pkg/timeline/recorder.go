// Package timeline is the cross-cutting recorder: it mirrors investigation
// lifecycle events into structured logs and Prometheus metrics, and keeps
// the in-process counters behind get_metrics().
package timeline

import (
	"log/slog"
	"sync"
	"time"

	"github.com/fraudsight/crosscheck/pkg/models"
)

// Recorder aggregates investigation counters. It is safe for concurrent use
// and shared by the orchestrator and coordinator.
type Recorder struct {
	mu            sync.Mutex
	active        int
	started       int
	completed     int
	partial       int
	failed        int
	totalDuration time.Duration
	finished      int
}

// NewRecorder creates an empty recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

// RecordStarted notes an accepted investigation.
func (r *Recorder) RecordStarted(id string) {
	r.mu.Lock()
	r.started++
	r.active++
	r.mu.Unlock()

	investigationsStarted.Inc()
	investigationsActive.Inc()
	slog.Info("Investigation started", "investigation_id", id)
}

// RecordPhase notes a completed phase and its duration.
func (r *Recorder) RecordPhase(id string, phase models.State, elapsed time.Duration) {
	phaseDuration.WithLabelValues(string(phase)).Observe(elapsed.Seconds())
	slog.Debug("Phase complete",
		"investigation_id", id, "phase", phase, "elapsed", elapsed)
}

// RecordAgentCall notes one terminal entity×domain agent call.
func (r *Recorder) RecordAgentCall(domain string, status models.ResultStatus) {
	agentCalls.WithLabelValues(domain, string(status)).Inc()
}

// RecordFinished notes a terminal outcome and the investigation's total
// duration.
func (r *Recorder) RecordFinished(id string, state models.State, elapsed time.Duration) {
	r.mu.Lock()
	if r.active > 0 {
		r.active--
	}
	r.finished++
	r.totalDuration += elapsed
	switch state {
	case models.StateCompleted:
		r.completed++
	case models.StatePartial:
		r.partial++
	case models.StateFailed:
		r.failed++
	}
	r.mu.Unlock()

	investigationsFinished.WithLabelValues(string(state)).Inc()
	investigationsActive.Dec()
	slog.Info("Investigation finished",
		"investigation_id", id, "state", state, "elapsed", elapsed)
}

// Snapshot returns current counters for get_metrics(). Success rate is
// completed / finished; average duration covers all terminal outcomes.
func (r *Recorder) Snapshot() models.MetricsSnapshot {
	r.mu.Lock()
	defer r.mu.Unlock()

	snap := models.MetricsSnapshot{
		ActiveCount:    r.active,
		StartedTotal:   r.started,
		CompletedTotal: r.completed,
		PartialTotal:   r.partial,
		FailedTotal:    r.failed,
	}
	if r.finished > 0 {
		snap.SuccessRate = float64(r.completed) / float64(r.finished)
		snap.AvgDuration = r.totalDuration / time.Duration(r.finished)
	}
	return snap
}
