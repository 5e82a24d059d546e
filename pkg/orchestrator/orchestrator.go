// Package orchestrator drives investigations through their lifecycle:
// accept, fan out entity work, analyze across entities, evaluate boolean
// logic, aggregate risk, finish. One goroutine owns one investigation end to
// end; every phase boundary is a state machine transition recorded on the
// audit timeline.
package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/fraudsight/crosscheck/pkg/agent"
	"github.com/fraudsight/crosscheck/pkg/analyzer"
	"github.com/fraudsight/crosscheck/pkg/boolexpr"
	"github.com/fraudsight/crosscheck/pkg/config"
	"github.com/fraudsight/crosscheck/pkg/coordinator"
	"github.com/fraudsight/crosscheck/pkg/investigation"
	"github.com/fraudsight/crosscheck/pkg/models"
	"github.com/fraudsight/crosscheck/pkg/risk"
	"github.com/fraudsight/crosscheck/pkg/timeline"
	"github.com/fraudsight/crosscheck/pkg/validate"
)

// Archiver persists terminal investigations beyond in-memory retention.
// *store.Store satisfies it; a nil archiver disables archiving.
type Archiver interface {
	Save(ctx context.Context, finalState models.State, assessment *models.MultiEntityRiskAssessment, events []models.TimelineEvent) error
}

// Orchestrator owns the investigation registry and runs each accepted
// investigation in its own goroutine.
type Orchestrator struct {
	archiver Archiver

	cfg       *config.Config
	manager   *investigation.Manager
	validator *validate.Validator
	coord     *coordinator.Coordinator
	analyzer  *analyzer.Analyzer
	risk      *risk.Aggregator
	recorder  *timeline.Recorder

	mu      sync.Mutex
	cancels map[string]context.CancelFunc
	wg      sync.WaitGroup
}

// New wires an orchestrator from its configuration and the agent registry.
func New(cfg *config.Config, registry *agent.Registry, recorder *timeline.Recorder) *Orchestrator {
	return &Orchestrator{
		cfg:       cfg,
		manager:   investigation.NewManager(),
		validator: validate.New(),
		coord:     coordinator.New(cfg.Coordinator, registry, recorder),
		analyzer:  analyzer.New(cfg.Analyzer),
		risk:      risk.New(cfg.Risk),
		recorder:  recorder,
		cancels:   make(map[string]context.CancelFunc),
	}
}

// SetArchiver attaches the terminal-investigation archive. Must be called
// before the first Start.
func (o *Orchestrator) SetArchiver(a Archiver) {
	o.archiver = a
}

// Manager exposes the investigation registry for the retention sweep.
func (o *Orchestrator) Manager() *investigation.Manager {
	return o.manager
}

// Status is a point-in-time view of one investigation.
type Status struct {
	ID            string                                    `json:"investigation_id"`
	State         models.State                              `json:"state"`
	CreatedAt     time.Time                                 `json:"created_at"`
	CompletedAt   *time.Time                                `json:"completed_at,omitempty"`
	Progress      map[string]map[string]models.ResultStatus `json:"progress"`
	Timeline      []models.TimelineEvent                    `json:"timeline"`
	FailureReason string                                    `json:"failure_reason,omitempty"`
}

// Start validates the request and, if it is well formed, creates the
// investigation and launches its run goroutine. Validation failures return
// synchronously and create nothing.
func (o *Orchestrator) Start(req *models.InvestigationRequest, author string) (*investigation.Context, error) {
	if err := o.validator.Validate(req); err != nil {
		return nil, err
	}

	inv := o.manager.Create(*req)
	inv.AppendEvent(models.StatePending, "investigation accepted", author, map[string]any{
		"entities": len(req.Entities),
		"scope":    req.Scope,
		"priority": req.Priority,
	})
	o.recorder.RecordStarted(inv.ID)

	ctx, cancel := context.WithTimeout(context.Background(), o.cfg.Orchestrator.InvestigationTimeout.Std())
	o.mu.Lock()
	o.cancels[inv.ID] = cancel
	o.mu.Unlock()

	o.wg.Add(1)
	go o.run(ctx, inv)

	return inv, nil
}

// Status returns the current state, per-pair progress, and the trailing
// timeline of an investigation.
func (o *Orchestrator) Status(id string) (*Status, error) {
	inv, err := o.manager.Get(id)
	if err != nil {
		return nil, err
	}
	st := &Status{
		ID:            inv.ID,
		State:         inv.State(),
		CreatedAt:     inv.CreatedAt,
		Progress:      inv.Progress(),
		Timeline:      inv.TimelineTail(o.cfg.Orchestrator.TimelineTail),
		FailureReason: inv.FailureReason(),
	}
	if completed := inv.CompletedAt(); !completed.IsZero() {
		st.CompletedAt = &completed
	}
	return st, nil
}

// Results returns the final assessment, ErrNotReady while the investigation
// has not produced one yet. PARTIAL investigations still return the degraded
// assessment built from whatever results were collected.
func (o *Orchestrator) Results(id string) (*models.MultiEntityRiskAssessment, error) {
	inv, err := o.manager.Get(id)
	if err != nil {
		return nil, err
	}
	assessment := inv.Assessment()
	if assessment == nil {
		return nil, fmt.Errorf("%w: investigation %s in state %s", ErrNotReady, id, inv.State())
	}
	return assessment, nil
}

// List returns a status view of every registered investigation.
func (o *Orchestrator) List() []*Status {
	contexts := o.manager.List()
	out := make([]*Status, 0, len(contexts))
	for _, inv := range contexts {
		st, err := o.Status(inv.ID)
		if err != nil {
			continue
		}
		out = append(out, st)
	}
	return out
}

// Cancel stops a running investigation. Collected results are preserved and
// the investigation finishes as PARTIAL.
func (o *Orchestrator) Cancel(id, author string) error {
	inv, err := o.manager.Get(id)
	if err != nil {
		return err
	}
	if inv.State().Terminal() {
		return fmt.Errorf("%w: %s is %s", ErrAlreadyTerminal, id, inv.State())
	}

	inv.AppendEvent(inv.State(), "cancellation requested", author, nil)

	o.mu.Lock()
	cancel, ok := o.cancels[id]
	o.mu.Unlock()
	if ok {
		cancel()
	}
	return nil
}

// UpdateRelationships replaces the declared relationship set. Allowed only
// while the investigation has not entered RELATIONSHIP_ANALYSIS; the new set
// is validated against the frozen entity set first.
func (o *Orchestrator) UpdateRelationships(id string, rels []models.EntityRelationship, author string) error {
	inv, err := o.manager.Get(id)
	if err != nil {
		return err
	}
	declared := validate.DeclaredSet(inv.Entities())
	if err := o.validator.ValidateRelationships(rels, declared); err != nil {
		return err
	}
	if err := inv.ReplaceRelationships(rels); err != nil {
		return err
	}
	inv.AppendEvent(inv.State(), fmt.Sprintf("relationship set replaced, %d edge(s)", len(rels)), author, nil)
	return nil
}

// Metrics returns the aggregate counters across all investigations.
func (o *Orchestrator) Metrics() models.MetricsSnapshot {
	return o.recorder.Snapshot()
}

// Shutdown cancels every running investigation and waits for their
// goroutines to finish, bounded by ctx.
func (o *Orchestrator) Shutdown(ctx context.Context) error {
	o.mu.Lock()
	for _, cancel := range o.cancels {
		cancel()
	}
	o.mu.Unlock()

	done := make(chan struct{})
	go func() {
		o.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// run drives one investigation from ENTITY_INVESTIGATION to a terminal
// state. ctx carries the whole-investigation deadline and is cancelled by
// Cancel; interruption at any phase boundary finishes as PARTIAL with
// whatever was collected.
func (o *Orchestrator) run(ctx context.Context, inv *investigation.Context) {
	defer o.wg.Done()
	defer func() {
		o.mu.Lock()
		if cancel, ok := o.cancels[inv.ID]; ok {
			cancel()
			delete(o.cancels, inv.ID)
		}
		o.mu.Unlock()
	}()

	log := slog.With("investigation_id", inv.ID)
	started := time.Now()

	// ENTITY_INVESTIGATION
	if err := o.enterPhase(inv, models.StateEntityInvestigation); err != nil {
		o.finishFailed(inv, started, err.Error())
		return
	}
	phaseStart := time.Now()
	phaseCtx, cancelPhase := context.WithTimeout(ctx, o.cfg.Coordinator.PhaseTimeout.Std())
	o.coord.Run(phaseCtx, inv)
	cancelPhase()
	o.recorder.RecordPhase(inv.ID, models.StateEntityInvestigation, time.Since(phaseStart))

	if ctx.Err() != nil {
		o.finishPartial(inv, started, interruptionReason(ctx))
		return
	}
	if inv.AllPairsFailed() {
		o.finishFailed(inv, started, "no entity produced a usable signal")
		return
	}

	req := inv.Request()

	// CROSS_ENTITY_ANALYSIS
	if err := o.enterPhase(inv, models.StateCrossEntityAnalysis); err != nil {
		o.finishFailed(inv, started, err.Error())
		return
	}
	phaseStart = time.Now()
	analysis := o.analyzer.Analyze(req, inv.Results())
	inv.SetAnalysis(analysis)
	inv.AppendEvent(models.StateCrossEntityAnalysis, fmt.Sprintf(
		"detected %d interaction(s), %d temporal pattern(s), %d anomaly cluster(s)",
		len(analysis.Interactions), len(analysis.TemporalPatterns), len(analysis.AnomalyClusters)), "",
		map[string]any{"correlation_score": analysis.CorrelationScore})
	o.recorder.RecordPhase(inv.ID, models.StateCrossEntityAnalysis, time.Since(phaseStart))
	if ctx.Err() != nil {
		o.finishPartial(inv, started, interruptionReason(ctx))
		return
	}

	// RELATIONSHIP_ANALYSIS — relationships may have been replaced while the
	// earlier phases ran, so re-read them here.
	if err := o.enterPhase(inv, models.StateRelationshipAnalysis); err != nil {
		o.finishFailed(inv, started, err.Error())
		return
	}
	phaseStart = time.Now()
	insights := o.analyzer.DeriveInsights(inv.Relationships(), analysis)
	inv.SetInsights(insights)
	inv.AppendEvent(models.StateRelationshipAnalysis,
		fmt.Sprintf("derived %d relationship insight(s)", len(insights)), "", nil)
	o.recorder.RecordPhase(inv.ID, models.StateRelationshipAnalysis, time.Since(phaseStart))
	if ctx.Err() != nil {
		o.finishPartial(inv, started, interruptionReason(ctx))
		return
	}

	// BOOLEAN_EVALUATION
	if err := o.enterPhase(inv, models.StateBooleanEvaluation); err != nil {
		o.finishFailed(inv, started, err.Error())
		return
	}
	phaseStart = time.Now()
	o.evaluateBoolean(inv, req.BooleanLogic)
	o.recorder.RecordPhase(inv.ID, models.StateBooleanEvaluation, time.Since(phaseStart))
	if ctx.Err() != nil {
		o.finishPartial(inv, started, interruptionReason(ctx))
		return
	}

	// RISK_ASSESSMENT
	if err := o.enterPhase(inv, models.StateRiskAssessment); err != nil {
		o.finishFailed(inv, started, err.Error())
		return
	}
	phaseStart = time.Now()
	assessment := o.aggregate(inv)
	inv.SetAssessment(assessment)
	inv.AppendEvent(models.StateRiskAssessment, fmt.Sprintf(
		"aggregated risk %.3f (confidence %.3f, degraded %t)",
		assessment.OverallScore, assessment.Confidence, assessment.Degraded), "", nil)
	o.recorder.RecordPhase(inv.ID, models.StateRiskAssessment, time.Since(phaseStart))

	if err := inv.TransitionTo(models.StateCompleted); err != nil {
		o.finishFailed(inv, started, err.Error())
		return
	}
	inv.AppendEvent(models.StateCompleted, "investigation completed", "", nil)
	o.recorder.RecordFinished(inv.ID, models.StateCompleted, time.Since(started))
	o.archive(inv, models.StateCompleted)
	log.Info("Investigation completed",
		"overall_score", assessment.OverallScore, "degraded", assessment.Degraded)
}

// enterPhase transitions into the phase and stamps the timeline.
func (o *Orchestrator) enterPhase(inv *investigation.Context, phase models.State) error {
	if err := inv.TransitionTo(phase); err != nil {
		return err
	}
	inv.AppendEvent(phase, "phase started", "", nil)
	return nil
}

// evaluateBoolean runs the combination expression, if any, against the
// per-entity scores. The outcome is explanatory: it annotates the final
// assessment without touching the numeric score.
func (o *Orchestrator) evaluateBoolean(inv *investigation.Context, expression string) {
	if expression == "" {
		inv.AppendEvent(models.StateBooleanEvaluation, "no boolean logic declared", "", nil)
		return
	}

	// The expression was parsed at validation; a parse failure here would be
	// a programming error, handled by skipping the evaluation.
	node, err := boolexpr.Parse(expression)
	if err != nil {
		slog.Error("Boolean expression failed to re-parse",
			"investigation_id", inv.ID, "error", err)
		return
	}

	scores := risk.EntityScores(inv.Results())
	ev := boolexpr.Evaluate(node, scores, o.cfg.Orchestrator.RiskThreshold)

	trace := make([]models.BoolTraceStep, 0, len(ev.Steps))
	for _, step := range ev.Steps {
		trace = append(trace, models.BoolTraceStep{Expression: step.Expression, Value: step.Value})
	}
	inv.SetBoolean(&models.BooleanAssessment{
		Expression: ev.Expression,
		Value:      ev.Value,
		Threshold:  ev.Threshold,
		Trace:      trace,
		Undefined:  ev.Undefined,
	})
	inv.AppendEvent(models.StateBooleanEvaluation,
		fmt.Sprintf("boolean logic %q evaluated %t", ev.Expression, ev.Value), "",
		map[string]any{"undefined": ev.Undefined})
}

// aggregate builds the final assessment from everything collected so far.
func (o *Orchestrator) aggregate(inv *investigation.Context) *models.MultiEntityRiskAssessment {
	return o.risk.Aggregate(risk.Input{
		InvestigationID: inv.ID,
		Entities:        inv.Entities(),
		Relationships:   inv.Relationships(),
		Results:         inv.Results(),
		Analysis:        inv.Analysis(),
		Insights:        inv.Insights(),
		Boolean:         inv.Boolean(),
		MissingPairs:    inv.MissingPairs(),
	})
}

// finishPartial ends an interrupted investigation: pending pairs are closed
// out, a degraded assessment is built from whatever was collected, and the
// investigation branches to PARTIAL.
func (o *Orchestrator) finishPartial(inv *investigation.Context, started time.Time, reason string) {
	inv.ForceTimeoutPending(reason)
	inv.SetFailure(reason)
	inv.SetAssessment(o.aggregate(inv))

	if err := inv.TransitionTo(models.StatePartial); err != nil {
		slog.Error("Transition to PARTIAL failed", "investigation_id", inv.ID, "error", err)
		return
	}
	inv.AppendEvent(models.StatePartial, "investigation ended partial: "+reason, "", nil)
	o.recorder.RecordFinished(inv.ID, models.StatePartial, time.Since(started))
	o.archive(inv, models.StatePartial)
	slog.Warn("Investigation ended partial", "investigation_id", inv.ID, "reason", reason)
}

// finishFailed ends an investigation that produced nothing usable.
func (o *Orchestrator) finishFailed(inv *investigation.Context, started time.Time, reason string) {
	inv.SetFailure(reason)
	if err := inv.TransitionTo(models.StateFailed); err != nil {
		slog.Error("Transition to FAILED failed", "investigation_id", inv.ID, "error", err)
		return
	}
	inv.AppendEvent(models.StateFailed, "investigation failed: "+reason, "", nil)
	o.recorder.RecordFinished(inv.ID, models.StateFailed, time.Since(started))
	slog.Error("Investigation failed", "investigation_id", inv.ID, "reason", reason)
}

// archive persists the terminal investigation when an archiver is attached.
// Failures are logged, never propagated: archiving is best-effort and the
// in-memory registry stays authoritative for the retention period.
func (o *Orchestrator) archive(inv *investigation.Context, final models.State) {
	if o.archiver == nil {
		return
	}
	assessment := inv.Assessment()
	if assessment == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := o.archiver.Save(ctx, final, assessment, inv.Timeline()); err != nil {
		slog.Error("Archiving investigation failed", "investigation_id", inv.ID, "error", err)
	}
}

func interruptionReason(ctx context.Context) string {
	if ctx.Err() == context.DeadlineExceeded {
		return "investigation timeout elapsed"
	}
	return "investigation cancelled"
}
