// Package coordinator fans investigation work out across entity×domain
// pairs. Each pair is one bounded, cancellable task: a single agent call
// with a per-call timeout, one retry for transient failures, and an
// idempotent terminal write into the investigation context. The phase ends
// when every pair is terminal or the phase deadline elapses; pairs still in
// flight at the deadline are force-marked timeout.
package coordinator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/fraudsight/crosscheck/pkg/agent"
	"github.com/fraudsight/crosscheck/pkg/config"
	"github.com/fraudsight/crosscheck/pkg/investigation"
	"github.com/fraudsight/crosscheck/pkg/models"
	"github.com/fraudsight/crosscheck/pkg/timeline"
)

// Coordinator runs the ENTITY_INVESTIGATION phase for one investigation at a
// time. It is stateless between calls and safe for concurrent use across
// investigations.
type Coordinator struct {
	cfg      *config.CoordinatorConfig
	registry *agent.Registry
	recorder *timeline.Recorder
}

// New creates a coordinator.
func New(cfg *config.CoordinatorConfig, registry *agent.Registry, recorder *timeline.Recorder) *Coordinator {
	return &Coordinator{cfg: cfg, registry: registry, recorder: recorder}
}

// Run drives every entity×domain pair of the investigation to a terminal
// status. ctx should carry the phase deadline; Run returns once all pair
// tasks have exited and any stragglers are force-marked timeout. Per-pair
// failures are absorbed and recorded — Run itself only reports the phase
// outcome via the investigation context.
func (c *Coordinator) Run(ctx context.Context, inv *investigation.Context) {
	req := inv.Request()
	entities := req.Entities
	domains := req.Scope

	pairCount := len(entities) * len(domains)
	limit := c.cfg.Limit(pairCount)

	log := slog.With("investigation_id", inv.ID)
	log.Info("Entity investigation fan-out",
		"entities", len(entities), "domains", len(domains), "concurrency", limit)

	ictx := agent.InvestigationContext{
		InvestigationID: inv.ID,
		Scope:           domains,
		Priority:        req.Priority,
		Metadata:        req.Metadata,
	}

	sem := semaphore.NewWeighted(int64(limit))
	var wg sync.WaitGroup
	for _, entity := range entities {
		for _, domain := range domains {
			wg.Add(1)
			go func(entity models.Entity, domain string) {
				defer wg.Done()
				c.runPair(ctx, inv, entity, domain, ictx, sem)
			}(entity, domain)
		}
	}
	wg.Wait()

	// Pairs that never reached terminal (deadline or cancellation mid-call)
	// are force-marked so downstream phases see a fully terminal result set.
	forced := inv.ForceTimeoutPending("entity investigation deadline elapsed")
	for _, pair := range forced {
		c.recorder.RecordAgentCall(pair.Domain, models.ResultStatusTimeout)
		inv.AppendEvent(models.StateEntityInvestigation,
			fmt.Sprintf("pair %s force-marked timeout at phase deadline", pair), "", nil)
	}
	if len(forced) > 0 {
		log.Warn("Force-marked unfinished pairs at phase deadline", "count", len(forced))
	}
}

// runPair executes one entity×domain task: acquire a fan-out slot, call the
// agent with the per-call timeout, retry once on transient failure, and
// append the terminal result.
func (c *Coordinator) runPair(
	ctx context.Context,
	inv *investigation.Context,
	entity models.Entity,
	domain string,
	ictx agent.InvestigationContext,
	sem *semaphore.Weighted,
) {
	pair := models.PairKey{EntityID: entity.ID, Domain: domain}

	if err := sem.Acquire(ctx, 1); err != nil {
		// Phase deadline or cancellation before the task ever started; the
		// slot stays pending and is force-marked by Run.
		return
	}
	defer sem.Release(1)

	domainAgent, err := c.registry.Get(domain)
	if err != nil {
		c.finish(inv, failedResult(pair, time.Now(), err))
		return
	}

	started := time.Now()
	inv.MarkRunning(pair, started)

	result, err := c.invoke(ctx, domainAgent, entity, ictx)
	if err != nil && agent.IsTransient(err) && ctx.Err() == nil {
		inv.AppendEvent(models.StateEntityInvestigation,
			fmt.Sprintf("pair %s transient failure, retrying: %v", pair, err), "", nil)
		select {
		case <-time.After(c.cfg.RetryBackoff.Std()):
			result, err = c.invoke(ctx, domainAgent, entity, ictx)
		case <-ctx.Done():
			err = ctx.Err()
		}
	}

	switch {
	case err == nil:
		c.finish(inv, normalizeResult(result, pair, started))
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		c.finish(inv, timeoutResult(pair, started, err))
	default:
		c.finish(inv, failedResult(pair, started, err))
	}
}

// invoke calls the agent under the per-call timeout. A call that outlives
// its timeout yields context.DeadlineExceeded regardless of what the agent
// returns afterwards.
func (c *Coordinator) invoke(
	ctx context.Context,
	domainAgent agent.DomainAgent,
	entity models.Entity,
	ictx agent.InvestigationContext,
) (*models.InvestigationResult, error) {
	callCtx, cancel := context.WithTimeout(ctx, c.cfg.AgentTimeout.Std())
	defer cancel()

	type outcome struct {
		result *models.InvestigationResult
		err    error
	}
	ch := make(chan outcome, 1)
	go func() {
		result, err := domainAgent.Investigate(callCtx, entity, ictx)
		ch <- outcome{result: result, err: err}
	}()

	select {
	case out := <-ch:
		if out.err != nil {
			return nil, out.err
		}
		if out.result == nil {
			return nil, fmt.Errorf("agent returned nil result")
		}
		return out.result, nil
	case <-callCtx.Done():
		return nil, callCtx.Err()
	}
}

// finish appends the terminal result (idempotently) and records it.
func (c *Coordinator) finish(inv *investigation.Context, result *models.InvestigationResult) {
	if !inv.AppendResult(result) {
		return
	}
	c.recorder.RecordAgentCall(result.Domain, result.Status)
	inv.AppendEvent(models.StateEntityInvestigation,
		fmt.Sprintf("pair %s %s", result.Pair(), result.Status), "",
		map[string]any{"risk_score": result.RiskScore})
}

// normalizeResult enforces the result contract on agent output: correct pair
// identity, terminal status, score clamped to [0,1], timestamps set.
func normalizeResult(result *models.InvestigationResult, pair models.PairKey, started time.Time) *models.InvestigationResult {
	out := *result
	out.EntityID = pair.EntityID
	out.Domain = pair.Domain
	if !out.Status.Terminal() {
		out.Status = models.ResultStatusSucceeded
	}
	if out.RiskScore < 0 {
		out.RiskScore = 0
	}
	if out.RiskScore > 1 {
		out.RiskScore = 1
	}
	if out.StartedAt.IsZero() {
		out.StartedAt = started
	}
	if out.CompletedAt.IsZero() {
		out.CompletedAt = time.Now()
	}
	return &out
}

func timeoutResult(pair models.PairKey, started time.Time, err error) *models.InvestigationResult {
	return &models.InvestigationResult{
		EntityID:    pair.EntityID,
		Domain:      pair.Domain,
		Status:      models.ResultStatusTimeout,
		Error:       err.Error(),
		StartedAt:   started,
		CompletedAt: time.Now(),
	}
}

func failedResult(pair models.PairKey, started time.Time, err error) *models.InvestigationResult {
	return &models.InvestigationResult{
		EntityID:    pair.EntityID,
		Domain:      pair.Domain,
		Status:      models.ResultStatusFailed,
		Error:       err.Error(),
		StartedAt:   started,
		CompletedAt: time.Now(),
	}
}
