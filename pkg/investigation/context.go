// Package investigation holds the per-investigation mutable context — frozen
// entities and relationships, accumulating entity×domain results, the audit
// timeline — and the process-wide registry mapping investigation ids to their
// isolated contexts.
package investigation

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/fraudsight/crosscheck/pkg/models"
)

// StateError reports an illegal state machine transition. It maps to the
// orchestration-error branch: the investigation fails, partial results stay
// retrievable.
type StateError struct {
	From models.State
	To   models.State
}

func (e *StateError) Error() string {
	return fmt.Sprintf("illegal state transition %s -> %s", e.From, e.To)
}

// Context is the mutable store scoped to one investigation. Entities and
// relationships are frozen at creation (relationships replaceable only until
// RELATIONSHIP_ANALYSIS); results and the timeline accumulate during
// execution; analysis artifacts are written exactly once.
//
// Each entity×domain result slot has a single writer and terminal results
// are never overwritten, so the only synchronization is the context's own
// mutex around each append.
type Context struct {
	ID        string
	CreatedAt time.Time

	mu            sync.RWMutex
	request       models.InvestigationRequest
	state         models.State
	results       map[models.PairKey]*models.InvestigationResult
	timeline      []models.TimelineEvent
	analysis      *models.CrossEntityAnalysis
	insights      []models.RelationshipInsight
	boolean       *models.BooleanAssessment
	assessment    *models.MultiEntityRiskAssessment
	failureReason string
	completedAt   time.Time
}

// newContext creates a context in PENDING with one pending result slot per
// entity×domain pair.
func newContext(id string, req models.InvestigationRequest) *Context {
	c := &Context{
		ID:        id,
		CreatedAt: time.Now(),
		request:   req,
		state:     models.StatePending,
		results:   make(map[models.PairKey]*models.InvestigationResult),
	}
	for _, e := range req.Entities {
		for _, domain := range req.Scope {
			key := models.PairKey{EntityID: e.ID, Domain: domain}
			c.results[key] = &models.InvestigationResult{
				EntityID: e.ID,
				Domain:   domain,
				Status:   models.ResultStatusPending,
			}
		}
	}
	return c
}

// State returns the current lifecycle state.
func (c *Context) State() models.State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// TransitionTo advances the state machine. Illegal transitions (backward,
// re-entry, or out of a terminal state) return a *StateError.
func (c *Context) TransitionTo(next models.State) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.state.CanTransition(next) {
		return &StateError{From: c.state, To: next}
	}
	c.state = next
	if next.Terminal() {
		c.completedAt = time.Now()
	}
	return nil
}

// CompletedAt returns when the investigation reached a terminal state, zero
// while still running.
func (c *Context) CompletedAt() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.completedAt
}

// Entities returns the frozen entity set.
func (c *Context) Entities() []models.Entity {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]models.Entity(nil), c.request.Entities...)
}

// Relationships returns the current declared relationship set.
func (c *Context) Relationships() []models.EntityRelationship {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]models.EntityRelationship(nil), c.request.Relationships...)
}

// Request returns a snapshot of the request.
func (c *Context) Request() models.InvestigationRequest {
	c.mu.RLock()
	defer c.mu.RUnlock()
	req := c.request
	req.Entities = append([]models.Entity(nil), c.request.Entities...)
	req.Relationships = append([]models.EntityRelationship(nil), c.request.Relationships...)
	req.Scope = append([]string(nil), c.request.Scope...)
	return req
}

// ReplaceRelationships swaps the declared relationship set. Permitted only
// while the investigation has not yet entered RELATIONSHIP_ANALYSIS.
func (c *Context) ReplaceRelationships(rels []models.EntityRelationship) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.state.Before(models.StateRelationshipAnalysis) {
		return &StateError{From: c.state, To: models.StateRelationshipAnalysis}
	}
	c.request.Relationships = append([]models.EntityRelationship(nil), rels...)
	return nil
}

// MarkRunning flips a pending result slot to running. No-op once the slot is
// terminal.
func (c *Context) MarkRunning(key models.PairKey, at time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	slot, ok := c.results[key]
	if !ok || slot.Status.Terminal() {
		return
	}
	slot.Status = models.ResultStatusRunning
	slot.StartedAt = at
}

// AppendResult writes a terminal result into its slot. The append is
// idempotent: once a slot is terminal, later writes are ignored and
// AppendResult returns false. Non-terminal results are rejected.
func (c *Context) AppendResult(result *models.InvestigationResult) bool {
	if result == nil || !result.Status.Terminal() {
		return false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	key := result.Pair()
	slot, ok := c.results[key]
	if !ok || slot.Status.Terminal() {
		return false
	}
	clone := *result
	c.results[key] = &clone
	return true
}

// ForceTimeoutPending marks every non-terminal slot as timed out and returns
// the affected pairs. Called when the entity-investigation phase deadline
// fires with work still in flight.
func (c *Context) ForceTimeoutPending(reason string) []models.PairKey {
	c.mu.Lock()
	defer c.mu.Unlock()
	var forced []models.PairKey
	now := time.Now()
	for key, slot := range c.results {
		if slot.Status.Terminal() {
			continue
		}
		slot.Status = models.ResultStatusTimeout
		slot.Error = reason
		if slot.StartedAt.IsZero() {
			slot.StartedAt = now
		}
		slot.CompletedAt = now
		forced = append(forced, key)
	}
	sortPairs(forced)
	return forced
}

// Results returns a copy of every result slot, sorted by pair for
// deterministic downstream computation.
func (c *Context) Results() []models.InvestigationResult {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]models.InvestigationResult, 0, len(c.results))
	for _, slot := range c.results {
		out = append(out, *slot)
	}
	sort.Slice(out, func(a, b int) bool {
		if out[a].EntityID != out[b].EntityID {
			return out[a].EntityID < out[b].EntityID
		}
		return out[a].Domain < out[b].Domain
	})
	return out
}

// Progress returns per-entity, per-domain statuses.
func (c *Context) Progress() map[string]map[string]models.ResultStatus {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[string]map[string]models.ResultStatus)
	for key, slot := range c.results {
		if out[key.EntityID] == nil {
			out[key.EntityID] = make(map[string]models.ResultStatus)
		}
		out[key.EntityID][key.Domain] = slot.Status
	}
	return out
}

// MissingPairs returns the pairs that did not succeed (failed, timed out, or
// never reached terminal), sorted.
func (c *Context) MissingPairs() []models.PairKey {
	c.mu.RLock()
	defer c.mu.RUnlock()
	var missing []models.PairKey
	for key, slot := range c.results {
		if slot.Status != models.ResultStatusSucceeded {
			missing = append(missing, key)
		}
	}
	sortPairs(missing)
	return missing
}

// AllPairsFailed reports whether no entity×domain pair produced a usable
// signal — the total-failure condition that fails the investigation.
func (c *Context) AllPairsFailed() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, slot := range c.results {
		if slot.Status == models.ResultStatusSucceeded {
			return false
		}
	}
	return len(c.results) > 0
}

// AppendEvent appends to the audit timeline.
func (c *Context) AppendEvent(phase models.State, message, author string, metadata map[string]any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.timeline = append(c.timeline, models.TimelineEvent{
		Timestamp: time.Now(),
		Phase:     phase,
		Message:   message,
		Author:    author,
		Metadata:  metadata,
	})
}

// Timeline returns a copy of the full timeline.
func (c *Context) Timeline() []models.TimelineEvent {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]models.TimelineEvent(nil), c.timeline...)
}

// TimelineTail returns the last n timeline events.
func (c *Context) TimelineTail(n int) []models.TimelineEvent {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if n <= 0 || n >= len(c.timeline) {
		return append([]models.TimelineEvent(nil), c.timeline...)
	}
	return append([]models.TimelineEvent(nil), c.timeline[len(c.timeline)-n:]...)
}

// SetAnalysis stores the cross-entity analysis artifact.
func (c *Context) SetAnalysis(a *models.CrossEntityAnalysis) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.analysis = a
}

// Analysis returns the stored cross-entity analysis, nil until computed.
func (c *Context) Analysis() *models.CrossEntityAnalysis {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.analysis
}

// SetInsights stores the derived relationship insights.
func (c *Context) SetInsights(insights []models.RelationshipInsight) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.insights = insights
}

// Insights returns the stored relationship insights.
func (c *Context) Insights() []models.RelationshipInsight {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]models.RelationshipInsight(nil), c.insights...)
}

// SetBoolean stores the boolean evaluation artifact.
func (c *Context) SetBoolean(b *models.BooleanAssessment) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.boolean = b
}

// Boolean returns the stored boolean evaluation, nil until computed.
func (c *Context) Boolean() *models.BooleanAssessment {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.boolean
}

// SetAssessment freezes the final risk assessment.
func (c *Context) SetAssessment(a *models.MultiEntityRiskAssessment) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.assessment = a
}

// Assessment returns the frozen assessment, nil while not yet available.
func (c *Context) Assessment() *models.MultiEntityRiskAssessment {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.assessment
}

// SetFailure records the diagnostic reason for a FAILED/PARTIAL outcome.
func (c *Context) SetFailure(reason string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.failureReason = reason
}

// FailureReason returns the recorded failure diagnostic, empty if none.
func (c *Context) FailureReason() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.failureReason
}

func sortPairs(pairs []models.PairKey) {
	sort.Slice(pairs, func(a, b int) bool {
		if pairs[a].EntityID != pairs[b].EntityID {
			return pairs[a].EntityID < pairs[b].EntityID
		}
		return pairs[a].Domain < pairs[b].Domain
	})
}
