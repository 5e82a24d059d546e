package models

import "time"

// ResultStatus is the lifecycle status of one entity×domain investigation
// call.
type ResultStatus string

const (
	ResultStatusPending   ResultStatus = "pending"
	ResultStatusRunning   ResultStatus = "running"
	ResultStatusSucceeded ResultStatus = "succeeded"
	ResultStatusFailed    ResultStatus = "failed"
	ResultStatusTimeout   ResultStatus = "timeout"
)

// Terminal reports whether the status is final for its entity×domain pair.
func (s ResultStatus) Terminal() bool {
	switch s {
	case ResultStatusSucceeded, ResultStatusFailed, ResultStatusTimeout:
		return true
	}
	return false
}

// PairKey identifies one entity×domain unit of work.
type PairKey struct {
	EntityID string `json:"entity_id"`
	Domain   string `json:"domain"`
}

func (k PairKey) String() string {
	return k.EntityID + "/" + k.Domain
}

// Finding is one piece of evidence produced by a domain agent. Attributes
// carry shared identifiers (device signatures, IPs, geo hashes) consumed by
// cross-entity analysis; WindowStart/WindowEnd bound the observed activity.
type Finding struct {
	Summary     string            `json:"summary"`
	Attributes  map[string]string `json:"attributes,omitempty"`
	WindowStart time.Time         `json:"window_start,omitempty"`
	WindowEnd   time.Time         `json:"window_end,omitempty"`
}

// HasWindow reports whether the finding carries a usable time window.
func (f Finding) HasWindow() bool {
	return !f.WindowStart.IsZero() && !f.WindowEnd.IsZero() && !f.WindowEnd.Before(f.WindowStart)
}

// InvestigationResult is the outcome of one entity×domain agent call. It is
// written exactly once into the investigation context and never mutated after
// CompletedAt is set.
type InvestigationResult struct {
	EntityID    string       `json:"entity_id"`
	Domain      string       `json:"domain"`
	Status      ResultStatus `json:"status"`
	RiskScore   float64      `json:"risk_score"`
	Findings    []Finding    `json:"findings,omitempty"`
	Error       string       `json:"error,omitempty"`
	StartedAt   time.Time    `json:"started_at"`
	CompletedAt time.Time    `json:"completed_at"`
}

// Pair returns the entity×domain key for this result.
func (r *InvestigationResult) Pair() PairKey {
	return PairKey{EntityID: r.EntityID, Domain: r.Domain}
}
