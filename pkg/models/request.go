package models

// Entity count bounds for a single investigation request.
const (
	MinEntities = 2
	MaxEntities = 10
)

// Priority orders investigations for human triage. It does not affect
// scheduling inside a single investigation.
type Priority string

const (
	PriorityLow      Priority = "low"
	PriorityNormal   Priority = "normal"
	PriorityHigh     Priority = "high"
	PriorityCritical Priority = "critical"
)

// Valid reports whether p is a known priority. Empty is allowed and treated
// as normal.
func (p Priority) Valid() bool {
	switch p {
	case "", PriorityLow, PriorityNormal, PriorityHigh, PriorityCritical:
		return true
	}
	return false
}

// FeatureFlags toggles optional analysis behavior per request.
type FeatureFlags struct {
	// SkipTemporalPatterns disables time-window grouping in cross-entity
	// analysis.
	SkipTemporalPatterns bool `json:"skip_temporal_patterns,omitempty"`
	// SkipAnomalyClusters disables shared-attribute clustering.
	SkipAnomalyClusters bool `json:"skip_anomaly_clusters,omitempty"`
}

// InvestigationRequest describes one multi-entity investigation: the entity
// set, declared relationships between them, the analysis domains to run, and
// a boolean combination expression over per-entity risk predicates.
type InvestigationRequest struct {
	Entities      []Entity             `json:"entities" validate:"required,min=2,max=10,dive"`
	Relationships []EntityRelationship `json:"relationships,omitempty" validate:"dive"`
	BooleanLogic  string               `json:"boolean_logic,omitempty"`
	Scope         []string             `json:"investigation_scope" validate:"required,min=1"`
	Priority      Priority             `json:"priority,omitempty"`
	Flags         FeatureFlags         `json:"feature_flags,omitempty"`
	Metadata      map[string]string    `json:"metadata,omitempty"`
}

// EntityIDs returns the declared entity ids in request order.
func (r *InvestigationRequest) EntityIDs() []string {
	ids := make([]string, 0, len(r.Entities))
	for _, e := range r.Entities {
		ids = append(ids, e.ID)
	}
	return ids
}

// EntityByID returns the declared entity with the given id, if present.
func (r *InvestigationRequest) EntityByID(id string) (Entity, bool) {
	for _, e := range r.Entities {
		if e.ID == id {
			return e, true
		}
	}
	return Entity{}, false
}
