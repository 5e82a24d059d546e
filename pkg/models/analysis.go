package models

import "time"

// EntityInteraction is a detected correlation between the two endpoints of a
// declared relationship edge.
type EntityInteraction struct {
	SourceID string           `json:"source_id"`
	TargetID string           `json:"target_id"`
	Type     RelationshipType `json:"relationship_type"`
	Evidence []string         `json:"evidence"`
}

// TemporalPattern groups findings from multiple entities whose activity
// windows overlap, independent of declared relationships.
type TemporalPattern struct {
	EntityIDs   []string  `json:"entity_ids"`
	WindowStart time.Time `json:"window_start"`
	WindowEnd   time.Time `json:"window_end"`
	Description string    `json:"description"`
}

// AnomalyCluster groups entities whose results share a rare attribute value
// (identical device signature, identical IP, ...). Undeclared marks clusters
// containing at least one entity pair with no declared relationship.
type AnomalyCluster struct {
	ID         string   `json:"id"`
	Attribute  string   `json:"attribute"`
	Value      string   `json:"value"`
	EntityIDs  []string `json:"entity_ids"`
	Undeclared bool     `json:"undeclared,omitempty"`
}

// CrossEntityAnalysis is the output of the cross-entity analyzer phase.
type CrossEntityAnalysis struct {
	Interactions     []EntityInteraction `json:"interactions"`
	TemporalPatterns []TemporalPattern   `json:"temporal_patterns"`
	AnomalyClusters  []AnomalyCluster    `json:"anomaly_clusters"`
	CorrelationScore float64             `json:"correlation_score"`
}

// RelationshipInsight is a declared relationship annotated with a derived
// human-readable significance and the numeric weight fed to the aggregator.
type RelationshipInsight struct {
	Relationship EntityRelationship `json:"relationship"`
	Significance string             `json:"significance"`
	Weight       float64            `json:"weight"`
}
