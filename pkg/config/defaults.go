package config

import "time"

// OrchestratorConfig controls the investigation state machine.
type OrchestratorConfig struct {
	// InvestigationTimeout bounds one whole investigation, all phases
	// included.
	InvestigationTimeout Duration `yaml:"investigation_timeout"`

	// RiskThreshold is the per-entity predicate cutoff used by the boolean
	// logic evaluator: risk_score(entity) >= RiskThreshold.
	RiskThreshold float64 `yaml:"risk_threshold"`

	// TimelineTail is how many trailing timeline events status responses
	// include.
	TimelineTail int `yaml:"timeline_tail"`
}

// DefaultOrchestratorConfig returns the built-in orchestrator defaults.
func DefaultOrchestratorConfig() *OrchestratorConfig {
	return &OrchestratorConfig{
		InvestigationTimeout: Duration(10 * time.Minute),
		RiskThreshold:        0.7,
		TimelineTail:         20,
	}
}

// CoordinatorConfig controls per-entity fan-out during the
// ENTITY_INVESTIGATION phase.
type CoordinatorConfig struct {
	// MaxConcurrent is the global limit of in-flight agent calls per
	// investigation. Zero means auto: entity count × domain count, capped
	// at MaxConcurrentCap.
	MaxConcurrent int `yaml:"max_concurrent"`

	// MaxConcurrentCap bounds the auto-derived concurrency limit.
	MaxConcurrentCap int `yaml:"max_concurrent_cap"`

	// AgentTimeout bounds a single entity×domain agent call. On expiry the
	// pair is marked timeout without failing the investigation.
	AgentTimeout Duration `yaml:"agent_timeout"`

	// PhaseTimeout bounds the whole entity-investigation phase. Pairs still
	// unfinished at the deadline are force-marked timeout.
	PhaseTimeout Duration `yaml:"phase_timeout"`

	// RetryBackoff is the fixed delay before the single retry granted to
	// transient agent failures.
	RetryBackoff Duration `yaml:"retry_backoff"`
}

// DefaultCoordinatorConfig returns the built-in coordinator defaults.
func DefaultCoordinatorConfig() *CoordinatorConfig {
	return &CoordinatorConfig{
		MaxConcurrent:    0,
		MaxConcurrentCap: 16,
		AgentTimeout:     Duration(30 * time.Second),
		PhaseTimeout:     Duration(5 * time.Minute),
		RetryBackoff:     Duration(2 * time.Second),
	}
}

// Limit resolves the effective concurrency limit for the given pair count.
func (c *CoordinatorConfig) Limit(pairCount int) int {
	limit := c.MaxConcurrent
	if limit <= 0 {
		limit = pairCount
	}
	if c.MaxConcurrentCap > 0 && limit > c.MaxConcurrentCap {
		limit = c.MaxConcurrentCap
	}
	if limit < 1 {
		limit = 1
	}
	return limit
}

// AnalyzerConfig tunes cross-entity pattern detection.
type AnalyzerConfig struct {
	// TemporalWindow is the maximum gap between finding windows for them to
	// be grouped into one temporal pattern.
	TemporalWindow Duration `yaml:"temporal_window"`

	// ClusterMinSize is the minimum number of entities sharing an attribute
	// value before an anomaly cluster is emitted.
	ClusterMinSize int `yaml:"cluster_min_size"`
}

// DefaultAnalyzerConfig returns the built-in analyzer defaults.
func DefaultAnalyzerConfig() *AnalyzerConfig {
	return &AnalyzerConfig{
		TemporalWindow: Duration(5 * time.Minute),
		ClusterMinSize: 2,
	}
}

// RiskConfig tunes the final aggregation.
type RiskConfig struct {
	// HighStrength/HighConfidence/HighRisk are the cutoffs for a
	// relationship edge to contribute a cross-entity multiplier: the edge
	// must be strong and confident, and both endpoints high-risk.
	HighStrength   float64 `yaml:"high_strength"`
	HighConfidence float64 `yaml:"high_confidence"`
	HighRisk       float64 `yaml:"high_risk"`

	// CorrelationWeight scales the correlation score's contribution to the
	// overall multiplier.
	CorrelationWeight float64 `yaml:"correlation_weight"`

	// EdgeBonus is the multiplier increment per qualifying high-risk edge.
	EdgeBonus float64 `yaml:"edge_bonus"`

	// MaxMultiplier caps the combined cross-entity multiplier.
	MaxMultiplier float64 `yaml:"max_multiplier"`

	// DegradedConfidencePenalty is the extra confidence discount applied
	// when any entity×domain pair is missing.
	DegradedConfidencePenalty float64 `yaml:"degraded_confidence_penalty"`
}

// DefaultRiskConfig returns the built-in risk aggregation defaults.
func DefaultRiskConfig() *RiskConfig {
	return &RiskConfig{
		HighStrength:              0.7,
		HighConfidence:            0.7,
		HighRisk:                  0.7,
		CorrelationWeight:         0.25,
		EdgeBonus:                 0.1,
		MaxMultiplier:             1.5,
		DegradedConfidencePenalty: 0.15,
	}
}

// RetentionConfig controls eviction of finished investigations from the
// in-memory registry.
type RetentionConfig struct {
	// SweepInterval is how often the retention sweep runs.
	SweepInterval Duration `yaml:"sweep_interval"`

	// RetentionPeriod is how long a terminal investigation stays queryable
	// in memory after completion.
	RetentionPeriod Duration `yaml:"retention_period"`
}

// DefaultRetentionConfig returns the built-in retention defaults.
func DefaultRetentionConfig() *RetentionConfig {
	return &RetentionConfig{
		SweepInterval:   Duration(5 * time.Minute),
		RetentionPeriod: Duration(1 * time.Hour),
	}
}

// ServerConfig controls the HTTP API server.
type ServerConfig struct {
	Port            string   `yaml:"port"`
	ShutdownTimeout Duration `yaml:"shutdown_timeout"`
}

// DefaultServerConfig returns the built-in server defaults.
func DefaultServerConfig() *ServerConfig {
	return &ServerConfig{
		Port:            "8080",
		ShutdownTimeout: Duration(5 * time.Second),
	}
}
