package models

import "time"

// BoolTraceStep records the evaluated value of one sub-expression of the
// boolean combination logic.
type BoolTraceStep struct {
	Expression string `json:"expression"`
	Value      bool   `json:"value"`
}

// BooleanAssessment is the explanatory output of the boolean logic evaluator.
// It is a complementary decision input: it never multiplies the numeric risk
// score.
type BooleanAssessment struct {
	Expression string          `json:"expression"`
	Value      bool            `json:"value"`
	Threshold  float64         `json:"threshold"`
	Trace      []BoolTraceStep `json:"trace"`
	// Undefined lists entity ids referenced by the expression that had no
	// usable risk score (e.g. all domains timed out); they evaluated false.
	Undefined []string `json:"undefined,omitempty"`
}

// MultiEntityRiskAssessment is the single aggregated outcome of an
// investigation. Frozen once computed.
type MultiEntityRiskAssessment struct {
	InvestigationID string `json:"investigation_id"`

	OverallScore           float64            `json:"overall_score"`
	PerEntityScores        map[string]float64 `json:"per_entity_scores"`
	CrossEntityMultipliers map[string]float64 `json:"cross_entity_multipliers"`
	Confidence             float64            `json:"confidence"`

	// Degraded is set when one or more entity×domain pairs failed or timed
	// out; MissingPairs lists exactly those pairs.
	Degraded     bool      `json:"degraded"`
	MissingPairs []PairKey `json:"missing_pairs,omitempty"`

	Analysis *CrossEntityAnalysis  `json:"analysis,omitempty"`
	Insights []RelationshipInsight `json:"insights,omitempty"`
	Boolean  *BooleanAssessment    `json:"boolean,omitempty"`

	GeneratedAt time.Time `json:"generated_at"`
}
