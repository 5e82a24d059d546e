package risk

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fraudsight/crosscheck/pkg/config"
	"github.com/fraudsight/crosscheck/pkg/models"
)

func pairResult(entityID, domain string, status models.ResultStatus, score float64) models.InvestigationResult {
	return models.InvestigationResult{EntityID: entityID, Domain: domain, Status: status, RiskScore: score}
}

func twoEntityInput() Input {
	return Input{
		InvestigationID: "inv-1",
		Entities: []models.Entity{
			{ID: "U1", Type: models.EntityTypeUser, RawValue: "alice@example.com"},
			{ID: "D1", Type: models.EntityTypeDevice, RawValue: "fp-9921"},
		},
		Relationships: []models.EntityRelationship{
			{SourceID: "U1", TargetID: "D1", Type: models.RelationshipSameDevice, Strength: 0.9, Confidence: 0.95},
		},
		Results: []models.InvestigationResult{
			pairResult("U1", "device", models.ResultStatusSucceeded, 0.8),
			pairResult("D1", "device", models.ResultStatusSucceeded, 0.75),
		},
	}
}

func TestEntityScoresMeansSucceededDomains(t *testing.T) {
	scores := EntityScores([]models.InvestigationResult{
		pairResult("U1", "device", models.ResultStatusSucceeded, 0.8),
		pairResult("U1", "logs", models.ResultStatusSucceeded, 0.4),
		pairResult("U1", "network", models.ResultStatusFailed, 0.99),
		pairResult("D1", "device", models.ResultStatusTimeout, 0),
	})

	assert.InDelta(t, 0.6, scores["U1"], 1e-9)
	_, ok := scores["D1"]
	assert.False(t, ok, "entity with no succeeded result must stay undefined")
}

func TestAggregateHighRiskEdgeElevatesScore(t *testing.T) {
	agg := New(config.DefaultRiskConfig())
	in := twoEntityInput()
	in.Analysis = &models.CrossEntityAnalysis{CorrelationScore: 0.6}

	out := agg.Aggregate(in)

	base := (0.8 + 0.75) / 2
	multiplier := 1 + 0.25*0.6 + 0.1
	assert.InDelta(t, base*multiplier, out.OverallScore, 1e-9)
	assert.Greater(t, out.OverallScore, base)
	assert.LessOrEqual(t, out.OverallScore, 1.0)

	assert.InDelta(t, 0.25*0.6, out.CrossEntityMultipliers["correlation"], 1e-9)
	assert.InDelta(t, 0.1, out.CrossEntityMultipliers["U1--same_device-->D1"], 1e-9)

	assert.False(t, out.Degraded)
	assert.InDelta(t, 1.0, out.Confidence, 1e-9)
}

func TestAggregateEdgeBelowCutoffsContributesNothing(t *testing.T) {
	agg := New(config.DefaultRiskConfig())

	// Weak edge.
	in := twoEntityInput()
	in.Relationships[0].Strength = 0.3
	out := agg.Aggregate(in)
	assert.NotContains(t, out.CrossEntityMultipliers, "U1--same_device-->D1")

	// Strong edge but a low-risk endpoint.
	in = twoEntityInput()
	in.Results[1].RiskScore = 0.2
	out = agg.Aggregate(in)
	assert.NotContains(t, out.CrossEntityMultipliers, "U1--same_device-->D1")
}

func TestAggregateImportanceWeights(t *testing.T) {
	agg := New(config.DefaultRiskConfig())
	in := twoEntityInput()
	in.Relationships = nil
	in.Entities[0].Metadata = map[string]string{"importance": "3"}

	out := agg.Aggregate(in)
	assert.InDelta(t, (0.8*3+0.75)/4, out.OverallScore, 1e-9)
}

func TestAggregateDegradedConfidence(t *testing.T) {
	agg := New(config.DefaultRiskConfig())
	in := twoEntityInput()
	in.Results = append(in.Results,
		pairResult("U1", "logs", models.ResultStatusTimeout, 0),
		pairResult("D1", "logs", models.ResultStatusFailed, 0),
	)
	in.MissingPairs = []models.PairKey{
		{EntityID: "D1", Domain: "logs"},
		{EntityID: "U1", Domain: "logs"},
	}

	out := agg.Aggregate(in)
	assert.True(t, out.Degraded)
	assert.Equal(t, in.MissingPairs, out.MissingPairs)
	// Half the pairs succeeded, then the degraded penalty.
	assert.InDelta(t, 0.5*(1-0.15), out.Confidence, 1e-9)
}

func TestAggregateMultiplierCapped(t *testing.T) {
	cfg := config.DefaultRiskConfig()
	cfg.EdgeBonus = 0.4
	agg := New(cfg)

	in := twoEntityInput()
	in.Relationships = append(in.Relationships,
		models.EntityRelationship{SourceID: "D1", TargetID: "U1", Type: models.RelationshipSameIP, Strength: 0.9, Confidence: 0.9},
	)
	in.Analysis = &models.CrossEntityAnalysis{CorrelationScore: 1.0}

	out := agg.Aggregate(in)
	// 1 + 0.25 + 0.4 + 0.4 would be 2.05; capped at 1.5, then score capped at 1.
	base := (0.8 + 0.75) / 2
	expected := base * 1.5
	if expected > 1 {
		expected = 1
	}
	assert.InDelta(t, expected, out.OverallScore, 1e-9)
}

func TestAggregateBooleanNeverChangesScore(t *testing.T) {
	agg := New(config.DefaultRiskConfig())

	in := twoEntityInput()
	withoutBoolean := agg.Aggregate(in)

	in = twoEntityInput()
	in.Boolean = &models.BooleanAssessment{Expression: "U1 AND D1", Value: true, Threshold: 0.7}
	withBoolean := agg.Aggregate(in)

	assert.Equal(t, withoutBoolean.OverallScore, withBoolean.OverallScore)
	require.NotNil(t, withBoolean.Boolean)
	assert.True(t, withBoolean.Boolean.Value)
}

func TestAggregateNoUsableResults(t *testing.T) {
	agg := New(config.DefaultRiskConfig())
	in := twoEntityInput()
	in.Results = []models.InvestigationResult{
		pairResult("U1", "device", models.ResultStatusFailed, 0),
		pairResult("D1", "device", models.ResultStatusTimeout, 0),
	}
	in.MissingPairs = []models.PairKey{
		{EntityID: "D1", Domain: "device"},
		{EntityID: "U1", Domain: "device"},
	}

	out := agg.Aggregate(in)
	assert.Zero(t, out.OverallScore)
	assert.Zero(t, out.Confidence)
	assert.Empty(t, out.PerEntityScores)
}
