package analyzer

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fraudsight/crosscheck/pkg/config"
	"github.com/fraudsight/crosscheck/pkg/models"
)

var baseTime = time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)

func succeeded(entityID, domain string, score float64, findings ...models.Finding) models.InvestigationResult {
	return models.InvestigationResult{
		EntityID:  entityID,
		Domain:    domain,
		Status:    models.ResultStatusSucceeded,
		RiskScore: score,
		Findings:  findings,
	}
}

func threeEntityRequest() models.InvestigationRequest {
	return models.InvestigationRequest{
		Entities: []models.Entity{
			{ID: "U1", Type: models.EntityTypeUser, RawValue: "alice@example.com"},
			{ID: "D1", Type: models.EntityTypeDevice, RawValue: "fp-9921"},
			{ID: "IP1", Type: models.EntityTypeIPAddress, RawValue: "203.0.113.7"},
		},
		Relationships: []models.EntityRelationship{
			{SourceID: "U1", TargetID: "D1", Type: models.RelationshipSameDevice, Strength: 0.9, Confidence: 0.95},
			{SourceID: "D1", TargetID: "IP1", Type: models.RelationshipSameIP, Strength: 0.6, Confidence: 0.8},
		},
		Scope: []string{"device", "network"},
	}
}

func TestAnalyzeDetectsSharedAttributeInteraction(t *testing.T) {
	a := New(config.DefaultAnalyzerConfig())
	req := threeEntityRequest()

	results := []models.InvestigationResult{
		succeeded("U1", "device", 0.8, models.Finding{
			Summary:    "login device",
			Attributes: map[string]string{"device_signature": "fp-9921"},
		}),
		succeeded("D1", "device", 0.75, models.Finding{
			Summary:    "fingerprint record",
			Attributes: map[string]string{"device_signature": "fp-9921"},
		}),
		succeeded("IP1", "network", 0.4),
	}

	analysis := a.Analyze(req, results)
	require.Len(t, analysis.Interactions, 2)

	first := analysis.Interactions[0]
	assert.Equal(t, "U1", first.SourceID)
	assert.Equal(t, "D1", first.TargetID)
	assert.Contains(t, first.Evidence, "shared device_signature: fp-9921")
}

func TestAnalyzeEmitsInteractionsForFindinglessResults(t *testing.T) {
	a := New(config.DefaultAnalyzerConfig())
	req := threeEntityRequest()
	req.Relationships[0].Evidence = []string{"shared login device on file"}

	// Succeeded results that carry no findings are still usable signal; the
	// declared evidence carries the interaction.
	analysis := a.Analyze(req, []models.InvestigationResult{
		succeeded("U1", "device", 0.8),
		succeeded("D1", "device", 0.75),
	})
	require.Len(t, analysis.Interactions, 2)
	assert.Equal(t, []string{"shared login device on file"}, analysis.Interactions[0].Evidence)
}

func TestAnalyzeIgnoresFailedResults(t *testing.T) {
	a := New(config.DefaultAnalyzerConfig())
	req := threeEntityRequest()

	results := []models.InvestigationResult{
		{EntityID: "U1", Domain: "device", Status: models.ResultStatusFailed,
			Findings: []models.Finding{{Attributes: map[string]string{"device_signature": "fp-9921"}}}},
		{EntityID: "D1", Domain: "device", Status: models.ResultStatusTimeout,
			Findings: []models.Finding{{Attributes: map[string]string{"device_signature": "fp-9921"}}}},
	}

	analysis := a.Analyze(req, results)
	assert.Empty(t, analysis.Interactions)
	assert.Empty(t, analysis.AnomalyClusters)
}

func TestAnalyzeTemporalPatterns(t *testing.T) {
	a := New(&config.AnalyzerConfig{
		TemporalWindow: config.Duration(5 * time.Minute),
		ClusterMinSize: 2,
	})
	req := threeEntityRequest()

	results := []models.InvestigationResult{
		succeeded("U1", "logs", 0.5, models.Finding{
			Summary:     "burst of logins",
			WindowStart: baseTime,
			WindowEnd:   baseTime.Add(2 * time.Minute),
		}),
		succeeded("D1", "logs", 0.5, models.Finding{
			Summary:     "fingerprint churn",
			WindowStart: baseTime.Add(4 * time.Minute),
			WindowEnd:   baseTime.Add(6 * time.Minute),
		}),
		// Far outside the window, alone in its group.
		succeeded("IP1", "logs", 0.5, models.Finding{
			Summary:     "later probe",
			WindowStart: baseTime.Add(2 * time.Hour),
			WindowEnd:   baseTime.Add(3 * time.Hour),
		}),
	}

	analysis := a.Analyze(req, results)
	require.Len(t, analysis.TemporalPatterns, 1)
	pattern := analysis.TemporalPatterns[0]
	assert.Equal(t, []string{"D1", "U1"}, pattern.EntityIDs)
	assert.Equal(t, baseTime, pattern.WindowStart)
	assert.Equal(t, baseTime.Add(6*time.Minute), pattern.WindowEnd)
}

func TestAnalyzeAnomalyClusters(t *testing.T) {
	a := New(config.DefaultAnalyzerConfig())
	req := threeEntityRequest()

	results := []models.InvestigationResult{
		succeeded("U1", "network", 0.5, models.Finding{Attributes: map[string]string{"ip": "203.0.113.7"}}),
		succeeded("D1", "network", 0.5, models.Finding{Attributes: map[string]string{"ip": "203.0.113.7"}}),
		succeeded("IP1", "network", 0.5, models.Finding{Attributes: map[string]string{"ip": "203.0.113.7"}}),
	}

	analysis := a.Analyze(req, results)
	require.Len(t, analysis.AnomalyClusters, 1)
	cluster := analysis.AnomalyClusters[0]
	assert.Equal(t, "ip", cluster.Attribute)
	assert.Equal(t, "203.0.113.7", cluster.Value)
	assert.Equal(t, []string{"D1", "IP1", "U1"}, cluster.EntityIDs)
	// U1 and IP1 share the value but have no declared relationship.
	assert.True(t, cluster.Undeclared)

	// Closing the triangle declares every pair.
	req.Relationships = append(req.Relationships, models.EntityRelationship{
		SourceID: "U1", TargetID: "IP1", Type: models.RelationshipSameIP,
		Strength: 0.5, Confidence: 0.5,
	})
	analysis = a.Analyze(req, results)
	require.Len(t, analysis.AnomalyClusters, 1)
	assert.False(t, analysis.AnomalyClusters[0].Undeclared)
}

func TestAnalyzeFeatureFlagsSuppressDetectors(t *testing.T) {
	a := New(config.DefaultAnalyzerConfig())
	req := threeEntityRequest()
	req.Flags = models.FeatureFlags{SkipTemporalPatterns: true, SkipAnomalyClusters: true}

	results := []models.InvestigationResult{
		succeeded("U1", "network", 0.5, models.Finding{
			Attributes:  map[string]string{"ip": "203.0.113.7"},
			WindowStart: baseTime, WindowEnd: baseTime.Add(time.Minute),
		}),
		succeeded("D1", "network", 0.5, models.Finding{
			Attributes:  map[string]string{"ip": "203.0.113.7"},
			WindowStart: baseTime, WindowEnd: baseTime.Add(time.Minute),
		}),
	}

	analysis := a.Analyze(req, results)
	assert.Empty(t, analysis.TemporalPatterns)
	assert.Empty(t, analysis.AnomalyClusters)
}

func TestAnalyzeTerminatesOnCyclicGraph(t *testing.T) {
	a := New(config.DefaultAnalyzerConfig())
	req := models.InvestigationRequest{
		Entities: []models.Entity{
			{ID: "A", Type: models.EntityTypeUser, RawValue: "a"},
			{ID: "B", Type: models.EntityTypeUser, RawValue: "b"},
			{ID: "C", Type: models.EntityTypeUser, RawValue: "c"},
		},
		Relationships: []models.EntityRelationship{
			{SourceID: "A", TargetID: "B", Type: models.RelationshipLinkedAccount, Strength: 0.8, Confidence: 0.8, Bidirectional: true},
			{SourceID: "B", TargetID: "C", Type: models.RelationshipLinkedAccount, Strength: 0.8, Confidence: 0.8, Bidirectional: true},
			{SourceID: "C", TargetID: "A", Type: models.RelationshipLinkedAccount, Strength: 0.8, Confidence: 0.8, Bidirectional: true},
		},
		Scope: []string{"risk"},
	}
	results := []models.InvestigationResult{
		succeeded("A", "risk", 0.9),
		succeeded("B", "risk", 0.9),
		succeeded("C", "risk", 0.9),
	}

	analysis := a.Analyze(req, results)
	assert.Len(t, analysis.Interactions, 3)
	assert.Greater(t, analysis.CorrelationScore, 0.0)
	assert.LessOrEqual(t, analysis.CorrelationScore, 1.0)
}

func TestCorrelationScoreMonotonic(t *testing.T) {
	a := New(config.DefaultAnalyzerConfig())
	req := threeEntityRequest()

	sparse := a.Analyze(req, []models.InvestigationResult{
		succeeded("U1", "device", 0.5),
		succeeded("D1", "device", 0.5),
	})

	rich := a.Analyze(req, []models.InvestigationResult{
		succeeded("U1", "device", 0.5, models.Finding{
			Attributes:  map[string]string{"device_signature": "fp-9921"},
			WindowStart: baseTime, WindowEnd: baseTime.Add(time.Minute),
		}),
		succeeded("D1", "device", 0.5, models.Finding{
			Attributes:  map[string]string{"device_signature": "fp-9921"},
			WindowStart: baseTime, WindowEnd: baseTime.Add(time.Minute),
		}),
	})

	assert.GreaterOrEqual(t, rich.CorrelationScore, sparse.CorrelationScore)
	assert.GreaterOrEqual(t, sparse.CorrelationScore, 0.0)
	assert.LessOrEqual(t, rich.CorrelationScore, 1.0)
}

func TestDeriveInsights(t *testing.T) {
	a := New(config.DefaultAnalyzerConfig())
	req := threeEntityRequest()

	analysis := &models.CrossEntityAnalysis{
		Interactions: []models.EntityInteraction{{
			SourceID: "U1", TargetID: "D1", Type: models.RelationshipSameDevice,
			Evidence: []string{"shared device_signature: fp-9921"},
		}},
	}

	insights := a.DeriveInsights(req.Relationships, analysis)
	require.Len(t, insights, 2)

	assert.InDelta(t, 0.9*0.95, insights[0].Weight, 1e-9)
	assert.Contains(t, insights[0].Significance, "strong")
	assert.Contains(t, insights[0].Significance, "corroborated by 1 evidence item")

	assert.InDelta(t, 0.6*0.8, insights[1].Weight, 1e-9)
	assert.Contains(t, insights[1].Significance, "moderate")
}
