// Package risk turns per-entity results and cross-entity analysis into the
// final MultiEntityRiskAssessment. Aggregation is deterministic: the same
// inputs always produce the same scores, and the boolean assessment is
// attached as explanatory output without ever multiplying the numeric score.
package risk

import (
	"sort"
	"time"

	"github.com/fraudsight/crosscheck/pkg/config"
	"github.com/fraudsight/crosscheck/pkg/models"
)

// Aggregator computes the RISK_ASSESSMENT phase output. Stateless, safe for
// concurrent use.
type Aggregator struct {
	cfg *config.RiskConfig
}

// New creates an aggregator.
func New(cfg *config.RiskConfig) *Aggregator {
	return &Aggregator{cfg: cfg}
}

// Input carries everything the aggregation consumes. Results must be the
// full terminal result set; Analysis, Insights and Boolean may be nil/empty
// when the corresponding phase produced nothing.
type Input struct {
	InvestigationID string
	Entities        []models.Entity
	Relationships   []models.EntityRelationship
	Results         []models.InvestigationResult
	Analysis        *models.CrossEntityAnalysis
	Insights        []models.RelationshipInsight
	Boolean         *models.BooleanAssessment
	MissingPairs    []models.PairKey
}

// EntityScores merges succeeded domain scores into one score per entity: the
// arithmetic mean of every succeeded domain for that entity. Entities with
// no succeeded result have no entry — for boolean evaluation they are
// undefined, not zero.
func EntityScores(results []models.InvestigationResult) map[string]float64 {
	sums := make(map[string]float64)
	counts := make(map[string]int)
	for _, r := range results {
		if r.Status != models.ResultStatusSucceeded {
			continue
		}
		sums[r.EntityID] += r.RiskScore
		counts[r.EntityID]++
	}
	scores := make(map[string]float64, len(sums))
	for id, sum := range sums {
		scores[id] = sum / float64(counts[id])
	}
	return scores
}

// Aggregate computes the final assessment:
//
//	base       = importance-weighted mean of per-entity scores
//	multiplier = 1 + correlation_weight·correlation + edge_bonus per
//	             qualifying edge, capped at max_multiplier
//	overall    = min(1, base × multiplier)
//
// An edge qualifies when its strength and confidence clear the high cutoffs
// and both endpoints scored high-risk. Confidence is the fraction of pairs
// that succeeded, discounted further when the result set is degraded.
func (a *Aggregator) Aggregate(in Input) *models.MultiEntityRiskAssessment {
	scores := EntityScores(in.Results)

	var weightedSum, weightTotal float64
	for _, e := range in.Entities {
		score, ok := scores[e.ID]
		if !ok {
			continue
		}
		w := e.ImportanceWeight()
		weightedSum += score * w
		weightTotal += w
	}
	var base float64
	if weightTotal > 0 {
		base = weightedSum / weightTotal
	}

	multiplier, contributions := a.multiplier(in, scores)

	overall := base * multiplier
	if overall > 1 {
		overall = 1
	}

	degraded := len(in.MissingPairs) > 0
	confidence := a.confidence(in.Results, degraded)

	missing := append([]models.PairKey(nil), in.MissingPairs...)
	sort.Slice(missing, func(i, j int) bool {
		if missing[i].EntityID != missing[j].EntityID {
			return missing[i].EntityID < missing[j].EntityID
		}
		return missing[i].Domain < missing[j].Domain
	})

	return &models.MultiEntityRiskAssessment{
		InvestigationID:        in.InvestigationID,
		OverallScore:           overall,
		PerEntityScores:        scores,
		CrossEntityMultipliers: contributions,
		Confidence:             confidence,
		Degraded:               degraded,
		MissingPairs:           missing,
		Analysis:               in.Analysis,
		Insights:               in.Insights,
		Boolean:                in.Boolean,
		GeneratedAt:            time.Now(),
	}
}

// multiplier combines the correlation score and qualifying high-risk edges
// into one cross-entity factor. The returned map records each additive
// contribution by source: "correlation" plus one entry per qualifying edge.
func (a *Aggregator) multiplier(in Input, scores map[string]float64) (float64, map[string]float64) {
	contributions := make(map[string]float64)

	multiplier := 1.0
	if in.Analysis != nil && in.Analysis.CorrelationScore > 0 {
		c := a.cfg.CorrelationWeight * in.Analysis.CorrelationScore
		multiplier += c
		contributions["correlation"] = c
	}

	for _, rel := range in.Relationships {
		if rel.Strength < a.cfg.HighStrength || rel.Confidence < a.cfg.HighConfidence {
			continue
		}
		src, srcOK := scores[rel.SourceID]
		dst, dstOK := scores[rel.TargetID]
		if !srcOK || !dstOK || src < a.cfg.HighRisk || dst < a.cfg.HighRisk {
			continue
		}
		multiplier += a.cfg.EdgeBonus
		contributions[rel.Key()] = a.cfg.EdgeBonus
	}

	if a.cfg.MaxMultiplier > 0 && multiplier > a.cfg.MaxMultiplier {
		multiplier = a.cfg.MaxMultiplier
	}
	return multiplier, contributions
}

// confidence is the succeeded fraction of all terminal pairs, with the
// degraded penalty applied on top when any pair is missing.
func (a *Aggregator) confidence(results []models.InvestigationResult, degraded bool) float64 {
	if len(results) == 0 {
		return 0
	}
	var succeeded int
	for _, r := range results {
		if r.Status == models.ResultStatusSucceeded {
			succeeded++
		}
	}
	confidence := float64(succeeded) / float64(len(results))
	if degraded {
		confidence *= 1 - a.cfg.DegradedConfidencePenalty
	}
	if confidence < 0 {
		confidence = 0
	}
	return confidence
}
