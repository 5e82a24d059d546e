// Package analyzer detects cross-entity patterns once per-entity results are
// in: correlations along declared relationship edges, temporal clusters of
// activity windows, and anomaly clusters of shared attribute values. Only
// succeeded entity×domain results contribute signal; failed and timed-out
// pairs are simply absent.
package analyzer

import (
	"fmt"
	"sort"
	"time"

	"github.com/fraudsight/crosscheck/pkg/config"
	"github.com/fraudsight/crosscheck/pkg/graph"
	"github.com/fraudsight/crosscheck/pkg/models"
)

// Analyzer computes the CROSS_ENTITY_ANALYSIS and RELATIONSHIP_ANALYSIS
// artifacts. It is stateless and safe for concurrent use.
type Analyzer struct {
	cfg *config.AnalyzerConfig
}

// New creates an analyzer.
func New(cfg *config.AnalyzerConfig) *Analyzer {
	return &Analyzer{cfg: cfg}
}

// Analyze builds the cross-entity analysis from the request's declared
// relationships and the succeeded entity results. Feature flags on the
// request suppress individual detectors; suppressed detectors leave their
// slice empty and contribute nothing to the correlation score.
func (a *Analyzer) Analyze(req models.InvestigationRequest, results []models.InvestigationResult) *models.CrossEntityAnalysis {
	findings := findingsByEntity(results)
	g := graph.New(req.EntityIDs(), req.Relationships)

	analysis := &models.CrossEntityAnalysis{
		Interactions: a.detectInteractions(g, findings),
	}
	if !req.Flags.SkipTemporalPatterns {
		analysis.TemporalPatterns = a.detectTemporalPatterns(findings)
	}
	if !req.Flags.SkipAnomalyClusters {
		analysis.AnomalyClusters = a.detectAnomalyClusters(g, findings)
	}
	analysis.CorrelationScore = a.correlationScore(g, analysis, len(req.Entities))
	return analysis
}

// detectInteractions walks every resolved relationship edge and collects the
// correlation evidence between its endpoints: shared finding attribute
// values and overlapping activity windows. An edge is skipped only when
// neither endpoint has a succeeded result; a finding-less succeeded result
// still counts as usable signal, and the declared evidence carries the
// interaction.
func (a *Analyzer) detectInteractions(g *graph.Graph, findings map[string][]models.Finding) []models.EntityInteraction {
	var interactions []models.EntityInteraction
	for _, edge := range g.Edges() {
		rel := edge.Relationship
		src, srcOK := findings[rel.SourceID]
		dst, dstOK := findings[rel.TargetID]
		if !srcOK && !dstOK {
			continue
		}

		evidence := append([]string(nil), rel.Evidence...)
		evidence = append(evidence, sharedAttributeEvidence(src, dst)...)
		if overlap, ok := windowOverlap(src, dst); ok {
			evidence = append(evidence, fmt.Sprintf(
				"activity windows overlap between %s and %s",
				overlap.start.Format(time.RFC3339), overlap.end.Format(time.RFC3339)))
		}

		interactions = append(interactions, models.EntityInteraction{
			SourceID: rel.SourceID,
			TargetID: rel.TargetID,
			Type:     rel.Type,
			Evidence: evidence,
		})
	}
	return interactions
}

// detectTemporalPatterns groups finding windows across distinct entities:
// windows sorted by start time are chained while each starts within
// TemporalWindow of the running group's end. Groups spanning at least two
// entities become patterns.
func (a *Analyzer) detectTemporalPatterns(findings map[string][]models.Finding) []models.TemporalPattern {
	type window struct {
		entityID string
		start    time.Time
		end      time.Time
	}
	var windows []window
	for entityID, fs := range findings {
		for _, f := range fs {
			if f.HasWindow() {
				windows = append(windows, window{entityID: entityID, start: f.WindowStart, end: f.WindowEnd})
			}
		}
	}
	sort.Slice(windows, func(i, j int) bool {
		if !windows[i].start.Equal(windows[j].start) {
			return windows[i].start.Before(windows[j].start)
		}
		return windows[i].entityID < windows[j].entityID
	})

	gap := a.cfg.TemporalWindow.Std()
	var patterns []models.TemporalPattern
	var group []window
	flush := func() {
		if len(group) == 0 {
			return
		}
		ids := make(map[string]struct{})
		start, end := group[0].start, group[0].end
		for _, w := range group {
			ids[w.entityID] = struct{}{}
			if w.end.After(end) {
				end = w.end
			}
		}
		if len(ids) >= 2 {
			entityIDs := make([]string, 0, len(ids))
			for id := range ids {
				entityIDs = append(entityIDs, id)
			}
			sort.Strings(entityIDs)
			patterns = append(patterns, models.TemporalPattern{
				EntityIDs:   entityIDs,
				WindowStart: start,
				WindowEnd:   end,
				Description: fmt.Sprintf("%d entities active within %s of each other", len(entityIDs), gap),
			})
		}
		group = nil
	}

	var groupEnd time.Time
	for _, w := range windows {
		if len(group) > 0 && w.start.After(groupEnd.Add(gap)) {
			flush()
		}
		group = append(group, w)
		if len(group) == 1 || w.end.After(groupEnd) {
			groupEnd = w.end
		}
	}
	flush()
	return patterns
}

// detectAnomalyClusters indexes finding attributes by key=value and emits a
// cluster for every value shared by at least ClusterMinSize entities. A
// cluster is marked undeclared when some member pair has no declared
// relationship, surfacing correlations the request did not anticipate.
func (a *Analyzer) detectAnomalyClusters(g *graph.Graph, findings map[string][]models.Finding) []models.AnomalyCluster {
	type attrValue struct{ key, value string }
	sharing := make(map[attrValue]map[string]struct{})
	for entityID, fs := range findings {
		for _, f := range fs {
			for key, value := range f.Attributes {
				av := attrValue{key: key, value: value}
				if sharing[av] == nil {
					sharing[av] = make(map[string]struct{})
				}
				sharing[av][entityID] = struct{}{}
			}
		}
	}

	minSize := a.cfg.ClusterMinSize
	if minSize < 2 {
		minSize = 2
	}

	var keys []attrValue
	for av, entities := range sharing {
		if len(entities) >= minSize {
			keys = append(keys, av)
		}
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].key != keys[j].key {
			return keys[i].key < keys[j].key
		}
		return keys[i].value < keys[j].value
	})

	clusters := make([]models.AnomalyCluster, 0, len(keys))
	for i, av := range keys {
		entityIDs := make([]string, 0, len(sharing[av]))
		for id := range sharing[av] {
			entityIDs = append(entityIDs, id)
		}
		sort.Strings(entityIDs)
		clusters = append(clusters, models.AnomalyCluster{
			ID:         fmt.Sprintf("cluster-%d", i+1),
			Attribute:  av.key,
			Value:      av.value,
			EntityIDs:  entityIDs,
			Undeclared: hasUndeclaredPair(g, entityIDs),
		})
	}
	return clusters
}

// correlationScore combines the detectors into one [0,1] signal: how many
// interactions materialized, how strong the declared edges are, how tightly
// the graph ties the entities together, and how much temporal/cluster
// evidence surfaced. Each component is itself in [0,1] and the weights sum
// to 1, so adding evidence never lowers the score.
func (a *Analyzer) correlationScore(g *graph.Graph, analysis *models.CrossEntityAnalysis, entityCount int) float64 {
	if entityCount < 2 {
		return 0
	}

	var edgeQuality float64
	if edges := g.Edges(); len(edges) > 0 {
		var sum float64
		for _, e := range edges {
			sum += e.Relationship.Strength * e.Relationship.Confidence
		}
		edgeQuality = sum / float64(len(edges))
	}

	interactionCoverage := ratio(len(analysis.Interactions), entityCount-1)
	patternCoverage := ratio(len(analysis.TemporalPatterns), entityCount-1)
	clusterCoverage := ratio(len(analysis.AnomalyClusters), entityCount-1)

	score := 0.20*interactionCoverage + 0.30*edgeQuality +
		0.15*g.Density() + 0.15*linkedFraction(g, entityCount) +
		0.10*patternCoverage + 0.10*clusterCoverage
	if score > 1 {
		score = 1
	}
	return score
}

// linkedFraction is the share of entities sitting in a connected component
// of size two or more. Adding relationships only merges components, so the
// fraction grows monotonically with connectivity.
func linkedFraction(g *graph.Graph, entityCount int) float64 {
	if entityCount == 0 {
		return 0
	}
	linked := 0
	for _, component := range g.Components() {
		if len(component) >= 2 {
			linked += len(component)
		}
	}
	return float64(linked) / float64(entityCount)
}

// hasUndeclaredPair reports whether some pair of the given entities has no
// declared one-hop relationship between them.
func hasUndeclaredPair(g *graph.Graph, entityIDs []string) bool {
	for i, id := range entityIDs {
		adjacent := make(map[string]struct{})
		for _, n := range g.Neighbors(id) {
			adjacent[n] = struct{}{}
		}
		for _, other := range entityIDs[i+1:] {
			if _, ok := adjacent[other]; !ok {
				return true
			}
		}
	}
	return false
}

// DeriveInsights annotates each declared relationship with its significance
// and the weight fed into risk aggregation. Weight is strength×confidence;
// significance reflects the weight band and any interaction evidence the
// analyzer attached to the edge.
func (a *Analyzer) DeriveInsights(relationships []models.EntityRelationship, analysis *models.CrossEntityAnalysis) []models.RelationshipInsight {
	evidenceCount := make(map[string]int)
	if analysis != nil {
		for _, in := range analysis.Interactions {
			key := in.SourceID + "--" + string(in.Type) + "-->" + in.TargetID
			evidenceCount[key] = len(in.Evidence)
		}
	}

	insights := make([]models.RelationshipInsight, 0, len(relationships))
	for _, rel := range relationships {
		weight := rel.Strength * rel.Confidence
		var band string
		switch {
		case weight >= 0.7:
			band = "strong"
		case weight >= 0.4:
			band = "moderate"
		default:
			band = "weak"
		}
		significance := fmt.Sprintf("%s %s link between %s and %s", band, rel.Type, rel.SourceID, rel.TargetID)
		if n := evidenceCount[rel.Key()]; n > 0 {
			significance += fmt.Sprintf(", corroborated by %d evidence item(s)", n)
		}
		insights = append(insights, models.RelationshipInsight{
			Relationship: rel,
			Significance: significance,
			Weight:       weight,
		})
	}
	return insights
}

type span struct {
	start time.Time
	end   time.Time
}

// windowOverlap reports the intersection of any pair of windows drawn one
// from each side.
func windowOverlap(src, dst []models.Finding) (span, bool) {
	for _, a := range src {
		if !a.HasWindow() {
			continue
		}
		for _, b := range dst {
			if !b.HasWindow() {
				continue
			}
			start := a.WindowStart
			if b.WindowStart.After(start) {
				start = b.WindowStart
			}
			end := a.WindowEnd
			if b.WindowEnd.Before(end) {
				end = b.WindowEnd
			}
			if !end.Before(start) {
				return span{start: start, end: end}, true
			}
		}
	}
	return span{}, false
}

// sharedAttributeEvidence returns one evidence line per attribute value both
// endpoints reported, sorted for determinism.
func sharedAttributeEvidence(src, dst []models.Finding) []string {
	srcAttrs := make(map[string]string)
	for _, f := range src {
		for k, v := range f.Attributes {
			srcAttrs[k] = v
		}
	}
	var lines []string
	seen := make(map[string]struct{})
	for _, f := range dst {
		for k, v := range f.Attributes {
			if srcAttrs[k] != v {
				continue
			}
			if _, dup := seen[k]; dup {
				continue
			}
			seen[k] = struct{}{}
			lines = append(lines, fmt.Sprintf("shared %s: %s", k, v))
		}
	}
	sort.Strings(lines)
	return lines
}

// findingsByEntity collects the findings of succeeded results. Every entity
// with at least one succeeded result gets an entry, even an empty one, so
// callers can tell "no findings" apart from "no usable result".
func findingsByEntity(results []models.InvestigationResult) map[string][]models.Finding {
	out := make(map[string][]models.Finding)
	for _, r := range results {
		if r.Status != models.ResultStatusSucceeded {
			continue
		}
		if _, ok := out[r.EntityID]; !ok {
			out[r.EntityID] = []models.Finding{}
		}
		out[r.EntityID] = append(out[r.EntityID], r.Findings...)
	}
	return out
}

func ratio(n, max int) float64 {
	if max <= 0 || n <= 0 {
		return 0
	}
	r := float64(n) / float64(max)
	if r > 1 {
		r = 1
	}
	return r
}
