package agent

import (
	"context"
	"hash/fnv"
	"strconv"
	"strings"
	"time"

	"github.com/fraudsight/crosscheck/pkg/models"
)

// Built-in analysis domains served by the heuristic reference agents.
const (
	DomainDevice   = "device"
	DomainLocation = "location"
	DomainNetwork  = "network"
	DomainLogs     = "logs"
	DomainRisk     = "risk"
)

// heuristicAgent is the deterministic reference implementation used by the
// default wiring. Real deployments register their own DomainAgent
// implementations (fingerprinting backends, SIEM queries, LLM reasoners)
// alongside or instead of these.
//
// Scoring is stable for a given (domain, entity raw value) pair so that
// repeated investigations agree; entity metadata can pin an exact score via
// "risk_score" or "risk_score.<domain>".
type heuristicAgent struct {
	domain string
}

func builtinAgents() []DomainAgent {
	return []DomainAgent{
		&heuristicAgent{domain: DomainDevice},
		&heuristicAgent{domain: DomainLocation},
		&heuristicAgent{domain: DomainNetwork},
		&heuristicAgent{domain: DomainLogs},
		&heuristicAgent{domain: DomainRisk},
	}
}

func (a *heuristicAgent) Domain() string { return a.domain }

func (a *heuristicAgent) Investigate(ctx context.Context, entity models.Entity, _ InvestigationContext) (*models.InvestigationResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	started := time.Now()
	result := &models.InvestigationResult{
		EntityID:  entity.ID,
		Domain:    a.domain,
		Status:    models.ResultStatusSucceeded,
		RiskScore: a.score(entity),
		StartedAt: started,
	}

	finding := models.Finding{
		Summary:    a.domain + " analysis of " + string(entity.Type) + " " + entity.ID,
		Attributes: signalAttributes(entity),
	}
	if start, end, ok := activityWindow(entity); ok {
		finding.WindowStart = start
		finding.WindowEnd = end
	}
	result.Findings = []models.Finding{finding}
	result.CompletedAt = time.Now()
	return result, nil
}

// score derives the risk score: metadata override first, stable hash
// otherwise.
func (a *heuristicAgent) score(entity models.Entity) float64 {
	for _, key := range []string{"risk_score." + a.domain, "risk_score"} {
		if raw, ok := entity.Metadata[key]; ok {
			if s, err := strconv.ParseFloat(raw, 64); err == nil && s >= 0 && s <= 1 {
				return s
			}
		}
	}
	h := fnv.New32a()
	_, _ = h.Write([]byte(a.domain + "|" + entity.RawValue))
	return float64(h.Sum32()%1000) / 999.0
}

// signalAttributes copies identifier-bearing metadata into the finding so
// cross-entity analysis can correlate shared signals. Control keys used to
// steer the heuristic itself are excluded.
func signalAttributes(entity models.Entity) map[string]string {
	attrs := make(map[string]string)
	for k, v := range entity.Metadata {
		if strings.HasPrefix(k, "risk_score") || k == "importance" ||
			k == "window_start" || k == "window_end" {
			continue
		}
		attrs[k] = v
	}
	if len(attrs) == 0 {
		return nil
	}
	return attrs
}

// activityWindow reads an explicit activity window from entity metadata
// (RFC 3339 timestamps).
func activityWindow(entity models.Entity) (time.Time, time.Time, bool) {
	rawStart, okS := entity.Metadata["window_start"]
	rawEnd, okE := entity.Metadata["window_end"]
	if !okS || !okE {
		return time.Time{}, time.Time{}, false
	}
	start, errS := time.Parse(time.RFC3339, rawStart)
	end, errE := time.Parse(time.RFC3339, rawEnd)
	if errS != nil || errE != nil || end.Before(start) {
		return time.Time{}, time.Time{}, false
	}
	return start, end, true
}
