// Package agent defines the domain-agent capability contract consumed by the
// per-entity coordinator, plus the registry that maps domain names to
// implementations. Agents investigate one entity in one analysis domain;
// their internal heuristics are their own business.
package agent

import (
	"context"

	"github.com/fraudsight/crosscheck/pkg/models"
)

// InvestigationContext carries the cross-cutting request context an agent
// may consult while investigating a single entity.
type InvestigationContext struct {
	InvestigationID string
	Scope           []string
	Priority        models.Priority
	Metadata        map[string]string
}

// DomainAgent is the capability interface implemented by every analysis
// domain. New domains are added by registering new implementations, never by
// branching on type tags.
type DomainAgent interface {
	// Domain returns the analysis domain name this agent serves.
	Domain() string

	// Investigate analyzes one entity. ctx carries the per-call timeout and
	// the investigation-level cancellation signal; implementations must
	// honor it promptly.
	//
	// Returns (result, nil) on success with RiskScore in [0,1].
	// Returns (nil, error) on failure; wrap the error in Transient() when a
	// retry may help (network flake, backend unavailable).
	Investigate(ctx context.Context, entity models.Entity, ictx InvestigationContext) (*models.InvestigationResult, error)
}
