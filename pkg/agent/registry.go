package agent

import (
	"fmt"
	"sort"
	"sync"
)

// Registry maps domain names to their agents. Registration normally happens
// at startup; lookups happen on every fan-out.
type Registry struct {
	mu     sync.RWMutex
	agents map[string]DomainAgent
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{agents: make(map[string]DomainAgent)}
}

// NewDefaultRegistry creates a registry pre-populated with the built-in
// heuristic agents.
func NewDefaultRegistry() *Registry {
	r := NewRegistry()
	for _, a := range builtinAgents() {
		// Built-in domains are distinct; Register cannot fail here.
		_ = r.Register(a)
	}
	return r
}

// Register adds an agent for its domain. Registering a duplicate domain is
// an error.
func (r *Registry) Register(a DomainAgent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	domain := a.Domain()
	if _, exists := r.agents[domain]; exists {
		return fmt.Errorf("agent for domain %q already registered", domain)
	}
	r.agents[domain] = a
	return nil
}

// Get returns the agent for the given domain.
func (r *Registry) Get(domain string) (DomainAgent, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.agents[domain]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownDomain, domain)
	}
	return a, nil
}

// Has reports whether the domain has a registered agent.
func (r *Registry) Has(domain string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.agents[domain]
	return ok
}

// Domains returns the sorted list of registered domain names.
func (r *Registry) Domains() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.agents))
	for d := range r.agents {
		out = append(out, d)
	}
	sort.Strings(out)
	return out
}
