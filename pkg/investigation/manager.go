package investigation

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/fraudsight/crosscheck/pkg/models"
)

// ErrNotFound is returned when an investigation id is unknown.
var ErrNotFound = fmt.Errorf("investigation not found")

// Manager is the process-wide registry of investigation contexts. Its only
// synchronized operations are insertion and removal of whole investigations;
// all per-investigation mutation happens inside the isolated Context.
type Manager struct {
	mu       sync.RWMutex
	contexts map[string]*Context
}

// NewManager creates an empty registry.
func NewManager() *Manager {
	return &Manager{contexts: make(map[string]*Context)}
}

// Create registers a new context for the validated request and returns it.
func (m *Manager) Create(req models.InvestigationRequest) *Context {
	id := uuid.New().String()
	ctx := newContext(id, req)

	m.mu.Lock()
	m.contexts[id] = ctx
	m.mu.Unlock()

	return ctx
}

// Get retrieves a context by investigation id.
func (m *Manager) Get(id string) (*Context, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ctx, ok := m.contexts[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return ctx, nil
}

// Delete removes a context from the registry.
func (m *Manager) Delete(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.contexts[id]; !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	delete(m.contexts, id)
	return nil
}

// List returns all registered contexts.
func (m *Manager) List() []*Context {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*Context, 0, len(m.contexts))
	for _, ctx := range m.contexts {
		out = append(out, ctx)
	}
	return out
}

// Len returns the number of registered investigations.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.contexts)
}

// EvictTerminalBefore removes terminal investigations that completed before
// the cutoff, returning the evicted ids. Used by the retention sweep.
func (m *Manager) EvictTerminalBefore(cutoff time.Time) []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	var evicted []string
	for id, ctx := range m.contexts {
		completed := ctx.CompletedAt()
		if ctx.State().Terminal() && !completed.IsZero() && completed.Before(cutoff) {
			delete(m.contexts, id)
			evicted = append(evicted, id)
		}
	}
	return evicted
}
