// Package cleanup enforces retention on the in-memory investigation
// registry: terminal investigations stay queryable for the retention period,
// then get evicted by a background sweep. The PostgreSQL archive, when
// configured, keeps them beyond that.
package cleanup

import (
	"context"
	"log/slog"
	"time"

	"github.com/fraudsight/crosscheck/pkg/config"
	"github.com/fraudsight/crosscheck/pkg/investigation"
)

// Service periodically evicts expired terminal investigations. Eviction is
// idempotent; running investigations are never touched.
type Service struct {
	config  *config.RetentionConfig
	manager *investigation.Manager

	cancel context.CancelFunc
	done   chan struct{}
}

// NewService creates a retention sweep over the given registry.
func NewService(cfg *config.RetentionConfig, manager *investigation.Manager) *Service {
	return &Service{config: cfg, manager: manager}
}

// Start launches the background sweep loop.
func (s *Service) Start(ctx context.Context) {
	if s.cancel != nil {
		return
	}
	ctx, s.cancel = context.WithCancel(ctx)
	s.done = make(chan struct{})

	go s.run(ctx)

	slog.Info("Retention sweep started",
		"retention_period", s.config.RetentionPeriod.Std(),
		"interval", s.config.SweepInterval.Std())
}

// Stop signals the sweep loop to exit and waits for it to finish.
func (s *Service) Stop() {
	if s.cancel == nil {
		return
	}
	s.cancel()
	<-s.done
	slog.Info("Retention sweep stopped")
}

func (s *Service) run(ctx context.Context) {
	defer close(s.done)

	s.Sweep()

	ticker := time.NewTicker(s.config.SweepInterval.Std())
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Sweep()
		}
	}
}

// Sweep evicts terminal investigations older than the retention period and
// returns how many were removed.
func (s *Service) Sweep() int {
	cutoff := time.Now().Add(-s.config.RetentionPeriod.Std())
	evicted := s.manager.EvictTerminalBefore(cutoff)
	if len(evicted) > 0 {
		slog.Info("Retention: evicted finished investigations",
			"count", len(evicted), "cutoff", cutoff)
	}
	return len(evicted)
}
