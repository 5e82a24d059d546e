package cleanup

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fraudsight/crosscheck/pkg/config"
	"github.com/fraudsight/crosscheck/pkg/investigation"
	"github.com/fraudsight/crosscheck/pkg/models"
)

func pairRequest() models.InvestigationRequest {
	return models.InvestigationRequest{
		Entities: []models.Entity{
			{ID: "U1", Type: models.EntityTypeUser, RawValue: "alice@example.com"},
			{ID: "D1", Type: models.EntityTypeDevice, RawValue: "fp-9921"},
		},
		Scope: []string{"device"},
	}
}

func finish(t *testing.T, inv *investigation.Context, final models.State) {
	t.Helper()
	require.NoError(t, inv.TransitionTo(models.StateEntityInvestigation))
	require.NoError(t, inv.TransitionTo(final))
}

func TestSweepEvictsExpiredTerminalInvestigations(t *testing.T) {
	manager := investigation.NewManager()

	done := manager.Create(pairRequest())
	finish(t, done, models.StateFailed)

	running := manager.Create(pairRequest())
	require.NoError(t, running.TransitionTo(models.StateEntityInvestigation))

	time.Sleep(10 * time.Millisecond)

	svc := NewService(&config.RetentionConfig{
		SweepInterval:   config.Duration(time.Hour),
		RetentionPeriod: config.Duration(time.Millisecond),
	}, manager)

	assert.Equal(t, 1, svc.Sweep())

	_, err := manager.Get(done.ID)
	assert.ErrorIs(t, err, investigation.ErrNotFound)

	_, err = manager.Get(running.ID)
	assert.NoError(t, err, "running investigations must never be evicted")
}

func TestSweepPreservesRecentTerminalInvestigations(t *testing.T) {
	manager := investigation.NewManager()

	done := manager.Create(pairRequest())
	finish(t, done, models.StateCompleted)

	svc := NewService(&config.RetentionConfig{
		SweepInterval:   config.Duration(time.Hour),
		RetentionPeriod: config.Duration(time.Hour),
	}, manager)

	assert.Zero(t, svc.Sweep())
	_, err := manager.Get(done.ID)
	assert.NoError(t, err)
}

func TestServiceStartStop(t *testing.T) {
	manager := investigation.NewManager()
	svc := NewService(&config.RetentionConfig{
		SweepInterval:   config.Duration(10 * time.Millisecond),
		RetentionPeriod: config.Duration(time.Millisecond),
	}, manager)

	svc.Start(context.Background())

	done := manager.Create(pairRequest())
	finish(t, done, models.StatePartial)

	assert.Eventually(t, func() bool {
		_, err := manager.Get(done.ID)
		return err != nil
	}, time.Second, 5*time.Millisecond)

	svc.Stop()
	// Stop is idempotent through the nil-cancel guard on a second Service.
	NewService(&config.RetentionConfig{}, manager).Stop()
}
