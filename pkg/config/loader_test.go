package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestLoadDefaultsWhenNoFile(t *testing.T) {
	cfg, err := Load(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, 10*time.Minute, cfg.Orchestrator.InvestigationTimeout.Std())
	assert.Equal(t, 0.7, cfg.Orchestrator.RiskThreshold)
	assert.Equal(t, 16, cfg.Coordinator.MaxConcurrentCap)
	assert.Equal(t, 2, cfg.Analyzer.ClusterMinSize)
	assert.Equal(t, "8080", cfg.Server.Port)
}

func TestLoadYAMLOverrides(t *testing.T) {
	dir := t.TempDir()
	content := []byte(`
orchestrator:
  risk_threshold: 0.5
coordinator:
  max_concurrent: 4
  agent_timeout: 10s
  phase_timeout: 1m
server:
  port: "9090"
`)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ConfigFileName), content, 0o600))

	cfg, err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, 0.5, cfg.Orchestrator.RiskThreshold)
	assert.Equal(t, 4, cfg.Coordinator.MaxConcurrent)
	assert.Equal(t, 10*time.Second, cfg.Coordinator.AgentTimeout.Std())
	assert.Equal(t, "9090", cfg.Server.Port)
	// Untouched sections keep defaults.
	assert.Equal(t, 0.25, cfg.Risk.CorrelationWeight)
}

func TestLoadEnvOverridesPort(t *testing.T) {
	t.Setenv("HTTP_PORT", "7001")

	cfg, err := Load(t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, "7001", cfg.Server.Port)
}

func TestLoadRejectsInvalidConfig(t *testing.T) {
	dir := t.TempDir()
	content := []byte("orchestrator:\n  risk_threshold: 1.5\n")
	require.NoError(t, os.WriteFile(filepath.Join(dir, ConfigFileName), content, 0o600))

	_, err := Load(dir)
	assert.Error(t, err)
}

func TestDurationUnmarshalForms(t *testing.T) {
	var d Duration

	require.NoError(t, yamlUnmarshal("90s", &d))
	assert.Equal(t, 90*time.Second, d.Std())

	require.NoError(t, yamlUnmarshal("1500000000", &d))
	assert.Equal(t, 1500*time.Millisecond, d.Std())

	assert.Error(t, yamlUnmarshal("soon", &d))
}

func yamlUnmarshal(s string, d *Duration) error {
	return yaml.Unmarshal([]byte(s), d)
}

func TestCoordinatorLimit(t *testing.T) {
	cfg := DefaultCoordinatorConfig()

	// Auto: pair count, capped.
	assert.Equal(t, 6, cfg.Limit(6))
	assert.Equal(t, 16, cfg.Limit(50))

	// Explicit limit wins over pair count but still respects the cap.
	cfg.MaxConcurrent = 3
	assert.Equal(t, 3, cfg.Limit(50))
	cfg.MaxConcurrent = 100
	assert.Equal(t, 16, cfg.Limit(50))
}
