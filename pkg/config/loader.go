package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// ConfigFileName is the optional YAML configuration file looked up inside
// the config directory.
const ConfigFileName = "crosscheck.yaml"

// Load builds the configuration: built-in defaults, overlaid by
// crosscheck.yaml from configDir if present, then environment overrides.
// A missing config file is not an error.
func Load(configDir string) (*Config, error) {
	cfg := Default()

	path := filepath.Join(configDir, ConfigFileName)
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", path, err)
		}
		slog.Info("Loaded configuration file", "path", path)
	case errors.Is(err, os.ErrNotExist):
		slog.Info("No configuration file, using defaults", "path", path)
	default:
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnvOverrides applies the small set of environment overrides used in
// deployment manifests.
func applyEnvOverrides(cfg *Config) {
	if port := os.Getenv("HTTP_PORT"); port != "" {
		cfg.Server.Port = port
	}
}

// Validate rejects configurations that would misbehave at runtime.
func (c *Config) Validate() error {
	if c.Orchestrator.InvestigationTimeout <= 0 {
		return fmt.Errorf("orchestrator.investigation_timeout must be positive")
	}
	if c.Orchestrator.RiskThreshold < 0 || c.Orchestrator.RiskThreshold > 1 {
		return fmt.Errorf("orchestrator.risk_threshold must be in [0,1]")
	}
	if c.Coordinator.AgentTimeout <= 0 {
		return fmt.Errorf("coordinator.agent_timeout must be positive")
	}
	if c.Coordinator.PhaseTimeout <= 0 {
		return fmt.Errorf("coordinator.phase_timeout must be positive")
	}
	if c.Analyzer.ClusterMinSize < 2 {
		return fmt.Errorf("analyzer.cluster_min_size must be at least 2")
	}
	if c.Risk.MaxMultiplier < 1 {
		return fmt.Errorf("risk.max_multiplier must be at least 1")
	}
	return nil
}
