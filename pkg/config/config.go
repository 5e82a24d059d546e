// Package config holds crosscheck's runtime configuration: orchestrator
// timeouts, coordinator fan-out limits, analyzer and risk tuning, retention,
// and the HTTP server settings. Values come from built-in defaults, an
// optional crosscheck.yaml, and environment overrides, in that order.
package config

// Config is the umbrella configuration object returned by Load() and used
// throughout the application.
type Config struct {
	Orchestrator *OrchestratorConfig `yaml:"orchestrator"`
	Coordinator  *CoordinatorConfig  `yaml:"coordinator"`
	Analyzer     *AnalyzerConfig     `yaml:"analyzer"`
	Risk         *RiskConfig         `yaml:"risk"`
	Retention    *RetentionConfig    `yaml:"retention"`
	Server       *ServerConfig       `yaml:"server"`
}

// Default returns a fully-populated configuration with built-in defaults.
func Default() *Config {
	return &Config{
		Orchestrator: DefaultOrchestratorConfig(),
		Coordinator:  DefaultCoordinatorConfig(),
		Analyzer:     DefaultAnalyzerConfig(),
		Risk:         DefaultRiskConfig(),
		Retention:    DefaultRetentionConfig(),
		Server:       DefaultServerConfig(),
	}
}
