// File: internal/config/config.go
package config

import (
	"fmt"
	"math"
	"time"

	homedir "github.com/mitchellh/go-homedir"
	"github.com/spf13/viper"
)

// Config holds the entire application configuration.
type Config struct {
	Logger   LoggerConfig   `mapstructure:"logger" yaml:"logger"`
	Target   TargetConfig   `mapstructure:"target" yaml:"target"`
	Storage  StorageConfig  `mapstructure:"storage" yaml:"storage"`
	Probes   ProbesConfig   `mapstructure:"probes" yaml:"probes"`
	Scoring  ScoringConfig  `mapstructure:"scoring" yaml:"scoring"`
	Monitors MonitorsConfig `mapstructure:"monitors" yaml:"monitors"`
}

// LoggerConfig holds all the configuration for the logger.
type LoggerConfig struct {
	Level       string `mapstructure:"level" yaml:"level"`
	Format      string `mapstructure:"format" yaml:"format"`
	AddSource   bool   `mapstructure:"add_source" yaml:"add_source"`
	ServiceName string `mapstructure:"service_name" yaml:"service_name"`
	LogFile     string `mapstructure:"log_file" yaml:"log_file"`
	MaxSize     int    `mapstructure:"max_size" yaml:"max_size"`
	MaxBackups  int    `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAge      int    `mapstructure:"max_age" yaml:"max_age"`
	Compress    bool   `mapstructure:"compress" yaml:"compress"`
}

// TargetConfig points at the codebase under inspection.
type TargetConfig struct {
	Root string `mapstructure:"root" yaml:"root"`
}

// StorageConfig roots the append-only persistence tree. Activity logs and
// cycle snapshots land under <base_dir>/logs/autonomous_agents, patterns and
// suggestions under <base_dir>/data/improvement_plans.
type StorageConfig struct {
	BaseDir string `mapstructure:"base_dir" yaml:"base_dir"`
}

// ProbesConfig tunes external tool invocations.
type ProbesConfig struct {
	// Timeout bounds a single external tool invocation. Expiry is recorded
	// as a degraded finding, never a cycle failure.
	Timeout time.Duration `mapstructure:"timeout" yaml:"timeout"`
	// RatePerSecond throttles consecutive probe invocations in watch mode.
	// Zero disables the limiter.
	RatePerSecond float64 `mapstructure:"rate_per_second" yaml:"rate_per_second"`
}

// ScoringConfig carries the fixed aggregate weights.
type ScoringConfig struct {
	Weights WeightsConfig `mapstructure:"weights" yaml:"weights"`
}

// WeightsConfig must sum to 1.0.
type WeightsConfig struct {
	CodeHealth   float64 `mapstructure:"code_health" yaml:"code_health"`
	Performance  float64 `mapstructure:"performance" yaml:"performance"`
	Security     float64 `mapstructure:"security" yaml:"security"`
	Dependencies float64 `mapstructure:"dependencies" yaml:"dependencies"`
}

// MonitorsConfig is a container for the four monitor configurations.
type MonitorsConfig struct {
	CodeHealth   CodeHealthConfig   `mapstructure:"code_health" yaml:"code_health"`
	Performance  PerformanceConfig  `mapstructure:"performance" yaml:"performance"`
	Security     SecurityConfig     `mapstructure:"security" yaml:"security"`
	Dependencies DependenciesConfig `mapstructure:"dependencies" yaml:"dependencies"`
}

// CodeHealthConfig configures the lint/typecheck monitor.
type CodeHealthConfig struct {
	Interval           time.Duration `mapstructure:"interval" yaml:"interval"`
	LintCommand        []string      `mapstructure:"lint_command" yaml:"lint_command"`
	LintFixCommand     []string      `mapstructure:"lint_fix_command" yaml:"lint_fix_command"`
	TypecheckCommand   []string      `mapstructure:"typecheck_command" yaml:"typecheck_command"`
	FormatCheckCommand []string      `mapstructure:"format_check_command" yaml:"format_check_command"`
	FormatCommand      []string      `mapstructure:"format_command" yaml:"format_command"`
	SourceExtensions   []string      `mapstructure:"source_extensions" yaml:"source_extensions"`
	SuggestionScore    float64       `mapstructure:"suggestion_score" yaml:"suggestion_score"`
}

// PerformanceConfig configures the host resource monitor.
type PerformanceConfig struct {
	Interval        time.Duration `mapstructure:"interval" yaml:"interval"`
	CPUWarnPercent  float64       `mapstructure:"cpu_warn_percent" yaml:"cpu_warn_percent"`
	MemWarnPercent  float64       `mapstructure:"mem_warn_percent" yaml:"mem_warn_percent"`
	DiskWarnPercent float64       `mapstructure:"disk_warn_percent" yaml:"disk_warn_percent"`
	LogMaxBytes     int64         `mapstructure:"log_max_bytes" yaml:"log_max_bytes"`
	SuggestionScore float64       `mapstructure:"suggestion_score" yaml:"suggestion_score"`
}

// SecurityConfig configures the vulnerability/secret monitor.
type SecurityConfig struct {
	Interval        time.Duration `mapstructure:"interval" yaml:"interval"`
	VulnCommand     []string      `mapstructure:"vuln_command" yaml:"vuln_command"`
	SecretsFile     string        `mapstructure:"secrets_file" yaml:"secrets_file"`
	SuggestionScore float64       `mapstructure:"suggestion_score" yaml:"suggestion_score"`
}

// DependenciesConfig configures the dependency freshness monitor.
type DependenciesConfig struct {
	Interval           time.Duration `mapstructure:"interval" yaml:"interval"`
	OutdatedCommand    []string      `mapstructure:"outdated_command" yaml:"outdated_command"`
	MaxBundle          int           `mapstructure:"max_bundle" yaml:"max_bundle"`
	SuggestionOutdated int           `mapstructure:"suggestion_outdated" yaml:"suggestion_outdated"`
}

// SetDefaults initializes default values for all configuration parameters.
func SetDefaults(v *viper.Viper) {
	// -- Logger --
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.add_source", false)
	v.SetDefault("logger.service_name", "vitals-cli")
	v.SetDefault("logger.log_file", "vitals.log")
	v.SetDefault("logger.max_size", 100)
	v.SetDefault("logger.max_backups", 5)
	v.SetDefault("logger.max_age", 30)
	v.SetDefault("logger.compress", true)

	// -- Target / Storage --
	v.SetDefault("target.root", ".")
	v.SetDefault("storage.base_dir", ".")

	// -- Probes --
	v.SetDefault("probes.timeout", "60s")
	v.SetDefault("probes.rate_per_second", 0.0)

	// -- Scoring --
	v.SetDefault("scoring.weights.code_health", 0.30)
	v.SetDefault("scoring.weights.performance", 0.20)
	v.SetDefault("scoring.weights.security", 0.35)
	v.SetDefault("scoring.weights.dependencies", 0.15)

	// -- Monitors --
	v.SetDefault("monitors.code_health.interval", "5m")
	v.SetDefault("monitors.code_health.lint_command", []string{"golangci-lint", "run", "--out-format", "json", "./..."})
	v.SetDefault("monitors.code_health.lint_fix_command", []string{"golangci-lint", "run", "--fix", "./..."})
	v.SetDefault("monitors.code_health.typecheck_command", []string{"go", "vet", "./..."})
	v.SetDefault("monitors.code_health.format_check_command", []string{"gofmt", "-l", "."})
	v.SetDefault("monitors.code_health.format_command", []string{"gofmt", "-w", "."})
	v.SetDefault("monitors.code_health.source_extensions", []string{".go"})
	v.SetDefault("monitors.code_health.suggestion_score", 80.0)

	v.SetDefault("monitors.performance.interval", "5m")
	v.SetDefault("monitors.performance.cpu_warn_percent", 80.0)
	v.SetDefault("monitors.performance.mem_warn_percent", 80.0)
	v.SetDefault("monitors.performance.disk_warn_percent", 90.0)
	v.SetDefault("monitors.performance.log_max_bytes", int64(100*1024*1024))
	v.SetDefault("monitors.performance.suggestion_score", 70.0)

	v.SetDefault("monitors.security.interval", "10m")
	v.SetDefault("monitors.security.vuln_command", []string{"govulncheck", "-json", "./..."})
	v.SetDefault("monitors.security.secrets_file", ".secrets")
	v.SetDefault("monitors.security.suggestion_score", 80.0)

	v.SetDefault("monitors.dependencies.interval", "30m")
	v.SetDefault("monitors.dependencies.outdated_command", []string{"go", "list", "-u", "-m", "-json", "all"})
	v.SetDefault("monitors.dependencies.max_bundle", 10)
	v.SetDefault("monitors.dependencies.suggestion_outdated", 5)
}

// NewDefaultConfig creates a configuration populated with default values.
func NewDefaultConfig() *Config {
	v := viper.New()
	SetDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		// Cannot happen with our own defaults, but fail loudly if it does.
		panic(fmt.Sprintf("failed to unmarshal default config: %v", err))
	}
	return &cfg
}

// NewConfigFromViper creates a configuration instance from a viper object.
func NewConfigFromViper(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	// Expand "~" so storage can live under the user's home directory.
	expanded, err := homedir.Expand(cfg.Storage.BaseDir)
	if err != nil {
		return nil, fmt.Errorf("invalid storage.base_dir: %w", err)
	}
	cfg.Storage.BaseDir = expanded

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// Validate checks the configuration for required fields and sane values.
func (c *Config) Validate() error {
	w := c.Scoring.Weights
	sum := w.CodeHealth + w.Performance + w.Security + w.Dependencies
	if math.Abs(sum-1.0) > 1e-9 {
		return fmt.Errorf("scoring weights must sum to 1.0, got %.4f", sum)
	}
	if w.CodeHealth < 0 || w.Performance < 0 || w.Security < 0 || w.Dependencies < 0 {
		return fmt.Errorf("scoring weights must be non-negative")
	}
	if c.Probes.Timeout <= 0 {
		return fmt.Errorf("probes.timeout must be a positive duration")
	}
	if c.Probes.RatePerSecond < 0 {
		return fmt.Errorf("probes.rate_per_second must not be negative")
	}
	for name, interval := range map[string]time.Duration{
		"monitors.code_health.interval":  c.Monitors.CodeHealth.Interval,
		"monitors.performance.interval":  c.Monitors.Performance.Interval,
		"monitors.security.interval":     c.Monitors.Security.Interval,
		"monitors.dependencies.interval": c.Monitors.Dependencies.Interval,
	} {
		if interval <= 0 {
			return fmt.Errorf("%s must be a positive duration", name)
		}
	}
	if c.Monitors.Dependencies.MaxBundle <= 0 {
		return fmt.Errorf("monitors.dependencies.max_bundle must be positive")
	}
	return nil
}
