package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// CurrentVersion is the configuration schema version written by Init and accepted by Load.
const CurrentVersion = "1.0"

// Placeholder markers understood in engine and post-process command templates.
const (
	DirPlaceholder  = "%dir%"
	FilePlaceholder = "%file%"
)

// DefaultEngineCommand renders with pdflatex in non-interactive mode next to the source file.
const DefaultEngineCommand = "pdflatex -interaction=nonstopmode -output-directory=" + DirPlaceholder + " " + FilePlaceholder

// Config is the texbuilder configuration file format.
type Config struct {
	Version   string          `yaml:"version"`
	Engine    EngineConfig    `yaml:"engine"`
	Workspace WorkspaceConfig `yaml:"workspace,omitempty"`
	Output    OutputConfig    `yaml:"output,omitempty"`
	Markup    MarkupConfig    `yaml:"markup,omitempty"`
	History   HistoryConfig   `yaml:"history,omitempty"`
	Metrics   MetricsConfig   `yaml:"metrics,omitempty"`
	Notify    NotifyConfig    `yaml:"notify,omitempty"`
	Logging   LoggingConfig   `yaml:"logging,omitempty"`
}

// EngineConfig describes how the external typesetting engine is invoked.
type EngineConfig struct {
	Command     string   `yaml:"command"`                // template with %dir% and %file%
	Passes      int      `yaml:"passes"`                 // convergence passes per build
	PassTimeout string   `yaml:"pass_timeout,omitempty"` // per-pass limit, empty disables
	ExecMode    ExecMode `yaml:"exec_mode,omitempty"`    // args|shell
	PostProcess string   `yaml:"post_process,omitempty"` // optional follow-up command template
}

// PassTimeoutDuration parses PassTimeout; invalid or empty values yield zero (no limit).
func (e EngineConfig) PassTimeoutDuration() time.Duration {
	if e.PassTimeout == "" {
		return 0
	}
	d, err := time.ParseDuration(e.PassTimeout)
	if err != nil || d < 0 {
		return 0
	}
	return d
}

// WorkspaceConfig controls where ephemeral source files are created.
type WorkspaceConfig struct {
	TempDir string `yaml:"temp_dir,omitempty"`
}

// OutputConfig controls where rendered documents are copied.
type OutputConfig struct {
	Directory string `yaml:"directory,omitempty"`
}

// MarkupConfig sets preamble defaults for Markdown inputs. Frontmatter in the
// source fills whatever is left empty here.
type MarkupConfig struct {
	DocumentClass string   `yaml:"document_class,omitempty"`
	Packages      []string `yaml:"packages,omitempty"`
}

// HistoryConfig enables the SQLite build history.
type HistoryConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path,omitempty"`
}

// MetricsConfig controls Prometheus metric export.
type MetricsConfig struct {
	Textfile string `yaml:"textfile,omitempty"` // written after one-shot builds
	Listen   string `yaml:"listen,omitempty"`   // served by watch mode
}

// NotifyConfig configures build event publication over NATS.
type NotifyConfig struct {
	NATSURL      string `yaml:"nats_url,omitempty"`
	Subject      string `yaml:"subject,omitempty"`
	Retries      int    `yaml:"retries,omitempty"`       // extra publish attempts, 0 disables
	RetryBackoff string `yaml:"retry_backoff,omitempty"` // fixed|linear|exponential
}

// Enabled reports whether a NATS server is configured.
func (n NotifyConfig) Enabled() bool { return n.NATSURL != "" }

// LoggingConfig selects the slog handler.
type LoggingConfig struct {
	Level  LogLevel  `yaml:"level,omitempty"`
	Format LogFormat `yaml:"format,omitempty"`
}

// Default returns a configuration with every default applied.
func Default() *Config {
	cfg := &Config{Version: CurrentVersion}
	applyDefaults(cfg)
	return cfg
}

// Load reads, expands, normalizes and validates the configuration file at configPath.
func Load(configPath string) (*Config, error) {
	loadEnvFiles()

	data, err := os.ReadFile(configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("configuration file not found: %s", configPath)
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if cfg.Version == "" {
		cfg.Version = CurrentVersion
	}
	if cfg.Version != CurrentVersion {
		return nil, fmt.Errorf("unsupported configuration version: %s (expected %s)", cfg.Version, CurrentVersion)
	}

	return finish(&cfg)
}

// LoadOrDefault behaves like Load but falls back to Default (plus environment
// overrides) when the file does not exist.
func LoadOrDefault(configPath string) (*Config, error) {
	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			return Load(configPath)
		}
	}
	loadEnvFiles()
	return finish(&Config{Version: CurrentVersion})
}

func finish(cfg *Config) (*Config, error) {
	if err := applyEnvOverrides(cfg); err != nil {
		return nil, fmt.Errorf("environment overrides: %w", err)
	}
	normalize(cfg)
	applyDefaults(cfg)
	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// Init writes an example configuration file.
func Init(configPath string, force bool) error {
	if _, err := os.Stat(configPath); err == nil && !force {
		return fmt.Errorf("configuration file already exists: %s (use --force to overwrite)", configPath)
	}

	example := Default()
	example.Engine.PassTimeout = "2m"
	example.History = HistoryConfig{Enabled: true, Path: DefaultHistoryPath}

	data, err := yaml.Marshal(example)
	if err != nil {
		return fmt.Errorf("failed to marshal example config: %w", err)
	}
	header := "# texbuilder configuration\n# Command placeholders: %dir% (source directory) and %file% (source path).\n"
	if err := os.WriteFile(configPath, append([]byte(header), data...), 0o600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}
