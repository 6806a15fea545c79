package testing

import (
	"os"
	"path/filepath"
	"testing"

	"gopkg.in/yaml.v3"

	"git.home.luguber.info/inful/texbuilder/internal/config"
)

// ConfigBuilder provides a fluent interface for creating test configurations
type ConfigBuilder struct {
	config *config.Config
	t      testing.TB
}

// NewConfigBuilder starts from the defaults with temporary sources kept in a
// per-test directory.
func NewConfigBuilder(t testing.TB) *ConfigBuilder {
	cfg := config.Default()
	cfg.Workspace.TempDir = t.TempDir()
	return &ConfigBuilder{config: cfg, t: t}
}

// WithEngine sets the engine command template
func (cb *ConfigBuilder) WithEngine(command string) *ConfigBuilder {
	cb.config.Engine.Command = command
	return cb
}

// WithPasses sets the number of engine passes
func (cb *ConfigBuilder) WithPasses(n int) *ConfigBuilder {
	cb.config.Engine.Passes = n
	return cb
}

// WithPostProcess sets the post-process command template
func (cb *ConfigBuilder) WithPostProcess(command string) *ConfigBuilder {
	cb.config.Engine.PostProcess = command
	return cb
}

// WithOutputDir sets the output directory
func (cb *ConfigBuilder) WithOutputDir(dir string) *ConfigBuilder {
	cb.config.Output.Directory = dir
	return cb
}

// WithHistory enables the SQLite history at path
func (cb *ConfigBuilder) WithHistory(path string) *ConfigBuilder {
	cb.config.History = config.HistoryConfig{Enabled: true, Path: path}
	return cb
}

// WithMetricsTextfile enables the Prometheus textfile export
func (cb *ConfigBuilder) WithMetricsTextfile(path string) *ConfigBuilder {
	cb.config.Metrics.Textfile = path
	return cb
}

// TempDir returns the directory temporary sources are created in.
func (cb *ConfigBuilder) TempDir() string {
	return cb.config.Workspace.TempDir
}

// Build returns the built configuration
func (cb *ConfigBuilder) Build() *config.Config {
	return cb.config
}

// BuildAndSave builds the configuration and saves it to a file
func (cb *ConfigBuilder) BuildAndSave(filePath string) *config.Config {
	data, err := yaml.Marshal(cb.config)
	if err != nil {
		cb.t.Fatalf("Failed to marshal config: %v", err)
	}
	if err := os.MkdirAll(filepath.Dir(filePath), testDirPermissions); err != nil {
		cb.t.Fatalf("Failed to create config directory: %v", err)
	}
	if err := os.WriteFile(filePath, data, testFilePermissions); err != nil {
		cb.t.Fatalf("Failed to save config to %s: %v", filePath, err)
	}
	return cb.config
}
