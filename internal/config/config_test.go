package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "texbuilder.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, CurrentVersion, cfg.Version)
	assert.Equal(t, DefaultEngineCommand, cfg.Engine.Command)
	assert.Equal(t, 3, cfg.Engine.Passes)
	assert.Equal(t, ExecModeArgs, cfg.Engine.ExecMode)
	assert.Equal(t, LogLevelInfo, cfg.Logging.Level)
	assert.Equal(t, LogFormatText, cfg.Logging.Format)
	assert.Equal(t, DefaultNotifySubject, cfg.Notify.Subject)
	assert.False(t, cfg.History.Enabled)
	require.NoError(t, Validate(cfg))
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
version: "1.0"
engine:
  command: "xelatex -output-directory=%dir% %file%"
  passes: 2
  pass_timeout: 90s
  exec_mode: SHELL
history:
  enabled: true
logging:
  level: Debug
  format: json
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "xelatex -output-directory=%dir% %file%", cfg.Engine.Command)
	assert.Equal(t, 2, cfg.Engine.Passes)
	assert.Equal(t, 90*time.Second, cfg.Engine.PassTimeoutDuration())
	assert.Equal(t, ExecModeShell, cfg.Engine.ExecMode)
	assert.Equal(t, DefaultHistoryPath, cfg.History.Path)
	assert.Equal(t, LogLevelDebug, cfg.Logging.Level)
	assert.Equal(t, LogFormatJSON, cfg.Logging.Format)
}

func TestLoad_ExpandsEnvironment(t *testing.T) {
	t.Setenv("TEXBUILDER_TEST_ENGINE", "lualatex")
	path := writeConfig(t, `
engine:
  command: "${TEXBUILDER_TEST_ENGINE} --output-directory=%dir% %file%"
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "lualatex --output-directory=%dir% %file%", cfg.Engine.Command)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv(EnvEnginePasses, "5")
	t.Setenv(EnvHistoryPath, "/var/lib/texbuilder/history.db")
	t.Setenv(EnvLogLevel, "warn")
	path := writeConfig(t, "engine:\n  passes: 2\n")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 5, cfg.Engine.Passes)
	assert.True(t, cfg.History.Enabled)
	assert.Equal(t, "/var/lib/texbuilder/history.db", cfg.History.Path)
	assert.Equal(t, LogLevelWarn, cfg.Logging.Level)
}

func TestLoad_Errors(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
		require.ErrorContains(t, err, "configuration file not found")
	})
	t.Run("wrong version", func(t *testing.T) {
		_, err := Load(writeConfig(t, "version: \"9.9\"\n"))
		require.ErrorContains(t, err, "unsupported configuration version")
	})
	t.Run("missing placeholder", func(t *testing.T) {
		_, err := Load(writeConfig(t, "engine:\n  command: \"pdflatex %file%\"\n"))
		require.ErrorContains(t, err, "%dir%")
	})
	t.Run("invalid exec mode", func(t *testing.T) {
		_, err := Load(writeConfig(t, "engine:\n  exec_mode: docker\n"))
		require.ErrorContains(t, err, "engine.exec_mode")
	})
	t.Run("invalid timeout", func(t *testing.T) {
		_, err := Load(writeConfig(t, "engine:\n  pass_timeout: soon\n"))
		require.ErrorContains(t, err, "engine.pass_timeout")
	})
	t.Run("invalid retry backoff", func(t *testing.T) {
		_, err := Load(writeConfig(t, "notify:\n  retry_backoff: random\n"))
		require.ErrorContains(t, err, "notify.retry_backoff")
	})
	t.Run("negative retries", func(t *testing.T) {
		_, err := Load(writeConfig(t, "notify:\n  retries: -1\n"))
		require.ErrorContains(t, err, "notify.retries")
	})
	t.Run("bad passes env", func(t *testing.T) {
		t.Setenv(EnvEnginePasses, "three")
		_, err := Load(writeConfig(t, "version: \"1.0\"\n"))
		require.ErrorContains(t, err, EnvEnginePasses)
	})
}

func TestLoadOrDefault_MissingFile(t *testing.T) {
	t.Setenv(EnvExecMode, "shell")

	cfg, err := LoadOrDefault(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultEngineCommand, cfg.Engine.Command)
	assert.Equal(t, ExecModeShell, cfg.Engine.ExecMode)
}

func TestInit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "texbuilder.yaml")

	require.NoError(t, Init(path, false))
	require.ErrorContains(t, Init(path, false), "already exists")
	require.NoError(t, Init(path, true))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.True(t, cfg.History.Enabled)
	assert.Equal(t, 2*time.Minute, cfg.Engine.PassTimeoutDuration())
}

func TestValidateCommandTemplate(t *testing.T) {
	require.NoError(t, ValidateCommandTemplate("engine --batch --out=%dir% %file%"))
	require.ErrorContains(t, ValidateCommandTemplate(""), "empty")
	err := ValidateCommandTemplate("engine")
	require.ErrorContains(t, err, "%dir%")
	require.ErrorContains(t, err, "%file%")
}
