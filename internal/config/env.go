package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Environment variables overriding file values.
const (
	EnvEngineCommand = "TEXBUILDER_ENGINE_COMMAND"
	EnvEnginePasses  = "TEXBUILDER_ENGINE_PASSES"
	EnvPassTimeout   = "TEXBUILDER_PASS_TIMEOUT"
	EnvExecMode      = "TEXBUILDER_EXEC_MODE"
	EnvPostProcess   = "TEXBUILDER_POST_PROCESS"
	EnvTempDir       = "TEXBUILDER_TEMP_DIR"
	EnvOutputDir     = "TEXBUILDER_OUTPUT_DIR"
	EnvHistoryPath   = "TEXBUILDER_HISTORY_PATH"
	EnvNATSURL       = "TEXBUILDER_NATS_URL"
	EnvLogLevel      = "TEXBUILDER_LOG_LEVEL"
	EnvLogFormat     = "TEXBUILDER_LOG_FORMAT"
)

// envFiles are loaded in order; variables already present in the process
// environment are never overwritten.
var envFiles = []string{".env", ".env.local"}

func loadEnvFiles() {
	for _, name := range envFiles {
		if _, err := os.Stat(name); err != nil {
			continue
		}
		if err := godotenv.Load(name); err != nil {
			fmt.Fprintf(os.Stderr, "Note: could not load %s: %v\n", name, err)
		}
	}
}

func applyEnvOverrides(cfg *Config) error {
	setString := func(key string, dst *string) {
		if v, ok := os.LookupEnv(key); ok && v != "" {
			*dst = v
		}
	}

	setString(EnvEngineCommand, &cfg.Engine.Command)
	setString(EnvPassTimeout, &cfg.Engine.PassTimeout)
	setString(EnvPostProcess, &cfg.Engine.PostProcess)
	setString(EnvTempDir, &cfg.Workspace.TempDir)
	setString(EnvOutputDir, &cfg.Output.Directory)
	setString(EnvNATSURL, &cfg.Notify.NATSURL)

	if v := os.Getenv(EnvEnginePasses); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvEnginePasses, err)
		}
		cfg.Engine.Passes = n
	}
	if v := os.Getenv(EnvExecMode); v != "" {
		cfg.Engine.ExecMode = ExecMode(v)
	}
	if v := os.Getenv(EnvHistoryPath); v != "" {
		cfg.History.Enabled = true
		cfg.History.Path = v
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		cfg.Logging.Level = LogLevel(v)
	}
	if v := os.Getenv(EnvLogFormat); v != "" {
		cfg.Logging.Format = LogFormat(v)
	}
	return nil
}
