package config

import (
	"log/slog"
	"strings"
)

// LogLevel enumerates supported logging levels.
type LogLevel string

const (
	LogLevelDebug LogLevel = "debug"
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"
)

// SlogLevel maps the configured level onto slog.
func (l LogLevel) SlogLevel() slog.Level {
	switch l {
	case LogLevelDebug:
		return slog.LevelDebug
	case LogLevelWarn:
		return slog.LevelWarn
	case LogLevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// LogFormat enumerates supported log output formats.
type LogFormat string

const (
	LogFormatJSON LogFormat = "json"
	LogFormatText LogFormat = "text"
)

// ExecMode selects how command templates are turned into processes.
type ExecMode string

const (
	// ExecModeArgs splits the template into arguments before substituting placeholders.
	ExecModeArgs ExecMode = "args"
	// ExecModeShell substitutes placeholders into the raw string and runs it via /bin/sh -c.
	ExecModeShell ExecMode = "shell"
)

var (
	logLevels = map[string]LogLevel{
		"debug": LogLevelDebug, "info": LogLevelInfo,
		"warn": LogLevelWarn, "warning": LogLevelWarn, "error": LogLevelError,
	}
	logFormats = map[string]LogFormat{"json": LogFormatJSON, "text": LogFormatText}
	execModes  = map[string]ExecMode{"args": ExecModeArgs, "argv": ExecModeArgs, "shell": ExecModeShell, "sh": ExecModeShell}
)

// NormalizeLogLevel case-folds raw into a LogLevel; unknown values yield "".
func NormalizeLogLevel(raw string) LogLevel { return logLevels[fold(raw)] }

// NormalizeLogFormat case-folds raw into a LogFormat; unknown values yield "".
func NormalizeLogFormat(raw string) LogFormat { return logFormats[fold(raw)] }

// NormalizeExecMode case-folds raw into an ExecMode; unknown values yield "".
func NormalizeExecMode(raw string) ExecMode { return execModes[fold(raw)] }

func fold(s string) string { return strings.ToLower(strings.TrimSpace(s)) }

// normalize canonicalizes enumerations in place. Unknown non-empty values are
// kept verbatim so Validate can report them.
func normalize(cfg *Config) {
	if v := NormalizeLogLevel(string(cfg.Logging.Level)); v != "" {
		cfg.Logging.Level = v
	}
	if v := NormalizeLogFormat(string(cfg.Logging.Format)); v != "" {
		cfg.Logging.Format = v
	}
	if v := NormalizeExecMode(string(cfg.Engine.ExecMode)); v != "" {
		cfg.Engine.ExecMode = v
	}
	cfg.Engine.Command = strings.TrimSpace(cfg.Engine.Command)
	cfg.Engine.PostProcess = strings.TrimSpace(cfg.Engine.PostProcess)
}
