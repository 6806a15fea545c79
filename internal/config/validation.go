package config

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ValidateCommandTemplate reports whether tmpl carries both placeholders.
func ValidateCommandTemplate(tmpl string) error {
	if strings.TrimSpace(tmpl) == "" {
		return errors.New("command template is empty")
	}
	var missing []string
	for _, p := range []string{DirPlaceholder, FilePlaceholder} {
		if !strings.Contains(tmpl, p) {
			missing = append(missing, p)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("command template %q is missing placeholder(s) %s", tmpl, strings.Join(missing, ", "))
	}
	return nil
}

// Validate checks a normalized, defaulted configuration.
func Validate(cfg *Config) error {
	var errs []error

	if err := ValidateCommandTemplate(cfg.Engine.Command); err != nil {
		errs = append(errs, fmt.Errorf("engine.command: %w", err))
	}
	if cfg.Engine.Passes < 1 {
		errs = append(errs, fmt.Errorf("engine.passes must be at least 1, got %d", cfg.Engine.Passes))
	}
	if cfg.Engine.PassTimeout != "" {
		if d, err := time.ParseDuration(cfg.Engine.PassTimeout); err != nil || d < 0 {
			errs = append(errs, fmt.Errorf("engine.pass_timeout: invalid duration %q", cfg.Engine.PassTimeout))
		}
	}
	if NormalizeExecMode(string(cfg.Engine.ExecMode)) == "" {
		errs = append(errs, fmt.Errorf("engine.exec_mode: invalid value %q (valid: args, shell)", cfg.Engine.ExecMode))
	}
	if NormalizeLogLevel(string(cfg.Logging.Level)) == "" {
		errs = append(errs, fmt.Errorf("logging.level: invalid value %q", cfg.Logging.Level))
	}
	if NormalizeLogFormat(string(cfg.Logging.Format)) == "" {
		errs = append(errs, fmt.Errorf("logging.format: invalid value %q", cfg.Logging.Format))
	}
	switch cfg.Notify.RetryBackoff {
	case "", "fixed", "linear", "exponential":
	default:
		errs = append(errs, fmt.Errorf("notify.retry_backoff: invalid value %q (valid: fixed, linear, exponential)", cfg.Notify.RetryBackoff))
	}
	if cfg.Notify.Retries < 0 {
		errs = append(errs, fmt.Errorf("notify.retries cannot be negative, got %d", cfg.Notify.Retries))
	}
	if cfg.History.Enabled && cfg.History.Path == "" {
		errs = append(errs, errors.New("history.path is required when history is enabled"))
	}

	return errors.Join(errs...)
}
