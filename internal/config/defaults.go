package config

// Defaults applied after normalization.
const (
	DefaultPasses        = 3
	DefaultHistoryPath   = ".texbuilder/history.db"
	DefaultNotifySubject = "texbuilder.builds"
)

func applyDefaults(cfg *Config) {
	if cfg.Engine.Command == "" {
		cfg.Engine.Command = DefaultEngineCommand
	}
	if cfg.Engine.Passes <= 0 {
		cfg.Engine.Passes = DefaultPasses
	}
	if cfg.Engine.ExecMode == "" {
		cfg.Engine.ExecMode = ExecModeArgs
	}
	if cfg.History.Enabled && cfg.History.Path == "" {
		cfg.History.Path = DefaultHistoryPath
	}
	if cfg.Notify.Subject == "" {
		cfg.Notify.Subject = DefaultNotifySubject
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = LogLevelInfo
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = LogFormatText
	}
}
