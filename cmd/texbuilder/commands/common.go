package commands

import (
	"io"
	"log/slog"
	"os"

	"github.com/alecthomas/kong"

	"git.home.luguber.info/inful/texbuilder/internal/config"
	"git.home.luguber.info/inful/texbuilder/internal/foundation/errors"
)

// CLI definition & global flags.
type CLI struct {
	Config    string           `short:"c" help:"Configuration file path" default:"texbuilder.yaml" env:"TEXBUILDER_CONFIG"`
	Verbose   bool             `short:"v" help:"Enable verbose logging"`
	LogFormat string           `name:"log-format" help:"Log format (text|json); overrides logging.format"`
	Version   kong.VersionFlag `name:"version" help:"Show version and exit"`

	Build       BuildCmd       `cmd:"" help:"Render a LaTeX or Markdown file to PDF"`
	PostProcess PostProcessCmd `cmd:"" name:"postprocess" help:"Run a post-process command against an existing rendering"`
	Watch       WatchCmd       `cmd:"" help:"Rebuild whenever the input file changes"`
	History     HistoryCmd     `cmd:"" help:"Inspect recorded builds"`
	Init        InitCmd        `cmd:"" help:"Initialize a new configuration file"`
	Info        VersionCmd     `cmd:"" name:"version" help:"Print version information"`
}

// AfterApply runs after flag parsing; it installs a logger from the flags
// alone so that configuration loading itself can log.
// nolint:unparam // AfterApply currently never returns an error.
func (c *CLI) AfterApply() error {
	level := slog.LevelInfo
	if c.Verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(NewLogger(os.Stderr, level, config.NormalizeLogFormat(c.LogFormat)))
	return nil
}

// LoadConfig reads the configuration file, falling back to defaults when it
// does not exist, and reinstalls the logger with the configured settings.
func (c *CLI) LoadConfig() (*config.Config, error) {
	cfg, err := config.LoadOrDefault(c.Config)
	if err != nil {
		return nil, errors.ConfigError("load configuration").WithCause(err).WithContext("path", c.Config).Build()
	}

	level := cfg.Logging.Level.SlogLevel()
	if c.Verbose {
		level = slog.LevelDebug
	}
	format := cfg.Logging.Format
	if f := config.NormalizeLogFormat(c.LogFormat); f != "" {
		format = f
	}
	slog.SetDefault(NewLogger(os.Stderr, level, format))
	return cfg, nil
}

// NewLogger builds the process logger.
func NewLogger(w io.Writer, level slog.Level, format config.LogFormat) *slog.Logger {
	opts := &slog.HandlerOptions{Level: level}
	if format == config.LogFormatJSON {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}
