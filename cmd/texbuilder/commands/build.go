package commands

import (
	"context"
	"io"
	"time"

	"git.home.luguber.info/inful/texbuilder/internal/build"
	"git.home.luguber.info/inful/texbuilder/internal/config"
	"git.home.luguber.info/inful/texbuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/texbuilder/internal/markup"
)

// EngineFlags override the engine section of the configuration.
type EngineFlags struct {
	Engine      string        `help:"Engine command template with %dir% and %file%; overrides engine.command"`
	Passes      int           `help:"Engine passes per build; overrides engine.passes"`
	PassTimeout time.Duration `name:"pass-timeout" help:"Per-pass time limit; overrides engine.pass_timeout"`
	ExecMode    string        `name:"exec-mode" help:"How commands are started (args|shell); overrides engine.exec_mode"`
}

// apply merges the flags into cfg and revalidates it.
func (f EngineFlags) apply(cfg *config.Config) error {
	if f.Engine != "" {
		cfg.Engine.Command = f.Engine
	}
	if f.Passes != 0 {
		cfg.Engine.Passes = f.Passes
	}
	if f.PassTimeout != 0 {
		cfg.Engine.PassTimeout = f.PassTimeout.String()
	}
	if f.ExecMode != "" {
		cfg.Engine.ExecMode = config.ExecMode(f.ExecMode)
		if m := config.NormalizeExecMode(f.ExecMode); m != "" {
			cfg.Engine.ExecMode = m
		}
	}
	if err := config.Validate(cfg); err != nil {
		return errors.ValidationError("invalid engine settings").WithCause(err).Build()
	}
	return nil
}

// InputFlags describe what to render and where to put it.
type InputFlags struct {
	Input         string `arg:"" help:"LaTeX or Markdown input file"`
	Output        string `short:"o" help:"Destination PDF (default: input name with .pdf in output.directory or next to the input)"`
	Format        string `help:"Input format (auto|latex|markdown)" default:"auto"`
	Source        string `help:"Keep the generated source at this path instead of a temporary file"`
	PostProcess   string `name:"post-process" help:"Post-process command template; overrides engine.post_process"`
	NoPostProcess bool   `name:"no-post-process" help:"Skip the configured post-process command"`
	SkipUnchanged bool   `name:"skip-unchanged" help:"Skip the engine when input and settings match the latest build and it succeeded"`
}

func (f InputFlags) request() (build.Request, error) {
	format, err := markup.ParseFormat(f.Format)
	if err != nil {
		return build.Request{}, errors.ValidationError("invalid --format").WithCause(err).Build()
	}
	return build.Request{
		Input:         f.Input,
		Output:        f.Output,
		Format:        format,
		SourcePath:    f.Source,
		PostProcess:   f.PostProcess,
		NoPostProcess: f.NoPostProcess,
		SkipUnchanged: f.SkipUnchanged,
	}, nil
}

// BuildCmd implements the 'build' command.
type BuildCmd struct {
	InputFlags  `embed:""`
	EngineFlags `embed:""`

	ShowLog bool `name:"show-log" help:"Print the captured engine console output"`
}

func (b *BuildCmd) Run(ctx context.Context, out io.Writer, root *CLI) error {
	cfg, err := root.LoadConfig()
	if err != nil {
		return err
	}
	if err := b.EngineFlags.apply(cfg); err != nil {
		return err
	}
	req, err := b.InputFlags.request()
	if err != nil {
		return err
	}

	rt, err := newRuntime(cfg)
	if err != nil {
		return err
	}
	defer rt.Close()

	report, err := rt.service.Run(ctx, req)
	rt.flushMetrics()
	if err != nil {
		return err
	}
	printReport(out, report, b.ShowLog)
	return report.Err()
}
