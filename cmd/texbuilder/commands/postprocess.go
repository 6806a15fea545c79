package commands

import (
	"context"
	"io"
)

// PostProcessCmd implements the 'postprocess' command.
type PostProcessCmd struct {
	Source  string `arg:"" help:"Source file whose .pdf rendering is post-processed"`
	Command string `arg:"" optional:"" help:"Command template with %dir% and %file% (default: engine.post_process)"`

	EngineFlags `embed:""`
}

func (p *PostProcessCmd) Run(ctx context.Context, out io.Writer, root *CLI) error {
	cfg, err := root.LoadConfig()
	if err != nil {
		return err
	}
	if err := p.EngineFlags.apply(cfg); err != nil {
		return err
	}

	rt, err := newRuntime(cfg)
	if err != nil {
		return err
	}
	defer rt.Close()

	report, err := rt.service.PostProcess(ctx, p.Source, p.Command)
	rt.flushMetrics()
	if err != nil {
		return err
	}
	printReport(out, report, false)
	return report.Err()
}
