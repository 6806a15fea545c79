package main

import (
	"context"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"

	"git.home.luguber.info/inful/texbuilder/cmd/texbuilder/commands"
	"git.home.luguber.info/inful/texbuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/texbuilder/internal/version"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	var cli commands.CLI
	parser := kong.Parse(&cli,
		kong.Name("texbuilder"),
		kong.Description("Render LaTeX and Markdown documents to PDF with an external typesetting engine."),
		kong.UsageOnError(),
		kong.Vars{"version": version.String()},
		kong.BindTo(ctx, (*context.Context)(nil)),
		kong.BindTo(os.Stdout, (*io.Writer)(nil)),
	)

	err := parser.Run(&cli)
	stop()
	errors.NewCLIErrorAdapter(cli.Verbose, slog.Default()).HandleError(err)
}
