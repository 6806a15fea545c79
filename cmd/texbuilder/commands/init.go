package commands

import (
	"fmt"
	"io"

	"git.home.luguber.info/inful/texbuilder/internal/config"
	"git.home.luguber.info/inful/texbuilder/internal/foundation/errors"
)

// InitCmd implements the 'init' command.
type InitCmd struct {
	Force bool `help:"Overwrite existing configuration file"`
}

func (i *InitCmd) Run(out io.Writer, root *CLI) error {
	fmt.Fprintf(out, "Writing configuration to %s\n", root.Config)
	if err := config.Init(root.Config, i.Force); err != nil {
		return errors.ConfigError("initialize configuration").WithCause(err).Build()
	}
	fmt.Fprintln(out, "initialized successfully")
	return nil
}
