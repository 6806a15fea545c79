package commands

import (
	"fmt"
	"io"

	"git.home.luguber.info/inful/texbuilder/internal/version"
)

// VersionCmd implements the 'version' command.
type VersionCmd struct{}

func (VersionCmd) Run(out io.Writer) error {
	_, err := fmt.Fprintf(out, "texbuilder %s\n", version.String())
	return err
}
