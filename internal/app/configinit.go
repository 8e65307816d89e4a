package app

import (
	"fmt"
	"io"

	"github.com/tturner/nxsync/internal/config"
	"github.com/tturner/nxsync/internal/ui"
)

// RunConfigInit writes a default inventory to path, or to the default
// location when path is empty.
func RunConfigInit(path string, out io.Writer) error {
	if path == "" {
		path = config.DefaultPath()
	}
	if err := config.WriteDefault(path); err != nil {
		return err
	}
	fmt.Fprintln(out, ui.Success("wrote "+path))
	return nil
}
