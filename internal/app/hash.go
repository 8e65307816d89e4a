package app

import (
	"fmt"
	"io"
	"os"

	"github.com/tturner/nxsync/internal/filecopy"
	"github.com/tturner/nxsync/internal/ui"
)

// HashOptions configures RunHash.
type HashOptions struct {
	Path      string
	BlockSize int
	Copy      bool
}

// RunHash prints the MD5 of a local file in md5sum format.
func RunHash(opts HashOptions, out io.Writer) error {
	if opts.BlockSize < 0 {
		return fmt.Errorf("block size must be positive, got %d", opts.BlockSize)
	}
	info, err := os.Stat(opts.Path)
	if err != nil || !info.Mode().IsRegular() {
		return &filecopy.LocalFileNotFoundError{Path: opts.Path}
	}

	sum, err := filecopy.HashFile(opts.Path, opts.BlockSize)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "%s  %s\n", sum, opts.Path)
	if opts.Copy {
		if err := ui.CopyToClipboard(sum); err != nil {
			return fmt.Errorf("copy to clipboard: %w", err)
		}
		fmt.Fprintln(out, ui.Success("copied to clipboard"))
	}
	return nil
}
