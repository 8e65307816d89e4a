package transport

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Local implements FileTransfer against a directory that stands in for a
// device's storage. Remote paths "vol:name" and "vol:/dir/name" map to
// <root>/vol/name and <root>/vol/dir/name.
type Local struct {
	root string
	opts Options
}

// NewLocal creates a new local transport rooted at root.
func NewLocal(root string, opts Options) *Local {
	return &Local{root: root, opts: opts}
}

// Resolve maps a device path to a path under the root.
func (l *Local) Resolve(remotePath string) (string, error) {
	volume, rest := "", remotePath
	if idx := strings.Index(remotePath, ":"); idx >= 0 {
		volume, rest = remotePath[:idx], remotePath[idx+1:]
	}
	rest = strings.TrimLeft(filepath.ToSlash(rest), "/")
	if rest == "" {
		return "", fmt.Errorf("remote path %q has no file name", remotePath)
	}

	rel := filepath.Join(volume, filepath.FromSlash(rest))
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("remote path %q escapes the transfer root", remotePath)
	}
	return filepath.Join(l.root, rel), nil
}

// Put copies a local file into the root.
func (l *Local) Put(ctx context.Context, localPath, remotePath string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	dst, err := l.Resolve(remotePath)
	if err != nil {
		return err
	}
	return copyFile(localPath, dst, l.opts.Progress)
}

// Get copies a file out of the root.
func (l *Local) Get(ctx context.Context, remotePath, localPath string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	src, err := l.Resolve(remotePath)
	if err != nil {
		return err
	}
	return copyFile(src, localPath, l.opts.Progress)
}

// Close is a no-op for local transport.
func (l *Local) Close() error {
	return nil
}

// String returns a description of this transport.
func (l *Local) String() string {
	return "local://" + filepath.ToSlash(l.root)
}

// copyFile copies a file from src to dst.
func copyFile(src, dst string, progress ProgressFunc) error {
	srcFile, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("open source: %w", err)
	}
	defer srcFile.Close()

	srcInfo, err := srcFile.Stat()
	if err != nil {
		return fmt.Errorf("stat source: %w", err)
	}
	if !srcInfo.Mode().IsRegular() {
		return fmt.Errorf("%s is not a regular file", src)
	}

	dstFile, err := createLocal(dst, srcInfo.Mode().Perm())
	if err != nil {
		return err
	}
	defer dstFile.Close()

	if _, err := copyWithProgress(dstFile, srcFile, filepath.Base(src), srcInfo.Size(), progress); err != nil {
		return fmt.Errorf("copy: %w", err)
	}

	return dstFile.Sync()
}

// Ensure Local implements FileTransfer
var _ FileTransfer = (*Local)(nil)
