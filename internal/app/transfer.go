package app

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/tturner/nxsync/internal/filecopy"
	"github.com/tturner/nxsync/internal/history"
	"github.com/tturner/nxsync/internal/progress"
	"github.com/tturner/nxsync/internal/ui"
)

// PushOptions configures RunPush.
type PushOptions struct {
	CommonOptions
	LocalPath  string
	Dest       string
	Force      bool
	Verify     bool
	NoProgress bool
}

// RunPush copies a local file to the device unless an identical copy is
// already there.
func RunPush(ctx context.Context, opts PushOptions, out io.Writer) error {
	s, err := openSession(opts.CommonOptions)
	if err != nil {
		return err
	}
	defer s.Close()

	tracker := progress.NewTracker(!opts.NoProgress)
	sync, err := s.synchronizer(ctx, opts.LocalPath, opts.Dest, tracker.Bar)
	if err != nil {
		return s.explain(err, opts.LocalPath, "")
	}
	job := sync.Job()

	rec := &history.Record{
		ID:         history.NewID(),
		Direction:  filecopy.Push.String(),
		LocalPath:  job.SourcePath,
		RemotePath: job.RemotePath(),
		StartedAt:  time.Now(),
	}
	if info, err := os.Stat(job.SourcePath); err == nil {
		rec.Bytes = info.Size()
	}

	res, err := sync.Sync(ctx, filecopy.SyncOptions{Force: opts.Force, Verify: opts.Verify})
	tracker.Finish()
	rec.Duration = time.Since(rec.StartedAt)
	rec.MD5 = res.LocalHash

	switch {
	case err != nil:
		rec.State = history.StateFailed
		rec.Error = err.Error()
	case res.Skipped:
		rec.State = history.StateSkipped
	default:
		rec.State = history.StateCompleted
	}
	s.record(rec)

	if err != nil {
		return s.explain(err, job.SourcePath, job.RemotePath())
	}

	if res.Skipped {
		fmt.Fprintln(out, ui.Success(fmt.Sprintf("%s already matches %s, nothing to do", job.RemotePath(), job.SourcePath)))
		return nil
	}
	fmt.Fprintln(out, ui.Success(fmt.Sprintf("pushed %s -> %s on %s: %s",
		job.SourcePath, job.RemotePath(), s.name, progress.Summary(rec.Bytes, rec.Duration))))
	if opts.Verify {
		fmt.Fprintf(out, "verified md5 %s\n", res.RemoteHash)
	}
	return nil
}

// PullOptions configures RunPull.
type PullOptions struct {
	CommonOptions
	LocalPath  string
	Dest       string
	NoProgress bool
}

// RunPull copies a device file to the local path, creating its parent
// directories and replacing existing content.
func RunPull(ctx context.Context, opts PullOptions, out io.Writer) error {
	s, err := openSession(opts.CommonOptions)
	if err != nil {
		return err
	}
	defer s.Close()

	dest := opts.Dest
	if dest == "" {
		dest = filepath.Base(opts.LocalPath)
	}

	tracker := progress.NewTracker(!opts.NoProgress)
	sync, err := s.synchronizer(ctx, opts.LocalPath, dest, tracker.Bar)
	if err != nil {
		return s.explain(err, opts.LocalPath, "")
	}
	job := sync.Job()

	rec := &history.Record{
		ID:         history.NewID(),
		Direction:  filecopy.Pull.String(),
		LocalPath:  job.SourcePath,
		RemotePath: job.RemotePath(),
		StartedAt:  time.Now(),
	}

	if sync.LocalFileExists() {
		fmt.Fprintln(out, ui.Warning("replacing existing "+job.SourcePath))
	}

	err = sync.Receive(ctx)
	tracker.Finish()
	rec.Duration = time.Since(rec.StartedAt)

	if err != nil {
		rec.State = history.StateFailed
		rec.Error = err.Error()
		s.record(rec)
		return s.explain(err, job.SourcePath, job.RemotePath())
	}

	rec.State = history.StateCompleted
	if info, err := os.Stat(job.SourcePath); err == nil {
		rec.Bytes = info.Size()
	}
	if sum, err := sync.ComputeLocalHash(); err == nil {
		rec.MD5 = sum
	}
	s.record(rec)

	fmt.Fprintln(out, ui.Success(fmt.Sprintf("pulled %s on %s -> %s: %s",
		job.RemotePath(), s.name, job.SourcePath, progress.Summary(rec.Bytes, rec.Duration))))
	return nil
}
