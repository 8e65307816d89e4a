package app

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/tturner/nxsync/internal/progress"
	"github.com/tturner/nxsync/internal/ui"
)

// CheckOptions configures RunCheck.
type CheckOptions struct {
	CommonOptions
	LocalPath string
	Dest      string
	JSON      bool
}

// CheckResult is what nxsync check reports about one file.
type CheckResult struct {
	Device         string `json:"device"`
	LocalPath      string `json:"local_path"`
	RemotePath     string `json:"remote_path"`
	FreeBytes      int64  `json:"free_bytes"`
	LocalSize      int64  `json:"local_size"`
	LocalExists    bool   `json:"local_exists"`
	EnoughSpace    bool   `json:"enough_space"`
	RemoteExists   bool   `json:"remote_exists"`
	LocalMD5       string `json:"local_md5,omitempty"`
	RemoteMD5      string `json:"remote_md5,omitempty"`
	RemoteDegraded bool   `json:"remote_degraded,omitempty"`
	Match          bool   `json:"match"`
}

// RunCheck reports space, presence and checksums for a file without
// transferring it.
func RunCheck(ctx context.Context, opts CheckOptions, out io.Writer) error {
	s, err := openSession(opts.CommonOptions)
	if err != nil {
		return err
	}
	defer s.Close()

	sync, err := s.synchronizer(ctx, opts.LocalPath, opts.Dest, nil)
	if err != nil {
		return s.explain(err, opts.LocalPath, "")
	}
	job := sync.Job()

	res := CheckResult{
		Device:     s.name,
		LocalPath:  job.SourcePath,
		RemotePath: job.RemotePath(),
	}

	if res.FreeBytes, err = sync.QueryRemoteFreeBytes(ctx); err != nil {
		return s.explain(err, job.SourcePath, job.RemotePath())
	}

	res.LocalExists = sync.LocalFileExists()
	if res.LocalExists {
		if info, err := os.Stat(job.SourcePath); err == nil {
			res.LocalSize = info.Size()
		}
		res.EnoughSpace = res.LocalSize <= res.FreeBytes
		if res.LocalMD5, err = sync.ComputeLocalHash(); err != nil {
			return err
		}
	}

	if res.RemoteExists, err = sync.RemoteFileExists(ctx); err != nil {
		return s.explain(err, job.SourcePath, job.RemotePath())
	}
	if res.RemoteExists {
		digest, err := sync.QueryRemoteDigest(ctx)
		if err != nil {
			return s.explain(err, job.SourcePath, job.RemotePath())
		}
		res.RemoteMD5 = digest.Value
		res.RemoteDegraded = digest.Degraded
	}
	res.Match = res.LocalExists && res.RemoteExists && res.LocalMD5 == res.RemoteMD5

	if opts.JSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	}
	fmt.Fprintln(out, renderCheck(res))
	return nil
}

func renderCheck(res CheckResult) string {
	r := ui.Report{
		Title:  fmt.Sprintf("%s on %s", res.RemotePath, res.Device),
		Footer: res.LocalPath,
	}
	r.Add("free space", progress.FormatBytes(res.FreeBytes), ui.StatusNone)

	v, st := ui.YesNo(res.LocalExists, false)
	r.Add("local file", v, st)
	if res.LocalExists {
		r.Add("local size", progress.FormatBytes(res.LocalSize), ui.StatusNone)
		v, st = ui.YesNo(res.EnoughSpace, false)
		r.Add("enough space", v, st)
		r.Add("local md5", res.LocalMD5, ui.StatusNone)
	}

	v, _ = ui.YesNo(res.RemoteExists, false)
	r.Add("remote file", v, ui.StatusNone)
	if res.RemoteExists {
		status := ui.StatusNone
		if res.RemoteDegraded {
			status = ui.StatusWarn
		}
		r.Add("remote md5", res.RemoteMD5, status)
	}

	v, st = ui.YesNo(res.Match, false)
	if !res.RemoteExists || !res.LocalExists {
		st = ui.StatusWarn
	}
	r.Add("match", v, st)
	return r.Render()
}
