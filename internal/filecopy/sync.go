package filecopy

import "context"

// Send pushes the file with the configured identity.
func (s *Synchronizer) Send(ctx context.Context) error {
	return s.Transfer(ctx, Push, TransferOptions{})
}

// Receive pulls the file with the configured identity.
func (s *Synchronizer) Receive(ctx context.Context) error {
	return s.Transfer(ctx, Pull, TransferOptions{})
}

// SyncOptions controls Sync.
type SyncOptions struct {
	// Force pushes even when the device already holds an identical file.
	Force bool
	// Verify compares the hashes again after the push.
	Verify bool
	// Transfer overrides the connection identity.
	Transfer TransferOptions
}

// SyncResult reports what Sync did.
type SyncResult struct {
	// Skipped is set when the device already had the same file.
	Skipped bool
	// LocalHash is the MD5 of the local file.
	LocalHash string
	// RemoteHash is the device's answer after the sync, when it was asked.
	RemoteHash string
}

// Sync makes the device hold a copy of the local file. The push is skipped
// when the remote file exists and the hashes match.
func (s *Synchronizer) Sync(ctx context.Context, opts SyncOptions) (SyncResult, error) {
	var res SyncResult

	local, err := s.ComputeLocalHash()
	if err != nil {
		return res, err
	}
	if local == "" {
		return res, &LocalFileNotFoundError{Path: s.job.SourcePath}
	}
	res.LocalHash = local

	if !opts.Force {
		exists, err := s.RemoteFileExists(ctx)
		if err != nil {
			return res, err
		}
		if exists {
			remote, err := s.QueryRemoteHash(ctx)
			if err != nil {
				return res, err
			}
			res.RemoteHash = remote
			if remote == local {
				s.log.Verbose("%s already matches %s, skipping", s.job.RemotePath(), s.job.SourcePath)
				res.Skipped = true
				return res, nil
			}
		}
	}

	if err := s.Transfer(ctx, Push, opts.Transfer); err != nil {
		return res, err
	}

	if opts.Verify {
		remote, err := s.QueryRemoteHash(ctx)
		if err != nil {
			return res, err
		}
		res.RemoteHash = remote
		if remote != local {
			return res, ErrVerifyMismatch
		}
	}
	return res, nil
}
