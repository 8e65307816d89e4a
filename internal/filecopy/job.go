// Package filecopy copies a single file between the local host and a network
// device's storage, with free-space and MD5 checks against the device.
package filecopy

import (
	"fmt"
	"path/filepath"
)

const (
	// DefaultRemoteDirectory is the system volume on NX-OS.
	DefaultRemoteDirectory = "bootflash:"
	// DefaultPort is the SSH port used for the bulk transfer channel.
	DefaultPort = 22
	// DefaultBlockSize is the read size used when hashing local files.
	DefaultBlockSize = 1 << 20
)

// SyncJob describes one file copy. A job is meant for a single transfer by a
// single goroutine; DestinationName must not change once a transfer starts.
type SyncJob struct {
	// SourcePath is the local file. For pulls it is the file written.
	SourcePath string
	// DestinationName is the file name on the device. Defaults to the base
	// name of SourcePath.
	DestinationName string
	// RemoteDirectory is the device volume, including its trailing
	// separator convention (e.g. "bootflash:").
	RemoteDirectory string
	// Port is the bulk transfer channel port.
	Port int
}

// Normalize applies defaults and validates the job.
func (j SyncJob) Normalize() (SyncJob, error) {
	if j.SourcePath == "" {
		return j, fmt.Errorf("source path is required")
	}
	if j.DestinationName == "" {
		j.DestinationName = filepath.Base(j.SourcePath)
	}
	if j.RemoteDirectory == "" {
		j.RemoteDirectory = DefaultRemoteDirectory
	}
	if j.Port == 0 {
		j.Port = DefaultPort
	}
	if j.Port < 0 || j.Port > 65535 {
		return j, fmt.Errorf("invalid port %d", j.Port)
	}
	return j, nil
}

// RemotePath is the device path of the file: directory and name concatenated.
func (j SyncJob) RemotePath() string {
	return j.RemoteDirectory + j.DestinationName
}
