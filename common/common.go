package common

import (
	"io/fs"
	"path/filepath"
	"time"
)

const (
	AppName    = "fleetrun"
	TmpDirBase = "/tmp/"
)

// GetRemoteTmpDir returns the remote staging directory used by script mode.
func GetRemoteTmpDir() string {
	return filepath.Join(TmpDirBase, AppName) + "/"
}

// Logger context field keys.
const (
	LogFieldApp  = "App"
	LogFieldRun  = "Run"
	LogFieldHost = "Host"
)

const (
	DefaultSSHPort        = 22
	DefaultConnectTimeout = 10 * time.Second
	DefaultExecTimeout    = 60 * time.Second
	// ProbeTimeout bounds the reachability precheck; it is deliberately
	// shorter than the connect timeout for real execution.
	ProbeTimeout = 5 * time.Second
)

const (
	// FileMode0700 represents rwx------
	FileMode0700 fs.FileMode = 0700
	// FileMode0600 represents rw-------
	FileMode0600 fs.FileMode = 0600
	// FileMode0644 represents rw-r--r--
	FileMode0644 fs.FileMode = 0644
)

// HostState tracks a host through the per-host pipeline.
type HostState int

const (
	StatePending HostState = iota
	StateProbing
	StateProbed
	StateResolvingSecret
	StateExecuting
	StateDone
)

func (s HostState) String() string {
	switch s {
	case StatePending:
		return "Pending"
	case StateProbing:
		return "Probing"
	case StateProbed:
		return "Probed"
	case StateResolvingSecret:
		return "ResolvingSecret"
	case StateExecuting:
		return "Executing"
	case StateDone:
		return "Done"
	default:
		return "Unknown"
	}
}
