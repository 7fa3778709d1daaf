package connector

import (
	"context"
	"io/fs"
)

// Connection is an established session factory against one remote host.
type Connection interface {
	// Exec runs cmd and returns captured stdout, stderr and the remote exit
	// code. A context deadline terminates the remote process.
	Exec(ctx context.Context, cmd string) (stdout []byte, stderr []byte, exitCode int, err error)

	// ExecInput behaves like Exec but feeds stdin to the remote command.
	// Used to pipe secrets to sudo -S without an interactive prompt.
	ExecInput(ctx context.Context, cmd string, stdin []byte) (stdout []byte, stderr []byte, exitCode int, err error)

	// UploadScript copies a local file to remotePath with the given mode.
	UploadScript(ctx context.Context, localPath, remotePath string, mode fs.FileMode) error

	// RemoveRemote deletes a remote path.
	RemoveRemote(ctx context.Context, remotePath string) error

	Close() error
}

// Dialer creates connections to hosts.
type Dialer interface {
	Dial(cfg Config) (Connection, error)
}
