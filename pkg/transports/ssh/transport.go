// Package ssh provides an interactive SSH transport for Yamaha RTX routers.
//
// The device CLI is driven through a pseudo-terminal shell: each command is
// written followed by a carriage return, and output is collected until the
// last line matches the prompt pattern. Pagination prompts are answered
// automatically and device error messages are surfaced as *CommandError.
package ssh

import (
	"context"
	"errors"
	"time"

	"github.com/rtxops/rtxctl/pkg/transports"
)

// Transport defines the SSH session used to manage a device.
type Transport interface {
	transports.CLI

	// Connect establishes an SSH connection and opens the device shell.
	// Returns an error if connection fails or authentication is rejected.
	Connect(ctx context.Context) error

	// Disconnect closes the SSH connection and releases all resources.
	Disconnect() error

	// Close leaves administrator mode if needed and disconnects.
	Close() error

	// IsConnected returns true if the transport has an active connection.
	IsConnected() bool

	// HealthCheck verifies the shell is still alive and responsive.
	HealthCheck(ctx context.Context) error

	// Become enters administrator mode.
	Become(ctx context.Context) error

	// Unbecome leaves administrator mode without saving.
	Unbecome(ctx context.Context) error

	// FetchFile reads a file from the device over SFTP.
	FetchFile(ctx context.Context, remotePath string) ([]byte, error)

	// GetConnectionInfo returns information about the current connection.
	GetConnectionInfo() ConnectionInfo
}

var _ Transport = (*SSHClient)(nil)

// ConnectionInfo contains details about an active SSH connection.
type ConnectionInfo struct {
	// Host is the remote hostname or IP address
	Host string

	// Port is the SSH port number
	Port int

	// User is the SSH username
	User string

	// ConnectedAt is when the connection was established
	ConnectedAt time.Time

	// LastActivity is when the connection was last used
	LastActivity time.Time

	// Administrator reports whether the shell is in administrator mode
	Administrator bool
}

// FileTransferResult represents the result of a file transfer operation.
type FileTransferResult struct {
	// BytesTransferred is the number of bytes transferred
	BytesTransferred int64

	// Duration is the time taken for the transfer
	Duration time.Duration

	// StartedAt is when the transfer started
	StartedAt time.Time

	// FinishedAt is when the transfer completed
	FinishedAt time.Time
}

// TransportError represents an error from the transport layer.
type TransportError struct {
	// Op is the operation that failed (e.g., "connect", "exec", "sftp")
	Op string

	// Err is the underlying error
	Err error

	// IsTemporary indicates if the error is temporary and can be retried
	IsTemporary bool

	// IsAuthError indicates if the error is related to authentication
	IsAuthError bool
}

func (e *TransportError) Error() string {
	return e.Op + ": " + e.Err.Error()
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

func (e *TransportError) Temporary() bool {
	return e.IsTemporary
}

// CommandError is a device-reported error for a single command.
type CommandError struct {
	Command string
	Output  string
}

func (e *CommandError) Error() string {
	return "command " + `"` + e.Command + `"` + " failed: " + e.Output
}

// ErrTimeout is returned when the prompt does not appear in time.
var ErrTimeout = errors.New("timed out waiting for prompt")

// ErrSessionClosed is returned when the device closes the shell.
var ErrSessionClosed = errors.New("session closed by device")
