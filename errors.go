package proctree

import (
	"context"
	"errors"
	"fmt"
)

// ErrNotSupported indicates that the provider or OS cannot do what was asked,
// e.g. enumerate processes.
var ErrNotSupported = errors.New("operation not supported")

// ErrEnvironmentClosed indicates that an operation was attempted on a closed environment.
var ErrEnvironmentClosed = errors.New("environment is closed")

// ErrInvalidPID indicates a zero or otherwise unusable process identifier.
var ErrInvalidPID = errors.New("invalid pid")

// Process-tree error taxonomy.
var (
	// ErrSnapshotUnavailable means the process table could not be enumerated.
	ErrSnapshotUnavailable = errors.New("process snapshot unavailable")

	// ErrAccessDenied means a termination or query lacked privilege. The host
	// may recover by elevating; the library never retries on its own.
	ErrAccessDenied = errors.New("access denied")

	// ErrAlreadyGone means the target vanished before or during the operation.
	// It is a success condition for termination.
	ErrAlreadyGone = errors.New("process not found")

	// ErrToolInvocationFailed means a system utility could not be launched at all.
	ErrToolInvocationFailed = errors.New("system tool invocation failed")

	// ErrTimedOut means a single helper command exceeded its timeout.
	ErrTimedOut = errors.New("command timed out")
)

// ExitError represents a successful execution that resulted in a non-zero exit code.
type ExitError struct {
	Command  *Command
	ExitCode int
	Stderr   []byte
	Cause    error
}

func (e *ExitError) Error() string {
	if e.Command == nil {
		return fmt.Sprintf("command exited with code %d", e.ExitCode)
	}

	return fmt.Sprintf("command %q exited with code %d", e.Command.String(), e.ExitCode)
}

func (e *ExitError) Unwrap() error {
	return e.Cause
}

// TransportError represents a failure in the underlying transport or provider layer
// (e.g. connection lost, docker daemon unreachable, binary not found).
type TransportError struct {
	Command *Command
	Err     error
}

func (e *TransportError) Error() string {
	if e.Command == nil {
		return fmt.Sprintf("transport error: %v", e.Err)
	}

	return fmt.Sprintf("transport error executing %q: %v", e.Command.String(), e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// IsTransport reports whether err means the command never ran, as opposed to
// running and failing.
func IsTransport(err error) bool {
	var te *TransportError

	return errors.As(err, &te)
}

// timeoutError wraps the cause of an expired per-command deadline.
func timeoutError(cmd *Command, cause error) error {
	return fmt.Errorf("%w: %q: %w", ErrTimedOut, cmd.String(), cause)
}

// expired reports whether ctx hit its own deadline while parent is still live.
func expired(parent, ctx context.Context) bool {
	return parent.Err() == nil && errors.Is(ctx.Err(), context.DeadlineExceeded)
}
