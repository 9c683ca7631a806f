// Package proctree terminates operating-system process trees.
//
// A host that launches tool subprocesses cannot rely on the original process
// handle to stop everything the tool spawned: children detach, handles go
// stale, and most platforms offer no first-class tree API. proctree rebuilds the
// hierarchy from a flat snapshot of (pid, parent pid) pairs, expands the root
// into its descendant set with a cycle-safe traversal, and terminates every
// descendant before the root.
//
// # Core Interfaces
//
// - Environment: the system where helper commands run (Local, SSH, Docker).
// - Process: a started command (Wait, PID, Close).
// - Platform: the Snapshotter, Terminator and ElevationOracle a Killer composes.
//
// The systools package implements Platform by running ps/kill or
// wmic/tasklist/taskkill through any Environment. The native package implements
// it for the local machine with gopsutil.
//
// # Sudo
//
// Privilege escalation is never automatic. Hosts that want privileged helper
// commands opt in with proctree.WithSudo(), which uses `sudo -n`.
package proctree

import (
	"context"
	"io"
)

// Environment is a place where helper commands run: this machine, an SSH
// host or a container.
type Environment interface {
	io.Closer

	// Run runs cmd to completion. A non-zero exit is returned as *ExitError
	// together with the Result; a command that never ran is a
	// *TransportError.
	Run(ctx context.Context, cmd *Command) (*Result, error)

	// Start launches cmd without waiting for it. The caller must Wait or
	// Close the returned Process.
	Start(ctx context.Context, cmd *Command) (Process, error)

	TargetOS() TargetOS

	// LookPath resolves file on the target's PATH.
	LookPath(ctx context.Context, file string) (string, error)
}

// Process is a started command.
type Process interface {
	// Close stops the command if it is still running and releases it.
	io.Closer

	// Wait blocks until the command exits. A non-zero exit is an *ExitError.
	Wait() error

	// Result is the exit code and run time, zero until Wait returns.
	Result() *Result

	// PID identifies the process on its target, or is 0 when the provider
	// cannot observe it.
	PID() PID
}

// Snapshotter takes point-in-time listings of the process table.
//
// Implementations must fail with an error wrapping ErrSnapshotUnavailable when
// the listing cannot be acquired; an empty result never means "no processes".
// Platforms that cannot enumerate processes at all return ErrNotSupported.
type Snapshotter interface {
	// ParentLinks lists every process with its reported parent.
	ParentLinks(ctx context.Context) (ParentMap, error)

	// ImageNames lists every process with its executable image name.
	ImageNames(ctx context.Context) (map[PID]string, error)
}

// Terminator stops a single process, gracefully first and forcibly second.
// It never returns an error: failures are carried by the Outcome.
type Terminator interface {
	Terminate(ctx context.Context, pid PID) Outcome
}

// ElevationOracle reports whether a process runs with administrator or
// root-equivalent privilege. Any failure to find out is reported as false.
type ElevationOracle interface {
	ProcessElevated(ctx context.Context, pid PID) bool
	CurrentElevated(ctx context.Context) bool
}

// Platform bundles everything a Killer needs from the target system.
type Platform interface {
	Snapshotter
	Terminator
	ElevationOracle
}

type composite struct {
	Snapshotter
	Terminator
	ElevationOracle
}

// Compose assembles a Platform from independent parts, e.g. a procfs
// snapshot paired with a system-tool terminator.
func Compose(snap Snapshotter, term Terminator, oracle ElevationOracle) Platform {
	return composite{Snapshotter: snap, Terminator: term, ElevationOracle: oracle}
}
