//go:build unix

package native

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/ruffel/proctree"
	"github.com/shirou/gopsutil/v3/process"
	"golang.org/x/sys/unix"
)

const gracefulSupported = true

func classify(err error) error {
	switch {
	case errors.Is(err, unix.ESRCH),
		errors.Is(err, os.ErrProcessDone),
		errors.Is(err, process.ErrorProcessNotRunning):
		return fmt.Errorf("%w: %w", proctree.ErrAlreadyGone, err)
	case errors.Is(err, unix.EPERM):
		return fmt.Errorf("%w: %w", proctree.ErrAccessDenied, err)
	default:
		return err
	}
}

// running reports false for zombies, which only wait to be reaped.
func running(ctx context.Context, proc *process.Process) bool {
	ok, err := proc.IsRunningWithContext(ctx)
	if err != nil || !ok {
		return false
	}

	status, err := proc.StatusWithContext(ctx)
	if err != nil || len(status) == 0 {
		return true
	}

	return !strings.EqualFold(status[0], process.Zombie)
}

func processElevated(ctx context.Context, pid proctree.PID) (bool, error) {
	proc, err := process.NewProcessWithContext(ctx, int32(pid))
	if err != nil {
		return false, err
	}

	uids, err := proc.UidsWithContext(ctx)
	if err != nil {
		return false, err
	}

	// real, effective, saved, fs
	if len(uids) < 2 {
		return false, errors.New("effective uid unavailable")
	}

	return uids[1] == 0, nil
}

func currentElevated() bool {
	return unix.Geteuid() == 0
}
