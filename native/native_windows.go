//go:build windows

package native

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/ruffel/proctree"
	"github.com/shirou/gopsutil/v3/process"
	"golang.org/x/sys/windows"
)

// gopsutil terminates with TerminateProcess on Windows, so there is no
// graceful step to try.
const gracefulSupported = false

func classify(err error) error {
	switch {
	case errors.Is(err, windows.ERROR_INVALID_PARAMETER),
		errors.Is(err, os.ErrProcessDone),
		errors.Is(err, process.ErrorProcessNotRunning):
		return fmt.Errorf("%w: %w", proctree.ErrAlreadyGone, err)
	case errors.Is(err, windows.ERROR_ACCESS_DENIED):
		return fmt.Errorf("%w: %w", proctree.ErrAccessDenied, err)
	default:
		return err
	}
}

func running(ctx context.Context, proc *process.Process) bool {
	ok, err := proc.IsRunningWithContext(ctx)

	return err == nil && ok
}

func processElevated(_ context.Context, pid proctree.PID) (bool, error) {
	h, err := windows.OpenProcess(windows.PROCESS_QUERY_LIMITED_INFORMATION, false, uint32(pid))
	if err != nil {
		return false, fmt.Errorf("open process %d: %w", pid, err)
	}
	defer func() { _ = windows.CloseHandle(h) }()

	var token windows.Token
	if err := windows.OpenProcessToken(h, windows.TOKEN_QUERY, &token); err != nil {
		return false, fmt.Errorf("open token of %d: %w", pid, err)
	}
	defer func() { _ = token.Close() }()

	return token.IsElevated(), nil
}

func currentElevated() bool {
	return windows.GetCurrentProcessToken().IsElevated()
}
