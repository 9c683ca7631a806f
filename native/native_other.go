//go:build !unix && !windows

package native

import (
	"context"

	"github.com/ruffel/proctree"
	"github.com/shirou/gopsutil/v3/process"
)

const gracefulSupported = false

func classify(err error) error { return err }

func running(ctx context.Context, proc *process.Process) bool {
	ok, err := proc.IsRunningWithContext(ctx)

	return err == nil && ok
}

func processElevated(context.Context, proctree.PID) (bool, error) {
	return false, proctree.ErrNotSupported
}

func currentElevated() bool { return false }
