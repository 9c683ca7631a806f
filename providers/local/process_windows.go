//go:build windows

package local

import (
	"context"
	"io"
	"os/exec"

	"github.com/ruffel/proctree"
	"github.com/ruffel/proctree/native"
	"github.com/sirupsen/logrus"
)

// killProcessGroup kills the process with the given PID and every process it
// spawned. Windows has no process groups to signal, so the tree is rebuilt
// from a snapshot.
func killProcessGroup(pid int) error {
	quiet := logrus.New()
	quiet.SetOutput(io.Discard)

	_, err := native.NewKiller(native.WithGracePeriod(0), native.WithLogger(quiet)).
		KillProcessTree(context.Background(), proctree.PID(pid))

	return err
}

// setProcessGroup sets the process group for the given command.
func setProcessGroup(_ *exec.Cmd) {}
