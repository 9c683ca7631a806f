package systools

import (
	"context"
	"strings"

	"github.com/ruffel/proctree"
)

// entry is one row of a process listing.
type entry struct {
	pid  proctree.PID
	ppid proctree.PID
	name string
}

// dialect knows which utilities a target OS ships and how to read them.
type dialect interface {
	snapshot(ctx context.Context, t *Tools) ([]entry, error)
	names(ctx context.Context, t *Tools) (map[proctree.PID]string, error)

	graceful(pid proctree.PID) *proctree.Command
	forced(pid proctree.PID) *proctree.Command
	running(ctx context.Context, t *Tools, pid proctree.PID) (bool, error)

	// exited reports a process that can no longer be signalled usefully. It
	// is false whenever that cannot be established.
	exited(ctx context.Context, t *Tools, pid proctree.PID) bool

	// notFound and denied match the diagnostic text of a failed kill.
	notFound(diag string) bool
	denied(diag string) bool

	processElevated(ctx context.Context, t *Tools, pid proctree.PID) bool
	currentElevated(ctx context.Context, t *Tools) bool
}

func dialectFor(target proctree.TargetOS) dialect {
	switch {
	case target == proctree.OSWindows:
		return windowsDialect{}
	case target.IsPOSIX():
		return posixDialect{procfs: target == proctree.OSLinux}
	default:
		return nil
	}
}

func containsAny(s string, needles ...string) bool {
	s = strings.ToLower(s)

	for _, n := range needles {
		if strings.Contains(s, strings.ToLower(n)) {
			return true
		}
	}

	return false
}
