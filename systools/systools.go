// Package systools implements proctree.Platform by running the target's own
// process utilities through a proctree.Environment.
//
// On POSIX targets it uses ps, kill and id (falling back to /proc when ps is
// missing). On Windows it uses wmic (or PowerShell CIM when wmic is absent),
// tasklist and taskkill. Because every query is an ordinary command, the same
// platform works locally, over SSH and inside Docker containers.
//
// Targets whose OS is unknown get a degraded platform: enumeration reports
// proctree.ErrNotSupported, termination fails with it, and elevation queries
// report false.
package systools

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ruffel/proctree"
	"github.com/sirupsen/logrus"
)

// Tools is a proctree.Platform backed by system utilities.
type Tools struct {
	env  proctree.Environment
	exec *proctree.Executor
	d    dialect
	cfg  Config
	log  logrus.FieldLogger
}

var _ proctree.Platform = (*Tools)(nil)

// New creates a Tools platform for env. The dialect is chosen from
// env.TargetOS().
func New(env proctree.Environment, opts ...Option) *Tools {
	cfg := defaultConfig()

	for _, o := range opts {
		o(&cfg)
	}

	target := env.TargetOS()

	return &Tools{
		env:  env,
		exec: proctree.NewExecutor(env),
		d:    dialectFor(target),
		cfg:  cfg,
		log:  cfg.Logger.WithField("target", target.String()),
	}
}

// NewKiller returns a proctree.Killer that terminates process trees in env.
func NewKiller(env proctree.Environment, opts ...Option) *proctree.Killer {
	t := New(env, opts...)

	return proctree.NewKiller(t, proctree.WithLogger(t.cfg.Logger))
}

// Supported reports whether the target has a known process-tool dialect.
func (t *Tools) Supported() bool {
	return t.d != nil
}

// ParentLinks implements proctree.Snapshotter.
func (t *Tools) ParentLinks(ctx context.Context) (proctree.ParentMap, error) {
	entries, err := t.snapshot(ctx)
	if err != nil {
		return nil, err
	}

	parents := make(proctree.ParentMap, len(entries))
	for _, e := range entries {
		parents[e.pid] = e.ppid
	}

	return parents, nil
}

// ImageNames implements proctree.Snapshotter.
func (t *Tools) ImageNames(ctx context.Context) (map[proctree.PID]string, error) {
	if t.d == nil {
		return nil, proctree.ErrNotSupported
	}

	names, err := t.d.names(ctx, t)
	if err != nil {
		return nil, snapshotError(err)
	}

	return names, nil
}

// Terminate implements proctree.Terminator: a graceful request first, then,
// unless the process exits within the grace period, a forced kill. A process
// that has already exited, zombies included, is reported as already gone
// without being signalled.
func (t *Tools) Terminate(ctx context.Context, pid proctree.PID) proctree.Outcome {
	if t.d == nil {
		return proctree.Failed(pid, proctree.ErrNotSupported)
	}

	if t.d.exited(ctx, t, pid) {
		return proctree.AlreadyGone(pid)
	}

	log := t.log.WithField("pid", pid)

	signalled := false

	if _, err := t.run(ctx, t.d.graceful(pid)); err == nil {
		if t.awaitExit(ctx, pid) {
			return proctree.Terminated(pid, false)
		}

		signalled = true

		log.Debug("grace period elapsed, forcing termination")
	} else {
		log.WithError(err).Debug("graceful termination failed, forcing termination")
	}

	res, err := t.run(ctx, t.d.forced(pid))
	if err == nil {
		return proctree.Terminated(pid, true)
	}

	return t.classify(pid, signalled, res, err)
}

// ProcessElevated implements proctree.ElevationOracle.
func (t *Tools) ProcessElevated(ctx context.Context, pid proctree.PID) bool {
	if t.d == nil {
		return false
	}

	return t.d.processElevated(ctx, t, pid)
}

// CurrentElevated implements proctree.ElevationOracle. For remote
// environments it describes the session the helper commands run in.
func (t *Tools) CurrentElevated(ctx context.Context) bool {
	if t.d == nil {
		return false
	}

	return t.d.currentElevated(ctx, t)
}

func (t *Tools) snapshot(ctx context.Context) ([]entry, error) {
	if t.d == nil {
		return nil, proctree.ErrNotSupported
	}

	entries, err := t.d.snapshot(ctx, t)
	if err != nil {
		return nil, snapshotError(err)
	}

	if len(entries) == 0 {
		return nil, fmt.Errorf("%w: no process records parsed", proctree.ErrSnapshotUnavailable)
	}

	t.log.WithField("processes", len(entries)).Debug("process snapshot taken")

	return entries, nil
}

// run executes one helper command with the configured timeout and options.
func (t *Tools) run(ctx context.Context, cmd *proctree.Command) (*proctree.BufferedResult, error) {
	opts := make([]proctree.ExecOption, 0, len(t.cfg.ExecOptions)+1)
	opts = append(opts, proctree.WithTimeout(t.cfg.CommandTimeout))
	opts = append(opts, t.cfg.ExecOptions...)

	res, err := t.exec.RunBuffered(ctx, cmd, opts...)

	entry := t.log.WithField("tool", cmd.Cmd)
	if err != nil {
		entry.WithError(err).Debug("helper command failed")
	} else {
		entry.Debug("helper command succeeded")
	}

	return res, err
}

// awaitExit polls until pid is gone or the grace period has elapsed.
func (t *Tools) awaitExit(ctx context.Context, pid proctree.PID) bool {
	deadline := time.Now().Add(t.cfg.GracePeriod)

	for {
		alive, err := t.d.running(ctx, t, pid)
		if err == nil && !alive {
			return true
		}

		if !time.Now().Before(deadline) {
			return false
		}

		select {
		case <-ctx.Done():
			return false
		case <-time.After(t.cfg.PollInterval):
		}
	}
}

// classify turns a failed forced termination into an Outcome. A process
// that took the graceful request and was gone by the forced kill exited on
// its own.
func (t *Tools) classify(pid proctree.PID, signalled bool, res *proctree.BufferedResult, err error) proctree.Outcome {
	diag := res.Diagnostic()

	switch {
	case errors.Is(err, proctree.ErrTimedOut):
		return proctree.Failed(pid, err)
	case proctree.IsTransport(err):
		return proctree.Failed(pid, fmt.Errorf("%w: %w", proctree.ErrToolInvocationFailed, err))
	case t.d.notFound(diag) && signalled:
		return proctree.Terminated(pid, false)
	case t.d.notFound(diag):
		return proctree.AlreadyGone(pid)
	case t.d.denied(diag):
		return proctree.Failed(pid, fmt.Errorf("%w: %s", proctree.ErrAccessDenied, diag))
	case diag != "":
		return proctree.Failed(pid, fmt.Errorf("%w: %s", err, diag))
	default:
		return proctree.Failed(pid, err)
	}
}

// snapshotError classifies a failed enumeration.
func snapshotError(err error) error {
	if errors.Is(err, proctree.ErrSnapshotUnavailable) || errors.Is(err, proctree.ErrNotSupported) {
		return err
	}

	if proctree.IsTransport(err) {
		return fmt.Errorf("%w: %w: %w", proctree.ErrSnapshotUnavailable, proctree.ErrToolInvocationFailed, err)
	}

	return fmt.Errorf("%w: %w", proctree.ErrSnapshotUnavailable, err)
}
