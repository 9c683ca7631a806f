// Package native implements proctree.Platform for the local machine with
// gopsutil, without spawning helper commands.
//
// Elevation is read from the process token on Windows and from the effective
// uid elsewhere.
package native

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ruffel/proctree"
	"github.com/shirou/gopsutil/v3/process"
	"github.com/sirupsen/logrus"
)

// Config holds the settings of a native platform.
type Config struct {
	GracePeriod  time.Duration
	PollInterval time.Duration
	Logger       logrus.FieldLogger
}

// Option configures a native platform.
type Option func(*Config)

// WithGracePeriod sets how long to wait for a graceful exit.
func WithGracePeriod(d time.Duration) Option {
	return func(c *Config) {
		if d < 0 {
			d = 0
		}

		c.GracePeriod = d
	}
}

// WithPollInterval sets the spacing of liveness checks.
func WithPollInterval(d time.Duration) Option {
	return func(c *Config) {
		if d > 0 {
			c.PollInterval = d
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l logrus.FieldLogger) Option {
	return func(c *Config) {
		c.Logger = l
	}
}

// Platform is the local proctree.Platform.
type Platform struct {
	cfg Config
	log logrus.FieldLogger
}

var _ proctree.Platform = (*Platform)(nil)

// New creates a native platform.
func New(opts ...Option) *Platform {
	cfg := Config{
		GracePeriod:  3 * time.Second,
		PollInterval: 100 * time.Millisecond,
		Logger:       logrus.StandardLogger(),
	}

	for _, o := range opts {
		o(&cfg)
	}

	return &Platform{cfg: cfg, log: cfg.Logger}
}

// NewKiller returns a proctree.Killer for the local machine.
func NewKiller(opts ...Option) *proctree.Killer {
	p := New(opts...)

	return proctree.NewKiller(p, proctree.WithLogger(p.log))
}

// ParentLinks implements proctree.Snapshotter.
func (p *Platform) ParentLinks(ctx context.Context) (proctree.ParentMap, error) {
	procs, err := p.processes(ctx)
	if err != nil {
		return nil, err
	}

	parents := make(proctree.ParentMap, len(procs))

	for _, proc := range procs {
		ppid, err := proc.PpidWithContext(ctx)
		if err != nil || ppid < 0 {
			// Exited since the listing.
			continue
		}

		parents[proctree.PID(proc.Pid)] = proctree.PID(ppid)
	}

	if len(parents) == 0 {
		return nil, fmt.Errorf("%w: no parent links readable", proctree.ErrSnapshotUnavailable)
	}

	return parents, nil
}

// ImageNames implements proctree.Snapshotter.
func (p *Platform) ImageNames(ctx context.Context) (map[proctree.PID]string, error) {
	procs, err := p.processes(ctx)
	if err != nil {
		return nil, err
	}

	names := make(map[proctree.PID]string, len(procs))

	for _, proc := range procs {
		name, err := proc.NameWithContext(ctx)
		if err != nil {
			continue
		}

		names[proctree.PID(proc.Pid)] = name
	}

	return names, nil
}

// Terminate implements proctree.Terminator.
func (p *Platform) Terminate(ctx context.Context, pid proctree.PID) proctree.Outcome {
	proc, err := process.NewProcessWithContext(ctx, int32(pid))
	if err != nil {
		if errors.Is(err, process.ErrorProcessNotRunning) {
			return proctree.AlreadyGone(pid)
		}

		return proctree.Failed(pid, classify(err))
	}

	// An unreaped child still answers signals; report it gone instead.
	if !running(ctx, proc) {
		return proctree.AlreadyGone(pid)
	}

	log := p.log.WithField("pid", pid)
	signalled := false

	if gracefulSupported {
		err := proc.TerminateWithContext(ctx)

		switch {
		case err == nil:
			if p.awaitExit(ctx, proc) {
				return proctree.Terminated(pid, false)
			}

			signalled = true

			log.Debug("grace period elapsed, forcing termination")
		case errors.Is(classify(err), proctree.ErrAlreadyGone):
			// Fall through: the forced attempt decides.
		default:
			log.WithError(err).Debug("graceful termination failed, forcing termination")
		}
	}

	if err := proc.KillWithContext(ctx); err != nil {
		err = classify(err)

		switch {
		case errors.Is(err, proctree.ErrAlreadyGone) && signalled:
			// It honoured the graceful request, just late.
			return proctree.Terminated(pid, false)
		case errors.Is(err, proctree.ErrAlreadyGone):
			return proctree.AlreadyGone(pid)
		}

		return proctree.Failed(pid, err)
	}

	return proctree.Terminated(pid, true)
}

// ProcessElevated implements proctree.ElevationOracle.
func (p *Platform) ProcessElevated(ctx context.Context, pid proctree.PID) bool {
	elevated, err := processElevated(ctx, pid)
	if err != nil {
		p.log.WithField("pid", pid).WithError(err).Debug("elevation query failed")

		return false
	}

	return elevated
}

// CurrentElevated implements proctree.ElevationOracle.
func (p *Platform) CurrentElevated(context.Context) bool {
	return currentElevated()
}

func (p *Platform) processes(ctx context.Context) ([]*process.Process, error) {
	procs, err := process.ProcessesWithContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", proctree.ErrSnapshotUnavailable, err)
	}

	if len(procs) == 0 {
		return nil, fmt.Errorf("%w: empty process list", proctree.ErrSnapshotUnavailable)
	}

	return procs, nil
}

func (p *Platform) awaitExit(ctx context.Context, proc *process.Process) bool {
	deadline := time.Now().Add(p.cfg.GracePeriod)

	for {
		if !running(ctx, proc) {
			return true
		}

		if !time.Now().Before(deadline) {
			return false
		}

		select {
		case <-ctx.Done():
			return false
		case <-time.After(p.cfg.PollInterval):
		}
	}
}
