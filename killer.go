package proctree

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// Killer terminates process trees on a Platform.
//
// A Killer holds no per-call state and is safe for concurrent use. Calls on
// overlapping trees are not ordered against each other; callers that need
// ordering must serialize them.
type Killer struct {
	platform Platform
	log      logrus.FieldLogger
	parallel int
}

// NewKiller creates a Killer over p.
func NewKiller(p Platform, opts ...KillerOption) *Killer {
	cfg := KillerConfig{
		Logger:      logrus.StandardLogger(),
		Parallelism: DefaultParallelism,
	}

	for _, o := range opts {
		o(&cfg)
	}

	return &Killer{platform: p, log: cfg.Logger, parallel: cfg.Parallelism}
}

// Report is the aggregate result of one tree kill.
type Report struct {
	Root PID

	// Descendants holds one outcome per non-root member of the tree, in the
	// order the terminations completed.
	Descendants []Outcome

	RootOutcome Outcome

	// Degraded is set when the platform could not enumerate processes and
	// only the root was targeted.
	Degraded bool
}

// Failures returns the descendant outcomes that did not reach the goal state.
func (r *Report) Failures() []Outcome {
	var failed []Outcome

	for _, o := range r.Descendants {
		if !o.Succeeded() {
			failed = append(failed, o)
		}
	}

	return failed
}

// KillTree snapshots the process table once, expands root into its
// descendants and terminates every descendant before root.
//
// The returned error is non-nil only when the snapshot could not be taken or
// the context was already done. Per-pid failures, including the root's, are
// carried by the Report.
//
// Once the batch is issued it runs to completion: cancelling ctx afterwards
// does not abort it. Every helper command is still bounded by the platform's
// own per-command timeout.
func (k *Killer) KillTree(ctx context.Context, root PID) (*Report, error) {
	if root == 0 {
		return nil, ErrInvalidPID
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	log := k.log.WithField("root", root)
	report := &Report{Root: root}

	members := []PID{root}

	parents, err := k.platform.ParentLinks(ctx)

	switch {
	case errors.Is(err, ErrNotSupported):
		log.Info("process enumeration not supported, terminating root only")

		report.Degraded = true
	case err != nil:
		if errors.Is(err, ErrSnapshotUnavailable) {
			return nil, err
		}

		return nil, fmt.Errorf("%w: %w", ErrSnapshotUnavailable, err)
	default:
		members = ExpandDescendants(root, parents)
		log.WithField("members", len(members)).Debug("expanded process tree")
	}

	batch := context.WithoutCancel(ctx)

	report.Descendants = k.terminateAll(batch, log, bottomUp(members))
	report.RootOutcome = k.platform.Terminate(batch, root)

	k.logOutcome(log, report.RootOutcome, true)

	return report, nil
}

// KillProcessTree kills root and every process it spawned.
//
// It returns true when root was found and terminated, false when root was
// already gone (or the platform has no termination support). An error is
// returned only when the snapshot failed or root itself could not be
// terminated; descendant failures are logged and otherwise ignored.
func (k *Killer) KillProcessTree(ctx context.Context, root PID) (bool, error) {
	report, err := k.KillTree(ctx, root)
	if err != nil {
		return false, err
	}

	out := report.RootOutcome

	switch out.Kind {
	case OutcomeTerminated:
		return true, nil
	case OutcomeAlreadyGone:
		return false, nil
	default:
		if errors.Is(out.Err, ErrNotSupported) {
			return false, nil
		}

		return false, fmt.Errorf("terminate root %d: %w", root, out.Err)
	}
}

// ListProcessesByName returns the pids whose executable image name equals name,
// ignoring case. The extension is part of the name ("node.exe" on Windows).
func (k *Killer) ListProcessesByName(ctx context.Context, name string) ([]PID, error) {
	names, err := k.platform.ImageNames(ctx)
	if errors.Is(err, ErrNotSupported) {
		return []PID{}, nil
	}

	if err != nil {
		return nil, err
	}

	pids := []PID{}

	for pid, image := range names {
		if strings.EqualFold(image, name) {
			pids = append(pids, pid)
		}
	}

	slices.Sort(pids)

	return pids, nil
}

// ProcessInfo describes each of pids as seen in a fresh snapshot. Pids missing
// from the name listing are reported as "PID-<n>". Elevation that cannot be
// determined is reported as false.
func (k *Killer) ProcessInfo(ctx context.Context, pids []PID) ([]ProcessRecord, error) {
	if len(pids) == 0 {
		return []ProcessRecord{}, nil
	}

	names, err := k.platform.ImageNames(ctx)
	if errors.Is(err, ErrNotSupported) {
		return []ProcessRecord{}, nil
	}

	if err != nil {
		return nil, err
	}

	parents, err := k.platform.ParentLinks(ctx)
	if err != nil && !errors.Is(err, ErrNotSupported) {
		return nil, err
	}

	records := make([]ProcessRecord, 0, len(pids))

	for _, pid := range pids {
		rec := ProcessRecord{PID: pid, Name: names[pid]}
		if rec.Name == "" {
			rec.Name = "PID-" + pid.String()
		}

		if parent, ok := parents[pid]; ok {
			if _, alive := parents[parent]; alive && parent != pid {
				rec.ParentPID = parent
			}
		}

		rec.Elevated = k.platform.ProcessElevated(ctx, pid)
		records = append(records, rec)
	}

	return records, nil
}

// IsProcessElevated reports whether pid runs with administrator or root
// privilege. It returns an error only when ctx is already done.
func (k *Killer) IsProcessElevated(ctx context.Context, pid PID) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	return k.platform.ProcessElevated(ctx, pid), nil
}

// IsCurrentProcessElevated reports whether the calling process is elevated.
func (k *Killer) IsCurrentProcessElevated(ctx context.Context) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	return k.platform.CurrentElevated(ctx), nil
}

// terminateAll runs the terminations of pids with bounded parallelism and
// returns only after every one of them has returned.
func (k *Killer) terminateAll(ctx context.Context, log logrus.FieldLogger, pids []PID) []Outcome {
	if len(pids) == 0 {
		return nil
	}

	var (
		mu       sync.Mutex
		outcomes = make([]Outcome, 0, len(pids))
		g        errgroup.Group
	)

	g.SetLimit(k.parallel)

	for _, pid := range pids {
		g.Go(func() error {
			out := k.platform.Terminate(ctx, pid)
			k.logOutcome(log, out, false)

			mu.Lock()
			outcomes = append(outcomes, out)
			mu.Unlock()

			return nil
		})
	}

	_ = g.Wait()

	return outcomes
}

func (k *Killer) logOutcome(log logrus.FieldLogger, out Outcome, isRoot bool) {
	entry := log.WithFields(logrus.Fields{
		"pid":     out.PID,
		"outcome": out.Kind.String(),
		"forced":  out.Forced,
	})

	switch {
	case out.Succeeded():
		entry.Debug("process terminated")
	case isRoot:
		entry.WithError(out.Err).Error("failed to terminate root process")
	default:
		entry.WithError(out.Err).Warn("failed to terminate descendant")
	}
}
