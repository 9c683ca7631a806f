package systools

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"

	"github.com/ruffel/proctree"
	"github.com/ruffel/proctree/procfs"
)

// procStatScript concatenates every stat record. cat exits non-zero when a
// process vanishes mid-read, so partial output is still used.
const procStatScript = "cat /proc/[0-9]*/stat 2>/dev/null"

// procArgv0Script prints "pid argv0" for each pid given as an argument.
const procArgv0Script = `for p in "$@"; do printf '%s %s\n' "$p" "$(tr '\000' '\n' < /proc/$p/cmdline 2>/dev/null | head -n 1)"; done`

// tool runs a POSIX utility in the C locale so its diagnostics can be
// matched.
func tool(name string, args ...string) *proctree.Command {
	return &proctree.Command{Cmd: name, Args: args, Env: []string{"LC_ALL=C"}}
}

type posixDialect struct {
	// procfs enables the /proc fallback when ps is unavailable.
	procfs bool
}

func (d posixDialect) snapshot(ctx context.Context, t *Tools) ([]entry, error) {
	res, err := t.run(ctx, tool("ps", "-A", "-o", "pid=", "-o", "ppid=", "-o", "comm="))
	if err == nil {
		return parsePS(string(res.Stdout)), nil
	}

	if !d.procfs || errors.Is(err, proctree.ErrTimedOut) {
		return nil, err
	}

	t.log.WithError(err).Warn("ps unavailable, reading /proc instead")

	script := proctree.OSLinux.ShellCommand(procStatScript)
	script.Env = []string{"LC_ALL=C"}

	res, ferr := t.run(ctx, script)
	if ferr != nil && (res == nil || len(res.Stdout) == 0) {
		return nil, fmt.Errorf("ps: %w; /proc: %w", err, ferr)
	}

	stats := procfs.ParseStats(res.Stdout)
	entries := make([]entry, 0, len(stats))

	for _, st := range stats {
		entries = append(entries, entry{pid: st.PID, ppid: st.PPID, name: st.Comm})
	}

	return entries, nil
}

func (d posixDialect) names(ctx context.Context, t *Tools) (map[proctree.PID]string, error) {
	entries, err := d.snapshot(ctx, t)
	if err != nil {
		return nil, err
	}

	if len(entries) == 0 {
		return nil, fmt.Errorf("%w: no process records parsed", proctree.ErrSnapshotUnavailable)
	}

	names := make(map[proctree.PID]string, len(entries))

	var cut []string

	for _, e := range entries {
		names[e.pid] = e.name

		if len(e.name) >= procfs.CommLen {
			cut = append(cut, e.pid.String())
		}
	}

	if len(cut) == 0 {
		return names, nil
	}

	for pid, argv0 := range d.argv0(ctx, t, cut) {
		if comm, ok := names[pid]; ok {
			names[pid] = procfs.ResolveName(comm, argv0)
		}
	}

	return names, nil
}

// argv0 reads the first argument of each pid, used to complete comm values
// the kernel cut short. Failures only leave the short names in place.
func (d posixDialect) argv0(ctx context.Context, t *Tools, pids []string) map[proctree.PID]string {
	res, err := t.run(ctx, tool("ps", "-o", "pid=", "-o", "args=", "-p", strings.Join(pids, ",")))
	if err != nil && d.procfs && !errors.Is(err, proctree.ErrTimedOut) {
		script := proctree.OSLinux.ShellCommand(procArgv0Script)
		script.Args = append(script.Args, append([]string{"sh"}, pids...)...)

		res, err = t.run(ctx, script)
	}

	if err != nil {
		// ps exits non-zero when one of the pids is gone; the rest is usable.
		var exitErr *proctree.ExitError
		if !errors.As(err, &exitErr) || res == nil {
			t.log.WithError(err).Debug("cannot read full process names")

			return nil
		}
	}

	out := map[proctree.PID]string{}

	for _, line := range strings.Split(string(res.Stdout), "\n") {
		fields := strings.Fields(line)
		if len(fields) < 2 {
			continue
		}

		pid, err := proctree.ParsePID(fields[0])
		if err != nil {
			continue
		}

		out[pid] = fields[1]
	}

	return out
}

func (posixDialect) graceful(pid proctree.PID) *proctree.Command {
	return tool("kill", "-TERM", pid.String())
}

func (posixDialect) forced(pid proctree.PID) *proctree.Command {
	return tool("kill", "-KILL", pid.String())
}

// running treats zombies as gone: they hold no resources and only wait for
// their parent to reap them.
func (posixDialect) running(ctx context.Context, t *Tools, pid proctree.PID) (bool, error) {
	res, err := t.run(ctx, tool("ps", "-o", "stat=", "-p", pid.String()))
	if err != nil {
		var exitErr *proctree.ExitError
		if errors.As(err, &exitErr) {
			return false, nil
		}

		return false, err
	}

	state := strings.TrimSpace(string(res.Stdout))

	return state != "" && !strings.HasPrefix(state, "Z"), nil
}

// exited catches processes kill would still succeed on: zombies, and pids
// that are already gone.
func (d posixDialect) exited(ctx context.Context, t *Tools, pid proctree.PID) bool {
	alive, err := d.running(ctx, t, pid)

	return err == nil && !alive
}

func (posixDialect) notFound(diag string) bool {
	return containsAny(diag, "No such process")
}

func (posixDialect) denied(diag string) bool {
	return containsAny(diag, "Operation not permitted", "Permission denied")
}

func (posixDialect) processElevated(ctx context.Context, t *Tools, pid proctree.PID) bool {
	res, err := t.run(ctx, tool("ps", "-o", "uid=", "-p", pid.String()))
	if err != nil {
		return false
	}

	return strings.TrimSpace(string(res.Stdout)) == "0"
}

func (posixDialect) currentElevated(ctx context.Context, t *Tools) bool {
	res, err := t.run(ctx, tool("id", "-u"))
	if err != nil {
		return false
	}

	return strings.TrimSpace(string(res.Stdout)) == "0"
}

// parsePS parses `ps -o pid= -o ppid= -o comm=` output. comm may be a path
// (macOS) and may contain spaces; its base name is used.
func parsePS(out string) []entry {
	var entries []entry

	for _, line := range strings.Split(out, "\n") {
		fields := strings.Fields(line)
		if len(fields) < 2 {
			continue
		}

		pid, err := proctree.ParsePID(fields[0])
		if err != nil {
			continue
		}

		ppid, err := proctree.ParsePID(fields[1])
		if err != nil {
			// Roots report parent 0.
			if strings.TrimSpace(fields[1]) != "0" {
				continue
			}

			ppid = 0
		}

		name := ""

		if len(fields) > 2 {
			rest := strings.TrimSpace(line)
			rest = strings.TrimSpace(rest[len(fields[0]):])
			rest = strings.TrimSpace(rest[len(fields[1]):])
			name = path.Base(rest)
		}

		entries = append(entries, entry{pid: pid, ppid: ppid, name: name})
	}

	return entries
}
