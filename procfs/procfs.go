// Package procfs snapshots the process table by reading /proc/<pid>/stat.
//
// It works wherever a Linux /proc is reachable through a Reader: the local
// filesystem, or a remote host over SFTP (see ssh.Environment.ProcReader).
// It needs no helper binaries, which makes it the snapshot of choice for
// minimal containers without ps.
package procfs

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path"
	"strconv"
	"strings"

	"github.com/ruffel/proctree"
)

// DefaultRoot is where procfs is normally mounted.
const DefaultRoot = "/proc"

// CommLen is the longest comm value Linux keeps. Longer names are cut.
const CommLen = 15

// Stat is the subset of /proc/<pid>/stat the snapshot needs.
type Stat struct {
	PID  proctree.PID
	Comm string
	PPID proctree.PID
}

// ErrMalformed is returned by ParseStat for records it cannot interpret.
var ErrMalformed = errors.New("malformed stat record")

// ParseStat parses one /proc/<pid>/stat line.
//
// The comm field is enclosed in parentheses and may itself contain spaces and
// parentheses, so it extends to the last ')' on the line.
func ParseStat(line []byte) (Stat, error) {
	line = bytes.TrimSpace(line)

	open := bytes.IndexByte(line, '(')
	closing := bytes.LastIndexByte(line, ')')

	if open <= 0 || closing < open {
		return Stat{}, ErrMalformed
	}

	pid, err := proctree.ParsePID(string(line[:open]))
	if err != nil {
		return Stat{}, fmt.Errorf("%w: %w", ErrMalformed, err)
	}

	// After comm: state ppid ...
	rest := bytes.Fields(line[closing+1:])
	if len(rest) < 2 {
		return Stat{}, ErrMalformed
	}

	ppid, err := strconv.ParseUint(string(rest[1]), 10, 32)
	if err != nil {
		return Stat{}, fmt.Errorf("%w: ppid %q", ErrMalformed, rest[1])
	}

	return Stat{
		PID:  pid,
		Comm: string(line[open+1 : closing]),
		PPID: proctree.PID(ppid),
	}, nil
}

// ParseStats parses concatenated stat lines, skipping malformed ones.
func ParseStats(data []byte) []Stat {
	var stats []Stat

	for _, line := range bytes.Split(data, []byte{'\n'}) {
		if len(bytes.TrimSpace(line)) == 0 {
			continue
		}

		st, err := ParseStat(line)
		if err != nil {
			continue
		}

		stats = append(stats, st)
	}

	return stats
}

// Reader is the read-only filesystem view procfs needs.
type Reader interface {
	// ReadDir returns the entry names of the named directory.
	ReadDir(name string) ([]string, error)
	// ReadFile returns the content of the named file.
	ReadFile(name string) ([]byte, error)
}

// Snapshotter implements proctree.Snapshotter on top of a Reader.
type Snapshotter struct {
	r    Reader
	root string
}

var _ proctree.Snapshotter = (*Snapshotter)(nil)

// New returns a Snapshotter reading procfs mounted at root through r. An
// empty root means DefaultRoot.
func New(r Reader, root string) *Snapshotter {
	if root == "" {
		root = DefaultRoot
	}

	return &Snapshotter{r: r, root: root}
}

// Local returns a Snapshotter over the local /proc.
func Local() *Snapshotter {
	return New(OSReader{}, DefaultRoot)
}

// Stats reads every process stat record. Processes that exit between the
// directory listing and the read are skipped.
func (s *Snapshotter) Stats(ctx context.Context) ([]Stat, error) {
	entries, err := s.r.ReadDir(s.root)
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %w", proctree.ErrSnapshotUnavailable, s.root, err)
	}

	stats := make([]Stat, 0, len(entries))

	for _, name := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		if _, err := proctree.ParsePID(name); err != nil {
			continue
		}

		data, err := s.r.ReadFile(path.Join(s.root, name, "stat"))
		if err != nil {
			// Exited since the listing, or unreadable.
			continue
		}

		st, err := ParseStat(data)
		if err != nil {
			continue
		}

		stats = append(stats, st)
	}

	if len(stats) == 0 {
		return nil, fmt.Errorf("%w: no readable process under %s", proctree.ErrSnapshotUnavailable, s.root)
	}

	return stats, nil
}

// ParentLinks implements proctree.Snapshotter.
func (s *Snapshotter) ParentLinks(ctx context.Context) (proctree.ParentMap, error) {
	stats, err := s.Stats(ctx)
	if err != nil {
		return nil, err
	}

	return ParentMap(stats), nil
}

// ImageNames implements proctree.Snapshotter. Names are the kernel's comm
// value; comm values cut at CommLen are completed from argv[0].
func (s *Snapshotter) ImageNames(ctx context.Context) (map[proctree.PID]string, error) {
	stats, err := s.Stats(ctx)
	if err != nil {
		return nil, err
	}

	names := Names(stats)

	for _, st := range stats {
		if len(st.Comm) < CommLen {
			continue
		}

		cmdline, err := s.r.ReadFile(path.Join(s.root, st.PID.String(), "cmdline"))
		if err != nil {
			continue
		}

		names[st.PID] = ResolveName(st.Comm, Argv0(cmdline))
	}

	return names, nil
}

// Argv0 returns the first NUL-separated word of /proc/<pid>/cmdline.
func Argv0(cmdline []byte) string {
	first, _, _ := bytes.Cut(cmdline, []byte{0})

	return string(bytes.TrimSpace(first))
}

// ResolveName completes a comm value the kernel cut at CommLen, the same way
// gopsutil does: the base name of argv0 wins when comm is a prefix of it.
// Anything else keeps comm.
func ResolveName(comm, argv0 string) string {
	if len(comm) < CommLen || argv0 == "" {
		return comm
	}

	base := path.Base(argv0)
	if len(base) > len(comm) && strings.HasPrefix(base, comm) {
		return base
	}

	return comm
}

// ParentMap builds a parent map from stat records. Kernel roots (ppid 0) are
// listed with parent 0 and never match a real pid.
func ParentMap(stats []Stat) proctree.ParentMap {
	m := make(proctree.ParentMap, len(stats))
	for _, st := range stats {
		m[st.PID] = st.PPID
	}

	return m
}

// Names builds a pid -> name map from stat records.
func Names(stats []Stat) map[proctree.PID]string {
	m := make(map[proctree.PID]string, len(stats))
	for _, st := range stats {
		m[st.PID] = st.Comm
	}

	return m
}
