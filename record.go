package proctree

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
)

// PID identifies a process. It is unique only while the process is alive and
// may be recycled afterwards, so it must never outlive a single call.
type PID uint32

// ParsePID parses a decimal, strictly positive process identifier.
func ParsePID(s string) (PID, error) {
	n, err := strconv.ParseUint(strings.TrimSpace(s), 10, 32)
	if err != nil {
		return 0, fmt.Errorf("parse pid %q: %w", s, err)
	}

	if n == 0 {
		return 0, fmt.Errorf("parse pid %q: %w", s, ErrInvalidPID)
	}

	return PID(n), nil
}

func (p PID) String() string {
	return strconv.FormatUint(uint64(p), 10)
}

// ProcessRecord describes one process as seen in a single snapshot.
type ProcessRecord struct {
	PID  PID
	Name string

	// ParentPID is zero when the process is an orphan or its parent is not
	// present in the snapshot.
	ParentPID PID

	Elevated bool
}

// HasParent reports whether the record carries a live parent.
func (r ProcessRecord) HasParent() bool {
	return r.ParentPID != 0
}

// ParentMap maps each process to the parent it reported at snapshot time.
// It is built once per call and must not be mutated afterwards.
type ParentMap map[PID]PID

// Children inverts the map into a parent -> children adjacency list. Child
// lists are sorted so traversals over the same snapshot are deterministic.
func (m ParentMap) Children() map[PID][]PID {
	children := make(map[PID][]PID, len(m))

	for pid, parent := range m {
		children[parent] = append(children[parent], pid)
	}

	for _, list := range children {
		slices.Sort(list)
	}

	return children
}
