package proctree

import (
	"errors"
	"fmt"
)

// OutcomeKind is the terminal state of one termination attempt.
type OutcomeKind int

const (
	// OutcomeTerminated means the process was found and stopped.
	OutcomeTerminated OutcomeKind = iota
	// OutcomeAlreadyGone means the process no longer existed. The goal state holds.
	OutcomeAlreadyGone
	// OutcomeFailed means the process could not be stopped.
	OutcomeFailed
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeTerminated:
		return "terminated"
	case OutcomeAlreadyGone:
		return "already-gone"
	case OutcomeFailed:
		return "failed"
	default:
		return fmt.Sprintf("outcome(%d)", int(k))
	}
}

// Outcome records how the termination of a single pid ended.
type Outcome struct {
	PID  PID
	Kind OutcomeKind

	// Forced is set when the process only went away after an unconditional
	// kill.
	Forced bool

	// Err carries the classified failure and the tool's raw diagnostic text.
	// It is nil unless Kind is OutcomeFailed.
	Err error
}

// Terminated builds a successful outcome.
func Terminated(pid PID, forced bool) Outcome {
	return Outcome{PID: pid, Kind: OutcomeTerminated, Forced: forced}
}

// AlreadyGone builds an outcome for a pid that had exited before it could be
// signalled.
func AlreadyGone(pid PID) Outcome {
	return Outcome{PID: pid, Kind: OutcomeAlreadyGone}
}

// Failed builds a failed outcome.
func Failed(pid PID, err error) Outcome {
	if err == nil {
		err = errors.New("termination failed")
	}

	return Outcome{PID: pid, Kind: OutcomeFailed, Forced: true, Err: err}
}

// Succeeded reports whether the goal state (process not running) holds.
func (o Outcome) Succeeded() bool {
	return o.Kind != OutcomeFailed
}

func (o Outcome) String() string {
	if o.Err != nil {
		return fmt.Sprintf("pid %d: %s: %v", o.PID, o.Kind, o.Err)
	}

	return fmt.Sprintf("pid %d: %s", o.PID, o.Kind)
}
