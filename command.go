package proctree

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/google/shlex"
)

var (
	errNilCommand  = errors.New("nil command")
	errEmptyBinary = errors.New("command has no binary")
)

// Command is a single helper invocation.
//
// Env entries ("KEY=VALUE") are added to whatever environment the target
// gives the command. Output written to a nil Stdout or Stderr is discarded.
type Command struct {
	Cmd  string
	Args []string
	Env  []string

	Stdout io.Writer
	Stderr io.Writer
}

// NewCommand returns a command running binary with args.
func NewCommand(binary string, args ...string) *Command {
	return &Command{Cmd: binary, Args: args}
}

// ParseCommand splits a shell-like command line into a Command. Quoting
// groups words; nothing is expanded.
func ParseCommand(line string) (*Command, error) {
	words, err := shlex.Split(line)
	if err != nil {
		return nil, fmt.Errorf("parse command %q: %w", line, err)
	}

	if len(words) == 0 {
		return nil, fmt.Errorf("parse command %q: %w", line, errEmptyBinary)
	}

	return NewCommand(words[0], words[1:]...), nil
}

// Validate rejects nil commands and blank binaries.
func (c *Command) Validate() error {
	switch {
	case c == nil:
		return errNilCommand
	case strings.TrimSpace(c.Cmd) == "":
		return errEmptyBinary
	default:
		return nil
	}
}

// String renders the command line for logs and errors. Arguments holding
// whitespace are quoted.
func (c *Command) String() string {
	if c == nil {
		return "<nil>"
	}

	words := make([]string, 0, len(c.Args)+1)
	words = append(words, c.Cmd)

	for _, arg := range c.Args {
		if strings.ContainsAny(arg, " \t\n") {
			arg = strconv.Quote(arg)
		}

		words = append(words, arg)
	}

	return strings.Join(words, " ")
}

// Result describes a finished helper command.
type Result struct {
	ExitCode int
	Duration time.Duration
}

// BufferedResult is a Result with the captured output, as returned by
// Executor.RunBuffered.
type BufferedResult struct {
	Result

	Stdout []byte
	Stderr []byte
}

// Diagnostic joins the trimmed stderr and stdout text. System tools report
// failures on either stream.
func (r *BufferedResult) Diagnostic() string {
	if r == nil {
		return ""
	}

	var parts []string

	for _, b := range [][]byte{r.Stderr, r.Stdout} {
		if s := strings.TrimSpace(string(b)); s != "" {
			parts = append(parts, s)
		}
	}

	return strings.Join(parts, "\n")
}
