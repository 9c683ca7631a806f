package mock

import (
	"context"
	"io"

	"github.com/ruffel/proctree"
	"github.com/stretchr/testify/mock"
)

// Environment implements a mock proctree.Environment using testify/mock.
type Environment struct {
	mock.Mock
}

var _ proctree.Environment = (*Environment)(nil)

// New creates a new mock environment.
func New() *Environment {
	return &Environment{}
}

// Run mocks running a command to completion.
func (m *Environment) Run(ctx context.Context, cmd *proctree.Command) (*proctree.Result, error) {
	args := m.Called(ctx, cmd)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*proctree.Result), args.Error(1)
}

// Start mocks starting a command asynchronously.
func (m *Environment) Start(ctx context.Context, cmd *proctree.Command) (proctree.Process, error) {
	args := m.Called(ctx, cmd)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(proctree.Process), args.Error(1)
}

// TargetOS mocks returning the target operating system.
func (m *Environment) TargetOS() proctree.TargetOS {
	args := m.Called()

	return args.Get(0).(proctree.TargetOS)
}

// LookPath mocks resolving an executable.
func (m *Environment) LookPath(ctx context.Context, file string) (string, error) {
	args := m.Called(ctx, file)

	return args.String(0), args.Error(1)
}

// Close mocks closing the environment.
func (m *Environment) Close() error {
	args := m.Called()

	return args.Error(0)
}

// ExpectRun registers a Run expectation for the command whose String() form
// equals cmdline. The command's Stdout and Stderr receive the given text and
// the call returns exitCode.
//
// Usage:
//
//	env.ExpectRun("kill -TERM 42", 1, "", "kill: (42) - No such process").Once()
func (m *Environment) ExpectRun(cmdline string, exitCode int, stdout, stderr string) *mock.Call {
	return m.On("Run", mock.Anything, MatchCommand(cmdline)).
		Run(func(args mock.Arguments) {
			cmd := args.Get(1).(*proctree.Command)
			WriteOutput(cmd.Stdout, stdout)(args)
			WriteOutput(cmd.Stderr, stderr)(args)
		}).
		Return(&proctree.Result{ExitCode: exitCode}, nil)
}

// ExpectRunError registers a Run expectation for cmdline that fails before the
// command produces an exit code, e.g. with a *proctree.TransportError.
func (m *Environment) ExpectRunError(cmdline string, err error) *mock.Call {
	return m.On("Run", mock.Anything, MatchCommand(cmdline)).Return(nil, err)
}

// MatchCommand matches a *proctree.Command by its String() form, ignoring
// the attached streams.
func MatchCommand(cmdline string) any {
	return mock.MatchedBy(func(c *proctree.Command) bool {
		return c != nil && c.String() == cmdline
	})
}

// Process implements a mock proctree.Process using testify/mock.
type Process struct {
	mock.Mock
}

var _ proctree.Process = (*Process)(nil)

// Wait mocks waiting for the process to complete.
func (m *Process) Wait() error {
	args := m.Called()

	return args.Error(0)
}

// Result mocks returning the process result.
func (m *Process) Result() *proctree.Result {
	args := m.Called()
	if args.Get(0) == nil {
		return nil
	}

	return args.Get(0).(*proctree.Result)
}

// PID mocks returning the process identifier.
func (m *Process) PID() proctree.PID {
	args := m.Called()

	return args.Get(0).(proctree.PID)
}

// Close mocks closing the process.
func (m *Process) Close() error {
	args := m.Called()

	return args.Error(0)
}

// WriteOutput is a helper to simulate output writing for mocked processes.
// Usage: mockProcess.On("Wait").Run(WriteOutput(cmd.Stdout, "output")).Return(nil).
func WriteOutput(w io.Writer, content string) func(mock.Arguments) {
	return func(_ mock.Arguments) {
		if w != nil && content != "" {
			_, _ = io.WriteString(w, content)
		}
	}
}
