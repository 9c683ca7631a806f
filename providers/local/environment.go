package local

import (
	"context"
	"fmt"
	"os/exec"
	"sync"

	"github.com/ruffel/proctree"
)

var _ proctree.Environment = (*Environment)(nil)

// Environment implements proctree.Environment for the local operating system.
// It is safe for concurrent use.
type Environment struct {
	targetOS proctree.TargetOS

	mu     sync.RWMutex
	closed bool
}

// New creates a new local environment.
func New(opts ...Option) (*Environment, error) {
	cfg := Config{
		targetOS: proctree.DetectLocalOS(),
	}

	for _, opt := range opts {
		opt(&cfg)
	}

	return &Environment{targetOS: cfg.targetOS}, nil
}

// Run executes a command on the local machine and waits for it.
func (e *Environment) Run(ctx context.Context, cmd *proctree.Command) (*proctree.Result, error) {
	process, err := e.Start(ctx, cmd)
	if err != nil {
		return nil, err
	}

	defer func() { _ = process.Close() }()

	err = process.Wait()

	return process.Result(), err
}

// Start launches cmd in its own process group. Caller must Wait or Close the
// returned Process.
func (e *Environment) Start(ctx context.Context, cmd *proctree.Command) (proctree.Process, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	if e.isClosed() {
		return nil, fmt.Errorf("cannot start command %q: %w", cmd.String(), proctree.ErrEnvironmentClosed)
	}

	return start(ctx, cmd)
}

// TargetOS returns the operating system of the host machine.
func (e *Environment) TargetOS() proctree.TargetOS {
	return e.targetOS
}

// LookPath searches for an executable named file in the directories named by
// the PATH environment variable.
func (e *Environment) LookPath(_ context.Context, file string) (string, error) {
	if e.isClosed() {
		return "", fmt.Errorf("cannot look up path: %w", proctree.ErrEnvironmentClosed)
	}

	return exec.LookPath(file)
}

// Close shuts down the environment. Later Start calls fail; processes
// already started keep running until waited on or closed.
func (e *Environment) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.closed = true

	return nil
}

func (e *Environment) isClosed() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()

	return e.closed
}
