package docker

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/docker/docker/client"
	"github.com/ruffel/proctree"
)

var _ proctree.Environment = (*Environment)(nil)

// Environment implements proctree.Environment with `docker exec` into one
// running container.
type Environment struct {
	config Config
	client *client.Client

	mu     sync.Mutex
	closed bool
}

// New creates a client for the configured daemon. The daemon is first
// contacted by the first command.
func New(opts ...Option) (*Environment, error) {
	var c Config

	for _, o := range opts {
		o(&c)
	}

	if err := c.validate(); err != nil {
		return nil, err
	}

	if c.OS == proctree.OSUnknown {
		c.OS = proctree.OSLinux
	}

	cli, err := client.NewClientWithOpts(c.clientOpts()...)
	if err != nil {
		return nil, &proctree.TransportError{Err: fmt.Errorf("create docker client: %w", err)}
	}

	return &Environment{config: c, client: cli}, nil
}

// Run executes a command in the container and waits for it.
func (e *Environment) Run(ctx context.Context, cmd *proctree.Command) (*proctree.Result, error) {
	proc, err := e.Start(ctx, cmd)
	if err != nil {
		return nil, err
	}

	defer func() { _ = proc.Close() }()

	err = proc.Wait()

	return proc.Result(), err
}

// Start creates and attaches an exec instance for cmd.
func (e *Environment) Start(ctx context.Context, cmd *proctree.Command) (proctree.Process, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	if e.isClosed() {
		return nil, fmt.Errorf("cannot start command %q: %w", cmd.String(), proctree.ErrEnvironmentClosed)
	}

	return start(ctx, e.client, e.config.ContainerID, cmd)
}

// TargetOS returns the operating system of the container.
func (e *Environment) TargetOS() proctree.TargetOS {
	return e.config.OS
}

// LookPath resolves file on the container's PATH.
func (e *Environment) LookPath(ctx context.Context, file string) (string, error) {
	if e.isClosed() {
		return "", fmt.Errorf("cannot look up path: %w", proctree.ErrEnvironmentClosed)
	}

	var out strings.Builder

	cmd := lookPathCommand(e.config.OS, file)
	cmd.Stdout = &out

	if _, err := e.Run(ctx, cmd); err != nil {
		return "", fmt.Errorf("%s not found in container: %w", file, err)
	}

	path := strings.TrimSpace(out.String())
	if path == "" {
		return "", fmt.Errorf("%s not found in container", file)
	}

	return path, nil
}

// Close shuts down the client connection.
func (e *Environment) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return nil
	}

	e.closed = true

	return e.client.Close()
}

func (e *Environment) isClosed() bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.closed
}

// lookPathCommand builds a PATH lookup that runs inside the container. The
// name is passed as a positional argument so it is never parsed as script.
func lookPathCommand(os proctree.TargetOS, file string) *proctree.Command {
	if os == proctree.OSWindows {
		return proctree.NewCommand("powershell", "-NoProfile", "-NonInteractive", "-Command",
			"(Get-Command -CommandType Application -ErrorAction Stop $args[0]).Source", file)
	}

	return proctree.NewCommand("sh", "-c", `command -v "$1"`, "sh", file)
}
