package ssh

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/ruffel/proctree"
	"golang.org/x/crypto/ssh"
)

var _ proctree.Environment = (*Environment)(nil)

// Environment implements proctree.Environment over one SSH connection. Each
// command gets its own session.
type Environment struct {
	config Config
	client *ssh.Client

	mu     sync.Mutex
	closed bool
}

// New dials the configured host.
func New(opts ...Option) (*Environment, error) {
	var c Config

	for _, o := range opts {
		o(&c)
	}

	c = c.withDefaults()
	if err := c.validate(); err != nil {
		return nil, err
	}

	clientConfig, err := c.clientConfig()
	if err != nil {
		return nil, err
	}

	client, err := ssh.Dial("tcp", c.addr(), clientConfig)
	if err != nil {
		return nil, &proctree.TransportError{Err: fmt.Errorf("dial ssh %s: %w", c.addr(), err)}
	}

	return NewFromClient(client, c), nil
}

// NewFromClient wraps an already connected client.
func NewFromClient(client *ssh.Client, config Config) *Environment {
	return &Environment{
		config: config.withDefaults(),
		client: client,
	}
}

// Run executes a command on the remote host and waits for it.
func (e *Environment) Run(ctx context.Context, cmd *proctree.Command) (*proctree.Result, error) {
	proc, err := e.Start(ctx, cmd)
	if err != nil {
		return nil, err
	}

	defer func() { _ = proc.Close() }()

	err = proc.Wait()

	return proc.Result(), err
}

// Start opens a session and starts cmd in it.
func (e *Environment) Start(ctx context.Context, cmd *proctree.Command) (proctree.Process, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	client, err := e.connection()
	if err != nil {
		return nil, fmt.Errorf("cannot start command %q: %w", cmd.String(), err)
	}

	session, err := client.NewSession()
	if err != nil {
		return nil, &proctree.TransportError{Command: cmd, Err: fmt.Errorf("open ssh session: %w", err)}
	}

	return start(ctx, session, cmd, e.config.OS == proctree.OSWindows)
}

// TargetOS returns the configured remote operating system.
func (e *Environment) TargetOS() proctree.TargetOS {
	return e.config.OS
}

// LookPath resolves file on the remote PATH with the target's shell.
func (e *Environment) LookPath(ctx context.Context, file string) (string, error) {
	if _, err := e.connection(); err != nil {
		return "", fmt.Errorf("cannot look up path: %w", err)
	}

	windows := e.config.OS == proctree.OSWindows

	script := "command -v " + quote(file, false)
	if windows {
		script = fmt.Sprintf("(Get-Command -CommandType Application -ErrorAction Stop %s).Source", quote(file, true))
	}

	var out strings.Builder

	cmd := e.config.OS.ShellCommand(script)
	cmd.Stdout = &out

	if _, err := e.Run(ctx, cmd); err != nil {
		return "", fmt.Errorf("%s not found on remote PATH: %w", file, err)
	}

	path := strings.TrimSpace(out.String())
	if path == "" {
		return "", fmt.Errorf("%s not found on remote PATH", file)
	}

	return path, nil
}

// Close closes the SSH connection. It is safe to call more than once.
func (e *Environment) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return nil
	}

	e.closed = true

	if e.client != nil {
		return e.client.Close()
	}

	return nil
}

func (e *Environment) connection() (*ssh.Client, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return nil, proctree.ErrEnvironmentClosed
	}

	return e.client, nil
}
