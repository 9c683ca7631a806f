package docker

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/docker/docker/api/types"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/client"
	"github.com/docker/docker/pkg/stdcopy"
	"github.com/ruffel/proctree"
)

const (
	exitPollInterval = 100 * time.Millisecond
	exitPollTimeout  = 30 * time.Second
)

// Process implements proctree.Process for one exec instance.
type Process struct {
	client *client.Client
	cmd    *proctree.Command
	execID string
	stream types.HijackedResponse

	ctx    context.Context
	cancel context.CancelFunc

	done   chan struct{}
	result proctree.Result
	err    error
}

func start(parent context.Context, cli *client.Client, containerID string, cmd *proctree.Command) (*Process, error) {
	created, err := cli.ContainerExecCreate(parent, containerID, execOptions(cmd))
	if err != nil {
		return nil, &proctree.TransportError{Command: cmd, Err: fmt.Errorf("create exec: %w", err)}
	}

	stream, err := cli.ContainerExecAttach(parent, created.ID, container.ExecStartOptions{})
	if err != nil {
		return nil, &proctree.TransportError{Command: cmd, Err: fmt.Errorf("attach exec: %w", err)}
	}

	ctx, cancel := context.WithCancel(parent)

	p := &Process{
		client: cli,
		cmd:    cmd,
		execID: created.ID,
		stream: stream,
		ctx:    ctx,
		cancel: cancel,
		done:   make(chan struct{}),
	}

	go p.wait(time.Now())

	return p, nil
}

func execOptions(cmd *proctree.Command) container.ExecOptions {
	return container.ExecOptions{
		Cmd:          append([]string{cmd.Cmd}, cmd.Args...),
		Env:          cmd.Env,
		AttachStdout: true,
		AttachStderr: true,
	}
}

func (p *Process) wait(began time.Time) {
	defer close(p.done)
	defer p.cancel()

	copied := make(chan struct{})

	go func() {
		defer close(copied)

		_, _ = stdcopy.StdCopy(orDiscard(p.cmd.Stdout), orDiscard(p.cmd.Stderr), p.stream.Reader)
	}()

	// The Engine API cannot signal an exec; closing the stream is all a
	// cancelled caller can do.
	select {
	case <-copied:
	case <-p.ctx.Done():
		p.stream.Close()
		<-copied
	}

	p.stream.Close()

	if err := p.ctx.Err(); err != nil {
		p.result = proctree.Result{ExitCode: -1, Duration: time.Since(began)}
		p.err = fmt.Errorf("command %q: %w", p.cmd.String(), err)

		return
	}

	code, err := p.exitCode()
	p.result = proctree.Result{ExitCode: code, Duration: time.Since(began)}

	switch {
	case err != nil:
		p.err = &proctree.TransportError{Command: p.cmd, Err: err}
	case code != 0:
		p.err = &proctree.ExitError{Command: p.cmd, ExitCode: code}
	}
}

// exitCode polls the daemon until the exec is no longer running. The stream
// can close slightly before the daemon records the exit.
func (p *Process) exitCode() (int, error) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(p.ctx), exitPollTimeout)
	defer cancel()

	ticker := time.NewTicker(exitPollInterval)
	defer ticker.Stop()

	for {
		inspect, err := p.client.ContainerExecInspect(ctx, p.execID)
		if err != nil {
			return -1, fmt.Errorf("inspect exec: %w", err)
		}

		if !inspect.Running {
			return inspect.ExitCode, nil
		}

		select {
		case <-ctx.Done():
			return -1, fmt.Errorf("exec %s still running: %w", p.execID, ctx.Err())
		case <-ticker.C:
		}
	}
}

// Wait blocks until the exec finishes.
func (p *Process) Wait() error {
	<-p.done

	return p.err
}

// Result returns the exit code and run time, or nil while the exec runs.
func (p *Process) Result() *proctree.Result {
	select {
	case <-p.done:
		res := p.result

		return &res
	default:
		return nil
	}
}

// PID is always 0. The daemon only reports the exec's pid in the host
// namespace, which does not name a process inside the container.
func (p *Process) PID() proctree.PID {
	return 0
}

// Close detaches from a running exec and waits for the bookkeeping to end.
// The exec itself keeps running in the container.
func (p *Process) Close() error {
	p.cancel()
	<-p.done

	return nil
}

func orDiscard(w io.Writer) io.Writer {
	if w == nil {
		return io.Discard
	}

	return w
}
