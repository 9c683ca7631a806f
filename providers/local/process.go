package local

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"time"

	"github.com/ruffel/proctree"
)

// Process implements proctree.Process for a command started on this machine.
type Process struct {
	ctx     context.Context
	cmd     *proctree.Command
	execCmd *exec.Cmd

	done   chan struct{}
	result proctree.Result
	err    error
}

func start(ctx context.Context, cmd *proctree.Command) (*Process, error) {
	p := &Process{
		ctx:     ctx,
		cmd:     cmd,
		execCmd: exec.CommandContext(ctx, cmd.Cmd, cmd.Args...),
		done:    make(chan struct{}),
	}

	if len(cmd.Env) > 0 {
		p.execCmd.Env = append(os.Environ(), cmd.Env...)
	}

	// Nil writers make os/exec connect the null device.
	p.execCmd.Stdout = cmd.Stdout
	p.execCmd.Stderr = cmd.Stderr

	setProcessGroup(p.execCmd)

	// A cancelled or timed-out command takes its children down with it.
	p.execCmd.Cancel = func() error {
		return killProcessGroup(p.execCmd.Process.Pid)
	}

	began := time.Now()

	if err := p.execCmd.Start(); err != nil {
		return nil, &proctree.TransportError{Command: cmd, Err: err}
	}

	go p.reap(began)

	return p, nil
}

func (p *Process) reap(began time.Time) {
	defer close(p.done)

	err := p.execCmd.Wait()

	p.result = proctree.Result{
		ExitCode: p.execCmd.ProcessState.ExitCode(),
		Duration: time.Since(began),
	}

	var exitErr *exec.ExitError

	switch {
	case err == nil:
	case p.ctx.Err() != nil:
		p.err = fmt.Errorf("command %q: %w", p.cmd.String(), p.ctx.Err())
	case errors.As(err, &exitErr):
		p.err = &proctree.ExitError{Command: p.cmd, ExitCode: p.result.ExitCode, Cause: err}
	default:
		p.err = &proctree.TransportError{Command: p.cmd, Err: err}
	}
}

// Wait blocks until the command exits.
func (p *Process) Wait() error {
	<-p.done

	return p.err
}

// Result returns the exit code and run time, or nil while the command runs.
func (p *Process) Result() *proctree.Result {
	select {
	case <-p.done:
		res := p.result

		return &res
	default:
		return nil
	}
}

// PID returns the operating-system pid.
func (p *Process) PID() proctree.PID {
	return proctree.PID(p.execCmd.Process.Pid)
}

// Close kills the process group if the command is still running, then waits
// for it to be reaped.
func (p *Process) Close() error {
	select {
	case <-p.done:
		return nil
	default:
	}

	if err := killProcessGroup(p.execCmd.Process.Pid); err != nil {
		return fmt.Errorf("kill process group %d: %w", p.execCmd.Process.Pid, err)
	}

	<-p.done

	return nil
}
