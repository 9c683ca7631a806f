package ssh

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/ruffel/proctree"
	"golang.org/x/crypto/ssh"
)

// Process implements proctree.Process for a command in an SSH session.
type Process struct {
	session *ssh.Session
	cmd     *proctree.Command
	ctx     context.Context

	done      chan struct{}
	closeOnce sync.Once
	result    proctree.Result
	err       error
}

func start(ctx context.Context, session *ssh.Session, cmd *proctree.Command, windows bool) (*Process, error) {
	session.Stdout = cmd.Stdout
	session.Stderr = cmd.Stderr

	p := &Process{
		session: session,
		cmd:     cmd,
		ctx:     ctx,
		done:    make(chan struct{}),
	}

	began := time.Now()

	if err := session.Start(commandLine(cmd, windows)); err != nil {
		_ = session.Close()

		return nil, &proctree.TransportError{Command: cmd, Err: err}
	}

	go p.wait(began)

	return p, nil
}

func (p *Process) wait(began time.Time) {
	defer close(p.done)

	finished := make(chan struct{})
	defer close(finished)

	go func() {
		select {
		case <-p.ctx.Done():
			// Not every server honours signals; closing the session ends
			// Wait either way.
			_ = p.session.Signal(ssh.SIGKILL)
			_ = p.Close()
		case <-finished:
		}
	}()

	err := p.session.Wait()

	p.result.Duration = time.Since(began)

	var exitErr *ssh.ExitError

	switch {
	case err == nil:
	case p.ctx.Err() != nil:
		p.result.ExitCode = -1
		p.err = fmt.Errorf("command %q: %w", p.cmd.String(), p.ctx.Err())
	case errors.As(err, &exitErr):
		p.result.ExitCode = exitErr.ExitStatus()
		p.err = &proctree.ExitError{Command: p.cmd, ExitCode: p.result.ExitCode, Cause: err}
	default:
		p.result.ExitCode = -1
		p.err = &proctree.TransportError{Command: p.cmd, Err: err}
	}
}

// Wait blocks until the remote command exits.
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

// PID is always 0: an SSH session does not expose the remote process id.
func (p *Process) PID() proctree.PID {
	return 0
}

// Close ends the session, which stops a command that is still running.
func (p *Process) Close() error {
	var err error

	p.closeOnce.Do(func() {
		err = p.session.Close()
	})

	return err
}

// commandLine renders cmd for the remote login shell, a POSIX sh or
// PowerShell on Windows. Every word is quoted. Env entries become exports
// since sshd rejects most Setenv requests.
func commandLine(cmd *proctree.Command, windows bool) string {
	var b strings.Builder

	for _, kv := range cmd.Env {
		k, v, ok := strings.Cut(kv, "=")
		if !ok {
			continue
		}

		if windows {
			fmt.Fprintf(&b, "$env:%s=%s; ", k, quote(v, true))
		} else {
			fmt.Fprintf(&b, "export %s=%s; ", k, quote(v, false))
		}
	}

	if windows {
		b.WriteString("& ")
	}

	b.WriteString(quote(cmd.Cmd, windows))

	for _, arg := range cmd.Args {
		b.WriteByte(' ')
		b.WriteString(quote(arg, windows))
	}

	return b.String()
}

// quote wraps s in single quotes for the target shell.
func quote(s string, windows bool) string {
	if windows {
		return "'" + strings.ReplaceAll(s, "'", "''") + "'"
	}

	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
