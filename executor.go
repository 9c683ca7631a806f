package proctree

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"
)

// Executor runs helper commands on an Environment, adding sudo wrapping,
// retries and a per-attempt deadline on top of Environment.Run.
type Executor struct {
	env Environment
}

// NewExecutor creates an Executor for env.
func NewExecutor(env Environment) *Executor {
	return &Executor{env: env}
}

// Run runs cmd until it exits zero or the attempts are spent. A non-zero exit
// of the last attempt is reported as *ExitError alongside its Result.
func (e *Executor) Run(ctx context.Context, cmd *Command, opts ...ExecOption) (*Result, error) {
	cfg := newExecConfig(opts)

	if cfg.Sudo != nil {
		cmd = cfg.Sudo.wrap(cmd)
	}

	var (
		res *Result
		err error
	)

	for attempt := 1; ; attempt++ {
		res, err = e.attempt(ctx, cmd, cfg.Timeout)
		if err == nil && (res == nil || res.ExitCode == 0) {
			return res, nil
		}

		if attempt == cfg.Attempts || errors.Is(err, ErrEnvironmentClosed) {
			break
		}

		if serr := sleep(ctx, cfg.Delay); serr != nil {
			return res, serr
		}
	}

	if err == nil {
		err = &ExitError{Command: cmd, ExitCode: res.ExitCode}
	}

	if cfg.Attempts > 1 {
		err = fmt.Errorf("gave up after %d attempts: %w", cfg.Attempts, err)
	}

	return res, err
}

// RunBuffered is Run with stdout and stderr captured. The stderr of a failed
// command is also attached to the returned *ExitError.
func (e *Executor) RunBuffered(ctx context.Context, cmd *Command, opts ...ExecOption) (*BufferedResult, error) {
	var stdout, stderr bytes.Buffer

	captured := *cmd
	captured.Stdout = &stdout
	captured.Stderr = &stderr

	res, err := e.Run(ctx, &captured, opts...)

	out := &BufferedResult{Stdout: stdout.Bytes(), Stderr: stderr.Bytes()}
	if res != nil {
		out.Result = *res
	}

	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		exitErr.Stderr = out.Stderr
	}

	return out, err
}

func (e *Executor) attempt(ctx context.Context, cmd *Command, timeout time.Duration) (*Result, error) {
	if timeout <= 0 {
		return e.env.Run(ctx, cmd)
	}

	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	res, err := e.env.Run(runCtx, cmd)

	failed := err != nil || (res != nil && res.ExitCode != 0)
	if failed && expired(ctx, runCtx) {
		return res, timeoutError(cmd, runCtx.Err())
	}

	return res, err
}

// wrap prefixes cmd with `sudo -n [flags] --`.
func (s *SudoConfig) wrap(cmd *Command) *Command {
	args := []string{"-n"}

	if s.User != "" {
		args = append(args, "-u", s.User)
	}

	if s.Group != "" {
		args = append(args, "-g", s.Group)
	}

	if s.PreserveEnv {
		args = append(args, "-E")
	}

	args = append(args, s.Flags...)
	args = append(args, "--", cmd.Cmd)

	wrapped := *cmd
	wrapped.Cmd = "sudo"
	wrapped.Args = append(args, cmd.Args...)

	return &wrapped
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
