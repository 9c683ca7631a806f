package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ruffel/proctree"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var errNoPID = errors.New("target does not report process ids; run needs the local target")

func newRunCmd(a *app) *cobra.Command {
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   `run [--timeout D] -- COMMAND [ARG...] | run "COMMAND LINE"`,
		Short: "Run a command and kill its whole tree on timeout or interrupt",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			command, err := parseRunCommand(args)
			if err != nil {
				return err
			}

			command.Stdout = cmd.OutOrStdout()
			command.Stderr = cmd.ErrOrStderr()

			s, err := openSession(a.cfg)
			if err != nil {
				return err
			}
			defer s.Close()

			return supervise(cmd.Context(), s, command, timeout)
		},
	}

	cmd.Flags().DurationVar(&timeout, "timeout", 0, "Kill the tree after this long (0 waits forever)")

	return cmd
}

// parseRunCommand accepts either a single shell-like command line or an
// already split argument vector.
func parseRunCommand(args []string) (*proctree.Command, error) {
	if len(args) == 1 {
		return proctree.ParseCommand(args[0])
	}

	return proctree.NewCommand(args[0], args[1:]...), nil
}

// supervise starts command and waits for it. When ctx ends or timeout
// elapses first, the command's process tree is killed.
func supervise(ctx context.Context, s *session, command *proctree.Command, timeout time.Duration) error {
	// The tree is killed explicitly; the process must outlive ctx until then.
	proc, err := s.env.Start(context.WithoutCancel(ctx), command)
	if err != nil {
		return err
	}
	defer proc.Close()

	pid := proc.PID()
	if pid == 0 {
		return errNoPID
	}

	log := logrus.WithField("pid", pid)
	log.Debug("command started")

	done := make(chan error, 1)

	go func() { done <- proc.Wait() }()

	var expired <-chan time.Time

	if timeout > 0 {
		timer := time.NewTimer(timeout)
		defer timer.Stop()

		expired = timer.C
	}

	var reason error

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		reason = context.Cause(ctx)
	case <-expired:
		reason = fmt.Errorf("%w after %s", proctree.ErrTimedOut, timeout)
	}

	log.WithError(reason).Info("killing process tree")

	if _, err := s.killer.KillProcessTree(context.WithoutCancel(ctx), pid); err != nil {
		return errors.Join(reason, err)
	}

	<-done

	return reason
}
