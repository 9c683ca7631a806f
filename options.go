package proctree

import (
	"time"

	"github.com/sirupsen/logrus"
)

// ExecConfig is the result of applying ExecOptions.
type ExecConfig struct {
	Sudo *SudoConfig

	// Attempts is the total number of tries, at least one.
	Attempts int
	Delay    time.Duration

	// Timeout bounds each attempt. Zero means no bound.
	Timeout time.Duration
}

func newExecConfig(opts []ExecOption) ExecConfig {
	cfg := ExecConfig{Attempts: 1}

	for _, o := range opts {
		o(&cfg)
	}

	return cfg
}

// SudoConfig describes how a helper command is wrapped in `sudo -n`.
type SudoConfig struct {
	User        string
	Group       string
	PreserveEnv bool
	Flags       []string
}

// ExecOption configures one Executor call.
type ExecOption func(*ExecConfig)

// SudoOption configures the sudo wrapper.
type SudoOption func(*SudoConfig)

// WithSudo runs the command through non-interactive sudo. sudo fails instead
// of prompting when a password would be needed.
func WithSudo(opts ...SudoOption) ExecOption {
	return func(c *ExecConfig) {
		if c.Sudo == nil {
			c.Sudo = &SudoConfig{}
		}

		for _, o := range opts {
			o(c.Sudo)
		}
	}
}

// WithSudoUser runs the command as user (-u).
func WithSudoUser(user string) SudoOption {
	return func(s *SudoConfig) { s.User = user }
}

// WithSudoGroup runs the command with group as its primary group (-g).
func WithSudoGroup(group string) SudoOption {
	return func(s *SudoConfig) { s.Group = group }
}

// WithSudoPreserveEnv keeps the caller's environment (-E).
func WithSudoPreserveEnv() SudoOption {
	return func(s *SudoConfig) { s.PreserveEnv = true }
}

// WithSudoFlags passes extra flags to sudo, before the "--" separator.
func WithSudoFlags(flags ...string) SudoOption {
	return func(s *SudoConfig) { s.Flags = append(s.Flags, flags...) }
}

// WithRetry tries the command up to attempts times, waiting delay between
// tries. Values below one mean a single try.
func WithRetry(attempts int, delay time.Duration) ExecOption {
	return func(c *ExecConfig) {
		c.Attempts = max(attempts, 1)
		c.Delay = delay
	}
}

// WithTimeout bounds every attempt of the command. An attempt that outlives
// the bound is abandoned and reported as ErrTimedOut.
func WithTimeout(d time.Duration) ExecOption {
	return func(c *ExecConfig) {
		c.Timeout = d
	}
}

// KillerConfig holds orchestrator settings.
type KillerConfig struct {
	Logger      logrus.FieldLogger
	Parallelism int
}

// DefaultParallelism bounds concurrent descendant terminations.
const DefaultParallelism = 4

// KillerOption defines a functional option for the Killer.
type KillerOption func(*KillerConfig)

// WithLogger routes per-pid diagnostics to l.
func WithLogger(l logrus.FieldLogger) KillerOption {
	return func(c *KillerConfig) {
		c.Logger = l
	}
}

// WithParallelism sets how many descendants may be terminated concurrently.
// Values below one mean sequential.
func WithParallelism(n int) KillerOption {
	return func(c *KillerConfig) {
		c.Parallelism = max(n, 1)
	}
}
