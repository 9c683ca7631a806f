package systools

import (
	"time"

	"github.com/ruffel/proctree"
	"github.com/sirupsen/logrus"
)

// Default timings.
const (
	DefaultCommandTimeout = 30 * time.Second
	DefaultGracePeriod    = 3 * time.Second
	DefaultPollInterval   = 200 * time.Millisecond
)

// Config holds the settings of a Tools platform.
type Config struct {
	// CommandTimeout bounds every helper command. Zero disables the bound.
	CommandTimeout time.Duration

	// GracePeriod is how long a process may take to exit after a graceful
	// request before it is killed.
	GracePeriod time.Duration

	// PollInterval spaces liveness checks during the grace period.
	PollInterval time.Duration

	// ExecOptions are applied to every helper command, e.g. proctree.WithSudo().
	ExecOptions []proctree.ExecOption

	Logger logrus.FieldLogger
}

// Option configures a Tools platform.
type Option func(*Config)

func defaultConfig() Config {
	return Config{
		CommandTimeout: DefaultCommandTimeout,
		GracePeriod:    DefaultGracePeriod,
		PollInterval:   DefaultPollInterval,
		Logger:         logrus.StandardLogger(),
	}
}

// WithCommandTimeout bounds every helper command.
func WithCommandTimeout(d time.Duration) Option {
	return func(c *Config) {
		c.CommandTimeout = d
	}
}

// WithGracePeriod sets how long to wait for a graceful exit.
func WithGracePeriod(d time.Duration) Option {
	return func(c *Config) {
		if d < 0 {
			d = 0
		}

		c.GracePeriod = d
	}
}

// WithPollInterval sets the spacing of liveness checks.
func WithPollInterval(d time.Duration) Option {
	return func(c *Config) {
		if d <= 0 {
			d = DefaultPollInterval
		}

		c.PollInterval = d
	}
}

// WithExecOptions applies opts to every helper command.
func WithExecOptions(opts ...proctree.ExecOption) Option {
	return func(c *Config) {
		c.ExecOptions = append(c.ExecOptions, opts...)
	}
}

// WithLogger sets the logger.
func WithLogger(l logrus.FieldLogger) Option {
	return func(c *Config) {
		c.Logger = l
	}
}
