package local

import "github.com/ruffel/proctree"

// Config holds configuration for the local environment.
type Config struct {
	targetOS proctree.TargetOS
}

// Option defines a functional option for the local provider.
type Option func(*Config)

// WithTargetOS overrides the detected operating system. It only changes which
// helper-tool dialect callers select; commands still run on this machine.
func WithTargetOS(os proctree.TargetOS) Option {
	return func(c *Config) {
		c.targetOS = os
	}
}

// API compatibility check.
var _ proctree.Environment = (*Environment)(nil)
