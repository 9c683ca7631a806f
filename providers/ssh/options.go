package ssh

import (
	"time"

	"github.com/ruffel/proctree"
	"golang.org/x/crypto/ssh"
)

// Option defines a functional option for the SSH provider.
type Option func(*Config)

// WithConfig replaces the whole configuration. Options after it refine c.
func WithConfig(c Config) Option {
	return func(cfg *Config) {
		*cfg = c
	}
}

// WithHost sets the target hostname.
func WithHost(host string) Option {
	return func(c *Config) {
		c.Host = host
	}
}

// WithUser sets the SSH user.
func WithUser(user string) Option {
	return func(c *Config) {
		c.User = user
	}
}

// WithPort sets the SSH port.
func WithPort(port int) Option {
	return func(c *Config) {
		c.Port = port
	}
}

// WithPassword enables password authentication.
func WithPassword(password string) Option {
	return func(c *Config) {
		c.Password = password
	}
}

// WithKeyPath sets the private key file. A leading ~/ is expanded.
func WithKeyPath(path string) Option {
	return func(c *Config) {
		c.KeyPath = path
	}
}

// WithAgent enables authentication through SSH_AUTH_SOCK.
func WithAgent(use bool) Option {
	return func(c *Config) {
		c.Agent = use
	}
}

// WithHostKeyCallback sets how the server's host key is verified.
func WithHostKeyCallback(cb ssh.HostKeyCallback) Option {
	return func(c *Config) {
		c.HostKeyCallback = cb
	}
}

// WithInsecureSkipVerify accepts any host key. Use only against test hosts.
func WithInsecureSkipVerify(skip bool) Option {
	return func(c *Config) {
		c.Insecure = skip
	}
}

// WithTimeout sets the connection timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Config) {
		c.Timeout = d
	}
}

// WithOS sets the operating system of the remote host.
func WithOS(os proctree.TargetOS) Option {
	return func(c *Config) {
		c.OS = os
	}
}
