package docker

import "github.com/ruffel/proctree"

// Option defines a functional option for the Docker provider.
type Option func(*Config)

// WithContainerID sets the target container ID.
func WithContainerID(id string) Option {
	return func(c *Config) {
		c.ContainerID = id
	}
}

// WithHost sets the Docker daemon host.
func WithHost(host string) Option {
	return func(c *Config) {
		c.Host = host
	}
}

// WithOS sets the operating system of the container image.
func WithOS(os proctree.TargetOS) Option {
	return func(c *Config) {
		c.OS = os
	}
}
