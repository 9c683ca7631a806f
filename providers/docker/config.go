package docker

import (
	"errors"

	"github.com/docker/docker/client"
	"github.com/ruffel/proctree"
)

// Config selects the container commands run in.
type Config struct {
	// ContainerID is the container name or ID.
	ContainerID string

	// Host is the daemon address, e.g. "unix:///var/run/docker.sock". Empty
	// means DOCKER_HOST or the platform default.
	Host string

	// OS is the container's operating system. Defaults to OSLinux.
	OS proctree.TargetOS
}

func (c Config) validate() error {
	if c.ContainerID == "" {
		return errors.New("docker config: container id is required")
	}

	return nil
}

func (c Config) clientOpts() []client.Opt {
	opts := []client.Opt{
		client.FromEnv,
		client.WithAPIVersionNegotiation(),
	}

	if c.Host != "" {
		opts = append(opts, client.WithHost(c.Host))
	}

	return opts
}
