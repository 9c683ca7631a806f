package main

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/ruffel/proctree"
	"github.com/ruffel/proctree/native"
	"github.com/ruffel/proctree/procfs"
	"github.com/ruffel/proctree/providers/docker"
	"github.com/ruffel/proctree/providers/local"
	"github.com/ruffel/proctree/providers/ssh"
	"github.com/ruffel/proctree/systools"
	"github.com/sirupsen/logrus"
)

const sshDialTimeout = 10 * time.Second

// session is an open target: the environment commands run in and the
// killer that works on its process table.
type session struct {
	env     proctree.Environment
	killer  *proctree.Killer
	closers []io.Closer
}

func (s *session) Close() error {
	var errs []error

	for i := len(s.closers) - 1; i >= 0; i-- {
		errs = append(errs, s.closers[i].Close())
	}

	return errors.Join(errs...)
}

func openSession(cfg Config) (*session, error) {
	log := logrus.StandardLogger()

	env, err := openEnvironment(cfg.Target)
	if err != nil {
		return nil, err
	}

	s := &session{env: env, closers: []io.Closer{env}}

	platform, err := s.platform(cfg, log)
	if err != nil {
		_ = s.Close()

		return nil, err
	}

	s.killer = proctree.NewKiller(platform,
		proctree.WithLogger(log),
		proctree.WithParallelism(cfg.Kill.Parallelism),
	)

	return s, nil
}

func (s *session) platform(cfg Config, log logrus.FieldLogger) (proctree.Platform, error) {
	if cfg.Kill.Backend == backendNative {
		return native.New(
			native.WithGracePeriod(cfg.Kill.GracePeriod),
			native.WithLogger(log),
		), nil
	}

	opts := []systools.Option{
		systools.WithLogger(log),
		systools.WithCommandTimeout(cfg.Kill.CommandTimeout),
		systools.WithGracePeriod(cfg.Kill.GracePeriod),
		systools.WithExecOptions(cfg.Kill.execOptions()...),
	}

	tools := systools.New(s.env, opts...)
	if !tools.Supported() {
		log.WithField("target", s.env.TargetOS().String()).Warn("no process tools for this target, only the root pid can be addressed")
	}

	if cfg.Kill.Snapshot != snapshotProcfs {
		return tools, nil
	}

	snap, err := s.procfs()
	if err != nil {
		return nil, err
	}

	return proctree.Compose(snap, tools, tools), nil
}

// procfs opens a /proc reader on the target: the local filesystem, or SFTP
// for SSH targets.
func (s *session) procfs() (*procfs.Snapshotter, error) {
	remote, ok := s.env.(*ssh.Environment)
	if !ok {
		return procfs.Local(), nil
	}

	reader, err := remote.ProcReader()
	if err != nil {
		return nil, err
	}

	s.closers = append(s.closers, reader)

	return procfs.New(reader, procfs.DefaultRoot), nil
}

func openEnvironment(t TargetConfig) (proctree.Environment, error) {
	switch t.Kind {
	case targetLocal:
		return local.New()
	case targetSSH:
		return openSSH(t)
	case targetDocker:
		return docker.New(
			docker.WithContainerID(t.Docker.Container),
			docker.WithHost(t.Docker.Host),
			docker.WithOS(t.targetOS()),
		)
	default:
		return nil, fmt.Errorf("unknown target kind %q", t.Kind)
	}
}

func openSSH(t TargetConfig) (proctree.Environment, error) {
	c := t.SSH
	base := ssh.Config{Timeout: sshDialTimeout}

	if c.Alias != "" {
		resolved, err := ssh.FromSSHConfig(c.Alias, c.ConfigFile)
		if err != nil {
			return nil, err
		}

		base = resolved
	}

	opts := []ssh.Option{
		ssh.WithConfig(base),
		ssh.WithAgent(c.Agent),
		ssh.WithOS(t.targetOS()),
	}

	if c.Host != "" {
		opts = append(opts, ssh.WithHost(c.Host))
	}

	if c.Port != 0 {
		opts = append(opts, ssh.WithPort(c.Port))
	}

	if c.User != "" {
		opts = append(opts, ssh.WithUser(c.User))
	}

	if c.KeyPath != "" {
		opts = append(opts, ssh.WithKeyPath(c.KeyPath))
	}

	if c.Password != "" {
		opts = append(opts, ssh.WithPassword(c.Password))
	}

	if c.InsecureSkipVerify || base.Insecure {
		opts = append(opts, ssh.WithInsecureSkipVerify(true))
	} else {
		known, err := ssh.KnownHosts()
		if err != nil {
			return nil, fmt.Errorf("load known_hosts (or pass --insecure): %w", err)
		}

		opts = append(opts, ssh.WithHostKeyCallback(known))
	}

	return ssh.New(opts...)
}
