package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/ruffel/proctree"
	"github.com/ruffel/proctree/systools"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

const (
	targetLocal  = "local"
	targetSSH    = "ssh"
	targetDocker = "docker"

	backendSystools = "systools"
	backendNative   = "native"

	snapshotTools  = "tools"
	snapshotProcfs = "procfs"
)

// Config is the on-disk configuration. Command-line flags override it.
type Config struct {
	Target TargetConfig `yaml:"target"`
	Kill   KillConfig   `yaml:"kill"`
	Log    LogConfig    `yaml:"log"`
}

// TargetConfig selects where processes live.
type TargetConfig struct {
	Kind   string       `yaml:"kind"`
	OS     string       `yaml:"os"`
	SSH    SSHConfig    `yaml:"ssh"`
	Docker DockerConfig `yaml:"docker"`
}

// SSHConfig describes an SSH target. Alias is resolved through ConfigFile
// (default ~/.ssh/config) before the explicit fields are applied.
type SSHConfig struct {
	Alias              string `yaml:"alias"`
	ConfigFile         string `yaml:"config_file"`
	Host               string `yaml:"host"`
	Port               int    `yaml:"port"`
	User               string `yaml:"user"`
	KeyPath            string `yaml:"key_path"`
	Password           string `yaml:"password"`
	Agent              bool   `yaml:"agent"`
	InsecureSkipVerify bool   `yaml:"insecure_skip_verify"`
}

// DockerConfig describes a container target.
type DockerConfig struct {
	Container string `yaml:"container"`
	Host      string `yaml:"host"`
}

// KillConfig tunes enumeration and termination.
type KillConfig struct {
	Backend        string        `yaml:"backend"`
	Snapshot       string        `yaml:"snapshot"`
	Parallelism    int           `yaml:"parallelism"`
	CommandTimeout time.Duration `yaml:"command_timeout"`
	GracePeriod    time.Duration `yaml:"grace_period"`
	Sudo           bool          `yaml:"sudo"`
	SudoUser       string        `yaml:"sudo_user"`
	SudoGroup      string        `yaml:"sudo_group"`
	SudoFlags      []string      `yaml:"sudo_flags"`
}

// LogConfig sets the log level.
type LogConfig struct {
	Level string `yaml:"level"`
}

func defaultConfig() Config {
	return Config{
		Target: TargetConfig{Kind: targetLocal},
		Kill: KillConfig{
			Backend:        backendSystools,
			Snapshot:       snapshotTools,
			Parallelism:    proctree.DefaultParallelism,
			CommandTimeout: systools.DefaultCommandTimeout,
			GracePeriod:    systools.DefaultGracePeriod,
		},
		Log: LogConfig{Level: logrus.InfoLevel.String()},
	}
}

// loadConfig reads path over the defaults. A missing file is only an error
// when it was asked for explicitly.
func loadConfig(path string, explicit bool) (Config, error) {
	cfg := defaultConfig()

	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) && !explicit {
			return cfg, nil
		}

		return cfg, fmt.Errorf("open config: %w", err)
	}
	defer f.Close()

	decoder := yaml.NewDecoder(f)
	decoder.KnownFields(true)

	if err := decoder.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return cfg, fmt.Errorf("%s: decode: %w", path, err)
	}

	return cfg, nil
}

// Validate reports the first inconsistent setting.
func (c Config) Validate() error {
	switch c.Target.Kind {
	case targetLocal:
	case targetSSH:
		if c.Target.SSH.Host == "" && c.Target.SSH.Alias == "" {
			return errors.New("target ssh: host or alias is required")
		}
	case targetDocker:
		if c.Target.Docker.Container == "" {
			return errors.New("target docker: container is required")
		}
	default:
		return fmt.Errorf("unknown target kind %q", c.Target.Kind)
	}

	switch c.Kill.Backend {
	case backendSystools:
	case backendNative:
		if c.Target.Kind != targetLocal {
			return fmt.Errorf("backend native only works with the local target, not %s", c.Target.Kind)
		}
	default:
		return fmt.Errorf("unknown kill backend %q", c.Kill.Backend)
	}

	switch c.Kill.Snapshot {
	case snapshotTools:
	case snapshotProcfs:
		if c.Kill.Backend != backendSystools || c.Target.Kind == targetDocker {
			return errors.New("procfs snapshots need the systools backend on a local or ssh target")
		}
	default:
		return fmt.Errorf("unknown snapshot source %q", c.Kill.Snapshot)
	}

	if !c.Kill.Sudo && (c.Kill.SudoUser != "" || c.Kill.SudoGroup != "" || len(c.Kill.SudoFlags) > 0) {
		return errors.New("sudo_user, sudo_group and sudo_flags need sudo enabled")
	}

	if c.Kill.Parallelism < 1 {
		return fmt.Errorf("parallelism must be at least 1, got %d", c.Kill.Parallelism)
	}

	if _, err := logrus.ParseLevel(c.Log.Level); err != nil {
		return err
	}

	return nil
}

// execOptions wraps helper commands in sudo when it is enabled.
func (k KillConfig) execOptions() []proctree.ExecOption {
	if !k.Sudo {
		return nil
	}

	return []proctree.ExecOption{proctree.WithSudo(
		proctree.WithSudoUser(k.SudoUser),
		proctree.WithSudoGroup(k.SudoGroup),
		proctree.WithSudoFlags(k.SudoFlags...),
	)}
}

// targetOS is the configured OS of a remote target, or unknown to let the
// provider pick its default.
func (c TargetConfig) targetOS() proctree.TargetOS {
	return proctree.ParseTargetOS(c.OS)
}
