package main

import (
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// app carries the resolved configuration from the root command to its
// subcommands.
type app struct {
	configPath string
	cfg        Config
	flags      flagValues
}

// flagValues mirror Config fields that may be overridden on the command line.
type flagValues struct {
	logLevel       string
	target         string
	targetOS       string
	sshHost        string
	sshPort        int
	sshUser        string
	sshKey         string
	sshAlias       string
	insecure       bool
	container      string
	dockerHost     string
	backend        string
	snapshot       string
	parallelism    int
	commandTimeout time.Duration
	gracePeriod    time.Duration
	sudo           bool
	sudoUser       string
	sudoGroup      string
}

func defaultConfigPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "proctree.yaml"
	}

	return filepath.Join(dir, "proctree", "config.yaml")
}

func newRootCmd() *cobra.Command {
	return buildRootCmd(&app{})
}

func buildRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "proctree",
		Short: "Kill process trees locally, over SSH or inside containers",
		Long: `proctree terminates a process together with every process it spawned,
children before parents, using the target's own process tools.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd)
		},
	}

	f := root.PersistentFlags()
	f.StringVarP(&a.configPath, "config", "c", defaultConfigPath(), "Path to the YAML config file")
	f.StringVar(&a.flags.logLevel, "log-level", "", "Log level (debug, info, warn, error)")
	f.StringVarP(&a.flags.target, "target", "t", "", "Target kind: local, ssh or docker")
	f.StringVar(&a.flags.targetOS, "os", "", "Operating system of a remote target (linux, darwin, windows)")
	f.StringVar(&a.flags.sshHost, "ssh-host", "", "SSH hostname")
	f.IntVar(&a.flags.sshPort, "ssh-port", 0, "SSH port")
	f.StringVar(&a.flags.sshUser, "ssh-user", "", "SSH user")
	f.StringVar(&a.flags.sshKey, "ssh-key", "", "SSH private key path")
	f.StringVar(&a.flags.sshAlias, "ssh-alias", "", "Host alias from ~/.ssh/config")
	f.BoolVar(&a.flags.insecure, "insecure", false, "Skip SSH host key verification")
	f.StringVar(&a.flags.container, "container", "", "Docker container ID or name")
	f.StringVar(&a.flags.dockerHost, "docker-host", "", "Docker daemon host")
	f.StringVar(&a.flags.backend, "backend", "", "Kill backend: systools or native")
	f.StringVar(&a.flags.snapshot, "snapshot", "", "Snapshot source: tools or procfs")
	f.IntVarP(&a.flags.parallelism, "parallelism", "p", 0, "Concurrent descendant terminations")
	f.DurationVar(&a.flags.commandTimeout, "command-timeout", 0, "Timeout of each helper command")
	f.DurationVar(&a.flags.gracePeriod, "grace-period", 0, "Time allowed for a graceful exit before a forced kill")
	f.BoolVar(&a.flags.sudo, "sudo", false, "Run helper commands through sudo -n")
	f.StringVar(&a.flags.sudoUser, "sudo-user", "", "Run helper commands as this user (needs --sudo)")
	f.StringVar(&a.flags.sudoGroup, "sudo-group", "", "Run helper commands with this group (needs --sudo)")

	root.AddCommand(
		newKillCmd(a),
		newLsCmd(a),
		newInfoCmd(a),
		newElevatedCmd(a),
		newRunCmd(a),
	)

	return root
}

// setup loads the config file, applies flag overrides and configures the
// standard logger.
func (a *app) setup(cmd *cobra.Command) error {
	cfg, err := loadConfig(a.configPath, cmd.Flags().Changed("config"))
	if err != nil {
		return err
	}

	a.cfg = a.applyFlags(cmd, cfg)

	if err := a.cfg.Validate(); err != nil {
		return err
	}

	return configureLogging(a.cfg.Log.Level, cmd)
}

func (a *app) applyFlags(cmd *cobra.Command, cfg Config) Config {
	changed := cmd.Flags().Changed
	v := a.flags

	set := func(name string, apply func()) {
		if changed(name) {
			apply()
		}
	}

	set("log-level", func() { cfg.Log.Level = v.logLevel })
	set("target", func() { cfg.Target.Kind = v.target })
	set("os", func() { cfg.Target.OS = v.targetOS })
	set("ssh-host", func() { cfg.Target.SSH.Host = v.sshHost })
	set("ssh-port", func() { cfg.Target.SSH.Port = v.sshPort })
	set("ssh-user", func() { cfg.Target.SSH.User = v.sshUser })
	set("ssh-key", func() { cfg.Target.SSH.KeyPath = v.sshKey })
	set("ssh-alias", func() { cfg.Target.SSH.Alias = v.sshAlias })
	set("insecure", func() { cfg.Target.SSH.InsecureSkipVerify = v.insecure })
	set("container", func() { cfg.Target.Docker.Container = v.container })
	set("docker-host", func() { cfg.Target.Docker.Host = v.dockerHost })
	set("backend", func() { cfg.Kill.Backend = v.backend })
	set("snapshot", func() { cfg.Kill.Snapshot = v.snapshot })
	set("parallelism", func() { cfg.Kill.Parallelism = v.parallelism })
	set("command-timeout", func() { cfg.Kill.CommandTimeout = v.commandTimeout })
	set("grace-period", func() { cfg.Kill.GracePeriod = v.gracePeriod })
	set("sudo", func() { cfg.Kill.Sudo = v.sudo })
	set("sudo-user", func() { cfg.Kill.SudoUser = v.sudoUser })
	set("sudo-group", func() { cfg.Kill.SudoGroup = v.sudoGroup })

	return cfg
}

func configureLogging(level string, cmd *cobra.Command) error {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return err
	}

	logrus.SetOutput(cmd.ErrOrStderr())
	logrus.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})
	logrus.SetLevel(lvl)

	return nil
}
