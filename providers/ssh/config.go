package ssh

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"os/user"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/kevinburke/ssh_config"
	"github.com/ruffel/proctree"
	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/agent"
	"golang.org/x/crypto/ssh/knownhosts"
)

const (
	defaultPort    = 22
	defaultTimeout = 10 * time.Second
)

// Config describes one SSH target. Authentication methods are offered in the
// order password, key file, agent.
type Config struct {
	Host string
	Port int
	User string

	KeyPath  string
	Password string
	Agent    bool

	// HostKeyCallback verifies the server. Insecure replaces a nil callback
	// with one that accepts any key.
	HostKeyCallback ssh.HostKeyCallback
	Insecure        bool

	Timeout time.Duration

	// OS selects the remote shell and process tools. Defaults to OSLinux.
	OS proctree.TargetOS
}

func (c Config) withDefaults() Config {
	if c.Port == 0 {
		c.Port = defaultPort
	}

	if c.Timeout == 0 {
		c.Timeout = defaultTimeout
	}

	if c.Insecure && c.HostKeyCallback == nil {
		c.HostKeyCallback = ssh.InsecureIgnoreHostKey() //nolint:gosec // opted into with Insecure
	}

	if c.OS == proctree.OSUnknown {
		c.OS = proctree.OSLinux
	}

	return c
}

func (c Config) validate() error {
	switch {
	case c.Host == "":
		return errors.New("ssh config: host is required")
	case c.User == "":
		return errors.New("ssh config: user is required")
	case c.HostKeyCallback == nil:
		return errors.New("ssh config: no host key callback; load known_hosts or set Insecure")
	default:
		return nil
	}
}

func (c Config) addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

func (c Config) clientConfig() (*ssh.ClientConfig, error) {
	cc := &ssh.ClientConfig{
		User:            c.User,
		HostKeyCallback: c.HostKeyCallback,
		Timeout:         c.Timeout,
	}

	if c.Password != "" {
		cc.Auth = append(cc.Auth, ssh.Password(c.Password))
	}

	if c.KeyPath != "" {
		key, err := os.ReadFile(expandHome(c.KeyPath))
		if err != nil {
			return nil, fmt.Errorf("read private key: %w", err)
		}

		signer, err := ssh.ParsePrivateKey(key)
		if err != nil {
			return nil, fmt.Errorf("parse private key %s: %w", c.KeyPath, err)
		}

		cc.Auth = append(cc.Auth, ssh.PublicKeys(signer))
	}

	if c.Agent {
		if auth := agentAuth(); auth != nil {
			cc.Auth = append(cc.Auth, auth)
		}
	}

	return cc, nil
}

// agentAuth offers the keys held by the agent at SSH_AUTH_SOCK, or nil when
// no agent answers.
func agentAuth() ssh.AuthMethod {
	socket := os.Getenv("SSH_AUTH_SOCK")
	if socket == "" {
		return nil
	}

	conn, err := (&net.Dialer{Timeout: 500 * time.Millisecond}).DialContext(context.Background(), "unix", socket)
	if err != nil {
		return nil
	}

	return ssh.PublicKeysCallback(agent.NewClient(conn).Signers)
}

// KnownHosts verifies servers against ~/.ssh/known_hosts.
func KnownHosts() (ssh.HostKeyCallback, error) {
	return knownhosts.New(expandHome("~/.ssh/known_hosts"))
}

// FromSSHConfig resolves alias through an OpenSSH client config file. An
// empty path means ~/.ssh/config.
func FromSSHConfig(alias, path string) (Config, error) {
	if path == "" {
		path = "~/.ssh/config"
	}

	f, err := os.Open(expandHome(path))
	if err != nil {
		return Config{}, fmt.Errorf("open ssh config: %w", err)
	}

	defer func() { _ = f.Close() }()

	return FromSSHConfigReader(alias, f)
}

// FromSSHConfigReader resolves alias through config read from r. HostName,
// User, Port, IdentityFile and StrictHostKeyChecking are honoured; a missing
// User falls back to the current user.
func FromSSHConfigReader(alias string, r io.Reader) (Config, error) {
	cfg, err := ssh_config.Decode(r)
	if err != nil {
		return Config{}, fmt.Errorf("parse ssh config: %w", err)
	}

	get := func(key string) string {
		v, _ := cfg.Get(alias, key)

		return v
	}

	c := Config{
		Host:     get("HostName"),
		User:     get("User"),
		KeyPath:  get("IdentityFile"),
		Insecure: get("StrictHostKeyChecking") == "no",
	}

	if c.Host == "" {
		c.Host = alias
	}

	if c.User == "" {
		if u, err := user.Current(); err == nil {
			c.User = u.Username
		}
	}

	if port := get("Port"); port != "" {
		c.Port, err = strconv.Atoi(port)
		if err != nil {
			return Config{}, fmt.Errorf("ssh config %s: port %q: %w", alias, port, err)
		}
	}

	if c.KeyPath != "" {
		c.KeyPath = expandHome(c.KeyPath)
	}

	return c, nil
}

func expandHome(path string) string {
	rest, ok := strings.CutPrefix(path, "~/")
	if !ok {
		return path
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}

	return filepath.Join(home, rest)
}
