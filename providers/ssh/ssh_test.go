package ssh

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ruffel/proctree"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfig_WithDefaults(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		config Config
		wantOS proctree.TargetOS
	}{
		{name: "linux by default", config: Config{Host: "example.com", User: "root", Insecure: true}, wantOS: proctree.OSLinux},
		{name: "windows kept", config: Config{Host: "example.com", User: "root", Insecure: true, OS: proctree.OSWindows}, wantOS: proctree.OSWindows},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			c := tt.config.withDefaults()

			assert.Equal(t, 22, c.Port)
			assert.Equal(t, 10*time.Second, c.Timeout)
			assert.NotNil(t, c.HostKeyCallback)
			assert.Equal(t, tt.wantOS, c.OS)
			assert.Equal(t, "example.com:22", c.addr())
		})
	}
}

func TestConfig_Validate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		config  Config
		wantErr string
	}{
		{
			name:   "valid",
			config: Config{Host: "example.com", User: "root", Insecure: true}.withDefaults(),
		},
		{
			name:    "missing host",
			config:  Config{User: "root"},
			wantErr: "host is required",
		},
		{
			name:    "missing user",
			config:  Config{Host: "example.com"},
			wantErr: "user is required",
		},
		{
			name:    "no host key verification",
			config:  Config{Host: "example.com", User: "root"},
			wantErr: "host key callback",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			err := tt.config.validate()
			if tt.wantErr == "" {
				require.NoError(t, err)

				return
			}

			require.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestConfig_ClientConfig(t *testing.T) {
	t.Parallel()

	_, err := Config{User: "ops", KeyPath: filepath.Join(t.TempDir(), "missing")}.clientConfig()
	require.ErrorContains(t, err, "read private key")

	garbage := filepath.Join(t.TempDir(), "id_garbage")
	require.NoError(t, os.WriteFile(garbage, []byte("not a key"), 0o600))

	_, err = Config{User: "ops", KeyPath: garbage}.clientConfig()
	require.ErrorContains(t, err, "parse private key")

	cc, err := Config{User: "ops", Password: "secret"}.clientConfig()
	require.NoError(t, err)
	assert.Equal(t, "ops", cc.User)
	assert.Len(t, cc.Auth, 1)
}

func TestOptions(t *testing.T) {
	t.Parallel()

	var c Config
	for _, o := range []Option{
		WithConfig(Config{Host: "ignored", Port: 1}),
		WithHost("example.com"),
		WithUser("ops"),
		WithPort(2200),
		WithKeyPath("/keys/id"),
		WithPassword("secret"),
		WithAgent(true),
		WithTimeout(time.Second),
		WithOS(proctree.OSWindows),
		WithInsecureSkipVerify(true),
	} {
		o(&c)
	}

	c = c.withDefaults()

	assert.Equal(t, "example.com", c.Host)
	assert.Equal(t, "ops", c.User)
	assert.Equal(t, 2200, c.Port)
	assert.Equal(t, "/keys/id", c.KeyPath)
	assert.Equal(t, "secret", c.Password)
	assert.True(t, c.Agent)
	assert.Equal(t, time.Second, c.Timeout)
	assert.Equal(t, proctree.OSWindows, c.OS)
	assert.NotNil(t, c.HostKeyCallback)
	assert.NoError(t, c.validate())
}

func TestFromSSHConfigReader(t *testing.T) {
	t.Parallel()

	const config = `
Host db
    HostName 10.0.0.5
    User admin
    Port 2222
    IdentityFile ~/.ssh/db_key
    StrictHostKeyChecking no

Host badport
    Port twenty-two

Host bare
`

	home, err := os.UserHomeDir()
	require.NoError(t, err)

	tests := []struct {
		name    string
		alias   string
		check   func(t *testing.T, c Config)
		wantErr string
	}{
		{
			name:  "resolves every field",
			alias: "db",
			check: func(t *testing.T, c Config) {
				t.Helper()

				assert.Equal(t, "10.0.0.5", c.Host)
				assert.Equal(t, "admin", c.User)
				assert.Equal(t, 2222, c.Port)
				assert.Equal(t, filepath.Join(home, ".ssh", "db_key"), c.KeyPath)
				assert.True(t, c.Insecure)
			},
		},
		{
			name:  "alias doubles as host name",
			alias: "bare",
			check: func(t *testing.T, c Config) {
				t.Helper()

				assert.Equal(t, "bare", c.Host)
				assert.Zero(t, c.Port)
				assert.False(t, c.Insecure)
			},
		},
		{
			name:    "bad port",
			alias:   "badport",
			wantErr: `port "twenty-two"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			c, err := FromSSHConfigReader(tt.alias, strings.NewReader(config))
			if tt.wantErr != "" {
				require.ErrorContains(t, err, tt.wantErr)

				return
			}

			require.NoError(t, err)
			tt.check(t, c)
		})
	}
}

func TestFromSSHConfig(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "config")
	require.NoError(t, os.WriteFile(path, []byte("Host app\n    HostName app.internal\n    User deploy\n"), 0o600))

	c, err := FromSSHConfig("app", path)
	require.NoError(t, err)
	assert.Equal(t, "app.internal", c.Host)
	assert.Equal(t, "deploy", c.User)

	_, err = FromSSHConfig("app", filepath.Join(t.TempDir(), "missing"))
	require.ErrorContains(t, err, "open ssh config")
}

func TestNew_InvalidConfig(t *testing.T) {
	t.Parallel()

	_, err := New(WithUser("ops"), WithInsecureSkipVerify(true))
	require.ErrorContains(t, err, "host is required")
}

func TestEnvironment_Closed(t *testing.T) {
	t.Parallel()

	env := NewFromClient(nil, Config{Host: "example.com", User: "ops"})
	require.NoError(t, env.Close())
	require.NoError(t, env.Close())

	_, err := env.Start(t.Context(), proctree.NewCommand("echo"))
	require.ErrorIs(t, err, proctree.ErrEnvironmentClosed)

	_, err = env.LookPath(t.Context(), "ps")
	require.ErrorIs(t, err, proctree.ErrEnvironmentClosed)

	_, err = env.ProcReader()
	require.ErrorIs(t, err, proctree.ErrEnvironmentClosed)

	assert.Equal(t, proctree.OSLinux, env.TargetOS())
}

func TestCommandLine(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		cmd     *proctree.Command
		windows bool
		want    string
	}{
		{
			name: "plain",
			cmd:  proctree.NewCommand("ps", "-o", "pid=,ppid="),
			want: "'ps' '-o' 'pid=,ppid='",
		},
		{
			name: "semicolon stays an argument",
			cmd:  proctree.NewCommand("echo", "hello; whoami"),
			want: "'echo' 'hello; whoami'",
		},
		{
			name: "backticks stay literal",
			cmd:  proctree.NewCommand("echo", "`whoami`"),
			want: "'echo' '`whoami`'",
		},
		{
			name: "embedded single quote",
			cmd:  proctree.NewCommand("echo", "it's"),
			want: `'echo' 'it'\''s'`,
		},
		{
			name: "posix env exported",
			cmd:  &proctree.Command{Cmd: "ps", Env: []string{"LC_ALL=C", "MSG=don't", "MALFORMED"}},
			want: `export LC_ALL='C'; export MSG='don'\''t'; 'ps'`,
		},
		{
			name:    "windows call operator",
			cmd:     proctree.NewCommand("taskkill", "/PID", "42"),
			windows: true,
			want:    "& 'taskkill' '/PID' '42'",
		},
		{
			name:    "windows env and quote",
			cmd:     &proctree.Command{Cmd: "echo", Args: []string{"it's"}, Env: []string{"MSG=don't"}},
			windows: true,
			want:    "$env:MSG='don''t'; & 'echo' 'it''s'",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tt.want, commandLine(tt.cmd, tt.windows))
		})
	}
}
