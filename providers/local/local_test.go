package local

import (
	"bytes"
	"context"
	"runtime"
	"strconv"
	"testing"
	"time"

	"github.com/ruffel/proctree"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const osWindows = "windows"

func TestEnvironment_Run(t *testing.T) {
	t.Parallel()

	env, err := New()
	require.NoError(t, err)

	t.Cleanup(func() { _ = env.Close() })

	tests := []struct {
		name     string
		cmd      *proctree.Command
		wantCode int
	}{
		{
			name: "successful command",
			cmd:  &proctree.Command{Cmd: "echo", Args: []string{"hello"}},
		},
		{
			name:     "command with exit code",
			cmd:      exitCommand(3),
			wantCode: 3,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			result, err := env.Run(context.Background(), tt.cmd)
			require.NotNil(t, result)
			assert.Equal(t, tt.wantCode, result.ExitCode)
			assert.Positive(t, result.Duration)

			if tt.wantCode == 0 {
				require.NoError(t, err)

				return
			}

			var exitErr *proctree.ExitError
			require.ErrorAs(t, err, &exitErr)
			assert.Equal(t, tt.wantCode, exitErr.ExitCode)
		})
	}
}

func TestEnvironment_Streams(t *testing.T) {
	t.Parallel()

	env, err := New()
	require.NoError(t, err)

	t.Cleanup(func() { _ = env.Close() })

	tests := []struct {
		name string
		cmd  proctree.Command
		want string
	}{
		{
			name: "stdout capture",
			cmd:  proctree.Command{Cmd: "echo", Args: []string{"test"}},
			want: "test",
		},
		{
			name: "environment variables",
			cmd:  envCommand("TEST_VAR", "hello"),
			want: "hello",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var stdout bytes.Buffer

			cmd := tt.cmd
			cmd.Stdout = &stdout

			_, err := env.Run(context.Background(), &cmd)
			require.NoError(t, err)
			assert.Contains(t, stdout.String(), tt.want)
		})
	}
}

func TestEnvironment_Closed(t *testing.T) {
	t.Parallel()

	env, err := New()
	require.NoError(t, err)
	require.NoError(t, env.Close())

	_, err = env.Start(context.Background(), &proctree.Command{Cmd: "echo"})
	require.ErrorIs(t, err, proctree.ErrEnvironmentClosed)

	_, err = env.LookPath(context.Background(), "echo")
	require.ErrorIs(t, err, proctree.ErrEnvironmentClosed)
}

func TestEnvironment_InvalidCommand(t *testing.T) {
	t.Parallel()

	env, err := New()
	require.NoError(t, err)

	t.Cleanup(func() { _ = env.Close() })

	_, err = env.Run(context.Background(), &proctree.Command{Cmd: "  "})
	require.Error(t, err)
	assert.False(t, proctree.IsTransport(err))
}

func TestStart_MissingBinaryIsTransportError(t *testing.T) {
	t.Parallel()

	env, err := New()
	require.NoError(t, err)

	t.Cleanup(func() { _ = env.Close() })

	_, err = env.Run(context.Background(), &proctree.Command{Cmd: "definitely-not-a-real-binary-4711"})
	require.Error(t, err)
	assert.True(t, proctree.IsTransport(err))
}

func TestProcess_Lifecycle(t *testing.T) {
	t.Parallel()

	env, err := New()
	require.NoError(t, err)

	t.Cleanup(func() { _ = env.Close() })

	proc, err := env.Start(context.Background(), &proctree.Command{Cmd: "echo", Args: []string{"pid"}})
	require.NoError(t, err)

	assert.NotZero(t, proc.PID())
	require.NoError(t, proc.Wait())
	require.NotNil(t, proc.Result())
	assert.Zero(t, proc.Result().ExitCode)

	// Closing an exited process is a no-op, and so is closing it twice.
	require.NoError(t, proc.Close())
	require.NoError(t, proc.Close())
}

func TestProcess_ContextCancel(t *testing.T) {
	t.Parallel()

	env, err := New()
	require.NoError(t, err)

	t.Cleanup(func() { _ = env.Close() })

	ctx, cancel := context.WithCancel(context.Background())

	proc, err := env.Start(ctx, sleepCommand(10))
	require.NoError(t, err)

	assert.Nil(t, proc.Result())

	cancel()

	start := time.Now()
	err = proc.Wait()
	require.ErrorIs(t, err, context.Canceled)
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestWithTargetOS(t *testing.T) {
	t.Parallel()

	env, err := New(WithTargetOS(proctree.OSUnknown))
	require.NoError(t, err)

	assert.Equal(t, proctree.OSUnknown, env.TargetOS())
}

func exitCommand(code int) *proctree.Command {
	if runtime.GOOS == osWindows {
		return &proctree.Command{Cmd: "cmd", Args: []string{"/c", "exit", strconv.Itoa(code)}}
	}

	return &proctree.Command{Cmd: "sh", Args: []string{"-c", "exit " + strconv.Itoa(code)}}
}

func envCommand(key, value string) proctree.Command {
	if runtime.GOOS == osWindows {
		return proctree.Command{Cmd: "cmd", Args: []string{"/c", "echo %" + key + "%"}, Env: []string{key + "=" + value}}
	}

	return proctree.Command{Cmd: "sh", Args: []string{"-c", "echo $" + key}, Env: []string{key + "=" + value}}
}

func sleepCommand(seconds int) *proctree.Command {
	if runtime.GOOS == osWindows {
		return &proctree.Command{Cmd: "powershell", Args: []string{"-NoProfile", "-Command", "Start-Sleep -Seconds " + strconv.Itoa(seconds)}}
	}

	return &proctree.Command{Cmd: "sleep", Args: []string{strconv.Itoa(seconds)}}
}
