//go:build !windows

package local

import (
	"bytes"
	"context"
	"os/exec"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ruffel/proctree"
	"github.com/stretchr/testify/require"
)

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.buf.String()
}

// gone treats zombies as exited.
func gone(pid proctree.PID) bool {
	out, err := exec.Command("ps", "-o", "stat=", "-p", pid.String()).Output()
	state := strings.TrimSpace(string(out))

	return err != nil || state == "" || strings.HasPrefix(state, "Z")
}

func TestClose_KillsProcessGroup(t *testing.T) {
	t.Parallel()

	env, err := New()
	require.NoError(t, err)

	t.Cleanup(func() { _ = env.Close() })

	var stdout syncBuffer

	proc, err := env.Start(context.Background(), &proctree.Command{
		Cmd:    "sh",
		Args:   []string{"-c", "sleep 60 & echo $!; wait"},
		Stdout: &stdout,
	})
	require.NoError(t, err)

	require.Eventually(t, func() bool { return strings.TrimSpace(stdout.String()) != "" }, 5*time.Second, 10*time.Millisecond)

	child, err := proctree.ParsePID(stdout.String())
	require.NoError(t, err)

	require.NoError(t, proc.Close())

	// The backgrounded sleep shared the group and is gone too.
	require.Eventually(t, func() bool { return gone(child) }, 5*time.Second, 20*time.Millisecond)
}

func TestRun_TimeoutKillsProcessGroup(t *testing.T) {
	t.Parallel()

	env, err := New()
	require.NoError(t, err)

	t.Cleanup(func() { _ = env.Close() })

	var stdout syncBuffer

	executor := proctree.NewExecutor(env)

	start := time.Now()
	_, err = executor.Run(context.Background(), &proctree.Command{
		Cmd:    "sh",
		Args:   []string{"-c", "sleep 60 & echo $!; wait"},
		Stdout: &stdout,
	}, proctree.WithTimeout(300*time.Millisecond))

	require.ErrorIs(t, err, proctree.ErrTimedOut)
	require.Less(t, time.Since(start), 10*time.Second)

	child, perr := proctree.ParsePID(stdout.String())
	require.NoError(t, perr)
	require.Eventually(t, func() bool { return gone(child) }, 5*time.Second, 20*time.Millisecond)
}
