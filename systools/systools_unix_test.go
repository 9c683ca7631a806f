//go:build unix

package systools_test

import (
	"context"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	"github.com/ruffel/proctree"
	"github.com/ruffel/proctree/providers/local"
	"github.com/ruffel/proctree/systools"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func localKiller(t *testing.T) *proctree.Killer {
	t.Helper()

	env, err := local.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = env.Close() })

	log := logrus.New()
	log.SetOutput(io.Discard)

	return systools.NewKiller(env,
		systools.WithGracePeriod(2*time.Second),
		systools.WithPollInterval(20*time.Millisecond),
		systools.WithLogger(log),
	)
}

func TestKillProcessTree_LocalUnreapedChild(t *testing.T) {
	t.Parallel()

	cmd := exec.Command("sleep", "60")
	require.NoError(t, cmd.Start())
	t.Cleanup(func() { _ = cmd.Wait() })

	k := localKiller(t)
	pid := proctree.PID(cmd.Process.Pid)

	tests := []struct {
		name string
		want bool
	}{
		{name: "first kill terminates", want: true},
		{name: "zombie counts as gone", want: false},
	}

	for _, tt := range tests {
		ok, err := k.KillProcessTree(context.Background(), pid)
		require.NoError(t, err, tt.name)
		assert.Equal(t, tt.want, ok, tt.name)
	}
}

func TestListProcessesByName_LocalLongName(t *testing.T) {
	t.Parallel()

	sleep, err := exec.LookPath("sleep")
	require.NoError(t, err)

	data, err := os.ReadFile(sleep)
	require.NoError(t, err)

	// Longer than the 15 characters the kernel keeps.
	name := "proctree-long-sleeper"
	bin := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(bin, data, 0o755))

	cmd := exec.Command(bin, "60")
	if err := cmd.Start(); err != nil {
		t.Skipf("temp dir not executable: %v", err)
	}

	t.Cleanup(func() {
		_ = cmd.Process.Kill()
		_ = cmd.Wait()
	})

	k := localKiller(t)

	require.Eventually(t, func() bool {
		pids, err := k.ListProcessesByName(context.Background(), name)

		return err == nil && assert.ObjectsAreEqual([]proctree.PID{proctree.PID(cmd.Process.Pid)}, pids)
	}, 5*time.Second, 50*time.Millisecond)
}
