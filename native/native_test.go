package native

import (
	"context"
	"io"
	"os"
	"os/exec"
	"runtime"
	"testing"
	"time"

	"github.com/ruffel/proctree"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)

	return l
}

func skipUnlessUnix(t *testing.T) {
	t.Helper()

	if runtime.GOOS == "windows" {
		t.Skip("uses sh and sleep")
	}
}

func TestSnapshot_IncludesSelf(t *testing.T) {
	t.Parallel()

	p := New(WithLogger(quietLogger()))
	self := proctree.PID(os.Getpid())

	parents, err := p.ParentLinks(context.Background())
	require.NoError(t, err)
	require.Contains(t, parents, self)
	assert.Equal(t, proctree.PID(os.Getppid()), parents[self])

	names, err := p.ImageNames(context.Background())
	require.NoError(t, err)
	assert.NotEmpty(t, names[self])
}

func TestKillProcessTree(t *testing.T) {
	t.Parallel()
	skipUnlessUnix(t)

	cmd := exec.Command("sh", "-c", "sleep 60 & sleep 60 & wait")
	require.NoError(t, cmd.Start())

	waited := make(chan error, 1)
	go func() { waited <- cmd.Wait() }()

	root := proctree.PID(cmd.Process.Pid)
	p := New(WithLogger(quietLogger()), WithGracePeriod(2*time.Second), WithPollInterval(20*time.Millisecond))

	require.Eventually(t, func() bool {
		parents, err := p.ParentLinks(context.Background())
		if err != nil {
			return false
		}

		return len(proctree.ExpandDescendants(root, parents)) >= 3
	}, 5*time.Second, 20*time.Millisecond, "sleep children never appeared")

	k := proctree.NewKiller(p, proctree.WithLogger(quietLogger()))

	report, err := k.KillTree(context.Background(), root)
	require.NoError(t, err)
	assert.Len(t, report.Descendants, 2)
	assert.Empty(t, report.Failures())
	// sh may exit on its own once its children are gone.
	assert.True(t, report.RootOutcome.Succeeded(), "root: %v", report.RootOutcome)

	select {
	case <-waited:
	case <-time.After(5 * time.Second):
		t.Fatal("root process still running")
	}

	// Everything is gone now.
	ok, err := k.KillProcessTree(context.Background(), root)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestTerminate_AlreadyGone(t *testing.T) {
	t.Parallel()
	skipUnlessUnix(t)

	cmd := exec.Command("true")
	require.NoError(t, cmd.Run())

	out := New(WithLogger(quietLogger())).Terminate(context.Background(), proctree.PID(cmd.Process.Pid))
	assert.Equal(t, proctree.OutcomeAlreadyGone, out.Kind)
}

func TestKillProcessTree_UnreapedChild(t *testing.T) {
	t.Parallel()
	skipUnlessUnix(t)

	// Nothing waits on the child, so it lingers as a zombie once killed.
	cmd := exec.Command("sleep", "60")
	require.NoError(t, cmd.Start())
	t.Cleanup(func() { _ = cmd.Wait() })

	pid := proctree.PID(cmd.Process.Pid)
	p := New(WithLogger(quietLogger()), WithGracePeriod(2*time.Second), WithPollInterval(20*time.Millisecond))
	k := proctree.NewKiller(p, proctree.WithLogger(quietLogger()))

	tests := []struct {
		name string
		want bool
	}{
		{name: "first kill terminates", want: true},
		{name: "second kill finds it gone", want: false},
		{name: "third kill finds it gone", want: false},
	}

	for _, tt := range tests {
		ok, err := k.KillProcessTree(context.Background(), pid)
		require.NoError(t, err, tt.name)
		assert.Equal(t, tt.want, ok, tt.name)
	}

	out := p.Terminate(context.Background(), pid)
	assert.Equal(t, proctree.AlreadyGone(pid), out)
}

func TestElevation(t *testing.T) {
	t.Parallel()
	skipUnlessUnix(t)

	p := New(WithLogger(quietLogger()))
	root := os.Geteuid() == 0

	assert.Equal(t, root, p.CurrentElevated(context.Background()))
	assert.Equal(t, root, p.ProcessElevated(context.Background(), proctree.PID(os.Getpid())))

	cmd := exec.Command("true")
	require.NoError(t, cmd.Run())

	assert.False(t, p.ProcessElevated(context.Background(), proctree.PID(cmd.Process.Pid)))
}
