package proctreetest

import (
	"strings"

	"github.com/ruffel/proctree"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func coreContracts() []TestCase {
	return []TestCase{
		{
			Category: CategoryCore,
			Name:     "simple-echo",
			Run: func(t T, env proctree.Environment) {
				exec := proctree.NewExecutor(env)
				result, err := exec.RunBuffered(t.Context(), proctree.NewCommand("echo", "hello"))
				require.NoError(t, err)
				require.NotNil(t, result)

				assert.Equal(t, "hello", strings.TrimSpace(string(result.Stdout)))
				assert.Equal(t, 0, result.ExitCode)
			},
		},
		{
			Category:    CategoryCore,
			Name:        "start-pid",
			Description: "PID is never negative and stays stable until Close",
			Run: func(t T, env proctree.Environment) {
				process, err := env.Start(t.Context(), env.TargetOS().ShellCommand("echo proctree-contract"))
				require.NoError(t, err)

				defer func() {
					_ = process.Close()
				}()

				pid := process.PID()
				assert.GreaterOrEqual(t, pid, proctree.PID(0))

				require.NoError(t, process.Wait())
				assert.Equal(t, pid, process.PID())
			},
		},
	}
}
