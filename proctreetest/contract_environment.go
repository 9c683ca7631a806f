package proctreetest

import (
	"strings"

	"github.com/ruffel/proctree"
	"github.com/stretchr/testify/require"
)

func environmentContracts() []TestCase {
	return []TestCase{
		{
			Category:    CategoryEnvironment,
			Name:        "command-env-reaches-command",
			Description: "Command.Env entries are visible to the started command",
			Run: func(t T, env proctree.Environment) {
				script := "echo $PROCTREE_CONTRACT"
				if env.TargetOS() == proctree.OSWindows {
					script = "Write-Output $env:PROCTREE_CONTRACT"
				}

				cmd := env.TargetOS().ShellCommand(script)
				cmd.Env = []string{"PROCTREE_CONTRACT=env-ok"}

				res, err := proctree.NewExecutor(env).RunBuffered(t.Context(), cmd)
				require.NoError(t, err)
				require.Equal(t, "env-ok", strings.TrimSpace(string(res.Stdout)))
			},
		},
		{
			Category:    CategoryEnvironment,
			Name:        "close-idempotent",
			Description: "Closing an environment multiple times is deterministic and non-fatal",
			Run: func(t T, env proctree.Environment) {
				require.NoError(t, env.Close())
				require.NoError(t, env.Close())
			},
		},
		{
			Category:    CategoryEnvironment,
			Name:        "close-post-run-fails",
			Description: "Run fails deterministically after environment close",
			Run: func(t T, env proctree.Environment) {
				require.NoError(t, env.Close())

				_, err := env.Run(t.Context(), env.TargetOS().ShellCommand("echo proctree-contract"))
				require.Error(t, err)
			},
		},
		{
			Category:    CategoryEnvironment,
			Name:        "close-post-start-fails",
			Description: "Start fails deterministically after environment close",
			Run: func(t T, env proctree.Environment) {
				require.NoError(t, env.Close())

				_, err := env.Start(t.Context(), env.TargetOS().ShellCommand("echo proctree-contract"))
				require.Error(t, err)
			},
		},
		{
			Category:    CategoryEnvironment,
			Name:        "close-post-lookpath-fails",
			Description: "LookPath fails deterministically after environment close",
			Run: func(t T, env proctree.Environment) {
				require.NoError(t, env.Close())

				_, err := env.LookPath(t.Context(), "echo")
				require.Error(t, err)
			},
		},
	}
}
