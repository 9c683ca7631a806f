package proctreetest

import (
	"fmt"

	"github.com/ruffel/proctree"
	"github.com/stretchr/testify/require"
)

const (
	runExitErrorCode  = 13
	waitExitErrorCode = 23
)

func errorContracts() []TestCase {
	return []TestCase{
		runNonZeroReturnsExitErrorContract(),
		startWaitNonZeroReturnsExitErrorContract(),
	}
}

func exitScript(code int) string {
	return fmt.Sprintf("exit %d", code)
}

func runNonZeroReturnsExitErrorContract() TestCase {
	return TestCase{
		Category:    CategoryErrors,
		Name:        "run-nonzero-returns-exiterror",
		Description: "Run non-zero failures must return *proctree.ExitError",
		Run: func(t T, env proctree.Environment) {
			_, err := env.Run(t.Context(), env.TargetOS().ShellCommand(exitScript(runExitErrorCode)))
			require.Error(t, err)

			var exitErr *proctree.ExitError
			require.ErrorAs(t, err, &exitErr)
			require.Equal(t, runExitErrorCode, exitErr.ExitCode)
			require.False(t, proctree.IsTransport(err))
		},
	}
}

func startWaitNonZeroReturnsExitErrorContract() TestCase {
	return TestCase{
		Category:    CategoryErrors,
		Name:        "start-wait-nonzero-returns-exiterror",
		Description: "Wait non-zero failures must return *proctree.ExitError",
		Run: func(t T, env proctree.Environment) {
			process, err := env.Start(t.Context(), env.TargetOS().ShellCommand(exitScript(waitExitErrorCode)))
			require.NoError(t, err)
			require.NotNil(t, process)

			defer func() {
				_ = process.Close()
			}()

			err = process.Wait()
			require.Error(t, err)

			var exitErr *proctree.ExitError
			require.ErrorAs(t, err, &exitErr)
			require.Equal(t, waitExitErrorCode, exitErr.ExitCode)
		},
	}
}
