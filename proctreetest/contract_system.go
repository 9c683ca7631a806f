package proctreetest

import (
	"github.com/ruffel/proctree"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func systemContracts() []TestCase {
	return []TestCase{
		{
			Category: CategorySystem,
			Name:     "lookpath",
			Run: func(t T, env proctree.Environment) {
				binary := "echo"
				if env.TargetOS() == proctree.OSWindows {
					binary = "cmd.exe"
				}

				path, err := env.LookPath(t.Context(), binary)

				require.NoError(t, err)
				assert.NotEmpty(t, path)
			},
		},
		{
			Category:    CategorySystem,
			Name:        "lookpath-missing",
			Description: "LookPath of an unknown binary is an error, not an empty path",
			Run: func(t T, env proctree.Environment) {
				_, err := env.LookPath(t.Context(), "proctree-contract-no-such-binary")
				require.Error(t, err)
			},
		},
	}
}
