package proctree

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNop(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	var (
		elevation ElevationRequester = Nop{}
		registrar Registrar          = Nop{}
		acl       ACLManager         = Nop{}
	)

	elevated, err := elevation.RequestElevation(ctx, `C:\Tools\app.exe`, []string{"--restart"})
	require.NoError(t, err)
	assert.False(t, elevated)

	require.NoError(t, registrar.RegisterFileAssociation(ctx, ".proj", "App.Project", `C:\Tools\app.exe`))
	require.NoError(t, registrar.RemoveFileAssociation(ctx, ".proj", "App.Project"))
	require.NoError(t, registrar.RegisterURLProtocol(ctx, "app", `C:\Tools\app.exe`))
	require.NoError(t, registrar.RemoveURLProtocol(ctx, "app"))
	require.NoError(t, registrar.SetAutoStart(ctx, "App", `C:\Tools\app.exe`, true))

	require.NoError(t, acl.SetFileACL(ctx, `C:\data`, "Users", true))
	require.NoError(t, acl.RemoveFileACL(ctx, `C:\data`, "Users"))
	require.NoError(t, acl.ResetFileACL(ctx, `C:\data`))
	assert.False(t, acl.RequiresAdminAccess(`C:\Windows\System32`))
}
