package proctree

import "context"

// ElevationRequester relaunches a program with administrator privilege on
// behalf of the host, typically through an OS consent prompt. The Killer never
// calls it; hosts react to ErrAccessDenied themselves.
type ElevationRequester interface {
	RequestElevation(ctx context.Context, executablePath string, args []string) (bool, error)
}

// Registrar manages shell integration: file associations, URL protocols and
// auto-start entries. Every method is idempotent.
type Registrar interface {
	RegisterFileAssociation(ctx context.Context, extension, progID, executablePath string) error
	RemoveFileAssociation(ctx context.Context, extension, progID string) error
	RegisterURLProtocol(ctx context.Context, scheme, executablePath string) error
	RemoveURLProtocol(ctx context.Context, scheme string) error
	SetAutoStart(ctx context.Context, name, executablePath string, enabled bool) error
}

// ACLManager edits access control lists on files.
type ACLManager interface {
	SetFileACL(ctx context.Context, path, principal string, allow bool) error
	RemoveFileACL(ctx context.Context, path, principal string) error
	ResetFileACL(ctx context.Context, path string) error
	RequiresAdminAccess(path string) bool
}

// Nop implements every collaborator interface by doing nothing. It is the
// default on platforms without those facilities.
type Nop struct{}

var (
	_ ElevationRequester = Nop{}
	_ Registrar          = Nop{}
	_ ACLManager         = Nop{}
)

// RequestElevation reports that no elevation took place.
func (Nop) RequestElevation(context.Context, string, []string) (bool, error) { return false, nil }

func (Nop) RegisterFileAssociation(context.Context, string, string, string) error { return nil }

func (Nop) RemoveFileAssociation(context.Context, string, string) error { return nil }

func (Nop) RegisterURLProtocol(context.Context, string, string) error { return nil }

func (Nop) RemoveURLProtocol(context.Context, string) error { return nil }

func (Nop) SetAutoStart(context.Context, string, string, bool) error { return nil }

func (Nop) SetFileACL(context.Context, string, string, bool) error { return nil }

func (Nop) RemoveFileACL(context.Context, string, string) error { return nil }

func (Nop) ResetFileACL(context.Context, string) error { return nil }

// RequiresAdminAccess always reports false.
func (Nop) RequiresAdminAccess(string) bool { return false }
