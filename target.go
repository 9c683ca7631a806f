package proctree

import (
	"runtime"
	"strings"
)

// TargetOS selects the process tools and shell used on a target.
type TargetOS int

const (
	OSUnknown TargetOS = iota
	OSLinux
	OSWindows
	OSDarwin
)

var targetNames = [...]string{
	OSUnknown: "unknown",
	OSLinux:   "linux",
	OSWindows: "windows",
	OSDarwin:  "darwin",
}

func (o TargetOS) String() string {
	if o < 0 || int(o) >= len(targetNames) {
		return targetNames[OSUnknown]
	}

	return targetNames[o]
}

// ParseTargetOS maps a GOOS-style name to a TargetOS. "windows_nt" and
// "macos" are accepted as aliases; anything else is OSUnknown.
func ParseTargetOS(name string) TargetOS {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "linux":
		return OSLinux
	case "windows", "windows_nt":
		return OSWindows
	case "darwin", "macos":
		return OSDarwin
	default:
		return OSUnknown
	}
}

// DetectLocalOS returns the TargetOS of this machine.
func DetectLocalOS() TargetOS {
	return ParseTargetOS(runtime.GOOS)
}

// IsPOSIX reports whether the target ships POSIX process tools (ps, kill, id).
func (o TargetOS) IsPOSIX() bool {
	return o == OSLinux || o == OSDarwin
}

// ShellCommand runs script in the target's shell: a non-interactive
// PowerShell on Windows and sh everywhere else.
func (o TargetOS) ShellCommand(script string) *Command {
	if o == OSWindows {
		return NewCommand("powershell", "-NoProfile", "-NonInteractive", "-Command", script)
	}

	return NewCommand("sh", "-c", script)
}
