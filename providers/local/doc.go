// Package local provides an implementation of the proctree.Environment
// interface for the local operating system.
//
// It serves as a thin wrapper around the standard library's "os/exec",
// running every command in its own process group so that closing a process
// handle also stops whatever it spawned.
//
// Usage:
//
//	env, _ := local.New()
//	killer := systools.NewKiller(env)
//	_, _ = killer.KillProcessTree(ctx, pid)
package local
