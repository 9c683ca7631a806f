// Package docker provides an implementation of the proctree.Environment interface
// for executing commands inside existing Docker containers.
//
// Each command is an Engine API exec instance. Its output is demultiplexed
// into the command's stdout and stderr, and its exit code is read back from
// the daemon. Cancelling a command only detaches from the exec; stopping
// what it started is the job of systools.
//
// Usage:
//
//	env, err := docker.New(docker.WithContainerID("my-container-id"))
//	killer := systools.NewKiller(env)
package docker
