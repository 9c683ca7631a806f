// Package ssh provides an implementation of the proctree.Environment interface
// for remote servers via the SSH protocol.
//
// Every command runs in its own session of one shared connection. The
// command line is quoted for a POSIX login shell, or for PowerShell when
// the target OS is Windows, so Windows hosts need PowerShell as the OpenSSH
// default shell. The remote /proc can also be read over SFTP (see
// ProcReader).
//
// Remote process ids are not visible through a session, so Process.PID
// always reports 0. Tree termination goes through the systools package,
// which discovers pids with the remote ps.
//
// Usage:
//
//	env, err := ssh.New(
//		ssh.WithHost("example.com"),
//		ssh.WithUser("user"),
//		ssh.WithKeyPath("~/.ssh/id_ed25519"),
//	)
package ssh
