package proctree

import "io"

// Builder assembles a Command step by step.
//
//	proctree.Cmd("taskkill").Flags(force, "/F").Args("/PID", "42").Build()
type Builder struct {
	cmd Command
}

// Cmd starts a Builder for binary.
func Cmd(binary string) *Builder {
	return &Builder{cmd: Command{Cmd: binary}}
}

// Arg appends one argument.
func (b *Builder) Arg(arg string) *Builder {
	return b.Args(arg)
}

// Args appends arguments.
func (b *Builder) Args(args ...string) *Builder {
	b.cmd.Args = append(b.cmd.Args, args...)

	return b
}

// Flags appends args only when cond holds.
func (b *Builder) Flags(cond bool, args ...string) *Builder {
	if !cond {
		return b
	}

	return b.Args(args...)
}

// Env adds KEY=VALUE to the command's environment.
func (b *Builder) Env(key, value string) *Builder {
	b.cmd.Env = append(b.cmd.Env, key+"="+value)

	return b
}

// Stdout routes standard output to w.
func (b *Builder) Stdout(w io.Writer) *Builder {
	b.cmd.Stdout = w

	return b
}

// Stderr routes standard error to w.
func (b *Builder) Stderr(w io.Writer) *Builder {
	b.cmd.Stderr = w

	return b
}

// Build returns a copy of the assembled Command; the Builder stays usable.
func (b *Builder) Build() *Command {
	cmd := b.cmd
	cmd.Args = append([]string(nil), b.cmd.Args...)
	cmd.Env = append([]string(nil), b.cmd.Env...)

	return &cmd
}
