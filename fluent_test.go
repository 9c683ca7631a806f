package proctree

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuilder(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		b    *Builder
		want string
		args []string
		env  []string
	}{
		{
			name: "single args",
			b:    Cmd("ps").Arg("-A").Arg("-o").Arg("pid="),
			want: "ps -A -o pid=",
			args: []string{"-A", "-o", "pid="},
		},
		{
			name: "graceful taskkill",
			b:    Cmd("taskkill").Flags(false, "/F").Args("/PID", "42"),
			want: "taskkill /PID 42",
			args: []string{"/PID", "42"},
		},
		{
			name: "forced taskkill",
			b:    Cmd("taskkill").Flags(true, "/F").Args("/PID", "42"),
			want: "taskkill /F /PID 42",
			args: []string{"/F", "/PID", "42"},
		},
		{
			name: "environment is not part of the command line",
			b:    Cmd("kill").Env("LC_ALL", "C").Args("-TERM", "7"),
			want: "kill -TERM 7",
			args: []string{"-TERM", "7"},
			env:  []string{"LC_ALL=C"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cmd := tt.b.Build()
			assert.Equal(t, tt.want, cmd.String())
			assert.Equal(t, tt.args, cmd.Args)
			assert.Equal(t, tt.env, cmd.Env)
		})
	}
}

func TestBuilder_Streams(t *testing.T) {
	t.Parallel()

	var stdout, stderr bytes.Buffer

	cmd := Cmd("sh").Stdout(&stdout).Stderr(&stderr).Build()

	assert.Same(t, &stdout, cmd.Stdout)
	assert.Same(t, &stderr, cmd.Stderr)
}

func TestBuilder_BuildCopies(t *testing.T) {
	t.Parallel()

	b := Cmd("kill").Arg("-TERM")

	first := b.Arg("1").Build()
	first.Args[0] = "-KILL"

	second := b.Build()
	assert.Equal(t, []string{"-TERM", "1"}, second.Args)
}
