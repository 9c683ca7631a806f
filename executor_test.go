package proctree

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// scriptedEnv is an Environment whose Run calls are scripted with testify.
type scriptedEnv struct {
	mock.Mock
}

func (m *scriptedEnv) Run(ctx context.Context, cmd *Command) (*Result, error) {
	args := m.Called(ctx, cmd)
	if r := args.Get(0); r != nil {
		return r.(*Result), args.Error(1)
	}

	return nil, args.Error(1)
}

func (m *scriptedEnv) Start(context.Context, *Command) (Process, error) {
	return nil, ErrNotSupported
}

func (m *scriptedEnv) TargetOS() TargetOS { return OSLinux }

func (m *scriptedEnv) LookPath(_ context.Context, file string) (string, error) {
	return "/usr/bin/" + file, nil
}

func (m *scriptedEnv) Close() error { return nil }

func commandLine(line string) any {
	return mock.MatchedBy(func(c *Command) bool { return c.String() == line })
}

func TestExecutor_Run(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		opts     []ExecOption
		script   func(env *scriptedEnv)
		wantCode int
		wantErr  bool
		exitCode int
	}{
		{
			name: "success",
			script: func(env *scriptedEnv) {
				env.On("Run", mock.Anything, commandLine("kill -TERM 42")).Return(&Result{}, nil).Once()
			},
		},
		{
			name: "non-zero exit becomes ExitError",
			script: func(env *scriptedEnv) {
				env.On("Run", mock.Anything, commandLine("kill -TERM 42")).Return(&Result{ExitCode: 1}, nil).Once()
			},
			wantCode: 1,
			wantErr:  true,
			exitCode: 1,
		},
		{
			name: "retry until success",
			opts: []ExecOption{WithRetry(3, time.Millisecond)},
			script: func(env *scriptedEnv) {
				env.On("Run", mock.Anything, commandLine("kill -TERM 42")).Return(&Result{ExitCode: 1}, nil).Once()
				env.On("Run", mock.Anything, commandLine("kill -TERM 42")).Return(nil, errors.New("connection reset")).Once()
				env.On("Run", mock.Anything, commandLine("kill -TERM 42")).Return(&Result{}, nil).Once()
			},
		},
		{
			name: "retries spent",
			opts: []ExecOption{WithRetry(2, time.Millisecond)},
			script: func(env *scriptedEnv) {
				env.On("Run", mock.Anything, commandLine("kill -TERM 42")).Return(&Result{ExitCode: 1}, nil).Twice()
			},
			wantCode: 1,
			wantErr:  true,
			exitCode: 1,
		},
		{
			name: "closed environment is not retried",
			opts: []ExecOption{WithRetry(5, time.Millisecond)},
			script: func(env *scriptedEnv) {
				env.On("Run", mock.Anything, commandLine("kill -TERM 42")).Return(nil, ErrEnvironmentClosed).Once()
			},
			wantErr: true,
		},
		{
			name: "sudo",
			opts: []ExecOption{WithSudo()},
			script: func(env *scriptedEnv) {
				env.On("Run", mock.Anything, commandLine("sudo -n -- kill -TERM 42")).Return(&Result{}, nil).Once()
			},
		},
		{
			name: "sudo with every setting",
			opts: []ExecOption{WithSudo(
				WithSudoUser("postgres"),
				WithSudoGroup("admin"),
				WithSudoPreserveEnv(),
				WithSudoFlags("-H", "-k"),
			)},
			script: func(env *scriptedEnv) {
				env.On("Run", mock.Anything, commandLine("sudo -n -u postgres -g admin -E -H -k -- kill -TERM 42")).Return(&Result{}, nil).Once()
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			env := new(scriptedEnv)
			tt.script(env)

			res, err := NewExecutor(env).Run(context.Background(), NewCommand("kill", "-TERM", "42"), tt.opts...)

			if tt.wantErr {
				require.Error(t, err)
			} else {
				require.NoError(t, err)
				require.NotNil(t, res)
			}

			if tt.exitCode != 0 {
				var exitErr *ExitError
				require.ErrorAs(t, err, &exitErr)
				assert.Equal(t, tt.exitCode, exitErr.ExitCode)
				assert.Equal(t, tt.wantCode, res.ExitCode)
			}

			env.AssertExpectations(t)
		})
	}
}

func TestExecutor_Run_Timeout(t *testing.T) {
	t.Parallel()

	env := new(scriptedEnv)

	// A hung command only returns once its context is done.
	env.On("Run", mock.Anything, commandLine("taskkill /PID 42")).Return(nil, context.DeadlineExceeded).Run(func(args mock.Arguments) {
		<-args.Get(0).(context.Context).Done()
	}).Once()

	start := time.Now()
	_, err := NewExecutor(env).Run(context.Background(), NewCommand("taskkill", "/PID", "42"), WithTimeout(20*time.Millisecond))

	require.ErrorIs(t, err, ErrTimedOut)
	assert.Less(t, time.Since(start), 5*time.Second)
	env.AssertExpectations(t)
}

func TestExecutor_Run_ParentCancelIsNotTimeout(t *testing.T) {
	t.Parallel()

	env := new(scriptedEnv)
	env.On("Run", mock.Anything, commandLine("kill -0 42")).Return(nil, context.Canceled).Once()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewExecutor(env).Run(ctx, NewCommand("kill", "-0", "42"), WithTimeout(time.Minute))

	require.ErrorIs(t, err, context.Canceled)
	assert.NotErrorIs(t, err, ErrTimedOut)
}

func TestExecutor_RunBuffered_AttachesStderr(t *testing.T) {
	t.Parallel()

	env := new(scriptedEnv)
	env.On("Run", mock.Anything, commandLine("kill -KILL 42")).Run(func(args mock.Arguments) {
		c := args.Get(1).(*Command)
		_, _ = c.Stderr.Write([]byte("kill: (42) - No such process\n"))
	}).Return(&Result{ExitCode: 1}, nil)

	cmd := NewCommand("kill", "-KILL", "42")

	res, err := NewExecutor(env).RunBuffered(context.Background(), cmd)

	var exitErr *ExitError
	require.ErrorAs(t, err, &exitErr)
	assert.Equal(t, "kill: (42) - No such process\n", string(exitErr.Stderr))
	assert.Equal(t, "kill: (42) - No such process", res.Diagnostic())
	assert.Equal(t, 1, res.ExitCode)

	// The caller's command is left untouched.
	assert.Nil(t, cmd.Stderr)
}
