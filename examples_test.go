package proctree_test

import (
	"context"
	"fmt"
	"io"
	"log"
	"strings"

	"github.com/ruffel/proctree"
	"github.com/ruffel/proctree/providers/local"
	"github.com/ruffel/proctree/providers/mock"
	"github.com/ruffel/proctree/providers/ssh"
	"github.com/ruffel/proctree/systools"
	"github.com/sirupsen/logrus"
	testifymock "github.com/stretchr/testify/mock"
)

func ExampleExecutor_RunBuffered_local() {
	env, err := local.New()
	if err != nil {
		panic(err)
	}

	defer func() { _ = env.Close() }()

	res, err := proctree.NewExecutor(env).RunBuffered(context.Background(), proctree.NewCommand("echo", "tree", "root"))
	if err != nil {
		panic(err)
	}

	fmt.Printf("%s", res.Stdout)
	// Output: tree root
}

func ExampleExecutor_Run_sudo() {
	// kill only succeeds once sudo wraps it.
	env := mock.New()
	env.ExpectRun("sudo -n -u postgres -- kill -TERM 4242", 0, "", "")

	_, err := proctree.NewExecutor(env).Run(context.Background(),
		proctree.NewCommand("kill", "-TERM", "4242"),
		proctree.WithSudo(proctree.WithSudoUser("postgres")),
	)

	fmt.Println("signalled:", err == nil)
	// Output: signalled: true
}

func ExampleKiller_KillTree() {
	// A Windows host where explorer (100) started a shell (200) that
	// started a worker (300).
	env := mock.New()
	env.On("TargetOS").Return(proctree.OSWindows)
	env.On("LookPath", testifymock.Anything, "wmic").Return(`C:\Windows\System32\wbem\WMIC.exe`, nil)
	env.ExpectRun("wmic process get ProcessId,ParentProcessId /format:csv", 0,
		"Node,ParentProcessId,ProcessId\r\nHOST,4,100\r\nHOST,100,200\r\nHOST,200,300\r\nHOST,4,500\r\n", "")

	for _, pid := range []string{"100", "200", "300"} {
		env.ExpectRun("taskkill /PID "+pid, 0, "SUCCESS: Sent termination signal.\r\n", "")
		env.ExpectRun(`tasklist /FI "PID eq `+pid+`" /FO CSV /NH`, 0,
			"INFO: No tasks are running which match the specified criteria.\r\n", "")
	}

	quiet := logrus.New()
	quiet.SetOutput(io.Discard)

	killer := proctree.NewKiller(
		systools.New(env, systools.WithLogger(quiet), systools.WithGracePeriod(0)),
		proctree.WithLogger(quiet),
		proctree.WithParallelism(1),
	)

	report, err := killer.KillTree(context.Background(), 100)
	if err != nil {
		panic(err)
	}

	for _, out := range report.Descendants {
		fmt.Printf("pid %d %s\n", out.PID, out.Kind)
	}

	fmt.Printf("root %d %s\n", report.RootOutcome.PID, report.RootOutcome.Kind)

	// Output:
	// pid 300 terminated
	// pid 200 terminated
	// root 100 terminated
}

func Example_sshConfigReader() {
	cfg, err := ssh.FromSSHConfigReader("build-box", strings.NewReader(`
Host build-box
  HostName 10.20.0.7
  User ci
  Port 2022
`))
	if err != nil {
		log.Fatal(err)
	}

	fmt.Printf("%s@%s:%d\n", cfg.User, cfg.Host, cfg.Port)
	// Output: ci@10.20.0.7:2022
}

func ExampleCmd_builder() {
	cmd := proctree.Cmd("sh").
		Arg("-c").
		Arg("echo $GREETING").
		Env("GREETING", "hello builder").
		Build()

	env, _ := local.New()

	defer func() { _ = env.Close() }()

	res, err := proctree.NewExecutor(env).RunBuffered(context.Background(), cmd)
	if err != nil {
		panic(err)
	}

	fmt.Printf("%s", res.Stdout)

	// Output:
	// hello builder
}
