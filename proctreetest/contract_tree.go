package proctreetest

import (
	"fmt"
	"strings"
	"time"

	"github.com/ruffel/proctree"
	"github.com/ruffel/proctree/systools"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	treeSettle  = 10 * time.Second
	treePoll    = 50 * time.Millisecond
	treeGrace   = time.Second
	treeTimeout = 20 * time.Second
)

func treeContracts() []TestCase {
	return []TestCase{
		killTreeContract(),
		killTreeUnknownRootContract(),
	}
}

func posixOnly(_ T, env proctree.Environment) (bool, string) {
	if !env.TargetOS().IsPOSIX() {
		return false, "tree contracts use sh, sleep and kill"
	}

	return true, ""
}

func quietTools(env proctree.Environment) *proctree.Killer {
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)

	return systools.NewKiller(env,
		systools.WithLogger(log),
		systools.WithGracePeriod(treeGrace),
		systools.WithPollInterval(treePoll),
	)
}

func killTreeContract() TestCase {
	return TestCase{
		Category:    CategoryTree,
		Name:        "kill-tree",
		Description: "A shell and its background children are all terminated",
		Prereq:      posixOnly,
		Run: func(t T, env proctree.Environment) {
			pidFile := "/tmp/proctree-contract-" + strings.ReplaceAll(t.Name(), "/", "_") + ".pid"
			exec := proctree.NewExecutor(env)

			defer func() {
				_, _ = exec.Run(t.Context(), proctree.NewCommand("rm", "-f", pidFile))
			}()

			script := fmt.Sprintf("sleep 300 & sleep 300 & echo $$ > %s; wait", pidFile)

			process, err := env.Start(t.Context(), env.TargetOS().ShellCommand(script))
			require.NoError(t, err)

			defer func() {
				_ = process.Close()
			}()

			var root proctree.PID

			require.Eventually(t, func() bool {
				res, err := exec.RunBuffered(t.Context(), proctree.NewCommand("cat", pidFile))
				if err != nil {
					return false
				}

				root, err = proctree.ParsePID(string(res.Stdout))

				return err == nil
			}, treeSettle, treePoll, "shell never wrote its pid")

			killer := quietTools(env)
			platform := systools.New(env)

			require.Eventually(t, func() bool {
				parents, err := platform.ParentLinks(t.Context())

				return err == nil && len(proctree.ExpandDescendants(root, parents)) >= 3
			}, treeSettle, treePoll, "background children never appeared")

			report, err := killer.KillTree(t.Context(), root)
			require.NoError(t, err)
			assert.Len(t, report.Descendants, 2)
			assert.Empty(t, report.Failures())
			assert.True(t, report.RootOutcome.Succeeded(), "root: %v", report.RootOutcome)

			waited := make(chan struct{})

			go func() {
				_ = process.Wait()

				close(waited)
			}()

			select {
			case <-waited:
			case <-time.After(treeTimeout):
				t.Errorf("shell %d still running after tree kill", root)
			}

			parents, err := platform.ParentLinks(t.Context())
			require.NoError(t, err)
			assert.NotContains(t, parents, root)
		},
	}
}

func killTreeUnknownRootContract() TestCase {
	return TestCase{
		Category:    CategoryTree,
		Name:        "kill-tree-unknown-root",
		Description: "Killing a pid that is not running reports false without error",
		Prereq:      posixOnly,
		Run: func(t T, env proctree.Environment) {
			const unused = proctree.PID(1<<22 - 3)

			ok, err := quietTools(env).KillProcessTree(t.Context(), unused)
			require.NoError(t, err)
			assert.False(t, ok)
		},
	}
}
