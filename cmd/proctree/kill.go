package main

import (
	"context"
	"fmt"

	"github.com/ruffel/proctree"
	"github.com/spf13/cobra"
)

func newKillCmd(a *app) *cobra.Command {
	var byName bool

	cmd := &cobra.Command{
		Use:   "kill PID... | kill --name NAME...",
		Short: "Terminate processes together with all of their descendants",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			s, err := openSession(a.cfg)
			if err != nil {
				return err
			}
			defer s.Close()

			roots, err := resolveRoots(ctx, s.killer, args, byName)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()

			if len(roots) == 0 {
				fmt.Fprintln(out, goneStyle.Render("no matching processes"))

				return nil
			}

			failed := 0

			for _, root := range roots {
				report, err := s.killer.KillTree(ctx, root)
				if err != nil {
					return fmt.Errorf("kill %d: %w", root, err)
				}

				renderReport(out, report)

				if !report.RootOutcome.Succeeded() {
					failed++
				}
			}

			if failed > 0 {
				return fmt.Errorf("%d of %d process trees could not be terminated", failed, len(roots))
			}

			return nil
		},
	}

	cmd.Flags().BoolVarP(&byName, "name", "n", false, "Treat arguments as image names (case-insensitive)")

	return cmd
}

// resolveRoots turns arguments into distinct pids, in argument order.
func resolveRoots(ctx context.Context, k *proctree.Killer, args []string, byName bool) ([]proctree.PID, error) {
	seen := make(map[proctree.PID]bool)

	var roots []proctree.PID

	add := func(pid proctree.PID) {
		if !seen[pid] {
			seen[pid] = true
			roots = append(roots, pid)
		}
	}

	for _, arg := range args {
		if !byName {
			pid, err := proctree.ParsePID(arg)
			if err != nil {
				return nil, err
			}

			add(pid)

			continue
		}

		pids, err := k.ListProcessesByName(ctx, arg)
		if err != nil {
			return nil, err
		}

		for _, pid := range pids {
			add(pid)
		}
	}

	return roots, nil
}
