package main

import (
	"fmt"
	"strconv"

	"github.com/ruffel/proctree"
	"github.com/spf13/cobra"
)

func newLsCmd(a *app) *cobra.Command {
	var long bool

	cmd := &cobra.Command{
		Use:   "ls NAME",
		Short: "List the pids of processes with the given image name",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			s, err := openSession(a.cfg)
			if err != nil {
				return err
			}
			defer s.Close()

			pids, err := s.killer.ListProcessesByName(ctx, args[0])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()

			if !long {
				for _, pid := range pids {
					fmt.Fprintln(out, pid)
				}

				return nil
			}

			records, err := s.killer.ProcessInfo(ctx, pids)
			if err != nil {
				return err
			}

			return renderRecords(out, records)
		},
	}

	cmd.Flags().BoolVarP(&long, "long", "l", false, "Show parent, name and elevation")

	return cmd
}

func newInfoCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "info PID...",
		Short: "Show parent, name and elevation of processes",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pids := make([]proctree.PID, 0, len(args))

			for _, arg := range args {
				pid, err := proctree.ParsePID(arg)
				if err != nil {
					return err
				}

				pids = append(pids, pid)
			}

			s, err := openSession(a.cfg)
			if err != nil {
				return err
			}
			defer s.Close()

			records, err := s.killer.ProcessInfo(cmd.Context(), pids)
			if err != nil {
				return err
			}

			return renderRecords(cmd.OutOrStdout(), records)
		},
	}
}

func newElevatedCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "elevated [PID]",
		Short: "Report whether a process, or proctree itself, runs elevated",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(a.cfg)
			if err != nil {
				return err
			}
			defer s.Close()

			var elevated bool

			if len(args) == 0 {
				elevated, err = s.killer.IsCurrentProcessElevated(cmd.Context())
			} else {
				var pid proctree.PID

				pid, err = proctree.ParsePID(args[0])
				if err != nil {
					return err
				}

				elevated, err = s.killer.IsProcessElevated(cmd.Context(), pid)
			}

			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), strconv.FormatBool(elevated))

			return nil
		},
	}
}
