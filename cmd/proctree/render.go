package main

import (
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"

	"github.com/ruffel/proctree"
)

func renderReport(w io.Writer, r *proctree.Report) {
	title := fmt.Sprintf("process tree %d", r.Root)
	if r.Degraded {
		title += " (enumeration unsupported, root only)"
	}

	fmt.Fprintln(w, titleStyle.Render(title))

	for _, o := range r.Descendants {
		fmt.Fprintln(w, "  "+renderOutcome(o))
	}

	fmt.Fprintln(w, "  "+renderOutcome(r.RootOutcome)+" (root)")
}

func renderOutcome(o proctree.Outcome) string {
	switch o.Kind {
	case proctree.OutcomeTerminated:
		how := "terminated"
		if o.Forced {
			how = "killed"
		}

		return okStyle.Render(fmt.Sprintf("%-8d %s", o.PID, how))
	case proctree.OutcomeAlreadyGone:
		return goneStyle.Render(fmt.Sprintf("%-8d already gone", o.PID))
	default:
		return errorStyle.Render(fmt.Sprintf("%-8d failed: %v", o.PID, o.Err))
	}
}

func renderRecords(w io.Writer, records []proctree.ProcessRecord) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)

	fmt.Fprintln(tw, "PID\tPPID\tNAME\tELEVATED")

	for _, r := range records {
		ppid := "-"
		if r.HasParent() {
			ppid = r.ParentPID.String()
		}

		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", r.PID, ppid, r.Name, strconv.FormatBool(r.Elevated))
	}

	return tw.Flush()
}
