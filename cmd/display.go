package cmd

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/ginjaninja78/order-reconciler/internal/pivot"
	"github.com/ginjaninja78/order-reconciler/internal/types"
	"github.com/ginjaninja78/order-reconciler/pkg/utils"
)

// displayLimit is the number of report rows printed after a run.
const displayLimit = 100

func newTable(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
}

// printReport prints the first limit rows of a report and the total.
func printReport(w io.Writer, r *types.Report, limit int) {
	if r.Empty() {
		fmt.Fprintln(w, "No records found.")
		return
	}

	tw := newTable(w)
	fmt.Fprintln(tw, strings.Join(r.Schema.Columns, "\t"))
	for i := range r.Rows {
		if i == limit {
			break
		}
		fmt.Fprintln(tw, strings.Join(r.Values(i), "\t"))
	}
	tw.Flush()

	if len(r.Rows) > limit {
		fmt.Fprintf(w, "... showing first %d of %d records\n", limit, len(r.Rows))
	}
	fmt.Fprintf(w, "Total records: %d\n", len(r.Rows))
}

// printDiagnostics lists per-source conditions, if any.
func printDiagnostics(w io.Writer, ds types.Diagnostics) {
	if len(ds) == 0 {
		return
	}
	fmt.Fprintf(w, "\n%d source condition(s):\n", len(ds))
	for _, d := range ds {
		fmt.Fprintf(w, "  %s\n", d)
	}
}

// printPickup prints the tracking ID count per column.
func printPickup(w io.Writer, cols types.PickupColumns, names map[string]string) {
	if len(cols) == 0 {
		fmt.Fprintln(w, "No tracking IDs found.")
		return
	}

	tw := newTable(w)
	fmt.Fprintln(tw, "Column\tSource\tTracking IDs")
	total := 0
	for _, letter := range cols.Letters() {
		fmt.Fprintf(tw, "%s\t%s\t%d\n", letter, names[letter], len(cols[letter]))
		total += len(cols[letter])
	}
	tw.Flush()
	fmt.Fprintf(w, "Total tracking IDs: %d\n", total)
}

// printPivots prints each pivot summary.
func printPivots(w io.Writer, summaries []*pivot.Summary) {
	for _, s := range summaries {
		fmt.Fprintf(w, "\nPivot: %s (%s by %s)\n", s.Source, s.SumColumn, s.GroupColumn)
		if s.Skipped {
			fmt.Fprintf(w, "  Skipped: %s\n", s.Reason)
			continue
		}
		tw := newTable(w)
		for _, e := range s.Entries {
			fmt.Fprintf(tw, "  %s\t%s\n", e.Key, e.Total.String())
		}
		fmt.Fprintf(tw, "  Grand Total\t%s\n", s.GrandTotal().String())
		tw.Flush()
	}
}

// printStatus prints the required-files panel.
func printStatus(w io.Writer, status []utils.FileStatus) {
	tw := newTable(w)
	fmt.Fprintln(tw, "Report\tFile\tStatus\tPath")
	for _, s := range status {
		mark := "missing"
		if s.Present {
			mark = "present"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", s.Report, s.Label, mark, s.Path)
	}
	tw.Flush()
}
