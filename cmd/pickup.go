// =============================================================================
// Order Reconciler - Pickup Command
// =============================================================================
//
// COMMAND USAGE:
//   reconciler pickup [flags]
//
// FLAGS:
//   --template  : Pickup template to fill (default: <template_dir>/Pickup Report.xlsx)
//   --in-place  : Write into the template itself; its name must be
//                 Pickup_Report_<dd-mm-YYYY>.xlsx for today
//   --dry-run   : Print the tracking IDs and pivots without writing
//
// OUTPUT:
//   Pickup_Report_<dd-mm-YYYY>.xlsx   tracking IDs under columns A, D-I
//   Pivot_Summary_<dd-mm-YYYY>.xlsx   SKU x quantity pivot per CSV source
//
// =============================================================================

package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/ginjaninja78/order-reconciler/internal/engine"
	"github.com/ginjaninja78/order-reconciler/internal/report"
	"github.com/ginjaninja78/order-reconciler/internal/types"
	"github.com/ginjaninja78/order-reconciler/pkg/utils"
	"github.com/spf13/cobra"
)

var (
	pickupTemplate string
	pickupInPlace  bool
	pickupDryRun   bool
)

var pickupCmd = &cobra.Command{
	Use:   "pickup",
	Short: "Collect tracking IDs for the daily pickup report",
	Long: `The pickup command collects the tracking IDs of today's shipments:

  - Sellerflex, Flipkart KC and Flipkart LL from their pickup CSVs
  - Meesho AWBs from Manifest.pdf, one column per courier, with unknown
    couriers under Others

IDs are deduplicated and written into the "Entry tracking ID" sheet of the
pickup template, starting at row 3, with the date in K1.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runPickup(cmd)
	},
}

func init() {
	rootCmd.AddCommand(pickupCmd)

	pickupCmd.Flags().StringVar(
		&pickupTemplate,
		"template",
		"",
		"Pickup template workbook (default: the configured template)",
	)
	pickupCmd.Flags().BoolVar(
		&pickupInPlace,
		"in-place",
		false,
		"Overwrite the template instead of writing a new file",
	)
	pickupCmd.Flags().BoolVar(
		&pickupDryRun,
		"dry-run",
		false,
		"Print the tracking IDs without writing",
	)
}

func runPickup(cmd *cobra.Command) error {
	a, cleanup, err := setup()
	if err != nil {
		return err
	}
	defer cleanup()

	ctx, cancel := runContext(cmd)
	defer cancel()

	cfg := a.cfg.Pickup
	eng := engine.New(a.cfg, engine.WithLogger(a.logger))

	template := pickupTemplate
	if template == "" {
		template = a.files.TemplatePath(cfg.TemplateFile)
	}

	// =========================================================================
	// STEP 1: CHECK THE TEMPLATE
	// =========================================================================
	// Fail before reading any input when the template cannot be written.

	if !pickupDryRun {
		if pickupInPlace {
			if err := report.CheckInPlaceTemplate(template, cfg.OutputPattern, eng.Now()); err != nil {
				return err
			}
		}
		if err := report.CheckTemplate(template, cfg.Sheet); err != nil {
			return err
		}
	}

	// =========================================================================
	// STEP 2: RUN
	// =========================================================================

	fmt.Println("=== Pickup Extraction ===")
	res, err := eng.RunPickupExtraction(ctx, a.files.PickupSources())
	if err != nil {
		return err
	}

	printPickup(os.Stdout, res.Columns, columnNames(cfg.ColumnLetters))
	printPivots(os.Stdout, res.Pivots)
	printDiagnostics(os.Stdout, res.Diagnostics)

	perColumn := make(map[string]int, len(res.Columns))
	records := 0
	for letter, ids := range res.Columns {
		perColumn[letter] = len(ids)
		records += len(ids)
	}
	summary := utils.RunSummary{
		Report:      types.KindPickup,
		RunID:       res.RunID,
		StartTime:   res.Date,
		Duration:    res.Duration,
		Records:     records,
		PerChannel:  perColumn,
		DryRun:      pickupDryRun,
		Diagnostics: res.Diagnostics,
	}

	if pickupDryRun {
		fmt.Println("\nDry run: nothing written.")
		a.finish(summary)
		return nil
	}

	// =========================================================================
	// STEP 3: WRITE
	// =========================================================================

	written, err := writePickup(ctx, a, res, template)
	summary.OutputFiles = written
	a.finish(summary)
	return err
}

// writePickup writes the pickup workbook and the pivot workbook.
func writePickup(ctx context.Context, a *app, res *engine.PickupResult, template string) ([]string, error) {
	cfg := a.cfg.Pickup
	sink := report.NewXLSXSink()

	var written []string

	if len(res.Columns) == 0 {
		fmt.Println("\nNo tracking IDs found; pickup report not written.")
	} else {
		dest := a.files.OutputPath(report.DatedName(cfg.OutputPattern, res.Date))
		err := sink.WritePickup(ctx, res.Columns, report.PickupOptions{
			Template:    template,
			Dest:        dest,
			InPlace:     pickupInPlace,
			NamePattern: cfg.OutputPattern,
			Sheet:       cfg.Sheet,
			StartRow:    cfg.StartRow,
			DateCell:    cfg.DateCell,
			Date:        res.Date,
		})
		if err != nil {
			return written, fmt.Errorf("failed to save pickup report: %w", err)
		}
		if pickupInPlace {
			dest = template
		}
		written = append(written, dest)
		fmt.Printf("\nPickup report saved: %s\n", dest)
	}

	if cfg.PivotPattern != "" && len(res.Pivots) > 0 {
		dest := a.files.OutputPath(report.DatedName(cfg.PivotPattern, res.Date))
		if err := sink.WritePivots(ctx, res.Pivots, dest); err != nil {
			return written, fmt.Errorf("failed to save pivot summary: %w", err)
		}
		written = append(written, dest)
		fmt.Printf("Pivot summary saved: %s\n", dest)
	}

	return written, nil
}

// columnNames inverts the column letter mapping for display. Letters shared
// by several sources keep the first name in sorted order.
func columnNames(letters map[string]string) map[string]string {
	out := make(map[string]string, len(letters))
	for name, letter := range letters {
		if prev, ok := out[letter]; !ok || name < prev {
			out[letter] = name
		}
	}
	return out
}
