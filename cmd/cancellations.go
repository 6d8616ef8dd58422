// =============================================================================
// Order Reconciler - Cancellations Command
// =============================================================================
//
// COMMAND USAGE:
//   reconciler cancellations [flags]
//
// FLAGS:
//   --date      : Treat this day (YYYY-MM-DD) as today for the Flipkart filter
//   --dry-run   : Print the report without writing it
//
// PROCESSING PIPELINE:
//   1. Discover Meesho_data.csv, Manifest.pdf and the Flipkart export pairs
//   2. Run the cancellation reconciliation
//   3. Print the first 100 rows and any source conditions
//   4. Write Cancel_product_report.xlsx (skipped when empty or --dry-run)
//   5. Write the error and summary logs
//
// =============================================================================

package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/ginjaninja78/order-reconciler/internal/combiner"
	"github.com/ginjaninja78/order-reconciler/internal/engine"
	"github.com/ginjaninja78/order-reconciler/internal/report"
	"github.com/ginjaninja78/order-reconciler/internal/types"
	"github.com/ginjaninja78/order-reconciler/pkg/utils"
	"github.com/spf13/cobra"
)

// =============================================================================
// COMMAND FLAGS
// =============================================================================

var (
	cancelDate   string
	cancelDryRun bool
)

// =============================================================================
// CANCELLATIONS COMMAND DEFINITION
// =============================================================================

var cancellationsCmd = &cobra.Command{
	Use:     "cancellations",
	Aliases: []string{"cancel"},
	Short:   "Find manifested products that were cancelled",
	Long: `The cancellations command reconciles cancellation exports against what
was manifested for pickup:

  - Meesho: manifest shipments joined to Meesho_data.csv, status CANCELLED
  - Flipkart: today's "cancelled by buyer" orders joined to the pickup
    export with the same file name

The combined table is written to Cancel_product_report.xlsx.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runCancellations(cmd)
	},
}

func init() {
	rootCmd.AddCommand(cancellationsCmd)

	cancellationsCmd.Flags().StringVar(
		&cancelDate,
		"date",
		"",
		"Run as of this date (YYYY-MM-DD) instead of today",
	)
	cancellationsCmd.Flags().BoolVar(
		&cancelDryRun,
		"dry-run",
		false,
		"Print the report without writing it",
	)
}

// =============================================================================
// MAIN PROCESSING FUNCTION
// =============================================================================

func runCancellations(cmd *cobra.Command) error {
	a, cleanup, err := setup()
	if err != nil {
		return err
	}
	defer cleanup()

	ctx, cancel := runContext(cmd)
	defer cancel()

	opts := []engine.Option{engine.WithLogger(a.logger)}
	if cancelDate != "" {
		day, err := time.ParseInLocation("2006-01-02", cancelDate, time.Local)
		if err != nil {
			return fmt.Errorf("invalid --date %q: want YYYY-MM-DD", cancelDate)
		}
		opts = append(opts, engine.WithClock(func() time.Time { return day }))
	}

	// =========================================================================
	// STEP 1: DISCOVER SOURCES
	// =========================================================================

	sources, err := a.files.CancellationSources()
	if err != nil {
		return err
	}

	// =========================================================================
	// STEP 2: RUN
	// =========================================================================

	fmt.Println("=== Cancellation Reconciliation ===")
	res, err := engine.New(a.cfg, opts...).RunCancellationReconciliation(ctx, sources)
	if err != nil {
		return err
	}

	printReport(os.Stdout, res.Report, displayLimit)
	printDiagnostics(os.Stdout, res.Diagnostics)

	// =========================================================================
	// STEP 3: WRITE
	// =========================================================================

	summary := utils.RunSummary{
		Report:      types.KindCancellation,
		RunID:       res.RunID,
		StartTime:   res.Date,
		Duration:    res.Duration,
		Records:     len(res.Report.Rows),
		PerChannel:  combiner.CountByChannel(res.Report),
		DryRun:      cancelDryRun,
		Diagnostics: res.Diagnostics,
	}

	switch {
	case cancelDryRun:
		fmt.Println("\nDry run: report not written.")
	case res.Report.Empty():
		fmt.Println("\nNo cancelled products found; report not written.")
	default:
		dest := a.files.OutputPath(a.cfg.Cancellation.OutputFile)
		err := report.NewXLSXSink().WriteCancellation(ctx, res.Report, report.TableOptions{
			Dest:  dest,
			Sheet: a.cfg.Cancellation.Sheet,
			Date:  res.Date,
		})
		if err != nil {
			a.finish(summary)
			return fmt.Errorf("failed to save report: %w", err)
		}
		summary.OutputFiles = append(summary.OutputFiles, dest)
		fmt.Printf("\nReport saved: %s (%d records)\n", dest, len(res.Report.Rows))
	}

	a.finish(summary)
	return nil
}
