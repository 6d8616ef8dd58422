// =============================================================================
// Order Reconciler - Returns Command
// =============================================================================
//
// COMMAND USAGE:
//   reconciler returns [--dry-run]
//
// Normalizes the Meesho, Flipkart KC/LL and SellerFlex returns exports into
// one table and writes it into the "Data" sheet of ReturnsReconcileReport.xlsx
// (rows from A2, run date in O7 and O8). Without the template a plain
// workbook with a header row is written instead.
//
// =============================================================================

package cmd

import (
	"fmt"
	"os"

	"github.com/ginjaninja78/order-reconciler/internal/combiner"
	"github.com/ginjaninja78/order-reconciler/internal/engine"
	"github.com/ginjaninja78/order-reconciler/internal/report"
	"github.com/ginjaninja78/order-reconciler/internal/types"
	"github.com/ginjaninja78/order-reconciler/pkg/utils"
	"github.com/spf13/cobra"
)

var returnsDryRun bool

var returnsCmd = &cobra.Command{
	Use:   "returns",
	Short: "Combine every channel's returns into one report",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runReturns(cmd)
	},
}

func init() {
	rootCmd.AddCommand(returnsCmd)

	returnsCmd.Flags().BoolVar(
		&returnsDryRun,
		"dry-run",
		false,
		"Print the report without writing it",
	)
}

func runReturns(cmd *cobra.Command) error {
	a, cleanup, err := setup()
	if err != nil {
		return err
	}
	defer cleanup()

	ctx, cancel := runContext(cmd)
	defer cancel()

	fmt.Println("=== Returns Reconciliation ===")
	res, err := engine.New(a.cfg, engine.WithLogger(a.logger)).
		RunReturnsReconciliation(ctx, a.files.ReturnsSources())
	if err != nil {
		return err
	}

	printReport(os.Stdout, res.Report, displayLimit)
	printDiagnostics(os.Stdout, res.Diagnostics)

	summary := utils.RunSummary{
		Report:      types.KindReturns,
		RunID:       res.RunID,
		StartTime:   res.Date,
		Duration:    res.Duration,
		Records:     len(res.Report.Rows),
		PerChannel:  combiner.CountByChannel(res.Report),
		DryRun:      returnsDryRun,
		Diagnostics: res.Diagnostics,
	}

	switch {
	case returnsDryRun:
		fmt.Println("\nDry run: report not written.")
	case res.Report.Empty():
		fmt.Println("\nNo returns found; report not written.")
	default:
		cfg := a.cfg.Returns
		opts := report.TableOptions{
			Dest:      a.files.OutputPath(cfg.OutputFile),
			Sheet:     cfg.Sheet,
			StartRow:  cfg.StartRow,
			DateCells: cfg.DateCells,
			Date:      res.Date,
		}
		if cfg.TemplateFile != "" {
			opts.Template = a.files.TemplatePath(cfg.TemplateFile)
			if !utils.FileExists(opts.Template) {
				a.logger.Warnf("Template %s not found, writing a plain workbook", opts.Template)
			}
		}

		if err := report.NewXLSXSink().WriteReturns(ctx, res.Report, opts); err != nil {
			a.finish(summary)
			return fmt.Errorf("failed to save report: %w", err)
		}
		summary.OutputFiles = append(summary.OutputFiles, opts.Dest)
		fmt.Printf("\nReport saved: %s (%d records)\n", opts.Dest, len(res.Report.Rows))
	}

	a.finish(summary)
	return nil
}
