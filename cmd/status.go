// =============================================================================
// Order Reconciler - Status Command
// =============================================================================
//
// COMMAND USAGE:
//   reconciler status [--report cancellations|pickup|returns]
//
// Lists every input file a report looks for and whether it is present.
//
// =============================================================================

package cmd

import (
	"fmt"
	"os"

	"github.com/ginjaninja78/order-reconciler/internal/types"
	"github.com/ginjaninja78/order-reconciler/pkg/utils"
	"github.com/spf13/cobra"
)

var statusReport string

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show which required input files are present",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runStatus()
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)

	statusCmd.Flags().StringVar(
		&statusReport,
		"report",
		"all",
		"Report to check: cancellations, pickup, returns or all",
	)
}

func runStatus() error {
	a, cleanup, err := setup()
	if err != nil {
		return err
	}
	defer cleanup()

	kind, err := utils.ParseReportKind(statusReport)
	if err != nil {
		return err
	}

	kinds := []types.ReportKind{kind}
	if kind == utils.KindAll {
		kinds = []types.ReportKind{types.KindCancellation, types.KindPickup, types.KindReturns}
	}

	var all []utils.FileStatus
	missing := 0
	for _, k := range kinds {
		status, err := a.files.RequiredFiles(k)
		if err != nil {
			return err
		}
		for _, s := range status {
			if !s.Present {
				missing++
			}
		}
		all = append(all, status...)
	}

	fmt.Println("=== Required Files Status ===")
	printStatus(os.Stdout, all)
	fmt.Printf("\n%d of %d files present\n", len(all)-missing, len(all))
	return nil
}
