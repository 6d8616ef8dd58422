// =============================================================================
// Order Reconciler - Reset Command
// =============================================================================
//
// COMMAND USAGE:
//   reconciler reset --report cancellations|pickup|returns|all [--yes]
//
// Deletes the input files of a report, keeping the directory structure, so
// the next day's exports can be dropped in. Asks for confirmation unless
// --yes is given.
//
// =============================================================================

package cmd

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/ginjaninja78/order-reconciler/pkg/utils"
	"github.com/spf13/cobra"
)

var (
	resetReport string
	resetYes    bool
)

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Delete a report's input files",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runReset(cmd)
	},
}

func init() {
	rootCmd.AddCommand(resetCmd)

	resetCmd.Flags().StringVar(
		&resetReport,
		"report",
		"",
		"Report whose inputs to delete: cancellations, pickup, returns or all",
	)
	resetCmd.Flags().BoolVarP(
		&resetYes,
		"yes",
		"y",
		false,
		"Do not ask for confirmation",
	)
	_ = resetCmd.MarkFlagRequired("report")
}

func runReset(cmd *cobra.Command) error {
	kind, err := utils.ParseReportKind(resetReport)
	if err != nil {
		return err
	}

	a, cleanup, err := setup()
	if err != nil {
		return err
	}
	defer cleanup()

	out := cmd.OutOrStdout()
	if !resetYes && !confirm(cmd.InOrStdin(), out, fmt.Sprintf("Delete all %s input files under %s?", kind, a.files.InputDir)) {
		fmt.Fprintln(out, "Reset cancelled.")
		return nil
	}

	removed, err := a.files.ResetInputs(kind)
	for _, path := range removed {
		a.logger.Debugf("Deleted %s", path)
	}
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "Reset complete. %d file(s) deleted.\n", len(removed))
	return nil
}

// confirm asks a yes/no question; anything but y or yes is a no.
func confirm(in io.Reader, out io.Writer, question string) bool {
	fmt.Fprintf(out, "%s [y/N]: ", question)
	answer, _ := bufio.NewReader(in).ReadString('\n')
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "y", "yes":
		return true
	default:
		return false
	}
}
