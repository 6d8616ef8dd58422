// =============================================================================
// Order Reconciler - Main Entry Point
// =============================================================================
//
// This is the main entry point for the Order Reconciler CLI. It delegates
// command execution to the cmd package.
//
// USAGE:
//   reconciler cancellations - Build the cancelled products report
//   reconciler pickup        - Fill the daily pickup report
//   reconciler returns       - Build the combined returns report
//   reconciler status        - Show which input files are present
//   reconciler reset         - Delete a report's input files
//   reconciler version       - Display the application version
//
// ARCHITECTURE:
//   - cmd/       : CLI command definitions (Cobra)
//   - internal/  : Extraction, normalization, matching and report writing
//   - pkg/       : Input layout, status, reset and run logs
//
// =============================================================================

package main

import (
	"github.com/ginjaninja78/order-reconciler/cmd"
)

func main() {
	cmd.Execute()
}
