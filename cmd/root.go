// =============================================================================
// Order Reconciler - Root Command
// =============================================================================
//
// This file defines the root command for the Cobra CLI. Every report command
// is attached to it.
//
// COBRA CLI STRUCTURE:
//   rootCmd (reconciler)
//   ├── cancellationsCmd (reconciler cancellations)
//   ├── pickupCmd        (reconciler pickup)
//   ├── returnsCmd       (reconciler returns)
//   ├── statusCmd        (reconciler status)
//   ├── resetCmd         (reconciler reset)
//   └── versionCmd       (reconciler version)
//
// CONFIGURATION:
//   The report commands share setup():
//   1. Load config.yaml, .env and RECON_* overrides
//   2. Validate the configuration
//   3. Build the zap logger (--verbose forces debug)
//   4. Create the input/output directory layout
//
// =============================================================================

package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/ginjaninja78/order-reconciler/internal/config"
	"github.com/ginjaninja78/order-reconciler/internal/logging"
	"github.com/ginjaninja78/order-reconciler/internal/validation"
	"github.com/ginjaninja78/order-reconciler/pkg/utils"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// =============================================================================
// GLOBAL VARIABLES
// =============================================================================

// cfgFile holds the path to the main configuration file.
// This can be overridden using the --config flag.
var cfgFile string

// verbose enables debug logging when set to true.
var verbose bool

// =============================================================================
// ROOT COMMAND DEFINITION
// =============================================================================

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "reconciler",
	Short: "Order Reconciler - Reconcile marketplace orders into daily reports",
	Long: `Order Reconciler turns the daily exports of Meesho, Flipkart (KC and LL) and
Amazon Sellerflex into three operational reports:

  - Cancellations: products cancelled after they were manifested for pickup
  - Pickup:        tracking IDs to hand over, per channel and courier
  - Returns:       every channel's returns in one sheet

Input files are read from the InputDIR layout; reports are written to
OutputDIR. A missing or malformed input file never stops a run; it is
reported and the other sources are still processed.

Example Usage:
  reconciler status                      # Which input files are present
  reconciler cancellations               # Build Cancel_product_report.xlsx
  reconciler pickup --dry-run            # Show tracking IDs without writing
  reconciler returns --config ./my.yaml  # Use a custom configuration file`,

	SilenceUsage:  true,
	SilenceErrors: true,

	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

// =============================================================================
// EXECUTE FUNCTION
// =============================================================================

// Execute runs the CLI. This is called by main.main().
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// =============================================================================
// INITIALIZATION
// =============================================================================

func init() {
	rootCmd.PersistentFlags().StringVar(
		&cfgFile,
		"config",
		config.DefaultConfigFile,
		"Path to the main configuration file",
	)

	rootCmd.PersistentFlags().BoolVarP(
		&verbose,
		"verbose",
		"v",
		false,
		"Enable verbose output for debugging",
	)
}

// =============================================================================
// SHARED SETUP
// =============================================================================

// app carries what every report command needs.
type app struct {
	cfg    *config.MainConfig
	logger *zap.SugaredLogger
	files  *utils.FileManager
}

// setup loads and validates the configuration and builds the logger.
//
// RETURNS:
//   - The app and a cleanup function that flushes the logger.
//   - An error if the configuration is unusable.
func setup() (*app, func(), error) {
	cfg, err := config.LoadMainConfig(cfgFile)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load main config: %w", err)
	}

	result := validation.ValidateConfig(cfg)
	if err := result.Err(); err != nil {
		return nil, nil, err
	}

	level := cfg.LogLevel
	if verbose {
		level = "debug"
	}
	logger, err := logging.New(level, cfg.LogFile)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to set up logging: %w", err)
	}
	cleanup := func() { _ = logger.Sync() }

	for _, w := range result.Warnings() {
		logger.Warnf("Config: %s", w)
	}

	files := utils.NewFileManager(cfg)
	if err := files.EnsureDirectories(); err != nil {
		cleanup()
		return nil, nil, err
	}

	logger.Debugf("Input: %s, output: %s, templates: %s", cfg.InputDir, cfg.OutputDir, cfg.TemplateDir)

	return &app{cfg: cfg, logger: logger, files: files}, cleanup, nil
}

// runContext returns a context cancelled on Ctrl+C.
func runContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	return signal.NotifyContext(parent, os.Interrupt)
}

// finish writes the error and summary logs for a run. Failing to write a
// log is reported but does not fail the command.
func (a *app) finish(summary utils.RunSummary) {
	if path, err := utils.WriteErrorLog(summary, a.cfg.OutputDir); err != nil {
		a.logger.Warnf("Could not write error log: %v", err)
	} else if path != "" {
		fmt.Printf("Diagnostics logged to %s\n", path)
	}

	if _, err := utils.WriteSummaryLog(summary, a.cfg.OutputDir); err != nil {
		a.logger.Warnf("Could not write summary log: %v", err)
	}
}
