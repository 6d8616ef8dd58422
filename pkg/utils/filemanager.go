// =============================================================================
// Order Reconciler - File Manager Utility
// =============================================================================
//
// This module maps the on-disk input layout onto the engine's Sources, and
// handles everything else the CLI does with files:
//   - Directory management
//   - Source discovery per report
//   - Required-file status
//   - Input reset
//   - Error and summary log generation
//
// INPUT LAYOUT (under InputDir):
//   CancellationReport/   Meesho_data.csv, *Flipkart*.csv cancel exports
//   PickupReportfiles/    Manifest.pdf, Sellerflex.csv, Flipkart KC/LL.csv
//   Returnsreportfiles/   Returns Meesho/Flipkart KC/Flipkart LL/SellerFlex.csv
//
// The cancellation flow pairs every Flipkart cancel export with the pickup
// export of the same file name in PickupReportfiles.
//
// =============================================================================

package utils

import (
	"bufio"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/ginjaninja78/order-reconciler/internal/config"
	"github.com/ginjaninja78/order-reconciler/internal/types"
)

// KindAll selects every report for ResetInputs.
const KindAll types.ReportKind = "all"

// ParseReportKind accepts the report names used on the command line.
func ParseReportKind(s string) (types.ReportKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "cancellation", "cancellations", "cancel":
		return types.KindCancellation, nil
	case "pickup":
		return types.KindPickup, nil
	case "returns", "return":
		return types.KindReturns, nil
	case "all":
		return KindAll, nil
	default:
		return "", fmt.Errorf("unknown report %q (want cancellations, pickup, returns or all)", s)
	}
}

// =============================================================================
// FILE MANAGER
// =============================================================================

// FileManager resolves report inputs and outputs from the configuration.
type FileManager struct {
	// InputDir is the root of the input layout.
	InputDir string

	// OutputDir receives reports and logs.
	OutputDir string

	// TemplateDir holds the pickup and returns templates.
	TemplateDir string

	cfg *config.MainConfig
}

// NewFileManager creates a FileManager for cfg.
func NewFileManager(cfg *config.MainConfig) *FileManager {
	return &FileManager{
		InputDir:    cfg.InputDir,
		OutputDir:   cfg.OutputDir,
		TemplateDir: cfg.TemplateDir,
		cfg:         cfg,
	}
}

// dir returns the input subdirectory for a report.
func (fm *FileManager) dir(sub string) string {
	return filepath.Join(fm.InputDir, sub)
}

// OutputPath joins name onto the output directory.
func (fm *FileManager) OutputPath(name string) string {
	return filepath.Join(fm.OutputDir, name)
}

// TemplatePath joins name onto the template directory.
func (fm *FileManager) TemplatePath(name string) string {
	return filepath.Join(fm.TemplateDir, name)
}

// =============================================================================
// DIRECTORY MANAGEMENT
// =============================================================================

// EnsureDirectories creates the input layout, the output directory and the
// template directory if they don't exist.
//
// RETURNS:
//   - An error if any directory cannot be created.
func (fm *FileManager) EnsureDirectories() error {
	dirs := []string{
		fm.dir(fm.cfg.Cancellation.Dir),
		fm.dir(fm.cfg.Cancellation.PickupDir),
		fm.dir(fm.cfg.Pickup.Dir),
		fm.dir(fm.cfg.Returns.Dir),
		fm.OutputDir,
		fm.TemplateDir,
	}

	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	return nil
}

// =============================================================================
// SOURCE DISCOVERY
// =============================================================================

// CancellationSources registers the Meesho sources and every Flipkart
// cancel/pickup pair. Paths are registered whether or not they exist; the
// engine reports missing files as diagnostics.
//
// RETURNS:
//   - The sources keyed as the engine expects.
//   - An error if the Flipkart pattern is malformed.
func (fm *FileManager) CancellationSources() (types.Sources, error) {
	c := fm.cfg.Cancellation
	cancelDir := fm.dir(c.Dir)
	pickupDir := fm.dir(c.PickupDir)

	sources := types.Sources{
		types.SourceMeeshoManifest: filepath.Join(pickupDir, c.ManifestFile),
		types.SourceMeeshoData:     filepath.Join(cancelDir, c.MeeshoLookup.File),
	}

	exports, err := discover(cancelDir, c.FlipkartPattern)
	if err != nil {
		return nil, err
	}
	for _, path := range exports {
		name := filepath.Base(path)
		sources[types.FlipkartCancelPrefix+name] = path
		sources[types.FlipkartPickupPrefix+name] = filepath.Join(pickupDir, name)
	}

	return sources, nil
}

// PickupSources registers every configured pickup CSV and the manifest.
func (fm *FileManager) PickupSources() types.Sources {
	p := fm.cfg.Pickup
	dir := fm.dir(p.Dir)

	sources := types.Sources{types.SourceMeeshoManifest: filepath.Join(dir, p.ManifestFile)}
	for _, src := range p.Sources {
		sources[src.Name] = filepath.Join(dir, src.File)
	}
	return sources
}

// ReturnsSources registers every configured returns export.
func (fm *FileManager) ReturnsSources() types.Sources {
	dir := fm.dir(fm.cfg.Returns.Dir)

	sources := make(types.Sources, len(fm.cfg.Returns.Sources))
	for _, desc := range fm.cfg.Returns.Sources {
		sources[desc.Name] = filepath.Join(dir, desc.File)
	}
	return sources
}

// discover returns the regular files in dir matching pattern, sorted.
// A missing dir yields no files.
func discover(dir, pattern string) ([]string, error) {
	matches, err := filepath.Glob(filepath.Join(dir, pattern))
	if err != nil {
		return nil, fmt.Errorf("failed to scan %s: %w", dir, err)
	}

	var files []string
	for _, m := range matches {
		info, err := os.Stat(m)
		if err != nil || info.IsDir() {
			continue
		}
		files = append(files, m)
	}
	sort.Strings(files)
	return files, nil
}

// =============================================================================
// REQUIRED FILES STATUS
// =============================================================================

// FileStatus is one line of the required-files panel.
type FileStatus struct {
	Report  types.ReportKind
	Label   string
	Path    string
	Present bool
}

// RequiredFiles lists the inputs a report looks for and whether each is
// present. Flipkart cancellation exports are discovered, so they appear as
// one line per export found, or a single missing line when there are none.
func (fm *FileManager) RequiredFiles(kind types.ReportKind) ([]FileStatus, error) {
	var out []FileStatus
	add := func(label, path string) {
		out = append(out, FileStatus{Report: kind, Label: label, Path: path, Present: FileExists(path)})
	}

	switch kind {
	case types.KindCancellation:
		sources, err := fm.CancellationSources()
		if err != nil {
			return nil, err
		}
		add(types.SourceMeeshoManifest, sources[types.SourceMeeshoManifest])
		add(types.SourceMeeshoData, sources[types.SourceMeeshoData])

		names := sources.WithPrefix(types.FlipkartCancelPrefix)
		if len(names) == 0 {
			pattern := filepath.Join(fm.dir(fm.cfg.Cancellation.Dir), fm.cfg.Cancellation.FlipkartPattern)
			out = append(out, FileStatus{Report: kind, Label: "Flipkart Cancel Files", Path: pattern})
		}
		for _, name := range names {
			add(types.FlipkartCancelPrefix+name, sources[types.FlipkartCancelPrefix+name])
			add(types.FlipkartPickupPrefix+name, sources[types.FlipkartPickupPrefix+name])
		}

	case types.KindPickup:
		sources := fm.PickupSources()
		for _, src := range fm.cfg.Pickup.Sources {
			add(src.Name, sources[src.Name])
		}
		add(types.SourceMeeshoManifest, sources[types.SourceMeeshoManifest])
		add("Template", fm.TemplatePath(fm.cfg.Pickup.TemplateFile))

	case types.KindReturns:
		sources := fm.ReturnsSources()
		for _, desc := range fm.cfg.Returns.Sources {
			add(desc.Name, sources[desc.Name])
		}
		if fm.cfg.Returns.TemplateFile != "" {
			add("Template", fm.TemplatePath(fm.cfg.Returns.TemplateFile))
		}

	default:
		return nil, fmt.Errorf("no required files for report %q", kind)
	}

	return out, nil
}

// =============================================================================
// RESET
// =============================================================================

// ResetInputs deletes the input files of a report, keeping the directory
// structure. KindAll clears the whole input tree.
//
// RETURNS:
//   - The deleted file paths.
//   - An error if a file cannot be removed. Files deleted before the
//     failure are still returned.
func (fm *FileManager) ResetInputs(kind types.ReportKind) ([]string, error) {
	var roots []string
	switch kind {
	case types.KindCancellation:
		roots = []string{fm.dir(fm.cfg.Cancellation.Dir)}
	case types.KindPickup:
		roots = []string{fm.dir(fm.cfg.Pickup.Dir)}
	case types.KindReturns:
		roots = []string{fm.dir(fm.cfg.Returns.Dir)}
	case KindAll:
		roots = []string{fm.InputDir}
	default:
		return nil, fmt.Errorf("cannot reset report %q", kind)
	}

	var removed []string
	for _, root := range roots {
		err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				if errors.Is(err, fs.ErrNotExist) {
					return nil
				}
				return err
			}
			if d.IsDir() {
				return nil
			}
			if err := os.Remove(path); err != nil {
				return err
			}
			removed = append(removed, path)
			return nil
		})
		if err != nil {
			return removed, fmt.Errorf("failed to reset %s: %w", root, err)
		}
	}

	return removed, nil
}

// =============================================================================
// LOG GENERATION
// =============================================================================

// GenerateLogFileName builds a log file name such as
// "error_log_cancellation_20250314_183000_1a2b3c4d.txt".
func GenerateLogFileName(prefix string, kind types.ReportKind, at time.Time, runTag string) string {
	name := fmt.Sprintf("%s_%s_%s", prefix, kind, at.Format("20060102_150405"))
	if runTag != "" {
		name += "_" + runTag
	}
	return name + ".txt"
}

// RunSummary describes one finished run for the summary log.
type RunSummary struct {
	Report      types.ReportKind
	RunID       string
	StartTime   time.Time
	Duration    time.Duration
	Records     int
	PerChannel  map[string]int
	OutputFiles []string
	DryRun      bool
	Diagnostics types.Diagnostics
}

func (s RunSummary) tag() string {
	if len(s.RunID) >= 8 {
		return s.RunID[:8]
	}
	return s.RunID
}

// WriteErrorLog writes the run's diagnostics to a log file.
//
// PARAMETERS:
//   - summary: The finished run.
//   - outputDir: The directory to write the log file.
//
// RETURNS:
//   - The path to the error log file, or "" when there is nothing to log.
//   - An error if writing fails.
func WriteErrorLog(summary RunSummary, outputDir string) (string, error) {
	if len(summary.Diagnostics) == 0 {
		return "", nil
	}

	logPath := filepath.Join(outputDir, GenerateLogFileName("error_log", summary.Report, summary.StartTime, summary.tag()))

	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create log directory: %w", err)
	}
	file, err := os.Create(logPath)
	if err != nil {
		return "", fmt.Errorf("failed to create error log: %w", err)
	}
	defer file.Close()

	writer := bufio.NewWriter(file)

	fmt.Fprintf(writer, "Order Reconciler - Error Log\n"+
		"Report: %s\n"+
		"Run ID: %s\n"+
		"Generated: %s\n"+
		"Total Conditions: %d\n"+
		"================================================================================\n\n",
		summary.Report,
		summary.RunID,
		summary.StartTime.Format("2006-01-02 15:04:05"),
		len(summary.Diagnostics))

	for i, d := range summary.Diagnostics {
		fmt.Fprintf(writer, "Condition #%d\n"+
			"  Source:   %s\n"+
			"  Kind:     %s\n"+
			"  Severity: %s\n"+
			"  Message:  %s\n\n",
			i+1, d.Source, d.Kind, d.Severity, d.Message)
	}

	writer.WriteString("================================================================================\n" +
		"End of Error Log\n")

	if err := writer.Flush(); err != nil {
		return "", fmt.Errorf("failed to flush error log: %w", err)
	}

	return logPath, nil
}

// WriteSummaryLog writes a run summary to a log file.
//
// PARAMETERS:
//   - summary: The finished run.
//   - outputDir: The directory to write the summary file.
//
// RETURNS:
//   - The path to the summary file.
//   - An error if writing fails.
func WriteSummaryLog(summary RunSummary, outputDir string) (string, error) {
	summaryPath := filepath.Join(outputDir, GenerateLogFileName("run_summary", summary.Report, summary.StartTime, summary.tag()))

	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create log directory: %w", err)
	}
	file, err := os.Create(summaryPath)
	if err != nil {
		return "", fmt.Errorf("failed to create summary file: %w", err)
	}
	defer file.Close()

	writer := bufio.NewWriter(file)

	warnings, errs := 0, 0
	for _, d := range summary.Diagnostics {
		if d.Severity == types.SeverityWarn {
			warnings++
		} else {
			errs++
		}
	}

	fmt.Fprintf(writer, "Order Reconciler - Run Summary\n"+
		"================================================================================\n\n"+
		"Run Information:\n"+
		"  Report:         %s\n"+
		"  Run ID:         %s\n"+
		"  Start Time:     %s\n"+
		"  Duration:       %s\n"+
		"  Dry Run:        %t\n\n"+
		"Statistics:\n"+
		"  Records:        %d\n"+
		"  Warnings:       %d\n"+
		"  Errors:         %d\n\n",
		summary.Report,
		summary.RunID,
		summary.StartTime.Format("2006-01-02 15:04:05"),
		summary.Duration.String(),
		summary.DryRun,
		summary.Records,
		warnings,
		errs)

	if len(summary.PerChannel) > 0 {
		writer.WriteString("Per Channel:\n")
		writer.WriteString("--------------------------------------------------------------------------------\n")
		channels := make([]string, 0, len(summary.PerChannel))
		for ch := range summary.PerChannel {
			channels = append(channels, ch)
		}
		sort.Strings(channels)
		for _, ch := range channels {
			fmt.Fprintf(writer, "  %-20s %d\n", ch, summary.PerChannel[ch])
		}
		writer.WriteString("\n")
	}

	if len(summary.OutputFiles) > 0 {
		writer.WriteString("Output Files:\n")
		writer.WriteString("--------------------------------------------------------------------------------\n")
		for _, f := range summary.OutputFiles {
			fmt.Fprintf(writer, "  %s\n", f)
		}
		writer.WriteString("\n")
	}

	writer.WriteString("================================================================================\n" +
		"End of Summary\n")

	if err := writer.Flush(); err != nil {
		return "", fmt.Errorf("failed to flush summary file: %w", err)
	}

	return summaryPath, nil
}

// =============================================================================
// UTILITY FUNCTIONS
// =============================================================================

// FileExists reports whether path names an existing regular file.
func FileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
