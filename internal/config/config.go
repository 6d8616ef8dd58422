// =============================================================================
// Order Reconciler - Configuration Module
// =============================================================================
//
// This module is responsible for loading and managing all configuration.
// It holds the directory layout, logging settings and the per-source schema
// descriptors that tell the extractors which columns to read.
//
// CONFIGURATION SOURCES (later wins):
//   1. Built-in defaults (DefaultConfig)
//   2. Main config file (config.yaml)
//   3. Optional .env file in the working directory
//   4. RECON_* environment variables
//
// SCHEMA DESCRIPTORS:
//   Every source column is addressed by a ColumnRef: a header name, optional
//   aliases and an optional zero-based index used when no header matches.
//   Format drift in a platform export is therefore a configuration change.
//
// =============================================================================

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is the config path used when --config is not given.
// A missing default file is not an error; built-in defaults apply.
const DefaultConfigFile = "config.yaml"

// =============================================================================
// MAIN CONFIGURATION STRUCTURE
// =============================================================================

// MainConfig holds the global application configuration.
type MainConfig struct {
	// =========================================================================
	// DIRECTORY SETTINGS
	// =========================================================================

	// InputDir is the root of the input layout. Each report reads from its
	// own subdirectory beneath it.
	// Default: "./InputDIR"
	InputDir string `yaml:"input_dir" validate:"required"`

	// OutputDir is where generated reports, pivot workbooks and logs go.
	// Default: "./OutputDIR"
	OutputDir string `yaml:"output_dir" validate:"required"`

	// TemplateDir holds the spreadsheet templates for the pickup and
	// returns reports.
	// Default: "./Template"
	TemplateDir string `yaml:"template_dir" validate:"required"`

	// =========================================================================
	// LOGGING SETTINGS
	// =========================================================================

	// LogFile receives a copy of all log output. Empty disables file logging.
	LogFile string `yaml:"log_file"`

	// LogLevel controls the verbosity of logging.
	// Valid values: "debug", "info", "warn", "error"
	// Default: "info"
	LogLevel string `yaml:"log_level" validate:"oneof=debug info warn error"`

	// =========================================================================
	// PARSING SETTINGS
	// =========================================================================

	// DateLayouts are tried in order when parsing cancellation dates.
	// Values matching none of them are treated as having no date.
	DateLayouts []string `yaml:"date_layouts" validate:"min=1"`

	// PDF controls how manifest pages are segmented into table cells.
	PDF PDFSettings `yaml:"pdf"`

	// =========================================================================
	// REPORTS
	// =========================================================================

	Cancellation CancellationConfig `yaml:"cancellation"`
	Pickup       PickupConfig       `yaml:"pickup"`
	Returns      ReturnsConfig      `yaml:"returns"`
}

// PDFSettings controls table reconstruction from positioned PDF text.
type PDFSettings struct {
	// CellGap is the horizontal distance, in points, that separates two
	// table cells on the same text row.
	// Default: 8
	CellGap float64 `yaml:"cell_gap" validate:"gt=0"`

	// MinTableColumns is the number of cells a text row needs to be treated
	// as part of a table.
	// Default: 3
	MinTableColumns int `yaml:"min_table_columns" validate:"min=2"`
}

// =============================================================================
// SCHEMA DESCRIPTORS
// =============================================================================

// ColumnRef identifies a source column by header name with an index fallback.
type ColumnRef struct {
	// Name is the expected header.
	Name string `yaml:"name"`

	// Aliases are alternate headers tried after Name, in order.
	Aliases []string `yaml:"aliases,omitempty"`

	// Index is the zero-based position used when no header matches.
	// Nil means the column has no positional fallback.
	Index *int `yaml:"index,omitempty"`
}

// Label returns a human readable name for logs and diagnostics.
func (c ColumnRef) Label() string {
	if c.Name != "" {
		return c.Name
	}
	if c.Index != nil {
		return fmt.Sprintf("column #%d", *c.Index)
	}
	return "<unnamed>"
}

// ColumnMapping maps one source column onto a canonical field.
type ColumnMapping struct {
	ColumnRef `yaml:",inline"`

	// Target is the canonical column name.
	Target string `yaml:"target" validate:"required"`

	// Required marks columns the source cannot be used without.
	// A missing required column makes the whole source malformed; a missing
	// optional column is filled with an empty string.
	Required bool `yaml:"required,omitempty"`
}

// DerivedField copies an already mapped canonical field into another.
type DerivedField struct {
	Target string `yaml:"target" validate:"required"`
	From   string `yaml:"from" validate:"required"`
}

// CSVSettings contains settings for parsing CSV files.
type CSVSettings struct {
	// Delimiter is the field separator. Default: ","
	Delimiter string `yaml:"delimiter"`

	// SkipRows is the number of preamble lines before the header row.
	// The Meesho returns export carries seven such lines.
	// Default: 0
	SkipRows int `yaml:"skip_rows" validate:"min=0"`

	// Encoding is the character encoding of the file.
	// Supported: "UTF-8", "ISO-8859-1", "Windows-1252"
	// Default: "UTF-8"
	Encoding string `yaml:"encoding" validate:"omitempty,oneof=UTF-8 utf-8 ISO-8859-1 iso-8859-1 latin1 Windows-1252 windows-1252 cp1252"`
}

// SourceDescriptor describes one tabular input and how it normalizes.
type SourceDescriptor struct {
	// Name is the logical source name used in diagnostics.
	Name string `yaml:"name" validate:"required"`

	// File is the file name within the report's input directory.
	File string `yaml:"file" validate:"required"`

	// Channel is the sale channel the Combiner stamps onto every row.
	Channel string `yaml:"channel"`

	CSV CSVSettings `yaml:"csv"`

	// Columns lists the source columns in canonical output order.
	Columns []ColumnMapping `yaml:"columns" validate:"dive"`

	// Constants are canonical fields with a fixed value for this source.
	Constants map[string]string `yaml:"constants,omitempty"`

	// Derived fields are applied after Columns and Constants.
	Derived []DerivedField `yaml:"derived,omitempty" validate:"dive"`
}

// =============================================================================
// REPORT CONFIGURATION
// =============================================================================

// CancellationConfig configures the cancellation reconciliation.
type CancellationConfig struct {
	// Dir holds Meesho_data.csv and the Flipkart cancel exports.
	Dir string `yaml:"dir" validate:"required"`

	// PickupDir holds Manifest.pdf and the Flipkart pickup exports, which
	// share their file name with the matching cancel export.
	PickupDir string `yaml:"pickup_dir" validate:"required"`

	ManifestFile string `yaml:"manifest_file" validate:"required"`

	// MeeshoLookup is the CSV joined against the manifest on OrderID.
	// Its Channel is stamped onto Meesho rows.
	MeeshoLookup SourceDescriptor `yaml:"meesho_lookup"`

	// CancelledStatus is matched after trimming and upper-casing.
	CancelledStatus string `yaml:"cancelled_status"`

	// FlipkartPattern selects cancel exports in Dir. Default: "*Flipkart*.csv"
	FlipkartPattern string `yaml:"flipkart_pattern"`

	// FlipkartCancel locates the date, order and type columns of a cancel export.
	FlipkartCancel FlipkartCancelColumns `yaml:"flipkart_cancel"`

	// FlipkartPickup maps the pickup export onto the cancellation schema.
	FlipkartPickup SourceDescriptor `yaml:"flipkart_pickup"`

	// BuyerCancellation is matched after trimming and lower-casing.
	BuyerCancellation string `yaml:"buyer_cancellation"`

	// LLMarker in a file name selects LLChannel, otherwise KCChannel.
	LLMarker  string `yaml:"ll_marker"`
	LLChannel string `yaml:"ll_channel"`
	KCChannel string `yaml:"kc_channel"`

	OutputFile string `yaml:"output_file" validate:"required"`
	Sheet      string `yaml:"sheet" validate:"required"`
}

// FlipkartCancelColumns locates the columns read from a Flipkart cancel export.
type FlipkartCancelColumns struct {
	Date    ColumnRef   `yaml:"date"`
	OrderID ColumnRef   `yaml:"order_id"`
	Type    ColumnRef   `yaml:"type"`
	CSV     CSVSettings `yaml:"csv"`
}

// PickupSource is a CSV contributing tracking IDs to the pickup report.
type PickupSource struct {
	Name           string      `yaml:"name" validate:"required"`
	File           string      `yaml:"file" validate:"required"`
	TrackingColumn string      `yaml:"tracking_column" validate:"required"`
	PivotGroup     string      `yaml:"pivot_group"`
	PivotSum       string      `yaml:"pivot_sum"`
	CSV            CSVSettings `yaml:"csv"`
}

// PickupConfig configures the pickup extraction and report.
type PickupConfig struct {
	Dir          string `yaml:"dir" validate:"required"`
	ManifestFile string `yaml:"manifest_file" validate:"required"`

	Sources []PickupSource `yaml:"sources" validate:"dive"`

	// ColumnLetters maps a source or courier bucket to its spreadsheet column.
	ColumnLetters map[string]string `yaml:"column_letters" validate:"required,dive,keys,required,endkeys,column_letter"`

	// KnownCouriers is the courier allow-list; others fold into OthersBucket.
	KnownCouriers []string `yaml:"known_couriers"`
	OthersBucket  string   `yaml:"others_bucket"`

	// CourierPrefix is prepended to a known courier to find its column,
	// e.g. "Meesho - Delhivery".
	CourierPrefix string `yaml:"courier_prefix"`

	TemplateFile string `yaml:"template_file" validate:"required"`
	Sheet        string `yaml:"sheet" validate:"required"`
	StartRow     int    `yaml:"start_row" validate:"min=1"`
	DateCell     string `yaml:"date_cell" validate:"omitempty,cell"`

	// OutputPattern and PivotPattern take the run date as dd-mm-YYYY.
	OutputPattern string `yaml:"output_pattern" validate:"required,dated_pattern"`
	PivotPattern  string `yaml:"pivot_pattern" validate:"omitempty,dated_pattern"`
}

// ReturnsConfig configures the returns reconciliation.
type ReturnsConfig struct {
	Dir          string             `yaml:"dir" validate:"required"`
	Sources      []SourceDescriptor `yaml:"sources" validate:"dive"`
	TemplateFile string             `yaml:"template_file"`
	Sheet        string             `yaml:"sheet" validate:"required"`
	StartRow     int                `yaml:"start_row" validate:"min=1"`
	DateCells    []string           `yaml:"date_cells" validate:"dive,cell"`
	OutputFile   string             `yaml:"output_file" validate:"required"`
}

// =============================================================================
// ENVIRONMENT OVERRIDES
// =============================================================================

// EnvOverrides are read from RECON_* environment variables.
type EnvOverrides struct {
	InputDir    string `envconfig:"INPUT_DIR"`
	OutputDir   string `envconfig:"OUTPUT_DIR"`
	TemplateDir string `envconfig:"TEMPLATE_DIR"`
	LogFile     string `envconfig:"LOG_FILE"`
	LogLevel    string `envconfig:"LOG_LEVEL"`
}

// EnvPrefix is the prefix for environment overrides.
const EnvPrefix = "RECON"

// =============================================================================
// CONFIGURATION LOADING FUNCTIONS
// =============================================================================

// LoadMainConfig loads the main configuration.
//
// PARAMETERS:
//   - configPath: The path to the YAML file. When it equals
//     DefaultConfigFile and the file does not exist, defaults are used.
//
// RETURNS:
//   - A pointer to the MainConfig struct.
//   - An error if the file cannot be read or parsed.
func LoadMainConfig(configPath string) (*MainConfig, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(configPath)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	case errors.Is(err, fs.ErrNotExist) && configPath == DefaultConfigFile:
		// Built-in defaults.
	default:
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := applyEnvOverrides(cfg); err != nil {
		return nil, err
	}

	applyMainConfigDefaults(cfg)

	return cfg, nil
}

// applyEnvOverrides loads an optional .env file and applies RECON_* variables.
func applyEnvOverrides(cfg *MainConfig) error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to load .env: %w", err)
	}

	var env EnvOverrides
	if err := envconfig.Process(EnvPrefix, &env); err != nil {
		return fmt.Errorf("failed to read environment: %w", err)
	}

	if env.InputDir != "" {
		cfg.InputDir = env.InputDir
	}
	if env.OutputDir != "" {
		cfg.OutputDir = env.OutputDir
	}
	if env.TemplateDir != "" {
		cfg.TemplateDir = env.TemplateDir
	}
	if env.LogFile != "" {
		cfg.LogFile = env.LogFile
	}
	if env.LogLevel != "" {
		cfg.LogLevel = env.LogLevel
	}

	return nil
}

// applyMainConfigDefaults fills settings a config file may have zeroed out.
func applyMainConfigDefaults(cfg *MainConfig) {
	def := DefaultConfig()

	if cfg.InputDir == "" {
		cfg.InputDir = def.InputDir
	}
	if cfg.OutputDir == "" {
		cfg.OutputDir = def.OutputDir
	}
	if cfg.TemplateDir == "" {
		cfg.TemplateDir = def.TemplateDir
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = def.LogLevel
	}
	if len(cfg.DateLayouts) == 0 {
		cfg.DateLayouts = def.DateLayouts
	}
	if cfg.PDF.CellGap <= 0 {
		cfg.PDF.CellGap = def.PDF.CellGap
	}
	if cfg.PDF.MinTableColumns == 0 {
		cfg.PDF.MinTableColumns = def.PDF.MinTableColumns
	}

	c := &cfg.Cancellation
	if c.MeeshoLookup.Channel == "" {
		c.MeeshoLookup.Channel = def.Cancellation.MeeshoLookup.Channel
	}
	if c.CancelledStatus == "" {
		c.CancelledStatus = def.Cancellation.CancelledStatus
	}
	if c.BuyerCancellation == "" {
		c.BuyerCancellation = def.Cancellation.BuyerCancellation
	}
	if c.FlipkartPattern == "" {
		c.FlipkartPattern = def.Cancellation.FlipkartPattern
	}
	if c.LLMarker == "" {
		c.LLMarker = def.Cancellation.LLMarker
	}
	if c.LLChannel == "" {
		c.LLChannel = def.Cancellation.LLChannel
	}
	if c.KCChannel == "" {
		c.KCChannel = def.Cancellation.KCChannel
	}

	p := &cfg.Pickup
	if p.OthersBucket == "" {
		p.OthersBucket = def.Pickup.OthersBucket
	}
	if p.StartRow == 0 {
		p.StartRow = def.Pickup.StartRow
	}

	if cfg.Returns.StartRow == 0 {
		cfg.Returns.StartRow = def.Returns.StartRow
	}

	applyCSVDefaults(&c.MeeshoLookup.CSV)
	applyCSVDefaults(&c.FlipkartCancel.CSV)
	applyCSVDefaults(&c.FlipkartPickup.CSV)
	for i := range p.Sources {
		applyCSVDefaults(&p.Sources[i].CSV)
	}
	for i := range cfg.Returns.Sources {
		applyCSVDefaults(&cfg.Returns.Sources[i].CSV)
	}
}

// applyCSVDefaults sets default values for CSV settings.
func applyCSVDefaults(s *CSVSettings) {
	if s.Delimiter == "" {
		s.Delimiter = ","
	}
	if s.Encoding == "" {
		s.Encoding = "UTF-8"
	}
}
