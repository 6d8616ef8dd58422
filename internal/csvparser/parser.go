// =============================================================================
// Order Reconciler - CSV Parser Module
// =============================================================================
//
// This module reads the tabular exports of every platform (Meesho, Flipkart,
// Sellerflex) into raw records. It handles:
//   - Different delimiters (comma, pipe, tab, semicolon)
//   - Preamble lines before the header row (the Meesho returns export)
//   - UTF-8 with or without BOM, ISO-8859-1 and Windows-1252 input
//   - Ragged rows and lazy quoting as produced by spreadsheet exports
//
// CONDITIONS:
//   Extract classifies failures for the engine:
//   - A missing file is SourceNotFound.
//   - An unreadable file is SourceMalformed.
//   - A missing required column returns an empty result and a WARN-level
//     SourceMalformed condition so the caller can carry on with other sources.
//
// =============================================================================

package csvparser

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"

	"github.com/ginjaninja78/order-reconciler/internal/config"
	"github.com/ginjaninja78/order-reconciler/internal/types"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// =============================================================================
// CSV DATA STRUCTURE
// =============================================================================

// Record is one data row of a source file.
type Record struct {
	// Line is the 1-based record number in the file, counting skipped
	// preamble lines and the header. Useful for error reporting.
	Line int

	// Values holds the trimmed cells by position.
	Values []string

	// Fields maps header -> value. When a header repeats, the first column
	// with that header wins.
	Fields map[string]string
}

// Get returns the cell at index, or "" when the row is shorter.
func (r Record) Get(index int) string {
	if index < 0 || index >= len(r.Values) {
		return ""
	}
	return r.Values[index]
}

// CSVData represents a parsed CSV file.
type CSVData struct {
	// Headers contains the column headers in file order.
	Headers []string

	// Records contains the non-empty data rows in file order.
	Records []Record

	// SourceFile is the path to the source CSV file.
	SourceFile string
}

// Len returns the number of data rows.
func (d *CSVData) Len() int {
	if d == nil {
		return 0
	}
	return len(d.Records)
}

// =============================================================================
// PARSER FUNCTIONS
// =============================================================================

// Extract reads a source file and checks it carries the required columns.
//
// PARAMETERS:
//   - source: The logical source name used in returned errors.
//   - filePath: The path to the CSV file.
//   - settings: The CSV parsing settings from the source descriptor.
//   - required: Headers that must be present.
//
// RETURNS:
//   - The parsed data. On a missing required column this is an empty,
//     non-nil CSVData carrying the headers that were found.
//   - A *types.SourceError classifying any problem.
func Extract(source, filePath string, settings config.CSVSettings, required ...string) (*CSVData, error) {
	if _, err := os.Stat(filePath); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, types.NotFound(source, filePath)
		}
		return nil, types.Malformed(source, err)
	}

	data, err := Parse(filePath, settings)
	if err != nil {
		return nil, types.Malformed(source, err)
	}

	for _, name := range required {
		if data.HeaderIndex(name) < 0 {
			empty := &CSVData{Headers: data.Headers, SourceFile: filePath}
			return empty, types.Malformed(source, fmt.Errorf("%w: %q not found in %s", types.ErrColumnMissing, name, filePath))
		}
	}

	return data, nil
}

// Parse reads a CSV file and returns the parsed data.
//
// PARSING PROCESS:
//   1. Open the file and decode it to UTF-8
//   2. Skip the configured number of preamble lines
//   3. Read the header row
//   4. Read data rows, dropping rows whose cells are all empty
func Parse(filePath string, settings config.CSVSettings) (*CSVData, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	return parseReader(file, filePath, settings)
}

func parseReader(r io.Reader, filePath string, settings config.CSVSettings) (*CSVData, error) {
	decoder, err := newDecoder(settings.Encoding)
	if err != nil {
		return nil, err
	}

	reader := bufio.NewReader(transform.NewReader(r, decoder))

	// Preamble lines are skipped as raw lines, not CSV records.
	for i := 0; i < settings.SkipRows; i++ {
		if _, err := reader.ReadString('\n'); err != nil {
			if err == io.EOF {
				return nil, fmt.Errorf("file has fewer than %d preamble lines", settings.SkipRows)
			}
			return nil, fmt.Errorf("failed to skip preamble: %w", err)
		}
	}

	csvReader := csv.NewReader(reader)
	configureReader(csvReader, settings)

	header, err := csvReader.Read()
	if err != nil {
		if err == io.EOF {
			return nil, fmt.Errorf("CSV file is empty")
		}
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	data := &CSVData{
		Headers:    cleanHeaders(header),
		SourceFile: filePath,
	}

	line := settings.SkipRows + 1
	for {
		row, err := csvReader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read CSV: %w", err)
		}
		line++

		if isRowEmpty(row) {
			continue
		}

		data.Records = append(data.Records, newRecord(line, row, data.Headers))
	}

	return data, nil
}

// newDecoder returns a transformer that decodes the given encoding to UTF-8.
// A leading UTF-8 byte order mark is always dropped.
func newDecoder(encoding string) (transform.Transformer, error) {
	switch strings.ToLower(strings.TrimSpace(encoding)) {
	case "", "utf-8", "utf8":
		return unicode.BOMOverride(unicode.UTF8.NewDecoder()), nil
	case "iso-8859-1", "latin1":
		return charmap.ISO8859_1.NewDecoder(), nil
	case "windows-1252", "cp1252":
		return charmap.Windows1252.NewDecoder(), nil
	default:
		return nil, fmt.Errorf("unsupported encoding %q", encoding)
	}
}

// configureReader configures the CSV reader based on the settings.
func configureReader(reader *csv.Reader, settings config.CSVSettings) {
	switch settings.Delimiter {
	case "\\t", "tab", "TAB":
		reader.Comma = '\t'
	case "|", "pipe", "PIPE":
		reader.Comma = '|'
	case ";", "semicolon":
		reader.Comma = ';'
	default:
		if len(settings.Delimiter) > 0 {
			reader.Comma = rune(settings.Delimiter[0])
		} else {
			reader.Comma = ','
		}
	}

	// Exports are frequently ragged and loosely quoted.
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true
}

// cleanHeaders trims headers and names empty ones by position.
func cleanHeaders(headers []string) []string {
	cleaned := make([]string, len(headers))

	for i, header := range headers {
		header = strings.TrimSpace(header)
		if header == "" {
			header = fmt.Sprintf("Column_%d", i+1)
		}
		cleaned[i] = header
	}

	return cleaned
}

func newRecord(line int, row, headers []string) Record {
	rec := Record{
		Line:   line,
		Values: make([]string, len(row)),
		Fields: make(map[string]string, len(headers)),
	}

	for i, cell := range row {
		rec.Values[i] = strings.TrimSpace(cell)
	}

	for i, header := range headers {
		if _, dup := rec.Fields[header]; dup {
			continue
		}
		rec.Fields[header] = rec.Get(i)
	}

	return rec
}

// isRowEmpty checks if a row contains only empty values.
func isRowEmpty(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

// =============================================================================
// COLUMN ACCESS
// =============================================================================

// HeaderIndex returns the position of the first column named header, or -1.
func (d *CSVData) HeaderIndex(header string) int {
	for i, h := range d.Headers {
		if h == header {
			return i
		}
	}
	return -1
}

// Resolve locates a column by name, then aliases, then index fallback.
//
// RETURNS:
//   - The zero-based column index.
//   - false when neither a header nor the fallback index matches.
func (d *CSVData) Resolve(ref config.ColumnRef) (int, bool) {
	if ref.Name != "" {
		if i := d.HeaderIndex(ref.Name); i >= 0 {
			return i, true
		}
	}
	for _, alias := range ref.Aliases {
		if i := d.HeaderIndex(alias); i >= 0 {
			return i, true
		}
	}
	if ref.Index != nil && *ref.Index >= 0 && *ref.Index < len(d.Headers) {
		return *ref.Index, true
	}
	return -1, false
}

// GetColumnByHeader returns all values in the named column.
func GetColumnByHeader(data *CSVData, header string) []string {
	idx := data.HeaderIndex(header)
	if idx < 0 {
		return nil
	}

	values := make([]string, 0, len(data.Records))
	for _, rec := range data.Records {
		values = append(values, rec.Get(idx))
	}
	return values
}

// GetUniqueValues returns the distinct non-empty values of the named column,
// keeping the order of first occurrence.
func GetUniqueValues(data *CSVData, header string) []string {
	var values []string
	for _, v := range GetColumnByHeader(data, header) {
		if v != "" {
			values = append(values, v)
		}
	}
	return types.Dedup(values)
}

// FilterRows returns the records for which filterFunc returns true.
func FilterRows(data *CSVData, filterFunc func(rec Record) bool) []Record {
	var out []Record
	for _, rec := range data.Records {
		if filterFunc(rec) {
			out = append(out, rec)
		}
	}
	return out
}
