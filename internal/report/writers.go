package report

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/ginjaninja78/order-reconciler/internal/pivot"
	"github.com/ginjaninja78/order-reconciler/internal/types"
	"github.com/xuri/excelize/v2"
)

// DateFormat is the run date layout stamped into reports and file names.
const DateFormat = "02-01-2006"

// Sink writes run results to files.
type Sink interface {
	WriteCancellation(ctx context.Context, r *types.Report, opts TableOptions) error
	WriteReturns(ctx context.Context, r *types.Report, opts TableOptions) error
	WritePickup(ctx context.Context, cols types.PickupColumns, opts PickupOptions) error
	WritePivots(ctx context.Context, summaries []*pivot.Summary, dest string) error
}

// XLSXSink is the excelize-backed Sink.
type XLSXSink struct{}

// NewXLSXSink creates an XLSXSink.
func NewXLSXSink() *XLSXSink {
	return &XLSXSink{}
}

// =============================================================================
// TABLE REPORTS (cancellation, returns)
// =============================================================================

// TableOptions controls where a combined table is written.
type TableOptions struct {
	// Dest is the output path.
	Dest string

	// Template is an optional workbook to fill. When empty, or when it does
	// not exist, a fresh workbook with a header row is created.
	Template string

	// Sheet receives the table.
	Sheet string

	// StartRow is the first data row, 1-based. Default: 2.
	StartRow int

	// DateCells are stamped with Date formatted as DateFormat.
	DateCells []string
	Date      time.Time
}

// WriteCancellation writes the cancellation report to a fresh workbook.
func (s *XLSXSink) WriteCancellation(ctx context.Context, r *types.Report, opts TableOptions) error {
	opts.Template = ""
	return s.writeTable(ctx, r, opts)
}

// WriteReturns writes the returns report into its template, or into a fresh
// workbook when the template is absent.
func (s *XLSXSink) WriteReturns(ctx context.Context, r *types.Report, opts TableOptions) error {
	return s.writeTable(ctx, r, opts)
}

func (s *XLSXSink) writeTable(ctx context.Context, r *types.Report, opts TableOptions) error {
	if opts.StartRow < 1 {
		opts.StartRow = 2
	}

	f, fresh, err := tableWorkbook(opts.Template, opts.Sheet)
	if err != nil {
		return err
	}
	defer f.Close()

	var rows [][]string
	if fresh {
		if err := writeRows(f, opts.Sheet, 1, [][]string{r.Schema.Columns}); err != nil {
			return sinkError("%v", err)
		}
	}
	for i := range r.Rows {
		rows = append(rows, r.Values(i))
	}
	if err := writeRows(f, opts.Sheet, opts.StartRow, rows); err != nil {
		return sinkError("%v", err)
	}

	if len(opts.DateCells) > 0 {
		mw, err := newMergedWriter(f, opts.Sheet)
		if err != nil {
			return sinkError("%v", err)
		}
		stamp := opts.Date.Format(DateFormat)
		for _, cell := range opts.DateCells {
			if err := mw.Set(cell, stamp); err != nil {
				return sinkError("failed to write date to %s: %v", cell, err)
			}
		}
	}

	return saveAtomic(ctx, f, opts.Dest)
}

// tableWorkbook opens template when it exists, else creates a fresh
// workbook whose only sheet is named sheet.
func tableWorkbook(template, sheet string) (f *excelize.File, fresh bool, err error) {
	if template != "" {
		if _, statErr := os.Stat(template); statErr == nil {
			f, err := openTemplate(template, sheet)
			return f, false, err
		} else if !errors.Is(statErr, fs.ErrNotExist) {
			return nil, false, sinkError("failed to stat template: %v", statErr)
		}
	}

	f = excelize.NewFile()
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		_ = f.Close()
		return nil, false, sinkError("failed to name sheet %q: %v", sheet, err)
	}
	return f, true, nil
}

// =============================================================================
// PICKUP REPORT
// =============================================================================

// PickupOptions controls the pickup report write.
type PickupOptions struct {
	// Template is the workbook to fill. Required.
	Template string

	// Dest is the output path. With InPlace it is ignored and the template
	// itself is overwritten.
	Dest    string
	InPlace bool

	// NamePattern is the dated file name an in-place template must carry.
	NamePattern string

	Sheet    string
	StartRow int
	DateCell string
	Date     time.Time
}

// DatedName formats a file name pattern such as "Pickup_Report_%s.xlsx"
// with date.
func DatedName(pattern string, date time.Time) string {
	return fmt.Sprintf(pattern, date.Format(DateFormat))
}

// CheckInPlaceTemplate rejects an in-place template whose file name is not
// pattern formatted with date.
func CheckInPlaceTemplate(path, pattern string, date time.Time) error {
	want := DatedName(pattern, date)
	if filepath.Base(path) != want {
		return fmt.Errorf("wrong template selected: the file name must be %s", want)
	}
	return nil
}

// WritePickup writes tracking IDs under their column letters, from StartRow
// down, and stamps the date. Writes into merged ranges land on the range's
// top-left cell.
func (s *XLSXSink) WritePickup(ctx context.Context, cols types.PickupColumns, opts PickupOptions) error {
	if opts.Template == "" {
		return sinkError("pickup template not set")
	}
	if opts.InPlace {
		if err := CheckInPlaceTemplate(opts.Template, opts.NamePattern, opts.Date); err != nil {
			return sinkError("%v", err)
		}
		opts.Dest = opts.Template
	}
	if opts.StartRow < 1 {
		opts.StartRow = 3
	}

	f, err := openTemplate(opts.Template, opts.Sheet)
	if err != nil {
		return err
	}
	defer f.Close()

	mw, err := newMergedWriter(f, opts.Sheet)
	if err != nil {
		return sinkError("%v", err)
	}

	if opts.DateCell != "" {
		if err := mw.Set(opts.DateCell, opts.Date.Format(DateFormat)); err != nil {
			return sinkError("failed to write date to %s: %v", opts.DateCell, err)
		}
	}

	for _, letter := range cols.Letters() {
		col, err := excelize.ColumnNameToNumber(letter)
		if err != nil {
			return sinkError("invalid column letter %q: %v", letter, err)
		}
		for i, id := range cols[letter] {
			if err := mw.SetAt(col, opts.StartRow+i, TrackingValue(id)); err != nil {
				return sinkError("failed to write %s%d: %v", letter, opts.StartRow+i, err)
			}
		}
	}

	return saveAtomic(ctx, f, opts.Dest)
}

// =============================================================================
// PIVOT WORKBOOK
// =============================================================================

const maxSheetName = 31

// WritePivots writes one sheet per summary. Skipped summaries get a sheet
// carrying the reason.
func (s *XLSXSink) WritePivots(ctx context.Context, summaries []*pivot.Summary, dest string) error {
	if len(summaries) == 0 {
		return nil
	}

	f := excelize.NewFile()
	defer f.Close()

	for i, sum := range summaries {
		name := sheetName(sum.Source, i)
		if i == 0 {
			if err := f.SetSheetName("Sheet1", name); err != nil {
				return sinkError("failed to name sheet %q: %v", name, err)
			}
		} else if _, err := f.NewSheet(name); err != nil {
			return sinkError("failed to add sheet %q: %v", name, err)
		}

		if err := writePivotSheet(f, name, sum); err != nil {
			return sinkError("failed to write pivot for %s: %v", sum.Source, err)
		}
	}
	f.SetActiveSheet(0)

	return saveAtomic(ctx, f, dest)
}

func writePivotSheet(f *excelize.File, sheet string, sum *pivot.Summary) error {
	if err := f.SetCellValue(sheet, "A1", sum.Source+" Pivot Table"); err != nil {
		return err
	}
	if sum.Skipped {
		return f.SetCellValue(sheet, "A2", "Skipped: "+sum.Reason)
	}

	if err := f.SetSheetRow(sheet, "A2", &[]any{sum.GroupColumn, sum.SumColumn}); err != nil {
		return err
	}
	row := 3
	for _, e := range sum.Entries {
		cell, _ := excelize.CoordinatesToCellName(1, row)
		if err := f.SetSheetRow(sheet, cell, &[]any{e.Key, e.Total.InexactFloat64()}); err != nil {
			return err
		}
		row++
	}
	cell, _ := excelize.CoordinatesToCellName(1, row)
	return f.SetSheetRow(sheet, cell, &[]any{"Grand Total", sum.GrandTotal().InexactFloat64()})
}

// sheetName makes a valid sheet name from a source name.
func sheetName(source string, i int) string {
	name := []rune(source)
	out := make([]rune, 0, len(name))
	for _, r := range name {
		switch r {
		case ':', '\\', '/', '?', '*', '[', ']':
			out = append(out, '_')
		default:
			out = append(out, r)
		}
	}
	if len(out) == 0 {
		return fmt.Sprintf("Pivot %d", i+1)
	}
	if len(out) > maxSheetName {
		out = out[:maxSheetName]
	}
	return string(out)
}
