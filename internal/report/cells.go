package report

import (
	"fmt"
	"strconv"

	"github.com/xuri/excelize/v2"
)

// =============================================================================
// CELL VALUES
// =============================================================================

// TrackingValue converts a tracking ID for the pickup sheet. Digit-only IDs
// without a leading zero become numbers; everything else stays text so that
// leading zeros survive.
func TrackingValue(id string) any {
	if id == "" || (len(id) > 1 && id[0] == '0') {
		return id
	}
	for _, r := range id {
		if r < '0' || r > '9' {
			return id
		}
	}
	n, err := strconv.ParseInt(id, 10, 64)
	if err != nil {
		return id
	}
	return n
}

// =============================================================================
// MERGED-CELL SAFE WRITES
// =============================================================================

// mergedWriter writes into a sheet, redirecting writes aimed inside a merged
// range to the range's top-left cell.
type mergedWriter struct {
	f      *excelize.File
	sheet  string
	ranges []mergedRange
}

type mergedRange struct {
	col0, row0, col1, row1 int
	topLeft                string
}

func newMergedWriter(f *excelize.File, sheet string) (*mergedWriter, error) {
	cells, err := f.GetMergeCells(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to read merged cells: %w", err)
	}

	w := &mergedWriter{f: f, sheet: sheet}
	for _, mc := range cells {
		c0, r0, err := excelize.CellNameToCoordinates(mc.GetStartAxis())
		if err != nil {
			continue
		}
		c1, r1, err := excelize.CellNameToCoordinates(mc.GetEndAxis())
		if err != nil {
			continue
		}
		w.ranges = append(w.ranges, mergedRange{col0: c0, row0: r0, col1: c1, row1: r1, topLeft: mc.GetStartAxis()})
	}
	return w, nil
}

// target returns the cell a write to (col, row) lands in.
func (w *mergedWriter) target(col, row int) (string, error) {
	for _, r := range w.ranges {
		if col >= r.col0 && col <= r.col1 && row >= r.row0 && row <= r.row1 {
			return r.topLeft, nil
		}
	}
	return excelize.CoordinatesToCellName(col, row)
}

// Set writes value at the named cell.
func (w *mergedWriter) Set(cell string, value any) error {
	col, row, err := excelize.CellNameToCoordinates(cell)
	if err != nil {
		return err
	}
	return w.SetAt(col, row, value)
}

// SetAt writes value at (col, row), both 1-based.
func (w *mergedWriter) SetAt(col, row int, value any) error {
	cell, err := w.target(col, row)
	if err != nil {
		return err
	}
	return w.f.SetCellValue(w.sheet, cell, value)
}

// =============================================================================
// TABLES
// =============================================================================

// writeRows writes rows starting at (col 1, startRow).
func writeRows(f *excelize.File, sheet string, startRow int, rows [][]string) error {
	for i, values := range rows {
		cell, err := excelize.CoordinatesToCellName(1, startRow+i)
		if err != nil {
			return err
		}
		row := make([]any, len(values))
		for j, v := range values {
			row[j] = v
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("failed to write row %d: %w", startRow+i, err)
		}
	}
	return nil
}
