// =============================================================================
// Order Reconciler - Report Sink
// =============================================================================
//
// The report sink writes combined reports to spreadsheets with excelize.
//
// OUTPUTS:
//   - Cancellation: a fresh workbook with one sheet of the combined table
//   - Returns: the returns template (or a fresh workbook when the template is
//     absent) with rows from A2 and the run date in the date cells
//   - Pickup: the pickup template with tracking IDs under their column
//     letters and the run date in K1
//   - Pivots: one workbook with a sheet per pickup source
//
// WRITE PROTOCOL:
//   Every workbook is saved to a temporary file in the destination directory
//   and renamed over the destination only when the save succeeded. On any
//   failure, or when the context is cancelled, the temporary file is removed
//   and the destination is left untouched.
//
// =============================================================================

package report

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"
)

// ErrSinkWrite marks a failure to produce an output file. It is fatal for the
// command that requested the write.
var ErrSinkWrite = errors.New("sink write failed")

// sinkError wraps err as an ErrSinkWrite.
func sinkError(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrSinkWrite, fmt.Sprintf(format, args...))
}

// tempName returns the temporary path used while saving dest.
// The name keeps dest's extension so excelize accepts it.
func tempName(dest string) string {
	return filepath.Join(filepath.Dir(dest), fmt.Sprintf(".tmp-%s-%s", uuid.NewString(), filepath.Base(dest)))
}

// saveAtomic saves f to dest through a temporary file.
//
// PARAMETERS:
//   - ctx: Checked before the save and before the rename.
//   - f: The workbook to save. It is not closed.
//   - dest: The final output path.
//
// RETURNS:
//   - nil on success.
//   - ctx.Err() if the context was cancelled; no file is left behind.
//   - An ErrSinkWrite error for any filesystem or encoding failure.
func saveAtomic(ctx context.Context, f *excelize.File, dest string) (err error) {
	if err := ctx.Err(); err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		return sinkError("failed to create output directory: %v", err)
	}

	tmp := tempName(dest)
	defer func() {
		if err != nil {
			_ = os.Remove(tmp)
		}
	}()

	if err := f.SaveAs(tmp); err != nil {
		return sinkError("failed to save %s: %v", filepath.Base(dest), err)
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	if err := os.Rename(tmp, dest); err != nil {
		return sinkError("failed to move output into place: %v", err)
	}

	return nil
}

// openTemplate opens a template workbook and checks that it has sheet.
func openTemplate(path, sheet string) (*excelize.File, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, sinkError("failed to open template %s: %v", filepath.Base(path), err)
	}

	idx, err := f.GetSheetIndex(sheet)
	if err != nil || idx < 0 {
		_ = f.Close()
		return nil, sinkError("sheet %q not found in template %s", sheet, filepath.Base(path))
	}

	return f, nil
}

// CheckTemplate reports whether path is a readable workbook containing sheet.
func CheckTemplate(path, sheet string) error {
	f, err := openTemplate(path, sheet)
	if err != nil {
		return err
	}
	return f.Close()
}
