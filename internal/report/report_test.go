package report

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ginjaninja78/order-reconciler/internal/pivot"
	"github.com/ginjaninja78/order-reconciler/internal/types"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

var runDate = time.Date(2025, time.March, 14, 9, 0, 0, 0, time.UTC)

func pickupTemplate(t *testing.T, dir, name string) string {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	require.NoError(t, f.SetSheetName("Sheet1", "Entry tracking ID"))
	require.NoError(t, f.SetCellValue("Entry tracking ID", "A1", "Sellerflex"))
	require.NoError(t, f.MergeCell("Entry tracking ID", "D3", "D4"))

	path := filepath.Join(dir, name)
	require.NoError(t, f.SaveAs(path))
	return path
}

func cell(t *testing.T, path, sheet, axis string) string {
	t.Helper()
	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()
	v, err := f.GetCellValue(sheet, axis)
	require.NoError(t, err)
	return v
}

func noTempFiles(t *testing.T, dir string) {
	t.Helper()
	matches, err := filepath.Glob(filepath.Join(dir, ".tmp-*"))
	require.NoError(t, err)
	assert.Empty(t, matches)
}

func TestTrackingValue(t *testing.T) {
	assert.Equal(t, int64(123456), TrackingValue("123456"))
	assert.Equal(t, "0123", TrackingValue("0123"))
	assert.Equal(t, int64(0), TrackingValue("0"))
	assert.Equal(t, "FMPC123", TrackingValue("FMPC123"))
	assert.Equal(t, "99999999999999999999999", TrackingValue("99999999999999999999999"))
	assert.Equal(t, "", TrackingValue(""))
}

func TestWritePickupFillsColumnsAndDate(t *testing.T) {
	dir := t.TempDir()
	template := pickupTemplate(t, dir, "Pickup Report.xlsx")
	dest := filepath.Join(dir, "out", "Pickup_Report_14-03-2025.xlsx")

	cols := types.PickupColumns{
		"A": {"SF1", "SF2"},
		"D": {"111", "222"},
		"H": {"0042"},
	}
	err := NewXLSXSink().WritePickup(context.Background(), cols, PickupOptions{
		Template: template,
		Dest:     dest,
		Sheet:    "Entry tracking ID",
		StartRow: 3,
		DateCell: "K1",
		Date:     runDate,
	})
	require.NoError(t, err)

	const sheet = "Entry tracking ID"
	assert.Equal(t, "14-03-2025", cell(t, dest, sheet, "K1"))
	assert.Equal(t, "SF1", cell(t, dest, sheet, "A3"))
	assert.Equal(t, "SF2", cell(t, dest, sheet, "A4"))
	// D3:D4 is merged, so the second write lands on D3 as well.
	assert.Equal(t, "222", cell(t, dest, sheet, "D3"))
	assert.Equal(t, "0042", cell(t, dest, sheet, "H3"))
	assert.Equal(t, "Sellerflex", cell(t, dest, sheet, "A1"))
	noTempFiles(t, filepath.Dir(dest))
}

func TestWritePickupMissingSheetIsSinkError(t *testing.T) {
	dir := t.TempDir()
	f := excelize.NewFile()
	path := filepath.Join(dir, "Pickup Report.xlsx")
	require.NoError(t, f.SaveAs(path))
	require.NoError(t, f.Close())

	err := NewXLSXSink().WritePickup(context.Background(), types.PickupColumns{"A": {"1"}}, PickupOptions{
		Template: path,
		Dest:     filepath.Join(dir, "out.xlsx"),
		Sheet:    "Entry tracking ID",
		Date:     runDate,
	})

	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrSinkWrite))
	assert.Contains(t, err.Error(), "Entry tracking ID")
}

func TestWritePickupInPlaceRequiresDatedName(t *testing.T) {
	dir := t.TempDir()
	wrong := pickupTemplate(t, dir, "Pickup Report.xlsx")
	opts := PickupOptions{
		InPlace:     true,
		NamePattern: "Pickup_Report_%s.xlsx",
		Sheet:       "Entry tracking ID",
		Date:        runDate,
	}

	opts.Template = wrong
	err := NewXLSXSink().WritePickup(context.Background(), types.PickupColumns{"A": {"X1"}}, opts)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Pickup_Report_14-03-2025.xlsx")

	opts.Template = pickupTemplate(t, dir, "Pickup_Report_14-03-2025.xlsx")
	require.NoError(t, NewXLSXSink().WritePickup(context.Background(), types.PickupColumns{"A": {"X1"}}, opts))
	assert.Equal(t, "X1", cell(t, opts.Template, "Entry tracking ID", "A3"))
}

func TestWriteCancellationFreshWorkbook(t *testing.T) {
	dir := t.TempDir()
	dest := filepath.Join(dir, "Cancel_product_report.xlsx")
	r := &types.Report{
		Schema: types.CancellationSchema(),
		Rows: []types.Row{
			{types.ColSaleChannel: "Meesho", types.ColOrderID: "S1", types.ColStatus: "CANCELLED"},
		},
	}

	require.NoError(t, NewXLSXSink().WriteCancellation(context.Background(), r, TableOptions{Dest: dest, Sheet: "Cancel products"}))

	assert.Equal(t, "SaleChannel", cell(t, dest, "Cancel products", "A1"))
	assert.Equal(t, "Invoice Amount", cell(t, dest, "Cancel products", "H1"))
	assert.Equal(t, "Meesho", cell(t, dest, "Cancel products", "A2"))
	assert.Equal(t, "CANCELLED", cell(t, dest, "Cancel products", "D2"))
}

func TestWriteReturnsIntoTemplate(t *testing.T) {
	dir := t.TempDir()
	f := excelize.NewFile()
	require.NoError(t, f.SetSheetName("Sheet1", "Data"))
	require.NoError(t, f.SetCellValue("Data", "A1", "Return TID"))
	template := filepath.Join(dir, "ReturnsReconcileReport.xlsx")
	require.NoError(t, f.SaveAs(template))
	require.NoError(t, f.Close())

	dest := filepath.Join(dir, "Returns Reconcile Report.xlsx")
	r := &types.Report{Schema: types.ReturnsSchema(), Rows: []types.Row{{types.ColReturnTID: "R1", types.ColSalesChannel: "Meesho"}}}

	err := NewXLSXSink().WriteReturns(context.Background(), r, TableOptions{
		Dest: dest, Template: template, Sheet: "Data", StartRow: 2,
		DateCells: []string{"O7", "O8"}, Date: runDate,
	})
	require.NoError(t, err)

	assert.Equal(t, "R1", cell(t, dest, "Data", "A2"))
	assert.Equal(t, "Meesho", cell(t, dest, "Data", "F2"))
	assert.Equal(t, "14-03-2025", cell(t, dest, "Data", "O7"))
	assert.Equal(t, "14-03-2025", cell(t, dest, "Data", "O8"))
}

func TestWriteReturnsWithoutTemplateCreatesWorkbook(t *testing.T) {
	dir := t.TempDir()
	dest := filepath.Join(dir, "Returns Reconcile Report.xlsx")
	r := &types.Report{Schema: types.ReturnsSchema(), Rows: []types.Row{{types.ColReturnTID: "R1"}}}

	err := NewXLSXSink().WriteReturns(context.Background(), r, TableOptions{
		Dest: dest, Template: filepath.Join(dir, "missing.xlsx"), Sheet: "Data", StartRow: 2,
	})
	require.NoError(t, err)

	assert.Equal(t, "Return TID", cell(t, dest, "Data", "A1"))
	assert.Equal(t, "R1", cell(t, dest, "Data", "A2"))
}

func TestCancelledContextLeavesNoFiles(t *testing.T) {
	dir := t.TempDir()
	dest := filepath.Join(dir, "Cancel_product_report.xlsx")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	r := &types.Report{Schema: types.CancellationSchema()}
	err := NewXLSXSink().WriteCancellation(ctx, r, TableOptions{Dest: dest, Sheet: "Cancel products"})

	require.ErrorIs(t, err, context.Canceled)
	_, statErr := os.Stat(dest)
	assert.True(t, os.IsNotExist(statErr))
	noTempFiles(t, dir)
}

func TestSaveFailureIsSinkWrite(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "blocker")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0644))

	r := &types.Report{Schema: types.CancellationSchema()}
	err := NewXLSXSink().WriteCancellation(context.Background(), r, TableOptions{
		Dest:  filepath.Join(blocker, "report.xlsx"),
		Sheet: "Cancel products",
	})

	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrSinkWrite))
}

func TestWritePivots(t *testing.T) {
	dir := t.TempDir()
	dest := filepath.Join(dir, "Pivot_Summary_14-03-2025.xlsx")
	summaries := []*pivot.Summary{
		{Source: "Sellerflex", GroupColumn: "MSKU", SumColumn: "Units", Entries: []pivot.Entry{
			{Key: "A", Total: decimal.NewFromInt(2)},
			{Key: "B", Total: decimal.NewFromInt(3)},
		}},
		{Source: "Flipkart KC", Skipped: true, Reason: "no rows"},
	}

	require.NoError(t, NewXLSXSink().WritePivots(context.Background(), summaries, dest))

	assert.Equal(t, "MSKU", cell(t, dest, "Sellerflex", "A2"))
	assert.Equal(t, "B", cell(t, dest, "Sellerflex", "A4"))
	assert.Equal(t, "3", cell(t, dest, "Sellerflex", "B4"))
	assert.Equal(t, "Grand Total", cell(t, dest, "Sellerflex", "A5"))
	assert.Equal(t, "5", cell(t, dest, "Sellerflex", "B5"))
	assert.Equal(t, "Skipped: no rows", cell(t, dest, "Flipkart KC", "A2"))
}

func TestCheckTemplate(t *testing.T) {
	dir := t.TempDir()
	path := pickupTemplate(t, dir, "Pickup Report.xlsx")

	assert.NoError(t, CheckTemplate(path, "Entry tracking ID"))
	assert.ErrorIs(t, CheckTemplate(path, "Data"), ErrSinkWrite)
	assert.ErrorIs(t, CheckTemplate(filepath.Join(dir, "none.xlsx"), "Data"), ErrSinkWrite)
}
