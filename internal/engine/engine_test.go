package engine

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/ginjaninja78/order-reconciler/internal/config"
	"github.com/ginjaninja78/order-reconciler/internal/pdfmanifest"
	"github.com/ginjaninja78/order-reconciler/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

var runTime = time.Date(2025, time.March, 14, 18, 30, 0, 0, time.Local)

// fakeReader serves fixed manifest pages.
type fakeReader struct {
	pages   []pdfmanifest.Page
	err     error
	started chan struct{}
	block   chan struct{}
	once    sync.Once
}

func (f *fakeReader) ReadPages(ctx context.Context, path string) ([]pdfmanifest.Page, error) {
	if f.started != nil {
		f.once.Do(func() { close(f.started) })
	}
	if f.block != nil {
		select {
		case <-f.block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return f.pages, f.err
}

func manifest() []pdfmanifest.Page {
	table := func(rows ...[]string) pdfmanifest.Table {
		return append(pdfmanifest.Table{{"S.No", "Sub Order No", "AWB", "SKU"}}, rows...)
	}
	return []pdfmanifest.Page{
		{Number: 1, Text: "Manifest summary"},
		{Number: 2, Text: "Courier : Delhivery", Tables: []pdfmanifest.Table{table(
			[]string{"1", "1001_1", "DL100", "A"},
			[]string{"2", "1002_1", "DL200", "B"},
		)}},
		{Number: 3, Text: "Courier : Shadowfax", Tables: []pdfmanifest.Table{table(
			[]string{"1", "1003_1", "SF300", "C"},
		)}},
	}
}

func newEngine(t *testing.T, reader pdfmanifest.Reader) *Engine {
	t.Helper()
	return New(config.DefaultConfig(),
		WithLogger(zaptest.NewLogger(t).Sugar()),
		WithPDFReader(reader),
		WithClock(func() time.Time { return runTime }),
	)
}

func write(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

// =============================================================================
// CANCELLATIONS
// =============================================================================

func TestCancellationFlipkartKCEndToEnd(t *testing.T) {
	dir := t.TempDir()
	cancelDir := filepath.Join(dir, "cancel")
	pickupDir := filepath.Join(dir, "pickup")
	require.NoError(t, os.MkdirAll(cancelDir, 0755))
	require.NoError(t, os.MkdirAll(pickupDir, 0755))

	write(t, cancelDir, "Flipkart KC.csv",
		"Order Cancellation Date,Order Item ID,Order ID,SKU,Quantity,Cancellation Type\n"+
			"2025-03-14 10:00:00,I1,OD1,SKU1,1,Cancelled by Buyer\n"+
			"2025-03-13 10:00:00,I2,OD2,SKU2,1,cancelled by buyer\n"+
			"2025-03-14 11:00:00,I3,OD3,SKU3,1,cancelled by seller\n")
	write(t, pickupDir, "Flipkart KC.csv",
		"Shipment ID,Tracking ID,Dispatch,Order ID,SKU,Quantity,Invoice Amount\n"+
			"SH1,FMPC1,x,OD1,SKU1,1,499\n"+
			"SH2,FMPC2,x,OD2,SKU2,1,299\n"+
			"SH3,FMPC3,x,OD3,SKU3,1,199\n")

	sources := types.Sources{
		types.FlipkartCancelPrefix + "Flipkart KC.csv": filepath.Join(cancelDir, "Flipkart KC.csv"),
		types.FlipkartPickupPrefix + "Flipkart KC.csv": filepath.Join(pickupDir, "Flipkart KC.csv"),
	}

	res, err := newEngine(t, &fakeReader{}).RunCancellationReconciliation(context.Background(), sources)
	require.NoError(t, err)

	require.Len(t, res.Report.Rows, 1)
	assert.Equal(t,
		[]string{"Flipkart KC", "OD1", "FMPC1", "", "Cancelled by Buyer", "SKU1", "1", "499"},
		res.Report.Values(0))

	assert.True(t, res.Diagnostics.Has(types.SourceMeeshoManifest, types.SourceNotFound))
	assert.True(t, res.Diagnostics.Has(types.SourceMeeshoData, types.SourceNotFound))
	assert.NotEmpty(t, res.RunID)
	assert.Equal(t, runTime, res.Date)
}

func TestCancellationMeeshoJoin(t *testing.T) {
	dir := t.TempDir()
	pdf := write(t, dir, "Manifest.pdf", "%PDF-stub")
	data := write(t, dir, "Meesho_data.csv",
		"Sub Order No,Reason for Credit Entry,SKU,Quantity,Supplier Listed Price (Incl. GST + Commission)\n"+
			"1001_1,Cancelled,KURTA-RED,1,350\n"+
			"1002_1,DELIVERED,SAREE,2,700\n"+
			"1003_1, CANCELLED ,DUPATTA,1,150\n")

	sources := types.Sources{types.SourceMeeshoManifest: pdf, types.SourceMeeshoData: data}

	res, err := newEngine(t, &fakeReader{pages: manifest()}).RunCancellationReconciliation(context.Background(), sources)
	require.NoError(t, err)

	require.Len(t, res.Report.Rows, 2)
	assert.Equal(t,
		[]string{"Meesho", "1001_1", "DL100", "Cancelled", "", "KURTA-RED", "1", "350"},
		res.Report.Values(0))
	assert.Equal(t, "SF300", res.Report.Rows[1][types.ColTrackingID])
	assert.Empty(t, res.Diagnostics)
}

func TestCancellationMissingPickupFileIsSkipped(t *testing.T) {
	dir := t.TempDir()
	cancel := write(t, dir, "Flipkart LL.csv", "a,b,c,d,e,f\n")

	sources := types.Sources{
		types.FlipkartCancelPrefix + "Flipkart LL.csv": cancel,
		types.FlipkartPickupPrefix + "Flipkart LL.csv": filepath.Join(dir, "missing", "Flipkart LL.csv"),
	}

	res, err := newEngine(t, &fakeReader{}).RunCancellationReconciliation(context.Background(), sources)
	require.NoError(t, err)

	assert.True(t, res.Report.Empty())
	assert.True(t, res.Diagnostics.Has(types.FlipkartPickupPrefix+"Flipkart LL.csv", types.SourceNotFound))
}

func TestCancellationCorruptManifestIsMalformed(t *testing.T) {
	dir := t.TempDir()
	sources := types.Sources{
		types.SourceMeeshoManifest: write(t, dir, "Manifest.pdf", "garbage"),
		types.SourceMeeshoData:     write(t, dir, "Meesho_data.csv", "Sub Order No,Reason for Credit Entry\n"),
	}

	res, err := newEngine(t, &fakeReader{err: errors.New("malformed PDF")}).RunCancellationReconciliation(context.Background(), sources)
	require.NoError(t, err)

	assert.True(t, res.Report.Empty())
	assert.True(t, res.Diagnostics.Has(types.SourceMeeshoManifest, types.SourceMalformed))
}

// =============================================================================
// RETURNS
// =============================================================================

func TestReturnsSurvivesMissingSources(t *testing.T) {
	dir := t.TempDir()
	preamble := "Supplier Returns Report\n\n\n\n\n\nGenerated\n"
	meesho := write(t, dir, "Returns Meesho.csv", preamble+
		"AWB Number,Type of Return,SKU,Qty,Courier Partner,Order Number,Return Reason,Detailed Return Reason\n"+
		"AWB1,Customer Return,KURTA,1,Delhivery,ON1,Size issue,Too small\n")
	sellerflex := write(t, dir, "Returns SellerFlex.csv", "mSKU,Units\nM1,1\n")

	sources := types.Sources{
		"Meesho":      meesho,
		"Flipkart KC": filepath.Join(dir, "Returns Flipkart KC.csv"),
		"SellerFlex":  sellerflex,
	}

	res, err := newEngine(t, &fakeReader{}).RunReturnsReconciliation(context.Background(), sources)
	require.NoError(t, err)

	require.Len(t, res.Report.Rows, 1)
	assert.Equal(t,
		[]string{"AWB1", "Customer Return", "KURTA", "1", "Delhivery", "Meesho", "ON1", "", "", "Size issue", "Too small"},
		res.Report.Values(0))

	assert.True(t, res.Diagnostics.Has("Flipkart KC", types.SourceNotFound))
	assert.True(t, res.Diagnostics.Has("Flipkart LL", types.SourceNotFound))
	assert.True(t, res.Diagnostics.Has("SellerFlex", types.SourceMalformed))
}

// =============================================================================
// PICKUP
// =============================================================================

func TestPickupExtraction(t *testing.T) {
	dir := t.TempDir()
	sources := types.Sources{
		"Sellerflex": write(t, dir, "Sellerflex.csv",
			"Shipment Tracking ID,MSKU,Units\nSF1,A,1\nSF2,B,3\nSF1,A,1\n,B,x\n"),
		"Flipkart KC": write(t, dir, "Flipkart KC.csv", "AWB,SKU,Quantity\nX,S,1\n"),
		types.SourceMeeshoManifest: write(t, dir, "Manifest.pdf", "%PDF-stub"),
	}

	res, err := newEngine(t, &fakeReader{pages: manifest()}).RunPickupExtraction(context.Background(), sources)
	require.NoError(t, err)

	assert.Equal(t, types.PickupColumns{
		"A": {"SF1", "SF2"},
		"H": {"DL100", "DL200"},
		"I": {"SF300"},
	}, res.Columns)

	require.Len(t, res.Pivots, 1)
	assert.Equal(t, "Sellerflex", res.Pivots[0].Source)
	assert.Len(t, res.Pivots[0].Entries, 2)

	assert.True(t, res.Diagnostics.Has("Flipkart KC", types.SourceMalformed))
	assert.True(t, res.Diagnostics.Has("Flipkart LL", types.SourceNotFound))
}

// =============================================================================
// RUN CONTROL
// =============================================================================

func TestSecondConcurrentRunIsRejected(t *testing.T) {
	dir := t.TempDir()
	reader := &fakeReader{started: make(chan struct{}), block: make(chan struct{})}
	e := newEngine(t, reader)
	sources := types.Sources{types.SourceMeeshoManifest: write(t, dir, "Manifest.pdf", "%PDF-stub")}

	done := make(chan error, 1)
	go func() {
		_, err := e.RunPickupExtraction(context.Background(), sources)
		done <- err
	}()
	<-reader.started

	_, err := e.RunReturnsReconciliation(context.Background(), types.Sources{})
	assert.ErrorIs(t, err, ErrRunInProgress)

	close(reader.block)
	require.NoError(t, <-done)

	_, err = e.RunReturnsReconciliation(context.Background(), types.Sources{})
	assert.NoError(t, err)
}

func TestCancelledContextStopsRun(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newEngine(t, &fakeReader{}).RunCancellationReconciliation(ctx, types.Sources{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestCancellationDuringManifestRead(t *testing.T) {
	dir := t.TempDir()
	reader := &fakeReader{started: make(chan struct{}), block: make(chan struct{})}
	sources := types.Sources{
		types.SourceMeeshoManifest: write(t, dir, "Manifest.pdf", "%PDF-stub"),
		types.SourceMeeshoData:     write(t, dir, "Meesho_data.csv", "Sub Order No,Reason for Credit Entry\n"),
	}

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		<-reader.started
		cancel()
	}()

	_, err := newEngine(t, reader).RunCancellationReconciliation(ctx, sources)
	assert.ErrorIs(t, err, context.Canceled)
}
