package matcher

import (
	"errors"
	"testing"
	"time"

	"github.com/ginjaninja78/order-reconciler/internal/config"
	"github.com/ginjaninja78/order-reconciler/internal/csvparser"
	"github.com/ginjaninja78/order-reconciler/internal/pdfmanifest"
	"github.com/ginjaninja78/order-reconciler/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var today = time.Date(2025, time.March, 14, 11, 0, 0, 0, time.UTC)

func cancelData(rows ...[]string) *csvparser.CSVData {
	d := &csvparser.CSVData{Headers: []string{"Order Cancellation Date", "Item", "Order ID", "SKU", "Qty", "Cancellation Type"}}
	for i, r := range rows {
		d.Records = append(d.Records, csvparser.Record{Line: i + 2, Values: r})
	}
	return d
}

func options() FlipkartOptions {
	return FlipkartOptions{Today: today, Layouts: config.DefaultDateLayouts, BuyerCancellation: "cancelled by buyer"}
}

func TestMeeshoStatusIsCaseInsensitive(t *testing.T) {
	shipments := []pdfmanifest.Shipment{
		{Courier: "Delhivery", TrackingID: "D1", SubOrder: "S1"},
		{Courier: "Delhivery", TrackingID: "D2", SubOrder: "S2"},
		{Courier: "Delhivery", TrackingID: "D3", SubOrder: "S3"},
		{Courier: "Delhivery", TrackingID: "D4", SubOrder: "S4"},
	}
	lookup := []types.Row{
		{types.ColOrderID: "S1", types.ColStatus: " cancelled ", types.ColSKU: "A", types.ColQuantity: "1"},
		{types.ColOrderID: "S2", types.ColStatus: "Cancelled", types.ColSKU: "B", types.ColQuantity: "2"},
		{types.ColOrderID: "S3", types.ColStatus: "Delivered", types.ColSKU: "C", types.ColQuantity: "3"},
	}

	rows, stats := MeeshoCancellations(shipments, lookup, "CANCELLED")

	require.Len(t, rows, 2)
	assert.Equal(t, "S1", rows[0][types.ColOrderID])
	assert.Equal(t, "D1", rows[0][types.ColTrackingID])
	assert.Equal(t, " cancelled ", rows[0][types.ColStatus])
	assert.Equal(t, "B", rows[1][types.ColSKU])
	assert.Equal(t, 1, stats.Unmatched)
	assert.Equal(t, 2, stats.Kept)
}

func TestMeeshoDuplicateLookupRowsProduceMultipleRows(t *testing.T) {
	shipments := []pdfmanifest.Shipment{{TrackingID: "D1", SubOrder: "S1"}}
	lookup := []types.Row{
		{types.ColOrderID: "S1", types.ColStatus: "CANCELLED", types.ColSKU: "A"},
		{types.ColOrderID: "S1 ", types.ColStatus: "CANCELLED", types.ColSKU: "B"},
	}

	rows, _ := MeeshoCancellations(shipments, lookup, "CANCELLED")

	require.Len(t, rows, 2)
	assert.Equal(t, "A", rows[0][types.ColSKU])
	assert.Equal(t, "B", rows[1][types.ColSKU])
}

func TestFlipkartKeepsOnlyTodaysBuyerCancellations(t *testing.T) {
	cancel := cancelData(
		[]string{"2025-03-14 10:30:00", "x", "OD1", "S", "1", "Cancelled by Buyer"},
		[]string{"2025-03-13 23:59:59", "x", "OD2", "S", "1", "cancelled by buyer"},
		[]string{"2025-03-14", "x", "OD3", "S", "1", "cancelled by seller"},
		[]string{"not a date", "x", "OD4", "S", "1", "cancelled by buyer"},
		[]string{"14-03-2025", "x", " OD5 ", "S", "1", " cancelled by buyer "},
	)

	ids, err := CancelledOrderIDs(cancel, config.DefaultConfig().Cancellation.FlipkartCancel, options())
	require.NoError(t, err)
	assert.Equal(t, []string{"OD1", "OD5"}, ids)
}

func TestFlipkartEndToEndJoin(t *testing.T) {
	cancel := cancelData(
		[]string{"2025-03-14 09:00:00", "x", "OD1", "S", "1", "cancelled by buyer"},
		[]string{"2025-03-14 09:05:00", "x", "OD1", "S", "1", "Cancelled by buyer"},
		[]string{"2025-03-14 09:10:00", "x", "OD2", "S", "1", "cancelled by buyer"},
	)
	pickup := []types.Row{
		{types.ColOrderID: "OD1", types.ColTrackingID: "T1", types.ColSKU: "SKU1", types.ColQuantity: "1", types.ColInvoiceAmount: "100"},
		{types.ColOrderID: "OD9", types.ColTrackingID: "T9", types.ColSKU: "SKU9", types.ColQuantity: "1", types.ColInvoiceAmount: "900"},
		{types.ColOrderID: " OD2", types.ColTrackingID: "T2", types.ColSKU: "SKU2", types.ColQuantity: "3", types.ColInvoiceAmount: "250"},
	}

	rows, stats, err := FlipkartCancellations(cancel, config.DefaultConfig().Cancellation.FlipkartCancel, pickup, options())
	require.NoError(t, err)

	require.Len(t, rows, 3)
	assert.Equal(t, "cancelled by buyer", rows[0][types.ColCancellationType])
	assert.Equal(t, "Cancelled by buyer", rows[1][types.ColCancellationType])
	assert.Equal(t, "OD2", rows[2][types.ColOrderID])
	assert.Equal(t, "T2", rows[2][types.ColTrackingID])
	assert.Equal(t, "250", rows[2][types.ColInvoiceAmount])
	assert.NotContains(t, rows[0], types.ColSaleChannel)
	assert.Equal(t, 1, stats.Unmatched)
}

func TestFlipkartUsesIndexFallbackForRenamedHeaders(t *testing.T) {
	cancel := &csvparser.CSVData{
		Headers: []string{"cancelled_on", "b", "order_id", "d", "e", "reason"},
		Records: []csvparser.Record{{Values: []string{"2025-03-14", "", "OD7", "", "", "cancelled by buyer"}}},
	}

	ids, err := CancelledOrderIDs(cancel, config.DefaultConfig().Cancellation.FlipkartCancel, options())
	require.NoError(t, err)
	assert.Equal(t, []string{"OD7"}, ids)
}

func TestFlipkartNarrowExportIsColumnMissing(t *testing.T) {
	cancel := &csvparser.CSVData{Headers: []string{"a", "b", "c"}}

	_, _, err := FlipkartCancellations(cancel, config.DefaultConfig().Cancellation.FlipkartCancel, nil, options())

	require.Error(t, err)
	assert.True(t, errors.Is(err, types.ErrColumnMissing))
}

func TestParseDate(t *testing.T) {
	loc := time.UTC
	d := ParseDate("2025-03-14T08:00:00", config.DefaultDateLayouts, loc)
	assert.True(t, SameDay(d, today))

	assert.Equal(t, NoDate, ParseDate("", config.DefaultDateLayouts, loc))
	assert.Equal(t, NoDate, ParseDate("yesterday", config.DefaultDateLayouts, loc))
	assert.False(t, SameDay(NoDate, today))
}

func TestChannelFor(t *testing.T) {
	assert.Equal(t, "Flipkart LL", ChannelFor("Flipkart LL.csv", "LL", "Flipkart LL", "Flipkart KC"))
	assert.Equal(t, "Flipkart KC", ChannelFor("Flipkart KC.csv", "LL", "Flipkart LL", "Flipkart KC"))
}
