package normalizer

import (
	"errors"
	"testing"

	"github.com/ginjaninja78/order-reconciler/internal/config"
	"github.com/ginjaninja78/order-reconciler/internal/csvparser"
	"github.com/ginjaninja78/order-reconciler/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func data(headers []string, rows ...[]string) *csvparser.CSVData {
	d := &csvparser.CSVData{Headers: headers}
	for i, r := range rows {
		fields := make(map[string]string, len(headers))
		for j, h := range headers {
			if j < len(r) {
				fields[h] = r[j]
			}
		}
		d.Records = append(d.Records, csvparser.Record{Line: i + 2, Values: r, Fields: fields})
	}
	return d
}

func returnsSource(t *testing.T, name string) config.SourceDescriptor {
	t.Helper()
	for _, s := range config.DefaultConfig().Returns.Sources {
		if s.Name == name {
			return s
		}
	}
	t.Fatalf("no returns source %q", name)
	return config.SourceDescriptor{}
}

func TestApplyFlipkartReturnsUsesAliasConstantsAndDerived(t *testing.T) {
	d := data(
		[]string{"Order ID", "Tracking ID", "SKU", "Quantity", "Return Type (Column W)", "Return Status"},
		[]string{"OD1", "FMPR1", "SKU-A", "2", "courier_return", "delivered"},
	)

	res, err := Normalize(d, returnsSource(t, "Flipkart KC"))
	require.NoError(t, err)
	require.Len(t, res.Rows, 1)

	row := res.Rows[0]
	assert.Equal(t, "FMPR1", row[types.ColReturnTID])
	assert.Equal(t, "courier_return", row[types.ColReturnType])
	assert.Equal(t, "courier_return", row[types.ColCxSubject])
	assert.Equal(t, "Ekart", row[types.ColCourierPartner])
	assert.Equal(t, "", row[types.ColForwardTID])
	assert.Equal(t, "2", row[types.ColUnits])
	assert.Equal(t, "", row[types.ColCxComment])
	assert.NotContains(t, row, types.ColSalesChannel)
	assert.Equal(t, []string{"Return Sub-reason"}, res.MissingOptional)
}

func TestApplyMissingReturnTypeFallsBackToEmpty(t *testing.T) {
	d := data([]string{"Tracking ID"}, []string{"T1"})

	res, err := Normalize(d, returnsSource(t, "Flipkart LL"))
	require.NoError(t, err)

	assert.Equal(t, "", res.Rows[0][types.ColReturnType])
	assert.Equal(t, "", res.Rows[0][types.ColCxSubject])
}

func TestApplyMissingRequiredColumnIsMalformed(t *testing.T) {
	d := data([]string{"mSKU", "Units"}, []string{"M1", "1"})

	res, err := Normalize(d, returnsSource(t, "SellerFlex"))

	require.Error(t, err)
	assert.True(t, errors.Is(err, types.ErrSourceMalformed))
	assert.False(t, errors.Is(err, types.ErrColumnMissing))
	assert.Empty(t, res.Rows)

	var se *types.SourceError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, "SellerFlex", se.Source)
}

func TestApplyUsesIndexFallback(t *testing.T) {
	desc := config.SourceDescriptor{
		Name: "pickup",
		Columns: []config.ColumnMapping{
			{ColumnRef: config.ColumnRef{Name: "Order ID", Index: intPtr(3)}, Target: types.ColOrderID, Required: true},
		},
	}
	d := data([]string{"a", "b", "c", "order_item"}, []string{"1", "2", "3", "OD9"})

	res, err := New(desc).Apply(d)
	require.NoError(t, err)
	assert.Equal(t, "OD9", res.Rows[0][types.ColOrderID])
}

func intPtr(i int) *int { return &i }
