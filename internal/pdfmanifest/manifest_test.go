package pdfmanifest

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// words lays out cells at fixed column starts, one word per cell.
func words(cells ...string) []Word {
	starts := []float64{40, 120, 260, 400}
	var out []Word
	for i, c := range cells {
		if c == "" {
			continue
		}
		out = append(out, Word{X: starts[i], W: float64(len(c)) * 5, FontSize: 10, S: c})
	}
	return out
}

func manifestPage(number int, courier string, y float64, rows ...[]string) Page {
	lines := []Line{
		{Y: 800, Words: []Word{{X: 40, W: 200, FontSize: 10, S: "Pickup manifest"}}},
	}
	if courier != "" {
		lines = append(lines, Line{Y: 780, Words: []Word{{X: 40, W: 60, FontSize: 10, S: "Courier :"}, {X: 104, W: 50, FontSize: 10, S: courier}}})
	}
	for i, r := range rows {
		lines = append(lines, Line{Y: y - float64(i)*14, Words: words(r...)})
	}
	return BuildPage(number, lines, DefaultOptions())
}

func header() []string { return []string{"S.No", "Sub Order No", "AWB", "SKU"} }

func TestBuildPageRebuildsTableAndWrappedCells(t *testing.T) {
	page := BuildPage(2, []Line{
		{Y: 700, Words: words("S.No", "Sub Order No", "AWB", "SKU")},
		{Y: 686, Words: words("1", "1234_", "AWB1", "KURTA")},
		{Y: 675, Words: words("", "5678")},
		{Y: 661, Words: words("2", "999_1", "AWB2", "SAREE")},
		{Y: 500, Words: []Word{{X: 40, W: 80, FontSize: 10, S: "Signature"}}},
	}, DefaultOptions())

	require.Len(t, page.Tables, 1)
	tbl := page.Tables[0]
	require.Len(t, tbl, 3)
	assert.Equal(t, []string{"S.No", "Sub Order No", "AWB", "SKU"}, tbl[0])
	assert.Equal(t, "1234_\n5678", tbl[1][1])
	assert.Equal(t, "AWB2", tbl[2][2])
	assert.Contains(t, page.Text, "Signature")
}

func TestSegmentJoinsCloseWords(t *testing.T) {
	cells := segment([]Word{
		{X: 100, W: 20, FontSize: 10, S: "Ecom"},
		{X: 40, W: 30, FontSize: 10, S: "Courier"},
		{X: 123, W: 30, FontSize: 10, S: "Express"},
	}, 8)

	require.Len(t, cells, 2)
	assert.Equal(t, "Courier", cells[0].text)
	assert.Equal(t, "Ecom Express", cells[1].text)
}

func TestCourierOf(t *testing.T) {
	assert.Equal(t, "Delhivery", CourierOf("Manifest\nCourier :  Delhivery \nDate"))
	assert.Equal(t, "Ecom Express", CourierOf("Courier : Ecom Express"))
	assert.Equal(t, UnknownCourier, CourierOf("no marker here"))
}

func TestShipmentsSkipsCoverAndGroupsByCourier(t *testing.T) {
	pages := []Page{
		manifestPage(1, "Cover", 700, header(), []string{"1", "SHOULD", "SKIP", "X"}),
		manifestPage(2, "Delhivery", 700, header(), []string{"1", "S1", "D1", "A"}),
		manifestPage(3, "Xpressbees", 700, header(), []string{"1", "S2", "X1", "B"}),
		manifestPage(4, "Delhivery", 700, header(), []string{"1", "S3", "D2", "C"}),
		manifestPage(5, "Shadowfax", 0),
	}

	got := Shipments(pages)

	assert.Equal(t, []Shipment{
		{Courier: "Delhivery", TrackingID: "D1", SubOrder: "S1"},
		{Courier: "Delhivery", TrackingID: "D2", SubOrder: "S3"},
		{Courier: "Xpressbees", TrackingID: "X1", SubOrder: "S2"},
	}, got)
}

func TestShipmentsDefaultsTrackingForNarrowTables(t *testing.T) {
	pages := []Page{
		{Number: 2, Text: "Courier : Delhivery", Tables: []Table{{{"S.No", "Sub Order"}, {"1", "12\n34 "}}}},
	}

	got := Shipments(pages)

	require.Len(t, got, 1)
	assert.Equal(t, "1234", got[0].SubOrder)
	assert.Equal(t, DefaultTrackingID, got[0].TrackingID)
}

func TestAWBsFoldsUnknownCouriersAndDropsBlanks(t *testing.T) {
	pages := []Page{
		{Number: 2, Text: "Courier : Delhivery", Tables: []Table{{{"#", "Sub", "AWB"}, {"1", "S1", " D1 "}, {"2", "S2", ""}}}},
		{Number: 3, Text: "Courier : Shadowfax", Tables: []Table{{{"#", "Sub", "AWB"}, {"1", "S3", "SF1"}}}},
		{Number: 4, Text: "Courier : Xpressbees"},
		{Number: 5, Text: "no courier", Tables: []Table{{{"#", "Sub", "AWB"}, {"1", "S4", "U1"}}}},
	}

	groups := AWBs(pages, []string{"Delhivery", "Ecom Express", "Xpressbees"}, "Others")

	assert.Equal(t, []string{"Delhivery", "Others", "Xpressbees"}, groups.Order)
	assert.Equal(t, []string{"D1"}, groups.Values["Delhivery"])
	assert.Equal(t, []string{"SF1", "U1"}, groups.Values["Others"])
	assert.Empty(t, groups.Values["Xpressbees"])
	assert.Equal(t, 2, groups.Counts()["Others"])
}

func TestFileReaderRejectsNonPDF(t *testing.T) {
	path := filepath.Join(t.TempDir(), "Manifest.pdf")
	require.NoError(t, os.WriteFile(path, []byte("not a pdf"), 0644))

	_, err := NewFileReader(DefaultOptions()).ReadPages(context.Background(), path)
	require.Error(t, err)
}

func TestFileReaderMissingFile(t *testing.T) {
	_, err := NewFileReader(DefaultOptions()).ReadPages(context.Background(), filepath.Join(t.TempDir(), "none.pdf"))
	require.Error(t, err)
}
