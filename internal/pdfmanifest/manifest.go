// =============================================================================
// Order Reconciler - Meesho Manifest Extraction
// =============================================================================
//
// The Meesho manifest is a multi-page PDF. Page 1 is a cover page and is
// ignored. Every other page names its courier after the literal marker
// "Courier :" and carries a table of shipments:
//
//   column 0: serial number
//   column 1: sub order number (may wrap onto a second line)
//   column 2: AWB / tracking ID
//
// A courier may span several pages; its entries accumulate in page order.
//
// =============================================================================

package pdfmanifest

import (
	"strings"
)

const (
	// CourierMarker precedes the courier name in page text.
	CourierMarker = "Courier :"

	// UnknownCourier labels pages without a courier marker.
	UnknownCourier = "Unknown"

	// DefaultTrackingID stands in for a row with no tracking cell.
	DefaultTrackingID = "123"

	subOrderColumn = 1
	trackingColumn = 2
)

// Shipment is one manifest row used by the cancellation flow.
type Shipment struct {
	Courier    string
	TrackingID string
	SubOrder   string
}

// CourierGroups holds values per courier in first-seen courier order.
type CourierGroups struct {
	Order  []string
	Values map[string][]string
}

func newCourierGroups() *CourierGroups {
	return &CourierGroups{Values: make(map[string][]string)}
}

func (g *CourierGroups) ensure(courier string) {
	if _, ok := g.Values[courier]; !ok {
		g.Order = append(g.Order, courier)
		g.Values[courier] = nil
	}
}

func (g *CourierGroups) add(courier string, values ...string) {
	g.ensure(courier)
	g.Values[courier] = append(g.Values[courier], values...)
}

// Counts returns the number of values per courier, for logging.
func (g *CourierGroups) Counts() map[string]int {
	out := make(map[string]int, len(g.Values))
	for k, v := range g.Values {
		out[k] = len(v)
	}
	return out
}

// CourierOf returns the courier named on a page, or UnknownCourier.
func CourierOf(text string) string {
	i := strings.Index(text, CourierMarker)
	if i < 0 {
		return UnknownCourier
	}
	rest := text[i+len(CourierMarker):]
	if nl := strings.IndexByte(rest, '\n'); nl >= 0 {
		rest = rest[:nl]
	}
	return strings.TrimSpace(rest)
}

// dataPages drops the cover page.
func dataPages(pages []Page) []Page {
	out := make([]Page, 0, len(pages))
	for _, p := range pages {
		if p.Number > 1 {
			out = append(out, p)
		}
	}
	return out
}

// Shipments extracts (courier, tracking ID, sub order) rows for the
// cancellation flow. Only pages carrying tables contribute. Rows are grouped
// by courier in the order couriers first appear.
func Shipments(pages []Page) []Shipment {
	type entry struct{ subOrder, tracking string }

	var order []string
	groups := make(map[string][]entry)

	for _, p := range dataPages(pages) {
		if len(p.Tables) == 0 {
			continue
		}

		courier := CourierOf(p.Text)
		if _, ok := groups[courier]; !ok {
			order = append(order, courier)
			groups[courier] = nil
		}

		for _, t := range p.Tables {
			if len(t) < 2 {
				continue
			}
			for _, row := range t[1:] {
				e := entry{tracking: DefaultTrackingID}
				if len(row) > subOrderColumn {
					e.subOrder = strings.TrimSpace(strings.ReplaceAll(row[subOrderColumn], "\n", ""))
				}
				if len(row) > trackingColumn {
					e.tracking = strings.TrimSpace(row[trackingColumn])
				}
				groups[courier] = append(groups[courier], e)
			}
		}
	}

	var out []Shipment
	for _, courier := range order {
		for _, e := range groups[courier] {
			out = append(out, Shipment{Courier: courier, TrackingID: e.tracking, SubOrder: e.subOrder})
		}
	}
	return out
}

// AWBs extracts tracking IDs per courier for the pickup report. Couriers not
// in known are folded into others. Empty values are dropped.
func AWBs(pages []Page, known []string, others string) *CourierGroups {
	allowed := make(map[string]bool, len(known))
	for _, k := range known {
		allowed[k] = true
	}

	groups := newCourierGroups()
	for _, p := range dataPages(pages) {
		courier := CourierOf(p.Text)
		if !allowed[courier] {
			courier = others
		}
		groups.ensure(courier)

		for _, t := range p.Tables {
			if len(t) < 2 {
				continue
			}
			for _, row := range t[1:] {
				if len(row) <= trackingColumn {
					continue
				}
				if awb := strings.TrimSpace(row[trackingColumn]); awb != "" {
					groups.add(courier, awb)
				}
			}
		}
	}
	return groups
}
