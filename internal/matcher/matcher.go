// =============================================================================
// Order Reconciler - Join/Filter Engine
// =============================================================================
//
// The matcher correlates cancellation intent with shipment records.
//
// MEESHO:
//   Manifest shipments (courier, tracking ID, sub order) are left-joined to
//   the Meesho lookup export on the sub order number, then filtered to rows
//   whose status is CANCELLED (trimmed, case-insensitive).
//
// FLIPKART (per cancel/pickup file pair):
//   1. Keep cancel rows dated today whose type is "cancelled by buyer"
//   2. Collect their unique order IDs
//   3. Keep pickup rows carrying one of those order IDs
//   4. Left-join kept pickup rows to the kept cancel rows to attach the
//      cancellation type; every matching cancel row yields an output row
//
// Join keys are trimmed and compared case-sensitively. Unmatched keys are
// counted, never raised.
//
// =============================================================================

package matcher

import (
	"fmt"
	"strings"
	"time"

	"github.com/ginjaninja78/order-reconciler/internal/config"
	"github.com/ginjaninja78/order-reconciler/internal/csvparser"
	"github.com/ginjaninja78/order-reconciler/internal/pdfmanifest"
	"github.com/ginjaninja78/order-reconciler/internal/types"
)

// Stats counts join outcomes for debug logging.
type Stats struct {
	Input     int
	Unmatched int
	Kept      int
}

// =============================================================================
// MEESHO
// =============================================================================

// MeeshoCancellations joins manifest shipments to normalized lookup rows and
// keeps the cancelled ones.
//
// PARAMETERS:
//   - shipments: Rows extracted from the manifest PDF.
//   - lookup: Meesho export rows normalized to the cancellation schema.
//   - cancelled: The status value that marks a cancellation.
//
// RETURNS:
//   - Rows in manifest order carrying OrderID, Tracking ID, Status, SKU,
//     QTY and Invoice Amount.
//   - Join statistics.
func MeeshoCancellations(shipments []pdfmanifest.Shipment, lookup []types.Row, cancelled string) ([]types.Row, Stats) {
	index := indexRows(lookup, types.ColOrderID)
	want := normalizeStatus(cancelled)
	stats := Stats{Input: len(shipments)}

	var out []types.Row
	for _, s := range shipments {
		key := strings.TrimSpace(s.SubOrder)
		matches := index[key]
		if len(matches) == 0 {
			// Left join: an unmatched shipment has no status and never
			// survives the filter.
			stats.Unmatched++
			continue
		}

		for _, m := range matches {
			if normalizeStatus(m.Get(types.ColStatus)) != want {
				continue
			}
			out = append(out, types.Row{
				types.ColOrderID:       key,
				types.ColTrackingID:    s.TrackingID,
				types.ColStatus:        m.Get(types.ColStatus),
				types.ColSKU:           m.Get(types.ColSKU),
				types.ColQuantity:      m.Get(types.ColQuantity),
				types.ColInvoiceAmount: m.Get(types.ColInvoiceAmount),
			})
		}
	}

	stats.Kept = len(out)
	return out, stats
}

func normalizeStatus(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

// indexRows groups rows by the trimmed value of column, keeping file order.
func indexRows(rows []types.Row, column string) map[string][]types.Row {
	index := make(map[string][]types.Row, len(rows))
	for _, r := range rows {
		key := strings.TrimSpace(r.Get(column))
		index[key] = append(index[key], r)
	}
	return index
}

// =============================================================================
// FLIPKART
// =============================================================================

// FlipkartOptions controls the Flipkart cancel filter.
type FlipkartOptions struct {
	// Today is the run date; only cancellations on this calendar day count.
	Today time.Time

	// Layouts are the accepted date formats, tried in order.
	Layouts []string

	// BuyerCancellation is the cancellation type kept, compared after
	// trimming and lower-casing.
	BuyerCancellation string
}

// cancelEntry is a filtered cancel row.
type cancelEntry struct {
	orderID string
	kind    string
}

// FlipkartCancellations joins one Flipkart cancel export to its pickup export.
//
// PARAMETERS:
//   - cancel: The raw cancel export.
//   - cols: Where to find the date, order ID and type columns.
//   - pickup: Pickup export rows normalized to the cancellation schema.
//   - opts: The run date, date layouts and kept cancellation type.
//
// RETURNS:
//   - Rows carrying OrderID, Tracking ID, SKU, QTY, Invoice Amount and
//     Cancellation Type, in pickup file order.
//   - Join statistics.
//   - An error wrapping types.ErrColumnMissing if a cancel column cannot be
//     resolved.
func FlipkartCancellations(cancel *csvparser.CSVData, cols config.FlipkartCancelColumns, pickup []types.Row, opts FlipkartOptions) ([]types.Row, Stats, error) {
	entries, err := filterCancellations(cancel, cols, opts)
	if err != nil {
		return nil, Stats{}, err
	}

	byOrder := make(map[string][]cancelEntry, len(entries))
	for _, e := range entries {
		byOrder[e.orderID] = append(byOrder[e.orderID], e)
	}

	stats := Stats{Input: len(pickup)}
	var out []types.Row
	for _, p := range pickup {
		key := strings.TrimSpace(p.Get(types.ColOrderID))
		matches := byOrder[key]
		if len(matches) == 0 {
			stats.Unmatched++
			continue
		}
		for _, m := range matches {
			out = append(out, types.Row{
				types.ColOrderID:          key,
				types.ColTrackingID:       p.Get(types.ColTrackingID),
				types.ColSKU:              p.Get(types.ColSKU),
				types.ColQuantity:         p.Get(types.ColQuantity),
				types.ColInvoiceAmount:    p.Get(types.ColInvoiceAmount),
				types.ColCancellationType: m.kind,
			})
		}
	}

	stats.Kept = len(out)
	return out, stats, nil
}

// CancelledOrderIDs returns the unique order IDs of today's buyer
// cancellations, first occurrence first.
func CancelledOrderIDs(cancel *csvparser.CSVData, cols config.FlipkartCancelColumns, opts FlipkartOptions) ([]string, error) {
	entries, err := filterCancellations(cancel, cols, opts)
	if err != nil {
		return nil, err
	}
	ids := make([]string, len(entries))
	for i, e := range entries {
		ids[i] = e.orderID
	}
	return types.Dedup(ids), nil
}

func filterCancellations(cancel *csvparser.CSVData, cols config.FlipkartCancelColumns, opts FlipkartOptions) ([]cancelEntry, error) {
	dateIdx, ok := cancel.Resolve(cols.Date)
	if !ok {
		return nil, missing(cols.Date)
	}
	orderIdx, ok := cancel.Resolve(cols.OrderID)
	if !ok {
		return nil, missing(cols.OrderID)
	}
	typeIdx, ok := cancel.Resolve(cols.Type)
	if !ok {
		return nil, missing(cols.Type)
	}

	want := strings.ToLower(strings.TrimSpace(opts.BuyerCancellation))

	var out []cancelEntry
	for _, rec := range cancel.Records {
		date := ParseDate(rec.Get(dateIdx), opts.Layouts, opts.Today.Location())
		if !SameDay(date, opts.Today) {
			continue
		}
		kind := rec.Get(typeIdx)
		if strings.ToLower(strings.TrimSpace(kind)) != want {
			continue
		}
		out = append(out, cancelEntry{orderID: strings.TrimSpace(rec.Get(orderIdx)), kind: kind})
	}
	return out, nil
}

func missing(ref config.ColumnRef) error {
	return fmt.Errorf("%w: %s", types.ErrColumnMissing, ref.Label())
}

// =============================================================================
// CHANNEL
// =============================================================================

// ChannelFor names the Flipkart sale channel for an export file name:
// llChannel when the name contains marker, kcChannel otherwise.
func ChannelFor(fileName, marker, llChannel, kcChannel string) string {
	if marker != "" && strings.Contains(fileName, marker) {
		return llChannel
	}
	return kcChannel
}
