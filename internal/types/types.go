// =============================================================================
// Order Reconciler - Shared Types
// =============================================================================
//
// This package contains shared types used across multiple modules to avoid
// import cycles. Types defined here are used by:
//   - normalizer
//   - matcher
//   - combiner
//   - engine
//   - report
//
// =============================================================================

package types

import (
	"sort"
	"strings"
)

// =============================================================================
// REPORT KINDS
// =============================================================================

// ReportKind identifies which canonical schema a record set conforms to.
type ReportKind string

const (
	KindCancellation ReportKind = "cancellation"
	KindPickup       ReportKind = "pickup"
	KindReturns      ReportKind = "returns"
)

// =============================================================================
// CANONICAL COLUMNS
// =============================================================================

// Cancellation report columns.
const (
	ColSaleChannel      = "SaleChannel"
	ColOrderID          = "OrderID"
	ColTrackingID       = "Tracking ID"
	ColStatus           = "Status"
	ColCancellationType = "Cancellation Type"
	ColSKU              = "SKU"
	ColQuantity         = "QTY"
	ColInvoiceAmount    = "Invoice Amount"
)

// Returns report columns.
const (
	ColReturnTID      = "Return TID"
	ColReturnType     = "Return Type"
	ColUnits          = "Units"
	ColCourierPartner = "Courier Partner"
	ColSalesChannel   = "Sales Channel"
	ColOID            = "OID"
	ColForwardTID     = "Forward TID"
	ColReturnStatus   = "Status of Return at the time of Capture"
	ColCxSubject      = "Cx Subject"
	ColCxComment      = "Cx Comment"
)

// Schema describes the fixed column order of a report type and which column
// the Combiner stamps with the sale channel.
type Schema struct {
	Kind          ReportKind
	Columns       []string
	ChannelColumn string
}

// Has reports whether column is part of the schema.
func (s Schema) Has(column string) bool {
	for _, c := range s.Columns {
		if c == column {
			return true
		}
	}
	return false
}

// CancellationSchema returns the canonical cancellation report schema.
func CancellationSchema() Schema {
	return Schema{
		Kind: KindCancellation,
		Columns: []string{
			ColSaleChannel,
			ColOrderID,
			ColTrackingID,
			ColStatus,
			ColCancellationType,
			ColSKU,
			ColQuantity,
			ColInvoiceAmount,
		},
		ChannelColumn: ColSaleChannel,
	}
}

// ReturnsSchema returns the canonical returns report schema.
func ReturnsSchema() Schema {
	return Schema{
		Kind: KindReturns,
		Columns: []string{
			ColReturnTID,
			ColReturnType,
			ColSKU,
			ColUnits,
			ColCourierPartner,
			ColSalesChannel,
			ColOID,
			ColForwardTID,
			ColReturnStatus,
			ColCxSubject,
			ColCxComment,
		},
		ChannelColumn: ColSalesChannel,
	}
}

// =============================================================================
// RECORDS
// =============================================================================

// Row is a normalized record keyed by canonical column name.
type Row map[string]string

// Get returns the value for column, or "" when the column is absent.
func (r Row) Get(column string) string {
	return r[column]
}

// Clone returns a shallow copy of the row.
func (r Row) Clone() Row {
	out := make(Row, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// Batch is a set of normalized rows produced from one source, tagged with the
// sale channel the Combiner stamps onto every row.
type Batch struct {
	Channel string
	Source  string
	Rows    []Row
}

// Report is the combined, schema-aligned output of one run.
// It is produced fresh each run and has no identity across runs.
type Report struct {
	Schema Schema
	Rows   []Row
}

// Empty reports whether the report holds no rows.
func (r *Report) Empty() bool {
	return r == nil || len(r.Rows) == 0
}

// Values returns the row at index i as a slice ordered by the schema columns.
func (r *Report) Values(i int) []string {
	row := r.Rows[i]
	out := make([]string, len(r.Schema.Columns))
	for j, c := range r.Schema.Columns {
		out[j] = row[c]
	}
	return out
}

// PickupColumns maps a destination spreadsheet column letter to the tracking
// IDs written beneath it.
type PickupColumns map[string][]string

// Letters returns the column letters in sorted order.
func (p PickupColumns) Letters() []string {
	letters := make([]string, 0, len(p))
	for l := range p {
		letters = append(letters, l)
	}
	sort.Slice(letters, func(i, j int) bool {
		if len(letters[i]) != len(letters[j]) {
			return len(letters[i]) < len(letters[j])
		}
		return letters[i] < letters[j]
	})
	return letters
}

// =============================================================================
// SOURCES
// =============================================================================

// Sources maps a logical source name to a file path.
// An empty or missing value means the source is absent.
type Sources map[string]string

// Logical source names.
const (
	SourceMeeshoManifest = "Meesho Manifest"
	SourceMeeshoData     = "Meesho Data"

	// FlipkartCancelPrefix and FlipkartPickupPrefix are joined with the
	// export's file name to key a Flipkart cancel/pickup pair.
	FlipkartCancelPrefix = "Flipkart Cancel/"
	FlipkartPickupPrefix = "Flipkart Pickup/"
)

// Path returns the path registered for name and whether it is present.
func (s Sources) Path(name string) (string, bool) {
	p, ok := s[name]
	if !ok || strings.TrimSpace(p) == "" {
		return "", false
	}
	return p, true
}

// WithPrefix returns the suffixes of all keys starting with prefix, sorted so
// runs are deterministic.
func (s Sources) WithPrefix(prefix string) []string {
	var names []string
	for k := range s {
		if strings.HasPrefix(k, prefix) {
			names = append(names, strings.TrimPrefix(k, prefix))
		}
	}
	sort.Strings(names)
	return names
}

// =============================================================================
// DEDUPLICATION
// =============================================================================

// Dedup removes repeated values, keeping the first occurrence of each.
// Values are compared exactly; callers trim before calling.
func Dedup(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
