// =============================================================================
// Order Reconciler - Combiner
// =============================================================================
//
// The combiner unions normalized batches into one report. Rows keep batch
// order, then row order within a batch. Every row is aligned to the schema:
// missing columns become "" and columns outside the schema are dropped. The
// schema's channel column is stamped from the batch tag here and nowhere else.
//
// =============================================================================

package combiner

import (
	"github.com/ginjaninja78/order-reconciler/internal/types"
)

// Combine merges batches into a report conforming to schema. With no rows
// the result is an empty, non-nil report.
func Combine(schema types.Schema, batches ...types.Batch) *types.Report {
	total := 0
	for _, b := range batches {
		total += len(b.Rows)
	}

	report := &types.Report{Schema: schema, Rows: make([]types.Row, 0, total)}
	for _, b := range batches {
		for _, r := range b.Rows {
			report.Rows = append(report.Rows, align(schema, r, b.Channel))
		}
	}
	return report
}

func align(schema types.Schema, r types.Row, channel string) types.Row {
	out := make(types.Row, len(schema.Columns))
	for _, c := range schema.Columns {
		out[c] = r[c]
	}
	if schema.ChannelColumn != "" {
		out[schema.ChannelColumn] = channel
	}
	return out
}

// CountByChannel tallies report rows per channel value, for the run summary.
func CountByChannel(report *types.Report) map[string]int {
	counts := make(map[string]int)
	if report == nil {
		return counts
	}
	for _, r := range report.Rows {
		counts[r[report.Schema.ChannelColumn]]++
	}
	return counts
}
