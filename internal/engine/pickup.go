package engine

import (
	"context"

	"github.com/ginjaninja78/order-reconciler/internal/csvparser"
	"github.com/ginjaninja78/order-reconciler/internal/pdfmanifest"
	"github.com/ginjaninja78/order-reconciler/internal/pivot"
	"github.com/ginjaninja78/order-reconciler/internal/types"
)

// PickupResult is the outcome of a pickup extraction.
type PickupResult struct {
	RunInfo

	// Columns maps a spreadsheet column letter to its deduplicated tracking
	// IDs, in first-seen order.
	Columns types.PickupColumns

	// Pivots holds one summary per CSV source that produced tracking IDs.
	Pivots []*pivot.Summary
}

// RunPickupExtraction collects tracking IDs per pickup column.
//
// PARAMETERS:
//   - ctx: Checked between sources and between manifest pages.
//   - sources: One entry per pickup CSV source plus SourceMeeshoManifest.
//
// RETURNS:
//   - Tracking IDs by column letter, pivots and diagnostics.
//   - ErrRunInProgress or a context error; nothing else.
//
// PROCESSING STEPS:
//   1. CSV sources: read the tracking column, drop blanks, dedup, and pivot
//      the source's SKU/quantity columns
//   2. Manifest: AWBs per courier, unknown couriers folded into Others
func (e *Engine) RunPickupExtraction(ctx context.Context, sources types.Sources) (*PickupResult, error) {
	release, err := e.begin(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	r := e.newRun()
	cfg := e.cfg.Pickup
	e.logger.Infof("[%s] Starting pickup extraction", r.tag)

	cols := make(types.PickupColumns)
	var pivots []*pivot.Summary

	// =========================================================================
	// STEP 1: CSV SOURCES
	// =========================================================================

	for _, src := range cfg.Sources {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		path, ok := r.locate(sources, src.Name)
		if !ok {
			e.logger.Warnf("[%s] Skipping missing source: %s", r.tag, src.Name)
			continue
		}

		data, err := csvparser.Extract(src.Name, path, src.CSV, src.TrackingColumn)
		if err != nil {
			r.record(src.Name, err)
			continue
		}

		ids := csvparser.GetUniqueValues(data, src.TrackingColumn)
		if len(ids) == 0 {
			e.logger.Warnf("[%s] No tracking IDs found for %s", r.tag, src.Name)
			continue
		}

		letter, ok := cfg.ColumnLetters[src.Name]
		if !ok || letter == "" {
			e.logger.Warnf("[%s] No column mapping found for %s", r.tag, src.Name)
			continue
		}
		cols[letter] = types.Dedup(append(cols[letter], ids...))
		e.logger.Infof("[%s] %s: %d tracking IDs -> column %s", r.tag, src.Name, len(ids), letter)

		if src.PivotGroup != "" && src.PivotSum != "" {
			sum := pivot.Aggregate(src.Name, data, src.PivotGroup, src.PivotSum)
			if sum.Skipped {
				e.logger.Warnf("[%s] Pivot for %s skipped: %s", r.tag, src.Name, sum.Reason)
			}
			pivots = append(pivots, sum)
		}
	}

	// =========================================================================
	// STEP 2: MEESHO MANIFEST
	// =========================================================================

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if path, ok := r.locate(sources, types.SourceMeeshoManifest); ok {
		pages, ok, err := e.readManifest(ctx, r, types.SourceMeeshoManifest, path)
		if err != nil {
			return nil, err
		}
		if ok {
			e.assignCouriers(r, cols, pdfmanifest.AWBs(pages, cfg.KnownCouriers, cfg.OthersBucket))
		}
	} else {
		e.logger.Warnf("[%s] Meesho PDF not found, skipping PDF processing", r.tag)
	}

	return &PickupResult{RunInfo: r.info(), Columns: cols, Pivots: pivots}, nil
}

// assignCouriers places each courier's AWBs under its column. Known couriers
// use CourierPrefix+courier; the others bucket uses its own name.
func (e *Engine) assignCouriers(r *run, cols types.PickupColumns, groups *pdfmanifest.CourierGroups) {
	cfg := e.cfg.Pickup
	for _, courier := range groups.Order {
		key := cfg.CourierPrefix + courier
		if courier == cfg.OthersBucket {
			key = cfg.OthersBucket
		}

		letter, ok := cfg.ColumnLetters[key]
		if !ok || letter == "" {
			e.logger.Warnf("[%s] Skipping unrecognized courier: %s", r.tag, courier)
			continue
		}

		awbs := groups.Values[courier]
		if len(awbs) == 0 {
			continue
		}
		cols[letter] = types.Dedup(append(cols[letter], awbs...))
		e.logger.Infof("[%s] Meesho %s: %d AWBs -> column %s", r.tag, courier, len(awbs), letter)
	}
}
