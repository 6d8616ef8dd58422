package engine

import (
	"context"
	"time"

	"github.com/ginjaninja78/order-reconciler/internal/combiner"
	"github.com/ginjaninja78/order-reconciler/internal/csvparser"
	"github.com/ginjaninja78/order-reconciler/internal/matcher"
	"github.com/ginjaninja78/order-reconciler/internal/normalizer"
	"github.com/ginjaninja78/order-reconciler/internal/pdfmanifest"
	"github.com/ginjaninja78/order-reconciler/internal/types"
	"github.com/google/uuid"
)

// =============================================================================
// RESULTS
// =============================================================================

// RunInfo holds the fields shared by every run result.
type RunInfo struct {
	// RunID identifies the run in logs and the summary log.
	RunID string

	// Date is the run clock reading at the start of the run.
	Date time.Time

	// Duration is the wall time of the run.
	Duration time.Duration

	// Diagnostics lists every per-source condition met during the run.
	Diagnostics types.Diagnostics
}

// CancellationResult is the outcome of a cancellation reconciliation.
type CancellationResult struct {
	RunInfo

	// Report holds the combined rows, possibly empty, never nil.
	Report *types.Report
}

func (e *Engine) newRun() *run {
	id := uuid.NewString()
	return &run{id: id, tag: id[:8], started: e.now(), logger: e.logger}
}

func (r *run) info() RunInfo {
	return RunInfo{RunID: r.id, Date: r.started, Duration: time.Since(r.started), Diagnostics: r.diagnostics}
}

// =============================================================================
// CANCELLATION RECONCILIATION
// =============================================================================

// RunCancellationReconciliation reconciles Meesho and Flipkart cancellations.
//
// PARAMETERS:
//   - ctx: Checked between sources and between manifest pages.
//   - sources: SourceMeeshoManifest, SourceMeeshoData and, per Flipkart export
//     name N, FlipkartCancelPrefix+N and FlipkartPickupPrefix+N.
//
// RETURNS:
//   - The combined report and diagnostics.
//   - ErrRunInProgress or a context error; nothing else.
//
// PROCESSING STEPS:
//   1. Meesho: manifest shipments left-joined to the lookup export,
//      filtered to CANCELLED
//   2. Flipkart: per export pair, today's buyer cancellations joined to
//      the pickup export
//   3. Combine into the cancellation schema
func (e *Engine) RunCancellationReconciliation(ctx context.Context, sources types.Sources) (*CancellationResult, error) {
	release, err := e.begin(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	r := e.newRun()
	e.logger.Infof("[%s] Starting cancellation reconciliation", r.tag)

	var batches []types.Batch

	// =========================================================================
	// STEP 1: MEESHO
	// =========================================================================

	b, err := e.meeshoCancellations(ctx, r, sources)
	if err != nil {
		return nil, err
	}
	if b != nil {
		batches = append(batches, *b)
	}

	// =========================================================================
	// STEP 2: FLIPKART
	// =========================================================================

	for _, name := range sources.WithPrefix(types.FlipkartCancelPrefix) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if b := e.flipkartCancellations(r, sources, name); b != nil {
			batches = append(batches, *b)
		}
	}

	// =========================================================================
	// STEP 3: COMBINE
	// =========================================================================

	report := combiner.Combine(types.CancellationSchema(), batches...)
	e.logger.Infof("[%s] Cancellation reconciliation found %d cancelled products", r.tag, len(report.Rows))

	return &CancellationResult{RunInfo: r.info(), Report: report}, nil
}

// meeshoCancellations returns the Meesho batch, or nil when the Meesho
// sources are unusable.
func (e *Engine) meeshoCancellations(ctx context.Context, r *run, sources types.Sources) (*types.Batch, error) {
	cfg := e.cfg.Cancellation
	desc := cfg.MeeshoLookup
	desc.Name = types.SourceMeeshoData

	manifestPath, haveManifest := r.locate(sources, types.SourceMeeshoManifest)
	dataPath, haveData := r.locate(sources, types.SourceMeeshoData)
	if !haveManifest || !haveData {
		e.logger.Infof("[%s] Meesho files not found, skipping", r.tag)
		return nil, nil
	}

	pages, ok, err := e.readManifest(ctx, r, types.SourceMeeshoManifest, manifestPath)
	if err != nil || !ok {
		return nil, err
	}
	shipments := pdfmanifest.Shipments(pages)
	e.logger.Debugf("[%s] %s: %d shipments", r.tag, types.SourceMeeshoManifest, len(shipments))

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := csvparser.Extract(desc.Name, dataPath, desc.CSV)
	if err != nil {
		r.record(desc.Name, err)
		return nil, nil
	}
	lookup, err := normalizer.Normalize(data, desc)
	if err != nil {
		r.record(desc.Name, err)
		return nil, nil
	}

	rows, stats := matcher.MeeshoCancellations(shipments, lookup.Rows, cfg.CancelledStatus)
	e.logger.Debugf("[%s] Meesho join: %d shipments, %d unmatched, %d cancelled",
		r.tag, stats.Input, stats.Unmatched, stats.Kept)

	return &types.Batch{Channel: desc.Channel, Source: desc.Name, Rows: rows}, nil
}

// flipkartCancellations returns the batch for one Flipkart export pair, or
// nil when either file is unusable.
func (e *Engine) flipkartCancellations(r *run, sources types.Sources, name string) *types.Batch {
	cfg := e.cfg.Cancellation
	cancelSource := types.FlipkartCancelPrefix + name
	pickupSource := types.FlipkartPickupPrefix + name

	cancelPath, ok := r.locate(sources, cancelSource)
	if !ok {
		return nil
	}
	pickupPath, ok := r.locate(sources, pickupSource)
	if !ok {
		e.logger.Warnf("[%s] Pickup file not found for %s", r.tag, name)
		return nil
	}

	cancel, err := csvparser.Extract(cancelSource, cancelPath, cfg.FlipkartCancel.CSV)
	if err != nil {
		r.record(cancelSource, err)
		return nil
	}

	desc := cfg.FlipkartPickup
	desc.Name = pickupSource
	pickupData, err := csvparser.Extract(pickupSource, pickupPath, desc.CSV)
	if err != nil {
		r.record(pickupSource, err)
		return nil
	}
	pickup, err := normalizer.Normalize(pickupData, desc)
	if err != nil {
		r.record(pickupSource, err)
		return nil
	}

	rows, stats, err := matcher.FlipkartCancellations(cancel, cfg.FlipkartCancel, pickup.Rows, matcher.FlipkartOptions{
		Today:             r.started,
		Layouts:           e.cfg.DateLayouts,
		BuyerCancellation: cfg.BuyerCancellation,
	})
	if err != nil {
		r.record(cancelSource, types.Malformed(cancelSource, err))
		return nil
	}

	channel := matcher.ChannelFor(name, cfg.LLMarker, cfg.LLChannel, cfg.KCChannel)
	e.logger.Debugf("[%s] %s join: %d pickup rows, %d unmatched, %d cancelled",
		r.tag, channel, stats.Input, stats.Unmatched, stats.Kept)
	e.logger.Infof("[%s] Processed %s", r.tag, name)

	return &types.Batch{Channel: channel, Source: cancelSource, Rows: rows}
}
