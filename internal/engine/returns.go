package engine

import (
	"context"
	"strings"

	"github.com/ginjaninja78/order-reconciler/internal/combiner"
	"github.com/ginjaninja78/order-reconciler/internal/csvparser"
	"github.com/ginjaninja78/order-reconciler/internal/normalizer"
	"github.com/ginjaninja78/order-reconciler/internal/types"
)

// ReturnsResult is the outcome of a returns reconciliation.
type ReturnsResult struct {
	RunInfo

	// Report holds the combined rows, possibly empty, never nil.
	Report *types.Report
}

// RunReturnsReconciliation normalizes every configured returns export and
// combines them into the returns schema.
//
// PARAMETERS:
//   - ctx: Checked between sources.
//   - sources: One entry per returns source descriptor, keyed by its Name.
//
// RETURNS:
//   - The combined report and diagnostics. A source with a missing required
//     column is skipped with a SourceMalformed diagnostic; missing optional
//     columns are filled with "".
//   - ErrRunInProgress or a context error; nothing else.
func (e *Engine) RunReturnsReconciliation(ctx context.Context, sources types.Sources) (*ReturnsResult, error) {
	release, err := e.begin(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	r := e.newRun()
	e.logger.Infof("[%s] Starting returns reconciliation", r.tag)

	var batches []types.Batch
	for _, desc := range e.cfg.Returns.Sources {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		path, ok := r.locate(sources, desc.Name)
		if !ok {
			continue
		}

		data, err := csvparser.Extract(desc.Name, path, desc.CSV)
		if err != nil {
			r.record(desc.Name, err)
			continue
		}

		res, err := normalizer.Normalize(data, desc)
		if err != nil {
			r.record(desc.Name, err)
			continue
		}
		if len(res.MissingOptional) > 0 {
			e.logger.Debugf("[%s] %s: filled missing columns with blanks: %s",
				r.tag, desc.Name, strings.Join(res.MissingOptional, ", "))
		}

		e.logger.Infof("[%s] %s: %d records processed", r.tag, desc.Name, len(res.Rows))
		batches = append(batches, types.Batch{Channel: desc.Channel, Source: desc.Name, Rows: res.Rows})
	}

	report := combiner.Combine(types.ReturnsSchema(), batches...)
	e.logger.Infof("[%s] Returns reconciliation combined %d records", r.tag, len(report.Rows))

	return &ReturnsResult{RunInfo: r.info(), Report: report}, nil
}
