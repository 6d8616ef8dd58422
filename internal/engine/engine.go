// =============================================================================
// Order Reconciler - Reconciliation Engine
// =============================================================================
//
// The engine orchestrates a reconciliation run from raw files to a combined
// report. It is a plain library: the CLI discovers input files, hands them in
// as a types.Sources map, and decides what to do with the result.
//
// RUN PIPELINE:
//   1. Extract every present source (CSV or manifest PDF)
//   2. Normalize each source onto the report's canonical schema
//   3. Join and filter (cancellations) or pass through (returns)
//   4. Aggregate pivots (pickup only)
//   5. Combine the batches, stamping each with its sale channel
//
// FAILURE MODEL:
//   A missing or malformed source never aborts a run. It is recorded as a
//   Diagnostic and the run continues with the remaining sources. The only
//   errors a Run* method returns are ErrRunInProgress and context errors.
//
// CONCURRENCY:
//   At most one run is in flight per Engine. A concurrent call fails fast
//   with ErrRunInProgress instead of queueing.
//
// =============================================================================

package engine

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/ginjaninja78/order-reconciler/internal/config"
	"github.com/ginjaninja78/order-reconciler/internal/logging"
	"github.com/ginjaninja78/order-reconciler/internal/pdfmanifest"
	"github.com/ginjaninja78/order-reconciler/internal/types"
	"golang.org/x/sync/semaphore"
)

// ErrRunInProgress is returned when a run is requested while another run on
// the same Engine has not finished.
var ErrRunInProgress = errors.New("a reconciliation run is already in progress")

// =============================================================================
// ENGINE STRUCTURE
// =============================================================================

// Engine runs reconciliations against one configuration.
type Engine struct {
	// cfg holds the source descriptors and report settings.
	cfg *config.MainConfig

	// logger receives progress and per-source conditions.
	logger logging.Logger

	// pdf reads manifest pages.
	pdf pdfmanifest.Reader

	// now is the run clock. The cancellation date filter compares against it.
	now func() time.Time

	// sem admits a single run at a time.
	sem *semaphore.Weighted
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger. The default discards output.
func WithLogger(l logging.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithPDFReader replaces the manifest reader.
func WithPDFReader(r pdfmanifest.Reader) Option {
	return func(e *Engine) {
		if r != nil {
			e.pdf = r
		}
	}
}

// WithClock sets the run clock.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// =============================================================================
// CONSTRUCTOR
// =============================================================================

// New creates an Engine.
//
// PARAMETERS:
//   - cfg: The loaded configuration.
//   - opts: Optional logger, PDF reader and clock overrides.
//
// RETURNS:
//   - A new Engine instance.
func New(cfg *config.MainConfig, opts ...Option) *Engine {
	e := &Engine{
		cfg:    cfg,
		logger: logging.Nop(),
		pdf: pdfmanifest.NewFileReader(pdfmanifest.Options{
			CellGap:         cfg.PDF.CellGap,
			MinTableColumns: cfg.PDF.MinTableColumns,
		}),
		now: time.Now,
		sem: semaphore.NewWeighted(1),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Now returns the engine's current run time.
func (e *Engine) Now() time.Time {
	return e.now()
}

// =============================================================================
// RUN HELPERS
// =============================================================================

// begin admits a run and checks ctx.
//
// RETURNS:
//   - A release function that must be called when the run ends.
//   - ErrRunInProgress or a context error.
func (e *Engine) begin(ctx context.Context) (func(), error) {
	if !e.sem.TryAcquire(1) {
		return nil, ErrRunInProgress
	}
	release := func() { e.sem.Release(1) }

	if err := ctx.Err(); err != nil {
		release()
		return nil, err
	}
	return release, nil
}

// run carries the per-run state shared by the Run* methods.
type run struct {
	id          string
	tag         string
	started     time.Time
	diagnostics types.Diagnostics
	logger      logging.Logger
}

// record adds a diagnostic for source and logs it at its severity.
func (r *run) record(source string, err error) {
	r.diagnostics.Add(source, err)
	d := r.diagnostics[len(r.diagnostics)-1]
	if d.Severity == types.SeverityWarn {
		r.logger.Warnf("[%s] %s", r.tag, d)
	} else {
		r.logger.Errorf("[%s] %s", r.tag, d)
	}
}

// locate returns the path of source when it is registered and exists on
// disk, recording SourceNotFound otherwise.
func (r *run) locate(sources types.Sources, name string) (string, bool) {
	path, ok := sources.Path(name)
	if !ok {
		r.record(name, types.NotFound(name, "(not provided)"))
		return "", false
	}
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			r.record(name, types.NotFound(name, path))
		} else {
			r.record(name, types.Malformed(name, err))
		}
		return "", false
	}
	return path, true
}

// readManifest loads manifest pages. A context error is returned as-is; any
// other failure is recorded and reported as !ok.
func (e *Engine) readManifest(ctx context.Context, r *run, source, path string) ([]pdfmanifest.Page, bool, error) {
	pages, err := e.pdf.ReadPages(ctx, path)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, false, ctxErr
		}
		r.record(source, types.Malformed(source, fmt.Errorf("failed to read manifest: %w", err)))
		return nil, false, nil
	}
	e.logger.Debugf("[%s] %s: read %d pages", r.tag, source, len(pages))
	return pages, true, nil
}
