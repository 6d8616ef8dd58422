package types

import (
	"errors"
	"fmt"
	"strings"
)

// =============================================================================
// ERROR TAXONOMY
// =============================================================================

var (
	// ErrSourceNotFound means an expected input file is absent.
	ErrSourceNotFound = errors.New("source not found")

	// ErrSourceMalformed means the file exists but cannot be parsed or lacks
	// a column the extraction needs.
	ErrSourceMalformed = errors.New("source malformed")

	// ErrColumnMissing is a SourceMalformed condition reported at WARN level:
	// the extractor returns an empty result set and the run continues.
	ErrColumnMissing = fmt.Errorf("%w: column missing", ErrSourceMalformed)
)

// DiagnosticKind classifies a per-source problem.
type DiagnosticKind string

const (
	SourceNotFound  DiagnosticKind = "SourceNotFound"
	SourceMalformed DiagnosticKind = "SourceMalformed"
)

// Severity of a diagnostic. Neither level aborts a run.
type Severity string

const (
	SeverityWarn  Severity = "warn"
	SeverityError Severity = "error"
)

// SourceError wraps a failure reading or interpreting a single source.
type SourceError struct {
	Source string
	Kind   DiagnosticKind
	Err    error
}

// Error implements the error interface.
func (e *SourceError) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Source, e.Kind, e.Err)
}

// Unwrap exposes the underlying error to errors.Is / errors.As.
func (e *SourceError) Unwrap() error {
	return e.Err
}

// NotFound builds a SourceNotFound error for source.
func NotFound(source, path string) *SourceError {
	return &SourceError{
		Source: source,
		Kind:   SourceNotFound,
		Err:    fmt.Errorf("%w: %s", ErrSourceNotFound, path),
	}
}

// Malformed builds a SourceMalformed error for source.
func Malformed(source string, err error) *SourceError {
	if !errors.Is(err, ErrSourceMalformed) {
		err = fmt.Errorf("%w: %v", ErrSourceMalformed, err)
	}
	return &SourceError{Source: source, Kind: SourceMalformed, Err: err}
}

// =============================================================================
// DIAGNOSTICS
// =============================================================================

// Diagnostic is a per-source condition collected during a run and surfaced
// alongside whatever partial report could still be produced.
type Diagnostic struct {
	Source   string
	Kind     DiagnosticKind
	Severity Severity
	Message  string
}

// String formats the diagnostic for logs and console output.
func (d Diagnostic) String() string {
	return fmt.Sprintf("[%s] %s (%s): %s", strings.ToUpper(string(d.Severity)), d.Source, d.Kind, d.Message)
}

// DiagnosticFromError converts err into a Diagnostic for source.
// A missing column is a warning; everything else is an error.
func DiagnosticFromError(source string, err error) Diagnostic {
	d := Diagnostic{
		Source:   source,
		Kind:     SourceMalformed,
		Severity: SeverityError,
		Message:  err.Error(),
	}

	var se *SourceError
	if errors.As(err, &se) {
		d.Kind = se.Kind
		d.Message = se.Err.Error()
		if se.Source != "" {
			d.Source = se.Source
		}
	} else if errors.Is(err, ErrSourceNotFound) {
		d.Kind = SourceNotFound
	}

	switch {
	case errors.Is(err, ErrColumnMissing):
		d.Severity = SeverityWarn
	case d.Kind == SourceNotFound:
		d.Severity = SeverityError
	}

	return d
}

// Diagnostics is an ordered collection of per-source conditions.
type Diagnostics []Diagnostic

// Add appends a diagnostic built from err.
func (ds *Diagnostics) Add(source string, err error) {
	*ds = append(*ds, DiagnosticFromError(source, err))
}

// Has reports whether any diagnostic of kind exists for source.
func (ds Diagnostics) Has(source string, kind DiagnosticKind) bool {
	for _, d := range ds {
		if d.Source == source && d.Kind == kind {
			return true
		}
	}
	return false
}
