// =============================================================================
// Order Reconciler - Column Normalizer
// =============================================================================
//
// The normalizer maps raw source records onto a canonical report schema using
// the source's descriptor. Every platform export names its columns
// differently; the descriptor says which source column feeds which canonical
// field.
//
// MAPPING STEPS (per record):
//   1. Columns: each ColumnMapping copies one resolved source column
//   2. Constants: fixed values for fields the source does not carry
//   3. Derived: copy an already mapped canonical field into another
//
// MISSING COLUMNS:
//   - Required: the whole source is malformed and yields no rows
//   - Optional: the canonical field is filled with ""
//
// The sale channel is never set here; the Combiner stamps it.
//
// =============================================================================

package normalizer

import (
	"fmt"

	"github.com/ginjaninja78/order-reconciler/internal/config"
	"github.com/ginjaninja78/order-reconciler/internal/csvparser"
	"github.com/ginjaninja78/order-reconciler/internal/types"
)

// =============================================================================
// NORMALIZER
// =============================================================================

// Normalizer applies one source descriptor to parsed data.
type Normalizer struct {
	desc config.SourceDescriptor
}

// New creates a Normalizer for the given descriptor.
func New(desc config.SourceDescriptor) *Normalizer {
	return &Normalizer{desc: desc}
}

// Result is the outcome of normalizing one source.
type Result struct {
	// Rows are the normalized records in file order.
	Rows []types.Row

	// MissingOptional lists optional columns that were filled with "".
	MissingOptional []string
}

// resolved is a mapping whose source column has been located.
type resolved struct {
	index  int
	target string
}

// Apply normalizes data.
//
// PARAMETERS:
//   - data: The parsed source file.
//
// RETURNS:
//   - The normalized rows and any optional columns that were absent.
//   - A *types.SourceError (SourceMalformed) if a required column is absent.
func (n *Normalizer) Apply(data *csvparser.CSVData) (*Result, error) {
	result := &Result{}

	var cols []resolved
	var blanks []string

	for _, m := range n.desc.Columns {
		idx, ok := data.Resolve(m.ColumnRef)
		if !ok {
			if m.Required {
				return result, types.Malformed(n.desc.Name,
					fmt.Errorf("%w: required column %q not found", types.ErrSourceMalformed, m.Label()))
			}
			result.MissingOptional = append(result.MissingOptional, m.Label())
			blanks = append(blanks, m.Target)
			continue
		}
		cols = append(cols, resolved{index: idx, target: m.Target})
	}

	result.Rows = make([]types.Row, 0, data.Len())
	for _, rec := range data.Records {
		result.Rows = append(result.Rows, n.row(rec, cols, blanks))
	}

	return result, nil
}

// row builds one canonical row.
func (n *Normalizer) row(rec csvparser.Record, cols []resolved, blanks []string) types.Row {
	row := make(types.Row, len(cols)+len(blanks)+len(n.desc.Constants)+len(n.desc.Derived))

	for _, target := range blanks {
		row[target] = ""
	}
	for _, c := range cols {
		row[c.target] = rec.Get(c.index)
	}
	for target, value := range n.desc.Constants {
		row[target] = value
	}
	for _, d := range n.desc.Derived {
		row[d.Target] = row[d.From]
	}

	return row
}

// Normalize applies desc to already parsed data.
func Normalize(data *csvparser.CSVData, desc config.SourceDescriptor) (*Result, error) {
	return New(desc).Apply(data)
}
