// =============================================================================
// Order Reconciler - Aggregator
// =============================================================================
//
// The aggregator builds a SKU -> total quantity pivot for a pickup source.
// Quantities are decimals; a value that does not parse counts as zero.
// Groups keep the order in which their key first appears.
//
// =============================================================================

package pivot

import (
	"fmt"
	"strings"

	"github.com/ginjaninja78/order-reconciler/internal/csvparser"
	"github.com/shopspring/decimal"
)

// Entry is one group of the pivot.
type Entry struct {
	Key   string
	Total decimal.Decimal
}

// Summary is the pivot of one source. A skipped summary carries the reason
// instead of entries.
type Summary struct {
	Source      string
	GroupColumn string
	SumColumn   string
	Entries     []Entry
	Skipped     bool
	Reason      string
}

// GrandTotal returns the sum over all entries.
func (s *Summary) GrandTotal() decimal.Decimal {
	total := decimal.Zero
	for _, e := range s.Entries {
		total = total.Add(e.Total)
	}
	return total
}

// Coerce parses a quantity, returning zero for anything that is not a number.
func Coerce(value string) decimal.Decimal {
	value = strings.TrimSpace(strings.ReplaceAll(value, ",", ""))
	if value == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(value)
	if err != nil {
		return decimal.Zero
	}
	return d
}

// Aggregate groups data by groupColumn and sums sumColumn.
//
// RETURNS:
//   - A Summary. It is Skipped when data is empty or either column is absent.
func Aggregate(source string, data *csvparser.CSVData, groupColumn, sumColumn string) *Summary {
	s := &Summary{Source: source, GroupColumn: groupColumn, SumColumn: sumColumn}

	if data.Len() == 0 {
		s.Skipped = true
		s.Reason = "no rows"
		return s
	}

	groupIdx := data.HeaderIndex(groupColumn)
	sumIdx := data.HeaderIndex(sumColumn)
	switch {
	case groupIdx < 0:
		s.Skipped = true
		s.Reason = fmt.Sprintf("column %q not found", groupColumn)
		return s
	case sumIdx < 0:
		s.Skipped = true
		s.Reason = fmt.Sprintf("column %q not found", sumColumn)
		return s
	}

	positions := make(map[string]int)
	for _, rec := range data.Records {
		key := rec.Get(groupIdx)
		qty := Coerce(rec.Get(sumIdx))

		if i, ok := positions[key]; ok {
			s.Entries[i].Total = s.Entries[i].Total.Add(qty)
			continue
		}
		positions[key] = len(s.Entries)
		s.Entries = append(s.Entries, Entry{Key: key, Total: qty})
	}

	return s
}
