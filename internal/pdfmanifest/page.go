// =============================================================================
// Order Reconciler - Manifest Page Model
// =============================================================================
//
// A manifest page is reduced to its free text and the tables found on it.
// Tables are rebuilt from positioned text: words on a text row are grouped
// into cells wherever the horizontal gap exceeds Options.CellGap, and runs of
// rows with at least Options.MinTableColumns cells form a table. A short row
// directly beneath a table row is a wrapped continuation and is folded into
// the cells above it, joined by a newline.
//
// =============================================================================

package pdfmanifest

import (
	"math"
	"sort"
	"strings"
)

// Options controls table reconstruction.
type Options struct {
	CellGap         float64
	MinTableColumns int
}

// DefaultOptions returns segmentation settings that fit the Meesho manifest.
func DefaultOptions() Options {
	return Options{CellGap: 8, MinTableColumns: 3}
}

// Word is a run of text at a horizontal position.
type Word struct {
	X        float64
	W        float64
	FontSize float64
	S        string
}

// Line is the set of words sharing a baseline. Y grows up the page.
type Line struct {
	Y     float64
	Words []Word
}

// Table is a grid of cell text; the first row is the header.
type Table [][]string

// Page is one manifest page reduced to text and tables.
type Page struct {
	Number int
	Text   string
	Tables []Table
}

// cell is a segmented table cell with its horizontal extent.
type cell struct {
	x0, x1 float64
	text   string
}

// BuildPage segments lines into a Page. Lines may be in any order; they are
// read top to bottom.
func BuildPage(number int, lines []Line, opts Options) Page {
	if opts.CellGap <= 0 || opts.MinTableColumns < 2 {
		opts = DefaultOptions()
	}

	sorted := make([]Line, 0, len(lines))
	for _, l := range lines {
		if len(l.Words) > 0 {
			sorted = append(sorted, l)
		}
	}
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Y > sorted[j].Y })

	page := Page{Number: number}

	var (
		text    []string
		current *tableBuilder
		prevY   float64
		prevH   float64
	)

	flush := func() {
		if current != nil && len(current.rows) > 0 {
			page.Tables = append(page.Tables, current.table())
		}
		current = nil
	}

	for _, line := range sorted {
		cells := segment(line.Words, opts.CellGap)

		parts := make([]string, len(cells))
		for i, c := range cells {
			parts[i] = c.text
		}
		text = append(text, strings.Join(parts, " "))

		adjacent := current != nil && prevY-line.Y <= prevH*1.6

		switch {
		case len(cells) >= opts.MinTableColumns:
			if current == nil || !adjacent {
				flush()
				current = newTableBuilder(cells)
			} else {
				current.add(cells)
			}
		case adjacent:
			current.continueRow(cells)
		default:
			flush()
		}

		prevY = line.Y
		prevH = lineHeight(line.Words)
	}
	flush()

	page.Text = strings.Join(text, "\n")
	return page
}

// segment merges the words of one line into cells.
func segment(words []Word, gap float64) []cell {
	ws := make([]Word, len(words))
	copy(ws, words)
	sort.SliceStable(ws, func(i, j int) bool { return ws[i].X < ws[j].X })

	var cells []cell
	for _, w := range ws {
		s := strings.TrimSpace(w.S)
		if s == "" {
			continue
		}
		end := w.X + w.W
		if n := len(cells); n > 0 && w.X-cells[n-1].x1 <= gap {
			last := &cells[n-1]
			if w.X-last.x1 > spaceWidth(w) {
				last.text += " "
			}
			last.text += s
			last.x1 = math.Max(last.x1, end)
			continue
		}
		cells = append(cells, cell{x0: w.X, x1: end, text: s})
	}
	return cells
}

// spaceWidth estimates the gap that reads as a space between two glyph runs.
func spaceWidth(w Word) float64 {
	if w.FontSize > 0 {
		return w.FontSize * 0.2
	}
	return 1.5
}

func lineHeight(words []Word) float64 {
	h := 0.0
	for _, w := range words {
		h = math.Max(h, w.FontSize)
	}
	if h == 0 {
		h = 10
	}
	return h
}

// =============================================================================
// TABLE BUILDER
// =============================================================================

type tableBuilder struct {
	columns []float64
	rows    [][]string
}

func newTableBuilder(header []cell) *tableBuilder {
	b := &tableBuilder{}
	for _, c := range header {
		b.columns = append(b.columns, c.x0)
	}
	b.add(header)
	return b
}

// column returns the index of the column whose start is nearest x.
func (b *tableBuilder) column(x float64) int {
	best, dist := 0, math.Inf(1)
	for i, start := range b.columns {
		if d := math.Abs(start - x); d < dist {
			best, dist = i, d
		}
	}
	return best
}

func (b *tableBuilder) add(cells []cell) {
	row := make([]string, len(b.columns))
	for _, c := range cells {
		i := b.column(c.x0)
		if row[i] != "" {
			row[i] += " "
		}
		row[i] += c.text
	}
	b.rows = append(b.rows, row)
}

func (b *tableBuilder) continueRow(cells []cell) {
	last := b.rows[len(b.rows)-1]
	for _, c := range cells {
		i := b.column(c.x0)
		if last[i] == "" {
			last[i] = c.text
		} else {
			last[i] += "\n" + c.text
		}
	}
}

func (b *tableBuilder) table() Table {
	t := make(Table, len(b.rows))
	copy(t, b.rows)
	return t
}
