package pdfmanifest

import (
	"context"
	"fmt"

	"github.com/ledongthuc/pdf"
)

// Reader loads the pages of a manifest document.
type Reader interface {
	ReadPages(ctx context.Context, path string) ([]Page, error)
}

// FileReader reads manifests from disk with github.com/ledongthuc/pdf.
type FileReader struct {
	Options Options
}

// NewFileReader creates a FileReader with the given segmentation options.
func NewFileReader(opts Options) *FileReader {
	return &FileReader{Options: opts}
}

// ReadPages decodes every page of the PDF at path, checking ctx between pages.
//
// The pdf package panics on some corrupt inputs; those panics are returned as
// errors so a bad manifest only fails its own source.
func (r *FileReader) ReadPages(ctx context.Context, path string) (pages []Page, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			pages = nil
			err = fmt.Errorf("failed to decode PDF %s: %v", path, rec)
		}
	}()

	f, doc, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open PDF: %w", err)
	}
	defer f.Close()

	total := doc.NumPage()
	for i := 1; i <= total; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		p := doc.Page(i)
		if p.V.IsNull() {
			continue
		}

		rows, err := p.GetTextByRow()
		if err != nil {
			return nil, fmt.Errorf("failed to read page %d: %w", i, err)
		}

		lines := make([]Line, 0, len(rows))
		for _, row := range rows {
			line := Line{Y: float64(row.Position)}
			for _, t := range row.Content {
				line.Words = append(line.Words, Word{X: t.X, W: t.W, FontSize: t.FontSize, S: t.S})
			}
			lines = append(lines, line)
		}

		pages = append(pages, BuildPage(i, lines, r.Options))
	}

	return pages, nil
}
