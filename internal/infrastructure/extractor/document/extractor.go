// Package document extracts plain text from uploaded PDF, DOCX and TXT files.
package document

import (
	"context"
	"fmt"

	"github.com/kirillkom/doc-simplifier/internal/core/domain"
)

type Extractor struct{}

func NewExtractor() *Extractor {
	return &Extractor{}
}

// Extract dispatches on the file extension. Unsupported extensions yield an
// empty document with FormatNone and no error.
func (e *Extractor) Extract(ctx context.Context, path string) (domain.Document, error) {
	if err := ctx.Err(); err != nil {
		return domain.Document{}, err
	}

	format := domain.FormatFromPath(path)
	var (
		text string
		err  error
	)
	switch format {
	case domain.FormatPDF:
		text, err = extractPDF(path)
	case domain.FormatDOCX:
		text, err = extractDOCX(path)
	case domain.FormatTXT:
		text, err = extractText(path)
	default:
		return domain.Document{Path: path, Format: domain.FormatNone}, nil
	}
	if err != nil {
		return domain.Document{}, fmt.Errorf("extract %s: %w", format, err)
	}

	return domain.Document{Path: path, Format: format, Text: text}, nil
}
