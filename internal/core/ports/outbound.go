package ports

import (
	"context"
	"io"

	"github.com/kirillkom/doc-simplifier/internal/core/domain"
)

// UploadStorage keeps uploaded source files on disk.
type UploadStorage interface {
	Save(ctx context.Context, key string, data io.Reader) error
	Path(key string) string
}

// TextExtractor converts a file on disk into plain text.
type TextExtractor interface {
	Extract(ctx context.Context, path string) (domain.Document, error)
}

// Simplifier rewrites technical text through the inference endpoint.
type Simplifier interface {
	Simplify(ctx context.Context, text string, maxLength int) (domain.SimplificationResult, error)
}

// ModelRegistry reports whether the inference endpoint serves the configured model.
type ModelRegistry interface {
	CheckModel(ctx context.Context) (domain.EndpointStatus, error)
}
