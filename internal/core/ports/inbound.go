package ports

import (
	"context"
	"io"

	"github.com/kirillkom/doc-simplifier/internal/core/domain"
)

// DocumentSimplifier is the inbound contract for text and upload simplification.
type DocumentSimplifier interface {
	SimplifyText(ctx context.Context, text string, maxLength int) (*domain.SimplificationResult, error)
	SimplifyUpload(ctx context.Context, filename string, body io.Reader, maxLength int) (*domain.SimplificationResult, error)
	SimplifyFile(ctx context.Context, path string, maxLength int) (*domain.SimplificationResult, error)
}

// EndpointStatusChecker is the inbound contract for inference readiness.
type EndpointStatusChecker interface {
	Check(ctx context.Context) (*domain.EndpointStatus, error)
}
