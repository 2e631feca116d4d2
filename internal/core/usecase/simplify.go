package usecase

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/kirillkom/doc-simplifier/internal/core/domain"
	"github.com/kirillkom/doc-simplifier/internal/core/ports"
)

const DefaultMinInputLength = 10

var tracer = otel.Tracer("github.com/kirillkom/doc-simplifier/internal/core/usecase")

type SimplifyUseCase struct {
	storage    ports.UploadStorage
	extractor  ports.TextExtractor
	simplifier ports.Simplifier
	minLength  int
}

func NewSimplifyUseCase(
	storage ports.UploadStorage,
	extractor ports.TextExtractor,
	simplifier ports.Simplifier,
	minLength int,
) *SimplifyUseCase {
	if minLength <= 0 {
		minLength = DefaultMinInputLength
	}
	return &SimplifyUseCase{
		storage:    storage,
		extractor:  extractor,
		simplifier: simplifier,
		minLength:  minLength,
	}
}

func (uc *SimplifyUseCase) SimplifyText(ctx context.Context, text string, maxLength int) (*domain.SimplificationResult, error) {
	text = strings.TrimSpace(text)
	if err := uc.validate(text); err != nil {
		return nil, err
	}
	return uc.simplify(ctx, text, maxLength)
}

func (uc *SimplifyUseCase) SimplifyUpload(
	ctx context.Context,
	filename string,
	body io.Reader,
	maxLength int,
) (*domain.SimplificationResult, error) {
	if body == nil {
		return nil, domain.WrapError(domain.ErrInvalidInput, "simplify upload", errors.New("empty upload body"))
	}

	storageKey := fmt.Sprintf("%s_%s", uuid.NewString(), sanitizeFilename(filename))
	if err := uc.storage.Save(ctx, storageKey, body); err != nil {
		return nil, fmt.Errorf("save upload: %w", err)
	}

	return uc.simplifyDocument(ctx, uc.storage.Path(storageKey), filename, maxLength)
}

// SimplifyFile extracts and simplifies a document that already exists on disk.
func (uc *SimplifyUseCase) SimplifyFile(ctx context.Context, path string, maxLength int) (*domain.SimplificationResult, error) {
	if strings.TrimSpace(path) == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "simplify file", errors.New("file path is required"))
	}
	return uc.simplifyDocument(ctx, path, path, maxLength)
}

func (uc *SimplifyUseCase) simplifyDocument(ctx context.Context, path, displayName string, maxLength int) (*domain.SimplificationResult, error) {
	extractCtx, span := tracer.Start(ctx, "usecase.extract", trace.WithAttributes(
		attribute.String("document.format", string(domain.FormatFromPath(path))),
	))
	doc, err := uc.extractor.Extract(extractCtx, path)
	if err != nil {
		endSpan(span, err)
		return nil, fmt.Errorf("extract text: %w", err)
	}
	span.SetAttributes(attribute.Int("document.chars", domain.CharCount(doc.Text)))
	endSpan(span, nil)

	if doc.Format == domain.FormatNone {
		slog.WarnContext(ctx, "unsupported_document_format", "filename", displayName, "path", path)
		return nil, domain.WrapError(
			domain.ErrInvalidInput,
			"extract text",
			fmt.Errorf("%w: %q", domain.ErrUnsupportedFormat, filepath.Ext(displayName)),
		)
	}

	if err := uc.validate(doc.Text); err != nil {
		return nil, err
	}
	return uc.simplify(ctx, doc.Text, maxLength)
}

func (uc *SimplifyUseCase) validate(text string) error {
	if domain.CharCount(text) < uc.minLength {
		return domain.WrapError(
			domain.ErrInvalidInput,
			"validate input",
			fmt.Errorf("text must contain at least %d characters", uc.minLength),
		)
	}
	return nil
}

func (uc *SimplifyUseCase) simplify(ctx context.Context, text string, maxLength int) (*domain.SimplificationResult, error) {
	ctx, span := tracer.Start(ctx, "usecase.simplify", trace.WithAttributes(
		attribute.Int("input.chars", domain.CharCount(text)),
		attribute.Int("input.max_length", maxLength),
	))
	result, err := uc.simplifier.Simplify(ctx, text, maxLength)
	if err != nil {
		endSpan(span, err)
		return nil, fmt.Errorf("simplify text: %w", err)
	}
	span.SetAttributes(
		attribute.Int("input.max_length", result.MaxLength),
		attribute.Bool("input.truncated", result.Truncated),
		attribute.Int("output.chars", result.SimplifiedLength),
	)
	endSpan(span, nil)
	if result.Truncated {
		slog.WarnContext(ctx, "input_truncated",
			"original_length", result.OriginalLength,
			"max_length", result.MaxLength,
		)
	}
	return &result, nil
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

func sanitizeFilename(name string) string {
	// a trailing blank would otherwise land after the extension
	base := strings.TrimSpace(filepath.Base(strings.TrimSpace(name)))
	base = strings.ReplaceAll(base, " ", "_")
	base = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z':
			return r
		case r >= 'A' && r <= 'Z':
			return r
		case r >= '0' && r <= '9':
			return r
		case r == '.', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, base)
	if base == "" || base == "." || base == "/" {
		return "document.bin"
	}
	return base
}
