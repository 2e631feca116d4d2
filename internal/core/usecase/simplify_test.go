package usecase

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kirillkom/doc-simplifier/internal/core/domain"
)

type storageFake struct {
	savedKey  string
	savedBody string
	err       error
}

func (f *storageFake) Save(_ context.Context, key string, data io.Reader) error {
	if f.err != nil {
		return f.err
	}
	raw, err := io.ReadAll(data)
	if err != nil {
		return err
	}
	f.savedKey = key
	f.savedBody = string(raw)
	return nil
}

func (f *storageFake) Path(key string) string {
	return "/uploads/" + key
}

type extractorFake struct {
	doc        domain.Document
	err        error
	calledPath string
}

func (f *extractorFake) Extract(_ context.Context, path string) (domain.Document, error) {
	f.calledPath = path
	if f.err != nil {
		return domain.Document{}, f.err
	}
	doc := f.doc
	doc.Path = path
	return doc, nil
}

type simplifierFake struct {
	calls      int
	gotText    string
	gotMax     int
	defaultMax int
	truncated  bool
	err        error
}

func (f *simplifierFake) Simplify(_ context.Context, text string, maxLength int) (domain.SimplificationResult, error) {
	f.calls++
	f.gotText = text
	f.gotMax = maxLength
	if f.err != nil {
		return domain.SimplificationResult{}, f.err
	}
	res := domain.NewSimplificationResult(text, "simple words", time.Millisecond, f.truncated, "test-model")
	res.MaxLength = maxLength
	if maxLength <= 0 {
		res.MaxLength = f.defaultMax
	}
	return res, nil
}

func TestSimplifyTextTrimsAndDelegates(t *testing.T) {
	simplifier := &simplifierFake{}
	uc := NewSimplifyUseCase(&storageFake{}, &extractorFake{}, simplifier, 0)

	res, err := uc.SimplifyText(context.Background(), "  Use polymorphic inheritance to refactor the API.  \n", 4000)
	require.NoError(t, err)

	assert.Equal(t, 1, simplifier.calls)
	assert.Equal(t, "Use polymorphic inheritance to refactor the API.", simplifier.gotText)
	assert.Equal(t, 4000, simplifier.gotMax)
	assert.Equal(t, res.OriginalLength, domain.CharCount(res.Original))
	assert.Equal(t, res.SimplifiedLength, domain.CharCount(res.Simplified))
}

func TestSimplifyTextRejectsShortInputBeforeNetworkCall(t *testing.T) {
	cases := []string{"", "   ", "too short", " 123456789 "}
	for _, input := range cases {
		simplifier := &simplifierFake{}
		uc := NewSimplifyUseCase(&storageFake{}, &extractorFake{}, simplifier, DefaultMinInputLength)

		_, err := uc.SimplifyText(context.Background(), input, 0)
		require.Error(t, err, "input %q", input)
		assert.True(t, domain.IsKind(err, domain.ErrInvalidInput))
		assert.Zero(t, simplifier.calls, "simplifier must not be called for %q", input)
	}
}

func TestSimplifyTextCountsCharactersNotBytes(t *testing.T) {
	simplifier := &simplifierFake{}
	uc := NewSimplifyUseCase(&storageFake{}, &extractorFake{}, simplifier, DefaultMinInputLength)

	// ten characters, twenty bytes
	_, err := uc.SimplifyText(context.Background(), "ääääääääää", 0)
	require.NoError(t, err)
	assert.Equal(t, 1, simplifier.calls)
}

func TestSimplifyTextWrapsSimplifierError(t *testing.T) {
	simplifier := &simplifierFake{err: domain.WrapError(domain.ErrTimeout, "ollama generate", context.DeadlineExceeded)}
	uc := NewSimplifyUseCase(&storageFake{}, &extractorFake{}, simplifier, 0)

	_, err := uc.SimplifyText(context.Background(), "a long enough technical text", 0)
	require.Error(t, err)
	assert.True(t, domain.IsKind(err, domain.ErrTimeout))
	assert.Contains(t, err.Error(), "simplify text")
}

func TestSimplifyUploadStoresExtractsAndSimplifies(t *testing.T) {
	storage := &storageFake{}
	extractor := &extractorFake{doc: domain.Document{Format: domain.FormatTXT, Text: "Kubernetes pods scale horizontally."}}
	simplifier := &simplifierFake{}
	uc := NewSimplifyUseCase(storage, extractor, simplifier, 0)

	res, err := uc.SimplifyUpload(context.Background(), "spec sheet.txt", bytes.NewBufferString("raw bytes"), 100)
	require.NoError(t, err)

	assert.True(t, strings.HasSuffix(storage.savedKey, "_spec_sheet.txt"), "key %s", storage.savedKey)
	assert.Equal(t, "raw bytes", storage.savedBody)
	assert.Equal(t, "/uploads/"+storage.savedKey, extractor.calledPath)
	assert.Equal(t, "Kubernetes pods scale horizontally.", simplifier.gotText)
	assert.Equal(t, 100, simplifier.gotMax)
	assert.Equal(t, "simple words", res.Simplified)
}

func TestSimplifyUploadRejectsUnsupportedFormat(t *testing.T) {
	extractor := &extractorFake{doc: domain.Document{Format: domain.FormatNone}}
	simplifier := &simplifierFake{}
	uc := NewSimplifyUseCase(&storageFake{}, extractor, simplifier, 0)

	_, err := uc.SimplifyUpload(context.Background(), "slides.pptx", bytes.NewBufferString("x"), 0)
	require.Error(t, err)
	assert.True(t, domain.IsKind(err, domain.ErrUnsupportedFormat))
	assert.True(t, domain.IsKind(err, domain.ErrInvalidInput))
	assert.Zero(t, simplifier.calls)
}

func TestSimplifyUploadRejectsShortExtractedText(t *testing.T) {
	extractor := &extractorFake{doc: domain.Document{Format: domain.FormatPDF, Text: ""}}
	simplifier := &simplifierFake{}
	uc := NewSimplifyUseCase(&storageFake{}, extractor, simplifier, 0)

	_, err := uc.SimplifyUpload(context.Background(), "scan.pdf", bytes.NewBufferString("%PDF"), 0)
	require.Error(t, err)
	assert.True(t, domain.IsKind(err, domain.ErrInvalidInput))
	assert.Zero(t, simplifier.calls)
}

func TestSimplifyUploadPropagatesStorageAndExtractionErrors(t *testing.T) {
	uc := NewSimplifyUseCase(&storageFake{err: errors.New("disk full")}, &extractorFake{}, &simplifierFake{}, 0)
	_, err := uc.SimplifyUpload(context.Background(), "a.txt", bytes.NewBufferString("x"), 0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "save upload: disk full")

	uc = NewSimplifyUseCase(&storageFake{}, &extractorFake{err: errors.New("malformed")}, &simplifierFake{}, 0)
	_, err = uc.SimplifyUpload(context.Background(), "a.pdf", bytes.NewBufferString("x"), 0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "extract text: malformed")
}

func TestSimplifyFileReadsPathInPlace(t *testing.T) {
	storage := &storageFake{}
	extractor := &extractorFake{doc: domain.Document{Format: domain.FormatDOCX, Text: "Deploy with blue green releases."}}
	simplifier := &simplifierFake{}
	uc := NewSimplifyUseCase(storage, extractor, simplifier, 0)

	res, err := uc.SimplifyFile(context.Background(), "/docs/runbook.docx", 0)
	require.NoError(t, err)
	assert.Equal(t, "/docs/runbook.docx", extractor.calledPath)
	assert.Empty(t, storage.savedKey, "local files are not copied into the upload dir")
	assert.Equal(t, "Deploy with blue green releases.", res.Original)
}

func TestSimplifyFileRejectsEmptyPathAndUnsupportedFormat(t *testing.T) {
	uc := NewSimplifyUseCase(&storageFake{}, &extractorFake{doc: domain.Document{Format: domain.FormatNone}}, &simplifierFake{}, 0)

	_, err := uc.SimplifyFile(context.Background(), "  ", 0)
	require.Error(t, err)
	assert.True(t, domain.IsKind(err, domain.ErrInvalidInput))

	_, err = uc.SimplifyFile(context.Background(), "notes.md", 0)
	require.Error(t, err)
	assert.True(t, domain.IsKind(err, domain.ErrUnsupportedFormat))
	assert.Contains(t, err.Error(), `".md"`)
}

func TestSanitizeFilename(t *testing.T) {
	assert.Equal(t, "report_1.txt", sanitizeFilename("report 1.txt"))
	assert.Equal(t, "passwd", sanitizeFilename("../../etc/passwd"))
	assert.Equal(t, "r_sum_.docx", sanitizeFilename("résumé.docx"))
	assert.Equal(t, "document.bin", sanitizeFilename(""))
	assert.Equal(t, "document.bin", sanitizeFilename("   "))
	assert.Equal(t, "report.pdf", sanitizeFilename(" report.pdf \t"))
	assert.Equal(t, domain.FormatPDF, domain.FormatFromPath("/uploads/abc_"+sanitizeFilename("report.pdf ")))
}

func TestSimplifyTextLogsEffectiveCapOnTruncation(t *testing.T) {
	var buf bytes.Buffer
	previous := slog.Default()
	slog.SetDefault(slog.New(slog.NewJSONHandler(&buf, nil)))
	t.Cleanup(func() { slog.SetDefault(previous) })

	simplifier := &simplifierFake{truncated: true, defaultMax: 4000}
	uc := NewSimplifyUseCase(&storageFake{}, &extractorFake{}, simplifier, 0)

	res, err := uc.SimplifyText(context.Background(), "A long technical paragraph.", 0)
	require.NoError(t, err)
	assert.Equal(t, 4000, res.MaxLength)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "input_truncated", entry["msg"])
	assert.EqualValues(t, 4000, entry["max_length"])
}
