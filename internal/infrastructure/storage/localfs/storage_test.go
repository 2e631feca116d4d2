package localfs

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSaveWritesBytesVerbatim(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "uploads")
	storage, err := New(dir)
	require.NoError(t, err)

	payload := "%PDF-1.4\n\x00\x01binary"
	require.NoError(t, storage.Save(context.Background(), "abc_report.pdf", strings.NewReader(payload)))

	raw, err := os.ReadFile(filepath.Join(dir, "abc_report.pdf"))
	require.NoError(t, err)
	assert.Equal(t, payload, string(raw))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp file must be renamed away")
}

func TestSaveDiscardsPartialUpload(t *testing.T) {
	dir := t.TempDir()
	storage, err := New(dir)
	require.NoError(t, err)

	errBroken := errors.New("connection reset")
	body := io.MultiReader(strings.NewReader("partial"), &failingReader{err: errBroken})
	err = storage.Save(context.Background(), "abc_notes.txt", body)
	require.ErrorIs(t, err, errBroken)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestSaveHonoursCancelledContext(t *testing.T) {
	storage, err := New(t.TempDir())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.ErrorIs(t, storage.Save(ctx, "abc.txt", strings.NewReader("x")), context.Canceled)
}

func TestPathStaysInsideBaseDir(t *testing.T) {
	dir := t.TempDir()
	storage, err := New(dir)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dir, "passwd"), storage.Path("../../etc/passwd"))
}

type failingReader struct {
	err error
}

func (r *failingReader) Read([]byte) (int, error) {
	return 0, r.err
}
