package localfs

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// Storage writes uploads verbatim into a single directory.
type Storage struct {
	basePath string
}

func New(basePath string) (*Storage, error) {
	if basePath == "" {
		basePath = "./uploads"
	}
	if err := os.MkdirAll(basePath, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &Storage{basePath: basePath}, nil
}

// Save streams data into a hidden temp file and renames it into place, so a
// reader never sees a half written upload. A failed copy leaves nothing behind.
func (s *Storage) Save(ctx context.Context, key string, data io.Reader) (err error) {
	if err := ctx.Err(); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(s.basePath, ".upload-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmp.Name())
		}
	}()

	if _, err = io.Copy(tmp, data); err != nil {
		return fmt.Errorf("write upload %s: %w", key, err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("close upload %s: %w", key, err)
	}
	if err = os.Rename(tmp.Name(), s.Path(key)); err != nil {
		return fmt.Errorf("store upload %s: %w", key, err)
	}
	return nil
}

// Path returns the on-disk location for key. Directory components in key are dropped.
func (s *Storage) Path(key string) string {
	return filepath.Join(s.basePath, filepath.Base(key))
}
