package file

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/aliskhannn/image-hosting/internal/storage"
)

const (
	originalsDir = "originals"
	variantsDir  = "variants"
)

// Storage provides a local filesystem blob backend. Originals live under
// basePath/originals, cached variants under basePath/variants. Every write
// goes through a temp file in the destination directory followed by a
// rename, so readers never observe a partially written blob.
type Storage struct {
	basePath string
}

// NewStorage creates a Storage rooted at basePath, creating the originals
// and variants directories if needed.
func NewStorage(basePath string) (*Storage, error) {
	for _, dir := range []string{originalsDir, variantsDir} {
		if err := os.MkdirAll(filepath.Join(basePath, dir), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	return &Storage{basePath: basePath}, nil
}

// SaveOriginal stores the as-uploaded bytes for id. The original is written
// exactly once and never modified afterwards.
func (s *Storage) SaveOriginal(ctx context.Context, id, ext string, src io.Reader) error {
	return s.write(ctx, filepath.Join(s.basePath, originalsDir, id+ext), src)
}

// OpenOriginal returns a reader over the original blob for id, or
// ErrNotFound if it does not exist.
func (s *Storage) OpenOriginal(ctx context.Context, id, ext string) (io.ReadCloser, error) {
	return s.open(filepath.Join(s.basePath, originalsDir, id+ext))
}

// DeleteOriginal removes the original blob. A missing file is not an error.
func (s *Storage) DeleteOriginal(ctx context.Context, id, ext string) error {
	err := os.Remove(filepath.Join(s.basePath, originalsDir, id+ext))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete original %s: %w", id, err)
	}

	return nil
}

// HasVariant reports whether a cached variant exists for (id, width, height).
func (s *Storage) HasVariant(ctx context.Context, id string, width, height int) bool {
	_, err := os.Stat(filepath.Join(s.basePath, variantsDir, storage.VariantKey(id, width, height)))
	return err == nil
}

// OpenVariant returns a reader over the cached variant, or ErrNotFound.
func (s *Storage) OpenVariant(ctx context.Context, id string, width, height int) (io.ReadCloser, error) {
	return s.open(filepath.Join(s.basePath, variantsDir, storage.VariantKey(id, width, height)))
}

// SaveVariant stores an encoded variant. Publication is atomic: a concurrent
// reader either misses the key entirely or sees the complete file.
func (s *Storage) SaveVariant(ctx context.Context, id string, width, height int, src io.Reader) error {
	return s.write(ctx, filepath.Join(s.basePath, variantsDir, storage.VariantKey(id, width, height)), src)
}

// DeleteVariants removes every cached variant belonging to id. Removal is
// best-effort: per-file errors are collected and returned joined, but do not
// stop deletion of the remaining files.
func (s *Storage) DeleteVariants(ctx context.Context, id string) error {
	pattern := filepath.Join(s.basePath, variantsDir, id+"_*")
	matches, err := filepath.Glob(pattern)
	if err != nil {
		return fmt.Errorf("failed to list variants for %s: %w", id, err)
	}

	var errs []error
	for _, path := range matches {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			errs = append(errs, fmt.Errorf("failed to delete variant %s: %w", filepath.Base(path), err))
		}
	}

	return errors.Join(errs...)
}

func (s *Storage) open(path string) (io.ReadCloser, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, storage.ErrNotFound
		}

		return nil, fmt.Errorf("failed to open %s: %w", filepath.Base(path), err)
	}

	return f, nil
}

// write copies src to a temp file next to path and renames it into place.
func (s *Storage) write(ctx context.Context, path string, src io.Reader) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := io.Copy(tmp, src); err != nil {
		tmp.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to write %s: %w", filepath.Base(path), err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to close %s: %w", filepath.Base(path), err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to publish %s: %w", filepath.Base(path), err)
	}

	return nil
}
