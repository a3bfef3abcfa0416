package file

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/aliskhannn/image-hosting/internal/storage"
)

func newTestStorage(t *testing.T) (*Storage, string) {
	t.Helper()

	dir := t.TempDir()
	s, err := NewStorage(dir)
	if err != nil {
		t.Fatalf("NewStorage failed: %v", err)
	}

	return s, dir
}

func TestSaveAndOpenOriginal(t *testing.T) {
	s, _ := newTestStorage(t)
	ctx := context.Background()

	payload := []byte("original bytes")
	if err := s.SaveOriginal(ctx, "img1", ".png", bytes.NewReader(payload)); err != nil {
		t.Fatalf("SaveOriginal failed: %v", err)
	}

	r, err := s.OpenOriginal(ctx, "img1", ".png")
	if err != nil {
		t.Fatalf("OpenOriginal failed: %v", err)
	}
	defer r.Close()

	got, err := io.ReadAll(r)
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if !bytes.Equal(got, payload) {
		t.Fatalf("round trip mismatch: got %q", got)
	}
}

func TestOpenOriginal_NotFound(t *testing.T) {
	s, _ := newTestStorage(t)

	_, err := s.OpenOriginal(context.Background(), "missing", ".png")
	if !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestSaveVariant_PublishesWithoutTempResidue(t *testing.T) {
	s, dir := newTestStorage(t)
	ctx := context.Background()

	if s.HasVariant(ctx, "img1", 100, 50) {
		t.Fatalf("variant should not exist yet")
	}

	payload := []byte("variant bytes")
	if err := s.SaveVariant(ctx, "img1", 100, 50, bytes.NewReader(payload)); err != nil {
		t.Fatalf("SaveVariant failed: %v", err)
	}

	if !s.HasVariant(ctx, "img1", 100, 50) {
		t.Fatalf("variant should exist after save")
	}

	r, err := s.OpenVariant(ctx, "img1", 100, 50)
	if err != nil {
		t.Fatalf("OpenVariant failed: %v", err)
	}
	defer r.Close()

	got, err := io.ReadAll(r)
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if !bytes.Equal(got, payload) {
		t.Fatalf("round trip mismatch: got %q", got)
	}

	// No temp files may survive a completed publish.
	entries, err := os.ReadDir(filepath.Join(dir, "variants"))
	if err != nil {
		t.Fatalf("ReadDir failed: %v", err)
	}
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), ".tmp-") {
			t.Fatalf("leftover temp file: %s", e.Name())
		}
	}
}

func TestDeleteVariants_RemovesOnlyMatchingID(t *testing.T) {
	s, dir := newTestStorage(t)
	ctx := context.Background()

	for _, dims := range [][2]int{{100, 50}, {200, 100}} {
		if err := s.SaveVariant(ctx, "img1", dims[0], dims[1], bytes.NewReader([]byte("v"))); err != nil {
			t.Fatalf("SaveVariant failed: %v", err)
		}
	}
	if err := s.SaveVariant(ctx, "img2", 100, 50, bytes.NewReader([]byte("v"))); err != nil {
		t.Fatalf("SaveVariant failed: %v", err)
	}

	if err := s.DeleteVariants(ctx, "img1"); err != nil {
		t.Fatalf("DeleteVariants failed: %v", err)
	}

	entries, err := os.ReadDir(filepath.Join(dir, "variants"))
	if err != nil {
		t.Fatalf("ReadDir failed: %v", err)
	}
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), "img1_") {
			t.Fatalf("variant not deleted: %s", e.Name())
		}
	}

	if !s.HasVariant(ctx, "img2", 100, 50) {
		t.Fatalf("unrelated variant was deleted")
	}
}

func TestDeleteOriginal_MissingIsNotAnError(t *testing.T) {
	s, _ := newTestStorage(t)

	if err := s.DeleteOriginal(context.Background(), "missing", ".png"); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
}
