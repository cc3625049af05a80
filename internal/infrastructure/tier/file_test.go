package tier

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/hszk-dev/framegrab/internal/domain/repository"
)

func TestFile_StoreAndLookup(t *testing.T) {
	f, err := NewFile(t.TempDir())
	if err != nil {
		t.Fatalf("NewFile() error = %v", err)
	}

	entry := testEntry(t, "dQw4w9WgXcQ", 125, 512)

	if err := f.Store(context.Background(), entry.Key, entry); err != nil {
		t.Fatalf("Store() error = %v", err)
	}

	got, err := f.Lookup(context.Background(), entry.Key)
	if err != nil {
		t.Fatalf("Lookup() error = %v", err)
	}
	if !bytes.Equal(got.Image, entry.Image) {
		t.Error("Lookup() returned different image bytes")
	}
	if got.Metadata.VideoID != entry.Metadata.VideoID {
		t.Errorf("VideoID = %q, want %q", got.Metadata.VideoID, entry.Metadata.VideoID)
	}
	if got.Metadata.ContentType != "image/png" {
		t.Errorf("ContentType = %q, want image/png", got.Metadata.ContentType)
	}
}

func TestFile_LookupMiss(t *testing.T) {
	f, _ := NewFile(t.TempDir())

	_, err := f.Lookup(context.Background(), "missing_0_medium")
	if !errors.Is(err, repository.ErrEntryNotFound) {
		t.Errorf("Lookup() error = %v, want ErrEntryNotFound", err)
	}
}

func TestFile_ImageWithoutSidecarIsMiss(t *testing.T) {
	dir := t.TempDir()
	f, _ := NewFile(dir)

	// An image without its metadata sidecar is an unpublished pair.
	imgPath := filepath.Join(dir, "dQw4w9WgXcQ_10_medium"+imageSuffix)
	if err := os.WriteFile(imgPath, []byte("frame"), 0o644); err != nil {
		t.Fatalf("failed to write image: %v", err)
	}

	_, err := f.Lookup(context.Background(), "dQw4w9WgXcQ_10_medium")
	if !errors.Is(err, repository.ErrEntryNotFound) {
		t.Errorf("Lookup() error = %v, want ErrEntryNotFound", err)
	}

	// Lookup must not remove the image; a Store may still be mid-publish.
	if _, err := os.Stat(imgPath); err != nil {
		t.Errorf("image file should survive a miss, stat error = %v", err)
	}
}

func TestFile_CorruptSidecarIsMiss(t *testing.T) {
	dir := t.TempDir()
	f, _ := NewFile(dir)

	key := "dQw4w9WgXcQ_10_medium"
	os.WriteFile(filepath.Join(dir, key+imageSuffix), []byte("frame"), 0o644)
	os.WriteFile(filepath.Join(dir, key+metadataSuffix), []byte("{not json"), 0o644)

	_, err := f.Lookup(context.Background(), key)
	if !errors.Is(err, repository.ErrEntryNotFound) {
		t.Errorf("Lookup() error = %v, want ErrEntryNotFound", err)
	}
}

func TestFile_SurvivesReopen(t *testing.T) {
	dir := t.TempDir()

	first, _ := NewFile(dir)
	entry := testEntry(t, "dQw4w9WgXcQ", 125, 512)
	if err := first.Store(context.Background(), entry.Key, entry); err != nil {
		t.Fatalf("Store() error = %v", err)
	}

	// A fresh instance over the same directory serves the entry.
	second, err := NewFile(dir)
	if err != nil {
		t.Fatalf("NewFile() error = %v", err)
	}

	got, err := second.Lookup(context.Background(), entry.Key)
	if err != nil {
		t.Fatalf("Lookup() after reopen error = %v", err)
	}
	if !bytes.Equal(got.Image, entry.Image) {
		t.Error("Lookup() after reopen returned different image bytes")
	}
}

func TestFile_OverwriteIsIdempotent(t *testing.T) {
	f, _ := NewFile(t.TempDir())

	entry := testEntry(t, "dQw4w9WgXcQ", 125, 512)
	if err := f.Store(context.Background(), entry.Key, entry); err != nil {
		t.Fatalf("first Store() error = %v", err)
	}
	if err := f.Store(context.Background(), entry.Key, entry); err != nil {
		t.Fatalf("second Store() error = %v", err)
	}

	got, err := f.Lookup(context.Background(), entry.Key)
	if err != nil {
		t.Fatalf("Lookup() error = %v", err)
	}
	if !bytes.Equal(got.Image, entry.Image) {
		t.Error("Lookup() returned different image bytes after overwrite")
	}
}

func TestFile_Cleanup(t *testing.T) {
	dir := t.TempDir()
	f, _ := NewFile(dir)

	old := testEntry(t, "videoaaaaaa", 1, 64)
	fresh := testEntry(t, "videobbbbbb", 2, 64)

	if err := f.Store(context.Background(), old.Key, old); err != nil {
		t.Fatalf("Store() error = %v", err)
	}
	if err := f.Store(context.Background(), fresh.Key, fresh); err != nil {
		t.Fatalf("Store() error = %v", err)
	}

	// Age the first pair and plant a stale temp file and an old orphan.
	past := time.Now().Add(-48 * time.Hour)
	for _, name := range []string{old.Key + imageSuffix, old.Key + metadataSuffix} {
		if err := os.Chtimes(filepath.Join(dir, name), past, past); err != nil {
			t.Fatalf("failed to age %s: %v", name, err)
		}
	}
	tmpPath := filepath.Join(dir, tmpPrefix+"leftover")
	os.WriteFile(tmpPath, []byte("junk"), 0o644)
	orphanPath := filepath.Join(dir, "videocccccc_3_medium"+imageSuffix)
	os.WriteFile(orphanPath, []byte("orphan"), 0o644)
	os.Chtimes(orphanPath, past, past)

	removed, err := f.Cleanup(24 * time.Hour)
	if err != nil {
		t.Fatalf("Cleanup() error = %v", err)
	}
	if removed != 1 {
		t.Errorf("Cleanup() removed = %d, want 1", removed)
	}

	if _, err := f.Lookup(context.Background(), old.Key); !errors.Is(err, repository.ErrEntryNotFound) {
		t.Errorf("aged entry should be gone, got err = %v", err)
	}
	if _, err := f.Lookup(context.Background(), fresh.Key); err != nil {
		t.Errorf("fresh entry should survive, got err = %v", err)
	}
	if _, err := os.Stat(tmpPath); !errors.Is(err, os.ErrNotExist) {
		t.Error("stale temp file should be removed")
	}
	if _, err := os.Stat(orphanPath); !errors.Is(err, os.ErrNotExist) {
		t.Error("aged orphaned image should be removed")
	}
}
