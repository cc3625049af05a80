package tier

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hszk-dev/framegrab/internal/domain/model"
	"github.com/hszk-dev/framegrab/internal/domain/repository"
)

const fileTierName = "file"

const (
	imageSuffix    = ".img"
	metadataSuffix = ".meta.json"
	tmpPrefix      = ".tmp-"
)

// File is the persistent local cache tier. One image file plus one sidecar
// metadata file per key; both share the base name so the pair can be reasoned
// about together. Writes go to a temporary path and are published with an
// atomic rename, image first, metadata second: the metadata file is the
// publish signal, so a reader never observes metadata without its image.
//
// No eviction policy is applied here; retention is operator-managed via
// Cleanup or external tooling. Unbounded growth is an operational concern,
// not a correctness one.
type File struct {
	dir string
}

// Compile-time verification that File implements repository.Tier.
var _ repository.Tier = (*File)(nil)

// NewFile creates a file tier rooted at dir, creating it if needed.
func NewFile(dir string) (*File, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create cache directory: %w", err)
	}
	return &File{dir: dir}, nil
}

// Lookup reads the entry for key. The metadata sidecar is checked first:
// a missing sidecar is a plain miss even if an image file exists (the pair
// was never fully published, or a Store is still in flight).
func (f *File) Lookup(_ context.Context, key string) (*model.CacheEntry, error) {
	metaPath := f.metadataPath(key)
	imgPath := f.imagePath(key)

	// Missing sidecar is a plain miss. The image may legitimately exist
	// without it mid-Store (image publishes first), so orphan removal is
	// deferred to Cleanup where age can be checked.
	metaBytes, err := os.ReadFile(metaPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, repository.ErrEntryNotFound
		}
		return nil, fmt.Errorf("read metadata %s: %w", metaPath, err)
	}

	var meta model.Metadata
	if err := json.Unmarshal(metaBytes, &meta); err != nil {
		// Corrupt sidecar is indistinguishable from a half-written pair that
		// escaped the atomic publish; treat as a miss.
		slog.Warn("corrupt metadata sidecar, treating as miss",
			slog.String("path", metaPath),
			slog.String("error", err.Error()),
		)
		return nil, repository.ErrEntryNotFound
	}

	image, err := os.ReadFile(imgPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, repository.ErrEntryNotFound
		}
		return nil, fmt.Errorf("read image %s: %w", imgPath, err)
	}

	return &model.CacheEntry{
		Key:      key,
		Image:    image,
		Metadata: meta,
	}, nil
}

// Store publishes the entry atomically: image bytes first, then the metadata
// sidecar. Each file is written to a temporary sibling and renamed into place
// so concurrent Lookups on the same host never see a partial file.
func (f *File) Store(_ context.Context, key string, entry *model.CacheEntry) error {
	if err := f.writeAtomic(f.imagePath(key), entry.Image); err != nil {
		return fmt.Errorf("store image: %w", err)
	}

	metaBytes, err := json.Marshal(entry.Metadata)
	if err != nil {
		return fmt.Errorf("marshal metadata: %w", err)
	}

	if err := f.writeAtomic(f.metadataPath(key), metaBytes); err != nil {
		return fmt.Errorf("store metadata: %w", err)
	}

	return nil
}

// Name implements repository.Tier.
func (f *File) Name() string {
	return fileTierName
}

// Cleanup removes published pairs older than maxAge and any leftover
// temporary files. Returns the number of removed cache entries.
func (f *File) Cleanup(maxAge time.Duration) (int, error) {
	entries, err := os.ReadDir(f.dir)
	if err != nil {
		return 0, fmt.Errorf("read cache directory: %w", err)
	}

	cutoff := time.Now().Add(-maxAge)
	removed := 0

	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()

		if strings.HasPrefix(name, tmpPrefix) {
			_ = os.Remove(filepath.Join(f.dir, name))
			continue
		}

		info, err := e.Info()
		if err != nil || info.ModTime().After(cutoff) {
			continue
		}

		if strings.HasSuffix(name, metadataSuffix) {
			key := strings.TrimSuffix(name, metadataSuffix)
			// Remove the sidecar first so concurrent readers see a miss
			// before the image disappears.
			if err := os.Remove(f.metadataPath(key)); err == nil {
				_ = os.Remove(f.imagePath(key))
				removed++
			}
			continue
		}

		if strings.HasSuffix(name, imageSuffix) {
			// Orphaned image: published but its sidecar never landed, or the
			// sidecar was removed. Old enough that no Store is mid-publish.
			key := strings.TrimSuffix(name, imageSuffix)
			if _, err := os.Stat(f.metadataPath(key)); errors.Is(err, fs.ErrNotExist) {
				_ = os.Remove(f.imagePath(key))
			}
		}
	}

	return removed, nil
}

func (f *File) imagePath(key string) string {
	return filepath.Join(f.dir, key+imageSuffix)
}

func (f *File) metadataPath(key string) string {
	return filepath.Join(f.dir, key+metadataSuffix)
}

func (f *File) writeAtomic(path string, data []byte) error {
	tmp := filepath.Join(f.dir, tmpPrefix+uuid.NewString())
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("publish %s: %w", path, err)
	}
	return nil
}
