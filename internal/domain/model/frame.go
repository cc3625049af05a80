package model

import (
	"errors"
	"fmt"
	"time"
)

// Quality represents the requested frame quality level.
type Quality string

const (
	QualityUltra  Quality = "ultra"  // 1080p and above
	QualityHigh   Quality = "high"   // 720p - 1079p
	QualityMedium Quality = "medium" // 480p - 719p
	QualityLow    Quality = "low"    // 200p - 479p
)

// HeightRange returns the source-video height bounds for a quality level.
// Streams are matched against these bounds when selecting an extraction source.
func (q Quality) HeightRange() (min, max int) {
	switch q {
	case QualityUltra:
		return 1080, 9999
	case QualityHigh:
		return 720, 1079
	case QualityMedium:
		return 480, 719
	case QualityLow:
		return 200, 479
	default:
		return 0, 0
	}
}

func (q Quality) IsValid() bool {
	switch q {
	case QualityUltra, QualityHigh, QualityMedium, QualityLow:
		return true
	default:
		return false
	}
}

func (q Quality) String() string {
	return string(q)
}

var (
	ErrEmptyVideoID        = errors.New("video ID cannot be empty")
	ErrNegativeTimestamp   = errors.New("timestamp cannot be negative")
	ErrConflictingTime     = errors.New("explicit timestamp conflicts with hours/minutes/seconds components")
	ErrUnknownQuality      = errors.New("unknown quality level")
	ErrTimestampOutOfRange = errors.New("timestamp exceeds video duration")
)

// FrameRequest is a validated, normalized request for a single frame.
// Construct it with NewFrameRequest; a zero FrameRequest is not valid.
type FrameRequest struct {
	VideoID          string
	TimestampSeconds int
	Quality          Quality
}

// NewFrameRequest validates raw request fields and normalizes the timestamp.
// The timestamp may be given either as explicit total seconds or as discrete
// hours/minutes/seconds components. Providing both forms with different
// values is rejected.
func NewFrameRequest(videoID string, timestamp *int, hours, minutes, seconds int, quality Quality) (*FrameRequest, error) {
	if videoID == "" {
		return nil, ErrEmptyVideoID
	}
	if !quality.IsValid() {
		return nil, fmt.Errorf("%w: %q", ErrUnknownQuality, quality)
	}
	if hours < 0 || minutes < 0 || seconds < 0 {
		return nil, ErrNegativeTimestamp
	}

	components := hours*3600 + minutes*60 + seconds

	var ts int
	switch {
	case timestamp == nil:
		ts = components
	case components == 0 || *timestamp == components:
		ts = *timestamp
	default:
		return nil, ErrConflictingTime
	}

	if ts < 0 {
		return nil, ErrNegativeTimestamp
	}

	return &FrameRequest{
		VideoID:          videoID,
		TimestampSeconds: ts,
		Quality:          quality,
	}, nil
}

// Fingerprint derives the cache key for this request.
// The key is deterministic: identical normalized requests always produce the
// same key, across processes and restarts. It doubles as the base name for
// tier artifacts ({key}.img / {key}.meta.json).
func (r *FrameRequest) Fingerprint() string {
	return fmt.Sprintf("%s_%d_%s", r.VideoID, r.TimestampSeconds, r.Quality)
}

// Metadata describes a cached frame. It is always stored alongside the image
// bytes; the two never exist independently in a tier.
type Metadata struct {
	VideoID          string    `json:"video_id"`
	TimestampSeconds int       `json:"timestamp_seconds"`
	Quality          Quality   `json:"quality"`
	ContentType      string    `json:"content_type"`
	CreatedAt        time.Time `json:"created_at"`
	SizeBytes        int64     `json:"size_bytes"`
}

// CacheEntry is one cached frame: image bytes plus metadata, keyed by the
// request fingerprint. Entries are treated as immutable once created.
type CacheEntry struct {
	Key      string
	Image    []byte
	Metadata Metadata
}

// NewCacheEntry builds an entry for a freshly extracted frame.
func NewCacheEntry(req *FrameRequest, image []byte, contentType string) *CacheEntry {
	return &CacheEntry{
		Key:   req.Fingerprint(),
		Image: image,
		Metadata: Metadata{
			VideoID:          req.VideoID,
			TimestampSeconds: req.TimestampSeconds,
			Quality:          req.Quality,
			ContentType:      contentType,
			CreatedAt:        time.Now().UTC(),
			SizeBytes:        int64(len(image)),
		},
	}
}

// Size returns the approximate in-memory footprint of the entry in bytes.
// Used by the memory tier for budget accounting.
func (e *CacheEntry) Size() int64 {
	return int64(len(e.Image)) + int64(len(e.Key))
}
