package repository

import (
	"context"

	"github.com/hszk-dev/framegrab/internal/domain/model"
)

// StreamInfo describes one playable stream of a resolved video.
type StreamInfo struct {
	URL      string `json:"url"`
	Height   int    `json:"height"`
	FormatID string `json:"format_id"`
}

// MediaSource is the result of resolving a video identifier: the set of
// playable streams keyed by quality level plus the video duration.
type MediaSource struct {
	VideoID         string                        `json:"video_id"`
	DurationSeconds int                           `json:"duration_seconds"`
	Streams         map[model.Quality]StreamInfo `json:"streams"`
}

// StreamFor returns the stream matching the requested quality.
func (m *MediaSource) StreamFor(q model.Quality) (StreamInfo, bool) {
	s, ok := m.Streams[q]
	return s, ok
}

// Resolver turns a video identifier into playable media references.
// Implementations are expected to be slow (external tool invocation) and
// must honor context cancellation.
type Resolver interface {
	// Resolve returns the media source for a video.
	// Returns ErrVideoUnavailable when the video cannot be resolved.
	Resolve(ctx context.Context, videoID string) (*MediaSource, error)
}

// Extractor produces raw image bytes for a single frame of a stream.
type Extractor interface {
	// Extract captures the frame at timestampSeconds from streamURL.
	// Returns ErrExtractionFailed (wrapped) when the underlying tool fails.
	Extract(ctx context.Context, streamURL string, timestampSeconds int, quality model.Quality) ([]byte, error)
}
