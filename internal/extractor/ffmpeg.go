package extractor

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/hszk-dev/framegrab/internal/domain/model"
	"github.com/hszk-dev/framegrab/internal/domain/repository"
)

// ContentType of frames produced by the ffmpeg extractor.
const ContentType = "image/png"

// FFmpegConfig holds configuration for the FFmpeg frame extractor.
type FFmpegConfig struct {
	// FFmpegPath is the path to the ffmpeg binary.
	// If empty, "ffmpeg" will be used (assumes it's in PATH).
	FFmpegPath string

	// WorkDir is where frames are written before being read back.
	// Default: os.TempDir()
	WorkDir string

	// Qscale controls PNG/JPEG encoding quality (-q:v). Lower is better.
	// Default: 2
	Qscale int
}

// DefaultFFmpegConfig returns an FFmpegConfig with production-ready defaults.
func DefaultFFmpegConfig() FFmpegConfig {
	return FFmpegConfig{
		FFmpegPath: "ffmpeg",
		WorkDir:    os.TempDir(),
		Qscale:     2,
	}
}

// FFmpegExtractor implements repository.Extractor using the FFmpeg CLI.
// Seeking happens before demuxing (-ss ahead of -i), so extraction cost is
// roughly constant regardless of the timestamp.
type FFmpegExtractor struct {
	config FFmpegConfig
}

// Compile-time verification that FFmpegExtractor implements repository.Extractor.
var _ repository.Extractor = (*FFmpegExtractor)(nil)

// NewFFmpegExtractor creates a new FFmpeg-based frame extractor.
func NewFFmpegExtractor(cfg FFmpegConfig) *FFmpegExtractor {
	return &FFmpegExtractor{
		config: cfg,
	}
}

// Extract captures a single frame from the stream at the given offset.
// It executes FFmpeg as a subprocess, reads the produced image back and
// removes the temporary file.
func (e *FFmpegExtractor) Extract(ctx context.Context, streamURL string, timestampSeconds int, quality model.Quality) ([]byte, error) {
	outputPath := filepath.Join(e.config.WorkDir, fmt.Sprintf("frame-%s.png", uuid.NewString()))
	defer os.Remove(outputPath)

	args := e.buildFFmpegArgs(streamURL, timestampSeconds, outputPath)

	cmd := exec.CommandContext(ctx, e.config.FFmpegPath, args...)
	cmd.Stdout = nil // Discard stdout
	cmd.Stderr = nil // Discard stderr (FFmpeg outputs progress to stderr)

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("extraction cancelled: %w", ctx.Err())
		}
		return nil, fmt.Errorf("%w: ffmpeg execution: %v", repository.ErrExtractionFailed, err)
	}

	image, err := os.ReadFile(outputPath)
	if err != nil {
		return nil, fmt.Errorf("%w: read output frame: %v", repository.ErrExtractionFailed, err)
	}

	if len(image) == 0 {
		return nil, fmt.Errorf("%w: ffmpeg produced an empty frame", repository.ErrExtractionFailed)
	}

	return image, nil
}

// buildFFmpegArgs constructs the FFmpeg command arguments.
func (e *FFmpegExtractor) buildFFmpegArgs(streamURL string, timestampSeconds int, outputPath string) []string {
	return []string{
		"-ss", fmt.Sprintf("%d", timestampSeconds),
		"-i", streamURL,
		"-frames:v", "1", // Extract exactly 1 frame
		"-q:v", fmt.Sprintf("%d", e.config.Qscale),
		"-an", // Disable audio processing
		"-y",  // Overwrite output files without asking
		outputPath,
	}
}
