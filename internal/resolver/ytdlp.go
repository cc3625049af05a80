package resolver

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strings"

	"github.com/hszk-dev/framegrab/internal/domain/model"
	"github.com/hszk-dev/framegrab/internal/domain/repository"
)

// YtDlpConfig holds configuration for the yt-dlp resolver.
type YtDlpConfig struct {
	// BinaryPath is the path to the yt-dlp binary.
	// If empty, "yt-dlp" will be used (assumes it's in PATH).
	BinaryPath string

	// SocketTimeoutSeconds is passed to yt-dlp's --socket-timeout.
	// Default: 30
	SocketTimeoutSeconds int

	// Retries is passed to yt-dlp's --retries and --fragment-retries.
	// Default: 3
	Retries int
}

// DefaultYtDlpConfig returns a YtDlpConfig with production-ready defaults.
func DefaultYtDlpConfig() YtDlpConfig {
	return YtDlpConfig{
		BinaryPath:           "yt-dlp",
		SocketTimeoutSeconds: 30,
		Retries:              3,
	}
}

// YtDlpResolver implements repository.Resolver using the yt-dlp CLI.
// One invocation returns both the video duration and the full format list,
// from which a best mp4 stream is selected per quality level.
type YtDlpResolver struct {
	config YtDlpConfig
}

// Compile-time verification that YtDlpResolver implements repository.Resolver.
var _ repository.Resolver = (*YtDlpResolver)(nil)

// NewYtDlpResolver creates a new yt-dlp-based resolver.
func NewYtDlpResolver(cfg YtDlpConfig) *YtDlpResolver {
	return &YtDlpResolver{
		config: cfg,
	}
}

// videoInfo is the subset of yt-dlp's --dump-json output we consume.
type videoInfo struct {
	ID       string       `json:"id"`
	Duration float64      `json:"duration"`
	Formats  []formatInfo `json:"formats"`
}

type formatInfo struct {
	URL      string  `json:"url"`
	Ext      string  `json:"ext"`
	Height   int     `json:"height"`
	TBR      float64 `json:"tbr"`
	FormatID string  `json:"format_id"`
}

// Resolve runs yt-dlp and maps its format list onto quality levels.
func (r *YtDlpResolver) Resolve(ctx context.Context, videoID string) (*repository.MediaSource, error) {
	args := r.buildArgs(videoID)

	cmd := exec.CommandContext(ctx, r.config.BinaryPath, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("resolve cancelled: %w", ctx.Err())
		}
		if isUnavailable(stderr.String()) {
			return nil, fmt.Errorf("%w: %s", repository.ErrVideoUnavailable, videoID)
		}
		return nil, fmt.Errorf("yt-dlp execution failed: %w", err)
	}

	var info videoInfo
	if err := json.Unmarshal(stdout.Bytes(), &info); err != nil {
		return nil, fmt.Errorf("parse video info: %w", err)
	}

	return &repository.MediaSource{
		VideoID:         videoID,
		DurationSeconds: int(info.Duration),
		Streams:         selectStreams(info.Formats),
	}, nil
}

// buildArgs constructs the yt-dlp command arguments.
// The browser-like headers reduce the rate of bot-detection failures.
func (r *YtDlpResolver) buildArgs(videoID string) []string {
	return []string{
		"--no-download",
		"--dump-json",
		"--user-agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
		"--add-header", "Accept-Language:en-US,en;q=0.5",
		"--referer", "https://www.youtube.com/",
		"--socket-timeout", fmt.Sprintf("%d", r.config.SocketTimeoutSeconds),
		"--retries", fmt.Sprintf("%d", r.config.Retries),
		"--fragment-retries", fmt.Sprintf("%d", r.config.Retries),
		"--force-ipv4",
		"--no-cache-dir",
		watchURL(videoID),
	}
}

func watchURL(videoID string) string {
	return "https://www.youtube.com/watch?v=" + videoID
}

// selectStreams picks the best mp4 format for each quality level:
// highest resolution within the level's height range, ties broken by bitrate.
func selectStreams(formats []formatInfo) map[model.Quality]repository.StreamInfo {
	streams := make(map[model.Quality]repository.StreamInfo)

	for _, q := range []model.Quality{model.QualityUltra, model.QualityHigh, model.QualityMedium, model.QualityLow} {
		min, max := q.HeightRange()

		var best *formatInfo
		for i := range formats {
			f := &formats[i]
			if f.URL == "" || f.Ext != "mp4" || f.Height < min || f.Height > max {
				continue
			}
			if best == nil || f.Height > best.Height || (f.Height == best.Height && f.TBR > best.TBR) {
				best = f
			}
		}

		if best != nil {
			streams[q] = repository.StreamInfo{
				URL:      best.URL,
				Height:   best.Height,
				FormatID: best.FormatID,
			}
		}
	}

	return streams
}

// isUnavailable sniffs yt-dlp stderr for errors that mean the video itself
// cannot be served, as opposed to transient tool or network failures.
func isUnavailable(stderr string) bool {
	s := strings.ToLower(stderr)
	for _, marker := range []string{
		"video unavailable",
		"private video",
		"this video is not available",
		"video has been removed",
		"blocked in your country",
	} {
		if strings.Contains(s, marker) {
			return true
		}
	}
	return false
}
