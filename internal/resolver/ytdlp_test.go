package resolver

import (
	"context"
	"testing"

	"github.com/hszk-dev/framegrab/internal/domain/model"
)

func TestDefaultYtDlpConfig(t *testing.T) {
	cfg := DefaultYtDlpConfig()

	if cfg.BinaryPath != "yt-dlp" {
		t.Errorf("BinaryPath = %q, want yt-dlp", cfg.BinaryPath)
	}
	if cfg.SocketTimeoutSeconds != 30 {
		t.Errorf("SocketTimeoutSeconds = %d, want 30", cfg.SocketTimeoutSeconds)
	}
	if cfg.Retries != 3 {
		t.Errorf("Retries = %d, want 3", cfg.Retries)
	}
}

func TestYtDlpResolver_BuildArgs(t *testing.T) {
	r := NewYtDlpResolver(DefaultYtDlpConfig())

	args := r.buildArgs("dQw4w9WgXcQ")

	assertContainsPair := func(flag, value string) {
		t.Helper()
		for i := 0; i < len(args)-1; i++ {
			if args[i] == flag && args[i+1] == value {
				return
			}
		}
		t.Errorf("args missing %q %q", flag, value)
	}

	assertContainsPair("--socket-timeout", "30")
	assertContainsPair("--retries", "3")
	assertContainsPair("--fragment-retries", "3")

	hasFlag := func(flag string) bool {
		for _, a := range args {
			if a == flag {
				return true
			}
		}
		return false
	}
	for _, flag := range []string{"--no-download", "--dump-json", "--force-ipv4", "--no-cache-dir"} {
		if !hasFlag(flag) {
			t.Errorf("args missing flag %q", flag)
		}
	}

	if args[len(args)-1] != "https://www.youtube.com/watch?v=dQw4w9WgXcQ" {
		t.Errorf("last arg = %q, want the watch URL", args[len(args)-1])
	}
}

func TestSelectStreams(t *testing.T) {
	formats := []formatInfo{
		{URL: "https://cdn/1080-low-tbr.mp4", Ext: "mp4", Height: 1080, TBR: 1000, FormatID: "a"},
		{URL: "https://cdn/1080-high-tbr.mp4", Ext: "mp4", Height: 1080, TBR: 4000, FormatID: "b"},
		{URL: "https://cdn/720.mp4", Ext: "mp4", Height: 720, TBR: 2000, FormatID: "c"},
		{URL: "https://cdn/480.webm", Ext: "webm", Height: 480, TBR: 1500, FormatID: "d"},
		{URL: "", Ext: "mp4", Height: 360, TBR: 800, FormatID: "e"},
		{URL: "https://cdn/360.mp4", Ext: "mp4", Height: 360, TBR: 800, FormatID: "f"},
	}

	streams := selectStreams(formats)

	t.Run("ultra picks highest bitrate at same height", func(t *testing.T) {
		s, ok := streams[model.QualityUltra]
		if !ok {
			t.Fatal("no ultra stream selected")
		}
		if s.FormatID != "b" {
			t.Errorf("FormatID = %q, want b", s.FormatID)
		}
	})

	t.Run("high picks the 720p mp4", func(t *testing.T) {
		s, ok := streams[model.QualityHigh]
		if !ok {
			t.Fatal("no high stream selected")
		}
		if s.Height != 720 {
			t.Errorf("Height = %d, want 720", s.Height)
		}
	})

	t.Run("medium skips non-mp4 formats", func(t *testing.T) {
		if _, ok := streams[model.QualityMedium]; ok {
			t.Error("medium should have no stream; only a webm exists in range")
		}
	})

	t.Run("low skips formats without URL", func(t *testing.T) {
		s, ok := streams[model.QualityLow]
		if !ok {
			t.Fatal("no low stream selected")
		}
		if s.FormatID != "f" {
			t.Errorf("FormatID = %q, want f", s.FormatID)
		}
	})
}

func TestIsUnavailable(t *testing.T) {
	tests := []struct {
		name   string
		stderr string
		want   bool
	}{
		{"video unavailable", "ERROR: Video unavailable", true},
		{"private video", "ERROR: Private video. Sign in if you've been granted access", true},
		{"removed", "ERROR: This video has been removed by the uploader", true},
		{"geo blocked", "ERROR: The uploader has not made this video blocked in your country", true},
		{"network failure", "ERROR: unable to download webpage: timed out", false},
		{"empty stderr", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isUnavailable(tt.stderr); got != tt.want {
				t.Errorf("isUnavailable(%q) = %v, want %v", tt.stderr, got, tt.want)
			}
		})
	}
}

func TestYtDlpResolver_Resolve_CancelledContext(t *testing.T) {
	cfg := DefaultYtDlpConfig()
	cfg.BinaryPath = "/non/existent/yt-dlp"
	r := NewYtDlpResolver(cfg)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := r.Resolve(ctx, "dQw4w9WgXcQ")
	if err == nil {
		t.Error("expected error for cancelled context")
	}
}
