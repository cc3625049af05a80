package model

import "testing"

func TestExtractVideoID(t *testing.T) {
	tests := []struct {
		name string
		url  string
		want string
	}{
		{"watch URL", "https://www.youtube.com/watch?v=dQw4w9WgXcQ", "dQw4w9WgXcQ"},
		{"watch URL with extra params", "https://www.youtube.com/watch?list=PL123&v=dQw4w9WgXcQ", "dQw4w9WgXcQ"},
		{"short URL", "https://youtu.be/dQw4w9WgXcQ", "dQw4w9WgXcQ"},
		{"short URL with timestamp", "https://youtu.be/dQw4w9WgXcQ?t=42", "dQw4w9WgXcQ"},
		{"embed URL", "https://www.youtube.com/embed/dQw4w9WgXcQ", "dQw4w9WgXcQ"},
		{"no scheme", "youtube.com/watch?v=dQw4w9WgXcQ", "dQw4w9WgXcQ"},
		{"not a video URL", "https://www.youtube.com/feed/subscriptions", ""},
		{"unrelated URL", "https://example.com/watch?v=dQw4w9WgXcQ", ""},
		{"empty string", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExtractVideoID(tt.url); got != tt.want {
				t.Errorf("ExtractVideoID(%q) = %q, want %q", tt.url, got, tt.want)
			}
		})
	}
}

func TestExtractURLTimestamp(t *testing.T) {
	tests := []struct {
		name string
		url  string
		want int
	}{
		{"plain seconds", "https://youtu.be/dQw4w9WgXcQ?t=125", 125},
		{"seconds with s suffix", "https://youtu.be/dQw4w9WgXcQ?t=125s", 125},
		{"minutes and seconds", "https://youtu.be/dQw4w9WgXcQ?t=2m5s", 125},
		{"hours minutes seconds", "https://youtu.be/dQw4w9WgXcQ?t=1h2m5s", 3725},
		{"ampersand separator", "https://www.youtube.com/watch?v=dQw4w9WgXcQ&t=42", 42},
		{"no timestamp", "https://youtu.be/dQw4w9WgXcQ", 0},
		{"empty string", "", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExtractURLTimestamp(tt.url); got != tt.want {
				t.Errorf("ExtractURLTimestamp(%q) = %d, want %d", tt.url, got, tt.want)
			}
		})
	}
}
