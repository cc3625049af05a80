package model

import (
	"regexp"
)

var videoIDPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?:youtube\.com/watch\?v=|youtu\.be/|youtube\.com/embed/)([a-zA-Z0-9_-]{11})`),
	regexp.MustCompile(`youtube\.com/watch\?.*v=([a-zA-Z0-9_-]{11})`),
}

var (
	urlTimestampPlain = regexp.MustCompile(`[?&]t=(\d+)$`)
	urlTimestampHMS   = regexp.MustCompile(`[?&]t=(?:(\d+)h)?(?:(\d+)m)?(\d+)s?`)
)

// ExtractVideoID pulls the 11-character video ID out of the common YouTube
// URL forms (watch, youtu.be, embed). Returns "" if none matches.
func ExtractVideoID(url string) string {
	for _, p := range videoIDPatterns {
		if m := p.FindStringSubmatch(url); m != nil {
			return m[1]
		}
	}
	return ""
}

// ExtractURLTimestamp parses a t= query parameter, either plain seconds
// ("t=125") or the h/m/s form ("t=1h2m5s"), into total seconds.
// Returns 0 when the URL carries no timestamp.
func ExtractURLTimestamp(url string) int {
	if m := urlTimestampPlain.FindStringSubmatch(url); m != nil {
		return atoiOrZero(m[1])
	}
	if m := urlTimestampHMS.FindStringSubmatch(url); m != nil {
		return atoiOrZero(m[1])*3600 + atoiOrZero(m[2])*60 + atoiOrZero(m[3])
	}
	return 0
}

func atoiOrZero(s string) int {
	n := 0
	for _, c := range s {
		if c < '0' || c > '9' {
			return 0
		}
		n = n*10 + int(c-'0')
	}
	return n
}
