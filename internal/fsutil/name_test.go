// SPDX-License-Identifier: MIT

package fsutil

import (
	"strings"
	"testing"
)

func TestSanitize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "clean name untouched", in: "video.mp4", want: "video.mp4"},
		{name: "slashes replaced", in: "a/b\\c", want: "a_b_c"},
		{name: "windows reserved chars", in: `x:*?"<>|y`, want: "x_______y"},
		{name: "control whitespace replaced", in: "a\r\n\tb", want: "a___b"},
		{name: "surrounding spaces trimmed", in: "  clip.mov  ", want: "clip.mov"},
		{name: "empty falls back", in: "", want: FallbackName},
		{name: "whitespace only falls back", in: "   ", want: FallbackName},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Sanitize(tt.in)
			if got != tt.want {
				t.Fatalf("Sanitize(%q) = %q, want %q", tt.in, got, tt.want)
			}
			if got == "" {
				t.Fatal("sanitized name must never be empty")
			}
			if strings.ContainsAny(got, unsafeChars) {
				t.Fatalf("sanitized name %q still contains unsafe characters", got)
			}
		})
	}
}

func TestGuessNameFromURL(t *testing.T) {
	tests := []struct {
		name string
		url  string
		want string
	}{
		{name: "plain tail", url: "https://example.com/media/video.mp4", want: "video.mp4"},
		{name: "query ignored", url: "https://example.com/video.mp4?token=abc/def", want: "video.mp4"},
		{name: "trailing slash", url: "https://example.com/media/", want: "media"},
		{name: "no path falls back to host", url: "https://example.com", want: "example.com"},
		{name: "root only falls back to host", url: "https://example.com/", want: "example.com"},
		{name: "unsafe tail sanitized", url: "https://example.com/a%20b|c", want: "a%20b_c"},
		{name: "empty locator", url: "", want: FallbackName},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := GuessNameFromURL(tt.url); got != tt.want {
				t.Fatalf("GuessNameFromURL(%q) = %q, want %q", tt.url, got, tt.want)
			}
		})
	}
}
