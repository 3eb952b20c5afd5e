// SPDX-License-Identifier: MIT

package fsutil

import (
	"strings"
)

// FallbackName is used when a sanitized name collapses to nothing.
const FallbackName = "downloaded_file"

// unsafe characters replaced by Sanitize. Backslash and forward slash are
// included so a sanitized name can never introduce new path segments.
const unsafeChars = "\\/:*?\"<>|\r\n\t"

// Sanitize cleans a caller-supplied name fragment for safe filesystem usage.
// Unsafe characters are replaced with underscores; an empty or whitespace-only
// result collapses to FallbackName. Sanitize never fails.
func Sanitize(name string) string {
	name = strings.TrimSpace(name)
	var b strings.Builder
	b.Grow(len(name))
	for _, r := range name {
		if strings.ContainsRune(unsafeChars, r) {
			b.WriteRune('_')
			continue
		}
		b.WriteRune(r)
	}
	out := b.String()
	if out == "" {
		return FallbackName
	}
	return out
}

// GuessNameFromURL derives a safe file name from the last path segment of a
// locator, ignoring the query component. The result is always sanitized and
// never empty.
func GuessNameFromURL(raw string) string {
	tail := raw
	if idx := strings.IndexAny(tail, "?#"); idx != -1 {
		tail = tail[:idx]
	}
	tail = strings.TrimRight(tail, "/")
	if idx := strings.LastIndex(tail, "/"); idx != -1 {
		tail = tail[idx+1:]
	}
	if tail == "" {
		return FallbackName
	}
	return Sanitize(tail)
}
