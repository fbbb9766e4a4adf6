package utils

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// maxFilenameBytes keeps names under the 255-byte limit of common filesystems.
const maxFilenameBytes = 200

var unsafeFilenameChars = regexp.MustCompile(`[\x00-\x1f\\/:*?"<>|]`)

// SanitizeFilename makes a title usable as a single path component.
func SanitizeFilename(name string) string {
	safe := unsafeFilenameChars.ReplaceAllString(name, "-")
	safe = strings.TrimSpace(safe)
	safe = strings.TrimRight(safe, ". ")

	for strings.HasPrefix(safe, ".") || strings.HasPrefix(safe, "-") {
		safe = safe[1:]
	}
	if len(safe) > maxFilenameBytes {
		cut := maxFilenameBytes
		for cut > 0 && !utf8.RuneStart(safe[cut]) {
			cut--
		}
		safe = strings.TrimSpace(safe[:cut])
	}
	if safe == "" {
		safe = "untitled"
	}
	return safe
}
