package commitmsg

import (
	"log/slog"
	"strings"
)

const (
	begin = "--- manifest change begin ---"
	end   = "--- manifest change end ---"
)

// ExtractKeys extracts the list of change keys from a
// commit message delimited by begin/end markers.
func ExtractKeys(msg string) []string {
	var keys []string

	betweenMarkers := false

	for _, line := range strings.Split(msg, "\n") {
		switch strings.TrimRight(line, "\r") {
		case begin:
			betweenMarkers = true
		case end:
			betweenMarkers = false
		default:
			if betweenMarkers && line != "" {
				keys = append(keys, line)
			}
		}
	}

	if betweenMarkers {
		slog.Warn("unable to find end marker in commit message")

		return nil
	}

	return keys
}

// Carries reports whether msg was generated for key.
func Carries(msg string, key string) bool {
	for _, k := range ExtractKeys(msg) {
		if k == key {
			return true
		}
	}

	return false
}

// Generate produces a commit message section containing
// the given change keys between begin/end markers.
func Generate(keys []string) string {
	var sb strings.Builder

	sb.WriteByte('\n')
	sb.WriteString(begin)
	sb.WriteByte('\n')

	for _, k := range keys {
		sb.WriteString(k)
		sb.WriteByte('\n')
	}

	sb.WriteString(end)
	sb.WriteByte('\n')

	return sb.String()
}
