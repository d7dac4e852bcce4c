// Package utils holds small text, math, and logging helpers shared across
// packages.
package utils

// Truncate shortens s to at most maxLen bytes, appending "..." when content
// was cut. A non-positive maxLen disables truncation.
func Truncate(s string, maxLen int) string {
	if maxLen <= 0 || len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
