package cli

import (
	"fmt"
	"strings"
)

// FormatSeconds formats a duration in seconds the way the voice tables
// show time remaining: "850ms", "4.2s", "1m05.0s".
func FormatSeconds(secs float64) string {
	if secs < 0 {
		secs = 0
	}
	if secs < 1 {
		return fmt.Sprintf("%dms", int(secs*1000))
	}
	if secs < 60 {
		return fmt.Sprintf("%.1fs", secs)
	}
	mins := int(secs / 60)
	secs -= float64(mins * 60)
	return fmt.Sprintf("%dm%04.1fs", mins, secs)
}

// FormatBytes formats a byte count to a human readable string.
func FormatBytes(bytes int64) string {
	const (
		KB = 1024
		MB = KB * 1024
		GB = MB * 1024
	)

	switch {
	case bytes >= GB:
		return fmt.Sprintf("%.2f GB", float64(bytes)/GB)
	case bytes >= MB:
		return fmt.Sprintf("%.2f MB", float64(bytes)/MB)
	case bytes >= KB:
		return fmt.Sprintf("%.2f KB", float64(bytes)/KB)
	default:
		return fmt.Sprintf("%d B", bytes)
	}
}

// Meter renders level in [0, full] as a bar of width cells.
func Meter(level, full float64, width int) string {
	if width <= 0 {
		return ""
	}
	n := 0
	if full > 0 {
		n = int(level / full * float64(width))
	}
	n = min(max(n, 0), width)
	return strings.Repeat("█", n) + strings.Repeat("·", width-n)
}
