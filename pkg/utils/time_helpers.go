package utils

import (
	"fmt"
	"strings"
)

// FormatSecondsToHumanReadable renders a duration in seconds as "1d 2h 3m 4s".
func FormatSecondsToHumanReadable(totalSeconds int64) string {
	if totalSeconds <= 0 {
		return "0s"
	}

	days := totalSeconds / (24 * 3600)
	totalSeconds %= 24 * 3600
	hours := totalSeconds / 3600
	totalSeconds %= 3600
	minutes := totalSeconds / 60
	seconds := totalSeconds % 60

	var parts []string
	if days > 0 {
		parts = append(parts, fmt.Sprintf("%dd", days))
	}
	if hours > 0 {
		parts = append(parts, fmt.Sprintf("%dh", hours))
	}
	if minutes > 0 {
		parts = append(parts, fmt.Sprintf("%dm", minutes))
	}
	// seconds only when non-zero or when nothing else was printed
	if seconds > 0 || len(parts) == 0 {
		parts = append(parts, fmt.Sprintf("%ds", seconds))
	}

	return strings.Join(parts, " ")
}
