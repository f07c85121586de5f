package helper

import (
	"fmt"
	"strconv"
	"strings"
)

// method to convert lap time milliseconds to minutes:seconds.milliseconds
func FormatLapTime(ms float64) string {
	if ms <= 0 {
		return "-"
	}
	total := int(ms)
	minutes := total / 60000
	seconds := (total % 60000) / 1000
	millis := total % 1000
	return fmt.Sprintf("%d:%02d.%03d", minutes, seconds, millis)
}

// ParseLapTime is the inverse of FormatLapTime. Returns 0 for anything
// it cannot read.
func ParseLapTime(s string) float64 {
	if s == "" || s == "-" {
		return 0
	}
	parts := strings.SplitN(s, ":", 2)
	if len(parts) != 2 {
		return 0
	}
	minutes, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0
	}
	seconds, err := strconv.ParseFloat(parts[1], 64)
	if err != nil {
		return 0
	}
	return float64(minutes)*60000 + seconds*1000
}

// EscapeMarkup backslash-escapes the characters the chat channel treats
// as formatting markers inside driver names.
func EscapeMarkup(name string) string {
	r := strings.NewReplacer("*", "\\*", "_", "\\_", "`", "\\`")
	return r.Replace(name)
}

// FitLines joins lines with newlines, dropping trailing lines until the
// result fits the character budget. A dropped line leaves a trailing
// "..." marker; if nothing fits the result is a single "..." line.
func FitLines(lines []string, budget int) string {
	full := strings.Join(lines, "\n")
	if len(full) <= budget {
		return full
	}
	marker := "..."
	for n := len(lines) - 1; n > 0; n-- {
		text := strings.Join(lines[:n], "\n") + "\n" + marker
		if len(text) <= budget {
			return text
		}
	}
	if len(marker) <= budget {
		return marker
	}
	return ""
}
