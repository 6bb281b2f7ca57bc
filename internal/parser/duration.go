package parser

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Duration parses report durations formatted MM:SS (e.g. "210:35") into
// fractional minutes. Malformed or negative input yields 0.
func Duration(text string) float64 {
	parts := strings.Split(strings.TrimSpace(text), ":")
	if len(parts) < 2 {
		return 0
	}
	mins, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil {
		return 0
	}
	secs, err := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil {
		return 0
	}
	total := float64(mins) + float64(secs)/60
	if total < 0 {
		return 0
	}
	return total
}

// FormatDuration renders minutes back into the report's M:SS style text
func FormatDuration(minutes float64) string {
	whole, frac := math.Modf(math.Max(minutes, 0))
	return fmt.Sprintf("%d:%02d", int(whole), int(frac*60))
}
