// Package ui renders the watch-mode screen dressing.
package ui

import (
	"fmt"
	"strings"
	"time"
)

const (
	reset       = "\033[0m"
	bold        = "\033[1m"
	honeyOrange = "\033[38;5;214m"
	outlineGray = "\033[38;5;244m"
)

// Header renders the wordmark and status line shown above each watch-mode
// refresh.
func Header(updated time.Time, interval time.Duration) string {
	var b strings.Builder

	b.WriteString(bold + honeyOrange + "coremem" + reset + "  •  per-program memory report\n")
	b.WriteString(outlineGray)
	fmt.Fprintf(&b, "Updated: %s | Interval: %v | press Ctrl+C to exit",
		updated.Format(time.RFC3339), interval)
	b.WriteString(reset + "\n\n")

	return b.String()
}
