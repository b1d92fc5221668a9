// Package units scales raw kilobyte counts into human-readable strings.
package units

import "fmt"

var prefixes = []string{"Ki", "Mi", "Gi", "Ti"}

// HumanKB renders a kilobyte count with the smallest binary prefix that
// keeps the scaled value below 1000, with one decimal digit, e.g.
// 2184 -> "2.1 MiB".
func HumanKB(kb uint64) string {
	idx := 0
	num := float64(kb)
	for num >= 1000 && idx < len(prefixes)-1 {
		num /= 1024.0
		idx++
	}
	return fmt.Sprintf("%.1f %sB", num, prefixes[idx])
}
