package memory

import "strings"

// hasLabel reports whether line begins with the exact bytes of label.
// Matching is case-sensitive; the record labels are kernel-defined.
func hasLabel(line, label string) bool {
	return strings.HasPrefix(line, label)
}

// nthField returns the idx-th whitespace-separated token of line, or false
// when the record has no such column.
func nthField(line string, idx int) (string, bool) {
	fields := strings.Fields(line)
	if idx < 0 || idx >= len(fields) {
		return "", false
	}
	return fields[idx], true
}
