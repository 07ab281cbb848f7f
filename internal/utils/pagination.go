// Package utils holds tiny helpers shared across layers; nothing in here
// knows about the domain.
package utils

import "strconv"

// AtoiDefault parses s as a base-10 int, returning def when s is empty or
// not a valid integer. Query-string parsing is the main caller, so no
// trimming happens: " 42" is not a number.
func AtoiDefault(s string, def int) int {
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}
