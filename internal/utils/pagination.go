// Package utils holds small parsing helpers shared by the HTTP handlers.
package utils

import "strconv"

// AtoiDefault parses a query value such as ?page= or ?page_size= and falls
// back to def when the value is missing or not a base-10 int. Range checks
// are left to the caller:
//
//	page := utils.AtoiDefault(c.Query("page"), 1)          // "" -> 1
//	size := utils.AtoiDefault(c.Query("page_size"), 20)    // "ten" -> 20
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
