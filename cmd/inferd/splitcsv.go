package main

import "strings"

// splitCSV splits a comma-separated flag value, trimming whitespace and
// dropping empty items.
func splitCSV(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
