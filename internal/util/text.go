package util

import (
	"regexp"
	"strings"
)

var reSpaces = regexp.MustCompile(`\s+`)

// CleanCell trims a cell, including the non-breaking spaces spreadsheet
// exports like to leave behind.
func CleanCell(input string) string {
	s := strings.ReplaceAll(input, "\u00a0", " ")
	return strings.TrimSpace(s)
}

// CleanHeader is CleanCell plus removal of a leading UTF-8 byte order mark.
func CleanHeader(input string) string {
	return CleanCell(strings.TrimPrefix(input, "\ufeff"))
}

// FoldColumn reduces a column name to a comparison key: case and inner
// whitespace are ignored.
func FoldColumn(input string) string {
	s := strings.ToLower(CleanHeader(input))
	return reSpaces.ReplaceAllString(s, "")
}
