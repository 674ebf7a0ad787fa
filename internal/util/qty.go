package util

import (
	"errors"
	"regexp"
	"strconv"
	"strings"
)

var (
	ErrNotInteger = errors.New("not a whole number")
	ErrNegative   = errors.New("negative quantity")
)

var integerPattern = regexp.MustCompile(`^[+-]?\d+$`)

// ParseQuantity parses a quantity cell. Blank means zero. Spreadsheet exports
// sometimes render whole numbers as "3.0"; those are accepted, "3.5" is not.
func ParseQuantity(raw string) (int, error) {
	token := CleanCell(raw)
	if token == "" {
		return 0, nil
	}
	token = strings.TrimSuffix(token, ".0")
	if !integerPattern.MatchString(token) {
		return 0, ErrNotInteger
	}
	qty, err := strconv.Atoi(token)
	if err != nil {
		return 0, ErrNotInteger
	}
	if qty < 0 {
		return 0, ErrNegative
	}
	return qty, nil
}
