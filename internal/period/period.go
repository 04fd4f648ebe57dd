// Package period handles the YYYY-MM month keys used to filter transactions.
package period

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrInvalidMonth is returned for a month key that is not YYYY-MM.
var ErrInvalidMonth = errors.New("invalid month")

// Format returns a month key like "2025-06".
func Format(year, month int) string {
	return fmt.Sprintf("%04d-%02d", year, month)
}

// Parse parses "2025-06" into year and month.
func Parse(s string) (year, month int, err error) {
	parts := strings.SplitN(s, "-", 2)
	if len(parts) != 2 || len(parts[0]) != 4 || len(parts[1]) != 2 {
		return 0, 0, fmt.Errorf("%w %q: want YYYY-MM", ErrInvalidMonth, s)
	}

	year, err = strconv.Atoi(parts[0])
	if err != nil {
		return 0, 0, fmt.Errorf("%w %q: bad year", ErrInvalidMonth, s)
	}

	month, err = strconv.Atoi(parts[1])
	if err != nil {
		return 0, 0, fmt.Errorf("%w %q: bad month", ErrInvalidMonth, s)
	}
	if month < 1 || month > 12 {
		return 0, 0, fmt.Errorf("%w %q: %d out of range", ErrInvalidMonth, s, month)
	}

	return year, month, nil
}

// Normalize validates s and returns its canonical form. Blank input means
// no month filter and is returned unchanged.
func Normalize(s string) (string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", nil
	}
	year, month, err := Parse(s)
	if err != nil {
		return "", err
	}
	return Format(year, month), nil
}

// OfDate returns the month key of a YYYY-MM-DD date.
func OfDate(date string) string {
	if len(date) < 7 {
		return ""
	}
	return date[:7]
}
