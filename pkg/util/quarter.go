package util

import (
	"fmt"
	"strconv"
	"time"
)

// ParseQuarter parses a YYYYQ identifier like "2025Q3". Returns (year,
// quarter, true) on success.
func ParseQuarter(s string) (int, int, bool) {
	if len(s) != 6 || (s[4] != 'Q' && s[4] != 'q') {
		return 0, 0, false
	}
	year, err := strconv.Atoi(s[:4])
	if err != nil || year < 1900 {
		return 0, 0, false
	}
	q, err := strconv.Atoi(s[5:])
	if err != nil || q < 1 || q > 4 {
		return 0, 0, false
	}
	return year, q, true
}

// IsQuarter reports whether s is a valid YYYYQ identifier.
func IsQuarter(s string) bool {
	_, _, ok := ParseQuarter(s)
	return ok
}

// QuarterIndex maps a quarter to a monotonically increasing integer so that
// consecutive quarters differ by exactly one. Returns -1 for invalid input.
func QuarterIndex(s string) int {
	year, q, ok := ParseQuarter(s)
	if !ok {
		return -1
	}
	return year*4 + q - 1
}

// NextQuarter returns the quarter following s, or "" for invalid input.
func NextQuarter(s string) string {
	year, q, ok := ParseQuarter(s)
	if !ok {
		return ""
	}
	q++
	if q > 4 {
		q = 1
		year++
	}
	return fmt.Sprintf("%04dQ%d", year, q)
}

// Consecutive reports whether b immediately follows a.
func Consecutive(a, b string) bool {
	ia, ib := QuarterIndex(a), QuarterIndex(b)
	return ia >= 0 && ib == ia+1
}

// QuarterEnd returns the calendar end of the quarter in UTC.
func QuarterEnd(s string) (time.Time, bool) {
	year, q, ok := ParseQuarter(s)
	if !ok {
		return time.Time{}, false
	}
	firstOfNext := time.Date(year, time.Month(q*3)+1, 1, 0, 0, 0, 0, time.UTC)
	return firstOfNext.Add(-24 * time.Hour), true
}
