package ir

import "strconv"

// IsNumeric reports whether s is an optionally signed run of decimal digits.
// The empty string, a lone sign, and any embedded non-digit are rejected.
func IsNumeric(s string) bool {
	if s == "" {
		return false
	}
	start := 0
	if s[0] == '+' || s[0] == '-' {
		start = 1
	}
	if start == len(s) {
		return false
	}
	for i := start; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// ParseInt parses s as a base-10 int64.
// ok is false when s is not numeric or overflows int64.
func ParseInt(s string) (n int64, ok bool) {
	if !IsNumeric(s) {
		return 0, false
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}
