// Package utils provides shared utility functions.
package utils

import (
	"fmt"
	"strconv"
)

// FormatCount formats a count in the Indian numbering system (12,34,567).
func FormatCount(n int64) string {
	if n < 0 {
		return "-" + formatIndianNumber(strconv.FormatInt(-n, 10))
	}
	return formatIndianNumber(strconv.FormatInt(n, 10))
}

// formatIndianNumber groups a digit string as thousands, then lakhs and crores.
func formatIndianNumber(s string) string {
	n := len(s)
	if n <= 3 {
		return s
	}

	// First group of 3 from right
	result := s[n-3:]
	s = s[:n-3]

	// Then groups of 2
	for len(s) > 0 {
		if len(s) >= 2 {
			result = s[len(s)-2:] + "," + result
			s = s[:len(s)-2]
		} else {
			result = s + "," + result
			s = ""
		}
	}

	return result
}

// FormatFactor formats an adjustment factor with six decimals.
func FormatFactor(f float64) string {
	return fmt.Sprintf("%.6f", f)
}

// FormatPercent formats a percentage with sign.
func FormatPercent(value float64) string {
	sign := ""
	if value > 0 {
		sign = "+"
	}
	return fmt.Sprintf("%s%.2f%%", sign, value)
}
