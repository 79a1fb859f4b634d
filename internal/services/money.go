package services

import (
	"math"
	"strings"
)

// round2 rounds a currency amount to cents.
func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// isUniqueViolation matches duplicate-key errors across postgres and sqlite
// without binding to a driver error type.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	s := strings.ToLower(err.Error())
	return strings.Contains(s, "duplicate key") ||
		strings.Contains(s, "unique constraint") ||
		strings.Contains(s, "constraint failed")
}
