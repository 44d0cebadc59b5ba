package common

import (
	"math"
	"strings"
)

// HasAny returns true if s contains any of the substrings.
func HasAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if sub != "" && strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

// RoundHalfUp rounds v to the nearest integer; halves go towards +Inf.
func RoundHalfUp(v float64) float64 {
	return math.Floor(v + 0.5)
}

// Round1 rounds v to one decimal place, halves towards +Inf.
func Round1(v float64) float64 {
	return RoundHalfUp(v*10) / 10
}
