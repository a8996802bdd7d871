package stats

import "math"

// Bounds for month-over-month percentage deltas. Growth from a tiny base
// produces absurd percentages, so results are clamped before display.
const (
	percentChangeFloor = -100
	percentChangeCeil  = 1000
)

// percentChange returns the rounded percentage change from previous to
// current, clamped to [percentChangeFloor, percentChangeCeil].
// Both zero yields 0; growth from a zero base yields 100.
func percentChange(current, previous float64) float64 {
	if previous == 0 {
		if current == 0 {
			return 0
		}
		return 100
	}
	change := math.Round(((current - previous) / math.Abs(previous)) * 100)
	if change < percentChangeFloor {
		return percentChangeFloor
	}
	if change > percentChangeCeil {
		return percentChangeCeil
	}
	return change
}

// ratioPercent returns part/whole as a percentage rounded to two
// decimals, or 0 when the denominator is zero
func ratioPercent(part, whole float64) float64 {
	if whole == 0 {
		return 0
	}
	return round2(part / whole * 100)
}

// safeDiv returns numerator/denominator rounded to two decimals, or 0
// when the denominator is zero
func safeDiv(numerator, denominator float64) float64 {
	if denominator == 0 {
		return 0
	}
	return round2(numerator / denominator)
}

// round2 rounds to two decimal places
func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
