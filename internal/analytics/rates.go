// Package analytics derives dashboard statistics from the test and result
// records fetched from the testing backend. Every function here is pure: inputs
// are never mutated and no I/O is performed.
package analytics

import (
	"fmt"

	"idslab-dashboard/internal/models"
)

// ComputeRates sums the detection counters of tests and derives the
// true-positive, false-positive and false-negative rates and the precision.
// A zero denominator yields a zero rate.
func ComputeRates(tests []models.Test) models.Rates {
	var r models.Rates
	for _, t := range tests {
		r.TotalAttacks += t.TotalAttacks
		r.DetectedAttacks += t.DetectedAttacks
		r.MissedAttacks += t.MissedAttacks
		r.FalsePositives += t.FalsePositives
	}

	r.TruePositiveRate = percent(r.DetectedAttacks, r.TotalAttacks)
	r.FalsePositiveRate = percent(r.FalsePositives, r.TotalAttacks)
	r.FalseNegativeRate = percent(r.MissedAttacks, r.TotalAttacks)
	// Every rate is zero without attacks, even for inconsistent counters
	if r.TotalAttacks > 0 {
		r.Precision = percent(r.DetectedAttacks, r.DetectedAttacks+r.FalsePositives)
	}
	return r
}

// ZeroRates is the rate fallback used when tests could not be fetched
func ZeroRates() models.Rates {
	return models.Rates{}
}

// FormatPercent renders a percentage with one decimal place
func FormatPercent(v float64) string {
	return fmt.Sprintf("%.1f%%", v)
}

func percent(part, whole int) float64 {
	if whole == 0 {
		return 0
	}
	return float64(part) / float64(whole) * 100
}
