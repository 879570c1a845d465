package analytics

import (
	"fmt"
	"time"

	"idslab-dashboard/internal/models"
)

// HoursPerDay is the number of buckets in the detection-over-time series
const HoursPerDay = 24

// HourlyBuckets groups tests by the hour of day their start time falls in
// (in loc) and averages detected, missed and false-positive counts per
// bucket. Only the hour component is used, so tests from different days
// land in the same bucket. Hours without tests are zero.
func HourlyBuckets(tests []models.Test, loc *time.Location) []models.HourlyBucket {
	if loc == nil {
		loc = time.Local
	}

	buckets := ZeroHourly()
	for _, t := range tests {
		if t.StartedAt.IsZero() {
			continue
		}
		b := &buckets[t.StartedAt.In(loc).Hour()]
		b.Detected += float64(t.DetectedAttacks)
		b.Missed += float64(t.MissedAttacks)
		b.FalsePositive += float64(t.FalsePositives)
		b.Samples++
	}

	for i := range buckets {
		if n := float64(buckets[i].Samples); n > 0 {
			buckets[i].Detected /= n
			buckets[i].Missed /= n
			buckets[i].FalsePositive /= n
		}
	}
	return buckets
}

// ZeroHourly returns 24 labelled, empty buckets
func ZeroHourly() []models.HourlyBucket {
	buckets := make([]models.HourlyBucket, HoursPerDay)
	for h := range buckets {
		buckets[h] = models.HourlyBucket{Hour: h, Label: fmt.Sprintf("%d:00", h)}
	}
	return buckets
}
