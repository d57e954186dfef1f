package app

import (
	"sort"
	"time"
)

// Bucket counts survey instances whose upload time falls inside one fixed
// UTC window.
type Bucket struct {
	Start time.Time `json:"start"`
	Count int       `json:"count"`
}

// DefaultBucketWidth is one calendar day.
const DefaultBucketWidth = 24 * time.Hour

// BucketResults aggregates reconstructed results into fixed windows of the
// given width, keyed on each instance's epoch milliseconds. Empty windows
// between occupied ones are not emitted.
func BucketResults(results []IndexedResult, width time.Duration) []Bucket {
	if width <= 0 {
		width = DefaultBucketWidth
	}
	counts := make(map[time.Time]int)
	for _, r := range results {
		start := time.UnixMilli(r.EpochMillis).UTC().Truncate(width)
		counts[start]++
	}
	buckets := make([]Bucket, 0, len(counts))
	for start, count := range counts {
		buckets = append(buckets, Bucket{Start: start, Count: count})
	}
	sort.Slice(buckets, func(i, j int) bool { return buckets[i].Start.Before(buckets[j].Start) })
	return buckets
}
