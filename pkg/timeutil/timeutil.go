// Package timeutil provides the time-bucketing helpers shared by the
// statistics aggregator and its query paths.
//
// Statistics buckets are hour-aligned, so every query bound that touches the
// sensor_statistics collection is truncated with ThisHour before filtering.
package timeutil

import "time"

// ThisHour truncates a timestamp to the start of its hour in UTC. It is the
// bucket key function for sensor statistics.
func ThisHour(t time.Time) time.Time {
	return t.UTC().Truncate(time.Hour)
}

// SameHour reports whether two timestamps fall into the same hour bucket.
func SameHour(a, b time.Time) bool {
	return ThisHour(a).Equal(ThisHour(b))
}
