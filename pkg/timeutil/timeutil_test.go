package timeutil

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestThisHour(t *testing.T) {
	in := time.Date(2024, 6, 1, 10, 42, 59, 123_000_000, time.UTC)
	assert.Equal(t, time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC), ThisHour(in))

	// Already aligned timestamps are unchanged.
	aligned := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)
	assert.Equal(t, aligned, ThisHour(aligned))
}

func TestThisHourNormalizesZone(t *testing.T) {
	zone := time.FixedZone("CEST", 2*60*60)
	in := time.Date(2024, 6, 1, 12, 30, 0, 0, zone) // 10:30 UTC

	assert.Equal(t, time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC), ThisHour(in))
}

func TestSameHour(t *testing.T) {
	a := time.Date(2024, 6, 1, 10, 1, 40, 0, time.UTC) // t=100s into the hour
	b := time.Date(2024, 6, 1, 10, 2, 10, 0, time.UTC) // t=130s into the hour
	c := time.Date(2024, 6, 1, 11, 0, 0, 0, time.UTC)

	assert.True(t, SameHour(a, b))
	assert.False(t, SameHour(a, c))
}
