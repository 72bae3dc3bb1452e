package objectid

import (
	"bytes"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// fixedEntropy hands out a repeating byte pattern so generators are
// deterministic in tests.
type fixedEntropy struct{ next byte }

func (f *fixedEntropy) Read(p []byte) (int, error) {
	for i := range p {
		p[i] = f.next
		f.next++
	}
	return len(p), nil
}

func fixedClock(t time.Time) Clock {
	return func() time.Time { return t }
}

func TestGenerateIsMonotonicInTime(t *testing.T) {
	gen, err := NewGenerator(nil, &fixedEntropy{})
	require.NoError(t, err)

	base := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)
	prev := gen.Generate(base)

	for i := 1; i <= 100; i++ {
		next := gen.Generate(base.Add(time.Duration(i) * time.Second))
		assert.Equal(t, -1, Compare(prev, next), "IDs must order with their timestamps")
		assert.True(t, bytes.Compare(prev[:], next[:]) < 0, "opaque byte comparison must agree")
		prev = next
	}
}

func TestGenerateSameTimestampIsDistinct(t *testing.T) {
	gen, err := NewGenerator(nil, &fixedEntropy{})
	require.NoError(t, err)

	at := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)
	seen := make(map[primitive.ObjectID]struct{})

	for i := 0; i < 10_000; i++ {
		id := gen.Generate(at)
		_, dup := seen[id]
		require.False(t, dup, "same-timestamp IDs must be pairwise distinct")
		seen[id] = struct{}{}
	}
}

func TestGenerateConcurrentDistinct(t *testing.T) {
	gen, err := NewGenerator(nil, &fixedEntropy{})
	require.NoError(t, err)

	const workers = 16
	const perWorker = 500
	at := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)

	var wg sync.WaitGroup
	results := make([][]primitive.ObjectID, workers)
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			ids := make([]primitive.ObjectID, 0, perWorker)
			for i := 0; i < perWorker; i++ {
				ids = append(ids, gen.Generate(at))
			}
			results[w] = ids
		}(w)
	}
	wg.Wait()

	seen := make(map[primitive.ObjectID]struct{}, workers*perWorker)
	for _, ids := range results {
		for _, id := range ids {
			_, dup := seen[id]
			require.False(t, dup, "concurrent same-timestamp IDs must be pairwise distinct")
			seen[id] = struct{}{}
		}
	}
}

func TestTimestampRoundTrip(t *testing.T) {
	gen, err := NewGenerator(nil, &fixedEntropy{})
	require.NoError(t, err)

	at := time.Date(2024, 6, 1, 10, 0, 42, 999_000_000, time.UTC)
	id := gen.Generate(at)

	// Sub-second precision is deliberately not encoded.
	assert.Equal(t, at.Truncate(time.Second), Timestamp(id))
}

func TestNewUsesInjectedClock(t *testing.T) {
	at := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)
	gen, err := NewGenerator(fixedClock(at), &fixedEntropy{})
	require.NoError(t, err)

	assert.Equal(t, at, Timestamp(gen.New()))
}

func TestDeterministicWithFixedEntropy(t *testing.T) {
	at := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)

	genA, err := NewGenerator(fixedClock(at), &fixedEntropy{})
	require.NoError(t, err)
	genB, err := NewGenerator(fixedClock(at), &fixedEntropy{})
	require.NoError(t, err)

	assert.Equal(t, genA.New(), genB.New(), "same clock and entropy must give the same ID")
}

func TestFromHex(t *testing.T) {
	gen, err := NewGenerator(nil, &fixedEntropy{})
	require.NoError(t, err)

	id := gen.Generate(time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC))
	parsed, err := FromHex(id.Hex())
	require.NoError(t, err)
	assert.Equal(t, id, parsed)

	_, err = FromHex("not-a-hex-id")
	assert.Error(t, err)
}
