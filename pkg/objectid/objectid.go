// Package objectid generates globally unique, strictly time-ordered
// identifiers used as the primary key for every stored entity.
//
// The layout matches the classic ObjectID scheme: a 4-byte big-endian Unix
// second count, 5 bytes of per-process entropy, and a 3-byte monotonically
// increasing counter. Because the timestamp leads the encoding, comparing two
// IDs as opaque byte strings compares their creation times at second
// granularity, which lets the store range-scan by ID as a proxy for
// range-scanning by time.
//
// The clock and entropy source are injected so tests can generate
// deterministic IDs.
package objectid

import (
	"crypto/rand"
	"encoding/binary"
	"io"
	"sync/atomic"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/c360/sensorstore/errors"
)

// Clock supplies the current time. The zero-argument form keeps call sites
// trivial to fake in tests.
type Clock func() time.Time

// Generator produces time-ordered ObjectIDs. It is safe for concurrent use:
// the only mutable state is a single atomic counter, so two calls with the
// same timestamp always yield distinct IDs without locking.
type Generator struct {
	clock   Clock
	process [5]byte
	counter atomic.Uint32
}

// NewGenerator creates a Generator with an explicit clock and entropy source.
// The entropy seeds the 5-byte process field and the counter's starting
// offset; both are fixed for the generator's lifetime.
func NewGenerator(clock Clock, entropy io.Reader) (*Generator, error) {
	if clock == nil {
		clock = time.Now
	}

	var seed [9]byte
	if _, err := io.ReadFull(entropy, seed[:]); err != nil {
		return nil, errors.Wrap(err, "objectid", "NewGenerator", "read entropy")
	}

	g := &Generator{clock: clock}
	copy(g.process[:], seed[:5])
	g.counter.Store(binary.BigEndian.Uint32(seed[5:]))
	return g, nil
}

// NewDefaultGenerator creates a Generator backed by the wall clock and
// crypto/rand entropy.
func NewDefaultGenerator() *Generator {
	g, err := NewGenerator(time.Now, rand.Reader)
	if err != nil {
		// crypto/rand never fails on supported platforms.
		panic(err)
	}
	return g
}

// Generate produces an ID whose leading bytes encode the given timestamp.
// For t1 before t2 (at second granularity), Generate(t1) < Generate(t2) when
// the IDs are compared as opaque byte strings.
func (g *Generator) Generate(t time.Time) primitive.ObjectID {
	var id primitive.ObjectID

	binary.BigEndian.PutUint32(id[0:4], uint32(t.Unix()))
	copy(id[4:9], g.process[:])

	n := g.counter.Add(1)
	id[9] = byte(n >> 16)
	id[10] = byte(n >> 8)
	id[11] = byte(n)

	return id
}

// New produces an ID for the current time.
func (g *Generator) New() primitive.ObjectID {
	return g.Generate(g.clock())
}

// Timestamp extracts the creation time encoded in an ID.
func Timestamp(id primitive.ObjectID) time.Time {
	return time.Unix(int64(binary.BigEndian.Uint32(id[0:4])), 0).UTC()
}

// FromHex parses a hex ID string, classifying failures as invalid requests.
func FromHex(s string) (primitive.ObjectID, error) {
	id, err := primitive.ObjectIDFromHex(s)
	if err != nil {
		return primitive.NilObjectID, errors.WrapInvalid(errors.ErrInvalidID, "objectid", "FromHex", "parse hex identifier")
	}
	return id, nil
}

// Compare orders two IDs as opaque byte strings: -1, 0, or 1.
func Compare(a, b primitive.ObjectID) int {
	for i := range a {
		switch {
		case a[i] < b[i]:
			return -1
		case a[i] > b[i]:
			return 1
		}
	}
	return 0
}
