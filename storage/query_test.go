package storage

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/c360/sensorstore/errors"
)

func TestQueryValidate(t *testing.T) {
	start := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name      string
		query     *Query
		expectErr bool
	}{
		{
			name:  "simple equality",
			query: Eq("sensorId", "abc"),
		},
		{
			name: "range conjunction",
			query: And(
				Eq("sensorId", "abc"),
				Gte("createdAt", start),
				Lte("createdAt", start.Add(time.Hour)),
			),
		},
		{
			name:  "membership",
			query: In("sensorId", "a", "b", "c"),
		},
		{
			name:  "nested conjunction",
			query: And(And(Eq("sensorId", "abc")), Lte("createdAt", start)),
		},
		{
			name:      "nil query",
			query:     nil,
			expectErr: true,
		},
		{
			name:      "eq without field",
			query:     Eq("", 1),
			expectErr: true,
		},
		{
			name:      "in without values",
			query:     In("sensorId"),
			expectErr: true,
		},
		{
			name:      "empty and",
			query:     And(),
			expectErr: true,
		},
		{
			name:      "invalid child",
			query:     And(Eq("sensorId", "abc"), Gte("", 1)),
			expectErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.query.Validate()
			if tt.expectErr {
				assert.Error(t, err)
				assert.True(t, errors.IsInvalid(err))
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestDefaultOptions(t *testing.T) {
	opts := DefaultOptions()
	assert.Equal(t, NoPagination, opts.Skip)
	assert.Equal(t, NoPagination, opts.Limit)
}
