package errors

import (
	stderrors "errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorClassString(t *testing.T) {
	tests := []struct {
		class    ErrorClass
		expected string
	}{
		{ErrorInvalid, "invalid"},
		{ErrorStorage, "storage"},
		{ErrorCaching, "caching"},
		{ErrorAggregation, "aggregation"},
		{ErrorClass(42), "unknown"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, tt.class.String())
	}
}

func TestWrapPreservesChain(t *testing.T) {
	base := stderrors.New("connection reset")
	wrapped := WrapStorage(base, "measurements", "GetByID", "find")

	require.Error(t, wrapped)
	assert.True(t, stderrors.Is(wrapped, base), "wrapped error should match its cause")

	var ce *ClassifiedError
	require.True(t, stderrors.As(wrapped, &ce))
	assert.Equal(t, ErrorStorage, ce.Class)
	assert.Equal(t, "measurements", ce.Collection)
	assert.Equal(t, "GetByID", ce.Operation)
	assert.Contains(t, wrapped.Error(), "measurements.GetByID: find failed")
}

func TestWrapNilReturnsNil(t *testing.T) {
	assert.NoError(t, Wrap(nil, "c", "o", "a"))
	assert.NoError(t, WrapInvalid(nil, "c", "o", "a"))
	assert.NoError(t, WrapStorage(nil, "c", "o", "a"))
	assert.NoError(t, WrapCaching(nil, "c", "o", "a"))
	assert.NoError(t, WrapAggregation(nil, "c", "o", "a"))
}

func TestClassificationPredicates(t *testing.T) {
	tests := []struct {
		name          string
		err           error
		isInvalid     bool
		isStorage     bool
		isCaching     bool
		isAggregation bool
	}{
		{
			name:      "sentinel secret mismatch",
			err:       ErrSecretMismatch,
			isInvalid: true,
		},
		{
			name:      "sentinel malformed payload",
			err:       ErrMalformedPayload,
			isInvalid: true,
		},
		{
			name:      "wrapped invalid keeps class",
			err:       WrapInvalid(ErrSecretMismatch, "measurements", "Receive", "secret validation"),
			isInvalid: true,
		},
		{
			name:      "sentinel not found",
			err:       ErrNotFound,
			isStorage: true,
		},
		{
			name:      "wrapped storage",
			err:       WrapStorage(stderrors.New("timeout"), "measurements", "DeleteBySensor", "delete"),
			isStorage: true,
		},
		{
			name:      "sentinel cache unavailable",
			err:       ErrCacheUnavailable,
			isCaching: true,
		},
		{
			name:      "wrapped caching",
			err:       WrapCaching(stderrors.New("dial refused"), "cache", "Get", "lookup"),
			isCaching: true,
		},
		{
			name:          "wrapped aggregation",
			err:           WrapAggregation(stderrors.New("timeout"), "sensor_statistics", "Increment", "upsert"),
			isAggregation: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.isInvalid, IsInvalid(tt.err))
			assert.Equal(t, tt.isStorage, IsStorage(tt.err))
			assert.Equal(t, tt.isCaching, IsCaching(tt.err))
			assert.Equal(t, tt.isAggregation, IsAggregation(tt.err))
		})
	}
}

func TestClassify(t *testing.T) {
	assert.Equal(t, ErrorInvalid, Classify(ErrMalformedPayload))
	assert.Equal(t, ErrorCaching, Classify(ErrCacheUnavailable))
	assert.Equal(t, ErrorAggregation, Classify(WrapAggregation(stderrors.New("x"), "sensor_statistics", "Increment", "upsert")))
	// Unknown errors default to storage: the safest assumption for a store core.
	assert.Equal(t, ErrorStorage, Classify(stderrors.New("mystery")))
}

func TestIsNotFound(t *testing.T) {
	assert.True(t, IsNotFound(WrapStorage(ErrNotFound, "measurements", "GetByID", "find")))
	assert.False(t, IsNotFound(ErrStorageUnavailable))
}

func TestNilChecks(t *testing.T) {
	assert.False(t, IsInvalid(nil))
	assert.False(t, IsStorage(nil))
	assert.False(t, IsCaching(nil))
	assert.False(t, IsAggregation(nil))
}
