// Package storage defines the store contracts of the measurement core.
package storage

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/c360/sensorstore/models"
)

// NoPagination disables skip/limit for query methods that accept them.
const NoPagination int64 = -1

// QueryOptions bundles the pagination and ordering parameters shared by the
// time-range and proximity queries. Use DefaultOptions to build one.
type QueryOptions struct {
	Skip  int64
	Limit int64
	Order models.OrderDirection
}

// DefaultOptions returns options with pagination disabled and store order.
func DefaultOptions() QueryOptions {
	return QueryOptions{Skip: NoPagination, Limit: NoPagination, Order: models.OrderNone}
}

// MeasurementStore is the capability interface of the measurement collection.
//
// It is implemented twice: mongostore.MeasurementStore talks to the document
// store directly, and cachedstore.MeasurementStore wraps any implementation
// with a cache-aside mirror. Callers compose the two at construction time and
// program against this interface only.
//
// All implementations must be safe for concurrent use; coordination is
// delegated to the underlying store, never to application-level locks.
type MeasurementStore interface {
	// Receive parses a raw submission, validates the embedded secret against
	// the sensor's, assigns a fresh time-ordered ID and a creation timestamp,
	// persists the measurement, and notifies downstream listeners. Validation
	// failures classify as invalid requests and never touch the store.
	Receive(ctx context.Context, sensor *models.Sensor, payload []byte) (*models.Measurement, error)

	// GetByID returns a single measurement, or an ErrNotFound-classified
	// error when no document matches.
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.Measurement, error)

	// GetBySensor returns a sensor's measurements, unordered. Skip/limit of
	// NoPagination mean "everything".
	GetBySensor(ctx context.Context, sensor *models.Sensor, skip, limit int64) ([]models.Measurement, error)

	// GetBetween returns measurements with start <= createdAt <= end, both
	// bounds inclusive.
	GetBetween(ctx context.Context, sensor *models.Sensor, start, end time.Time, opts QueryOptions) ([]models.MeasurementsQueryResult, error)

	// GetBetweenMany is the multi-sensor fan-out variant of GetBetween, used
	// by dashboards querying a whole fleet in one call.
	GetBetweenMany(ctx context.Context, sensors []models.Sensor, start, end time.Time, opts QueryOptions) ([]models.MeasurementsQueryResult, error)

	// GetNear combines the inclusive time-range filter with a geospatial
	// proximity filter: nearest-first up to max candidates, then the time
	// filter, ordering, and pagination.
	GetNear(ctx context.Context, sensor *models.Sensor, start, end time.Time, coords models.GeoCoordinates, max int64, opts QueryOptions) ([]models.MeasurementsQueryResult, error)

	// GetNearMany is the multi-sensor fan-out variant of GetNear.
	GetNearMany(ctx context.Context, sensors []models.Sensor, start, end time.Time, coords models.GeoCoordinates, max int64, opts QueryOptions) ([]models.MeasurementsQueryResult, error)

	// GetMeasurements evaluates a typed query expression against the
	// collection. The key identifies the lookup for caching purposes; an
	// empty key always bypasses the cache.
	GetMeasurements(ctx context.Context, key string, query *Query) ([]models.Measurement, error)

	// Update applies a partial amendment: only a non-default coordinate pair
	// and a non-empty data field are written. When nothing is set the call
	// short-circuits without contacting the store.
	Update(ctx context.Context, m *models.Measurement) error

	// Delete removes one measurement by ID. Idempotent.
	Delete(ctx context.Context, id primitive.ObjectID) error

	// DeleteBySensor removes every measurement owned by the sensor. Safe to
	// call concurrently with ongoing creates; consistency with in-flight
	// writes is the store's native (eventual) consistency.
	DeleteBySensor(ctx context.Context, sensor *models.Sensor) error

	// DeleteBetween removes a sensor's measurements inside the inclusive
	// time range.
	DeleteBetween(ctx context.Context, sensor *models.Sensor, start, end time.Time) error
}

// StatisticsStore maintains the hourly per-sensor, per-method submission
// counters. Increment is the only operation in the platform where concurrent
// writers target the same mutable record; implementations must realize it as
// a single atomic upsert-increment, never a read-then-write sequence.
type StatisticsStore interface {
	// Increment adds one submission to the current hour's bucket, creating
	// it with the given method when absent.
	Increment(ctx context.Context, sensor *models.Sensor, method models.RequestMethod) error

	// IncrementMany adds count submissions in one atomic operation.
	IncrementMany(ctx context.Context, sensor *models.Sensor, method models.RequestMethod, count int64) error

	// CreateBucket explicitly creates a zero-initialized bucket for the
	// current hour, for callers that want a handle before any increments.
	CreateBucket(ctx context.Context, sensor *models.Sensor) (*models.SensorStatisticsEntry, error)

	// GetByDate returns the bucket containing the given instant, or an
	// ErrNotFound-classified error.
	GetByDate(ctx context.Context, sensor *models.Sensor, at time.Time) (*models.SensorStatisticsEntry, error)

	// GetBefore returns all buckets at or before the cutoff's hour.
	GetBefore(ctx context.Context, sensor *models.Sensor, cutoff time.Time) ([]models.SensorStatisticsEntry, error)

	// GetAfter returns all buckets at or after the cutoff's hour.
	GetAfter(ctx context.Context, sensor *models.Sensor, cutoff time.Time) ([]models.SensorStatisticsEntry, error)

	// GetBetween returns buckets between the two bounds, hour-truncated and
	// inclusive.
	GetBetween(ctx context.Context, sensor *models.Sensor, start, end time.Time) ([]models.SensorStatisticsEntry, error)

	// GetBetweenMany is the multi-sensor fan-out variant of GetBetween.
	GetBetweenMany(ctx context.Context, sensors []models.Sensor, start, end time.Time) ([]models.SensorStatisticsEntry, error)

	// DeleteBySensor removes all of a sensor's buckets.
	DeleteBySensor(ctx context.Context, sensor *models.Sensor) error

	// DeleteBySensorBetween removes a sensor's buckets inside the
	// hour-truncated inclusive range.
	DeleteBySensorBetween(ctx context.Context, sensor *models.Sensor, from, to time.Time) error
}
