package cachedstore

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/c360/sensorstore/cache"
	"github.com/c360/sensorstore/metric"
	"github.com/c360/sensorstore/models"
	"github.com/c360/sensorstore/storage"
)

// Store is a cache-aside storage.MeasurementStore decorating a backing store.
type Store struct {
	store   storage.MeasurementStore
	cache   cache.Strategy
	logger  *slog.Logger
	metrics *metric.Metrics

	timeoutMinutes      int
	shortTimeoutMinutes int
}

var _ storage.MeasurementStore = (*Store)(nil)

// Option configures a Store.
type Option func(*Store)

// WithMetrics records cache outcomes on the given metrics.
func WithMetrics(m *metric.Metrics) Option {
	return func(s *Store) { s.metrics = m }
}

// WithTimeouts overrides the standard and short expiry, in minutes.
func WithTimeouts(standard, short int) Option {
	return func(s *Store) {
		if standard > 0 {
			s.timeoutMinutes = standard
		}
		if short > 0 {
			s.shortTimeoutMinutes = short
		}
	}
}

// New decorates store with the cache-aside layer over strategy.
func New(store storage.MeasurementStore, strategy cache.Strategy, logger *slog.Logger, opts ...Option) *Store {
	if logger == nil {
		logger = slog.Default()
	}

	s := &Store{
		store:               store,
		cache:               strategy,
		logger:              logger,
		timeoutMinutes:      cache.DefaultTimeoutMinutes,
		shortTimeoutMinutes: cache.ShortTimeoutMinutes,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// lookup consults the cache for key and decodes a hit into out. Cache and
// decode failures are absorbed; a corrupt entry is evicted so the next read
// repopulates it.
func (s *Store) lookup(ctx context.Context, key, shape string, out any) bool {
	payload, found, err := s.cache.Get(ctx, key)
	if err != nil {
		s.cacheError(ctx, shape, "Get", key, err)
		return false
	}
	if !found {
		if s.metrics != nil {
			s.metrics.RecordCacheMiss(shape)
		}
		return false
	}

	if err := json.Unmarshal([]byte(payload), out); err != nil {
		s.logger.WarnContext(ctx, "evicting undecodable cache entry", "key", key, "error", err)
		if s.metrics != nil {
			s.metrics.RecordCacheError(shape)
		}
		if err := s.cache.Remove(ctx, key); err != nil {
			s.logger.WarnContext(ctx, "cache eviction failed", "key", key, "error", err)
		}
		return false
	}

	if s.metrics != nil {
		s.metrics.RecordCacheHit(shape)
	}
	return true
}

// populate snapshots value into the cache with a sliding expiry. Failures are
// absorbed: the caller already holds the store's answer.
func (s *Store) populate(ctx context.Context, key, shape string, value any, timeoutMinutes int) {
	payload, err := json.Marshal(value)
	if err != nil {
		s.cacheError(ctx, shape, "Marshal", key, err)
		return
	}
	if err := s.cache.SetWithExpiry(ctx, key, string(payload), timeoutMinutes, true); err != nil {
		s.cacheError(ctx, shape, "Set", key, err)
	}
}

// evict removes a key, absorbing failures.
func (s *Store) evict(ctx context.Context, key, shape string) {
	if err := s.cache.Remove(ctx, key); err != nil {
		s.cacheError(ctx, shape, "Remove", key, err)
	}
}

func (s *Store) cacheError(ctx context.Context, shape, op, key string, err error) {
	s.logger.WarnContext(ctx, "cache unavailable, falling through to store",
		"shape", shape, "op", op, "key", key, "error", err)
	if s.metrics != nil {
		s.metrics.RecordCacheError(shape)
	}
}

// Receive stores the measurement and writes it through to the cache, so an
// immediate GetByID is served without another store round trip.
func (s *Store) Receive(ctx context.Context, sensor *models.Sensor, payload []byte) (*models.Measurement, error) {
	m, err := s.store.Receive(ctx, sensor, payload)
	if err != nil {
		return nil, err
	}

	s.populate(ctx, idKey(m.ID), shapeByID, m, s.timeoutMinutes)
	return m, nil
}

// GetByID implements storage.MeasurementStore
func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Measurement, error) {
	key := idKey(id)

	var cached models.Measurement
	if s.lookup(ctx, key, shapeByID, &cached) {
		return &cached, nil
	}

	m, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	s.populate(ctx, key, shapeByID, m, s.timeoutMinutes)
	return m, nil
}

// GetBySensor implements storage.MeasurementStore. Listings churn with every
// arriving measurement, so they get the short timeout.
func (s *Store) GetBySensor(ctx context.Context, sensor *models.Sensor, skip, limit int64) ([]models.Measurement, error) {
	key := sensorKey(sensor.ID, skip, limit)

	var cached []models.Measurement
	if s.lookup(ctx, key, shapeBySensor, &cached) {
		return cached, nil
	}

	out, err := s.store.GetBySensor(ctx, sensor, skip, limit)
	if err != nil {
		return nil, err
	}
	s.populate(ctx, key, shapeBySensor, out, s.shortTimeoutMinutes)
	return out, nil
}

// GetBetween implements storage.MeasurementStore
func (s *Store) GetBetween(ctx context.Context, sensor *models.Sensor, start, end time.Time, opts storage.QueryOptions) ([]models.MeasurementsQueryResult, error) {
	key := betweenKey(sensor.ID, start, end, opts)

	var cached []models.MeasurementsQueryResult
	if s.lookup(ctx, key, shapeBetween, &cached) {
		return cached, nil
	}

	out, err := s.store.GetBetween(ctx, sensor, start, end, opts)
	if err != nil {
		return nil, err
	}
	s.populate(ctx, key, shapeBetween, out, s.timeoutMinutes)
	return out, nil
}

// GetBetweenMany implements storage.MeasurementStore. Uncached: the key space
// over sensor sets is unbounded.
func (s *Store) GetBetweenMany(ctx context.Context, sensors []models.Sensor, start, end time.Time, opts storage.QueryOptions) ([]models.MeasurementsQueryResult, error) {
	return s.store.GetBetweenMany(ctx, sensors, start, end, opts)
}

// GetNear implements storage.MeasurementStore
func (s *Store) GetNear(ctx context.Context, sensor *models.Sensor, start, end time.Time, coords models.GeoCoordinates, max int64, opts storage.QueryOptions) ([]models.MeasurementsQueryResult, error) {
	key := nearKey(sensor.ID, start, end, coords, max, opts)

	var cached []models.MeasurementsQueryResult
	if s.lookup(ctx, key, shapeNear, &cached) {
		return cached, nil
	}

	out, err := s.store.GetNear(ctx, sensor, start, end, coords, max, opts)
	if err != nil {
		return nil, err
	}
	s.populate(ctx, key, shapeNear, out, s.timeoutMinutes)
	return out, nil
}

// GetNearMany implements storage.MeasurementStore. Uncached, like
// GetBetweenMany.
func (s *Store) GetNearMany(ctx context.Context, sensors []models.Sensor, start, end time.Time, coords models.GeoCoordinates, max int64, opts storage.QueryOptions) ([]models.MeasurementsQueryResult, error) {
	return s.store.GetNearMany(ctx, sensors, start, end, coords, max, opts)
}

// GetMeasurements implements storage.MeasurementStore. The caller names the
// cache entry; an empty key bypasses the cache.
func (s *Store) GetMeasurements(ctx context.Context, key string, query *storage.Query) ([]models.Measurement, error) {
	if key == "" {
		return s.store.GetMeasurements(ctx, key, query)
	}
	key = shapeAdHoc + "::" + key

	var cached []models.Measurement
	if s.lookup(ctx, key, shapeAdHoc, &cached) {
		return cached, nil
	}

	out, err := s.store.GetMeasurements(ctx, "", query)
	if err != nil {
		return nil, err
	}
	s.populate(ctx, key, shapeAdHoc, out, s.timeoutMinutes)
	return out, nil
}

// Update implements storage.MeasurementStore. A successful partial update
// evicts the cached entity rather than caching the partial value, so the next
// read observes the merged document.
func (s *Store) Update(ctx context.Context, m *models.Measurement) error {
	if err := s.store.Update(ctx, m); err != nil {
		return err
	}
	if !m.HasCoordinates() && len(m.Data) == 0 {
		// Nothing changed, the cached entity is still accurate.
		return nil
	}

	s.evict(ctx, idKey(m.ID), shapeByID)
	return nil
}

// Delete implements storage.MeasurementStore. The cache entry goes first:
// even if the store delete then fails, a stale hit can only re-serve a
// still-existing document.
func (s *Store) Delete(ctx context.Context, id primitive.ObjectID) error {
	s.evict(ctx, idKey(id), shapeByID)
	return s.store.Delete(ctx, id)
}

// DeleteBySensor implements storage.MeasurementStore. Listing and range
// entries for the sensor cannot be enumerated; they age out on their short
// timeouts.
func (s *Store) DeleteBySensor(ctx context.Context, sensor *models.Sensor) error {
	return s.store.DeleteBySensor(ctx, sensor)
}

// DeleteBetween implements storage.MeasurementStore
func (s *Store) DeleteBetween(ctx context.Context, sensor *models.Sensor, start, end time.Time) error {
	return s.store.DeleteBetween(ctx, sensor, start, end)
}
