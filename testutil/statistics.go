package testutil

import (
	"context"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/c360/sensorstore/errors"
	"github.com/c360/sensorstore/models"
	"github.com/c360/sensorstore/pkg/objectid"
	"github.com/c360/sensorstore/pkg/timeutil"
	"github.com/c360/sensorstore/storage"
)

// bucketKey is the (sensor, hour, method) natural key of a statistics bucket.
type bucketKey struct {
	sensorID primitive.ObjectID
	date     time.Time
	method   models.RequestMethod
}

// SpyStatistics is an in-memory storage.StatisticsStore that accumulates
// counts per (sensor, hour, method) bucket and can be told to fail, so
// aggregation tests can verify both bucketing and error absorption.
type SpyStatistics struct {
	mu      sync.Mutex
	buckets map[bucketKey]*models.SensorStatisticsEntry
	gen     *objectid.Generator
	now     func() time.Time
	err     error
}

var _ storage.StatisticsStore = (*SpyStatistics)(nil)

// NewSpyStatistics creates an empty spy using the given clock. A nil clock
// falls back to time.Now.
func NewSpyStatistics(now func() time.Time) *SpyStatistics {
	if now == nil {
		now = time.Now
	}
	return &SpyStatistics{
		buckets: make(map[bucketKey]*models.SensorStatisticsEntry),
		gen:     objectid.NewDefaultGenerator(),
		now:     now,
	}
}

// Fail makes every subsequent write operation return err. Pass nil to heal.
func (s *SpyStatistics) Fail(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
}

// Buckets returns a snapshot of all accumulated entries.
func (s *SpyStatistics) Buckets() []models.SensorStatisticsEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.SensorStatisticsEntry, 0, len(s.buckets))
	for _, entry := range s.buckets {
		out = append(out, *entry)
	}
	return out
}

// Count returns the measurement count of one bucket, or zero when absent.
func (s *SpyStatistics) Count(sensorID primitive.ObjectID, at time.Time, method models.RequestMethod) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.buckets[bucketKey{sensorID, timeutil.ThisHour(at), method}]
	if !ok {
		return 0
	}
	return entry.Measurements
}

// Increment implements storage.StatisticsStore
func (s *SpyStatistics) Increment(ctx context.Context, sensor *models.Sensor, method models.RequestMethod) error {
	return s.IncrementMany(ctx, sensor, method, 1)
}

// IncrementMany implements storage.StatisticsStore
func (s *SpyStatistics) IncrementMany(_ context.Context, sensor *models.Sensor, method models.RequestMethod, count int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return errors.WrapAggregation(s.err, "spy", "IncrementMany", "upsert")
	}

	now := s.now()
	key := bucketKey{sensor.ID, timeutil.ThisHour(now), method}
	entry, ok := s.buckets[key]
	if !ok {
		entry = &models.SensorStatisticsEntry{
			ID:       s.gen.Generate(now),
			SensorID: sensor.ID,
			Date:     key.date,
			Method:   method,
		}
		s.buckets[key] = entry
	}
	entry.Measurements += count
	return nil
}

// CreateBucket implements storage.StatisticsStore
func (s *SpyStatistics) CreateBucket(_ context.Context, sensor *models.Sensor) (*models.SensorStatisticsEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, errors.WrapStorage(s.err, "spy", "CreateBucket", "insert")
	}

	now := s.now()
	key := bucketKey{sensor.ID, timeutil.ThisHour(now), models.MethodAny}
	entry := &models.SensorStatisticsEntry{
		ID:       s.gen.Generate(now),
		SensorID: sensor.ID,
		Date:     key.date,
		Method:   models.MethodAny,
	}
	s.buckets[key] = entry
	copied := *entry
	return &copied, nil
}

// GetByDate implements storage.StatisticsStore
func (s *SpyStatistics) GetByDate(_ context.Context, sensor *models.Sensor, at time.Time) (*models.SensorStatisticsEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	hour := timeutil.ThisHour(at)
	for key, entry := range s.buckets {
		if key.sensorID == sensor.ID && key.date.Equal(hour) {
			copied := *entry
			return &copied, nil
		}
	}
	return nil, errors.WrapStorage(errors.ErrNotFound, "spy", "GetByDate", "find")
}

// GetBefore implements storage.StatisticsStore
func (s *SpyStatistics) GetBefore(ctx context.Context, sensor *models.Sensor, cutoff time.Time) ([]models.SensorStatisticsEntry, error) {
	return s.filter(func(k bucketKey) bool {
		return k.sensorID == sensor.ID && !k.date.After(timeutil.ThisHour(cutoff))
	}), nil
}

// GetAfter implements storage.StatisticsStore
func (s *SpyStatistics) GetAfter(ctx context.Context, sensor *models.Sensor, cutoff time.Time) ([]models.SensorStatisticsEntry, error) {
	return s.filter(func(k bucketKey) bool {
		return k.sensorID == sensor.ID && !k.date.Before(timeutil.ThisHour(cutoff))
	}), nil
}

// GetBetween implements storage.StatisticsStore
func (s *SpyStatistics) GetBetween(ctx context.Context, sensor *models.Sensor, start, end time.Time) ([]models.SensorStatisticsEntry, error) {
	return s.GetBetweenMany(ctx, []models.Sensor{*sensor}, start, end)
}

// GetBetweenMany implements storage.StatisticsStore
func (s *SpyStatistics) GetBetweenMany(_ context.Context, sensors []models.Sensor, start, end time.Time) ([]models.SensorStatisticsEntry, error) {
	owned := make(map[primitive.ObjectID]bool, len(sensors))
	for _, sensor := range sensors {
		owned[sensor.ID] = true
	}
	from, to := timeutil.ThisHour(start), timeutil.ThisHour(end)
	return s.filter(func(k bucketKey) bool {
		return owned[k.sensorID] && !k.date.Before(from) && !k.date.After(to)
	}), nil
}

// DeleteBySensor implements storage.StatisticsStore
func (s *SpyStatistics) DeleteBySensor(_ context.Context, sensor *models.Sensor) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for key := range s.buckets {
		if key.sensorID == sensor.ID {
			delete(s.buckets, key)
		}
	}
	return nil
}

// DeleteBySensorBetween implements storage.StatisticsStore
func (s *SpyStatistics) DeleteBySensorBetween(_ context.Context, sensor *models.Sensor, from, to time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	lo, hi := timeutil.ThisHour(from), timeutil.ThisHour(to)
	for key := range s.buckets {
		if key.sensorID == sensor.ID && !key.date.Before(lo) && !key.date.After(hi) {
			delete(s.buckets, key)
		}
	}
	return nil
}

func (s *SpyStatistics) filter(keep func(bucketKey) bool) []models.SensorStatisticsEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.SensorStatisticsEntry
	for key, entry := range s.buckets {
		if keep(key) {
			out = append(out, *entry)
		}
	}
	return out
}
