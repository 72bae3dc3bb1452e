package cachedstore

import (
	"context"
	"log/slog"
	"testing"
	"time"

	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/c360/sensorstore/cache"
	"github.com/c360/sensorstore/errors"
	"github.com/c360/sensorstore/metric"
	"github.com/c360/sensorstore/models"
	"github.com/c360/sensorstore/storage"
	"github.com/c360/sensorstore/testutil"
)

type manualClock struct{ now time.Time }

func (c *manualClock) Now() time.Time          { return c.now }
func (c *manualClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

type fixture struct {
	store    *testutil.MemMeasurementStore
	strategy *cache.MemoryStrategy
	cached   *Store
	clock    *manualClock
	sensor   *models.Sensor
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	clock := &manualClock{now: time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)}
	strategy := cache.NewMemoryStrategy(context.Background(), cache.WithClock(clock.Now))
	t.Cleanup(strategy.Close)

	store := testutil.NewMemMeasurementStore(clock.Now)
	return &fixture{
		store:    store,
		strategy: strategy,
		cached:   New(store, strategy, slog.Default()),
		clock:    clock,
		sensor:   &models.Sensor{ID: primitive.NewObjectID(), Secret: "abc"},
	}
}

func (f *fixture) receive(t *testing.T) *models.Measurement {
	t.Helper()
	m, err := f.cached.Receive(context.Background(), f.sensor,
		[]byte(`{"secret":"abc","lat":52.0,"lon":4.3,"data":{"temp":21.5}}`))
	require.NoError(t, err)
	return m
}

func TestReceiveThenGetByIDSkipsStore(t *testing.T) {
	f := newFixture(t)
	created := f.receive(t)

	got, err := f.cached.GetByID(context.Background(), created.ID)
	require.NoError(t, err)

	assert.Equal(t, 0, f.store.Calls("GetByID"), "write-through must serve the read")
	assert.Equal(t, created.ID, got.ID)
	assert.Equal(t, created.SensorID, got.SensorID)
	assert.True(t, created.CreatedAt.Equal(got.CreatedAt))
	assert.Equal(t, created.Data, got.Data)
	assert.Equal(t, created.Latitude, got.Latitude)
	assert.Equal(t, created.Longitude, got.Longitude)
}

func TestGetByIDPopulatesOnMiss(t *testing.T) {
	f := newFixture(t)
	m := models.Measurement{ID: primitive.NewObjectID(), SensorID: f.sensor.ID, CreatedAt: f.clock.Now()}
	f.store.Put(m)

	_, err := f.cached.GetByID(context.Background(), m.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, f.store.Calls("GetByID"))

	_, err = f.cached.GetByID(context.Background(), m.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, f.store.Calls("GetByID"), "second read is a cache hit")
}

func TestDeleteEvictsBeforeStoreDelete(t *testing.T) {
	f := newFixture(t)
	created := f.receive(t)

	require.NoError(t, f.cached.Delete(context.Background(), created.ID))

	_, err := f.cached.GetByID(context.Background(), created.ID)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrNotFound), "deleted entity must never be served")
	assert.Equal(t, 1, f.store.Calls("GetByID"), "the read went to the store, not a stale entry")
}

func TestUpdateEvictsCachedEntity(t *testing.T) {
	f := newFixture(t)
	created := f.receive(t)

	patch := &models.Measurement{
		ID:   created.ID,
		Data: []models.DataPoint{{Name: "temp", Value: 22.5}},
	}
	require.NoError(t, f.cached.Update(context.Background(), patch))

	got, err := f.cached.GetByID(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, f.store.Calls("GetByID"), "update invalidates, so the read refetches")
	require.Len(t, got.Data, 1)
	assert.Equal(t, 22.5, got.Data[0].Value)
	assert.Equal(t, created.Latitude, got.Latitude, "untouched fields survive the partial update")
}

func TestNoopUpdateKeepsCacheEntry(t *testing.T) {
	f := newFixture(t)
	created := f.receive(t)

	require.NoError(t, f.cached.Update(context.Background(), &models.Measurement{ID: created.ID}))
	assert.Equal(t, 0, f.store.Calls("Update"), "nothing to set, nothing to write")

	_, err := f.cached.GetByID(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, f.store.Calls("GetByID"), "the cached entity is still accurate")
}

func TestGetBySensorShortTimeout(t *testing.T) {
	f := newFixture(t)
	f.receive(t)

	_, err := f.cached.GetBySensor(context.Background(), f.sensor, storage.NoPagination, storage.NoPagination)
	require.NoError(t, err)
	_, err = f.cached.GetBySensor(context.Background(), f.sensor, storage.NoPagination, storage.NoPagination)
	require.NoError(t, err)
	assert.Equal(t, 1, f.store.Calls("GetBySensor"), "second listing is a cache hit")

	f.clock.Advance(cache.ShortTimeoutMinutes*time.Minute + time.Second)
	_, err = f.cached.GetBySensor(context.Background(), f.sensor, storage.NoPagination, storage.NoPagination)
	require.NoError(t, err)
	assert.Equal(t, 2, f.store.Calls("GetBySensor"), "listings expire on the short timeout")
}

func TestGetBySensorKeyIncludesPagination(t *testing.T) {
	f := newFixture(t)
	f.receive(t)

	_, err := f.cached.GetBySensor(context.Background(), f.sensor, 0, 10)
	require.NoError(t, err)
	_, err = f.cached.GetBySensor(context.Background(), f.sensor, 10, 10)
	require.NoError(t, err)
	assert.Equal(t, 2, f.store.Calls("GetBySensor"), "different pages are different entries")
}

func TestGetBetweenCached(t *testing.T) {
	f := newFixture(t)
	created := f.receive(t)
	start := created.CreatedAt.Add(-time.Hour)
	end := created.CreatedAt.Add(time.Hour)

	first, err := f.cached.GetBetween(context.Background(), f.sensor, start, end, storage.DefaultOptions())
	require.NoError(t, err)
	require.Len(t, first, 1)

	second, err := f.cached.GetBetween(context.Background(), f.sensor, start, end, storage.DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, 1, f.store.Calls("GetBetween"))
	assert.Equal(t, first[0].ID, second[0].ID)

	// A different ordering is a different cache entry.
	_, err = f.cached.GetBetween(context.Background(), f.sensor, start, end,
		storage.QueryOptions{Skip: storage.NoPagination, Limit: storage.NoPagination, Order: models.OrderDescending})
	require.NoError(t, err)
	assert.Equal(t, 2, f.store.Calls("GetBetween"))
}

func TestFanOutQueriesBypassCache(t *testing.T) {
	f := newFixture(t)
	created := f.receive(t)
	sensors := []models.Sensor{*f.sensor}
	start := created.CreatedAt.Add(-time.Hour)
	end := created.CreatedAt.Add(time.Hour)

	for i := 0; i < 2; i++ {
		_, err := f.cached.GetBetweenMany(context.Background(), sensors, start, end, storage.DefaultOptions())
		require.NoError(t, err)
		_, err = f.cached.GetNearMany(context.Background(), sensors, start, end, models.GeoCoordinates{}, 100, storage.DefaultOptions())
		require.NoError(t, err)
	}
	assert.Equal(t, 2, f.store.Calls("GetBetweenMany"))
	assert.Equal(t, 2, f.store.Calls("GetNearMany"))
}

func TestGetMeasurementsEmptyKeyBypassesCache(t *testing.T) {
	f := newFixture(t)
	query := storage.Eq("sensorId", f.sensor.ID)

	for i := 0; i < 2; i++ {
		_, err := f.cached.GetMeasurements(context.Background(), "", query)
		require.NoError(t, err)
	}
	assert.Equal(t, 2, f.store.Calls("GetMeasurements"))

	for i := 0; i < 2; i++ {
		_, err := f.cached.GetMeasurements(context.Background(), "dashboard", query)
		require.NoError(t, err)
	}
	assert.Equal(t, 3, f.store.Calls("GetMeasurements"), "named queries are cached")
}

func TestCacheFailureDegradesToStore(t *testing.T) {
	failing := &testutil.FailingStrategy{}
	store := testutil.NewMemMeasurementStore(nil)
	cached := New(store, failing, slog.Default())
	sensor := &models.Sensor{ID: primitive.NewObjectID(), Secret: "abc"}

	created, err := cached.Receive(context.Background(), sensor,
		[]byte(`{"secret":"abc","data":{"temp":1}}`))
	require.NoError(t, err, "a broken cache must not block writes")

	got, err := cached.GetByID(context.Background(), created.ID)
	require.NoError(t, err, "a broken cache must not block reads")
	assert.Equal(t, created.ID, got.ID)
	assert.Equal(t, 1, store.Calls("GetByID"))

	require.NoError(t, cached.Delete(context.Background(), created.ID))
	assert.Greater(t, failing.Calls(), 0, "the cache was actually consulted")
}

func TestStoreErrorsPassThroughUncached(t *testing.T) {
	f := newFixture(t)

	boom := errors.WrapStorage(errors.ErrStorageUnavailable, "mem", "GetByID", "find")
	f.store.FailNext(boom)

	_, err := f.cached.GetByID(context.Background(), primitive.NewObjectID())
	require.Error(t, err)
	assert.True(t, errors.IsStorage(err))

	// The failure was not cached: the next read tries the store again.
	_, err = f.cached.GetByID(context.Background(), primitive.NewObjectID())
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrNotFound))
	assert.Equal(t, 2, f.store.Calls("GetByID"))
}

func TestCacheOutcomeMetrics(t *testing.T) {
	registry := metric.NewRegistry()
	core := registry.CoreMetrics()

	clock := &manualClock{now: time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)}
	strategy := cache.NewMemoryStrategy(context.Background(), cache.WithClock(clock.Now))
	t.Cleanup(strategy.Close)

	store := testutil.NewMemMeasurementStore(clock.Now)
	cached := New(store, strategy, slog.Default(), WithMetrics(core))

	m := models.Measurement{ID: primitive.NewObjectID(), CreatedAt: clock.Now()}
	store.Put(m)

	_, err := cached.GetByID(context.Background(), m.ID)
	require.NoError(t, err)
	_, err = cached.GetByID(context.Background(), m.ID)
	require.NoError(t, err)

	assert.Equal(t, 1.0, promtest.ToFloat64(core.CacheRequests.WithLabelValues(shapeByID, metric.OutcomeMiss)))
	assert.Equal(t, 1.0, promtest.ToFloat64(core.CacheRequests.WithLabelValues(shapeByID, metric.OutcomeHit)))
}
