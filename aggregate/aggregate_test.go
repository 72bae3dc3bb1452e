package aggregate

import (
	"context"
	"fmt"
	"log/slog"
	"testing"
	"time"

	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/c360/sensorstore/metric"
	"github.com/c360/sensorstore/models"
	"github.com/c360/sensorstore/testutil"
)

func TestRepeatedIncrementsLandInOneBucket(t *testing.T) {
	now := time.Date(2024, 6, 1, 10, 1, 40, 0, time.UTC)
	spy := testutil.NewSpyStatistics(func() time.Time { return now })
	agg := New(spy, slog.Default())
	sensor := &models.Sensor{ID: primitive.NewObjectID()}

	for i := 0; i < 5; i++ {
		agg.MeasurementStored(context.Background(), sensor, models.MethodMQTT)
	}

	require.Len(t, spy.Buckets(), 1)
	assert.Equal(t, int64(5), spy.Count(sensor.ID, now, models.MethodMQTT))
}

func TestDifferentHoursLandInDifferentBuckets(t *testing.T) {
	now := time.Date(2024, 6, 1, 10, 59, 0, 0, time.UTC)
	spy := testutil.NewSpyStatistics(func() time.Time { return now })
	agg := New(spy, slog.Default())
	sensor := &models.Sensor{ID: primitive.NewObjectID()}

	agg.MeasurementStored(context.Background(), sensor, models.MethodHTTPPost)
	now = now.Add(2 * time.Minute) // crosses into the next hour
	agg.MeasurementStored(context.Background(), sensor, models.MethodHTTPPost)

	require.Len(t, spy.Buckets(), 2)
	assert.Equal(t, int64(1), spy.Count(sensor.ID, time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC), models.MethodHTTPPost))
	assert.Equal(t, int64(1), spy.Count(sensor.ID, time.Date(2024, 6, 1, 11, 0, 0, 0, time.UTC), models.MethodHTTPPost))
}

func TestBatchedIncrement(t *testing.T) {
	spy := testutil.NewSpyStatistics(nil)
	agg := New(spy, slog.Default())
	sensor := &models.Sensor{ID: primitive.NewObjectID()}

	agg.MeasurementsStored(context.Background(), sensor, models.MethodWebSocket, 40)
	agg.MeasurementsStored(context.Background(), sensor, models.MethodWebSocket, 2)

	assert.Equal(t, int64(42), spy.Count(sensor.ID, time.Now(), models.MethodWebSocket))
}

func TestStatisticsFailureIsAbsorbed(t *testing.T) {
	registry := metric.NewRegistry()
	spy := testutil.NewSpyStatistics(nil)
	spy.Fail(fmt.Errorf("connection reset"))
	agg := New(spy, slog.Default(), WithMetrics(registry.CoreMetrics()))
	sensor := &models.Sensor{ID: primitive.NewObjectID()}

	// Must not panic and must not bubble the failure anywhere.
	agg.MeasurementStored(context.Background(), sensor, models.MethodMQTT)
	agg.MeasurementsStored(context.Background(), sensor, models.MethodMQTT, 3)

	assert.Empty(t, spy.Buckets())
	assert.Equal(t, 2.0, promtest.ToFloat64(registry.CoreMetrics().AggregationFailures))
}

func TestHandlerAttributesTransportMethod(t *testing.T) {
	spy := testutil.NewSpyStatistics(nil)
	agg := New(spy, slog.Default())
	sensor := &models.Sensor{ID: primitive.NewObjectID()}

	handler := agg.Handler(models.MethodMessageBroker)
	require.NoError(t, handler.OnMeasurementReceived(context.Background(), sensor, &models.Measurement{}))

	assert.Equal(t, int64(1), spy.Count(sensor.ID, time.Now(), models.MethodMessageBroker))
}
