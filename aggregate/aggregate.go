// Package aggregate maintains the hourly per-sensor statistics buckets as a
// best-effort side effect of measurement storage. A statistics failure is
// logged and counted but never surfaces to the ingestion path: losing a
// counter update is acceptable, losing a measurement is not.
package aggregate

import (
	"context"
	"log/slog"

	"github.com/c360/sensorstore/events"
	"github.com/c360/sensorstore/metric"
	"github.com/c360/sensorstore/models"
	"github.com/c360/sensorstore/storage"
)

// Aggregator records stored measurements into hourly statistics buckets.
type Aggregator struct {
	stats   storage.StatisticsStore
	logger  *slog.Logger
	metrics *metric.Metrics
}

// Option configures an Aggregator.
type Option func(*Aggregator)

// WithMetrics counts absorbed failures on the given metrics.
func WithMetrics(m *metric.Metrics) Option {
	return func(a *Aggregator) { a.metrics = m }
}

// New creates an Aggregator over the given statistics store.
func New(stats storage.StatisticsStore, logger *slog.Logger, opts ...Option) *Aggregator {
	if logger == nil {
		logger = slog.Default()
	}

	a := &Aggregator{
		stats:  stats,
		logger: logger,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// MeasurementStored bumps the sensor's bucket for the current hour by one.
// Failures are absorbed.
func (a *Aggregator) MeasurementStored(ctx context.Context, sensor *models.Sensor, method models.RequestMethod) {
	a.MeasurementsStored(ctx, sensor, method, 1)
}

// MeasurementsStored bumps the sensor's bucket for the current hour by count.
// Failures are absorbed.
func (a *Aggregator) MeasurementsStored(ctx context.Context, sensor *models.Sensor, method models.RequestMethod, count int64) {
	if err := a.stats.IncrementMany(ctx, sensor, method, count); err != nil {
		a.logger.WarnContext(ctx, "statistics update dropped",
			"sensor", sensor.ID.Hex(), "method", method, "count", count, "error", err)
		if a.metrics != nil {
			a.metrics.RecordAggregationFailure()
		}
	}
}

// Handler adapts the aggregator to the measurement event stream, attributing
// every received measurement to the given transport method.
func (a *Aggregator) Handler(method models.RequestMethod) events.Handler {
	return events.HandlerFunc(func(ctx context.Context, sensor *models.Sensor, _ *models.Measurement) error {
		a.MeasurementStored(ctx, sensor, method)
		return nil
	})
}
