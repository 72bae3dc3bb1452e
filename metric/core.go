package metric

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Cache outcome label values.
const (
	OutcomeHit   = "hit"
	OutcomeMiss  = "miss"
	OutcomeError = "error"
)

// Metrics contains all platform-level metrics (not deployment-specific)
type Metrics struct {
	// Ingestion metrics
	MeasurementsReceived *prometheus.CounterVec
	MeasurementsRejected *prometheus.CounterVec

	// Storage metrics
	StoreFailures *prometheus.CounterVec
	StoreDuration *prometheus.HistogramVec

	// Cache metrics
	CacheRequests *prometheus.CounterVec

	// Aggregation metrics
	AggregationFailures prometheus.Counter

	// Event metrics
	EventsPublished *prometheus.CounterVec

	// NATS metrics
	NATSConnected  prometheus.Gauge
	NATSReconnects prometheus.Counter
}

// NewMetrics creates a new Metrics instance with all platform metrics
func NewMetrics() *Metrics {
	return &Metrics{
		MeasurementsReceived: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "sensorstore",
				Subsystem: "measurements",
				Name:      "received_total",
				Help:      "Total number of measurements accepted for storage",
			},
			[]string{"transport"},
		),

		MeasurementsRejected: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "sensorstore",
				Subsystem: "measurements",
				Name:      "rejected_total",
				Help:      "Total number of measurements rejected before storage",
			},
			[]string{"transport", "reason"},
		),

		StoreFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "sensorstore",
				Subsystem: "store",
				Name:      "failures_total",
				Help:      "Total number of failed store operations",
			},
			[]string{"collection", "operation"},
		),

		StoreDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "sensorstore",
				Subsystem: "store",
				Name:      "duration_seconds",
				Help:      "Store operation duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"collection", "operation"},
		),

		CacheRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "sensorstore",
				Subsystem: "cache",
				Name:      "requests_total",
				Help:      "Total number of cache lookups by query shape and outcome",
			},
			[]string{"shape", "outcome"},
		),

		AggregationFailures: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "sensorstore",
				Subsystem: "aggregation",
				Name:      "failures_total",
				Help:      "Total number of statistics updates that failed and were absorbed",
			},
		),

		EventsPublished: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "sensorstore",
				Subsystem: "events",
				Name:      "published_total",
				Help:      "Total number of measurement events published",
			},
			[]string{"subject"},
		),

		NATSConnected: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "sensorstore",
				Subsystem: "nats",
				Name:      "connected",
				Help:      "NATS connection status (0=disconnected, 1=connected)",
			},
		),

		NATSReconnects: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "sensorstore",
				Subsystem: "nats",
				Name:      "reconnects_total",
				Help:      "Total number of NATS reconnections",
			},
		),
	}
}

// RecordMeasurementReceived increments the accepted-measurement counter
func (c *Metrics) RecordMeasurementReceived(transport string) {
	c.MeasurementsReceived.WithLabelValues(transport).Inc()
}

// RecordMeasurementRejected increments the rejected-measurement counter
func (c *Metrics) RecordMeasurementRejected(transport, reason string) {
	c.MeasurementsRejected.WithLabelValues(transport, reason).Inc()
}

// RecordStoreFailure increments the store failure counter
func (c *Metrics) RecordStoreFailure(collection, operation string) {
	c.StoreFailures.WithLabelValues(collection, operation).Inc()
}

// RecordStoreDuration records how long a store operation took
func (c *Metrics) RecordStoreDuration(collection, operation string, duration time.Duration) {
	c.StoreDuration.WithLabelValues(collection, operation).Observe(duration.Seconds())
}

// RecordCacheHit increments the cache request counter with a hit outcome
func (c *Metrics) RecordCacheHit(shape string) {
	c.CacheRequests.WithLabelValues(shape, OutcomeHit).Inc()
}

// RecordCacheMiss increments the cache request counter with a miss outcome
func (c *Metrics) RecordCacheMiss(shape string) {
	c.CacheRequests.WithLabelValues(shape, OutcomeMiss).Inc()
}

// RecordCacheError increments the cache request counter with an error outcome
func (c *Metrics) RecordCacheError(shape string) {
	c.CacheRequests.WithLabelValues(shape, OutcomeError).Inc()
}

// RecordAggregationFailure increments the absorbed-failure counter
func (c *Metrics) RecordAggregationFailure() {
	c.AggregationFailures.Inc()
}

// RecordEventPublished increments the published event counter
func (c *Metrics) RecordEventPublished(subject string) {
	c.EventsPublished.WithLabelValues(subject).Inc()
}

// RecordNATSStatus updates NATS connection status
func (c *Metrics) RecordNATSStatus(connected bool) {
	value := 0.0
	if connected {
		value = 1.0
	}
	c.NATSConnected.Set(value)
}

// RecordNATSReconnect increments reconnection counter
func (c *Metrics) RecordNATSReconnect() {
	c.NATSReconnects.Inc()
}
