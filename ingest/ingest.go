// Package ingest consumes raw device submissions from the message broker and
// drives them through the measurement store. Each message names its sensor,
// which is resolved and authenticated before storage; invalid submissions are
// counted and dropped, never retried. Storage failures are logged and the
// message is dropped as well - delivery here is at-most-once.
package ingest

import (
	"context"
	"encoding/json"
	"log/slog"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/c360/sensorstore/aggregate"
	"github.com/c360/sensorstore/errors"
	"github.com/c360/sensorstore/metric"
	"github.com/c360/sensorstore/models"
	"github.com/c360/sensorstore/storage"
)

// SensorResolver looks up the owning sensor for a device-supplied ID.
type SensorResolver interface {
	Resolve(ctx context.Context, id primitive.ObjectID) (*models.Sensor, error)
}

// SensorResolverFunc adapts a function to the SensorResolver interface.
type SensorResolverFunc func(ctx context.Context, id primitive.ObjectID) (*models.Sensor, error)

// Resolve implements SensorResolver
func (f SensorResolverFunc) Resolve(ctx context.Context, id primitive.ObjectID) (*models.Sensor, error) {
	return f(ctx, id)
}

// sensorRef extracts the sensor reference from an inbound document. Both the
// canonical name and the legacy spelling are accepted.
type sensorRef struct {
	SensorID  string `json:"sensorId"`
	CreatedBy string `json:"createdById"`
}

func (r sensorRef) hex() string {
	if r.SensorID != "" {
		return r.SensorID
	}
	return r.CreatedBy
}

// Service processes raw measurement submissions.
type Service struct {
	store    storage.MeasurementStore
	resolver SensorResolver
	agg      *aggregate.Aggregator
	method   models.RequestMethod
	logger   *slog.Logger
	metrics  *metric.Metrics
}

// Option configures a Service.
type Option func(*Service)

// WithMetrics records ingestion outcomes on the given metrics.
func WithMetrics(m *metric.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithMethod sets the transport method attributed to stored measurements.
// Defaults to the message broker method.
func WithMethod(method models.RequestMethod) Option {
	return func(s *Service) { s.method = method }
}

// New creates an ingestion service. The aggregator may be nil, in which case
// no statistics are kept.
func New(store storage.MeasurementStore, resolver SensorResolver, agg *aggregate.Aggregator, logger *slog.Logger, opts ...Option) *Service {
	if logger == nil {
		logger = slog.Default()
	}

	s := &Service{
		store:    store,
		resolver: resolver,
		agg:      agg,
		method:   models.MethodMessageBroker,
		logger:   logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Process drives one raw submission through resolution, storage, and
// statistics. The returned error reports what happened to the message; every
// outcome is terminal, the caller never redelivers.
func (s *Service) Process(ctx context.Context, payload []byte) (*models.Measurement, error) {
	var ref sensorRef
	if err := json.Unmarshal(payload, &ref); err != nil {
		return nil, s.reject(ctx, "malformed_document",
			errors.WrapInvalid(errors.ErrMalformedPayload, "ingest", "Process", "decode submission"))
	}
	if ref.hex() == "" {
		return nil, s.reject(ctx, "missing_sensor",
			errors.WrapInvalid(errors.ErrMissingSensor, "ingest", "Process", "submission names no sensor"))
	}

	sensorID, err := primitive.ObjectIDFromHex(ref.hex())
	if err != nil {
		return nil, s.reject(ctx, "invalid_sensor_id",
			errors.WrapInvalid(errors.ErrInvalidID, "ingest", "Process", "parse sensor reference"))
	}

	sensor, err := s.resolver.Resolve(ctx, sensorID)
	if err != nil {
		return nil, s.reject(ctx, "unknown_sensor", err)
	}

	m, err := s.store.Receive(ctx, sensor, payload)
	if err != nil {
		if errors.IsInvalid(err) {
			return nil, s.reject(ctx, rejectionReason(err), err)
		}

		s.logger.ErrorContext(ctx, "measurement write failed",
			"sensor", sensor.ID.Hex(), "error", err)
		if s.metrics != nil {
			s.metrics.RecordStoreFailure("measurements", "Receive")
		}
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.RecordMeasurementReceived(string(s.method))
	}
	if s.agg != nil {
		s.agg.MeasurementStored(ctx, sensor, s.method)
	}
	return m, nil
}

func (s *Service) reject(ctx context.Context, reason string, err error) error {
	s.logger.WarnContext(ctx, "submission dropped", "reason", reason, "error", err)
	if s.metrics != nil {
		s.metrics.RecordMeasurementRejected(string(s.method), reason)
	}
	return err
}

// rejectionReason maps a classified invalid error to its metric label.
func rejectionReason(err error) string {
	switch {
	case errors.Is(err, errors.ErrSecretMismatch):
		return "secret_mismatch"
	case errors.Is(err, errors.ErrMalformedPayload):
		return "malformed_payload"
	case errors.Is(err, errors.ErrMissingSensor):
		return "missing_sensor"
	default:
		return "invalid"
	}
}
