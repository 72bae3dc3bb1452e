package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"

	"github.com/c360/sensorstore/errors"
	"github.com/c360/sensorstore/models"
)

// SubjectPrefix is the root of the notification subject hierarchy. The full
// subject is "<prefix>.<sensor-id-hex>", so consumers can subscribe per
// sensor or wildcard across the fleet.
const SubjectPrefix = "sensorstore.measurements.received"

// Envelope is the JSON notification published for each stored measurement.
type Envelope struct {
	EventID     string              `json:"eventId"`
	Type        string              `json:"type"`
	SensorID    string              `json:"sensorId"`
	Measurement *models.Measurement `json:"measurement"`
	PublishedAt time.Time           `json:"publishedAt"`
}

// NATSPublisher publishes measurement-received envelopes to NATS. It
// implements Handler and is registered on the dispatcher at wiring time.
type NATSPublisher struct {
	conn *nats.Conn
}

// NewNATSPublisher wraps an existing NATS connection.
func NewNATSPublisher(conn *nats.Conn) *NATSPublisher {
	return &NATSPublisher{conn: conn}
}

// OnMeasurementReceived implements Handler
func (p *NATSPublisher) OnMeasurementReceived(_ context.Context, sensor *models.Sensor, m *models.Measurement) error {
	envelope := Envelope{
		EventID:     uuid.NewString(),
		Type:        "measurement.received",
		SensorID:    sensor.ID.Hex(),
		Measurement: m,
		PublishedAt: time.Now().UTC(),
	}

	payload, err := json.Marshal(envelope)
	if err != nil {
		return errors.Wrap(err, "events", "OnMeasurementReceived", "marshal envelope")
	}

	subject := fmt.Sprintf("%s.%s", SubjectPrefix, sensor.ID.Hex())
	if err := p.conn.Publish(subject, payload); err != nil {
		return errors.Wrap(err, "events", "OnMeasurementReceived", "publish envelope")
	}
	return nil
}
