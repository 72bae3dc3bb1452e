// Package events delivers measurement-received notifications to interested
// listeners: an in-process dispatcher for fan-out plus a NATS publisher for
// external consumers (real-time dashboards, alerting).
//
// Notification is strictly a side effect of a successful create. Handler
// failures are logged and absorbed; they never fail the measurement write
// they follow.
package events

import (
	"context"
	"log/slog"
	"sync"

	"github.com/c360/sensorstore/models"
)

// Handler receives a notification for every successfully stored measurement.
type Handler interface {
	OnMeasurementReceived(ctx context.Context, sensor *models.Sensor, m *models.Measurement) error
}

// HandlerFunc adapts a function to the Handler interface.
type HandlerFunc func(ctx context.Context, sensor *models.Sensor, m *models.Measurement) error

// OnMeasurementReceived implements Handler
func (f HandlerFunc) OnMeasurementReceived(ctx context.Context, sensor *models.Sensor, m *models.Measurement) error {
	return f(ctx, sensor, m)
}

// Dispatcher fans a notification out to every registered handler. It
// implements Handler itself so it can be handed to the store as a single
// listener. A failing handler is logged and skipped; the remaining handlers
// still run.
type Dispatcher struct {
	mu       sync.RWMutex
	handlers []Handler
	logger   *slog.Logger
}

// NewDispatcher creates an empty dispatcher.
func NewDispatcher(logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{logger: logger}
}

// Register adds a handler. Safe to call concurrently with dispatch.
func (d *Dispatcher) Register(h Handler) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.handlers = append(d.handlers, h)
}

// OnMeasurementReceived implements Handler
func (d *Dispatcher) OnMeasurementReceived(ctx context.Context, sensor *models.Sensor, m *models.Measurement) error {
	d.mu.RLock()
	handlers := make([]Handler, len(d.handlers))
	copy(handlers, d.handlers)
	d.mu.RUnlock()

	for _, h := range handlers {
		if err := h.OnMeasurementReceived(ctx, sensor, m); err != nil {
			d.logger.Warn("measurement handler failed",
				"sensor", sensor.ID.Hex(),
				"measurement", m.ID.Hex(),
				"error", err)
		}
	}
	return nil
}
