package ingest

import (
	"context"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/c360/sensorstore/errors"
	"github.com/c360/sensorstore/metric"
)

// Broker defaults.
const (
	DefaultSubject = "sensorstore.measurements.raw"
	DefaultQueue   = "sensorstore-ingest"
)

// Connect dials the broker with reconnection handling wired to the logger
// and metrics. Reconnects are unbounded; the subscriber rides out broker
// restarts.
func Connect(url, clientName string, logger *slog.Logger, metrics *metric.Metrics) (*nats.Conn, error) {
	if logger == nil {
		logger = slog.Default()
	}

	opts := []nats.Option{
		nats.Name(clientName),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2 * time.Second),
		nats.PingInterval(30 * time.Second),
		nats.Timeout(5 * time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			logger.Warn("nats disconnected", "error", err)
			if metrics != nil {
				metrics.RecordNATSStatus(false)
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("nats reconnected", "url", nc.ConnectedUrl())
			if metrics != nil {
				metrics.RecordNATSStatus(true)
				metrics.RecordNATSReconnect()
			}
		}),
		nats.ClosedHandler(func(_ *nats.Conn) {
			logger.Info("nats connection closed")
			if metrics != nil {
				metrics.RecordNATSStatus(false)
			}
		}),
	}

	conn, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, errors.WrapStorage(err, "ingest", "Connect", "dial broker")
	}

	if metrics != nil {
		metrics.RecordNATSStatus(true)
	}
	return conn, nil
}

// Subscriber binds a Service to a broker subject.
type Subscriber struct {
	conn    *nats.Conn
	service *Service
	subject string
	queue   string
	logger  *slog.Logger

	sub *nats.Subscription
}

// SubscriberOption configures a Subscriber.
type SubscriberOption func(*Subscriber)

// WithSubject overrides the subscription subject.
func WithSubject(subject string) SubscriberOption {
	return func(s *Subscriber) { s.subject = subject }
}

// WithQueue overrides the queue group name.
func WithQueue(queue string) SubscriberOption {
	return func(s *Subscriber) { s.queue = queue }
}

// NewSubscriber creates a subscriber over an established connection.
func NewSubscriber(conn *nats.Conn, service *Service, logger *slog.Logger, opts ...SubscriberOption) *Subscriber {
	if logger == nil {
		logger = slog.Default()
	}

	s := &Subscriber{
		conn:    conn,
		service: service,
		subject: DefaultSubject,
		queue:   DefaultQueue,
		logger:  logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start subscribes as part of the queue group, so replicas share the
// subject. Message handling errors are terminal per message; they are already
// logged and counted by the service.
func (s *Subscriber) Start(ctx context.Context) error {
	sub, err := s.conn.QueueSubscribe(s.subject, s.queue, func(msg *nats.Msg) {
		if _, err := s.service.Process(ctx, msg.Data); err != nil {
			// Already logged with its reason; nothing to redeliver.
			return
		}
	})
	if err != nil {
		return errors.WrapStorage(err, "ingest", "Start", "subscribe")
	}

	s.sub = sub
	s.logger.Info("ingestion subscribed", "subject", s.subject, "queue", s.queue)
	return nil
}

// Stop drains the subscription so in-flight messages finish before shutdown.
func (s *Subscriber) Stop() error {
	if s.sub == nil {
		return nil
	}
	if err := s.sub.Drain(); err != nil {
		return errors.WrapStorage(err, "ingest", "Stop", "drain subscription")
	}
	s.sub = nil
	return nil
}
