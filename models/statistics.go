package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// RequestMethod is the transport category that produced a measurement.
// It is set once, on first insert of a statistics bucket, and never changed.
type RequestMethod string

// Known request-method categories.
const (
	MethodAny           RequestMethod = "any"
	MethodHTTPPost      RequestMethod = "http_post"
	MethodHTTPPut       RequestMethod = "http_put"
	MethodWebSocket     RequestMethod = "websocket"
	MethodMQTT          RequestMethod = "mqtt"
	MethodMessageBroker RequestMethod = "message_broker"
)

// SensorStatisticsEntry is an hourly submission counter for one sensor and
// one request method. The (SensorID, Date, Method) tuple is the natural key:
// at most one entry exists per tuple, even though a surrogate ObjectID is
// kept as the primary key.
//
// Entries are created lazily on first increment, counted up atomically
// thereafter, and only ever deleted in bulk by sensor or by hour range.
type SensorStatisticsEntry struct {
	ID           primitive.ObjectID `bson:"_id" json:"id"`
	SensorID     primitive.ObjectID `bson:"sensorId" json:"sensorId"`
	Date         time.Time          `bson:"date" json:"date"`
	Method       RequestMethod      `bson:"method" json:"method"`
	Measurements int64              `bson:"measurements" json:"measurements"`
}
