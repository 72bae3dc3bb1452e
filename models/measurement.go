package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// DataPoint is a single named-channel reading within a measurement.
type DataPoint struct {
	Name  string  `bson:"name" json:"name"`
	Value float64 `bson:"value" json:"value"`
	Unit  string  `bson:"unit,omitempty" json:"unit,omitempty"`
}

// Measurement is a time-stamped sensor reading. Measurements are created once
// and are immutable thereafter, except for coordinate/data amendment through
// the store's explicit update path.
//
// Latitude/Longitude of 0.0/0.0 mean "absent": the platform treats the null
// island sentinel as no coordinates, matching the partial-update contract.
type Measurement struct {
	ID        primitive.ObjectID `bson:"_id" json:"id"`
	SensorID  primitive.ObjectID `bson:"sensorId" json:"sensorId"`
	CreatedAt time.Time          `bson:"createdAt" json:"createdAt"`
	Latitude  float64            `bson:"latitude,omitempty" json:"latitude,omitempty"`
	Longitude float64            `bson:"longitude,omitempty" json:"longitude,omitempty"`
	Data      []DataPoint        `bson:"data" json:"data"`

	// Location is the GeoJSON mirror of Latitude/Longitude, maintained by
	// the store so proximity queries can use a 2dsphere index. It is not
	// part of the public document shape.
	Location *GeoJSONPoint `bson:"location,omitempty" json:"-"`
}

// HasCoordinates reports whether the measurement carries a real location.
func (m *Measurement) HasCoordinates() bool {
	return m.Latitude != 0.0 || m.Longitude != 0.0
}

// MeasurementsQueryResult is the flattened per-sensor row returned by the
// fan-out range and proximity queries. It mirrors Measurement but is kept
// separate so multi-sensor dashboard queries can evolve independently of the
// stored document shape.
type MeasurementsQueryResult struct {
	ID        primitive.ObjectID `bson:"_id" json:"id"`
	SensorID  primitive.ObjectID `bson:"sensorId" json:"sensorId"`
	CreatedAt time.Time          `bson:"createdAt" json:"createdAt"`
	Latitude  float64            `bson:"latitude,omitempty" json:"latitude,omitempty"`
	Longitude float64            `bson:"longitude,omitempty" json:"longitude,omitempty"`
	Data      []DataPoint        `bson:"data" json:"data"`
}

// OrderDirection selects the sort order of time-range query results.
type OrderDirection int

// Supported orderings. OrderNone returns results in store order.
const (
	OrderNone OrderDirection = iota
	OrderAscending
	OrderDescending
)

// String returns the string representation of OrderDirection
func (o OrderDirection) String() string {
	switch o {
	case OrderAscending:
		return "ascending"
	case OrderDescending:
		return "descending"
	default:
		return "none"
	}
}

// GeoCoordinates is a longitude/latitude pair used by proximity queries.
type GeoCoordinates struct {
	Longitude float64 `json:"longitude"`
	Latitude  float64 `json:"latitude"`
}
