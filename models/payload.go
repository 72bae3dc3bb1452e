package models

import (
	"bytes"
	"encoding/json"
	"time"

	"github.com/c360/sensorstore/errors"
)

// RawMeasurement is the loosely-typed inbound submission document. Devices in
// the field are not uniform, so the decoder tolerates the common field
// aliases (lat/lon, secret) alongside the canonical names.
type RawMeasurement struct {
	Latitude  float64
	Longitude float64
	CreatedAt time.Time
	Secret    string
	Data      json.RawMessage
}

// rawEnvelope carries every accepted spelling of the inbound fields.
type rawEnvelope struct {
	Latitude   float64         `json:"latitude"`
	Lat        float64         `json:"lat"`
	Longitude  float64         `json:"longitude"`
	Lon        float64         `json:"lon"`
	CreatedAt  *rawTimestamp   `json:"createdAt"`
	Timestamp  *rawTimestamp   `json:"timestamp"`
	Secret     string          `json:"secret"`
	AltSecret  string          `json:"createdBySecret"`
	Data       json.RawMessage `json:"data"`
}

// rawTimestamp accepts either an RFC3339 string or Unix milliseconds.
type rawTimestamp struct {
	t time.Time
}

// UnmarshalJSON implements json.Unmarshaler
func (rt *rawTimestamp) UnmarshalJSON(b []byte) error {
	if len(b) == 0 || string(b) == "null" {
		return nil
	}

	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		parsed, err := time.Parse(time.RFC3339, s)
		if err != nil {
			return err
		}
		rt.t = parsed
		return nil
	}

	var ms int64
	if err := json.Unmarshal(b, &ms); err != nil {
		return err
	}
	rt.t = time.UnixMilli(ms).UTC()
	return nil
}

// ParseRawMeasurement decodes an inbound payload. A document that cannot be
// decoded at all is a malformed-payload error; field-level validation
// (secret, datapoints) is left to the store's create path.
func ParseRawMeasurement(payload []byte) (*RawMeasurement, error) {
	var env rawEnvelope

	if err := json.Unmarshal(payload, &env); err != nil {
		return nil, errors.WrapInvalid(errors.ErrMalformedPayload, "measurements", "ParseRawMeasurement", "decode payload")
	}

	raw := &RawMeasurement{
		Latitude:  env.Latitude,
		Longitude: env.Longitude,
		Secret:    env.Secret,
		Data:      env.Data,
	}

	if raw.Latitude == 0.0 {
		raw.Latitude = env.Lat
	}
	if raw.Longitude == 0.0 {
		raw.Longitude = env.Lon
	}
	if raw.Secret == "" {
		raw.Secret = env.AltSecret
	}

	switch {
	case env.CreatedAt != nil:
		raw.CreatedAt = env.CreatedAt.t
	case env.Timestamp != nil:
		raw.CreatedAt = env.Timestamp.t
	}

	return raw, nil
}

// CreatedAtOrDefault returns the submitted creation time, or now when the
// payload carried none or an implausible one (before the Unix epoch).
func (r *RawMeasurement) CreatedAtOrDefault(now time.Time) time.Time {
	if r.CreatedAt.IsZero() || r.CreatedAt.Before(time.Unix(0, 0)) {
		return now
	}
	return r.CreatedAt
}

// datapointObject is the expanded per-channel form: {"value": 21.5, "unit": "C"}.
type datapointObject struct {
	Value *float64 `json:"value"`
	Unit  string   `json:"unit"`
}

// ParseDataPoints converts the loosely-typed data block into the ordered
// channel/value mapping. Two shapes are accepted:
//
//	{"temperature": 21.5, "humidity": {"value": 40, "unit": "%"}}
//	[{"name": "temperature", "value": 21.5}]
//
// Object keys keep their payload order. Anything else fails with a
// malformed-payload error.
func ParseDataPoints(data json.RawMessage) ([]DataPoint, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, errors.WrapInvalid(errors.ErrMalformedPayload, "measurements", "ParseDataPoints", "empty data block")
	}

	if trimmed[0] == '[' {
		return parseDataPointList(trimmed)
	}
	if trimmed[0] == '{' {
		return parseDataPointMap(trimmed)
	}

	return nil, errors.WrapInvalid(errors.ErrMalformedPayload, "measurements", "ParseDataPoints", "unexpected data block shape")
}

func parseDataPointList(data []byte) ([]DataPoint, error) {
	var points []DataPoint

	if err := json.Unmarshal(data, &points); err != nil {
		return nil, errors.WrapInvalid(errors.ErrMalformedPayload, "measurements", "ParseDataPoints", "decode datapoint list")
	}

	for _, p := range points {
		if p.Name == "" {
			return nil, errors.WrapInvalid(errors.ErrMalformedPayload, "measurements", "ParseDataPoints", "datapoint without a name")
		}
	}

	return points, nil
}

// parseDataPointMap walks the object token by token so that channel order is
// preserved; a plain map[string]... decode would lose it.
func parseDataPointMap(data []byte) ([]DataPoint, error) {
	dec := json.NewDecoder(bytes.NewReader(data))

	if _, err := dec.Token(); err != nil { // opening brace
		return nil, errors.WrapInvalid(errors.ErrMalformedPayload, "measurements", "ParseDataPoints", "decode data block")
	}

	var points []DataPoint
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, errors.WrapInvalid(errors.ErrMalformedPayload, "measurements", "ParseDataPoints", "decode channel name")
		}
		name, ok := keyTok.(string)
		if !ok || name == "" {
			return nil, errors.WrapInvalid(errors.ErrMalformedPayload, "measurements", "ParseDataPoints", "channel name is not a string")
		}

		var value json.RawMessage
		if err := dec.Decode(&value); err != nil {
			return nil, errors.WrapInvalid(errors.ErrMalformedPayload, "measurements", "ParseDataPoints", "decode channel value")
		}

		point, err := convertChannelValue(name, value)
		if err != nil {
			return nil, err
		}
		points = append(points, point)
	}

	if len(points) == 0 {
		return nil, errors.WrapInvalid(errors.ErrMalformedPayload, "measurements", "ParseDataPoints", "empty data block")
	}

	return points, nil
}

func convertChannelValue(name string, value json.RawMessage) (DataPoint, error) {
	trimmed := bytes.TrimSpace(value)
	if len(trimmed) == 0 {
		return DataPoint{}, errors.WrapInvalid(errors.ErrMalformedPayload, "measurements", "ParseDataPoints", "empty channel value")
	}

	if trimmed[0] == '{' {
		var obj datapointObject
		if err := json.Unmarshal(trimmed, &obj); err != nil || obj.Value == nil {
			return DataPoint{}, errors.WrapInvalid(errors.ErrMalformedPayload, "measurements", "ParseDataPoints", "decode channel object")
		}
		return DataPoint{Name: name, Value: *obj.Value, Unit: obj.Unit}, nil
	}

	var num float64
	if err := json.Unmarshal(trimmed, &num); err != nil {
		return DataPoint{}, errors.WrapInvalid(errors.ErrMalformedPayload, "measurements", "ParseDataPoints", "channel value is not numeric")
	}

	return DataPoint{Name: name, Value: num}, nil
}
