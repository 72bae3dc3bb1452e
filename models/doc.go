// Package models defines the persisted entities of the measurement core:
// measurements, sensors, and hourly sensor statistics, together with the
// loosely-typed inbound payload they are parsed from.
//
// All entities are keyed by a time-ordered ObjectID so that insertion order,
// ID order, and creation-time order coincide. Struct tags target both BSON
// (document store) and JSON (cache snapshots, event envelopes).
package models
