// Package mongostore implements the storage contracts against MongoDB.
//
// Two collections are managed: "measurements", keyed by the time-ordered
// ObjectID so that ID range scans double as creation-time range scans, and
// "sensor_statistics", keyed by the same ID scheme but queried through the
// (sensorId, date, method) natural key.
//
// The statistics increment is a single UpdateOne with upsert, $inc and
// $setOnInsert: the document store's single-operation atomicity is what
// prevents lost updates under concurrent writers, so the application never
// reads, modifies, and writes a counter.
//
// Storage failures are wrapped with the affected collection and operation
// and are never retried here; retry policy belongs to the caller.
package mongostore
