// Package errors provides standardized error handling patterns for sensorstore.
//
// # Overview
//
// The package implements a four-class error taxonomy matched to the platform's
// consistency contracts:
//
//   - Invalid: client-caused (credential mismatch, malformed payload); never retried
//   - Storage: durable-store failures; fatal to the operation, retry is the caller's call
//   - Caching: cache backend or serialization failures; never fatal, always absorbed
//   - Aggregation: statistics upsert failures; best-effort, never rolls back ingestion
//
// The classification integrates with Go's standard error handling, supporting
// errors.Is(), errors.As(), and wrapping chains.
//
// # Error Wrapping Pattern
//
// All error wrapping follows the standardized format:
//
//	"collection.operation: action failed: %w"
//
// Four wrapper functions provide classification-aware wrapping:
//
//	errors.WrapInvalid(err, "measurements", "Receive", "secret validation")
//	errors.WrapStorage(err, "measurements", "GetByID", "find")
//	errors.WrapCaching(err, "cache", "Set", "serialize measurement")
//	errors.WrapAggregation(err, "sensor_statistics", "Increment", "upsert")
//
// Check classification before deciding how to react:
//
//	if err := store.Receive(ctx, sensor, raw); err != nil {
//	    if errors.IsInvalid(err) {
//	        // Reject the submission; do not retry.
//	    } else if errors.IsStorage(err) {
//	        // Surface to the caller; retry policy is theirs.
//	    }
//	}
//
// # Thread Safety
//
// All classification and wrapping operations are thread-safe. Error variables
// are immutable and safe for concurrent access.
package errors
