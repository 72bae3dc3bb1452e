// Package sensorstore provides the measurement storage, caching, and
// aggregation core of a multi-tenant IoT telemetry platform.
//
// # Architecture
//
// The core is built from small, composable packages:
//
//	┌─────────────────────────────────────┐
//	│            Ingest                   │  NATS message-bus listener
//	│  (decode envelope, resolve sensor)  │  for inbound device traffic
//	└─────────────────────────────────────┘
//	           ↓ calls
//	┌─────────────────────────────────────┐
//	│       Cached Measurement Store      │  Cache-aside decorator over
//	│   (cachedstore over mongostore)     │  the document store
//	└─────────────────────────────────────┘
//	           ↓ persists via             ↓ mirrors into
//	┌───────────────────┐      ┌──────────────────────┐
//	│     MongoDB       │      │    Redis (cache)     │
//	│  measurements +   │      │  JSON snapshots with │
//	│ sensor_statistics │      │  shape-specific TTLs │
//	└───────────────────┘      └──────────────────────┘
//
// Every stored entity is keyed by a time-ordered identifier (pkg/objectid),
// so range scans by ID double as range scans by creation time. Hourly
// submission statistics are maintained with a single atomic upsert-increment
// per submission (storage/mongostore), which is the only place concurrent
// writers ever target the same mutable record.
//
// # Packages
//
// Core:
//   - storage: store interfaces and the typed query expression tree
//   - storage/mongostore: MongoDB measurement and statistics adapters
//   - storage/cachedstore: cache-aside decorator over a MeasurementStore
//   - cache: key/value cache strategy (Redis and in-memory)
//   - aggregate: best-effort hourly statistics coordinator
//   - pkg/objectid: monotonic, time-ordered identifier generation
//
// Infrastructure:
//   - events: measurement-received observer fan-out and NATS publisher
//   - ingest: NATS listener decoding inbound device envelopes
//   - metric: Prometheus metrics
//   - errors: classified error handling
//   - config: environment configuration
//
// # Consistency Contract
//
// The document store is the source of truth. The cache is a best-effort
// mirror: any entry may vanish at any time, and cache failures never fail
// the store operation they accompany. Statistics are derived telemetry and
// are likewise never allowed to fail the primary ingestion path.
package sensorstore
