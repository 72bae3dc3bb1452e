// Package metric provides the Prometheus instrumentation for the platform:
// ingestion counters, store failure and latency metrics, cache hit/miss
// outcomes, aggregation failure counts, and NATS connection state, all under
// the sensorstore namespace on a private registry exposed over HTTP.
package metric
