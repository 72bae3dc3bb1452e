package metric

import (
	"io"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/sensorstore/errors"
)

func TestRegistryCoreMetricsGatherable(t *testing.T) {
	registry := NewRegistry()

	registry.CoreMetrics().RecordMeasurementReceived("mqtt")
	registry.CoreMetrics().RecordCacheHit("by_id")
	registry.CoreMetrics().RecordCacheMiss("by_id")
	registry.CoreMetrics().RecordAggregationFailure()

	families, err := registry.PrometheusRegistry().Gather()
	require.NoError(t, err)

	names := make(map[string]bool, len(families))
	for _, family := range families {
		names[family.GetName()] = true
	}
	assert.True(t, names["sensorstore_measurements_received_total"])
	assert.True(t, names["sensorstore_cache_requests_total"])
	assert.True(t, names["sensorstore_aggregation_failures_total"])
}

func TestRegistryCacheOutcomeCounts(t *testing.T) {
	registry := NewRegistry()
	core := registry.CoreMetrics()

	core.RecordCacheHit("by_id")
	core.RecordCacheHit("by_id")
	core.RecordCacheMiss("by_id")
	core.RecordCacheError("between")

	assert.Equal(t, 2.0, testutil.ToFloat64(core.CacheRequests.WithLabelValues("by_id", OutcomeHit)))
	assert.Equal(t, 1.0, testutil.ToFloat64(core.CacheRequests.WithLabelValues("by_id", OutcomeMiss)))
	assert.Equal(t, 1.0, testutil.ToFloat64(core.CacheRequests.WithLabelValues("between", OutcomeError)))
}

func TestRegistryRejectsDuplicateRegistration(t *testing.T) {
	registry := NewRegistry()

	counter := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "sensorstore",
		Name:      "ingest_test_total",
	})
	require.NoError(t, registry.Register("ingest", "test_total", counter))

	err := registry.Register("ingest", "test_total", counter)
	require.Error(t, err)
	assert.True(t, errors.IsInvalid(err))
}

func TestRegistryUnregister(t *testing.T) {
	registry := NewRegistry()

	counter := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "sensorstore",
		Name:      "ingest_test_total",
	})
	require.NoError(t, registry.Register("ingest", "test_total", counter))

	assert.True(t, registry.Unregister("ingest", "test_total"))
	assert.False(t, registry.Unregister("ingest", "test_total"), "second unregister finds nothing")

	// The name is free again.
	require.NoError(t, registry.Register("ingest", "test_total", counter))
}

func TestRegistryScrapeOutput(t *testing.T) {
	registry := NewRegistry()
	registry.CoreMetrics().RecordMeasurementRejected("http", "secret_mismatch")

	handler := promhttp.HandlerFor(registry.PrometheusRegistry(), promhttp.HandlerOpts{})
	server := httptest.NewServer(handler)
	defer server.Close()

	resp, err := server.Client().Get(server.URL)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	body := string(raw)
	assert.Contains(t, body, "sensorstore_measurements_rejected_total")
	assert.Contains(t, body, `reason="secret_mismatch"`)
	assert.Contains(t, body, "go_goroutines", "runtime collectors ride along")
}
