package health

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedChecker(name string, status Status) Checker {
	return CheckerFunc{
		ComponentName: name,
		Fn:            func(context.Context) Status { return status },
	}
}

func TestOverallAllHealthy(t *testing.T) {
	m := NewMonitor(slog.Default(), 0)
	m.Register(fixedChecker("mongodb", Healthy("mongodb")))
	m.Register(fixedChecker("nats", Healthy("nats")))

	overall := m.Overall(context.Background())
	assert.True(t, overall.Healthy)
	assert.Equal(t, StatusHealthy, overall.Status)
	assert.Len(t, overall.SubStatuses, 2)
}

func TestOverallDegradedWins(t *testing.T) {
	m := NewMonitor(slog.Default(), 0)
	m.Register(fixedChecker("mongodb", Healthy("mongodb")))
	m.Register(fixedChecker("cache", Degraded("cache", "redis unreachable")))

	overall := m.Overall(context.Background())
	assert.False(t, overall.Healthy)
	assert.Equal(t, StatusDegraded, overall.Status)
}

func TestOverallUnhealthyDominatesDegraded(t *testing.T) {
	m := NewMonitor(slog.Default(), 0)
	m.Register(fixedChecker("cache", Degraded("cache", "redis unreachable")))
	m.Register(fixedChecker("mongodb", Unhealthy("mongodb", "connection refused")))
	m.Register(fixedChecker("nats", Healthy("nats")))

	overall := m.Overall(context.Background())
	assert.Equal(t, StatusUnhealthy, overall.Status)
}

func TestEmptyMonitorIsHealthy(t *testing.T) {
	m := NewMonitor(slog.Default(), 0)
	assert.Equal(t, StatusHealthy, m.Overall(context.Background()).Status)
}

func TestHandlerStatusCodes(t *testing.T) {
	tests := []struct {
		name     string
		status   Status
		wantCode int
	}{
		{"healthy serves 200", Healthy("mongodb"), 200},
		{"degraded still serves 200", Degraded("cache", "redis down"), 200},
		{"unhealthy serves 503", Unhealthy("mongodb", "down"), 503},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewMonitor(slog.Default(), 0)
			m.Register(fixedChecker(tt.status.Component, tt.status))

			rec := httptest.NewRecorder()
			m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/healthz", nil))

			assert.Equal(t, tt.wantCode, rec.Code)

			var body Status
			require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
			assert.Equal(t, "sensorstore", body.Component)
			require.Len(t, body.SubStatuses, 1)
			assert.Equal(t, tt.status.Status, body.SubStatuses[0].Status)
		})
	}
}
