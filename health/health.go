// Package health aggregates liveness checks over the service's backends
// (MongoDB, the cache, the broker) and serves them as a JSON endpoint.
package health

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"
)

// Health states, ordered by severity.
const (
	StatusHealthy   = "healthy"
	StatusDegraded  = "degraded"
	StatusUnhealthy = "unhealthy"
)

// Status is the reported state of one component or of the whole service.
type Status struct {
	Component   string    `json:"component"`
	Healthy     bool      `json:"healthy"`
	Status      string    `json:"status"`
	Message     string    `json:"message,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
	SubStatuses []Status  `json:"sub_statuses,omitempty"`
}

// Healthy builds a healthy status for a component.
func Healthy(component string) Status {
	return Status{
		Component: component,
		Healthy:   true,
		Status:    StatusHealthy,
		Timestamp: time.Now().UTC(),
	}
}

// Degraded builds a degraded status: the component works but not at full
// capability (a missing cache, for instance).
func Degraded(component, message string) Status {
	return Status{
		Component: component,
		Healthy:   false,
		Status:    StatusDegraded,
		Message:   message,
		Timestamp: time.Now().UTC(),
	}
}

// Unhealthy builds an unhealthy status.
func Unhealthy(component, message string) Status {
	return Status{
		Component: component,
		Healthy:   false,
		Status:    StatusUnhealthy,
		Message:   message,
		Timestamp: time.Now().UTC(),
	}
}

// Checker reports the state of one backend.
type Checker interface {
	Name() string
	Check(ctx context.Context) Status
}

// CheckerFunc adapts a named function to the Checker interface.
type CheckerFunc struct {
	ComponentName string
	Fn            func(ctx context.Context) Status
}

// Name implements Checker
func (c CheckerFunc) Name() string { return c.ComponentName }

// Check implements Checker
func (c CheckerFunc) Check(ctx context.Context) Status { return c.Fn(ctx) }

// Monitor aggregates checkers into a single service status.
type Monitor struct {
	mu       sync.RWMutex
	checkers []Checker
	logger   *slog.Logger
	timeout  time.Duration
}

// NewMonitor creates an empty monitor. Each check runs with the given
// per-check timeout; zero means 2 seconds.
func NewMonitor(logger *slog.Logger, timeout time.Duration) *Monitor {
	if logger == nil {
		logger = slog.Default()
	}
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return &Monitor{logger: logger, timeout: timeout}
}

// Register adds a checker. Safe to call concurrently with Overall.
func (m *Monitor) Register(c Checker) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.checkers = append(m.checkers, c)
}

// Overall runs every checker and folds the results: any unhealthy backend
// makes the service unhealthy, any degraded one makes it degraded.
func (m *Monitor) Overall(ctx context.Context) Status {
	m.mu.RLock()
	checkers := make([]Checker, len(m.checkers))
	copy(checkers, m.checkers)
	m.mu.RUnlock()

	overall := Healthy("sensorstore")
	for _, c := range checkers {
		checkCtx, cancel := context.WithTimeout(ctx, m.timeout)
		status := c.Check(checkCtx)
		cancel()

		overall.SubStatuses = append(overall.SubStatuses, status)
		switch status.Status {
		case StatusUnhealthy:
			overall.Healthy = false
			overall.Status = StatusUnhealthy
			m.logger.Warn("backend unhealthy", "component", c.Name(), "message", status.Message)
		case StatusDegraded:
			if overall.Status != StatusUnhealthy {
				overall.Healthy = false
				overall.Status = StatusDegraded
			}
		}
	}
	return overall
}

// Handler serves the aggregated status as JSON: 200 while healthy or
// degraded, 503 once any backend is unhealthy.
func (m *Monitor) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		status := m.Overall(r.Context())

		code := http.StatusOK
		if status.Status == StatusUnhealthy {
			code = http.StatusServiceUnavailable
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)
		if err := json.NewEncoder(w).Encode(status); err != nil {
			m.logger.Warn("health response write failed", "error", err)
		}
	})
}
