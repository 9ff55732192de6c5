package observability

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
)

const (
	StatusHealthy   = "healthy"
	StatusDegraded  = "degraded"
	StatusUnhealthy = "unhealthy"
)

const readinessTimeout = 5 * time.Second

// CheckFunc probes one dependency. Any error marks it unhealthy; a
// returned StatusDegraded with a nil error marks it degraded.
type CheckFunc func(ctx context.Context) (DependencyStatus, error)

type namedCheck struct {
	name     string
	required bool
	check    CheckFunc
}

// HealthChecker runs readiness checks against registered dependencies.
// A failing required dependency fails readiness; a failing optional one
// only degrades it.
type HealthChecker struct {
	version string
	now     func() time.Time

	mu     sync.RWMutex
	checks []namedCheck
}

// HealthStatus is the readiness response body
type HealthStatus struct {
	Status       string                      `json:"status"`
	Timestamp    time.Time                   `json:"timestamp"`
	Version      string                      `json:"version,omitempty"`
	Dependencies map[string]DependencyStatus `json:"dependencies,omitempty"`
}

// DependencyStatus is the outcome of one dependency check
type DependencyStatus struct {
	Status    string        `json:"status"`
	Message   string        `json:"message,omitempty"`
	Latency   time.Duration `json:"latency_ms,omitempty"`
	Timestamp time.Time     `json:"timestamp"`
}

// NewHealthChecker creates a checker with no dependencies registered
func NewHealthChecker(version string) *HealthChecker {
	return &HealthChecker{version: version, now: time.Now}
}

// Require registers a dependency that must be healthy for readiness
func (h *HealthChecker) Require(name string, check CheckFunc) *HealthChecker {
	return h.add(name, true, check)
}

// Optional registers a dependency whose failure degrades readiness
func (h *HealthChecker) Optional(name string, check CheckFunc) *HealthChecker {
	return h.add(name, false, check)
}

func (h *HealthChecker) add(name string, required bool, check CheckFunc) *HealthChecker {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.checks = append(h.checks, namedCheck{name: name, required: required, check: check})
	return h
}

// Check runs every registered check and folds the results
func (h *HealthChecker) Check(ctx context.Context) HealthStatus {
	h.mu.RLock()
	checks := append([]namedCheck(nil), h.checks...)
	h.mu.RUnlock()

	status := HealthStatus{
		Status:       StatusHealthy,
		Timestamp:    h.now(),
		Version:      h.version,
		Dependencies: make(map[string]DependencyStatus, len(checks)),
	}

	for _, c := range checks {
		start := h.now()
		dep, err := c.check(ctx)
		dep.Latency = time.Since(start)
		dep.Timestamp = start
		if dep.Status == "" {
			dep.Status = StatusHealthy
		}
		if err != nil {
			dep.Status = StatusUnhealthy
			if dep.Message != "" {
				dep.Message += ": " + err.Error()
			} else {
				dep.Message = err.Error()
			}
		}
		status.Dependencies[c.name] = dep

		switch {
		case dep.Status == StatusUnhealthy && c.required:
			status.Status = StatusUnhealthy
		case dep.Status != StatusHealthy && status.Status == StatusHealthy:
			status.Status = StatusDegraded
		}
	}

	return status
}

// Liveness always answers 200 while the process is serving
func (h *HealthChecker) Liveness(w http.ResponseWriter, r *http.Request) {
	writeHealth(w, http.StatusOK, map[string]interface{}{
		"status":    StatusHealthy,
		"timestamp": h.now(),
	})
}

// Readiness answers 503 only when a required dependency is unhealthy
func (h *HealthChecker) Readiness(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
	defer cancel()

	status := h.Check(ctx)
	code := http.StatusOK
	if status.Status == StatusUnhealthy {
		code = http.StatusServiceUnavailable
	}
	writeHealth(w, code, status)
}

func writeHealth(w http.ResponseWriter, code int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(body)
}

// DatabaseCheck pings db and verifies the schema has been migrated.
// An exhausted pool reports degraded.
func DatabaseCheck(db *sql.DB) CheckFunc {
	return func(ctx context.Context) (DependencyStatus, error) {
		if err := db.PingContext(ctx); err != nil {
			return DependencyStatus{}, err
		}

		var count int
		if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM subscription_tiers WHERE 1 = 0").Scan(&count); err != nil {
			return DependencyStatus{Message: "schema check failed"}, err
		}

		stats := db.Stats()
		if stats.MaxOpenConnections > 0 && stats.OpenConnections >= stats.MaxOpenConnections {
			return DependencyStatus{Status: StatusDegraded, Message: "connection pool exhausted"}, nil
		}
		return DependencyStatus{}, nil
	}
}

// RedisCheck pings the Redis client
func RedisCheck(client *redis.Client) CheckFunc {
	return func(ctx context.Context) (DependencyStatus, error) {
		return DependencyStatus{}, client.Ping(ctx).Err()
	}
}

// RegisterHealthRoutes registers health check endpoints
func RegisterHealthRoutes(mux *http.ServeMux, checker *HealthChecker) {
	mux.HandleFunc("/health", checker.Readiness)
	mux.HandleFunc("/health/live", checker.Liveness)
	mux.HandleFunc("/health/ready", checker.Readiness)
}
