// internal/monitoring/health.go
package monitoring

import (
	"context"
	"encoding/json"
	"net/http"
	"sort"
	"sync"
	"time"
)

// HealthStatus represents the health status of a component
type HealthStatus string

const (
	HealthStatusHealthy   HealthStatus = "healthy"
	HealthStatusUnhealthy HealthStatus = "unhealthy"
	HealthStatusDegraded  HealthStatus = "degraded"
)

// CheckFunc returns nil when the component is healthy
type CheckFunc func(ctx context.Context) error

type healthCheck struct {
	name     string
	critical bool
	fn       CheckFunc
}

// CheckResult is the outcome of one check
type CheckResult struct {
	Status   HealthStatus  `json:"status"`
	Error    string        `json:"error,omitempty"`
	Critical bool          `json:"critical"`
	Duration time.Duration `json:"duration"`
}

// HealthReport is the aggregated state served by the health endpoint
type HealthReport struct {
	Status    HealthStatus           `json:"status"`
	Timestamp time.Time              `json:"timestamp"`
	Uptime    string                 `json:"uptime"`
	Version   string                 `json:"version,omitempty"`
	Checks    map[string]CheckResult `json:"checks,omitempty"`
}

// HealthChecker runs registered checks on demand. A failing critical check
// makes the whole report unhealthy; any other failure degrades it.
type HealthChecker struct {
	mu      sync.RWMutex
	checks  []healthCheck
	started time.Time
	version string
	timeout time.Duration
}

// NewHealthChecker creates a checker; each check gets timeout to finish
func NewHealthChecker(version string, timeout time.Duration) *HealthChecker {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &HealthChecker{started: time.Now(), version: version, timeout: timeout}
}

// Register adds a named check
func (hc *HealthChecker) Register(name string, critical bool, fn CheckFunc) {
	hc.mu.Lock()
	defer hc.mu.Unlock()
	hc.checks = append(hc.checks, healthCheck{name: name, critical: critical, fn: fn})
}

// Check runs every check concurrently
func (hc *HealthChecker) Check(ctx context.Context) HealthReport {
	hc.mu.RLock()
	checks := append([]healthCheck(nil), hc.checks...)
	hc.mu.RUnlock()

	report := HealthReport{
		Status:    HealthStatusHealthy,
		Timestamp: time.Now().UTC(),
		Uptime:    time.Since(hc.started).Round(time.Second).String(),
		Version:   hc.version,
		Checks:    make(map[string]CheckResult, len(checks)),
	}

	var (
		wg sync.WaitGroup
		mu sync.Mutex
	)
	for _, check := range checks {
		wg.Add(1)
		go func(check healthCheck) {
			defer wg.Done()
			result := hc.run(ctx, check)
			mu.Lock()
			report.Checks[check.name] = result
			mu.Unlock()
		}(check)
	}
	wg.Wait()

	names := make([]string, 0, len(report.Checks))
	for name := range report.Checks {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		result := report.Checks[name]
		if result.Status == HealthStatusHealthy {
			continue
		}
		if result.Critical {
			report.Status = HealthStatusUnhealthy
		} else if report.Status == HealthStatusHealthy {
			report.Status = HealthStatusDegraded
		}
	}
	return report
}

func (hc *HealthChecker) run(ctx context.Context, check healthCheck) CheckResult {
	ctx, cancel := context.WithTimeout(ctx, hc.timeout)
	defer cancel()

	start := time.Now()
	err := check.fn(ctx)
	result := CheckResult{
		Status:   HealthStatusHealthy,
		Critical: check.critical,
		Duration: time.Since(start),
	}
	if err != nil {
		result.Status = HealthStatusUnhealthy
		result.Error = err.Error()
	}
	return result
}

// Handler serves the report as JSON; unhealthy maps to 503
func (hc *HealthChecker) Handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		report := hc.Check(r.Context())

		w.Header().Set("Content-Type", "application/json")
		if report.Status == HealthStatusUnhealthy {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		json.NewEncoder(w).Encode(report)
	}
}
