package handlers

import (
	"context"
	"strings"
	"sync"
	"time"
)

// HealthChecker reports the aggregated status of the content server's
// backends.
type HealthChecker interface {
	Check(ctx context.Context) HealthStatus
}

// HealthCheckFunc probes one backend. A nil error means healthy.
type HealthCheckFunc func(ctx context.Context) error

// HealthStatus is the body of /health.
type HealthStatus struct {
	Healthy   bool                   `json:"healthy"`
	Ready     bool                   `json:"ready"`
	Message   string                 `json:"message,omitempty"`
	Checks    map[string]CheckResult `json:"checks,omitempty"`
	Uptime    string                 `json:"uptime,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
	Version   string                 `json:"version,omitempty"`
}

// CheckResult is the outcome of one named check.
type CheckResult struct {
	Healthy  bool   `json:"healthy"`
	Message  string `json:"message,omitempty"`
	Duration string `json:"duration,omitempty"`
}

// DefaultCheckTimeout bounds a single probe.
const DefaultCheckTimeout = 5 * time.Second

type namedCheck struct {
	name string
	fn   HealthCheckFunc
}

// CompositeHealthChecker runs its checks in parallel, each under
// DefaultCheckTimeout. Checks are reported in registration order.
type CompositeHealthChecker struct {
	mu      sync.RWMutex
	checks  []namedCheck
	started time.Time
	version string
}

func NewCompositeHealthChecker(version string) *CompositeHealthChecker {
	return &CompositeHealthChecker{started: time.Now(), version: version}
}

// AddCheck registers a check; a second registration under the same name
// replaces the first.
func (c *CompositeHealthChecker) AddCheck(name string, fn HealthCheckFunc) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := range c.checks {
		if c.checks[i].name == name {
			c.checks[i].fn = fn
			return
		}
	}
	c.checks = append(c.checks, namedCheck{name: name, fn: fn})
}

// Check runs every probe. A single failure marks the server unhealthy and
// not ready; with nothing registered the server is healthy.
func (c *CompositeHealthChecker) Check(ctx context.Context) HealthStatus {
	c.mu.RLock()
	checks := append([]namedCheck(nil), c.checks...)
	c.mu.RUnlock()

	results := make([]CheckResult, len(checks))
	var wg sync.WaitGroup
	for i, nc := range checks {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i] = probe(ctx, nc.fn)
		}()
	}
	wg.Wait()

	status := HealthStatus{
		Healthy:   true,
		Ready:     true,
		Message:   "OK",
		Uptime:    time.Since(c.started).Round(time.Second).String(),
		Timestamp: time.Now().UTC(),
		Version:   c.version,
	}
	if len(checks) > 0 {
		status.Checks = make(map[string]CheckResult, len(checks))
	}

	var failed []string
	for i, nc := range checks {
		status.Checks[nc.name] = results[i]
		if !results[i].Healthy {
			failed = append(failed, nc.name)
		}
	}
	if len(failed) > 0 {
		status.Healthy, status.Ready = false, false
		status.Message = "failing: " + strings.Join(failed, ", ")
	}
	return status
}

func probe(ctx context.Context, fn HealthCheckFunc) CheckResult {
	ctx, cancel := context.WithTimeout(ctx, DefaultCheckTimeout)
	defer cancel()

	start := time.Now()
	err := fn(ctx)
	res := CheckResult{
		Healthy:  err == nil,
		Message:  "OK",
		Duration: time.Since(start).Round(time.Millisecond).String(),
	}
	if err != nil {
		res.Message = err.Error()
	}
	return res
}

// Pinger is satisfied by *postgres.Connection.
type Pinger interface {
	Ping(ctx context.Context) error
}

// NewDatabaseCheck probes the database pool.
func NewDatabaseCheck(db Pinger) HealthCheckFunc {
	return db.Ping
}

// NewNoopHealthChecker returns a checker with no probes; it always reports
// healthy.
func NewNoopHealthChecker() *CompositeHealthChecker {
	return NewCompositeHealthChecker("")
}
