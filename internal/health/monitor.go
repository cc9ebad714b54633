package health

import (
	"context"
	"sort"
	"sync"
	"time"
)

const (
	defaultCheckTimeout = 3 * time.Second
	defaultCacheTTL     = 10 * time.Second
)

// CheckFunc pings one backend.
type CheckFunc func(ctx context.Context) error

type check struct {
	name     string
	fn       CheckFunc
	critical bool
}

// Monitor runs registered checks and caches the last report.
type Monitor struct {
	mu         sync.Mutex
	checks     []check
	timeout    time.Duration
	ttl        time.Duration
	now        func() time.Time
	lastCheck  time.Time
	lastReport map[string]ComponentHealth
}

// NewMonitor creates a monitor with no checks.
func NewMonitor() *Monitor {
	return &Monitor{
		timeout: defaultCheckTimeout,
		ttl:     defaultCacheTTL,
		now:     time.Now,
	}
}

// Register adds a check. A failing critical check makes the system critical;
// any other failing check only degrades it.
func (m *Monitor) Register(name string, fn CheckFunc, critical bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.checks = append(m.checks, check{name: name, fn: fn, critical: critical})
	m.lastReport = nil
}

// Names returns the registered check names, sorted.
func (m *Monitor) Names() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	names := make([]string, 0, len(m.checks))
	for _, c := range m.checks {
		names = append(names, c.name)
	}
	sort.Strings(names)
	return names
}

// CheckHealth runs every check, at most once per cache interval.
func (m *Monitor) CheckHealth(ctx context.Context) map[string]ComponentHealth {
	m.mu.Lock()
	defer m.mu.Unlock()

	// Rate limit checks to avoid hammering the backends
	if m.lastReport != nil && m.now().Sub(m.lastCheck) < m.ttl {
		return m.lastReport
	}

	report := make(map[string]ComponentHealth, len(m.checks))
	for _, c := range m.checks {
		report[c.name] = m.run(ctx, c)
	}

	m.lastReport = report
	m.lastCheck = m.now()
	return report
}

// Report returns the full report including the aggregated status.
func (m *Monitor) Report(ctx context.Context) HealthReport {
	components := m.CheckHealth(ctx)
	return HealthReport{SystemStatus: Aggregate(components), Components: components}
}

func (m *Monitor) run(ctx context.Context, c check) ComponentHealth {
	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	start := m.now()
	err := c.fn(ctx)
	result := ComponentHealth{
		Name:      c.name,
		Status:    StatusHealthy,
		Critical:  c.critical,
		LatencyMS: m.now().Sub(start).Milliseconds(),
	}
	if err != nil {
		result.Error = err.Error()
		result.Status = StatusDegraded
		if c.critical {
			result.Status = StatusCritical
		}
	}
	return result
}
