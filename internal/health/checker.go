package health

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	StatusUp   = "up"
	StatusDown = "down"
)

// Pinger is satisfied by *pgxpool.Pool, the storage backends and the redis cache.
type Pinger interface {
	Ping(ctx context.Context) error
}

// CheckResult represents the health of a single dependency.
type CheckResult struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

// HealthResult is the top-level health response.
type HealthResult struct {
	Status  string                 `json:"status"`
	Service string                 `json:"service,omitempty"`
	Version string                 `json:"version,omitempty"`
	Checks  map[string]CheckResult `json:"checks,omitempty"`
}

type dependency struct {
	name   string
	pinger Pinger
}

// Checker verifies that all dependencies are reachable.
type Checker struct {
	service string
	version string
	deps    []dependency
	logger  *slog.Logger
	gauge   *prometheus.GaugeVec
}

// NewChecker creates a health checker and registers its Prometheus gauge.
func NewChecker(service, version string, logger *slog.Logger, reg prometheus.Registerer) *Checker {
	gauge := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "snapdocs",
		Name:      "health_check_up",
		Help:      "Whether a dependency is reachable. 1 = up, 0 = down.",
	}, []string{"dependency"})
	reg.MustRegister(gauge)

	return &Checker{
		service: service,
		version: version,
		logger:  logger.With("component", "health"),
		gauge:   gauge,
	}
}

// Add registers a dependency. Not safe to call once the server is running.
func (c *Checker) Add(name string, p Pinger) *Checker {
	c.deps = append(c.deps, dependency{name: name, pinger: p})
	return c
}

// Liveness returns a simple "up" response if the process is running.
func (c *Checker) Liveness(_ context.Context) HealthResult {
	return HealthResult{Status: StatusUp, Service: c.service, Version: c.version}
}

// Readiness pings every dependency concurrently and reports per-check status.
func (c *Checker) Readiness(ctx context.Context) HealthResult {
	checkCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	result := HealthResult{
		Status:  StatusUp,
		Service: c.service,
		Version: c.version,
		Checks:  make(map[string]CheckResult, len(c.deps)),
	}

	var (
		mu sync.Mutex
		wg sync.WaitGroup
	)
	for _, d := range c.deps {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := d.pinger.Ping(checkCtx)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				c.logger.WarnContext(ctx, "health check failed", "dependency", d.name, "error", err)
				result.Status = StatusDown
				result.Checks[d.name] = CheckResult{Status: StatusDown, Error: err.Error()}
				c.gauge.WithLabelValues(d.name).Set(0)
				return
			}
			result.Checks[d.name] = CheckResult{Status: StatusUp}
			c.gauge.WithLabelValues(d.name).Set(1)
		}()
	}
	wg.Wait()

	return result
}
