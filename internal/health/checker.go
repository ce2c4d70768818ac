package health

import (
	"context"
	"log"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

const (
	StatusHealthy   = "healthy"
	StatusDegraded  = "degraded"
	StatusUnhealthy = "unhealthy"
)

// CheckFunc returns nil when the dependency it checks is usable.
type CheckFunc func(ctx context.Context) error

// DetailFunc adds free-form status (queue depth, cache backend) to a report.
type DetailFunc func(ctx context.Context) map[string]interface{}

type component struct {
	check    CheckFunc
	critical bool
}

// Checker runs the registered checks for both the HTTP and gRPC health
// endpoints. A failing critical check makes the service unhealthy; any other
// failure only degrades it.
type Checker struct {
	mu      sync.RWMutex
	checks  map[string]component
	details map[string]DetailFunc
	timeout time.Duration
}

type Report struct {
	Status     string                            `json:"status"`
	Components map[string]string                 `json:"components"`
	Details    map[string]map[string]interface{} `json:"details,omitempty"`
}

func NewChecker(timeout time.Duration) *Checker {
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	return &Checker{
		checks:  make(map[string]component),
		details: make(map[string]DetailFunc),
		timeout: timeout,
	}
}

func (c *Checker) Register(name string, critical bool, check CheckFunc) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.checks[name] = component{check: check, critical: critical}
}

func (c *Checker) RegisterDetail(name string, fn DetailFunc) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.details[name] = fn
}

// Check runs every check concurrently, each bounded by the checker timeout.
func (c *Checker) Check(ctx context.Context) Report {
	c.mu.RLock()
	checks := make(map[string]component, len(c.checks))
	for name, p := range c.checks {
		checks[name] = p
	}
	details := make(map[string]DetailFunc, len(c.details))
	for name, fn := range c.details {
		details[name] = fn
	}
	c.mu.RUnlock()

	report := Report{
		Status:     StatusHealthy,
		Components: make(map[string]string, len(checks)),
	}

	var (
		mu sync.Mutex
		g  errgroup.Group
	)
	for name, p := range checks {
		name, p := name, p
		g.Go(func() error {
			checkCtx, cancel := context.WithTimeout(ctx, c.timeout)
			defer cancel()

			err := p.check(checkCtx)

			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				report.Components[name] = "ok"
				return nil
			}
			log.Printf("[health] %s check failed: %v", name, err)
			report.Components[name] = "unavailable"
			if p.critical {
				report.Status = StatusUnhealthy
			} else if report.Status == StatusHealthy {
				report.Status = StatusDegraded
			}
			return nil
		})
	}
	_ = g.Wait()

	if len(details) > 0 {
		names := make([]string, 0, len(details))
		for name := range details {
			names = append(names, name)
		}
		sort.Strings(names)

		report.Details = make(map[string]map[string]interface{}, len(names))
		for _, name := range names {
			report.Details[name] = details[name](ctx)
		}
	}

	return report
}
