package usecase

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

const (
	StatusHealthy   = "healthy"
	StatusDegraded  = "degraded"
	StatusUnhealthy = "unhealthy"
)

type Check func(ctx context.Context) error

type ServiceStatus struct {
	Status    string `json:"status"`
	Error     string `json:"error,omitempty"`
	LatencyMS int64  `json:"latencyMs"`
}

type HealthReport struct {
	Status    string                   `json:"status"`
	Timestamp time.Time                `json:"timestamp"`
	Services  map[string]ServiceStatus `json:"services"`
}

// HealthUseCase опрашивает зависимости. Без критичной (база) сервис unhealthy,
// без остальных - degraded.
type HealthUseCase struct {
	checks   map[string]Check
	critical map[string]bool
	timeout  time.Duration
}

func NewHealthUseCase(timeout time.Duration) *HealthUseCase {
	return &HealthUseCase{
		checks:   map[string]Check{},
		critical: map[string]bool{},
		timeout:  timeout,
	}
}

func (uc *HealthUseCase) Register(name string, critical bool, check Check) {
	uc.checks[name] = check
	uc.critical[name] = critical
}

func (uc *HealthUseCase) Check(ctx context.Context) HealthReport {
	ctx, cancel := context.WithTimeout(ctx, uc.timeout)
	defer cancel()

	report := HealthReport{
		Status:    StatusHealthy,
		Timestamp: time.Now().UTC(),
		Services:  make(map[string]ServiceStatus, len(uc.checks)),
	}

	var (
		mu sync.Mutex
		g  errgroup.Group
	)
	for name, check := range uc.checks {
		g.Go(func() error {
			started := time.Now()
			err := check(ctx)
			st := ServiceStatus{Status: StatusHealthy, LatencyMS: time.Since(started).Milliseconds()}
			if err != nil {
				st.Status = StatusUnhealthy
				st.Error = err.Error()
			}

			mu.Lock()
			defer mu.Unlock()
			report.Services[name] = st
			if err == nil {
				return nil
			}
			if uc.critical[name] {
				report.Status = StatusUnhealthy
			} else if report.Status == StatusHealthy {
				report.Status = StatusDegraded
			}
			return nil
		})
	}
	_ = g.Wait()
	return report
}
