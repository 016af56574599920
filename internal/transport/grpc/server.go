package grpc_server

import (
	"context"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"zengarden/internal/application/usecase"
)

// HealthReporter переносит результаты health-проверок в стандартный grpc.health.v1.
// Пустое имя сервиса - общий статус.
type HealthReporter struct {
	server *health.Server
	uc     *usecase.HealthUseCase
	logger *zap.Logger
}

func NewServer(uc *usecase.HealthUseCase, logger *zap.Logger) (*grpc.Server, *HealthReporter) {
	srv := grpc.NewServer()
	reporter := &HealthReporter{server: health.NewServer(), uc: uc, logger: logger}

	healthpb.RegisterHealthServer(srv, reporter.server)
	reflection.Register(srv)
	return srv, reporter
}

func (r *HealthReporter) Refresh(ctx context.Context) {
	report := r.uc.Check(ctx)
	for name, st := range report.Services {
		r.server.SetServingStatus(name, toServing(st.Status))
	}
	// degraded - это все еще SERVING: минт и аудит не нужны для чтения
	overall := healthpb.HealthCheckResponse_SERVING
	if report.Status == usecase.StatusUnhealthy {
		overall = healthpb.HealthCheckResponse_NOT_SERVING
		r.logger.Warn("service unhealthy", zap.Any("services", report.Services))
	}
	r.server.SetServingStatus("", overall)
}

// Run обновляет статусы по таймеру, пока жив ctx.
func (r *HealthReporter) Run(ctx context.Context, interval time.Duration) {
	r.Refresh(ctx)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.Refresh(ctx)
		}
	}
}

func (r *HealthReporter) Shutdown() {
	r.server.Shutdown()
}

func toServing(status string) healthpb.HealthCheckResponse_ServingStatus {
	if status == usecase.StatusHealthy {
		return healthpb.HealthCheckResponse_SERVING
	}
	return healthpb.HealthCheckResponse_NOT_SERVING
}
