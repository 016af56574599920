package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"zengarden/internal/domain"
	"zengarden/internal/infrastructure/repository"
)

type PendingReport struct {
	Gardens  []domain.Garden  `json:"gardens"`
	Sessions []domain.Session `json:"sessions"`
}

type ReconcileUseCase struct {
	store    *repository.Store
	sessions *SessionUseCase
	logger   *zap.Logger
}

func NewReconcileUseCase(store *repository.Store, sessions *SessionUseCase, logger *zap.Logger) *ReconcileUseCase {
	return &ReconcileUseCase{store: store, sessions: sessions, logger: logger}
}

// Pending - сады с незавершенным/несведенным минтом и сессии без примененного прогресса.
// grace отсекает запросы, которые, возможно, еще выполняются.
func (uc *ReconcileUseCase) Pending(ctx context.Context, grace time.Duration) (*PendingReport, error) {
	cutoff := time.Now().Add(-grace)

	gardens, err := uc.store.Gardens.ListByMintState(ctx, domain.MintStateInProgress, domain.MintStateReconciliation)
	if err != nil {
		return nil, fmt.Errorf("list gardens: %w", err)
	}
	report := &PendingReport{}
	for _, g := range gardens {
		if g.MintState == domain.MintStateReconciliation || g.UpdatedAt.Before(cutoff) {
			report.Gardens = append(report.Gardens, g)
		}
	}

	report.Sessions, err = uc.store.Sessions.ListUnapplied(ctx, cutoff)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	return report, nil
}

// ApplyProgress доводит зависшие сессии до аккаунта и сада. Возвращает число примененных.
func (uc *ReconcileUseCase) ApplyProgress(ctx context.Context, grace time.Duration) (int, error) {
	sessions, err := uc.store.Sessions.ListUnapplied(ctx, time.Now().Add(-grace))
	if err != nil {
		return 0, err
	}

	applied := 0
	var errs []error
	for _, s := range sessions {
		res, err := uc.sessions.ReapplyProgress(ctx, s.ID)
		if err != nil {
			var conflict *domain.ConflictError
			if errors.As(err, &conflict) {
				continue
			}
			uc.logger.Error("reapply session progress", zap.String("session", s.ID.String()), zap.Error(err))
			errs = append(errs, fmt.Errorf("session %s: %w", s.ID, err))
			continue
		}
		applied++
		uc.logger.Info("session progress applied",
			zap.String("session", s.ID.String()),
			zap.Int("total_xp", res.TotalXP),
			zap.Int("level", res.Level),
		)
	}
	return applied, errors.Join(errs...)
}
