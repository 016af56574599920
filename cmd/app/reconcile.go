package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"zengarden/internal/application/usecase"
	"zengarden/internal/progression"
)

var (
	reconcileGrace time.Duration
	applyProgress  bool
)

var reconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "List mints and sessions that need manual reconciliation",
	Long: `Prints gardens whose mint is stuck in progress or was minted on the ledger
without a complete local record, and completed sessions whose XP/garden progress
was never applied.

With --apply-progress the unapplied sessions are applied. Mints are never
retried automatically: the ledger ids in the output are for an operator.`,
	RunE: runReconcile,
}

func init() {
	reconcileCmd.Flags().DurationVar(&reconcileGrace, "grace", 10*time.Minute, "ignore records younger than this")
	reconcileCmd.Flags().BoolVar(&applyProgress, "apply-progress", false, "apply progress of unapplied sessions")
}

func runReconcile(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	store, err := openStore(cfg)
	if err != nil {
		return err
	}

	// Для доприменения прогресса внешние системы не нужны
	sessions := usecase.NewSessionUseCase(store, progression.NewEngine(multipliers(cfg)), nil, nil, nil,
		usecase.Limits{MinDuration: cfg.MinDuration, MaxDuration: cfg.MaxDuration}, logger)
	uc := usecase.NewReconcileUseCase(store, sessions, logger)

	report, err := uc.Pending(ctx, reconcileGrace)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "gardens requiring reconciliation: %d\n", len(report.Gardens))
	for _, g := range report.Gardens {
		fmt.Fprintf(out, "  garden=%s wallet=%s state=%s key=%s token=%s serial=%d tx=%s content=%s updated=%s\n",
			g.ID, g.WalletAddress, g.MintState, g.MintKey,
			g.NFT.TokenID, g.NFT.SerialNumber, g.NFT.TransactionID, g.NFT.ContentID,
			g.UpdatedAt.Format(time.RFC3339))
	}

	fmt.Fprintf(out, "sessions with unapplied progress: %d\n", len(report.Sessions))
	for _, s := range report.Sessions {
		fmt.Fprintf(out, "  session=%s account=%s mode=%s xp=%d\n", s.ID, s.AccountID, s.Mode, s.XPEarned)
	}

	if !applyProgress || len(report.Sessions) == 0 {
		return nil
	}
	applied, err := uc.ApplyProgress(ctx, reconcileGrace)
	logger.Info("progress reconciliation finished", zap.Int("applied", applied))
	fmt.Fprintf(out, "applied: %d\n", applied)
	return err
}
