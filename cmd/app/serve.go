package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"zengarden/internal/application/usecase"
	"zengarden/internal/infrastructure/cache"
	"zengarden/internal/infrastructure/hedera"
	"zengarden/internal/infrastructure/ipfs"
	"zengarden/internal/infrastructure/retry"
	"zengarden/internal/infrastructure/security"
	"zengarden/internal/middleware"
	"zengarden/internal/progression"
	grpc_server "zengarden/internal/transport/grpc"
	handlers "zengarden/internal/transport/http"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run HTTP API and gRPC health server",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	// 1. База
	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	if err := store.AutoMigrate(); err != nil {
		return fmt.Errorf("failed to migrate DB: %w", err)
	}

	// 2. Redis
	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	defer rdb.Close()
	if err := rdb.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("failed to connect to Redis: %w", err)
	}
	logger.Info("connected to redis", zap.String("addr", cfg.RedisAddr))

	// 3. Леджер: один клиент на процесс, передается явно
	ledger, err := hedera.NewClient(hedera.Config{
		Network:     cfg.HederaNetwork,
		OperatorID:  cfg.HederaOperatorID,
		OperatorKey: cfg.HederaOperatorKey,
		TokenID:     cfg.HederaNFTTokenID,
		TopicID:     cfg.HederaHCSTopicID,
		Timeout:     30 * time.Second,
	}, logger)
	if err != nil {
		return fmt.Errorf("failed to init ledger client: %w", err)
	}
	defer ledger.Close()

	// 4. Хранилище и повторы для необязательных вызовов
	ipfsClient := ipfs.NewClient(cfg.IPFSAPIURL, cfg.IPFSGateway, cfg.IPFSToken)
	policy := retry.DefaultPolicy(cfg.RetryMaxAttempts)
	content := retry.NewUploader(ipfsClient, policy, logger)

	var audit usecase.AuditLog
	if cfg.HederaHCSTopicID != "" {
		audit = retry.NewAuditor(ledger, policy, logger)
	} else {
		logger.Info("audit topic not configured, audit log disabled")
	}

	keys := cache.NewKeyCache(rdb, ledger, cfg.PublicKeyTTL)

	// 5. Сценарии
	sessions := usecase.NewSessionUseCase(
		store,
		progression.NewEngine(multipliers(cfg)),
		security.NewProofVerifier(keys, logger),
		content,
		audit,
		usecase.Limits{MinDuration: cfg.MinDuration, MaxDuration: cfg.MaxDuration},
		logger,
	)
	mint := usecase.NewMintUseCase(store, content, ledger, cache.NewMintLock(rdb, cfg.MintLockTTL), cfg.MinMintSessions, logger)
	garden := usecase.NewGardenUseCase(store)

	health := usecase.NewHealthUseCase(5 * time.Second)
	health.Register("datastore", true, store.Ping)
	health.Register("cache", false, func(ctx context.Context) error { return rdb.Ping(ctx).Err() })
	health.Register("ledger", false, ledger.Ping)
	health.Register("content", false, ipfsClient.Ping)

	// 6. HTTP
	router := handlers.NewRouter(handlers.Handlers{
		Session: handlers.NewSessionHandler(sessions, logger),
		Mint:    handlers.NewMintHandler(mint, ipfsClient.URL, logger),
		Garden:  handlers.NewGardenHandler(garden, logger),
		Health:  handlers.NewHealthHandler(health),
	}, middleware.NewRateLimiter(rdb, logger), cfg.Origins(), logger)

	httpSrv := &http.Server{
		Addr:              cfg.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// 7. gRPC health
	grpcSrv, reporter := grpc_server.NewServer(health, logger)
	lis, err := net.Listen("tcp", cfg.GRPCPort)
	if err != nil {
		return fmt.Errorf("failed to listen: %w", err)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("http server running", zap.String("addr", cfg.HTTPPort))
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		logger.Info("grpc server running", zap.String("addr", cfg.GRPCPort))
		return grpcSrv.Serve(lis)
	})
	g.Go(func() error {
		reporter.Run(gctx, 30*time.Second)
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		reporter.Shutdown()
		err := httpSrv.Shutdown(shutdownCtx)
		grpcSrv.GracefulStop()
		return err
	})

	return g.Wait()
}
