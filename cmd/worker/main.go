package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"

	"github.com/sarafa-ledger/sarafa-ledger/internal/app"
	"github.com/sarafa-ledger/sarafa-ledger/internal/customer"
	"github.com/sarafa-ledger/sarafa-ledger/internal/ledger"
	"github.com/sarafa-ledger/sarafa-ledger/internal/platform/db"
	"github.com/sarafa-ledger/sarafa-ledger/internal/shared"
	"github.com/sarafa-ledger/sarafa-ledger/jobs"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	customerRepo := customer.NewRepository(pool)
	ledgerRepo := ledger.NewRepository(pool)
	ledgerService := ledger.NewService(ledgerRepo, customerRepo, shared.NewAuditLogger(pool), nil, nil, ledger.ServiceConfig{
		RetentionDays: cfg.RecycleRetentionDays,
		Lock:          ledger.LockPolicy{SettleAfter: cfg.SettlementLockAfter},
	}, logger)

	cleanupTask, err := jobs.NewRecycleCleanupTask(jobs.RecycleCleanupPayload{
		RetentionDays: cfg.RecycleRetentionDays,
	})
	if err != nil {
		logger.Error("build cleanup task", slog.Any("error", err))
		os.Exit(1)
	}

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:    logger,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskRecycleCleanup, Handler: jobs.NewRecycleCleanupHandler(ledgerService, logger)},
		},
		Cron: []jobs.CronRegistration{
			{Spec: "0 3 * * *", Task: cleanupTask, Options: []asynq.Option{asynq.Queue(jobs.QueueDefault)}},
		},
	})
	if err != nil {
		logger.Error("build worker", slog.Any("error", err))
		os.Exit(1)
	}

	logger.Info("worker started", slog.String("redis", cfg.RedisAddr))
	if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("worker exit", slog.Any("error", err))
		os.Exit(1)
	}
}
