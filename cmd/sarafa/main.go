package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/sarafa-ledger/sarafa-ledger/internal/app"
	"github.com/sarafa-ledger/sarafa-ledger/internal/customer"
	"github.com/sarafa-ledger/sarafa-ledger/internal/ledger"
	"github.com/sarafa-ledger/sarafa-ledger/internal/observability"
	"github.com/sarafa-ledger/sarafa-ledger/internal/payments"
	"github.com/sarafa-ledger/sarafa-ledger/internal/platform/cache"
	"github.com/sarafa-ledger/sarafa-ledger/internal/platform/db"
	"github.com/sarafa-ledger/sarafa-ledger/internal/shared"
	"github.com/sarafa-ledger/sarafa-ledger/internal/stock"
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

	var recentCache *ledger.RecentCache
	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Warn("redis unavailable, recent view served uncached", slog.Any("error", err))
	} else {
		defer func() {
			if err := redisClient.Close(); err != nil {
				logger.Warn("redis close", slog.Any("error", err))
			}
		}()
		recentCache = ledger.NewRecentCache(redisClient, time.Minute)
	}

	metrics := observability.NewMetrics()
	audit := shared.NewAuditLogger(pool)
	guard := shared.NewSaveGuard()

	customerRepo := customer.NewRepository(pool)
	customerService := customer.NewService(customerRepo, logger)

	stockRepo := stock.NewRepository(pool)
	stockService := stock.NewService(stockRepo, logger)

	ledgerRepo := ledger.NewRepository(pool)
	ledgerService := ledger.NewService(ledgerRepo, customerRepo, audit, recentCache, guard, ledger.ServiceConfig{
		RetentionDays:      cfg.RecycleRetentionDays,
		Lock:               ledger.LockPolicy{SettleAfter: cfg.SettlementLockAfter},
		AllowUnmatchedSell: cfg.AllowUnmatchedSell,
	}, logger)

	router := app.NewRouter(app.RouterParams{
		Logger:          logger,
		Config:          cfg,
		LedgerHandler:   ledger.NewHandler(logger, ledgerService, payments.NewRepository(pool), metrics),
		CustomerHandler: customer.NewHandler(logger, customerService),
		StockHandler:    stock.NewHandler(logger, stockService),
		Metrics:         metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	group, ctx := errgroup.WithContext(ctx)
	group.Go(func() error {
		logger.Info("http server listening", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	group.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := group.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("server exit", slog.Any("error", err))
		os.Exit(1)
	}
}
