package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/odyssey-erp/ratios/cmd/odyssey/cli"
	"github.com/odyssey-erp/ratios/internal/app"
	"github.com/odyssey-erp/ratios/internal/observability"
	"github.com/odyssey-erp/ratios/internal/platform/cache"
	"github.com/odyssey-erp/ratios/internal/platform/db"
	"github.com/odyssey-erp/ratios/jobs"
	"github.com/odyssey-erp/ratios/report"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	command := cli.New(cli.Options{
		Serve: func(ctx context.Context) error {
			return serve(ctx, cfg, logger)
		},
		Ratios: func(ctx context.Context) (cli.RatiosRunner, func(), error) {
			pool, redisClient, err := connect(ctx, cfg, logger)
			if err != nil {
				return nil, nil, err
			}
			subsystem := app.BuildReports(ctx, app.ReportsParams{
				Config: cfg,
				Logger: logger,
				Stores: app.PostgresStores(pool),
				Redis:  redisClient,
			})
			return subsystem.Ratios, func() { closeAll(pool, redisClient, logger) }, nil
		},
		Jobs: func() (cli.JobsClient, error) {
			return cli.NewJobsCLI(cfg.RedisAddr)
		},
	})
	if err := command.Execute(ctx, os.Args[1:]); err != nil {
		logger.Error("odyssey", slog.Any("error", err))
		os.Exit(1)
	}
}

// connect opens PostgreSQL and, when reachable, Redis. A nil client disables
// the report cache.
func connect(ctx context.Context, cfg *app.Config, logger *slog.Logger) (*pgxpool.Pool, *redis.Client, error) {
	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		return nil, nil, err
	}
	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Warn("redis unavailable, report cache disabled", slog.Any("error", err))
		return pool, nil, nil
	}
	return pool, redisClient, nil
}

func closeAll(pool *pgxpool.Pool, redisClient *redis.Client, logger *slog.Logger) {
	if redisClient != nil {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}
	pool.Close()
}

func serve(ctx context.Context, cfg *app.Config, logger *slog.Logger) error {
	dbpool, redisClient, err := connect(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeAll(dbpool, redisClient, logger)

	metrics := observability.NewMetrics()
	reportClient := report.NewClient(cfg.GotenbergURL)

	subsystem := app.BuildReports(ctx, app.ReportsParams{
		Config:  cfg,
		Logger:  logger,
		Stores:  app.PostgresStores(dbpool),
		Redis:   redisClient,
		PDF:     reportClient,
		Metrics: metrics,
	})
	if err := subsystem.Cache.ListenForInvalidation(ctx); err != nil {
		logger.Warn("listen for ledger invalidation", slog.Any("error", err))
	}

	redisOpts := asynq.RedisClientOpt{Addr: cfg.RedisAddr}
	inspector := asynq.NewInspector(redisOpts)
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	jobClient, err := jobs.NewClient(redisOpts)
	if err != nil {
		return err
	}
	defer func() {
		if err := jobClient.Close(); err != nil {
			logger.Warn("job client close", slog.Any("error", err))
		}
	}()

	router := app.NewRouter(app.RouterParams{
		Logger:         logger,
		Config:         cfg,
		ReportsHandler: subsystem.Handler,
		RenderHandler:  report.NewHandler(reportClient, logger),
		JobHandler:     jobs.NewHandler(inspector, jobClient, logger),
		Metrics:        metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr), slog.Int("reports", subsystem.Registry.Len()))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return err
		}
	case <-ctx.Done():
	}
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
