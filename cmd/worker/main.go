package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/phongthuytaman/backend-store/internal/config"
	"github.com/phongthuytaman/backend-store/internal/events"
	"github.com/phongthuytaman/backend-store/internal/obs"
	"github.com/phongthuytaman/backend-store/internal/payment"
	"github.com/phongthuytaman/backend-store/internal/resilience"
	"github.com/phongthuytaman/backend-store/internal/store"
)

const taskReconcilePayments = "payment:reconcile"

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logFormat := envOrDefault("OBS_LOG_FORMAT", "json")
	logLevel := envOrDefault("OBS_LOG_LEVEL", "info")
	logger := obs.NewLogger(logFormat, logLevel).With().Str("component", "worker").Logger()

	obs.MustRegisterDomainMetrics(envOrDefault("OBS_METRICS_NAMESPACE", "store"), nil)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, queries := mustInitDatabase(ctx, cfg, logger)
	defer pool.Close()

	gatewayHTTP := resilience.HTTPClient{
		Client:      &http.Client{Timeout: cfg.GatewayTimeout},
		Breaker:     resilience.NewBreaker(5, 0.5, 30*time.Second),
		BaseBackoff: 200 * time.Millisecond,
		MaxAttempts: 3,
		Timeout:     cfg.GatewayTimeout,
	}
	paymentSvc := &payment.Service{
		Q:    queries,
		Pool: pool,
		Gateways: map[string]payment.Gateway{
			"vnpay":   payment.VNPay{Cfg: cfg.VNPay, HTTP: gatewayHTTP},
			"zalopay": payment.ZaloPay{Cfg: cfg.ZaloPay, HTTP: gatewayHTTP},
		},
		Refs:   &payment.RefGenerator{},
		Events: &events.Bus{Store: queries},
		Log:    logger.With().Str("component", "payment").Logger(),
	}

	redisOpt, err := asynq.ParseRedisURI(cfg.RedisURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("parse redis url")
	}

	scheduler := asynq.NewScheduler(redisOpt, &asynq.SchedulerOpts{})
	spec := fmt.Sprintf("@every %s", cfg.ReconcileInterval)
	if _, err := scheduler.Register(spec, asynq.NewTask(taskReconcilePayments, nil)); err != nil {
		logger.Fatal().Err(err).Msg("register reconcile schedule")
	}

	srv := asynq.NewServer(redisOpt, asynq.Config{Concurrency: 1})
	mux := asynq.NewServeMux()
	mux.HandleFunc(taskReconcilePayments, func(taskCtx context.Context, _ *asynq.Task) error {
		return paymentSvc.Reconcile(taskCtx, cfg.ReconcileMinAge, int32(cfg.ReconcileBatch))
	})

	go func() {
		if err := scheduler.Run(); err != nil {
			logger.Error().Err(err).Msg("scheduler stopped")
		}
	}()

	logger.Info().Dur("interval", cfg.ReconcileInterval).Msg("worker starting")
	if err := srv.Start(mux); err != nil {
		logger.Fatal().Err(err).Msg("start worker")
	}

	<-ctx.Done()
	scheduler.Shutdown()
	srv.Shutdown()
	logger.Info().Msg("worker shutdown complete")
}

func mustInitDatabase(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*pgxpool.Pool, *store.Queries) {
	poolConfig, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("parse database config")
	}
	poolConfig.ConnConfig.Tracer = obs.PGXTracer{}
	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		logger.Fatal().Err(err).Msg("connect database")
	}
	if err := pool.Ping(ctx); err != nil {
		logger.Fatal().Err(err).Msg("ping database")
	}
	return pool, store.New(pool)
}

func envOrDefault(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		trimmed := strings.TrimSpace(val)
		if trimmed != "" {
			return trimmed
		}
	}
	return fallback
}
