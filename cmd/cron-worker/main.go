package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/multierr"

	"github.com/atlascrm/fulfillment-backend/internal/cron"
	"github.com/atlascrm/fulfillment-backend/internal/directory"
	"github.com/atlascrm/fulfillment-backend/internal/distribution"
	"github.com/atlascrm/fulfillment-backend/internal/orders"
	"github.com/atlascrm/fulfillment-backend/internal/workflow"
	"github.com/atlascrm/fulfillment-backend/pkg/config"
	"github.com/atlascrm/fulfillment-backend/pkg/db"
	"github.com/atlascrm/fulfillment-backend/pkg/logger"
	"github.com/atlascrm/fulfillment-backend/pkg/metrics"
	"github.com/atlascrm/fulfillment-backend/pkg/migrate"
	"github.com/atlascrm/fulfillment-backend/pkg/notify"
	"github.com/atlascrm/fulfillment-backend/pkg/redis"
)

const opsShutdownTimeout = 10 * time.Second

func main() {
	logg := logger.New(logger.Options{ServiceName: "cron-worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	cfg.Service.Kind = "cron-worker"

	logg = logger.New(logger.Options{
		ServiceName: "cron-worker",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	var notifier notify.Notifier = notify.NewNop()
	if cfg.PubSub.Enabled {
		pubsubNotifier, err := notify.NewPubSubNotifier(context.Background(), cfg.GCP, cfg.PubSub, logg)
		if err != nil {
			logg.Error(context.Background(), "failed to bootstrap pubsub notifier", err)
			os.Exit(1)
		}
		defer func() {
			if err := pubsubNotifier.Close(); err != nil {
				logg.Error(context.Background(), "error closing pubsub notifier", err)
			}
		}()
		notifier = pubsubNotifier
	}

	ordersRepo := orders.NewRepository(dbClient.DB())
	dir := directory.NewRepository(dbClient.DB())
	distRepo := distribution.NewRepository(dbClient.DB())

	workflowService, err := workflow.NewService(ordersRepo, dbClient, dir, notifier)
	if err != nil {
		logg.Error(context.Background(), "failed to create workflow service", err)
		os.Exit(1)
	}

	distMetrics := metrics.NewDistributionMetrics(prometheus.DefaultRegisterer)
	scorer := distribution.NewPerformanceScorer(distRepo, cfg.Distribution)
	distService, err := distribution.NewService(distRepo, dbClient, dir, scorer, notifier, distMetrics)
	if err != nil {
		logg.Error(context.Background(), "failed to create distribution service", err)
		os.Exit(1)
	}

	registry := cron.NewRegistry()
	if cfg.Cron.StaleOrdersJob {
		job, err := cron.NewStaleOrdersJob(cron.StaleOrdersJobParams{
			Logger:     logg,
			Workflow:   workflowService,
			StaleAfter: cfg.Workflow.StaleAfter,
		})
		if err != nil {
			logg.Error(context.Background(), "failed to create stale orders job", err)
			os.Exit(1)
		}
		registry.Register(job)
	}
	if cfg.Cron.AutoDistribution {
		job, err := cron.NewAutoDistributionJob(cron.AutoDistributionJobParams{
			Logger:      logg,
			Distributor: distService,
		})
		if err != nil {
			logg.Error(context.Background(), "failed to create auto distribution job", err)
			os.Exit(1)
		}
		registry.Register(job)
	}
	if cfg.Cron.WorkloadBalancing {
		job, err := cron.NewWorkloadBalanceJob(cron.WorkloadBalanceJobParams{
			Logger:   logg,
			Balancer: distService,
		})
		if err != nil {
			logg.Error(context.Background(), "failed to create workload balance job", err)
			os.Exit(1)
		}
		registry.Register(job)
	}

	cronMetrics := metrics.NewCronJobMetrics(prometheus.DefaultRegisterer)
	lock, err := cron.NewRedisLock(redisClient, redisClient.LockKey("cron-worker:"+cfg.App.Env), cfg.Cron.LockTTL)
	if err != nil {
		logg.Error(context.Background(), "failed to create cron lock", err)
		os.Exit(1)
	}

	service, err := cron.NewService(cron.ServiceParams{
		Logger:   logg,
		Registry: registry,
		Lock:     lock,
		Metrics:  cronMetrics,
		Interval: cfg.Cron.Interval,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create cron service", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": cfg.Service.Kind,
	})

	opsServer := newOpsServer(cfg, logg, dbClient, redisClient)
	go func() {
		if err := opsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error(ctx, "ops server stopped unexpectedly", err)
		}
	}()

	logg.Info(ctx, "starting cron worker")

	runErr := service.Run(ctx)
	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		logg.Error(ctx, "cron worker stopped unexpectedly", runErr)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), opsShutdownTimeout)
	defer cancel()
	if err := opsServer.Shutdown(shutdownCtx); err != nil {
		logg.Error(ctx, "error shutting down ops server", err)
	}

	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		os.Exit(1)
	}
	logg.Info(ctx, "cron worker shutting down gracefully")
}

func newOpsServer(cfg *config.Config, logg *logger.Logger, dbClient *db.Client, redisClient *redis.Client) *http.Server {
	router := chi.NewRouter()
	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		err := multierr.Combine(
			dbClient.Ping(r.Context()),
			redisClient.Ping(r.Context()),
		)
		if err != nil {
			logg.Error(r.Context(), "health check failed", err)
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	router.Handle("/metrics", promhttp.Handler())
	return &http.Server{
		Addr:    ":" + cfg.Ops.Port,
		Handler: router,
	}
}
