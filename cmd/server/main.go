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

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"mirathi/internal/platform/config"
	"mirathi/internal/platform/database"
	"mirathi/internal/platform/health"
	platformkafka "mirathi/internal/platform/kafka"
	kafkaconsumer "mirathi/internal/platform/kafka/consumer"
	kafkaproducer "mirathi/internal/platform/kafka/producer"
	"mirathi/internal/platform/logger"
	platformredis "mirathi/internal/platform/redis"
	factsconsumer "mirathi/internal/readiness/consumer"
	"mirathi/internal/readiness/handler"
	readinessmetrics "mirathi/internal/readiness/metrics"
	"mirathi/internal/readiness/service"
	"mirathi/internal/readiness/store"
	"mirathi/internal/readiness/workers/sweep"
	"mirathi/pkg/platform/audit"
	auditmetrics "mirathi/pkg/platform/audit/metrics"
	auditpublisher "mirathi/pkg/platform/audit/publisher"
	auditmemory "mirathi/pkg/platform/audit/store/memory"
	auditpostgres "mirathi/pkg/platform/audit/store/postgres"
	"mirathi/pkg/platform/audit/outbox"
	outboxmetrics "mirathi/pkg/platform/audit/outbox/metrics"
	outboxmemory "mirathi/pkg/platform/audit/outbox/store/memory"
	outboxpostgres "mirathi/pkg/platform/audit/outbox/store/postgres"
	outboxworker "mirathi/pkg/platform/audit/outbox/worker"
	"mirathi/pkg/platform/middleware/request"
	"mirathi/pkg/platform/middleware/requesttime"
)

// main wires the readiness service: config, persistence, the event pipeline,
// the HTTP surface, and the background workers. Business logic lives in
// internal/readiness; everything here is composition and lifecycle.
func main() {
	cfg := config.FromEnv()
	log := logger.New()

	if err := run(cfg, log); err != nil {
		log.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info("initializing mirathi readiness service",
		"addr", cfg.Server.Addr,
		"environment", cfg.Server.Environment,
		"database_configured", cfg.Database.URL != "",
		"redis_configured", cfg.Redis.URL != "",
		"kafka_configured", cfg.Kafka.Brokers != "",
	)

	// Persistence. An unconfigured database means in-memory stores, which
	// keeps local development and e2e runs dependency-free.
	pool, err := database.New(database.Config{
		URL:             cfg.Database.URL,
		MaxOpenConns:    database.DefaultConfig().MaxOpenConns,
		MaxIdleConns:    database.DefaultConfig().MaxIdleConns,
		ConnMaxLifetime: database.DefaultConfig().ConnMaxLifetime,
	})
	if err != nil {
		return err
	}
	if pool != nil {
		defer pool.Close() //nolint:errcheck // shutdown path
	}

	redisClient, err := platformredis.New(cfg.Redis)
	if err != nil {
		return err
	}
	if redisClient != nil {
		defer redisClient.Close() //nolint:errcheck // shutdown path
	}

	// Audit trail: structured text log plus a durable store behind an async
	// publisher, so audit persistence never sits on the request path.
	var auditStore audit.Store
	if pool != nil {
		auditStore = auditpostgres.New(pool.DB())
	} else {
		auditStore = auditmemory.NewInMemoryStore()
	}
	auditPub := auditpublisher.NewPublisher(auditStore,
		auditpublisher.WithPublisherLogger(log),
		auditpublisher.WithMetrics(auditmetrics.New()),
	)
	defer auditPub.Close()

	var outboxStore outbox.Store
	if pool != nil {
		outboxStore = outboxpostgres.New(pool.DB())
	} else {
		outboxStore = outboxmemory.New()
	}

	m := readinessmetrics.New()

	var assessmentStore service.AssessmentStore
	serviceOpts := []service.Option{
		service.WithLogger(log),
		service.WithAuditPublisher(auditPub),
		service.WithMetrics(m),
		service.WithOutbox(outboxStore),
	}
	if pool != nil {
		assessmentStore = store.NewPostgres(pool.DB())
		serviceOpts = append(serviceOpts, service.WithStoreTx(newAssessmentPostgresTx(pool.DB())))
	} else {
		assessmentStore = store.New()
	}
	if redisClient != nil {
		cache := store.NewRedisCache(redisClient.Client, cfg.Redis.CacheTTL, m)
		serviceOpts = append(serviceOpts, service.WithSnapshotCache(cache))
	}

	svc := service.New(assessmentStore, serviceOpts...)

	healthHandler := health.New(cfg.Server.Environment)
	if pool != nil {
		healthHandler.RegisterCheck("database", checkWithTimeout(pool.Health))
	}
	if redisClient != nil {
		healthHandler.RegisterCheck("redis", checkWithTimeout(redisClient.Health))
	}

	// Event pipeline: the outbox worker drains committed entries to Kafka,
	// and the facts consumer feeds external case events back into the core.
	var (
		producer *kafkaproducer.Producer
		consumer *kafkaconsumer.Consumer
	)
	if cfg.Kafka.Brokers != "" {
		producerCfg := kafkaproducer.Config{
			Brokers:         cfg.Kafka.Brokers,
			Acks:            "all",
			Retries:         3,
			DeliveryTimeout: 30 * time.Second,
		}
		producer, err = kafkaproducer.New(producerCfg, log)
		if err != nil {
			return err
		}
		defer producer.Close() //nolint:errcheck // shutdown path

		worker := outboxworker.New(outboxStore, producer,
			outboxworker.WithTopic(cfg.Kafka.EventsTopic),
			outboxworker.WithBatchSize(cfg.Outbox.BatchSize),
			outboxworker.WithPollInterval(cfg.Outbox.PollInterval),
			outboxworker.WithMetrics(outboxmetrics.New()),
			outboxworker.WithLogger(log),
		)
		worker.Start()
		defer stopWithTimeout(worker.Stop, log, "outbox worker")

		factHandler := factsconsumer.NewFactHandler(svc, log, m)
		consumer, err = kafkaconsumer.New(kafkaconsumer.Config{
			Brokers:         cfg.Kafka.Brokers,
			GroupID:         cfg.Kafka.FactsGroup,
			AutoOffsetReset: "earliest",
		}, factHandler, log)
		if err != nil {
			return err
		}
		if err := consumer.Subscribe([]string{cfg.Kafka.FactsTopic}); err != nil {
			return err
		}
		consumer.Start()
		defer stopWithTimeout(consumer.Stop, log, "facts consumer")

		brokerCheck := platformkafka.NewHealthChecker(cfg.Kafka.Brokers)
		healthHandler.RegisterCheck("kafka", func() error {
			checkCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			if err := brokerCheck.Check(checkCtx); err != nil {
				return err
			}
			if !producer.Healthy(checkCtx) {
				return errors.New("kafka producer unhealthy")
			}
			return nil
		})
	}

	sweeper, err := sweep.New(svc,
		sweep.WithSweepInterval(cfg.Sweep.Interval),
		sweep.WithSweepBatchSize(cfg.Sweep.BatchSize),
		sweep.WithSweepConcurrency(cfg.Sweep.Concurrency),
		sweep.WithSweepLogger(log),
		sweep.WithSweepMetrics(m),
	)
	if err != nil {
		return err
	}
	go func() {
		if err := sweeper.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Error("sweep worker stopped", "error", err)
		}
	}()

	router := newRouter(cfg.Server, log, svc, healthHandler)

	server := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("listening", "addr", cfg.Server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

func newRouter(cfg config.Server, log *slog.Logger, svc handler.Service, healthHandler *health.Handler) chi.Router {
	r := chi.NewRouter()

	r.Use(request.Recovery(log))
	r.Use(request.RequestID)
	r.Use(requesttime.Middleware)
	r.Use(request.Logger(log))
	r.Use(request.BodyLimit(cfg.MaxBodyBytes))
	r.Use(request.Timeout(cfg.RequestTimeout))
	r.Use(request.ContentTypeJSON)
	r.Use(request.LatencyMiddleware(request.NewMetrics()))

	healthHandler.Register(r)
	r.Handle("/metrics", promhttp.Handler())

	api := handler.New(svc, log)
	r.Route("/api/v1", func(r chi.Router) {
		api.Register(r)
	})

	return r
}

// checkWithTimeout adapts a ctx-taking health probe to the health package's
// CheckFunc shape.
func checkWithTimeout(probe func(context.Context) error) health.CheckFunc {
	return func() error {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		return probe(ctx)
	}
}

func stopWithTimeout(stop func(context.Context) error, log *slog.Logger, name string) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := stop(ctx); err != nil {
		log.Error("failed to stop "+name, "error", err)
	}
}
