// Package main is the entry point of the pdvd-cvesync microservice. It keeps a local
// ArangoDB copy of the NVD CVE feed current and serves it over REST and GraphQL.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.opentelemetry.io/otel"
	"go.uber.org/zap"

	"github.com/ortelius/pdvd-cvesync/config"
	"github.com/ortelius/pdvd-cvesync/database"
	"github.com/ortelius/pdvd-cvesync/events/modules/cvesync"
	"github.com/ortelius/pdvd-cvesync/internal/api"
	"github.com/ortelius/pdvd-cvesync/internal/ingest"
	"github.com/ortelius/pdvd-cvesync/internal/kafka"
	"github.com/ortelius/pdvd-cvesync/internal/nvd"
	"github.com/ortelius/pdvd-cvesync/internal/scheduler"
	"github.com/ortelius/pdvd-cvesync/model"
	"github.com/ortelius/pdvd-cvesync/util"
)

// cveStore is what both storage backends provide
type cveStore interface {
	ingest.Upserter
	ingest.WatermarkReader
	database.CVEReader
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		bootLogger := database.InitLogger(database.GetEnvDefault("LOG_LEVEL", "info"))
		bootLogger.Fatal("Failed to load configuration", zap.Error(err))
	}

	logger := database.InitLogger(cfg.Logging.Level)
	defer logger.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var (
		store    cveStore
		recorder ingest.RunRecorder
	)
	switch cfg.Store.Backend {
	case "memory":
		mem := database.NewMemoryStore()
		store, recorder = mem, mem
		logger.Warn("Using in-memory CVE store, records are lost on restart")
	default:
		db := database.InitializeDatabase(ctx, database.Config{
			URL:          cfg.Store.URL,
			User:         cfg.Store.User,
			Password:     cfg.Store.Password,
			DatabaseName: cfg.Store.Database,
		}, logger)
		store, recorder = database.NewCVEStore(db), util.MetadataRecorder{DB: db}
	}

	metrics, err := ingest.NewMetrics(otel.GetMeterProvider().Meter("github.com/ortelius/pdvd-cvesync"))
	if err != nil {
		logger.Fatal("Failed to create sync metrics", zap.Error(err))
	}

	client := nvd.NewClient(nvd.Options{
		BaseURL:   cfg.NVD.URL,
		PageSize:  cfg.NVD.PageSize,
		Timeout:   time.Duration(cfg.NVD.Timeout),
		UserAgent: cfg.NVD.UserAgent,
	}, logger.Named("nvd"))

	tracker := ingest.NewTracker(store)
	orchestrator := ingest.NewOrchestrator(client, ingest.NewWriter(store), metrics, logger.Named("ingest"))

	opts := []ingest.ServiceOption{
		ingest.WithRecorder(recorder),
		ingest.WithMetrics(metrics),
	}

	if cfg.Kafka.Enabled() {
		producer := cvesync.NewSyncProducer(cfg.Kafka.Brokers, cfg.Kafka.EventsTopic,
			kafka.NewTransport(cfg.Kafka.APIKey, cfg.Kafka.APISecret))
		defer producer.Close()
		opts = append(opts, ingest.WithPublisher(producer))
	}

	svc := ingest.NewService(orchestrator, tracker, logger.Named("sync"), opts...)

	if cfg.Kafka.Enabled() {
		err := kafka.RunSyncRequestProcessor(ctx, kafka.Options{
			Brokers:  cfg.Kafka.Brokers,
			Username: cfg.Kafka.APIKey,
			Password: cfg.Kafka.APISecret,
			Topic:    cfg.Kafka.RequestsTopic,
			GroupID:  cfg.Kafka.GroupID,
		}, svc, logger.Named("kafka"))
		if err != nil {
			logger.Error("Kafka sync request processor not started", zap.Error(err))
		}
	}

	sched := scheduler.New(logger.Named("scheduler"))
	if err := sched.Every("nvd-incremental", time.Duration(cfg.Sync.IncrementalInterval), svc.Task(model.SyncModeIncremental, "schedule")); err != nil {
		logger.Fatal("Failed to schedule incremental sync", zap.Error(err))
	}
	if err := sched.Every("nvd-full", time.Duration(cfg.Sync.FullInterval), svc.Task(model.SyncModeFull, "schedule")); err != nil {
		logger.Fatal("Failed to schedule full sync", zap.Error(err))
	}
	sched.Start(ctx)

	if cfg.Sync.OnStartup {
		go func() {
			if _, err := svc.RunIncremental(ctx, "startup"); err != nil {
				logger.Error("Startup sync failed", zap.Error(err))
			}
		}()
	}

	app, err := api.NewFiberApp(store, svc, tracker, logger.Named("api"))
	if err != nil {
		logger.Fatal("Failed to create GraphQL schema", zap.Error(err))
	}

	go func() {
		<-ctx.Done()
		logger.Info("Shutting down")
		sched.Stop()
		if err := app.Shutdown(); err != nil {
			logger.Error("Failed to shut down HTTP server", zap.Error(err))
		}
	}()

	logger.Info("Starting server",
		zap.String("port", cfg.Server.Port),
		zap.String("store", cfg.Store.Backend),
		zap.Duration("incremental_interval", time.Duration(cfg.Sync.IncrementalInterval)),
		zap.Duration("full_interval", time.Duration(cfg.Sync.FullInterval)))
	if err := app.Listen(":" + cfg.Server.Port); err != nil {
		logger.Fatal("Failed to start server", zap.Error(err))
	}
}
