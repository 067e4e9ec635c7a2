package main

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/robfig/cron/v3"

	"github.com/artie-labs/starsync/clients/postgres"
	"github.com/artie-labs/starsync/lib/config"
	"github.com/artie-labs/starsync/lib/destination/utils"
	"github.com/artie-labs/starsync/lib/logger"
	"github.com/artie-labs/starsync/lib/telemetry/metrics"
	"github.com/artie-labs/starsync/lib/watermark"
	"github.com/artie-labs/starsync/models/library"
	"github.com/artie-labs/starsync/processes/pipeline"
)

func main() {
	// Parse args into settings.
	settings, err := config.LoadSettings(os.Args[1:], true)
	if err != nil {
		logger.Fatal("Failed to initialize config", slog.Any("err", err))
	}

	// Initialize default logger
	_logger, usingSentry := logger.NewLogger(settings)
	slog.SetDefault(_logger)
	if usingSentry {
		defer logger.Flush()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := settings.Config
	metricsClient := metrics.LoadExporter(cfg)
	defer func() {
		if err := metricsClient.Flush(); err != nil {
			slog.Warn("Failed to flush metrics", slog.Any("err", err))
		}
	}()

	registry, err := library.NewRegistry()
	if err != nil {
		logger.Fatal("Failed to build the schema registry", slog.Any("err", err))
	}

	registry, err = registry.Subset(cfg.Pipeline.Tables)
	if err != nil {
		logger.Fatal("Invalid pipeline tables", slog.Any("err", err))
	}

	sourceStore, err := postgres.LoadStore(ctx, cfg.Source)
	if err != nil {
		logger.Fatal("Failed to connect to the source", slog.Any("err", err))
	}
	defer sourceStore.Close()

	warehouse, err := utils.LoadWarehouse(ctx, cfg)
	if err != nil {
		logger.Fatal("Failed to load the warehouse", slog.Any("err", err))
	}
	defer warehouse.Close()

	blobStore, err := utils.LoadBlobStore(ctx, cfg)
	if err != nil {
		logger.Fatal("Failed to load the watermark store", slog.Any("err", err))
	}
	if closer, ok := blobStore.(io.Closer); ok {
		defer closer.Close()
	}

	locker, err := utils.LoadLocker(ctx, cfg)
	if err != nil {
		logger.Fatal("Failed to load the run lock", slog.Any("err", err))
	}

	orchestrator, err := pipeline.NewOrchestrator(pipeline.Args{
		Registry:   registry,
		Source:     sourceStore,
		Queries:    library.Queries{},
		Warehouse:  warehouse,
		Watermarks: watermark.NewStore(blobStore, cfg.WatermarkKey),
		Locker:     locker,
		Metrics:    metricsClient,
		Options:    pipeline.OptionsFromConfig(cfg.Pipeline),
	})
	if err != nil {
		logger.Fatal("Failed to create the pipeline", slog.Any("err", err))
	}

	slog.Info("Config is loaded",
		slog.String("source", cfg.Source.String()),
		slog.String("warehouse", string(cfg.Warehouse)),
		slog.String("dataset", cfg.Pipeline.Dataset),
		slog.Int("parallelism", cfg.Pipeline.Parallelism),
		slog.Any("tables", registry.TableNames()),
	)

	if settings.RunOnce() {
		if result := runPipeline(ctx, orchestrator); result.Failed() {
			// Deferred flushes do not run on os.Exit.
			stop()
			metricsClient.Flush()
			logger.Fatal("Pipeline run failed", slog.String("state", string(result.State)))
		}
		return
	}

	scheduler := cron.New()
	if _, err = scheduler.AddFunc(cfg.Schedule, func() { runPipeline(ctx, orchestrator) }); err != nil {
		logger.Fatal("Failed to schedule the pipeline", slog.String("schedule", cfg.Schedule), slog.Any("err", err))
	}

	slog.Info("Starting scheduler...", slog.String("schedule", cfg.Schedule))
	scheduler.Start()
	<-ctx.Done()

	slog.Info("Shutting down, waiting for the running pipeline to finish...")
	<-scheduler.Stop().Done()
}

func runPipeline(ctx context.Context, orchestrator *pipeline.Orchestrator) *pipeline.RunResult {
	result := orchestrator.Run(ctx)
	if errors.Is(result.Err, pipeline.ErrRunInProgress) {
		slog.Info("Another run is still in progress, skipping...")
		return result
	}

	for table, tableResult := range result.Tables {
		for _, err := range tableResult.ConstraintErrs {
			slog.Warn("Constraint was not applied", slog.String("table", table), slog.Any("err", err))
		}
		if tableResult.MergeErr != nil {
			slog.Error("Table was not merged", slog.String("table", table), slog.Any("err", tableResult.MergeErr))
		}
	}

	if result.Err != nil {
		slog.Error("Pipeline run failed", slog.String("state", string(result.State)), slog.Any("err", result.Err))
	}
	return result
}
