package main

import (
	"context"
	"errors"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"meudinheiro/internal/amqp"
	"meudinheiro/internal/backend"
	"meudinheiro/internal/cli"
	"meudinheiro/internal/config"
	"meudinheiro/internal/log"
	"meudinheiro/internal/metrics"
	"meudinheiro/internal/services"
	"meudinheiro/internal/sheets"
	gsheet "meudinheiro/internal/sheets/google"
	memsheet "meudinheiro/internal/sheets/memory"
	"meudinheiro/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(log.ComponentWorker)
	cfg := cli.LoadAndValidateConfig(logger, (*config.Config).ValidateWorker)

	logger.Info("Starting meudinheiro-worker", log.FieldBackend, cfg.DataBackend)

	ctx, cancel := cli.GracefulShutdown(logger)
	defer cancel()

	backendCfg, err := backend.FromAppConfig(cfg, false)
	if err != nil {
		logger.Error("Invalid backend configuration", log.FieldError, err)
		os.Exit(1)
	}
	store, err := backend.NewFactory(logger).CreateBackend(ctx, backendCfg)
	if err != nil {
		logger.Error("Failed to initialize backend", log.FieldError, err)
		os.Exit(1)
	}
	defer store.Close()

	var mirror sheets.Mirror
	if cfg.GoogleSpreadsheetID != "" {
		client, err := gsheet.New(ctx, cfg.GoogleSpreadsheetID, cfg.GoogleSheetPrefix, logger)
		if err != nil {
			logger.Error("Failed to initialize Google Sheets client", log.FieldError, err)
			os.Exit(1)
		}
		mirror = client
		logger.Info("Google Sheets mirror initialized", "spreadsheet_id", cfg.GoogleSpreadsheetID)
	} else {
		mirror = memsheet.New(cfg.GoogleSheetPrefix)
		logger.Info("Google Sheets disabled - no GOOGLE_SPREADSHEET_ID provided, mirroring in memory")
	}

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", log.FieldError, err)
		os.Exit(1)
	}
	defer amqpClient.Close()

	tracker, err := store.RequireTracker()
	if err != nil {
		logger.Warn("Backend does not track mirrors, only messages will drive the mirror", log.FieldError, err)
	}
	mirrorWorker := worker.NewMirrorWorker(store.Store, tracker, mirror, cfg.MirrorBatchSize, logger, metrics.New())

	if tracker != nil {
		logger.Info("Performing startup mirror check...")
		if err := mirrorWorker.StartupSyncCheck(ctx); err != nil {
			logger.Error("Failed startup mirror check", log.FieldError, err)
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		err := amqpClient.ConsumeSnapshotSaved(gctx, mirrorWorker.HandleSnapshotSaved)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})

	if tracker != nil {
		scheduler := services.NewMirrorScheduler(mirrorWorker,
			services.MirrorSchedulerConfig{PollInterval: cfg.MirrorInterval}, logger)
		if err := scheduler.Start(gctx); err != nil {
			logger.Error("Failed to start mirror scheduler", log.FieldError, err)
			os.Exit(1)
		}
		g.Go(func() error {
			<-gctx.Done()
			stopCtx, stopCancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer stopCancel()
			return scheduler.Stop(stopCtx)
		})
	}

	if err := g.Wait(); err != nil {
		logger.Error("Worker stopped with error", log.FieldError, err)
		cancel()
		store.Close()
		amqpClient.Close()
		os.Exit(1)
	}
	logger.Info("Worker shutdown complete")
}
