package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"finans/internal/amqp"
	"finans/internal/config"
	"finans/internal/extract"
	"finans/internal/ingest"
	"finans/internal/log"
	"finans/internal/storage"
)

func main() {
	// Load .env for local development; production injects real env vars.
	_ = godotenv.Load()

	logger := log.New(log.DefaultConfig()).WithComponent(log.ComponentWorker)
	slog.SetDefault(logger.Logger)

	logger.Info("Starting finans-worker")

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", log.FieldError, err)
		os.Exit(1)
	}
	if cfg.AMQPURL == "" {
		logger.Error("AMQP_URL is required for the ingestion worker")
		os.Exit(1)
	}

	store, err := storage.NewSQLiteStore(cfg.SQLiteDBPath)
	if err != nil {
		logger.Error("Failed to open ledger database", log.FieldError, err, "path", cfg.SQLiteDBPath)
		os.Exit(1)
	}
	defer store.Close()

	extractor := extract.NewGeminiExtractor(cfg.GeminiModel, cfg.GeminiAPIKey, cfg.ExtractionTimeout)
	ingestor := ingest.NewService(store, extractor, logger)

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", log.FieldError, err)
		os.Exit(1)
	}
	defer amqpClient.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	handle := func(msg *amqp.StatementUploadedMessage) error {
		ingestCtx, cancel := context.WithTimeout(ctx, cfg.IngestTimeout)
		defer cancel()

		receipt, err := ingestor.IngestFile(ingestCtx, msg.PDFPath)
		if err != nil {
			logger.Error("Statement ingestion failed",
				log.FieldError, err,
				log.FieldPDFPath, msg.PDFPath,
				"upload_id", msg.UploadID)
			return err
		}
		logger.Info("Statement ingested",
			log.FieldStatementID, receipt.StatementID,
			log.FieldCardID, receipt.CardID,
			log.FieldCount, receipt.TransactionCount,
			"upload_id", msg.UploadID)
		return nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return amqpClient.ConsumeStatementUploads(gctx, handle)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Message consumption failed", log.FieldError, err)
		os.Exit(1)
	}
	logger.Info("Worker stopped gracefully")
}
