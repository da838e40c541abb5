// Command switchboard runs the credit-report ingestion and decision service.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/ZootimusMaximus/underwrite-iq-lite-sub001/internal/blob"
	"github.com/ZootimusMaximus/underwrite-iq-lite-sub001/internal/config"
	"github.com/ZootimusMaximus/underwrite-iq-lite-sub001/internal/crm"
	"github.com/ZootimusMaximus/underwrite-iq-lite-sub001/internal/dedupe"
	"github.com/ZootimusMaximus/underwrite-iq-lite-sub001/internal/extraction"
	"github.com/ZootimusMaximus/underwrite-iq-lite-sub001/internal/logging"
	"github.com/ZootimusMaximus/underwrite-iq-lite-sub001/internal/server"
)

func main() {
	configPath := flag.String("config", "", "path to YAML config file (optional)")
	flag.Parse()

	// Local development convenience; deploys set real environment variables.
	_ = godotenv.Load()

	if err := run(*configPath); err != nil {
		fmt.Fprintf(os.Stderr, "switchboard: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg, err := config.LoadWithFile(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := logging.New(cfg.Log)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer func() { _ = logging.Sync(logger) }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := dedupe.NewRedisStore(ctx, cfg.Cache)
	if err != nil {
		// The service degrades to passthrough rather than refusing to start.
		logger.Warn("dedupe cache unreachable, running without deduplication", zap.Error(err))
		store = nil
	}
	cache := dedupe.New(store, logger)
	defer func() { _ = cache.Close() }()

	extractor := extraction.New(cfg.Extraction, logger)
	uploader := blob.New(cfg.Blob.Token, cfg.Blob.BaseURL, logger)
	notifier := crm.New(cfg.CRM.APIBase, cfg.CRM.PrivateKey, cfg.CRM.LocationID, logger)

	logger.Info("collaborators initialized",
		zap.Bool("extraction", extractor.Available()),
		zap.Bool("storage", uploader.Available()),
		zap.Bool("cache", cache.Available()),
		zap.Bool("crm", notifier.Available()),
		zap.Bool("identity_gate", cfg.Identity.VerificationEnabled),
	)

	pipeline := server.NewPipeline(extractor, uploader, notifier, cache,
		cfg.Redirect, cfg.Identity.VerificationEnabled, logger)
	srv := server.New(cfg.Server, pipeline, extractor, uploader, cache, logger)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	logger.Info("shutdown complete")
	return nil
}
