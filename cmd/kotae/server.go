package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hyperjump/kotae/internal/config"
	"github.com/hyperjump/kotae/internal/server"
	"github.com/hyperjump/kotae/internal/watcher"
	"go.uber.org/zap"
)

func runServer(args []string) {
	fs := flag.NewFlagSet("server", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	debug := fs.Bool("debug", false, "enable debug logging")
	_ = fs.Parse(args)

	cfg, resolvedConfigPath, logger, err := setup(*configPath, *debug)
	if err != nil {
		fatalf("%v", err)
	}
	defer logger.Sync()
	logger.Info("config loaded",
		zap.String("config_path", resolvedConfigPath),
		zap.Bool("debug", cfg.Debug))

	components, err := initializeComponents(cfg, config.LoadSecrets(), logger)
	if err != nil {
		logger.Fatal("Failed to initialize components", zap.Error(err))
	}
	defer components.Close()

	watchSvc, err := newWatcher(components, cfg.Ingest.Directories, logger)
	if err != nil {
		logger.Fatal("Failed to create watcher", zap.Error(err))
	}
	watchCtx, watchCancel := context.WithCancel(context.Background())
	defer watchCancel()
	if err := watchSvc.Start(watchCtx); err != nil {
		logger.Fatal("Failed to start watcher", zap.Error(err))
	}
	go watchSvc.SyncExistingFiles(watchCtx)

	srv := server.NewServer(
		components.Answerer,
		components.Index,
		components.Ingester,
		cfg,
		logger,
		server.WithLedger(components.Ledger),
		server.WithWatch(watchSvc, resolvedConfigPath),
	)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down...")
	watchCancel()
	watchSvc.Stop()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Stop(ctx)
	if err := components.SaveIndex(); err != nil {
		logger.Error("index save failed", zap.String("path", cfg.Storage.IndexPath), zap.Error(err))
	}
}

// newWatcher builds a watcher that ingests settled files through the components' ingester.
func newWatcher(c *Components, dirs []string, logger *zap.Logger) (*watcher.Watcher, error) {
	return watcher.New(
		dirs,
		c.Config.Ingest.RecursiveOrDefault(),
		c.Ingester.Accepts,
		func(ctx context.Context, path string) {
			res, err := c.Ingester.IngestFile(ctx, path)
			if err != nil {
				logger.Warn("watch ingest failed", zap.String("path", path), zap.Error(err))
				return
			}
			if !res.Skipped {
				logger.Info("file ingested", zap.String("path", res.Path), zap.Int("chunks", res.Chunks))
			}
		},
		watcher.WithLogger(logger),
	)
}
