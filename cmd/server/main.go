package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/omochice/toy-hot-reload/internal/assets"
	"github.com/omochice/toy-hot-reload/internal/config"
	"github.com/omochice/toy-hot-reload/internal/liveness"
	"github.com/omochice/toy-hot-reload/internal/logging"
	"github.com/omochice/toy-hot-reload/internal/transport/ws"
)

func main() {
	configPath := flag.String("config", "", "Path to YAML config file (defaults apply when empty)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fatal(err)
	}

	logger, err := logging.New(os.Stdout, cfg.LogLevel)
	if err != nil {
		fatal(err)
	}

	fsys, err := assets.FileSystem(cfg.Server.LiveAssets, cfg.Server.AssetsDir, logger)
	if err != nil {
		logger.Error("Failed to load assets", "err", err)
		os.Exit(1)
	}

	registry := liveness.NewRegistry(logger)
	srv := ws.New(cfg.Server.Addr, registry, ws.WithAssets(fsys), ws.WithLogger(logger))

	// Handle graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	errChan := make(chan error, 1)
	go func() {
		logger.Info("Starting liveness server", "addr", cfg.Server.Addr)
		errChan <- srv.Start()
	}()

	select {
	case err := <-errChan:
		if err != nil {
			var bindErr *liveness.BindError
			if errors.As(err, &bindErr) {
				logger.Error("Port unavailable, hot reload disabled for this run", "addr", bindErr.Addr, "err", bindErr.Err)
			} else {
				logger.Error("Server error", "err", err)
			}
			os.Exit(1)
		}
	case sig := <-sigChan:
		logger.Info("Received signal, shutting down...", "signal", sig)
		srv.Stop()
	}

	logger.Info("Liveness server stopped")
}

func fatal(err error) {
	fmt.Fprintln(os.Stderr, err)
	os.Exit(1)
}
