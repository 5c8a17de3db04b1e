package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"os/signal"
	"syscall"

	"github.com/omochice/toy-hot-reload/internal/client"
	"github.com/omochice/toy-hot-reload/internal/client/ws"
	"github.com/omochice/toy-hot-reload/internal/config"
	"github.com/omochice/toy-hot-reload/internal/logging"
)

func main() {
	configPath := flag.String("config", "", "Path to YAML config file (defaults apply when empty)")
	command := flag.String("exec", "", "Shell command to run on every reload (e.g. a browser refresh script)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fatal(err)
	}
	if *command != "" {
		cfg.Client.Exec = *command
	}

	logger, err := logging.New(os.Stderr, cfg.LogLevel)
	if err != nil {
		fatal(err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Each reload starts a fresh channel, as a page load would.
	reloads := make(chan struct{}, 1)
	reloader := client.ReloadFunc(func() {
		select {
		case reloads <- struct{}{}:
		default:
		}
	})

	dialer := ws.NewDialer()
	newChannel := func() *client.Channel {
		ch := client.New(dialer, reloader,
			client.WithURL(cfg.Client.URL),
			client.WithReloadDelay(cfg.Client.ReloadDelay),
			client.WithLogger(logger),
		)
		ch.Init()
		return ch
	}

	logger.Info("Watching liveness server", "url", cfg.Client.URL)
	newChannel()

	for {
		select {
		case <-ctx.Done():
			logger.Info("Stopped watching")
			return
		case <-reloads:
			logger.Info("Reloading")
			if cfg.Client.Exec != "" {
				runHook(ctx, cfg.Client.Exec, logger)
			}
			newChannel()
		}
	}
}

func runHook(ctx context.Context, command string, logger *slog.Logger) {
	cmd := exec.CommandContext(ctx, "sh", "-c", command)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		logger.Error("Reload command failed", "command", command, "err", err)
	}
}

func fatal(err error) {
	fmt.Fprintln(os.Stderr, err)
	os.Exit(1)
}
