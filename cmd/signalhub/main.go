// Command signalhub runs the peer-discovery and signaling relay: it loads
// configuration, wires logging/metrics, and serves the signaling upgrade
// path until told to shut down.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/Vishwa1011-AFK/ConnectShare/internal/config"
	"github.com/Vishwa1011-AFK/ConnectShare/internal/hub"
	"github.com/Vishwa1011-AFK/ConnectShare/internal/observability"
)

func main() {
	configPath, logLevelOverride := parseFlags(os.Args[1:])

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
	if logLevelOverride != "" {
		cfg.Service.LogLevel = logLevelOverride
	}

	logger, err := observability.NewLogger(cfg.Service.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error initializing logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	observability.Register()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("signalhub exited with error", zap.Error(err))
	}
}

func parseFlags(args []string) (configPath, logLevel string) {
	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "--config":
			if i+1 < len(args) {
				configPath = args[i+1]
				i++
			}
		case "--log-level":
			if i+1 < len(args) {
				logLevel = args[i+1]
				i++
			}
		}
	}
	return
}

func run(cfg *config.Config, logger *zap.Logger) error {
	logger.Info("starting signalhub",
		zap.String("listen", cfg.Service.Listen),
		zap.String("signaling_path", cfg.Service.SignalingPath),
	)

	registry := hub.NewRegistry()
	metrics := observability.HubMetrics{}
	router := hub.NewRouter(registry, metrics)

	opts := hub.Options{
		MaxFrameBytes:      cfg.Hub.MaxFrameBytes,
		MaxNameLength:      cfg.Hub.MaxNameLength,
		OutboundQueueDepth: cfg.Hub.OutboundQueueDepth,
		WriteTimeout:       cfg.Hub.WriteTimeout(),
		ReadIdleTimeout:    cfg.Hub.ReadIdleTimeout(),
	}
	listener := hub.NewListener(hub.ListenerConfig{
		SignalingPath:  cfg.Service.SignalingPath,
		AllowedOrigins: cfg.Hub.AllowedOrigins,
		Options:        opts,
	}, registry, router, logger.Named("hub"), metrics)

	httpServer := &http.Server{
		Addr:    cfg.Service.Listen,
		Handler: listener.Mux(),
	}

	serveErr := make(chan error, 1)
	go func() {
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serveErr <- err
			return
		}
		serveErr <- nil
	}()

	logger.Info("signalhub listening")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)

	select {
	case sig := <-sigCh:
		logger.Info("received shutdown signal", zap.String("signal", sig.String()))
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	}

	shutdownTimeout := time.Duration(cfg.Service.ShutdownTimeoutSeconds) * time.Second
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown error", zap.Error(err))
	}

	listener.Shutdown(shutdownCtx)

	logger.Info("signalhub stopped")
	return nil
}
