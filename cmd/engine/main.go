package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/ledgerlens/forensic-audit-engine/internal/api/rest"
	"github.com/ledgerlens/forensic-audit-engine/internal/infrastructure/config"
	"github.com/ledgerlens/forensic-audit-engine/internal/infrastructure/telemetry"
	"github.com/ledgerlens/forensic-audit-engine/internal/infrastructure/workers"
	"github.com/ledgerlens/forensic-audit-engine/internal/metrics"
	"github.com/ledgerlens/forensic-audit-engine/internal/service/engine"
)

func main() {
	var configPath = flag.String("config", "", "Path to configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger, err := telemetry.SetupLogger(cfg.LogLevel)
	if err != nil {
		log.Fatalf("Failed to setup logger: %v", err)
	}
	slog.SetDefault(logger)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("engine exited", "error", err)
		cancel()
		log.Fatal(err)
	}
}

func run(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	telConfig := &telemetry.Config{
		ServiceName:    "audit-engine",
		ServiceVersion: cfg.Version,
		Environment:    cfg.Environment,
		OTLPEndpoint:   cfg.Telemetry.OTLPEndpoint,
		Enabled:        cfg.Telemetry.Enabled,
		SamplingRate:   cfg.Telemetry.SamplingRate,
		ExportTimeout:  cfg.Telemetry.ExportTimeout,
		BatchTimeout:   cfg.Telemetry.BatchTimeout,
	}

	provider, err := telemetry.InitializeOpenTelemetry(ctx, telConfig)
	if err != nil {
		return fmt.Errorf("initialize telemetry: %w", err)
	}
	defer func() {
		if err := provider.Shutdown(context.Background()); err != nil {
			logger.Warn("telemetry shutdown", "error", err)
		}
	}()

	zapLogger, err := zap.NewProduction()
	if err != nil {
		return fmt.Errorf("initialize zap: %w", err)
	}
	defer zapLogger.Sync()

	registry, err := metrics.NewRegistry("audit-engine")
	if err != nil {
		return fmt.Errorf("initialize metrics: %w", err)
	}

	pool := workers.NewPool(cfg.Engine.Parallelism, zapLogger)
	svc := engine.NewService(pool, logger, registry, rest.EngineOptions(cfg))

	logger.Info("starting forensic audit engine",
		"version", cfg.Version,
		"environment", cfg.Environment,
		"port", cfg.Server.Port,
	)

	return rest.NewServer(cfg, svc, logger).Run(ctx)
}
