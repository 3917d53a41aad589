package rest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ledgerlens/forensic-audit-engine/internal/analysis/actor"
	"github.com/ledgerlens/forensic-audit-engine/internal/analysis/benford"
	"github.com/ledgerlens/forensic-audit-engine/internal/analysis/entropy"
	"github.com/ledgerlens/forensic-audit-engine/internal/analysis/isoforest"
	"github.com/ledgerlens/forensic-audit-engine/internal/analysis/sequence"
	"github.com/ledgerlens/forensic-audit-engine/internal/infrastructure/config"
	"github.com/ledgerlens/forensic-audit-engine/internal/service/engine"
)

// Server is the HTTP front of the engine
type Server struct {
	cfg        *config.Config
	httpServer *http.Server
	logger     *slog.Logger
}

// NewServer wires the handler, middleware stack, and metrics endpoint
func NewServer(cfg *config.Config, svc engine.Service, logger *slog.Logger) *Server {
	handler := NewHandler(svc, logger, cfg.Version)

	mux := http.NewServeMux()
	handler.Routes(mux)
	mux.Handle("GET /metrics", promhttp.Handler())

	wrapped := chain(mux,
		recoveryMiddleware,
		requestIDMiddleware,
		loggingMiddleware,
		metricsMiddleware,
		rateLimitMiddleware(cfg.Server.RateLimit.RequestsPerSecond, cfg.Server.RateLimit.BurstSize),
	)

	return &Server{
		cfg:    cfg,
		logger: logger,
		httpServer: &http.Server{
			Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
			Handler:      wrapped,
			ReadTimeout:  cfg.Server.ReadTimeout,
			WriteTimeout: cfg.Server.WriteTimeout,
		},
	}
}

// Run serves until ctx is canceled, then drains within the configured
// shutdown timeout.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)

	go func() {
		s.logger.Info("http server listening", "addr", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.Server.ShutdownTimeout)
	defer cancel()

	s.logger.Info("http server shutting down")
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

// EngineOptions maps the loaded configuration onto the engine's
// per-call defaults.
func EngineOptions(cfg *config.Config) engine.Options {
	a := cfg.Analysis
	return engine.Options{
		Benford: benford.Config{MinSampleSize: a.Benford.MinSampleSize},
		Entropy: entropy.Config{RarityThreshold: a.Entropy.RarityThreshold},
		Sequence: sequence.Config{
			LowMax:             a.Sequence.LowMax,
			MediumMax:          a.Sequence.MediumMax,
			MissingIDSampleCap: a.Sequence.MissingIDSampleCap,
		},
		Forest: isoforest.Config{
			Trees:         a.Forest.Trees,
			SubsampleSize: a.Forest.SubsampleSize,
			Threshold:     a.Forest.Threshold,
			Seed:          a.Forest.Seed,
		},
		Actor: actor.Config{
			OffHoursStart:      a.Actor.OffHoursStart,
			OffHoursEnd:        a.Actor.OffHoursEnd,
			RoundAmountUnit:    a.Actor.RoundAmountUnit,
			HighValueThreshold: a.Actor.HighValueThreshold,
			SuspiciousCutoff:   a.Actor.SuspiciousCutoff,
			MediumScore:        a.Actor.MediumScore,
			HighScore:          a.Actor.HighScore,
			Weights: actor.Weights{
				Weekend:        a.Actor.Weights.Weekend,
				OffHours:       a.Actor.Weights.OffHours,
				RoundAmount:    a.Actor.Weights.RoundAmount,
				DuplicateAmt:   a.Actor.Weights.DuplicateAmt,
				HighValue:      a.Actor.Weights.HighValue,
				ConsecutiveRun: a.Actor.Weights.ConsecutiveRun,
			},
		},

		TimeBudget:  cfg.Engine.TimeBudget,
		Parallelism: cfg.Engine.Parallelism,
	}
}
