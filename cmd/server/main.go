// Package main is the entry point for the plaquette reduction service.
//
// On start it reduces the recorded result batch described by the experiment
// file, stores the run, and then optionally serves stored runs over HTTP until
// it receives SIGINT or SIGTERM.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aristath/plaquette/internal/config"
	"github.com/aristath/plaquette/internal/di"
	"github.com/aristath/plaquette/internal/server"
	"github.com/aristath/plaquette/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fallbackLog := logger.New(logger.Config{Level: "info", Pretty: true})
		fallbackLog.Fatal().Err(err).Msg("Failed to load configuration")
	}

	log := logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Pretty: cfg.DevMode,
	})
	logger.SetGlobalLogger(log)

	log.Info().Str("data_dir", cfg.DataDir).Msg("Starting plaquette")

	container, err := di.Wire(cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to wire dependencies")
	}
	defer container.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	run, table, err := di.Reduce(ctx, container, cfg, log)
	if err != nil {
		log.Error().Err(err).Msg("Reduction failed")
		container.Close()
		os.Exit(1)
	}

	failed := 0
	for _, e := range table.Extrapolations {
		if e.Err != nil {
			failed++
		}
	}
	log.Info().
		Str("run_id", run.ID).
		Int("records", run.RecordCount).
		Int("skipped", run.SkippedCount).
		Int("extrapolations", len(table.Extrapolations)).
		Int("extrapolations_failed", failed).
		Msg("Run stored")

	if cfg.Port == 0 {
		return
	}

	srv := server.New(server.Config{
		Log:     log,
		Health:  container.RunsDB,
		Runs:    container.Runs,
		Port:    cfg.Port,
		DevMode: cfg.DevMode,
	})

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}
	log.Info().Msg("Server stopped")
}
