// Culturefeed - Content Personalization and Ranking Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/culturefeed

// Package main runs the culturefeed server.
//
// Startup order:
//
//  1. .env (optional, godotenv) then configuration (koanf)
//  2. global logger
//  3. persistence store, catalog, event publisher
//  4. session registry and HTTP API
//  5. supervisor tree: HTTP server, scheduled refresh, feedback consumer
//
// SIGINT or SIGTERM cancels the tree; live sessions are then closed so their
// state is flushed to the store before the store itself is closed.
package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/tomtom215/culturefeed/internal/config"
	"github.com/tomtom215/culturefeed/internal/logging"
)

func main() {
	// A missing .env is the normal case in containers.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		logging.Warn().Err(err).Msg("failed to read .env")
	}

	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to load configuration")
	}
	logging.Init(cfg.Logging.Logging())

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		logging.Error().Err(err).Msg("culturefeed stopped with error")
		stop()
		os.Exit(1)
	}
	logging.Info().Msg("culturefeed stopped")
}

func run(ctx context.Context, cfg *config.Config) error {
	a, err := newApp(cfg, logging.Logger())
	if err != nil {
		return err
	}
	defer a.Close()

	logging.Info().
		Str("addr", cfg.Server.Addr()).
		Str("persistence", cfg.Persistence.Driver).
		Str("catalog", cfg.Catalog.Source).
		Str("events", cfg.Events.Backend).
		Msg("starting culturefeed")

	var serveErr error
	for err := range a.tree.ServeBackground(ctx) {
		if err != nil && !errors.Is(err, context.Canceled) {
			serveErr = err
		}
	}

	if unstopped, _ := a.tree.UnstoppedServiceReport(); len(unstopped) > 0 {
		for _, svc := range unstopped {
			logging.Warn().Str("service", svc.Name).Msg("service failed to stop within timeout")
		}
	}
	return serveErr
}
