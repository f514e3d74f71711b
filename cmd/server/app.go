// Culturefeed - Content Personalization and Ranking Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/culturefeed

package main

import (
	"fmt"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/tomtom215/culturefeed/internal/api"
	"github.com/tomtom215/culturefeed/internal/catalog"
	"github.com/tomtom215/culturefeed/internal/config"
	"github.com/tomtom215/culturefeed/internal/events"
	"github.com/tomtom215/culturefeed/internal/logging"
	"github.com/tomtom215/culturefeed/internal/persistence"
	"github.com/tomtom215/culturefeed/internal/session"
	"github.com/tomtom215/culturefeed/internal/supervisor"
	"github.com/tomtom215/culturefeed/internal/supervisor/services"
)

// app owns every long-lived collaborator of the server.
type app struct {
	store     persistence.Provider
	publisher *events.Publisher
	registry  *session.Registry
	handler   http.Handler
	tree      *supervisor.Tree
	logger    zerolog.Logger
}

// newApp builds the collaborators described by cfg. On error, everything
// built so far is closed.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func newApp(cfg *config.Config, logger zerolog.Logger) (a *app, err error) {
	a = &app{logger: logger}
	defer func() {
		if err != nil {
			a.Close()
			a = nil
		}
	}()

	a.store, err = persistence.Open(cfg.Persistence.Driver, cfg.Persistence.Path)
	if err != nil {
		return nil, fmt.Errorf("open persistence: %w", err)
	}

	cat, err := catalog.New(cfg.Catalog.Catalog(), logger)
	if err != nil {
		return nil, fmt.Errorf("create catalog: %w", err)
	}

	a.publisher, err = events.Open(cfg.Events.Backend, cfg.Events.NATS(), logger)
	if err != nil {
		return nil, fmt.Errorf("open event bus: %w", err)
	}
	// A nil *Publisher must not become a non-nil SinkSource.
	var sinks session.SinkSource
	if a.publisher != nil {
		sinks = a.publisher
	}

	engineCfg := cfg.Feed.EngineConfig()
	a.registry = session.NewRegistry(session.Config{
		MaxSessions: cfg.Sessions.MaxSessions,
		IdleTTL:     cfg.Sessions.IdleTTL,
	}, session.NewEngineFactory(engineCfg, cat, a.store, sinks, logger), logger)

	handler := api.NewHandler(a.registry)
	handler.MaxRefreshWait = cfg.Server.RefreshWaitMax
	a.handler = api.NewRouter(handler, api.NewMiddleware(api.MiddlewareConfig{
		CORSAllowedOrigins: cfg.Security.CORSOrigins,
		CORSMaxAge:         86400,
		RateLimitRequests:  cfg.Security.RateLimitRequests,
		RateLimitWindow:    cfg.Security.RateLimitWindow,
		RateLimitDisabled:  cfg.Security.RateLimitDisabled,
		FeedbackRateLimit:  cfg.Security.FeedbackRateLimit,
	}, logger))

	a.tree = supervisor.NewTree(logging.NewSlogLogger(logger.With().Str("component", "supervisor").Logger()),
		supervisor.TreeConfig{
			FailureThreshold: cfg.Supervisor.FailureThreshold,
			FailureDecay:     cfg.Supervisor.FailureDecay,
			FailureBackoff:   cfg.Supervisor.FailureBackoff,
			ShutdownTimeout:  cfg.Supervisor.ShutdownTimeout,
		})

	refresh, err := services.NewRefreshService(a.registry, services.RefreshServiceConfig{
		Schedules:       cfg.Schedule.RefreshSchedules(),
		CleanupSchedule: cfg.Schedule.SessionCleanup,
	}, logger)
	if err != nil {
		return nil, err
	}
	a.tree.AddDataService(refresh)

	if a.publisher != nil && cfg.Events.Consume {
		if sub := a.publisher.Subscriber(); sub != nil {
			a.tree.AddMessagingService(services.NewFeedbackConsumerService(sub, a.publisher.Topic(), nil, logger))
		}
	}

	a.tree.AddAPIService(services.NewAPIService(&http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      a.handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}, cfg.Server.Addr(), cfg.Server.ShutdownTimeout, logger))

	return a, nil
}

// Close shuts down in dependency order: sessions flush into the store and
// publisher first, then those are closed.
func (a *app) Close() {
	if a.registry != nil {
		a.registry.Close()
	}
	if a.publisher != nil {
		if err := a.publisher.Close(); err != nil {
			a.logger.Warn().Err(err).Msg("failed to close event publisher")
		}
	}
	if a.store != nil {
		if err := persistence.Close(a.store); err != nil {
			a.logger.Warn().Err(err).Msg("failed to close persistence")
		}
	}
}
