// Culturefeed - Content Personalization and Ranking Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/culturefeed

package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

// defaultDrainTimeout bounds how long in-flight requests may run after
// cancellation. It covers refresh?wait calls at their default bound.
const defaultDrainTimeout = 15 * time.Second

// errAPIClosed is returned when the listener stops without the supervisor
// asking it to.
var errAPIClosed = errors.New("feed API closed outside the supervisor")

// APIServer is the subset of *http.Server the service drives.
type APIServer interface {
	ListenAndServe() error
	Shutdown(ctx context.Context) error
}

// APIService serves the feed API in the supervisor's api layer. On
// cancellation it stops accepting connections and lets in-flight feedback
// and refresh calls finish within the drain timeout, so their sessions are
// still open when the registry flushes them.
type APIService struct {
	server APIServer
	addr   string
	drain  time.Duration
	logger zerolog.Logger
}

// NewAPIService wraps server listening on addr. A non-positive drain uses
// defaultDrainTimeout.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func NewAPIService(server APIServer, addr string, drain time.Duration, logger zerolog.Logger) *APIService {
	if drain <= 0 {
		drain = defaultDrainTimeout
	}
	return &APIService{
		server: server,
		addr:   addr,
		drain:  drain,
		logger: logger.With().Str("service", "feed-api").Str("addr", addr).Logger(),
	}
}

// Serve implements suture.Service. Listen failures and unexpected closes are
// returned so the supervisor restarts the listener.
func (s *APIService) Serve(ctx context.Context) error {
	listenErr := make(chan error, 1)
	go func() { listenErr <- s.server.ListenAndServe() }()
	s.logger.Info().Msg("feed API listening")

	select {
	case err := <-listenErr:
		if err == nil || errors.Is(err, http.ErrServerClosed) {
			return errAPIClosed
		}
		return fmt.Errorf("listen on %s: %w", s.addr, err)
	case <-ctx.Done():
	}

	drainCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.drain)
	defer cancel()
	start := time.Now()
	err := s.server.Shutdown(drainCtx)
	<-listenErr
	if err != nil {
		return fmt.Errorf("drain feed API: %w", err)
	}
	s.logger.Info().Dur("drained_in", time.Since(start)).Msg("feed API stopped")
	return ctx.Err()
}

func (s *APIService) String() string {
	return "feed-api"
}
