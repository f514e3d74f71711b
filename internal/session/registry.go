// Culturefeed - Content Personalization and Ranking Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/culturefeed

package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/culturefeed/internal/metrics"
	"github.com/tomtom215/culturefeed/internal/persistence"
	"github.com/tomtom215/culturefeed/internal/recommend"
)

// ErrRegistryClosed is returned by Get after Close.
var ErrRegistryClosed = errors.New("session registry is closed")

// Factory builds a (not yet started) engine for a user.
type Factory func(userID string) (*recommend.Engine, error)

// SinkSource hands out per-user event sinks.
type SinkSource interface {
	ForUser(userID string) recommend.EventSink
}

// Config configures a Registry.
type Config struct {
	// MaxSessions caps the number of live engines. Default: 1000
	MaxSessions int

	// IdleTTL evicts engines not accessed for this long. Zero disables
	// idle eviction.
	IdleTTL time.Duration

	// Now overrides the clock used for idle expiry.
	Now func() time.Time
}

// Registry holds one engine per active user. Engines are created and
// started on first access and closed when evicted.
type Registry struct {
	factory Factory
	logger  zerolog.Logger
	engines *lru[*recommend.Engine]

	// createMu serializes engine creation so one user never gets two.
	createMu sync.Mutex
	closed   bool
}

// NewRegistry creates a registry.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func NewRegistry(cfg Config, factory Factory, logger zerolog.Logger) *Registry {
	r := &Registry{
		factory: factory,
		logger:  logger.With().Str("component", "session").Logger(),
	}
	r.engines = newLRU(cfg.MaxSessions, cfg.IdleTTL, cfg.Now, r.onEvict)
	return r
}

// NewEngineFactory returns a Factory building engines that share cfg and
// catalog. Each user's state is stored under "users/<id>/" in store, and
// accepted events go to sinks when it is non-nil.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func NewEngineFactory(cfg *recommend.Config, catalog recommend.CatalogProvider, store persistence.Provider,
	sinks SinkSource, logger zerolog.Logger) Factory {
	return func(userID string) (*recommend.Engine, error) {
		var opts []recommend.Option
		if store != nil {
			opts = append(opts, recommend.WithPersistence(persistence.Namespace(store, "users/"+userID)))
		}
		if sinks != nil {
			opts = append(opts, recommend.WithEventSink(sinks.ForUser(userID)))
		}
		return recommend.NewEngine(cfg, catalog, logger.With().Str("user_id", userID).Logger(), opts...)
	}
}

// Get returns the engine of userID, creating and starting it if needed.
func (r *Registry) Get(ctx context.Context, userID string) (*recommend.Engine, error) {
	if e, ok := r.engines.get(userID); ok {
		return e, nil
	}

	r.createMu.Lock()
	defer r.createMu.Unlock()

	if r.closed {
		return nil, ErrRegistryClosed
	}
	if e, ok := r.engines.get(userID); ok {
		return e, nil
	}

	e, err := r.factory(userID)
	if err != nil {
		return nil, fmt.Errorf("create engine for user %q: %w", userID, err)
	}
	if err := e.Start(ctx); err != nil {
		_ = e.Close()
		return nil, fmt.Errorf("start engine for user %q: %w", userID, err)
	}

	r.engines.add(userID, e)
	metrics.ActiveSessions.Set(float64(r.engines.len()))
	r.logger.Debug().Str("user_id", userID).Msg("session started")
	return e, nil
}

// Lookup returns the engine of userID if it is live, without creating one.
func (r *Registry) Lookup(userID string) (*recommend.Engine, bool) {
	return r.engines.get(userID)
}

// Users returns the ids of live sessions, most recently used first.
func (r *Registry) Users() []string {
	return r.engines.keys()
}

// Each calls fn for every live session without refreshing its idle timer.
func (r *Registry) Each(fn func(userID string, e *recommend.Engine)) {
	for _, id := range r.engines.keys() {
		if e, ok := r.engines.peek(id); ok {
			fn(id, e)
		}
	}
}

// Len returns the number of live sessions.
func (r *Registry) Len() int {
	return r.engines.len()
}

// Evict closes and removes the session of userID.
func (r *Registry) Evict(userID string) bool {
	return r.engines.remove(userID)
}

// CleanupExpired closes idle sessions and returns how many were evicted.
func (r *Registry) CleanupExpired() int {
	return r.engines.cleanupExpired()
}

// Close closes every session. Later calls to Get fail.
func (r *Registry) Close() {
	r.createMu.Lock()
	r.closed = true
	r.createMu.Unlock()
	r.engines.clear(ReasonClosed)
}

func (r *Registry) onEvict(userID string, e *recommend.Engine, reason string) {
	if err := e.Close(); err != nil {
		r.logger.Warn().Err(err).Str("user_id", userID).Msg("failed to close evicted engine")
	}
	metrics.RecordSessionEviction(reason)
	metrics.ActiveSessions.Set(float64(r.engines.len()))
	r.logger.Debug().Str("user_id", userID).Str("reason", reason).Msg("session evicted")
}
