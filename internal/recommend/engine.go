// Culturefeed - Content Personalization and Ranking Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/culturefeed

package recommend

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/culturefeed/internal/persistence"
)

// Engine is the personalization engine of one user session.
// It is safe for concurrent use.
type Engine struct {
	config *Config
	logger zerolog.Logger
	now    func() time.Time

	provider  persistence.Provider
	scheduler Scheduler
	sink      EventSink
	health    *persistHealth

	store    *InteractionStore
	model    *PreferenceModel
	sections *SectionRetriever
	feedback *FeedbackLoop

	started   atomic.Bool
	closed    atomic.Bool
	closeOnce sync.Once
}

// Option configures optional collaborators of an Engine.
type Option func(*Engine)

// WithPersistence stores the interaction log and profile in p.
func WithPersistence(p persistence.Provider) Option {
	return func(e *Engine) { e.provider = p }
}

// WithScheduler replaces the timer-based debouncer.
func WithScheduler(s Scheduler) Option {
	return func(e *Engine) { e.scheduler = s }
}

// WithEventSink publishes accepted interaction events to s.
func WithEventSink(s EventSink) Option {
	return func(e *Engine) { e.sink = s }
}

// WithClock overrides the engine clock used for scoring and timestamps.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// NewEngine creates an engine. A nil cfg selects DefaultConfig.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func NewEngine(cfg *Config, catalog CatalogProvider, logger zerolog.Logger, opts ...Option) (*Engine, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if catalog == nil {
		return nil, errors.New("catalog provider is required")
	}

	e := &Engine{
		config: cfg.Clone(),
		logger: logger.With().Str("component", "recommend").Logger(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}

	e.health = newPersistHealth(e.logger)
	e.store = NewInteractionStore(e.provider, e.config.Persistence, e.health, e.now, e.logger)
	e.model = NewPreferenceModel(e.config.Profile, e.provider, e.config.Persistence, e.health, e.now, e.logger)
	e.sections = NewSectionRetriever(e.config, catalog, e.model, e.now, e.logger)
	e.feedback = NewFeedbackLoop(e.store, e.model, e.sections, e.scheduler, e.config.Feedback, e.sink, e.logger)

	return e, nil
}

// Start restores persisted state. Persistence failures are logged and the
// engine continues with an empty in-memory state. Start is idempotent.
func (e *Engine) Start(ctx context.Context) error {
	if e.closed.Load() {
		return ErrEngineClosed
	}
	if !e.started.CompareAndSwap(false, true) {
		return nil
	}

	if err := e.store.Load(ctx); err != nil {
		e.logger.Warn().Err(err).Msg("starting with empty interaction log")
	}
	found, err := e.model.Load(ctx)
	if err != nil {
		e.logger.Warn().Err(err).Msg("could not restore preference profile")
	}
	if !found && e.store.Len() > 0 {
		e.model.Recompute(e.store)
	}

	e.logger.Info().
		Int("events", e.store.Len()).
		Bool("profile_restored", found).
		Int("sections", len(e.config.Sections)).
		Msg("engine started")
	return nil
}

// GetSection returns the current snapshot of a section without blocking.
func (e *Engine) GetSection(id string) (SectionSnapshot, error) {
	return e.sections.Get(id)
}

// RefreshSection triggers an asynchronous refresh of a section. The channel
// is closed when that refresh has been applied or superseded.
func (e *Engine) RefreshSection(id string) (<-chan struct{}, error) {
	return e.sections.Refresh(id)
}

// RefreshAll triggers a refresh of every configured section.
func (e *Engine) RefreshAll() error {
	var errs []error
	for _, id := range e.sections.SectionIDs() {
		if _, err := e.sections.Refresh(id); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// RecordFeedback records user feedback on an item.
func (e *Engine) RecordFeedback(ctx context.Context, itemID string, eventType EventType, tags TagsSnapshot) error {
	if e.closed.Load() {
		return ErrEngineClosed
	}
	return e.feedback.Record(ctx, itemID, eventType, tags)
}

// CurrentProfile returns a copy of the current preference profile.
func (e *Engine) CurrentProfile() PreferenceProfile {
	return e.model.Current()
}

// RecomputeNow rebuilds the profile from the log now and marks
// profile-dependent sections stale.
func (e *Engine) RecomputeNow() PreferenceProfile {
	return e.feedback.RecomputeNow()
}

// Interactions returns the full interaction log in append order.
func (e *Engine) Interactions() []InteractionEvent {
	return e.store.All()
}

// InteractionCount returns the length of the interaction log.
func (e *Engine) InteractionCount() int {
	return e.store.Len()
}

// RecentInteractions returns up to n events, most recent first.
func (e *Engine) RecentInteractions(n int) []InteractionEvent {
	return e.store.RecentWindow(n)
}

// ResetInteractions clears the log and rebuilds the (now empty) profile.
func (e *Engine) ResetInteractions() {
	e.store.Reset()
	e.feedback.RecomputeNow()
}

// SectionIDs returns the configured section ids.
func (e *Engine) SectionIDs() []string {
	return e.sections.SectionIDs()
}

// Config returns a copy of the engine configuration.
func (e *Engine) Config() *Config {
	return e.config.Clone()
}

// PersistenceHealthy reports whether the last persistence operation succeeded.
func (e *Engine) PersistenceHealthy() bool {
	return !e.health.Failing()
}

// Close flushes pending work, cancels in-flight fetches and flushes
// persistence. It is safe to call more than once.
func (e *Engine) Close() error {
	e.closeOnce.Do(func() {
		e.closed.Store(true)
		e.feedback.Close()
		e.sections.Close()
		e.store.Close()
		e.model.Close()
		e.logger.Debug().Msg("engine closed")
	})
	return nil
}
