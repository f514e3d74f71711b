// Culturefeed - Content Personalization and Ranking Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/culturefeed

package recommend

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/tomtom215/culturefeed/internal/persistence"
	"github.com/tomtom215/culturefeed/internal/validation"
)

// ValidateEvent checks the required fields of an event.
func ValidateEvent(ev *InteractionEvent) error {
	verr := validation.ValidateStruct(ev)
	if verr == nil {
		return nil
	}
	fields := make([]FieldError, len(verr.Violations))
	for i, v := range verr.Violations {
		fields[i] = FieldError{Field: v.Field, Tag: v.Tag, Message: v.Message}
	}
	return &ValidationError{Fields: fields}
}

// InteractionStore is the append-only feedback log.
//
// Append is safe for concurrent callers. Persistence happens on a background
// writer; a failed save leaves the store working in memory.
type InteractionStore struct {
	mu     sync.RWMutex
	events []InteractionEvent

	now    func() time.Time
	logger zerolog.Logger

	provider persistence.Provider
	key      string
	health   *persistHealth
	saver    *backgroundSaver
}

// NewInteractionStore creates an empty store. A nil provider keeps the log in
// memory only.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func NewInteractionStore(provider persistence.Provider, cfg PersistenceConfig, health *persistHealth,
	now func() time.Time, logger zerolog.Logger) *InteractionStore {
	if now == nil {
		now = time.Now
	}
	if health == nil {
		health = newPersistHealth(logger)
	}
	s := &InteractionStore{
		now:      now,
		logger:   logger,
		provider: provider,
		key:      cfg.InteractionsKey,
		health:   health,
	}
	if provider != nil {
		s.saver = newBackgroundSaver(provider, cfg.InteractionsKey, cfg.SaveTimeout, s.encode, health)
	}
	return s
}

// Append validates ev and adds it to the log. A malformed event is rejected
// with a *ValidationError and not stored. The returned event carries the
// assigned id and timestamp.
func (s *InteractionStore) Append(ev InteractionEvent) (InteractionEvent, error) {
	if err := ValidateEvent(&ev); err != nil {
		s.logger.Warn().Err(err).Str("item_id", ev.ItemID).Str("type", string(ev.Type)).
			Msg("rejected interaction event")
		return ev, err
	}

	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}
	if ev.OccurredAt.IsZero() {
		ev.OccurredAt = s.now()
	}
	ev.CulturalTags = append([]string(nil), ev.CulturalTags...)
	ev.LanguageTags = append([]string(nil), ev.LanguageTags...)

	s.mu.Lock()
	s.events = append(s.events, ev)
	s.mu.Unlock()

	if s.saver != nil {
		s.saver.Trigger()
	}
	return ev, nil
}

// RecentWindow returns up to maxEvents events, most recent first.
// A non-positive maxEvents selects 50.
func (s *InteractionStore) RecentWindow(maxEvents int) []InteractionEvent {
	if maxEvents <= 0 {
		maxEvents = 50
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	n := len(s.events)
	if maxEvents > n {
		maxEvents = n
	}
	out := make([]InteractionEvent, 0, maxEvents)
	for i := n - 1; i >= n-maxEvents; i-- {
		out = append(out, s.events[i])
	}
	return out
}

// All returns every event in append order.
func (s *InteractionStore) All() []InteractionEvent {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]InteractionEvent(nil), s.events...)
}

// Len returns the number of stored events.
func (s *InteractionStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.events)
}

// Reset clears the log. This is the only way events are ever removed.
func (s *InteractionStore) Reset() {
	s.mu.Lock()
	s.events = nil
	s.mu.Unlock()

	s.logger.Info().Msg("interaction log reset")
	if s.saver != nil {
		s.saver.Trigger()
	}
}

// Load replaces the in-memory log with the persisted one. A missing blob
// leaves the log empty. Load failures are returned as *PersistenceError and
// leave the log unchanged.
func (s *InteractionStore) Load(ctx context.Context) error {
	if s.provider == nil {
		return nil
	}
	data, err := loadBlob(ctx, s.provider, s.key, s.health)
	if err != nil {
		return err
	}
	if data == nil {
		return nil
	}

	var events []InteractionEvent
	if err := json.Unmarshal(data, &events); err != nil {
		return s.health.report(OpLoad, s.key, fmt.Errorf("decode interaction log: %w", err))
	}

	s.mu.Lock()
	s.events = events
	s.mu.Unlock()

	s.logger.Debug().Int("events", len(events)).Msg("interaction log restored")
	return nil
}

// Close flushes pending writes and stops the background writer.
func (s *InteractionStore) Close() {
	if s.saver != nil {
		s.saver.Close()
	}
}

func (s *InteractionStore) encode() ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	events := s.events
	if events == nil {
		events = []InteractionEvent{}
	}
	data, err := json.Marshal(events)
	if err != nil {
		return nil, fmt.Errorf("encode interaction log: %w", err)
	}
	return data, nil
}
