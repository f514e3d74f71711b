// Culturefeed - Content Personalization and Ranking Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/culturefeed

package recommend

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/tomtom215/culturefeed/internal/metrics"
	"github.com/tomtom215/culturefeed/internal/persistence"
)

// BuildProfile derives a profile from an event window. It is a pure function
// of its inputs: the same window and config always yield the same lists.
//
// like and bookmark add PositiveWeight to every cultural tag, language tag and
// the content type of the event. skip and hide subtract NegativeWeight from
// the cultural tags only. Other types carry no signal.
func BuildProfile(window []InteractionEvent, cfg ProfileConfig) PreferenceProfile {
	cultural := make(map[string]float64)
	language := make(map[string]float64)
	contentType := make(map[string]float64)

	for i := range window {
		ev := &window[i]
		switch {
		case ev.Type.IsPositive():
			for _, tag := range ev.CulturalTags {
				cultural[tag] += cfg.PositiveWeight
			}
			for _, tag := range ev.LanguageTags {
				language[tag] += cfg.PositiveWeight
			}
			if ev.ContentType != "" {
				contentType[string(ev.ContentType)] += cfg.PositiveWeight
			}
		case ev.Type.IsNegative():
			for _, tag := range ev.CulturalTags {
				cultural[tag] -= cfg.NegativeWeight
			}
		}
	}

	return PreferenceProfile{
		CulturalInterests:  rankWeights(cultural, cfg.CulturalTopK),
		LanguageGoals:      rankWeights(language, cfg.LanguageTopK),
		ContentTypeWeights: rankWeights(contentType, cfg.ContentTypeTopK),
		EventCount:         len(window),
	}
}

// rankWeights drops non-positive weights, sorts by weight descending (key
// ascending on ties) and keeps the top k.
func rankWeights(weights map[string]float64, k int) []WeightedKey {
	out := make([]WeightedKey, 0, len(weights))
	for key, w := range weights {
		if w > 0 {
			out = append(out, WeightedKey{Key: key, Weight: w})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Weight != out[j].Weight {
			return out[i].Weight > out[j].Weight
		}
		return out[i].Key < out[j].Key
	})
	if k >= 0 && len(out) > k {
		out = out[:k]
	}
	return out
}

// PreferenceModel holds the current profile of a session and rebuilds it
// from the interaction log on demand.
type PreferenceModel struct {
	cfg    ProfileConfig
	now    func() time.Time
	logger zerolog.Logger

	// recomputeMu serializes window read, build and install, so the last
	// profile installed is always built from the newest window.
	recomputeMu sync.Mutex

	mu      sync.RWMutex
	profile PreferenceProfile
	version uint64

	provider persistence.Provider
	key      string
	health   *persistHealth
	saver    *backgroundSaver
}

// NewPreferenceModel creates a model with an empty profile.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func NewPreferenceModel(cfg ProfileConfig, provider persistence.Provider, pcfg PersistenceConfig,
	health *persistHealth, now func() time.Time, logger zerolog.Logger) *PreferenceModel {
	if now == nil {
		now = time.Now
	}
	if health == nil {
		health = newPersistHealth(logger)
	}
	m := &PreferenceModel{
		cfg:      cfg,
		now:      now,
		logger:   logger,
		provider: provider,
		key:      pcfg.ProfileKey,
		health:   health,
	}
	if provider != nil {
		m.saver = newBackgroundSaver(provider, pcfg.ProfileKey, pcfg.SaveTimeout, m.encode, health)
	}
	return m
}

// Recompute rebuilds the profile from the store's recent window and replaces
// the current one. The store is only read.
func (m *PreferenceModel) Recompute(store *InteractionStore) PreferenceProfile {
	m.recomputeMu.Lock()
	defer m.recomputeMu.Unlock()

	start := time.Now()
	window := store.RecentWindow(m.cfg.WindowSize)
	profile := BuildProfile(window, m.cfg)
	profile.ComputedAt = m.now()

	m.mu.Lock()
	m.version++
	profile.Version = m.version
	m.profile = profile
	m.mu.Unlock()

	metrics.RecordProfileRecompute(time.Since(start))
	m.logger.Debug().
		Uint64("version", profile.Version).
		Int("events", profile.EventCount).
		Int("cultural", len(profile.CulturalInterests)).
		Int("language", len(profile.LanguageGoals)).
		Msg("preference profile recomputed")

	if m.saver != nil {
		m.saver.Trigger()
	}
	return profile.Clone()
}

// Current returns a copy of the current profile.
func (m *PreferenceModel) Current() PreferenceProfile {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.profile.Clone()
}

// Version returns the version of the current profile.
func (m *PreferenceModel) Version() uint64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.version
}

// Load restores the last-good profile. It reports whether one was found.
func (m *PreferenceModel) Load(ctx context.Context) (bool, error) {
	if m.provider == nil {
		return false, nil
	}
	data, err := loadBlob(ctx, m.provider, m.key, m.health)
	if err != nil || data == nil {
		return false, err
	}

	var profile PreferenceProfile
	if err := json.Unmarshal(data, &profile); err != nil {
		return false, m.health.report(OpLoad, m.key, fmt.Errorf("decode profile: %w", err))
	}

	m.mu.Lock()
	m.version++
	profile.Version = m.version
	m.profile = profile
	m.mu.Unlock()
	return true, nil
}

// Close flushes the pending profile write.
func (m *PreferenceModel) Close() {
	if m.saver != nil {
		m.saver.Close()
	}
}

func (m *PreferenceModel) encode() ([]byte, error) {
	m.mu.RLock()
	profile := m.profile.Clone()
	m.mu.RUnlock()

	data, err := json.Marshal(profile)
	if err != nil {
		return nil, fmt.Errorf("encode profile: %w", err)
	}
	return data, nil
}
