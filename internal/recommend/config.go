// Culturefeed - Content Personalization and Ranking Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/culturefeed

package recommend

import (
	"fmt"
	"time"

	"github.com/goccy/go-json"
)

// Config contains all configuration for one engine instance.
type Config struct {
	// Scoring holds the point values of the scoring terms.
	Scoring ScoringWeights `json:"scoring"`

	// Profile controls preference learning.
	Profile ProfileConfig `json:"profile"`

	// Ranking controls blended section ordering.
	Ranking RankingConfig `json:"ranking"`

	// Sections declares the sections the engine serves.
	Sections []SectionConfig `json:"sections"`

	// Fetch controls catalog access.
	Fetch FetchConfig `json:"fetch"`

	// Feedback controls recompute scheduling and event publication.
	Feedback FeedbackConfig `json:"feedback"`

	// Persistence controls how the log and profile are stored.
	Persistence PersistenceConfig `json:"persistence"`
}

// ScoringWeights are the point values of the five scoring terms and the
// freshness multipliers.
type ScoringWeights struct {
	// CulturalMatch is awarded when any cultural tag is in the profile.
	// Default: 30
	CulturalMatch float64 `json:"cultural_match"`

	// LanguageMatch is awarded when any language tag is in the profile.
	// Default: 25
	LanguageMatch float64 `json:"language_match"`

	// ContentTypeMatch is awarded when the content type is in the profile.
	// Default: 20
	ContentTypeMatch float64 `json:"content_type_match"`

	// LearningValue is the maximum contribution of learning value (0..100 scaled).
	// Default: 15
	LearningValue float64 `json:"learning_value"`

	// EngagementCap caps the engagement-rate term.
	// Default: 10
	EngagementCap float64 `json:"engagement_cap"`

	// FreshMultiplier applies to items younger than FreshWindow.
	// Default: 1.2
	FreshMultiplier float64 `json:"fresh_multiplier"`

	// StaleMultiplier applies to items older than StaleAfter.
	// Default: 0.8
	StaleMultiplier float64 `json:"stale_multiplier"`

	// FreshWindow is the age below which an item is fresh.
	// Default: 24h
	FreshWindow time.Duration `json:"fresh_window"`

	// StaleAfter is the age above which an item is stale.
	// Default: 168h (7 days)
	StaleAfter time.Duration `json:"stale_after"`
}

// MaxScore returns the largest score the weights can produce.
func (w ScoringWeights) MaxScore() float64 {
	sum := w.CulturalMatch + w.LanguageMatch + w.ContentTypeMatch + w.LearningValue + w.EngagementCap
	mult := w.FreshMultiplier
	if w.StaleMultiplier > mult {
		mult = w.StaleMultiplier
	}
	if mult < 1 {
		mult = 1
	}
	return sum * mult
}

// ProfileConfig controls PreferenceModel.
type ProfileConfig struct {
	// WindowSize is the number of most recent events considered.
	// Default: 50
	WindowSize int `json:"window_size"`

	// CulturalTopK bounds the cultural interest list.
	// Default: 10
	CulturalTopK int `json:"cultural_top_k"`

	// LanguageTopK bounds the language goal list.
	// Default: 5
	LanguageTopK int `json:"language_top_k"`

	// ContentTypeTopK bounds the content type list.
	// Default: 5
	ContentTypeTopK int `json:"content_type_top_k"`

	// PositiveWeight is added per tag for like and bookmark.
	// Default: 2
	PositiveWeight float64 `json:"positive_weight"`

	// NegativeWeight is subtracted per cultural tag for skip and hide.
	// Default: 1
	NegativeWeight float64 `json:"negative_weight"`
}

// RankingConfig controls blended kinds (similar, investment, community).
type RankingConfig struct {
	// SecondaryWeight scales the kind's secondary key (0..1) before it is
	// added to the score.
	// Default: 20
	SecondaryWeight float64 `json:"secondary_weight"`
}

// SectionConfig declares one section.
type SectionConfig struct {
	// ID is the section id used by callers.
	ID string `json:"id"`

	// Kind selects the sort strategy and is passed to the catalog.
	Kind SectionKind `json:"kind"`

	// Limit is the maximum number of items served.
	Limit int `json:"limit"`
}

// FetchConfig controls catalog access.
type FetchConfig struct {
	// Timeout bounds one FetchCandidates call.
	// Default: 10s
	Timeout time.Duration `json:"timeout"`

	// CandidateMultiplier asks the catalog for Limit*CandidateMultiplier
	// candidates so ranking has room before truncation.
	// Default: 3
	CandidateMultiplier int `json:"candidate_multiplier"`
}

// FeedbackConfig controls FeedbackLoop.
type FeedbackConfig struct {
	// DebounceInterval is the trailing delay before a profile recompute.
	// Default: 250ms
	DebounceInterval time.Duration `json:"debounce_interval"`

	// PublishTimeout bounds publication of one event to the EventSink.
	// Default: 2s
	PublishTimeout time.Duration `json:"publish_timeout"`
}

// PersistenceConfig controls background persistence.
type PersistenceConfig struct {
	// InteractionsKey is the key of the interaction log blob.
	// Default: "interactions"
	InteractionsKey string `json:"interactions_key"`

	// ProfileKey is the key of the last-good profile blob.
	// Default: "profile"
	ProfileKey string `json:"profile_key"`

	// SaveTimeout bounds one save call.
	// Default: 5s
	SaveTimeout time.Duration `json:"save_timeout"`
}

// DefaultSections returns the six standard sections.
func DefaultSections() []SectionConfig {
	return []SectionConfig{
		{ID: string(KindRecommended), Kind: KindRecommended, Limit: 20},
		{ID: string(KindTrending), Kind: KindTrending, Limit: 20},
		{ID: string(KindNew), Kind: KindNew, Limit: 20},
		{ID: string(KindSimilar), Kind: KindSimilar, Limit: 10},
		{ID: string(KindInvestment), Kind: KindInvestment, Limit: 10},
		{ID: string(KindCommunity), Kind: KindCommunity, Limit: 10},
	}
}

// DefaultConfig returns production defaults.
func DefaultConfig() *Config {
	return &Config{
		Scoring: ScoringWeights{
			CulturalMatch:    30,
			LanguageMatch:    25,
			ContentTypeMatch: 20,
			LearningValue:    15,
			EngagementCap:    10,
			FreshMultiplier:  1.2,
			StaleMultiplier:  0.8,
			FreshWindow:      24 * time.Hour,
			StaleAfter:       7 * 24 * time.Hour,
		},
		Profile: ProfileConfig{
			WindowSize:      50,
			CulturalTopK:    10,
			LanguageTopK:    5,
			ContentTypeTopK: 5,
			PositiveWeight:  2,
			NegativeWeight:  1,
		},
		Ranking: RankingConfig{
			SecondaryWeight: 20,
		},
		Sections: DefaultSections(),
		Fetch: FetchConfig{
			Timeout:             10 * time.Second,
			CandidateMultiplier: 3,
		},
		Feedback: FeedbackConfig{
			DebounceInterval: 250 * time.Millisecond,
			PublishTimeout:   2 * time.Second,
		},
		Persistence: PersistenceConfig{
			InteractionsKey: "interactions",
			ProfileKey:      "profile",
			SaveTimeout:     5 * time.Second,
		},
	}
}

// Validate checks the configuration for invalid values.
func (c *Config) Validate() error {
	w := c.Scoring
	for name, v := range map[string]float64{
		"cultural_match":     w.CulturalMatch,
		"language_match":     w.LanguageMatch,
		"content_type_match": w.ContentTypeMatch,
		"learning_value":     w.LearningValue,
		"engagement_cap":     w.EngagementCap,
	} {
		if v < 0 {
			return fmt.Errorf("scoring.%s must be non-negative, got %v", name, v)
		}
	}
	if w.FreshMultiplier <= 0 || w.StaleMultiplier <= 0 {
		return fmt.Errorf("scoring multipliers must be positive, got fresh=%v stale=%v",
			w.FreshMultiplier, w.StaleMultiplier)
	}
	if w.FreshWindow <= 0 || w.StaleAfter < w.FreshWindow {
		return fmt.Errorf("scoring.stale_after (%v) must be >= fresh_window (%v) > 0",
			w.StaleAfter, w.FreshWindow)
	}

	p := c.Profile
	if p.WindowSize < 1 {
		return fmt.Errorf("profile.window_size must be at least 1, got %d", p.WindowSize)
	}
	if p.CulturalTopK < 1 || p.LanguageTopK < 1 || p.ContentTypeTopK < 1 {
		return fmt.Errorf("profile top-k values must be at least 1, got cultural=%d language=%d content_type=%d",
			p.CulturalTopK, p.LanguageTopK, p.ContentTypeTopK)
	}
	if p.PositiveWeight <= 0 || p.NegativeWeight < 0 {
		return fmt.Errorf("profile weights invalid: positive=%v negative=%v", p.PositiveWeight, p.NegativeWeight)
	}

	if c.Ranking.SecondaryWeight < 0 {
		return fmt.Errorf("ranking.secondary_weight must be non-negative, got %v", c.Ranking.SecondaryWeight)
	}

	if len(c.Sections) == 0 {
		return fmt.Errorf("at least one section must be configured")
	}
	seen := make(map[string]bool, len(c.Sections))
	for i, s := range c.Sections {
		if s.ID == "" {
			return fmt.Errorf("sections[%d].id is required", i)
		}
		if seen[s.ID] {
			return fmt.Errorf("sections[%d].id %q is duplicated", i, s.ID)
		}
		seen[s.ID] = true
		if !s.Kind.Valid() {
			return fmt.Errorf("sections[%d].kind %q is not a known kind", i, s.Kind)
		}
		if s.Limit < 1 {
			return fmt.Errorf("sections[%d].limit must be at least 1, got %d", i, s.Limit)
		}
	}

	if c.Fetch.Timeout <= 0 {
		return fmt.Errorf("fetch.timeout must be positive, got %v", c.Fetch.Timeout)
	}
	if c.Fetch.CandidateMultiplier < 1 {
		return fmt.Errorf("fetch.candidate_multiplier must be at least 1, got %d", c.Fetch.CandidateMultiplier)
	}
	if c.Feedback.DebounceInterval < 0 {
		return fmt.Errorf("feedback.debounce_interval must be non-negative, got %v", c.Feedback.DebounceInterval)
	}
	if c.Persistence.InteractionsKey == "" || c.Persistence.ProfileKey == "" {
		return fmt.Errorf("persistence keys must be set")
	}
	if c.Persistence.InteractionsKey == c.Persistence.ProfileKey {
		return fmt.Errorf("persistence keys must differ, both are %q", c.Persistence.ProfileKey)
	}
	return nil
}

// Clone returns a deep copy of the configuration.
func (c *Config) Clone() *Config {
	out := *c
	out.Sections = append([]SectionConfig(nil), c.Sections...)
	return &out
}

// Section returns the configuration of the section with the given id.
func (c *Config) Section(id string) (SectionConfig, bool) {
	for _, s := range c.Sections {
		if s.ID == id {
			return s, true
		}
	}
	return SectionConfig{}, false
}

// MarshalJSON renders durations as strings.
func (c *Config) MarshalJSON() ([]byte, error) {
	type Alias Config
	type scoring struct {
		ScoringWeights
		FreshWindow string `json:"fresh_window"`
		StaleAfter  string `json:"stale_after"`
	}
	return json.Marshal(&struct {
		*Alias
		Scoring     scoring `json:"scoring"`
		Fetch       any     `json:"fetch"`
		Feedback    any     `json:"feedback"`
		Persistence any     `json:"persistence"`
	}{
		Alias: (*Alias)(c),
		Scoring: scoring{
			ScoringWeights: c.Scoring,
			FreshWindow:    c.Scoring.FreshWindow.String(),
			StaleAfter:     c.Scoring.StaleAfter.String(),
		},
		Fetch: map[string]any{
			"timeout":              c.Fetch.Timeout.String(),
			"candidate_multiplier": c.Fetch.CandidateMultiplier,
		},
		Feedback: map[string]any{
			"debounce_interval": c.Feedback.DebounceInterval.String(),
			"publish_timeout":   c.Feedback.PublishTimeout.String(),
		},
		Persistence: map[string]any{
			"interactions_key": c.Persistence.InteractionsKey,
			"profile_key":      c.Persistence.ProfileKey,
			"save_timeout":     c.Persistence.SaveTimeout.String(),
		},
	})
}
