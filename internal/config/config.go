// Culturefeed - Content Personalization and Ranking Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/culturefeed

package config

import (
	"errors"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/tomtom215/culturefeed/internal/catalog"
	"github.com/tomtom215/culturefeed/internal/events"
	"github.com/tomtom215/culturefeed/internal/logging"
	"github.com/tomtom215/culturefeed/internal/recommend"
	"github.com/tomtom215/culturefeed/internal/validation"
)

// Config is the complete server configuration.
type Config struct {
	Server      ServerConfig      `koanf:"server"`
	Logging     LoggingConfig     `koanf:"logging"`
	Persistence PersistenceConfig `koanf:"persistence"`
	Catalog     CatalogConfig     `koanf:"catalog"`
	Events      EventsConfig      `koanf:"events"`
	Sessions    SessionsConfig    `koanf:"sessions"`
	Feed        FeedConfig        `koanf:"feed"`
	Schedule    ScheduleConfig    `koanf:"schedule"`
	Security    SecurityConfig    `koanf:"security"`
	Supervisor  SupervisorConfig  `koanf:"supervisor"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port" validate:"min=1,max=65535"`
	ReadTimeout     time.Duration `koanf:"read_timeout" validate:"gt=0"`
	WriteTimeout    time.Duration `koanf:"write_timeout" validate:"gt=0"`
	IdleTimeout     time.Duration `koanf:"idle_timeout" validate:"gte=0"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout" validate:"gt=0"`

	// RefreshWaitMax bounds POST .../refresh?wait=true.
	RefreshWaitMax time.Duration `koanf:"refresh_wait_max" validate:"gt=0"`
}

// Addr returns host:port.
func (s ServerConfig) Addr() string {
	return net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
}

// LoggingConfig configures the global logger.
type LoggingConfig struct {
	Level  string `koanf:"level" validate:"oneof=trace debug info warn error"`
	Format string `koanf:"format" validate:"oneof=json console"`
	Caller bool   `koanf:"caller"`
}

// Logging returns the logging package configuration.
func (l LoggingConfig) Logging() logging.Config {
	cfg := logging.DefaultConfig()
	cfg.Level = l.Level
	cfg.Format = l.Format
	cfg.Caller = l.Caller
	return cfg
}

// PersistenceConfig selects the per-user state store.
type PersistenceConfig struct {
	// Driver is memory, file, badger or sqlite.
	Driver string `koanf:"driver" validate:"oneof=memory file badger sqlite"`

	// Path is a directory (file, badger) or database file (sqlite).
	Path string `koanf:"path"`
}

// CatalogConfig selects the candidate source.
type CatalogConfig struct {
	Source            string        `koanf:"source" validate:"oneof=generator file http"`
	Path              string        `koanf:"path"`
	Seed              int64         `koanf:"seed"`
	Size              int           `koanf:"size" validate:"gte=0"`
	BaseURL           string        `koanf:"base_url"`
	Timeout           time.Duration `koanf:"timeout" validate:"gte=0"`
	RequestsPerSecond float64       `koanf:"requests_per_second" validate:"gte=0"`
	Burst             int           `koanf:"burst" validate:"gte=0"`
}

// Catalog returns the catalog package configuration.
func (c CatalogConfig) Catalog() catalog.Config {
	return catalog.Config{
		Source:            c.Source,
		Path:              c.Path,
		Seed:              c.Seed,
		Size:              c.Size,
		BaseURL:           c.BaseURL,
		Timeout:           c.Timeout,
		RequestsPerSecond: c.RequestsPerSecond,
		Burst:             c.Burst,
	}
}

// EventsConfig configures feedback event publication.
type EventsConfig struct {
	// Backend is none, memory or nats.
	Backend       string        `koanf:"backend" validate:"oneof=none memory nats"`
	Topic         string        `koanf:"topic"`
	NATSURL       string        `koanf:"nats_url"`
	JetStream     bool          `koanf:"jetstream"`
	MaxReconnects int           `koanf:"max_reconnects" validate:"gte=-1"`
	ReconnectWait time.Duration `koanf:"reconnect_wait" validate:"gte=0"`

	// Consume runs the in-process consumer on the memory backend.
	Consume bool `koanf:"consume"`
}

// NATS returns the events package NATS configuration.
func (e EventsConfig) NATS() events.NATSConfig {
	return events.NATSConfig{
		URL:           e.NATSURL,
		Topic:         e.Topic,
		MaxReconnects: e.MaxReconnects,
		ReconnectWait: e.ReconnectWait,
		JetStream:     e.JetStream,
	}
}

// SessionsConfig bounds the per-user engine registry.
type SessionsConfig struct {
	MaxSessions int           `koanf:"max_sessions" validate:"min=1"`
	IdleTTL     time.Duration `koanf:"idle_ttl" validate:"gte=0"`
}

// SectionConfig declares one feed section.
type SectionConfig struct {
	ID    string `koanf:"id"`
	Kind  string `koanf:"kind"`
	Limit int    `koanf:"limit"`
}

// FeedConfig holds the engine tunables.
type FeedConfig struct {
	// Sections defaults to the six standard sections when empty.
	Sections []SectionConfig `koanf:"sections"`

	CulturalMatch    float64       `koanf:"cultural_match"`
	LanguageMatch    float64       `koanf:"language_match"`
	ContentTypeMatch float64       `koanf:"content_type_match"`
	LearningValue    float64       `koanf:"learning_value"`
	EngagementCap    float64       `koanf:"engagement_cap"`
	FreshMultiplier  float64       `koanf:"fresh_multiplier"`
	StaleMultiplier  float64       `koanf:"stale_multiplier"`
	FreshWindow      time.Duration `koanf:"fresh_window"`
	StaleAfter       time.Duration `koanf:"stale_after"`

	WindowSize      int     `koanf:"window_size"`
	CulturalTopK    int     `koanf:"cultural_top_k"`
	LanguageTopK    int     `koanf:"language_top_k"`
	ContentTypeTopK int     `koanf:"content_type_top_k"`
	PositiveWeight  float64 `koanf:"positive_weight"`
	NegativeWeight  float64 `koanf:"negative_weight"`

	SecondaryWeight float64 `koanf:"secondary_weight"`

	FetchTimeout        time.Duration `koanf:"fetch_timeout"`
	CandidateMultiplier int           `koanf:"candidate_multiplier"`
	DebounceInterval    time.Duration `koanf:"debounce_interval"`
	PublishTimeout      time.Duration `koanf:"publish_timeout"`
	SaveTimeout         time.Duration `koanf:"save_timeout"`
}

// EngineConfig converts the feed settings to an engine configuration.
func (f *FeedConfig) EngineConfig() *recommend.Config {
	cfg := recommend.DefaultConfig()
	cfg.Scoring = recommend.ScoringWeights{
		CulturalMatch:    f.CulturalMatch,
		LanguageMatch:    f.LanguageMatch,
		ContentTypeMatch: f.ContentTypeMatch,
		LearningValue:    f.LearningValue,
		EngagementCap:    f.EngagementCap,
		FreshMultiplier:  f.FreshMultiplier,
		StaleMultiplier:  f.StaleMultiplier,
		FreshWindow:      f.FreshWindow,
		StaleAfter:       f.StaleAfter,
	}
	cfg.Profile = recommend.ProfileConfig{
		WindowSize:      f.WindowSize,
		CulturalTopK:    f.CulturalTopK,
		LanguageTopK:    f.LanguageTopK,
		ContentTypeTopK: f.ContentTypeTopK,
		PositiveWeight:  f.PositiveWeight,
		NegativeWeight:  f.NegativeWeight,
	}
	cfg.Ranking.SecondaryWeight = f.SecondaryWeight
	cfg.Fetch = recommend.FetchConfig{
		Timeout:             f.FetchTimeout,
		CandidateMultiplier: f.CandidateMultiplier,
	}
	cfg.Feedback = recommend.FeedbackConfig{
		DebounceInterval: f.DebounceInterval,
		PublishTimeout:   f.PublishTimeout,
	}
	cfg.Persistence.SaveTimeout = f.SaveTimeout

	if len(f.Sections) > 0 {
		cfg.Sections = make([]recommend.SectionConfig, len(f.Sections))
		for i, s := range f.Sections {
			cfg.Sections[i] = recommend.SectionConfig{ID: s.ID, Kind: recommend.SectionKind(s.Kind), Limit: s.Limit}
		}
	}
	return cfg
}

// ScheduleConfig holds cron specs for background work.
type ScheduleConfig struct {
	// Refresh maps a section id, or "*" for all sections, to a cron spec.
	// An empty spec disables a default schedule.
	Refresh map[string]string `koanf:"refresh"`

	// SessionCleanup evicts idle sessions. Empty disables it.
	SessionCleanup string `koanf:"session_cleanup"`
}

// RefreshSchedules returns the non-empty refresh specs.
func (s ScheduleConfig) RefreshSchedules() map[string]string {
	out := make(map[string]string, len(s.Refresh))
	for section, spec := range s.Refresh {
		if spec != "" {
			out[section] = spec
		}
	}
	return out
}

// SecurityConfig configures CORS and rate limiting.
type SecurityConfig struct {
	CORSOrigins       []string      `koanf:"cors_origins"`
	RateLimitRequests int           `koanf:"rate_limit_requests" validate:"gte=0"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window" validate:"gt=0"`
	RateLimitDisabled bool          `koanf:"rate_limit_disabled"`
	FeedbackRateLimit int           `koanf:"feedback_rate_limit" validate:"gte=0"`
}

// SupervisorConfig mirrors supervisor.TreeConfig.
type SupervisorConfig struct {
	FailureThreshold float64       `koanf:"failure_threshold" validate:"gte=0"`
	FailureDecay     float64       `koanf:"failure_decay" validate:"gte=0"`
	FailureBackoff   time.Duration `koanf:"failure_backoff" validate:"gte=0"`
	ShutdownTimeout  time.Duration `koanf:"shutdown_timeout" validate:"gte=0"`
}

// Validate checks field ranges, enums and cross-field requirements.
func (c *Config) Validate() error {
	for _, section := range []any{
		&c.Server, &c.Logging, &c.Persistence, &c.Catalog,
		&c.Events, &c.Sessions, &c.Security, &c.Supervisor,
	} {
		if verr := validation.ValidateStruct(section); verr != nil {
			return verr
		}
	}

	var errs []error
	if c.Persistence.Driver != "memory" && c.Persistence.Path == "" {
		errs = append(errs, fmt.Errorf("persistence.path is required for driver %q", c.Persistence.Driver))
	}
	switch c.Catalog.Source {
	case catalog.SourceFile:
		if c.Catalog.Path == "" {
			errs = append(errs, errors.New("catalog.path is required for the file source"))
		}
	case catalog.SourceHTTP:
		if c.Catalog.BaseURL == "" {
			errs = append(errs, errors.New("catalog.base_url is required for the http source"))
		}
	}
	if c.Events.Backend == events.BackendNATS && c.Events.NATSURL == "" {
		errs = append(errs, errors.New("events.nats_url is required for the nats backend"))
	}
	if err := c.Feed.EngineConfig().Validate(); err != nil {
		errs = append(errs, fmt.Errorf("feed: %w", err))
	}
	return errors.Join(errs...)
}
