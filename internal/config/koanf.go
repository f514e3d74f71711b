// Culturefeed - Content Personalization and Ranking Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/culturefeed

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"

	"github.com/tomtom215/culturefeed/internal/recommend"
)

// DefaultConfigPaths are searched in order when CONFIG_PATH is unset.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/culturefeed/config.yaml",
	"/etc/culturefeed/config.yml",
}

// ConfigPathEnvVar overrides the config file location.
const ConfigPathEnvVar = "CONFIG_PATH"

func defaultConfig() *Config {
	engine := recommend.DefaultConfig()
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8080,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    30 * time.Second,
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: 10 * time.Second,
			RefreshWaitMax:  15 * time.Second,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Persistence: PersistenceConfig{
			Driver: "memory",
		},
		Catalog: CatalogConfig{
			Source:  "generator",
			Seed:    1,
			Size:    200,
			Timeout: 10 * time.Second,
		},
		Events: EventsConfig{
			Backend:       "memory",
			MaxReconnects: -1,
			ReconnectWait: 2 * time.Second,
			JetStream:     true,
			Consume:       true,
		},
		Sessions: SessionsConfig{
			MaxSessions: 1000,
			IdleTTL:     30 * time.Minute,
		},
		Feed: FeedConfig{
			CulturalMatch:       engine.Scoring.CulturalMatch,
			LanguageMatch:       engine.Scoring.LanguageMatch,
			ContentTypeMatch:    engine.Scoring.ContentTypeMatch,
			LearningValue:       engine.Scoring.LearningValue,
			EngagementCap:       engine.Scoring.EngagementCap,
			FreshMultiplier:     engine.Scoring.FreshMultiplier,
			StaleMultiplier:     engine.Scoring.StaleMultiplier,
			FreshWindow:         engine.Scoring.FreshWindow,
			StaleAfter:          engine.Scoring.StaleAfter,
			WindowSize:          engine.Profile.WindowSize,
			CulturalTopK:        engine.Profile.CulturalTopK,
			LanguageTopK:        engine.Profile.LanguageTopK,
			ContentTypeTopK:     engine.Profile.ContentTypeTopK,
			PositiveWeight:      engine.Profile.PositiveWeight,
			NegativeWeight:      engine.Profile.NegativeWeight,
			SecondaryWeight:     engine.Ranking.SecondaryWeight,
			FetchTimeout:        engine.Fetch.Timeout,
			CandidateMultiplier: engine.Fetch.CandidateMultiplier,
			DebounceInterval:    engine.Feedback.DebounceInterval,
			PublishTimeout:      engine.Feedback.PublishTimeout,
			SaveTimeout:         engine.Persistence.SaveTimeout,
		},
		Schedule: ScheduleConfig{
			Refresh: map[string]string{
				string(recommend.KindTrending): "@every 5m",
				string(recommend.KindNew):      "@every 15m",
			},
			SessionCleanup: "@every 1m",
		},
		Security: SecurityConfig{
			CORSOrigins:       []string{},
			RateLimitRequests: 300,
			RateLimitWindow:   time.Minute,
			FeedbackRateLimit: 120,
		},
		Supervisor: SupervisorConfig{
			FailureThreshold: 5,
			FailureDecay:     30,
			FailureBackoff:   15 * time.Second,
			ShutdownTimeout:  10 * time.Second,
		},
	}
}

// Default returns the built-in configuration.
func Default() *Config {
	return defaultConfig()
}

// Load reads defaults, the config file and the environment, then validates.
func Load() (*Config, error) {
	return load(findConfigFile())
}

func load(path string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("failed to process slice fields: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// findConfigFile returns CONFIG_PATH if it exists, else the first existing
// default path, else "".
func findConfigFile() string {
	if p := os.Getenv(ConfigPathEnvVar); p != "" {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	for _, p := range DefaultConfigPaths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

// sliceConfigPaths are split on commas when they arrive as strings.
var sliceConfigPaths = []string{
	"security.cors_origins",
}

func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		s, ok := k.Get(path).(string)
		if !ok {
			continue
		}
		parts := strings.Split(s, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
		if err := k.Set(path, out); err != nil {
			return fmt.Errorf("failed to set %s: %w", path, err)
		}
	}
	return nil
}

// envMappings lists every environment variable read, lower-cased.
var envMappings = map[string]string{
	"http_host":             "server.host",
	"http_port":             "server.port",
	"http_read_timeout":     "server.read_timeout",
	"http_write_timeout":    "server.write_timeout",
	"http_idle_timeout":     "server.idle_timeout",
	"http_shutdown_timeout": "server.shutdown_timeout",
	"refresh_wait_max":      "server.refresh_wait_max",

	"log_level":  "logging.level",
	"log_format": "logging.format",
	"log_caller": "logging.caller",

	"persistence_driver": "persistence.driver",
	"persistence_path":   "persistence.path",

	"catalog_source":   "catalog.source",
	"catalog_path":     "catalog.path",
	"catalog_seed":     "catalog.seed",
	"catalog_size":     "catalog.size",
	"catalog_base_url": "catalog.base_url",
	"catalog_timeout":  "catalog.timeout",
	"catalog_rps":      "catalog.requests_per_second",
	"catalog_burst":    "catalog.burst",

	"events_backend":      "events.backend",
	"events_topic":        "events.topic",
	"events_consume":      "events.consume",
	"nats_url":            "events.nats_url",
	"nats_jetstream":      "events.jetstream",
	"nats_max_reconnects": "events.max_reconnects",
	"nats_reconnect_wait": "events.reconnect_wait",

	"max_sessions":     "sessions.max_sessions",
	"session_idle_ttl": "sessions.idle_ttl",

	"feed_window_size":          "feed.window_size",
	"feed_secondary_weight":     "feed.secondary_weight",
	"feed_fetch_timeout":        "feed.fetch_timeout",
	"feed_candidate_multiplier": "feed.candidate_multiplier",
	"feed_debounce_interval":    "feed.debounce_interval",
	"feed_fresh_window":         "feed.fresh_window",
	"feed_stale_after":          "feed.stale_after",

	"refresh_all_schedule":     "schedule.refresh.*",
	"session_cleanup_schedule": "schedule.session_cleanup",

	"cors_origins":        "security.cors_origins",
	"rate_limit_requests": "security.rate_limit_requests",
	"rate_limit_window":   "security.rate_limit_window",
	"disable_rate_limit":  "security.rate_limit_disabled",
	"feedback_rate_limit": "security.feedback_rate_limit",

	"supervisor_failure_threshold": "supervisor.failure_threshold",
	"supervisor_failure_backoff":   "supervisor.failure_backoff",
	"supervisor_shutdown_timeout":  "supervisor.shutdown_timeout",
}

// envTransformFunc maps an environment variable to its config path. Unlisted
// variables map to "" and are skipped.
func envTransformFunc(key string) string {
	return envMappings[strings.ToLower(key)]
}
