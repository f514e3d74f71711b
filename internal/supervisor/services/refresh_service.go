// Culturefeed - Content Personalization and Ranking Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/culturefeed

package services

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/tomtom215/culturefeed/internal/metrics"
	"github.com/tomtom215/culturefeed/internal/recommend"
)

// AllSections as a schedule key refreshes every section of a session.
const AllSections = "*"

// SessionSource is the part of session.Registry the refresh service uses.
type SessionSource interface {
	Each(fn func(userID string, e *recommend.Engine))
	CleanupExpired() int
}

// RefreshServiceConfig holds cron specs in the standard five-field syntax or
// a descriptor such as "@every 5m".
type RefreshServiceConfig struct {
	// Schedules maps a section id (or AllSections) to a cron spec.
	Schedules map[string]string

	// CleanupSchedule evicts idle sessions. Empty disables it.
	CleanupSchedule string
}

// RefreshService refreshes sections of every live session on schedule.
// Sessions are visited without touching their idle timers.
type RefreshService struct {
	sessions SessionSource
	config   RefreshServiceConfig
	logger   zerolog.Logger
}

// NewRefreshService validates every spec up front.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func NewRefreshService(sessions SessionSource, cfg RefreshServiceConfig, logger zerolog.Logger) (*RefreshService, error) {
	for section, spec := range cfg.Schedules {
		if _, err := cron.ParseStandard(spec); err != nil {
			return nil, fmt.Errorf("refresh schedule for section %q: %w", section, err)
		}
	}
	if cfg.CleanupSchedule != "" {
		if _, err := cron.ParseStandard(cfg.CleanupSchedule); err != nil {
			return nil, fmt.Errorf("session cleanup schedule: %w", err)
		}
	}
	return &RefreshService{
		sessions: sessions,
		config:   cfg,
		logger:   logger.With().Str("service", "refresh").Logger(),
	}, nil
}

// Serve implements suture.Service.
func (s *RefreshService) Serve(ctx context.Context) error {
	c := cron.New(cron.WithLocation(time.UTC))

	for _, section := range slices.Sorted(maps.Keys(s.config.Schedules)) {
		if _, err := c.AddFunc(s.config.Schedules[section], func() { s.RefreshSection(section) }); err != nil {
			return fmt.Errorf("schedule refresh of %q: %w", section, err)
		}
	}
	if s.config.CleanupSchedule != "" {
		if _, err := c.AddFunc(s.config.CleanupSchedule, func() { s.Cleanup() }); err != nil {
			return fmt.Errorf("schedule session cleanup: %w", err)
		}
	}

	c.Start()
	s.logger.Info().
		Int("schedules", len(s.config.Schedules)).
		Str("cleanup", s.config.CleanupSchedule).
		Msg("refresh service running")

	<-ctx.Done()
	<-c.Stop().Done()
	s.logger.Info().Msg("refresh service stopped")
	return ctx.Err()
}

// RefreshSection triggers a refresh of section in every live session and
// returns the number of sessions refreshed. Sessions that do not define the
// section are skipped.
func (s *RefreshService) RefreshSection(section string) int {
	refreshed := 0
	s.sessions.Each(func(userID string, e *recommend.Engine) {
		var err error
		if section == AllSections {
			err = e.RefreshAll()
		} else {
			_, err = e.RefreshSection(section)
		}
		switch {
		case err == nil:
			refreshed++
		case errors.Is(err, recommend.ErrUnknownSection), errors.Is(err, recommend.ErrEngineClosed):
			// section not configured for this user, or the session is closing
		default:
			s.logger.Warn().Err(err).Str("user_id", userID).Str("section", section).Msg("scheduled refresh failed")
		}
	})
	metrics.RecordScheduledRefresh(section, refreshed)
	s.logger.Debug().Str("section", section).Int("sessions", refreshed).Msg("scheduled refresh triggered")
	return refreshed
}

// Cleanup evicts idle sessions and returns how many were closed.
func (s *RefreshService) Cleanup() int {
	n := s.sessions.CleanupExpired()
	if n > 0 {
		s.logger.Info().Int("evicted", n).Msg("idle sessions closed")
	}
	return n
}

func (s *RefreshService) String() string {
	return "refresh-service"
}
