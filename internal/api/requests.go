// Culturefeed - Content Personalization and Ranking Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/culturefeed

package api

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/goccy/go-json"

	"github.com/tomtom215/culturefeed/internal/recommend"
)

const (
	maxBodyBytes        = 64 << 10
	defaultInteractions = 50
	maxInteractions     = 1000
)

// FeedbackRequest is the body of POST /feedback.
type FeedbackRequest struct {
	ItemID       string   `json:"item_id" validate:"required,max=256"`
	Type         string   `json:"type" validate:"required,oneof=like unlike bookmark unbookmark share click skip hide"`
	CulturalTags []string `json:"cultural_tags" validate:"omitempty,max=64,dive,required,max=64"`
	LanguageTags []string `json:"language_tags" validate:"omitempty,max=64,dive,required,max=64"`
	ContentType  string   `json:"content_type" validate:"omitempty,max=32"`
}

// Snapshot returns the item metadata carried by the request.
func (r *FeedbackRequest) Snapshot() recommend.TagsSnapshot {
	return recommend.TagsSnapshot{
		CulturalTags: r.CulturalTags,
		LanguageTags: r.LanguageTags,
		ContentType:  recommend.ContentType(r.ContentType),
	}
}

// FeedbackResponse acknowledges an accepted event.
type FeedbackResponse struct {
	Accepted           bool   `json:"accepted"`
	ItemID             string `json:"item_id"`
	Type               string `json:"type"`
	EventCount         int    `json:"event_count"`
	PersistenceHealthy bool   `json:"persistence_healthy"`
}

// RefreshResponse reports a triggered refresh.
type RefreshResponse struct {
	Sections []recommend.SectionSnapshot `json:"sections"`
	Waited   bool                        `json:"waited"`
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status   string `json:"status"`
	Sessions int    `json:"sessions"`
	Uptime   string `json:"uptime"`
}

func decodeJSON(r *http.Request, dst any) error {
	body := io.LimitReader(r.Body, maxBodyBytes+1)
	data, err := io.ReadAll(body)
	if err != nil {
		return fmt.Errorf("read body: %w", err)
	}
	if len(data) > maxBodyBytes {
		return fmt.Errorf("body exceeds %d bytes", maxBodyBytes)
	}
	if len(data) == 0 {
		return errors.New("empty body")
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("invalid JSON: %w", err)
	}
	return nil
}

// parseLimit reads ?limit=, clamped to [1, maxInteractions]. An absent
// limit yields fallback.
func parseLimit(r *http.Request, fallback int) (int, error) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return 0, errors.New("limit must be a positive integer")
	}
	return min(n, maxInteractions), nil
}
