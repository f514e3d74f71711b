// Culturefeed - Content Personalization and Ranking Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/culturefeed

package main

import (
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/tomtom215/culturefeed/internal/config"
	"github.com/tomtom215/culturefeed/internal/persistence"
)

func TestNewAppServesFeed(t *testing.T) {
	t.Parallel()

	cfg := config.Default()
	cfg.Persistence.Driver = "badger"
	cfg.Persistence.Path = filepath.Join(t.TempDir(), "badger")
	if err := cfg.Validate(); err != nil {
		t.Fatal(err)
	}

	a, err := newApp(cfg, zerolog.Nop())
	if err != nil {
		t.Fatalf("newApp: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/users/alice/feedback",
		strings.NewReader(`{"item_id":"item-1","type":"like","cultural_tags":["日本文化"]}`))
	rec := httptest.NewRecorder()
	a.handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("feedback status = %d: %s", rec.Code, rec.Body.String())
	}

	rec = httptest.NewRecorder()
	a.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/users/alice/sections/recommended", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("section status = %d", rec.Code)
	}

	a.Close()

	// The session was flushed to Badger before the store closed.
	store, err := persistence.NewBadgerProvider(cfg.Persistence.Path)
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = store.Close() }()
	if _, err := store.Load(t.Context(), "users/alice/interactions"); err != nil {
		t.Errorf("interactions not persisted: %v", err)
	}
}

func TestNewAppRejectsBadCollaborators(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		mutate func(*config.Config)
	}{
		{"unknown driver", func(c *config.Config) { c.Persistence.Driver = "postgres" }},
		{"missing fixture", func(c *config.Config) {
			c.Catalog.Source = "file"
			c.Catalog.Path = filepath.Join(t.TempDir(), "missing.yaml")
		}},
		{"bad schedule", func(c *config.Config) { c.Schedule.Refresh = map[string]string{"trending": "sometimes"} }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := config.Default()
			tt.mutate(cfg)
			if a, err := newApp(cfg, zerolog.Nop()); err == nil {
				a.Close()
				t.Error("expected an error")
			}
		})
	}
}
