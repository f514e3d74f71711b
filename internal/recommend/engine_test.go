// Culturefeed - Content Personalization and Ranking Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/culturefeed

package recommend

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/tomtom215/culturefeed/internal/persistence"
)

func TestNewEngine_Validation(t *testing.T) {
	t.Parallel()

	badCfg := DefaultConfig()
	badCfg.Sections = nil

	tests := []struct {
		name    string
		cfg     *Config
		catalog CatalogProvider
		wantErr string
	}{
		{name: "defaults", cfg: nil, catalog: &staticCatalog{}},
		{name: "invalid config", cfg: badCfg, catalog: &staticCatalog{}, wantErr: "invalid config"},
		{name: "missing catalog", cfg: nil, catalog: nil, wantErr: "catalog provider is required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			e, err := NewEngine(tt.cfg, tt.catalog, testLogger())
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("NewEngine() error = %v", err)
				}
				_ = e.Close()
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("NewEngine() error = %v, want %q", err, tt.wantErr)
			}
		})
	}
}

func TestEngine_RestoresStateAcrossSessions(t *testing.T) {
	t.Parallel()

	provider := persistence.NewMemoryProvider()
	catalog := &staticCatalog{}
	ctx := context.Background()

	first, err := NewEngine(nil, catalog, testLogger(),
		WithPersistence(provider), WithScheduler(&manualScheduler{}), WithClock(testClock))
	if err != nil {
		t.Fatalf("NewEngine() error = %v", err)
	}
	if err := first.Start(ctx); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	tags := TagsSnapshot{CulturalTags: []string{"日本文化"}, LanguageTags: []string{"日语"}, ContentType: ContentCourse}
	for _, id := range []string{"a", "b", "c"} {
		if err := first.RecordFeedback(ctx, id, EventLike, tags); err != nil {
			t.Fatalf("RecordFeedback() error = %v", err)
		}
	}
	_ = first.Close()

	keys := provider.Keys()
	if len(keys) != 2 || keys[0] != "interactions" || keys[1] != "profile" {
		t.Fatalf("persisted keys = %v, want [interactions profile]", keys)
	}

	second, err := NewEngine(nil, catalog, testLogger(), WithPersistence(provider), WithClock(testClock))
	if err != nil {
		t.Fatalf("NewEngine() error = %v", err)
	}
	defer second.Close()
	if err := second.Start(ctx); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	events := second.Interactions()
	if len(events) != 3 || events[0].ItemID != "a" || events[2].ItemID != "c" {
		t.Errorf("restored log = %+v", events)
	}
	profile := second.CurrentProfile()
	if len(profile.CulturalInterests) != 1 || profile.CulturalInterests[0].Key != "日本文化" {
		t.Errorf("restored profile = %+v", profile)
	}
	if !second.PersistenceHealthy() {
		t.Error("persistence should be healthy")
	}
}

func TestEngine_StartRecomputesMissingProfile(t *testing.T) {
	t.Parallel()

	provider := persistence.NewMemoryProvider()
	log := `[{"id":"1","type":"like","item_id":"a","cultural_tags":["韩国文化"],"occurred_at":"2026-03-01T10:00:00Z"}]`
	if err := provider.Save(context.Background(), "interactions", []byte(log)); err != nil {
		t.Fatal(err)
	}

	e, err := NewEngine(nil, &staticCatalog{}, testLogger(), WithPersistence(provider), WithClock(testClock))
	if err != nil {
		t.Fatalf("NewEngine() error = %v", err)
	}
	defer e.Close()
	if err := e.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	profile := e.CurrentProfile()
	if len(profile.CulturalInterests) != 1 || profile.CulturalInterests[0].Key != "韩国文化" {
		t.Errorf("profile = %+v, want rebuilt from log", profile)
	}
}

func TestEngine_StartSurvivesPersistenceFailure(t *testing.T) {
	t.Parallel()

	provider := newToggleProvider()
	provider.setFail(true)

	e, err := NewEngine(nil, &staticCatalog{}, testLogger(), WithPersistence(provider),
		WithScheduler(&manualScheduler{}), WithClock(testClock))
	if err != nil {
		t.Fatalf("NewEngine() error = %v", err)
	}
	defer e.Close()

	if err := e.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if e.PersistenceHealthy() {
		t.Error("PersistenceHealthy() = true after failed load")
	}
	if err := e.RecordFeedback(context.Background(), "a", EventLike, TagsSnapshot{}); err != nil {
		t.Errorf("RecordFeedback() error = %v, want in-memory success", err)
	}
	if n := len(e.Interactions()); n != 1 {
		t.Errorf("log length = %d, want 1", n)
	}
}

func TestEngine_ResetInteractions(t *testing.T) {
	t.Parallel()

	h := newFeedbackHarness(t, nil)
	ctx := context.Background()
	if err := h.engine.RecordFeedback(ctx, "a", EventLike, TagsSnapshot{CulturalTags: []string{"日本文化"}}); err != nil {
		t.Fatal(err)
	}
	h.engine.RecomputeNow()
	if h.engine.CurrentProfile().IsEmpty() {
		t.Fatal("profile should not be empty after a like")
	}

	h.engine.ResetInteractions()

	if n := len(h.engine.Interactions()); n != 0 {
		t.Errorf("log length = %d, want 0", n)
	}
	if p := h.engine.CurrentProfile(); !p.IsEmpty() {
		t.Errorf("profile = %+v, want empty", p)
	}
}

func TestEngine_CloseIsIdempotent(t *testing.T) {
	t.Parallel()

	e, err := NewEngine(nil, &staticCatalog{all: []Item{testItem("a", 1, 1)}}, testLogger())
	if err != nil {
		t.Fatal(err)
	}
	if err := e.Close(); err != nil {
		t.Errorf("first Close() error = %v", err)
	}
	if err := e.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}
	if err := e.Start(context.Background()); !errors.Is(err, ErrEngineClosed) {
		t.Errorf("Start() after Close error = %v, want ErrEngineClosed", err)
	}
	if _, err := e.GetSection("trending"); !errors.Is(err, ErrEngineClosed) {
		t.Errorf("GetSection() after Close error = %v, want ErrEngineClosed", err)
	}
}

func TestEngine_RefreshAll(t *testing.T) {
	t.Parallel()

	h := newFeedbackHarness(t, []Item{testItem("a", 1, 1)})
	if err := h.engine.RefreshAll(); err != nil {
		t.Fatalf("RefreshAll() error = %v", err)
	}
	for _, id := range h.engine.SectionIDs() {
		waitFor(t, id+" ready", func() bool {
			snap, err := h.engine.GetSection(id)
			return err == nil && snap.State == StateReady
		})
	}
}
