// Culturefeed - Content Personalization and Ranking Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/culturefeed

package persistence

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

// providerFactories builds each backend in a fresh temporary location.
func providerFactories() map[string]func(t *testing.T) Provider {
	return map[string]func(t *testing.T) Provider{
		"memory": func(*testing.T) Provider { return NewMemoryProvider() },
		"file": func(t *testing.T) Provider {
			p, err := NewFileProvider(t.TempDir())
			if err != nil {
				t.Fatalf("NewFileProvider() error = %v", err)
			}
			return p
		},
		"badger": func(t *testing.T) Provider {
			p, err := NewBadgerProvider(t.TempDir())
			if err != nil {
				t.Fatalf("NewBadgerProvider() error = %v", err)
			}
			t.Cleanup(func() { _ = p.Close() })
			return p
		},
		"sqlite": func(t *testing.T) Provider {
			p, err := NewSQLiteProvider(filepath.Join(t.TempDir(), "feed.db"))
			if err != nil {
				t.Fatalf("NewSQLiteProvider() error = %v", err)
			}
			t.Cleanup(func() { _ = p.Close() })
			return p
		},
	}
}

func TestProviders_RoundTrip(t *testing.T) {
	t.Parallel()

	for name, factory := range providerFactories() {
		t.Run(name, func(t *testing.T) {
			p := factory(t)
			ctx := context.Background()

			if _, err := p.Load(ctx, "interactions"); !errors.Is(err, ErrNotFound) {
				t.Fatalf("Load() on empty store error = %v, want ErrNotFound", err)
			}

			if err := p.Save(ctx, "interactions", []byte(`[{"type":"like"}]`)); err != nil {
				t.Fatalf("Save() error = %v", err)
			}
			if err := p.Save(ctx, "interactions", []byte(`[]`)); err != nil {
				t.Fatalf("Save() overwrite error = %v", err)
			}

			got, err := p.Load(ctx, "interactions")
			if err != nil {
				t.Fatalf("Load() error = %v", err)
			}
			if !bytes.Equal(got, []byte(`[]`)) {
				t.Errorf("Load() = %q, want %q", got, `[]`)
			}
		})
	}
}

func TestProviders_RejectEmptyKey(t *testing.T) {
	t.Parallel()

	for name, factory := range providerFactories() {
		t.Run(name, func(t *testing.T) {
			if err := factory(t).Save(context.Background(), " ", []byte("x")); err == nil {
				t.Error("Save() with blank key should fail")
			}
		})
	}
}

func TestProviders_CanceledContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	for name, factory := range providerFactories() {
		t.Run(name, func(t *testing.T) {
			p := factory(t)
			if err := p.Save(ctx, "k", []byte("v")); !errors.Is(err, context.Canceled) {
				t.Errorf("Save() error = %v, want context.Canceled", err)
			}
			if _, err := p.Load(ctx, "k"); !errors.Is(err, context.Canceled) {
				t.Errorf("Load() error = %v, want context.Canceled", err)
			}
		})
	}
}

func TestNamespace_IsolatesKeys(t *testing.T) {
	t.Parallel()

	inner := NewMemoryProvider()
	alice := Namespace(inner, "alice")
	bob := Namespace(inner, "/bob/")
	ctx := context.Background()

	if err := alice.Save(ctx, "profile", []byte("a")); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if _, err := bob.Load(ctx, "profile"); !errors.Is(err, ErrNotFound) {
		t.Errorf("bob.Load() error = %v, want ErrNotFound", err)
	}

	keys := inner.Keys()
	if len(keys) != 1 || keys[0] != "alice/profile" {
		t.Errorf("inner keys = %v, want [alice/profile]", keys)
	}

	if got := Namespace(inner, ""); got != Provider(inner) {
		t.Error("Namespace with empty name should return the inner provider")
	}
}

func TestMemoryProvider_CopiesValues(t *testing.T) {
	t.Parallel()

	p := NewMemoryProvider()
	ctx := context.Background()
	value := []byte("abc")
	if err := p.Save(ctx, "k", value); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	value[0] = 'z'

	got, err := p.Load(ctx, "k")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if string(got) != "abc" {
		t.Errorf("Load() = %q, want %q", got, "abc")
	}
}

func TestFileProvider_DetectsCorruption(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	p, err := NewFileProvider(dir)
	if err != nil {
		t.Fatalf("NewFileProvider() error = %v", err)
	}
	ctx := context.Background()
	if err := p.Save(ctx, "profile", []byte(`{"cultural_interests":[]}`)); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	_, meta, err := p.LoadWithMetadata("profile")
	if err != nil {
		t.Fatalf("LoadWithMetadata() error = %v", err)
	}
	if meta.Key != "profile" || meta.SizeBytes != len(`{"cultural_interests":[]}`) {
		t.Errorf("metadata = %+v", meta)
	}

	if err := os.WriteFile(p.path("profile"), []byte("not json"), 0o600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	if _, err := p.Load(ctx, "profile"); err == nil || errors.Is(err, ErrNotFound) {
		t.Errorf("Load() of corrupted file error = %v, want decode error", err)
	}
}

func TestOpen_Drivers(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	tests := []struct {
		driver  string
		path    string
		wantErr bool
	}{
		{driver: "memory"},
		{driver: ""},
		{driver: "file", path: filepath.Join(dir, "files")},
		{driver: "badger", path: filepath.Join(dir, "badger")},
		{driver: "sqlite", path: filepath.Join(dir, "feed.db")},
		{driver: "redis", wantErr: true},
	}

	for _, tt := range tests {
		p, err := Open(tt.driver, tt.path)
		if (err != nil) != tt.wantErr {
			t.Errorf("Open(%q) error = %v, wantErr %v", tt.driver, err, tt.wantErr)
			continue
		}
		if p != nil {
			if err := Close(p); err != nil {
				t.Errorf("Close(%q) error = %v", tt.driver, err)
			}
		}
	}
}
