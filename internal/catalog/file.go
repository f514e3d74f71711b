// Culturefeed - Content Personalization and Ranking Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/culturefeed

package catalog

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/goccy/go-json"
	"gopkg.in/yaml.v3"

	"github.com/tomtom215/culturefeed/internal/recommend"
)

// fixture is the on-disk catalog format.
type fixture struct {
	Items []recommend.Item `json:"items" yaml:"items"`

	// Sections optionally restricts a kind to the listed item ids, in order.
	// Kinds not listed see every item.
	Sections map[recommend.SectionKind][]string `json:"sections" yaml:"sections"`
}

// FileProvider serves items from a fixture file read once at construction.
type FileProvider struct {
	path   string
	items  []recommend.Item
	byKind map[recommend.SectionKind][]int
}

// NewFileProvider loads a .yaml, .yml or .json fixture.
func NewFileProvider(path string) (*FileProvider, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path comes from operator configuration
	if err != nil {
		return nil, fmt.Errorf("read catalog fixture: %w", err)
	}

	var fx fixture
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &fx)
	case ".json":
		err = json.Unmarshal(data, &fx)
	default:
		return nil, fmt.Errorf("unsupported catalog fixture extension %q", filepath.Ext(path))
	}
	if err != nil {
		return nil, fmt.Errorf("parse catalog fixture %s: %w", path, err)
	}
	return newFileProvider(path, &fx)
}

func newFileProvider(path string, fx *fixture) (*FileProvider, error) {
	index := make(map[string]int, len(fx.Items))
	for i, it := range fx.Items {
		if it.ID == "" {
			return nil, fmt.Errorf("catalog fixture item %d has no id", i)
		}
		if _, dup := index[it.ID]; dup {
			return nil, fmt.Errorf("catalog fixture item id %q is duplicated", it.ID)
		}
		index[it.ID] = i
	}

	byKind := make(map[recommend.SectionKind][]int, len(fx.Sections))
	for kind, ids := range fx.Sections {
		if !kind.Valid() {
			return nil, fmt.Errorf("catalog fixture section %q is not a known kind", kind)
		}
		positions := make([]int, 0, len(ids))
		for _, id := range ids {
			i, ok := index[id]
			if !ok {
				return nil, fmt.Errorf("catalog fixture section %q references unknown item %q", kind, id)
			}
			positions = append(positions, i)
		}
		byKind[kind] = positions
	}

	return &FileProvider{path: path, items: fx.Items, byKind: byKind}, nil
}

// FetchCandidates returns up to limit items for kind.
func (f *FileProvider) FetchCandidates(ctx context.Context, kind recommend.SectionKind, limit int) ([]recommend.Item, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	positions, restricted := f.byKind[kind]
	n := len(f.items)
	if restricted {
		n = len(positions)
	}
	if limit > 0 && limit < n {
		n = limit
	}

	out := make([]recommend.Item, n)
	for i := 0; i < n; i++ {
		src := i
		if restricted {
			src = positions[i]
		}
		it := f.items[src]
		it.CulturalTags = append([]string(nil), it.CulturalTags...)
		it.LanguageTags = append([]string(nil), it.LanguageTags...)
		out[i] = it
	}
	return out, nil
}

// Len returns the number of items in the fixture.
func (f *FileProvider) Len() int {
	return len(f.items)
}
