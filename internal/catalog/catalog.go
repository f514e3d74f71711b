// Culturefeed - Content Personalization and Ranking Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/culturefeed

package catalog

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/culturefeed/internal/recommend"
)

// Catalog sources.
const (
	SourceGenerator = "generator"
	SourceFile      = "file"
	SourceHTTP      = "http"
)

// Config selects and configures a catalog backend.
type Config struct {
	// Source is one of generator, file or http.
	Source string

	// Path of the fixture file (file source).
	Path string

	// Seed and Size of the synthetic catalog (generator source).
	Seed int64
	Size int

	// BaseURL of the upstream service (http source).
	BaseURL string

	// Timeout bounds one upstream request.
	Timeout time.Duration

	// RequestsPerSecond and Burst bound the upstream request rate.
	RequestsPerSecond float64
	Burst             int
}

// New builds the backend selected by cfg.Source.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func New(cfg Config, logger zerolog.Logger) (recommend.CatalogProvider, error) {
	logger = logger.With().Str("component", "catalog").Str("source", cfg.Source).Logger()

	switch cfg.Source {
	case SourceGenerator, "":
		return NewGeneratorProvider(cfg.Seed, cfg.Size, time.Now), nil
	case SourceFile:
		return NewFileProvider(cfg.Path)
	case SourceHTTP:
		return NewHTTPProvider(HTTPConfig{
			BaseURL:           cfg.BaseURL,
			Timeout:           cfg.Timeout,
			RequestsPerSecond: cfg.RequestsPerSecond,
			Burst:             cfg.Burst,
		}, logger)
	default:
		return nil, fmt.Errorf("unknown catalog source %q", cfg.Source)
	}
}
