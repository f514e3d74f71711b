// Culturefeed - Content Personalization and Ranking Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/culturefeed

// Package logging configures the process-wide zerolog logger for culturefeed.
//
// The server calls Init once at startup. Components receive a logger by value
// and derive their own child loggers with a "component" field; request-scoped
// code pulls the logger out of the context with Ctx.
//
//	logging.Init(logging.Config{Level: "info", Format: "json", Timestamp: true})
//	log := logging.WithComponent("catalog")
//	log.Info().Str("source", "http").Msg("catalog ready")
//
// NewSlogLogger bridges the same logger into log/slog for libraries that
// only accept an *slog.Logger, such as the suture supervisor hooks.
package logging
