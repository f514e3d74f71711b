// Culturefeed - Content Personalization and Ranking Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/culturefeed

// Package api exposes per-user engines over a JSON HTTP API built on chi.
//
// Every response uses the APIResponse envelope. Routes live under
// /api/v1/users/{userID}; the engine for a user is created on first use by
// the session registry and shared by all of that user's requests.
//
//	GET    /api/v1/users/{userID}/sections
//	GET    /api/v1/users/{userID}/sections/{sectionID}
//	POST   /api/v1/users/{userID}/sections/refresh
//	POST   /api/v1/users/{userID}/sections/{sectionID}/refresh[?wait=true]
//	POST   /api/v1/users/{userID}/feedback
//	GET    /api/v1/users/{userID}/profile
//	POST   /api/v1/users/{userID}/profile/recompute
//	GET    /api/v1/users/{userID}/interactions[?limit=n]
//	DELETE /api/v1/users/{userID}/interactions
//	DELETE /api/v1/users/{userID}
//	GET    /health
//	GET    /metrics
package api
