// Culturefeed - Content Personalization and Ranking Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/culturefeed

// Package supervisor runs the long-lived culturefeed services under a suture
// supervisor tree.
//
// The tree has three layers so a crash in one does not restart the others:
//
//	culturefeed
//	├── data-layer       scheduled section refresh and idle session cleanup
//	├── messaging-layer  in-process feedback event consumer
//	└── api-layer        HTTP server
//
// Supervisor events are logged through sutureslog with a zerolog-backed
// slog.Logger from the logging package.
package supervisor
