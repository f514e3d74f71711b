// Culturefeed - Content Personalization and Ranking Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/culturefeed

package events

import (
	"fmt"

	"github.com/rs/zerolog"
)

// Event bus backends.
const (
	BackendNone   = "none"
	BackendMemory = "memory"
	BackendNATS   = "nats"
)

// Open creates the publisher selected by backend. BackendNone (or an empty
// backend) returns a nil publisher: events are not published.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func Open(backend string, cfg NATSConfig, logger zerolog.Logger) (*Publisher, error) {
	switch backend {
	case BackendNone, "":
		return nil, nil
	case BackendMemory:
		pub, _ := NewMemoryPublisher(cfg.Topic, logger)
		return pub, nil
	case BackendNATS:
		return NewNATSPublisher(cfg, logger)
	default:
		return nil, fmt.Errorf("unknown event backend %q", backend)
	}
}
