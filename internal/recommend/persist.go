// Culturefeed - Content Personalization and Ranking Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/culturefeed

package recommend

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/culturefeed/internal/metrics"
	"github.com/tomtom215/culturefeed/internal/persistence"
)

// persistHealth tracks whether persistence is currently failing so that a
// failure episode produces one warning, not one per operation.
type persistHealth struct {
	failing atomic.Bool
	logger  zerolog.Logger
}

//nolint:gocritic // zerolog.Logger is designed to be passed by value
func newPersistHealth(logger zerolog.Logger) *persistHealth {
	return &persistHealth{logger: logger}
}

// report records the outcome of one operation and returns it as a
// *PersistenceError (nil on success).
func (h *persistHealth) report(op PersistenceOp, key string, err error) error {
	metrics.RecordPersistence(string(op), err)
	if err == nil {
		if h.failing.CompareAndSwap(true, false) {
			h.logger.Info().Str("op", string(op)).Str("key", key).Msg("persistence recovered")
		}
		return nil
	}

	perr := &PersistenceError{Op: op, Key: key, Err: err}
	if h.failing.CompareAndSwap(false, true) {
		h.logger.Warn().Err(err).Str("op", string(op)).Str("key", key).
			Msg("persistence failing, continuing in memory only")
	}
	return perr
}

// Failing reports whether the last persistence operation failed.
func (h *persistHealth) Failing() bool {
	return h.failing.Load()
}

// backgroundSaver writes one key from a dedicated goroutine. Triggers made
// while a save is running coalesce into one follow-up save, and the value
// is encoded at write time, so only the latest state is ever written.
type backgroundSaver struct {
	provider persistence.Provider
	key      string
	timeout  time.Duration
	encode   func() ([]byte, error)
	health   *persistHealth

	wake      chan struct{}
	stop      chan struct{}
	done      chan struct{}
	closeOnce sync.Once

	// saves counts completed save attempts; used by tests to await writes.
	saves atomic.Uint64
}

func newBackgroundSaver(provider persistence.Provider, key string, timeout time.Duration,
	encode func() ([]byte, error), health *persistHealth) *backgroundSaver {
	s := &backgroundSaver{
		provider: provider,
		key:      key,
		timeout:  timeout,
		encode:   encode,
		health:   health,
		wake:     make(chan struct{}, 1),
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
	go s.run()
	return s
}

// Trigger schedules a save without blocking.
func (s *backgroundSaver) Trigger() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

func (s *backgroundSaver) run() {
	defer close(s.done)
	for {
		select {
		case <-s.wake:
			s.save()
		case <-s.stop:
			// Drain a pending trigger so the final state is written.
			select {
			case <-s.wake:
				s.save()
			default:
			}
			return
		}
	}
}

func (s *backgroundSaver) save() {
	defer s.saves.Add(1)

	data, err := s.encode()
	if err != nil {
		_ = s.health.report(OpSave, s.key, err) //nolint:errcheck // reported via log and metrics
		return
	}

	timeout := s.timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	_ = s.health.report(OpSave, s.key, s.provider.Save(ctx, s.key, data)) //nolint:errcheck // reported via log and metrics
}

// Close writes any pending state and stops the goroutine.
func (s *backgroundSaver) Close() {
	s.closeOnce.Do(func() {
		close(s.stop)
	})
	<-s.done
}

// loadBlob reads key, mapping a missing key to (nil, nil).
func loadBlob(ctx context.Context, provider persistence.Provider, key string, health *persistHealth) ([]byte, error) {
	data, err := provider.Load(ctx, key)
	if errors.Is(err, persistence.ErrNotFound) {
		metrics.RecordPersistence(string(OpLoad), nil)
		return nil, nil
	}
	if err := health.report(OpLoad, key, err); err != nil {
		return nil, err
	}
	return data, nil
}
