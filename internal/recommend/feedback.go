// Culturefeed - Content Personalization and Ranking Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/culturefeed

package recommend

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/culturefeed/internal/metrics"
)

// counterDelta is the optimistic engagement change for an event type.
// Bookmarks are UI-local and do not touch counters.
func counterDelta(t EventType) Engagement {
	switch t {
	case EventLike:
		return Engagement{Likes: 1}
	case EventUnlike:
		return Engagement{Likes: -1}
	case EventShare:
		return Engagement{Shares: 1}
	default:
		return Engagement{}
	}
}

// FeedbackLoop routes user feedback into the log, the cached sections and
// the preference model.
type FeedbackLoop struct {
	store    *InteractionStore
	model    *PreferenceModel
	sections *SectionRetriever
	debounce Debounced

	sink           EventSink
	publishTimeout time.Duration
	publishWG      sync.WaitGroup

	logger zerolog.Logger
}

// NewFeedbackLoop wires a loop. Recomputes are debounced through scheduler.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func NewFeedbackLoop(store *InteractionStore, model *PreferenceModel, sections *SectionRetriever,
	scheduler Scheduler, cfg FeedbackConfig, sink EventSink, logger zerolog.Logger) *FeedbackLoop {
	if scheduler == nil {
		scheduler = TimerScheduler{}
	}
	l := &FeedbackLoop{
		store:          store,
		model:          model,
		sections:       sections,
		sink:           sink,
		publishTimeout: cfg.PublishTimeout,
		logger:         logger,
	}
	l.debounce = scheduler.Debounce(func() { l.recompute() }, cfg.DebounceInterval)
	return l
}

// Record applies one feedback event:
//
//  1. optimistically adjusts the item's counters in every section holding it
//  2. appends the event to the log
//  3. schedules a debounced profile recompute
//
// A rejected event reverts step 1 and returns the *ValidationError.
func (l *FeedbackLoop) Record(ctx context.Context, itemID string, eventType EventType, tags TagsSnapshot) error {
	changes := l.sections.AdjustEngagement(itemID, counterDelta(eventType))

	ev, err := l.store.Append(InteractionEvent{
		Type:         eventType,
		ItemID:       itemID,
		CulturalTags: tags.CulturalTags,
		LanguageTags: tags.LanguageTags,
		ContentType:  tags.ContentType,
	})
	if err != nil {
		l.sections.RevertEngagement(changes)
		metrics.RecordFeedback(string(eventType), false)
		return err
	}
	metrics.RecordFeedback(string(eventType), true)

	l.debounce.Trigger()
	l.publish(ctx, ev)
	return nil
}

// recompute rebuilds the profile and flags profile-dependent sections.
func (l *FeedbackLoop) recompute() PreferenceProfile {
	profile := l.model.Recompute(l.store)
	marked := l.sections.MarkProfileStale()
	l.logger.Debug().
		Uint64("profile_version", profile.Version).
		Strs("stale_sections", marked).
		Msg("profile recomputed, sections marked stale")
	return profile
}

// publish forwards the event to the sink without blocking the caller.
//
//nolint:gocritic // ev is copied into the goroutine
func (l *FeedbackLoop) publish(ctx context.Context, ev InteractionEvent) {
	if l.sink == nil {
		return
	}
	timeout := l.publishTimeout
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)

	l.publishWG.Add(1)
	go func() {
		defer l.publishWG.Done()
		defer cancel()
		err := l.sink.PublishInteraction(pubCtx, ev)
		metrics.RecordEventPublish(err)
		if err != nil {
			l.logger.Warn().Err(err).Str("event_id", ev.ID).Msg("failed to publish interaction event")
		}
	}()
}

// RecomputeNow rebuilds the profile and flags sections immediately. A
// pending debounced recompute is run in its place rather than repeated.
func (l *FeedbackLoop) RecomputeNow() PreferenceProfile {
	if l.debounce.Flush() {
		return l.model.Current()
	}
	return l.recompute()
}

// Flush runs a pending recompute immediately.
func (l *FeedbackLoop) Flush() {
	l.debounce.Flush()
}

// Close flushes the pending recompute, stops the debouncer and waits for
// in-flight publications.
func (l *FeedbackLoop) Close() {
	l.debounce.Flush()
	l.debounce.Stop()
	l.publishWG.Wait()
}
