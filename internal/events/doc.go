// Culturefeed - Content Personalization and Ranking Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/culturefeed

/*
Package events publishes accepted feedback events to a message bus.

Publisher adapts a Watermill message.Publisher to recommend.EventSink, one
sink per user session. Every accepted interaction becomes one message on the
feedback topic (default "feedback.recorded") carrying a FeedbackEvent JSON
payload.

# Backends

  - memory: an in-process Watermill GoChannel, useful for local consumers
    and tests
  - nats: NATS JetStream through watermill-nats; the event id is sent as
    Nats-Msg-Id so redeliveries are deduplicated by the stream

Publication is fire-and-forget from the engine's point of view: a failing
bus is logged and counted but never fails a feedback call.
*/
package events
