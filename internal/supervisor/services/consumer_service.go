// Culturefeed - Content Personalization and Ranking Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/culturefeed

package services

import (
	"context"
	"fmt"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/rs/zerolog"

	"github.com/tomtom215/culturefeed/internal/events"
	"github.com/tomtom215/culturefeed/internal/metrics"
)

// FeedbackHandler processes one decoded feedback event.
type FeedbackHandler func(ctx context.Context, ev *events.FeedbackEvent) error

// FeedbackConsumerService subscribes to the feedback topic and hands every
// event to a handler. Undecodable messages are acked and dropped; handler
// failures are nacked for redelivery.
type FeedbackConsumerService struct {
	subscriber message.Subscriber
	topic      string
	handler    FeedbackHandler
	logger     zerolog.Logger
}

// NewFeedbackConsumerService creates the consumer. A nil handler only
// counts and logs events.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func NewFeedbackConsumerService(sub message.Subscriber, topic string, handler FeedbackHandler,
	logger zerolog.Logger) *FeedbackConsumerService {
	return &FeedbackConsumerService{
		subscriber: sub,
		topic:      topic,
		handler:    handler,
		logger:     logger.With().Str("service", "feedback-consumer").Str("topic", topic).Logger(),
	}
}

// Serve implements suture.Service.
func (s *FeedbackConsumerService) Serve(ctx context.Context) error {
	msgs, err := s.subscriber.Subscribe(ctx, s.topic)
	if err != nil {
		return fmt.Errorf("subscribe to %s: %w", s.topic, err)
	}
	s.logger.Info().Msg("feedback consumer running")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-msgs:
			if !ok {
				// Subscriber closed underneath us; let the supervisor decide.
				if ctx.Err() != nil {
					return ctx.Err()
				}
				return fmt.Errorf("subscription to %s closed", s.topic)
			}
			s.handle(ctx, msg)
		}
	}
}

func (s *FeedbackConsumerService) handle(ctx context.Context, msg *message.Message) {
	ev, err := events.Decode(msg)
	if err != nil {
		s.logger.Warn().Err(err).Str("message_id", msg.UUID).Msg("dropping malformed feedback event")
		msg.Ack()
		return
	}

	if s.handler != nil {
		if err := s.handler(ctx, ev); err != nil {
			s.logger.Warn().Err(err).Str("event_id", ev.EventID).Msg("feedback handler failed")
			msg.Nack()
			return
		}
	}
	metrics.RecordEventConsumed(ev.Type)
	s.logger.Debug().
		Str("event_id", ev.EventID).
		Str("user_id", ev.UserID).
		Str("type", ev.Type).
		Msg("feedback event consumed")
	msg.Ack()
}

func (s *FeedbackConsumerService) String() string {
	return "feedback-consumer"
}
