// Culturefeed - Content Personalization and Ranking Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/culturefeed

package events

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/goccy/go-json"
	natsgo "github.com/nats-io/nats.go"
	"github.com/rs/zerolog"

	"github.com/tomtom215/culturefeed/internal/recommend"
)

// DefaultTopic is the topic feedback events are published on.
const DefaultTopic = "feedback.recorded"

// Metadata keys set on every message.
const (
	MetadataUserID    = "user_id"
	MetadataEventType = "event_type"
)

// ErrPublisherClosed is returned after Close.
var ErrPublisherClosed = errors.New("publisher is closed")

// FeedbackEvent is the message payload of one accepted interaction.
type FeedbackEvent struct {
	EventID      string    `json:"event_id"`
	UserID       string    `json:"user_id"`
	Type         string    `json:"type"`
	ItemID       string    `json:"item_id"`
	CulturalTags []string  `json:"cultural_tags,omitempty"`
	LanguageTags []string  `json:"language_tags,omitempty"`
	ContentType  string    `json:"content_type,omitempty"`
	OccurredAt   time.Time `json:"occurred_at"`
}

// Publisher sends feedback events to a Watermill publisher.
type Publisher struct {
	publisher  message.Publisher
	subscriber message.Subscriber
	topic      string
	logger     zerolog.Logger

	mu     sync.RWMutex
	closed bool
}

// NewPublisher wraps pub. An empty topic selects DefaultTopic.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func NewPublisher(pub message.Publisher, topic string, logger zerolog.Logger) *Publisher {
	if topic == "" {
		topic = DefaultTopic
	}
	return &Publisher{
		publisher: pub,
		topic:     topic,
		logger:    logger.With().Str("component", "events").Str("topic", topic).Logger(),
	}
}

// NewMemoryPublisher publishes to an in-process GoChannel. The GoChannel is
// returned so in-process consumers can subscribe to it.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func NewMemoryPublisher(topic string, logger zerolog.Logger) (*Publisher, *gochannel.GoChannel) {
	ch := gochannel.NewGoChannel(gochannel.Config{
		OutputChannelBuffer: 256,
	}, NewLoggerAdapter(logger))
	p := NewPublisher(ch, topic, logger)
	p.subscriber = ch
	return p, ch
}

// Subscriber returns the in-process subscriber of the memory backend, or
// nil when events leave the process.
func (p *Publisher) Subscriber() message.Subscriber {
	return p.subscriber
}

// Topic returns the topic messages are published on.
func (p *Publisher) Topic() string {
	return p.topic
}

// Publish sends one event. The event id doubles as the message UUID and the
// NATS deduplication id.
func (p *Publisher) Publish(ctx context.Context, event *FeedbackEvent) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrPublisherClosed
	}

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("serialize feedback event: %w", err)
	}

	id := event.EventID
	if id == "" {
		id = watermill.NewUUID()
	}
	msg := message.NewMessage(id, data)
	msg.Metadata.Set(MetadataUserID, event.UserID)
	msg.Metadata.Set(MetadataEventType, event.Type)
	msg.Metadata.Set(natsgo.MsgIdHdr, id)
	msg.SetContext(ctx)

	if err := p.publisher.Publish(p.topic, msg); err != nil {
		return fmt.Errorf("publish feedback event %s: %w", id, err)
	}
	p.logger.Debug().Str("event_id", id).Str("user_id", event.UserID).Msg("feedback event published")
	return nil
}

// ForUser returns an EventSink that tags events with userID.
func (p *Publisher) ForUser(userID string) recommend.EventSink {
	return &userSink{publisher: p, userID: userID}
}

// Close closes the underlying publisher. It is safe to call more than once.
func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true
	return p.publisher.Close()
}

type userSink struct {
	publisher *Publisher
	userID    string
}

// PublishInteraction implements recommend.EventSink.
//
//nolint:gocritic // signature fixed by recommend.EventSink
func (s *userSink) PublishInteraction(ctx context.Context, ev recommend.InteractionEvent) error {
	return s.publisher.Publish(ctx, &FeedbackEvent{
		EventID:      ev.ID,
		UserID:       s.userID,
		Type:         string(ev.Type),
		ItemID:       ev.ItemID,
		CulturalTags: ev.CulturalTags,
		LanguageTags: ev.LanguageTags,
		ContentType:  string(ev.ContentType),
		OccurredAt:   ev.OccurredAt,
	})
}

// Decode parses a message payload published by Publisher.
func Decode(msg *message.Message) (*FeedbackEvent, error) {
	var ev FeedbackEvent
	if err := json.Unmarshal(msg.Payload, &ev); err != nil {
		return nil, fmt.Errorf("decode feedback event %s: %w", msg.UUID, err)
	}
	return &ev, nil
}
