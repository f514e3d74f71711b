// Culturefeed - Content Personalization and Ranking Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/culturefeed

package events

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	natsgo "github.com/nats-io/nats.go"
	"github.com/rs/zerolog"

	"github.com/tomtom215/culturefeed/internal/recommend"
)

func receive(t *testing.T, ch <-chan *message.Message) *message.Message {
	t.Helper()
	select {
	case msg := <-ch:
		msg.Ack()
		return msg
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for message")
		return nil
	}
}

func TestPublisher_UserSinkPublishesEvent(t *testing.T) {
	t.Parallel()

	pub, bus := NewMemoryPublisher("", zerolog.Nop())
	defer pub.Close()

	msgs, err := bus.Subscribe(context.Background(), DefaultTopic)
	if err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}

	occurred := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	sink := pub.ForUser("user-7")
	err = sink.PublishInteraction(context.Background(), recommend.InteractionEvent{
		ID:           "3f1c6c44-7d0e-4f55-a4c6-0e9a0a9a7b11",
		Type:         recommend.EventLike,
		ItemID:       "tea-ceremony",
		CulturalTags: []string{"日本文化"},
		LanguageTags: []string{"日语"},
		ContentType:  recommend.ContentVideo,
		OccurredAt:   occurred,
	})
	if err != nil {
		t.Fatalf("PublishInteraction() error = %v", err)
	}

	msg := receive(t, msgs)
	if msg.UUID != "3f1c6c44-7d0e-4f55-a4c6-0e9a0a9a7b11" {
		t.Errorf("UUID = %q", msg.UUID)
	}
	if got := msg.Metadata.Get(natsgo.MsgIdHdr); got != msg.UUID {
		t.Errorf("%s = %q, want message UUID", natsgo.MsgIdHdr, got)
	}
	if msg.Metadata.Get(MetadataUserID) != "user-7" || msg.Metadata.Get(MetadataEventType) != "like" {
		t.Errorf("metadata = %v", msg.Metadata)
	}

	ev, err := Decode(msg)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if ev.UserID != "user-7" || ev.ItemID != "tea-ceremony" || ev.ContentType != "video" ||
		!ev.OccurredAt.Equal(occurred) || len(ev.CulturalTags) != 1 {
		t.Errorf("decoded event = %+v", ev)
	}
}

func TestPublisher_AssignsIDWhenMissing(t *testing.T) {
	t.Parallel()

	pub, bus := NewMemoryPublisher("custom.topic", zerolog.Nop())
	defer pub.Close()
	if pub.Topic() != "custom.topic" {
		t.Fatalf("Topic() = %q", pub.Topic())
	}

	msgs, err := bus.Subscribe(context.Background(), "custom.topic")
	if err != nil {
		t.Fatal(err)
	}
	if err := pub.Publish(context.Background(), &FeedbackEvent{Type: "click", ItemID: "a"}); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}
	if msg := receive(t, msgs); msg.UUID == "" {
		t.Error("message UUID not assigned")
	}
}

func TestPublisher_Close(t *testing.T) {
	t.Parallel()

	pub, _ := NewMemoryPublisher("", zerolog.Nop())
	if err := pub.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if err := pub.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}
	if err := pub.Publish(context.Background(), &FeedbackEvent{}); !errors.Is(err, ErrPublisherClosed) {
		t.Errorf("Publish() after Close error = %v, want ErrPublisherClosed", err)
	}
}

func TestDecode_InvalidPayload(t *testing.T) {
	t.Parallel()

	if _, err := Decode(message.NewMessage("x", []byte("{"))); err == nil {
		t.Error("Decode() should fail on invalid JSON")
	}
}

func TestOpen(t *testing.T) {
	t.Parallel()

	tests := []struct {
		backend string
		wantNil bool
		wantErr bool
	}{
		{backend: "", wantNil: true},
		{backend: BackendNone, wantNil: true},
		{backend: BackendMemory},
		{backend: BackendNATS, wantNil: true, wantErr: true},
		{backend: "kafka", wantNil: true, wantErr: true},
	}
	for _, tt := range tests {
		pub, err := Open(tt.backend, NATSConfig{}, zerolog.Nop())
		if (err != nil) != tt.wantErr {
			t.Errorf("Open(%q) error = %v, wantErr %v", tt.backend, err, tt.wantErr)
		}
		if (pub == nil) != tt.wantNil {
			t.Errorf("Open(%q) publisher = %v, wantNil %v", tt.backend, pub, tt.wantNil)
		}
		if pub != nil {
			if tt.backend == BackendMemory && pub.Subscriber() == nil {
				t.Error("memory backend has no in-process subscriber")
			}
			_ = pub.Close()
		}
	}
}

func TestLoggerAdapter(t *testing.T) {
	t.Parallel()

	a := NewLoggerAdapter(zerolog.Nop()).With(map[string]interface{}{"k": "v"})
	a.Info("info", nil)
	a.Debug("debug", nil)
	a.Trace("trace", nil)
	a.Error("error", errors.New("boom"), nil)
}
