// Culturefeed - Content Personalization and Ranking Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/culturefeed

package services

import (
	"context"
	"errors"
	"net/http"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

// fakeAPIServer blocks in ListenAndServe until Shutdown or closeSelf.
type fakeAPIServer struct {
	listenErr     error
	started       chan struct{}
	stop          chan struct{}
	shutdownCalls atomic.Int32
	drainDeadline atomic.Bool
}

func newFakeAPIServer(listenErr error) *fakeAPIServer {
	return &fakeAPIServer{
		listenErr: listenErr,
		started:   make(chan struct{}),
		stop:      make(chan struct{}),
	}
}

func (f *fakeAPIServer) ListenAndServe() error {
	close(f.started)
	if f.listenErr != nil {
		return f.listenErr
	}
	<-f.stop
	return http.ErrServerClosed
}

func (f *fakeAPIServer) Shutdown(ctx context.Context) error {
	f.shutdownCalls.Add(1)
	_, ok := ctx.Deadline()
	f.drainDeadline.Store(ok && ctx.Err() == nil)
	close(f.stop)
	return nil
}

func TestAPIService_DrainsOnCancel(t *testing.T) {
	t.Parallel()

	srv := newFakeAPIServer(nil)
	svc := NewAPIService(srv, ":0", time.Second, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.Serve(ctx) }()

	<-srv.started
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Serve() = %v, want context.Canceled", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Serve did not return after cancel")
	}
	if got := srv.shutdownCalls.Load(); got != 1 {
		t.Errorf("Shutdown called %d times, want 1", got)
	}
	if !srv.drainDeadline.Load() {
		t.Error("Shutdown must get a live context bounded by the drain timeout")
	}
}

func TestAPIService_Failures(t *testing.T) {
	t.Parallel()

	boom := errors.New("address in use")
	tests := []struct {
		name   string
		server *fakeAPIServer
		want   error
	}{
		{name: "listen failure", server: newFakeAPIServer(boom), want: boom},
		{name: "closed outside supervisor", server: newFakeAPIServer(http.ErrServerClosed), want: errAPIClosed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			svc := NewAPIService(tt.server, ":8080", 0, zerolog.Nop())
			if err := svc.Serve(context.Background()); !errors.Is(err, tt.want) {
				t.Errorf("Serve() = %v, want %v", err, tt.want)
			}
			if svc.drain != defaultDrainTimeout {
				t.Errorf("default drain = %v", svc.drain)
			}
		})
	}
}

func TestAPIService_String(t *testing.T) {
	t.Parallel()

	if got := NewAPIService(newFakeAPIServer(nil), ":8080", 0, zerolog.Nop()).String(); got != "feed-api" {
		t.Errorf("String() = %q, want feed-api", got)
	}
}
