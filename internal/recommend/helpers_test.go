// Culturefeed - Content Personalization and Ranking Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/culturefeed

package recommend

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/culturefeed/internal/persistence"
)

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func testLogger() zerolog.Logger {
	return zerolog.Nop()
}

func testClock() time.Time {
	return testNow
}

// testItem builds an item with the given like count created hoursAgo before testNow.
func testItem(id string, likes int, hoursAgo int) Item {
	return Item{
		ID:            id,
		ContentType:   ContentArticle,
		CulturalTags:  []string{"日本文化"},
		LanguageTags:  []string{"日语"},
		LearningValue: 50,
		Engagement:    Engagement{Likes: likes, Comments: 1, Shares: 0, Views: 1000},
		CreatedAt:     testNow.Add(-time.Duration(hoursAgo) * time.Hour),
	}
}

// waitDone waits for ch to close or fails the test.
func waitDone(t *testing.T, ch <-chan struct{}) {
	t.Helper()
	select {
	case <-ch:
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for completion")
	}
}

// waitFor polls cond until it holds or fails the test.
func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func itemIDs(items []ScoredItem) []string {
	ids := make([]string, len(items))
	for i, it := range items {
		ids[i] = it.ID
	}
	return ids
}

// staticCatalog returns a fixed candidate list per kind (or for all kinds).
type staticCatalog struct {
	mu     sync.Mutex
	all    []Item
	byKind map[SectionKind][]Item
	errs   map[SectionKind]error
	err    error
	calls  int
}

func (c *staticCatalog) FetchCandidates(_ context.Context, kind SectionKind, _ int) ([]Item, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	if err := c.errs[kind]; err != nil {
		return nil, err
	}
	if c.err != nil {
		return nil, c.err
	}
	if items, ok := c.byKind[kind]; ok {
		return append([]Item(nil), items...), nil
	}
	return append([]Item(nil), c.all...), nil
}

func (c *staticCatalog) setErr(err error) {
	c.mu.Lock()
	c.err = err
	c.mu.Unlock()
}

func (c *staticCatalog) setItems(items []Item) {
	c.mu.Lock()
	c.all = items
	c.mu.Unlock()
}

// gatedCatalog hands every fetch to the test, which decides when and how it
// resolves. It ignores cancellation so late responses can be simulated.
type gatedCatalog struct {
	calls chan *gatedCall
}

type gatedCall struct {
	kind    SectionKind
	respond chan gatedResult
}

type gatedResult struct {
	items []Item
	err   error
}

func newGatedCatalog() *gatedCatalog {
	return &gatedCatalog{calls: make(chan *gatedCall, 16)}
}

func (c *gatedCatalog) FetchCandidates(_ context.Context, kind SectionKind, _ int) ([]Item, error) {
	call := &gatedCall{kind: kind, respond: make(chan gatedResult, 1)}
	c.calls <- call
	r := <-call.respond
	return r.items, r.err
}

func (c *gatedCatalog) next(t *testing.T) *gatedCall {
	t.Helper()
	select {
	case call := <-c.calls:
		return call
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for catalog call")
		return nil
	}
}

// fixedProfiles is a profileSource returning a constant profile.
type fixedProfiles struct {
	mu      sync.Mutex
	profile PreferenceProfile
}

func (f *fixedProfiles) Current() PreferenceProfile {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.profile.Clone()
}

func (f *fixedProfiles) set(p PreferenceProfile) {
	f.mu.Lock()
	f.profile = p
	f.mu.Unlock()
}

// manualScheduler records debounced functions; tests run them with Flush.
type manualScheduler struct {
	mu        sync.Mutex
	debounced []*manualDebounced
}

func (s *manualScheduler) Debounce(fn func(), _ time.Duration) Debounced {
	d := &manualDebounced{fn: fn}
	s.mu.Lock()
	s.debounced = append(s.debounced, d)
	s.mu.Unlock()
	return d
}

type manualDebounced struct {
	mu       sync.Mutex
	fn       func()
	pending  bool
	triggers int
	runs     int
	stopped  bool
}

func (d *manualDebounced) Trigger() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopped {
		return
	}
	d.pending = true
	d.triggers++
}

func (d *manualDebounced) Flush() bool {
	d.mu.Lock()
	if !d.pending || d.stopped {
		d.mu.Unlock()
		return false
	}
	d.pending = false
	d.runs++
	d.mu.Unlock()
	d.fn()
	return true
}

func (d *manualDebounced) Stop() {
	d.mu.Lock()
	d.stopped = true
	d.pending = false
	d.mu.Unlock()
}

func (d *manualDebounced) counts() (triggers, runs int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.triggers, d.runs
}

// toggleProvider is a persistence provider whose failures can be switched on.
type toggleProvider struct {
	mu     sync.Mutex
	values map[string][]byte
	fail   bool
	saves  int
}

var errDiskFull = errors.New("disk full")

func newToggleProvider() *toggleProvider {
	return &toggleProvider{values: make(map[string][]byte)}
}

func (p *toggleProvider) Load(_ context.Context, key string) ([]byte, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.fail {
		return nil, errDiskFull
	}
	v, ok := p.values[key]
	if !ok {
		return nil, persistence.ErrNotFound
	}
	return append([]byte(nil), v...), nil
}

func (p *toggleProvider) Save(_ context.Context, key string, value []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.saves++
	if p.fail {
		return errDiskFull
	}
	p.values[key] = append([]byte(nil), value...)
	return nil
}

func (p *toggleProvider) setFail(fail bool) {
	p.mu.Lock()
	p.fail = fail
	p.mu.Unlock()
}

// syncBuffer is a goroutine-safe log sink.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}
