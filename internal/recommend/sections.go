// Culturefeed - Content Personalization and Ranking Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/culturefeed

package recommend

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/culturefeed/internal/metrics"
)

// profileSource supplies the profile sections are ranked against.
type profileSource interface {
	Current() PreferenceProfile
}

// section is the mutable state of one named section. Fields are guarded by
// mu, which is never held across a catalog fetch.
type section struct {
	cfg SectionConfig

	mu         sync.Mutex
	state      SectionState
	candidates []Item
	items      []ScoredItem
	epoch      uint64
	cancel     context.CancelFunc

	// stale is set when a refresh failed while items were held.
	stale   bool
	lastErr string

	// profileStale is set after a recompute for profile-dependent kinds;
	// dirty after an optimistic counter change. Either causes a re-rank of
	// the cached candidates on the next read.
	profileStale   bool
	dirty          bool
	profileVersion uint64
	updatedAt      time.Time
}

// SectionRetriever serves ranked sections, each fetched and cached
// independently of the others.
type SectionRetriever struct {
	configs  []SectionConfig
	fetchCfg FetchConfig
	catalog  CatalogProvider
	ranker   *ranker
	profiles profileSource
	now      func() time.Time
	logger   zerolog.Logger

	baseCtx context.Context
	stop    context.CancelFunc
	wg      sync.WaitGroup

	mu       sync.Mutex
	sections map[string]*section
	closed   bool
}

// NewSectionRetriever creates a retriever for the configured sections.
// Section state is allocated on first access.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func NewSectionRetriever(cfg *Config, catalog CatalogProvider, profiles profileSource,
	now func() time.Time, logger zerolog.Logger) *SectionRetriever {
	if now == nil {
		now = time.Now
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &SectionRetriever{
		configs:  append([]SectionConfig(nil), cfg.Sections...),
		fetchCfg: cfg.Fetch,
		catalog:  catalog,
		ranker: &ranker{
			scorer:          NewScorer(cfg.Scoring),
			secondaryWeight: cfg.Ranking.SecondaryWeight,
		},
		profiles: profiles,
		now:      now,
		logger:   logger,
		baseCtx:  ctx,
		stop:     cancel,
		sections: make(map[string]*section),
	}
}

// SectionIDs returns the configured section ids in declaration order.
func (r *SectionRetriever) SectionIDs() []string {
	ids := make([]string, len(r.configs))
	for i, c := range r.configs {
		ids[i] = c.ID
	}
	return ids
}

// lookup returns the section state for id, creating it on first access.
func (r *SectionRetriever) lookup(id string) (*section, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil, ErrEngineClosed
	}
	if sec, ok := r.sections[id]; ok {
		return sec, nil
	}
	for _, c := range r.configs {
		if c.ID == id {
			sec := &section{cfg: c}
			r.sections[id] = sec
			return sec, nil
		}
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownSection, id)
}

// existing returns the sections allocated so far.
func (r *SectionRetriever) existing() []*section {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*section, 0, len(r.sections))
	for _, sec := range r.sections {
		out = append(out, sec)
	}
	return out
}

// Get returns a snapshot of the section without blocking on I/O. The first
// access starts a fetch and reports Loading. Cached candidates are re-ranked
// first when the profile or their counters changed.
func (r *SectionRetriever) Get(id string) (SectionSnapshot, error) {
	sec, err := r.lookup(id)
	if err != nil {
		return SectionSnapshot{}, err
	}
	if _, err := r.start(sec, true); err != nil && !errors.Is(err, errNotIdle) {
		return SectionSnapshot{}, err
	}

	sec.mu.Lock()
	defer sec.mu.Unlock()

	if (sec.profileStale || sec.dirty) && sec.candidates != nil {
		profile := r.profiles.Current()
		sec.items = r.ranker.rank(sec.cfg.Kind, sec.candidates, profile, r.now(), sec.cfg.Limit)
		sec.profileVersion = profile.Version
		sec.profileStale = false
		sec.dirty = false
	}

	snap := sec.snapshot()
	if snap.Stale {
		metrics.RecordStaleServe(string(sec.cfg.Kind))
	}
	return snap, nil
}

// Refresh starts a new fetch for the section and returns immediately. The
// returned channel is closed once that fetch has been applied or discarded.
func (r *SectionRetriever) Refresh(id string) (<-chan struct{}, error) {
	sec, err := r.lookup(id)
	if err != nil {
		return nil, err
	}
	return r.start(sec, false)
}

// errNotIdle is returned by start when onlyIfIdle is set and the section has
// already been started.
var errNotIdle = errors.New("section not idle")

// start bumps the epoch, supersedes any in-flight fetch and launches a new one.
func (r *SectionRetriever) start(sec *section, onlyIfIdle bool) (<-chan struct{}, error) {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil, ErrEngineClosed
	}
	r.wg.Add(1)
	r.mu.Unlock()

	sec.mu.Lock()
	if onlyIfIdle && sec.state != StateIdle {
		sec.mu.Unlock()
		r.wg.Done()
		return nil, errNotIdle
	}

	sec.epoch++
	epoch := sec.epoch
	if sec.cancel != nil {
		sec.cancel()
	}
	ctx, cancel := context.WithTimeout(r.baseCtx, r.fetchCfg.Timeout)
	sec.cancel = cancel

	switch {
	case len(sec.items) > 0 || sec.state == StateReady:
		sec.state = StateRefreshing
	default:
		sec.state = StateLoading
	}
	cfg := sec.cfg
	sec.mu.Unlock()

	r.logger.Debug().Str("section", cfg.ID).Uint64("epoch", epoch).Msg("section fetch started")

	done := make(chan struct{})
	go func() {
		defer r.wg.Done()
		defer close(done)
		defer cancel()
		r.fetchAndApply(ctx, sec, cfg, epoch)
	}()
	return done, nil
}

// fetchAndApply runs one fetch and applies it if epoch is still current.
//
//nolint:gocritic // cfg is a small value copy taken under the section lock
func (r *SectionRetriever) fetchAndApply(ctx context.Context, sec *section, cfg SectionConfig, epoch uint64) {
	kind := string(cfg.Kind)
	start := time.Now()
	fetchLimit := cfg.Limit * r.fetchCfg.CandidateMultiplier

	candidates, err := r.catalog.FetchCandidates(ctx, cfg.Kind, fetchLimit)
	elapsed := time.Since(start)

	var ranked []ScoredItem
	var profile PreferenceProfile
	if err == nil {
		candidates = cloneItems(candidates)
		profile = r.profiles.Current()
		ranked = r.ranker.rank(cfg.Kind, candidates, profile, r.now(), cfg.Limit)
	}

	sec.mu.Lock()
	defer sec.mu.Unlock()

	if sec.epoch != epoch {
		metrics.RecordSectionFetch(kind, metrics.OutcomeDiscarded, elapsed)
		r.logger.Debug().Str("section", cfg.ID).Uint64("epoch", epoch).Uint64("current_epoch", sec.epoch).
			Msg("discarded superseded section fetch")
		return
	}
	sec.cancel = nil
	sec.updatedAt = r.now()

	if err != nil {
		ferr := &FetchError{SectionID: cfg.ID, Kind: cfg.Kind, Err: err}
		sec.lastErr = ferr.Error()
		metrics.RecordSectionFetch(kind, metrics.OutcomeError, elapsed)

		if len(sec.items) > 0 {
			sec.state = StateReady
			sec.stale = true
			r.logger.Warn().Err(ferr).Str("section", cfg.ID).Int("cached_items", len(sec.items)).
				Msg("section refresh failed, serving cached items")
			return
		}
		sec.state = StateError
		r.logger.Warn().Err(ferr).Str("section", cfg.ID).Msg("section fetch failed")
		return
	}

	sec.candidates = candidates
	sec.items = ranked
	sec.state = StateReady
	sec.stale = false
	sec.lastErr = ""
	sec.dirty = false
	sec.profileVersion = profile.Version
	// A recompute installed after the ranking above leaves the section stale.
	sec.profileStale = r.profiles.Current().Version != profile.Version
	metrics.RecordSectionFetch(kind, metrics.OutcomeOK, elapsed)

	r.logger.Debug().Str("section", cfg.ID).Uint64("epoch", epoch).
		Int("candidates", len(candidates)).Int("items", len(ranked)).
		Dur("duration", elapsed).Msg("section fetch applied")
}

// MarkProfileStale flags every allocated profile-dependent section for a
// re-rank on its next read and returns their ids.
func (r *SectionRetriever) MarkProfileStale() []string {
	var marked []string
	for _, sec := range r.existing() {
		if !sec.cfg.Kind.DependsOnProfile() {
			continue
		}
		sec.mu.Lock()
		sec.profileStale = true
		sec.mu.Unlock()
		marked = append(marked, sec.cfg.ID)
	}
	return marked
}

// EngagementChange records a counter change applied to one section so it can
// be reverted exactly.
type EngagementChange struct {
	sec     *section
	itemID  string
	applied Engagement
}

// AdjustEngagement adds delta to the counters of itemID in every section
// holding it. Counters never go below zero. The returned changes revert the
// adjustment through RevertEngagement.
func (r *SectionRetriever) AdjustEngagement(itemID string, delta Engagement) []EngagementChange {
	if delta == (Engagement{}) || itemID == "" {
		return nil
	}
	var changes []EngagementChange
	for _, sec := range r.existing() {
		sec.mu.Lock()
		applied, ok := sec.adjust(itemID, delta)
		sec.mu.Unlock()
		if ok {
			changes = append(changes, EngagementChange{sec: sec, itemID: itemID, applied: applied})
		}
	}
	return changes
}

// RevertEngagement undoes changes returned by AdjustEngagement.
func (r *SectionRetriever) RevertEngagement(changes []EngagementChange) {
	for _, c := range changes {
		c.sec.mu.Lock()
		c.sec.adjust(c.itemID, negate(c.applied))
		c.sec.mu.Unlock()
	}
}

// Close cancels in-flight fetches and waits for their goroutines.
func (r *SectionRetriever) Close() {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.closed = true
	r.mu.Unlock()

	r.stop()
	r.wg.Wait()
}

// adjust applies delta to itemID in candidates and ranked items. It returns
// the delta actually applied after clamping, taken from the first match.
// Caller holds sec.mu.
func (sec *section) adjust(itemID string, delta Engagement) (Engagement, bool) {
	var applied Engagement
	found := false
	for i := range sec.candidates {
		if sec.candidates[i].ID == itemID {
			d := addEngagement(&sec.candidates[i].Engagement, delta)
			if !found {
				applied, found = d, true
			}
		}
	}
	for i := range sec.items {
		if sec.items[i].ID == itemID {
			d := addEngagement(&sec.items[i].Engagement, delta)
			if !found {
				applied, found = d, true
			}
		}
	}
	if found {
		sec.dirty = true
	}
	return applied, found
}

// snapshot copies the section. Caller holds sec.mu.
func (sec *section) snapshot() SectionSnapshot {
	items := make([]ScoredItem, len(sec.items))
	copy(items, sec.items)
	return SectionSnapshot{
		SectionID:      sec.cfg.ID,
		Kind:           sec.cfg.Kind,
		State:          sec.state,
		Items:          items,
		Stale:          sec.stale,
		LastError:      sec.lastErr,
		Epoch:          sec.epoch,
		ProfileVersion: sec.profileVersion,
		UpdatedAt:      sec.updatedAt,
	}
}

// addEngagement adds d to e, clamping each counter at zero, and returns the
// change actually made.
func addEngagement(e *Engagement, d Engagement) Engagement {
	before := *e
	e.Likes = max(e.Likes+d.Likes, 0)
	e.Comments = max(e.Comments+d.Comments, 0)
	e.Shares = max(e.Shares+d.Shares, 0)
	e.Views = max(e.Views+d.Views, 0)
	return Engagement{
		Likes:    e.Likes - before.Likes,
		Comments: e.Comments - before.Comments,
		Shares:   e.Shares - before.Shares,
		Views:    e.Views - before.Views,
	}
}

func negate(e Engagement) Engagement {
	return Engagement{Likes: -e.Likes, Comments: -e.Comments, Shares: -e.Shares, Views: -e.Views}
}

func cloneItems(items []Item) []Item {
	out := make([]Item, len(items))
	for i := range items {
		out[i] = items[i].clone()
	}
	return out
}
