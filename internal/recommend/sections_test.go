// Culturefeed - Content Personalization and Ranking Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/culturefeed

package recommend

import (
	"context"
	"errors"
	"reflect"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"
)

func newTestRetriever(t *testing.T, cfg *Config, catalog CatalogProvider, profiles profileSource) *SectionRetriever {
	t.Helper()
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if profiles == nil {
		profiles = &fixedProfiles{}
	}
	r := NewSectionRetriever(cfg, catalog, profiles, testClock, testLogger())
	t.Cleanup(r.Close)
	return r
}

func refreshAndWait(t *testing.T, r *SectionRetriever, id string) SectionSnapshot {
	t.Helper()
	done, err := r.Refresh(id)
	if err != nil {
		t.Fatalf("Refresh(%s) error = %v", id, err)
	}
	waitDone(t, done)
	snap, err := r.Get(id)
	if err != nil {
		t.Fatalf("Get(%s) error = %v", id, err)
	}
	return snap
}

func mixedCandidates() []Item {
	return []Item{
		{ID: "old-popular", ContentType: ContentArticle, CulturalTags: []string{"意大利文化"}, LearningValue: 10,
			Engagement: Engagement{Likes: 900, Comments: 5, Views: 10000}, CreatedAt: testNow.Add(-30 * 24 * time.Hour)},
		{ID: "fresh-match", ContentType: ContentVideo, CulturalTags: []string{"日本文化"}, LanguageTags: []string{"日语"},
			LearningValue: 90, Engagement: Engagement{Likes: 50, Comments: 20, Views: 400}, CreatedAt: testNow.Add(-2 * time.Hour)},
		{ID: "mid", ContentType: ContentAudio, CulturalTags: []string{"韩国文化"}, LearningValue: 60,
			Engagement: Engagement{Likes: 300, Comments: 1, Views: 3000}, CreatedAt: testNow.Add(-3 * 24 * time.Hour)},
		{ID: "newest", ContentType: ContentEvent, LearningValue: 0,
			Engagement: Engagement{Likes: 0, Views: 5}, CreatedAt: testNow.Add(-10 * time.Minute)},
	}
}

func TestSectionRetriever_SortStrategies(t *testing.T) {
	t.Parallel()

	profiles := &fixedProfiles{profile: japaneseProfile()}
	r := newTestRetriever(t, nil, &staticCatalog{all: mixedCandidates()}, profiles)

	tests := []struct {
		section string
		want    []string
	}{
		{section: "trending", want: []string{"old-popular", "mid", "fresh-match", "newest"}},
		{section: "new", want: []string{"newest", "fresh-match", "mid", "old-popular"}},
	}
	for _, tt := range tests {
		snap := refreshAndWait(t, r, tt.section)
		if got := itemIDs(snap.Items); !reflect.DeepEqual(got, tt.want) {
			t.Errorf("%s order = %v, want %v", tt.section, got, tt.want)
		}
	}

	rec := refreshAndWait(t, r, "recommended")
	if rec.Items[0].ID != "fresh-match" {
		t.Errorf("recommended[0] = %s, want fresh-match", rec.Items[0].ID)
	}
	for i := 1; i < len(rec.Items); i++ {
		if rec.Items[i].Score > rec.Items[i-1].Score {
			t.Fatalf("recommended not non-increasing in score: %v", rec.Items)
		}
	}

	trending := refreshAndWait(t, r, "trending")
	for i := 1; i < len(trending.Items); i++ {
		if trending.Items[i].Engagement.Likes > trending.Items[i-1].Engagement.Likes {
			t.Fatalf("trending not non-increasing in likes: %v", trending.Items)
		}
	}
}

func TestSectionRetriever_LimitAppliedAfterSort(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	cfg.Sections = []SectionConfig{{ID: "top2", Kind: KindTrending, Limit: 2}}
	items := []Item{testItem("a", 1, 5), testItem("b", 9, 5), testItem("c", 3, 5), testItem("d", 7, 5)}
	r := newTestRetriever(t, cfg, &staticCatalog{all: items}, nil)

	snap := refreshAndWait(t, r, "top2")
	if got := itemIDs(snap.Items); !reflect.DeepEqual(got, []string{"b", "d"}) {
		t.Errorf("items = %v, want [b d]", got)
	}
}

func TestSectionRetriever_StableTies(t *testing.T) {
	t.Parallel()

	items := []Item{testItem("first", 5, 48), testItem("second", 5, 48), testItem("third", 5, 48)}
	r := newTestRetriever(t, nil, &staticCatalog{all: items}, nil)

	for _, id := range []string{"trending", "recommended", "community", "investment", "similar"} {
		snap := refreshAndWait(t, r, id)
		if got := itemIDs(snap.Items); !reflect.DeepEqual(got, []string{"first", "second", "third"}) {
			t.Errorf("%s tie order = %v, want catalog order", id, got)
		}
	}
}

func TestSectionRetriever_BlendedSecondaryKeys(t *testing.T) {
	t.Parallel()

	quiet := testItem("quiet", 0, 48)
	quiet.Engagement = Engagement{Views: 1000}
	chatty := testItem("chatty", 0, 48)
	chatty.Engagement = Engagement{Comments: 5, Shares: 0, Views: 1000}
	shared := testItem("shared", 0, 48)
	shared.Engagement = Engagement{Shares: 50, Views: 1000}

	r := newTestRetriever(t, nil, &staticCatalog{all: []Item{quiet, chatty, shared}}, nil)

	community := refreshAndWait(t, r, "community")
	if community.Items[0].ID != "chatty" {
		t.Errorf("community[0] = %s, want chatty (%v)", community.Items[0].ID, itemIDs(community.Items))
	}
	investment := refreshAndWait(t, r, "investment")
	if investment.Items[0].ID != "shared" {
		t.Errorf("investment[0] = %s, want shared (%v)", investment.Items[0].ID, itemIDs(investment.Items))
	}
	for _, snap := range []SectionSnapshot{community, investment} {
		for i := 1; i < len(snap.Items); i++ {
			if snap.Items[i].Rank > snap.Items[i-1].Rank {
				t.Errorf("%s not sorted by rank: %v", snap.SectionID, snap.Items)
			}
		}
	}
}

func TestSectionRetriever_SimilarPrefersProfileTags(t *testing.T) {
	t.Parallel()

	// Same score terms, but only "match" shares both tags with the profile.
	match := Item{ID: "match", CulturalTags: []string{"日本文化"}, LanguageTags: []string{"日语"},
		CreatedAt: testNow.Add(-48 * time.Hour)}
	partial := Item{ID: "partial", CulturalTags: []string{"日本文化", "其他"}, LanguageTags: []string{"日语"},
		CreatedAt: testNow.Add(-48 * time.Hour)}

	profiles := &fixedProfiles{profile: japaneseProfile()}
	r := newTestRetriever(t, nil, &staticCatalog{all: []Item{partial, match}}, profiles)

	snap := refreshAndWait(t, r, "similar")
	if got := itemIDs(snap.Items); !reflect.DeepEqual(got, []string{"match", "partial"}) {
		t.Errorf("similar order = %v, want [match partial]", got)
	}
}

func TestSectionRetriever_EmptyCandidatesIsReady(t *testing.T) {
	t.Parallel()

	r := newTestRetriever(t, nil, &staticCatalog{all: []Item{}}, nil)
	snap := refreshAndWait(t, r, "new")

	if snap.State != StateReady {
		t.Errorf("State = %v, want ready", snap.State)
	}
	if snap.Items == nil || len(snap.Items) != 0 {
		t.Errorf("Items = %v, want empty non-nil", snap.Items)
	}
}

func TestSectionRetriever_FirstGetStartsLoading(t *testing.T) {
	t.Parallel()

	catalog := newGatedCatalog()
	r := newTestRetriever(t, nil, catalog, nil)

	snap, err := r.Get("trending")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if snap.State != StateLoading || snap.Epoch != 1 {
		t.Errorf("first Get() = %v epoch %d, want loading epoch 1", snap.State, snap.Epoch)
	}

	// A second read while loading does not start another fetch.
	if snap, _ = r.Get("trending"); snap.Epoch != 1 {
		t.Errorf("second Get() epoch = %d, want 1", snap.Epoch)
	}

	call := catalog.next(t)
	if call.kind != KindTrending {
		t.Errorf("fetched kind = %s, want trending", call.kind)
	}
	call.respond <- gatedResult{items: []Item{testItem("a", 1, 1)}}

	waitFor(t, "ready", func() bool {
		s, _ := r.Get("trending")
		return s.State == StateReady
	})
}

func TestSectionRetriever_RefreshCoalescing(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		resolveLate bool
	}{
		{name: "superseded response arrives after newer", resolveLate: true},
		{name: "superseded response arrives first", resolveLate: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			catalog := newGatedCatalog()
			r := newTestRetriever(t, nil, catalog, nil)

			done1, err := r.Refresh("trending")
			if err != nil {
				t.Fatalf("Refresh() error = %v", err)
			}
			call1 := catalog.next(t)
			done2, err := r.Refresh("trending")
			if err != nil {
				t.Fatalf("Refresh() error = %v", err)
			}
			call2 := catalog.next(t)

			older := []Item{testItem("older", 10, 1)}
			newer := []Item{testItem("newer", 20, 1)}

			if tt.resolveLate {
				call2.respond <- gatedResult{items: newer}
				waitDone(t, done2)
				call1.respond <- gatedResult{items: older}
				waitDone(t, done1)
			} else {
				call1.respond <- gatedResult{items: older}
				waitDone(t, done1)
				if snap, _ := r.Get("trending"); len(snap.Items) != 0 {
					t.Fatalf("superseded result applied: %v", itemIDs(snap.Items))
				}
				call2.respond <- gatedResult{items: newer}
				waitDone(t, done2)
			}

			snap, err := r.Get("trending")
			if err != nil {
				t.Fatalf("Get() error = %v", err)
			}
			if got := itemIDs(snap.Items); !reflect.DeepEqual(got, []string{"newer"}) {
				t.Errorf("items = %v, want [newer]", got)
			}
			if snap.Epoch != 2 || snap.State != StateReady {
				t.Errorf("epoch=%d state=%v, want 2 ready", snap.Epoch, snap.State)
			}
		})
	}
}

func TestSectionRetriever_StaleButAvailable(t *testing.T) {
	t.Parallel()

	catalog := &staticCatalog{all: []Item{testItem("a", 3, 1), testItem("b", 2, 1)}}
	r := newTestRetriever(t, nil, catalog, nil)

	before := refreshAndWait(t, r, "trending")
	if before.State != StateReady || len(before.Items) != 2 {
		t.Fatalf("initial snapshot = %+v", before)
	}

	catalog.setErr(errors.New("upstream down"))
	after := refreshAndWait(t, r, "trending")

	if after.State != StateReady {
		t.Errorf("State = %v, want ready", after.State)
	}
	if !after.Stale {
		t.Error("Stale should be set after a failed refresh")
	}
	if !strings.Contains(after.LastError, "upstream down") {
		t.Errorf("LastError = %q", after.LastError)
	}
	if !reflect.DeepEqual(itemIDs(after.Items), itemIDs(before.Items)) {
		t.Errorf("items changed: %v -> %v", itemIDs(before.Items), itemIDs(after.Items))
	}

	catalog.setErr(nil)
	recovered := refreshAndWait(t, r, "trending")
	if recovered.Stale || recovered.LastError != "" {
		t.Errorf("recovered snapshot still stale: %+v", recovered)
	}
}

func TestSectionRetriever_ErrorWithoutItems(t *testing.T) {
	t.Parallel()

	catalog := &staticCatalog{err: errors.New("timeout")}
	r := newTestRetriever(t, nil, catalog, nil)

	snap := refreshAndWait(t, r, "new")
	if snap.State != StateError {
		t.Errorf("State = %v, want error", snap.State)
	}
	if len(snap.Items) != 0 || snap.LastError == "" {
		t.Errorf("snapshot = %+v", snap)
	}

	// Retrying from Error goes back through Loading.
	catalog.setErr(nil)
	catalog.setItems([]Item{testItem("a", 1, 1)})
	if snap = refreshAndWait(t, r, "new"); snap.State != StateReady || len(snap.Items) != 1 {
		t.Errorf("retry snapshot = %+v", snap)
	}
}

func TestSectionRetriever_SectionsIndependent(t *testing.T) {
	t.Parallel()

	catalog := &staticCatalog{
		all:  []Item{testItem("a", 1, 1)},
		errs: map[SectionKind]error{KindTrending: errors.New("trending backend down")},
	}
	r := newTestRetriever(t, nil, catalog, nil)

	trending := refreshAndWait(t, r, "trending")
	fresh := refreshAndWait(t, r, "new")

	if trending.State != StateError {
		t.Errorf("trending State = %v, want error", trending.State)
	}
	if fresh.State != StateReady || len(fresh.Items) != 1 {
		t.Errorf("new snapshot = %+v", fresh)
	}
}

func TestSectionRetriever_SlowSectionDoesNotBlockOthers(t *testing.T) {
	t.Parallel()

	slow := make(chan struct{})
	catalog := CatalogFunc(func(ctx context.Context, kind SectionKind, _ int) ([]Item, error) {
		if kind == KindTrending {
			select {
			case <-slow:
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
		return []Item{testItem("a", 1, 1)}, nil
	})
	r := newTestRetriever(t, nil, catalog, nil)
	defer close(slow)

	if _, err := r.Refresh("trending"); err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}
	snap := refreshAndWait(t, r, "new")
	if snap.State != StateReady {
		t.Errorf("new State = %v, want ready", snap.State)
	}
	if trending, _ := r.Get("trending"); trending.State != StateLoading {
		t.Errorf("trending State = %v, want loading", trending.State)
	}
}

func TestSectionRetriever_UnknownSection(t *testing.T) {
	t.Parallel()

	r := newTestRetriever(t, nil, &staticCatalog{}, nil)
	if _, err := r.Get("nope"); !errors.Is(err, ErrUnknownSection) {
		t.Errorf("Get() error = %v, want ErrUnknownSection", err)
	}
	if _, err := r.Refresh("nope"); !errors.Is(err, ErrUnknownSection) {
		t.Errorf("Refresh() error = %v, want ErrUnknownSection", err)
	}
}

func TestSectionRetriever_CloseCancelsFetches(t *testing.T) {
	t.Parallel()

	started := make(chan struct{})
	catalog := CatalogFunc(func(ctx context.Context, _ SectionKind, _ int) ([]Item, error) {
		close(started)
		<-ctx.Done()
		return nil, ctx.Err()
	})
	r := NewSectionRetriever(DefaultConfig(), catalog, &fixedProfiles{}, testClock, testLogger())

	done, err := r.Refresh("trending")
	if err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}
	<-started
	r.Close()
	waitDone(t, done)

	if _, err := r.Refresh("trending"); !errors.Is(err, ErrEngineClosed) {
		t.Errorf("Refresh() after Close error = %v, want ErrEngineClosed", err)
	}
}

func TestSectionRetriever_ProfileStaleReranks(t *testing.T) {
	t.Parallel()

	korean := Item{ID: "korean", CulturalTags: []string{"韩国文化"}, CreatedAt: testNow.Add(-48 * time.Hour)}
	japanese := Item{ID: "japanese", CulturalTags: []string{"日本文化"}, CreatedAt: testNow.Add(-48 * time.Hour)}

	profiles := &fixedProfiles{profile: PreferenceProfile{
		CulturalInterests: []WeightedKey{{Key: "韩国文化", Weight: 2}},
		Version:           1,
	}}
	catalog := &staticCatalog{all: []Item{korean, japanese}}
	r := newTestRetriever(t, nil, catalog, profiles)

	rec := refreshAndWait(t, r, "recommended")
	trend := refreshAndWait(t, r, "trending")
	if rec.Items[0].ID != "korean" || rec.ProfileVersion != 1 {
		t.Fatalf("initial recommended = %v (v%d)", itemIDs(rec.Items), rec.ProfileVersion)
	}

	profiles.set(PreferenceProfile{
		CulturalInterests: []WeightedKey{{Key: "日本文化", Weight: 2}},
		Version:           2,
	})
	marked := r.MarkProfileStale()
	if !reflect.DeepEqual(slices.Sorted(slices.Values(marked)), []string{"recommended"}) {
		t.Errorf("MarkProfileStale() = %v, want [recommended]", marked)
	}

	calls := catalog.calls
	rec, _ = r.Get("recommended")
	if rec.Items[0].ID != "japanese" || rec.ProfileVersion != 2 {
		t.Errorf("re-ranked recommended = %v (v%d)", itemIDs(rec.Items), rec.ProfileVersion)
	}
	if catalog.calls != calls {
		t.Error("re-rank must not fetch")
	}
	if again, _ := r.Get("trending"); again.Epoch != trend.Epoch {
		t.Error("trending must not be refreshed by a profile change")
	}
}

func TestSectionRetriever_AdjustAndRevertEngagement(t *testing.T) {
	t.Parallel()

	catalog := &staticCatalog{all: []Item{testItem("a", 5, 1), testItem("b", 5, 1)}}
	r := newTestRetriever(t, nil, catalog, nil)
	refreshAndWait(t, r, "trending")
	refreshAndWait(t, r, "new")

	changes := r.AdjustEngagement("b", Engagement{Likes: 1})
	if len(changes) != 2 {
		t.Fatalf("changes = %d, want 2 sections", len(changes))
	}

	trending, _ := r.Get("trending")
	if trending.Items[0].ID != "b" || trending.Items[0].Engagement.Likes != 6 {
		t.Errorf("trending after like = %+v", trending.Items)
	}

	r.RevertEngagement(changes)
	trending, _ = r.Get("trending")
	for _, it := range trending.Items {
		if it.Engagement.Likes != 5 {
			t.Errorf("item %s likes = %d after revert, want 5", it.ID, it.Engagement.Likes)
		}
	}

	if none := r.AdjustEngagement("missing", Engagement{Likes: 1}); len(none) != 0 {
		t.Errorf("unknown item touched %d sections", len(none))
	}
}

func TestSectionRetriever_UnlikeClampsAtZero(t *testing.T) {
	t.Parallel()

	catalog := &staticCatalog{all: []Item{testItem("a", 0, 1)}}
	r := newTestRetriever(t, nil, catalog, nil)
	refreshAndWait(t, r, "trending")

	changes := r.AdjustEngagement("a", Engagement{Likes: -1})
	snap, _ := r.Get("trending")
	if snap.Items[0].Engagement.Likes != 0 {
		t.Errorf("likes = %d, want 0", snap.Items[0].Engagement.Likes)
	}

	r.RevertEngagement(changes)
	snap, _ = r.Get("trending")
	if snap.Items[0].Engagement.Likes != 0 {
		t.Errorf("likes after revert = %d, want 0", snap.Items[0].Engagement.Likes)
	}
}

// swappingProfiles returns its profile and, on the first read only, runs
// onFirstRead after taking the value, so a recompute lands between the
// fetch's ranking and its apply.
type swappingProfiles struct {
	mu          sync.Mutex
	profile     PreferenceProfile
	onFirstRead func()
	reads       int
}

func (p *swappingProfiles) Current() PreferenceProfile {
	p.mu.Lock()
	cur := p.profile.Clone()
	p.reads++
	hook := p.onFirstRead
	if p.reads > 1 {
		hook = nil
	}
	p.mu.Unlock()
	if hook != nil {
		hook()
	}
	return cur
}

func (p *swappingProfiles) set(profile PreferenceProfile) {
	p.mu.Lock()
	p.profile = profile
	p.mu.Unlock()
}

func TestSectionRetriever_RecomputeDuringFetchKeepsStaleMark(t *testing.T) {
	t.Parallel()

	a := Item{ID: "a", CulturalTags: []string{"A"}, CreatedAt: testNow.Add(-48 * time.Hour)}
	b := Item{ID: "b", CulturalTags: []string{"B"}, CreatedAt: testNow.Add(-48 * time.Hour)}

	profiles := &swappingProfiles{profile: PreferenceProfile{
		CulturalInterests: []WeightedKey{{Key: "A", Weight: 2}},
		Version:           1,
	}}
	r := newTestRetriever(t, nil, &staticCatalog{all: []Item{a, b}}, profiles)
	profiles.onFirstRead = func() {
		profiles.set(PreferenceProfile{
			CulturalInterests: []WeightedKey{{Key: "B", Weight: 2}},
			Version:           2,
		})
		r.MarkProfileStale()
	}

	snap := refreshAndWait(t, r, "recommended")
	if snap.ProfileVersion != 2 {
		t.Fatalf("section ranked against profile v%d, want v2", snap.ProfileVersion)
	}
	if snap.Items[0].ID != "b" {
		t.Errorf("recommended = %v, want b first", itemIDs(snap.Items))
	}
}
