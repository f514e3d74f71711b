// Culturefeed - Content Personalization and Ranking Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/culturefeed

package recommend

import (
	"context"
	"time"
)

// ContentType classifies catalog items.
type ContentType string

// Content types known to the catalog.
const (
	ContentArticle ContentType = "article"
	ContentVideo   ContentType = "video"
	ContentAudio   ContentType = "audio"
	ContentEvent   ContentType = "event"
	ContentCourse  ContentType = "course"
	ContentArtwork ContentType = "artwork"
)

// Engagement holds the public counters of an item.
type Engagement struct {
	Likes    int `json:"likes" yaml:"likes"`
	Comments int `json:"comments" yaml:"comments"`
	Shares   int `json:"shares" yaml:"shares"`
	Views    int `json:"views" yaml:"views"`
}

// Item is a catalog entry eligible for ranking.
type Item struct {
	// ID uniquely identifies the item in the catalog.
	ID string `json:"id" yaml:"id"`

	// Title is display text; not used for ranking.
	Title string `json:"title,omitempty" yaml:"title"`

	// ContentType is the item's format.
	ContentType ContentType `json:"content_type" yaml:"content_type"`

	// CulturalTags are the cultures the item relates to.
	CulturalTags []string `json:"cultural_tags" yaml:"cultural_tags"`

	// LanguageTags are the languages the item teaches or uses.
	LanguageTags []string `json:"language_tags" yaml:"language_tags"`

	// LearningValue is an editorial rating in 0..100.
	LearningValue int `json:"learning_value" yaml:"learning_value"`

	// Engagement counters, possibly bumped optimistically after a fetch.
	Engagement Engagement `json:"engagement" yaml:"engagement"`

	// CreatedAt is when the item was published.
	CreatedAt time.Time `json:"created_at" yaml:"created_at"`
}

// clone returns a copy that shares no slices with it.
func (it Item) clone() Item {
	out := it
	out.CulturalTags = append([]string(nil), it.CulturalTags...)
	out.LanguageTags = append([]string(nil), it.LanguageTags...)
	return out
}

// ScoredItem is an item with its ranking values for one section.
type ScoredItem struct {
	Item

	// Score is the personalization score in 0..120.
	Score int `json:"score"`

	// Rank is the value the section sorted by. For blended kinds it combines
	// Score with the kind's secondary key; for others it mirrors the sort key.
	Rank float64 `json:"rank"`
}

// EventType is the kind of user feedback.
type EventType string

// Feedback event types.
const (
	EventLike       EventType = "like"
	EventUnlike     EventType = "unlike"
	EventBookmark   EventType = "bookmark"
	EventUnbookmark EventType = "unbookmark"
	EventShare      EventType = "share"
	EventClick      EventType = "click"
	EventSkip       EventType = "skip"
	EventHide       EventType = "hide"
)

// AllEventTypes lists every accepted event type.
var AllEventTypes = []EventType{
	EventLike, EventUnlike, EventBookmark, EventUnbookmark,
	EventShare, EventClick, EventSkip, EventHide,
}

// Valid reports whether t is a known event type.
func (t EventType) Valid() bool {
	for _, known := range AllEventTypes {
		if t == known {
			return true
		}
	}
	return false
}

// IsPositive reports whether t strengthens interest in the item's tags.
func (t EventType) IsPositive() bool {
	return t == EventLike || t == EventBookmark
}

// IsNegative reports whether t weakens interest in the item's cultural tags.
func (t EventType) IsNegative() bool {
	return t == EventSkip || t == EventHide
}

// TagsSnapshot is the item metadata captured by the UI at feedback time.
type TagsSnapshot struct {
	CulturalTags []string    `json:"cultural_tags"`
	LanguageTags []string    `json:"language_tags"`
	ContentType  ContentType `json:"content_type"`
}

// SnapshotOf captures the tags of item.
func SnapshotOf(item Item) TagsSnapshot {
	return TagsSnapshot{
		CulturalTags: append([]string(nil), item.CulturalTags...),
		LanguageTags: append([]string(nil), item.LanguageTags...),
		ContentType:  item.ContentType,
	}
}

// InteractionEvent is one entry in the append-only feedback log.
type InteractionEvent struct {
	// ID is assigned on append when empty.
	ID string `json:"id"`

	// Type is the feedback kind.
	Type EventType `json:"type" validate:"required,oneof=like unlike bookmark unbookmark share click skip hide"`

	// ItemID is the item the feedback refers to.
	ItemID string `json:"item_id" validate:"required,max=256"`

	// CulturalTags of the item at feedback time.
	CulturalTags []string `json:"cultural_tags,omitempty" validate:"omitempty,max=64,dive,required"`

	// LanguageTags of the item at feedback time.
	LanguageTags []string `json:"language_tags,omitempty" validate:"omitempty,max=64,dive,required"`

	// ContentType of the item at feedback time.
	ContentType ContentType `json:"content_type,omitempty"`

	// OccurredAt defaults to the engine clock on append.
	OccurredAt time.Time `json:"occurred_at"`
}

// WeightedKey is one entry of a ranked preference list.
type WeightedKey struct {
	Key    string  `json:"key"`
	Weight float64 `json:"weight"`
}

// PreferenceProfile is the derived weighting of a user's interests.
// Lists are sorted by descending weight and contain only positive weights.
type PreferenceProfile struct {
	CulturalInterests  []WeightedKey `json:"cultural_interests"`
	LanguageGoals      []WeightedKey `json:"language_goals"`
	ContentTypeWeights []WeightedKey `json:"content_type_weights"`

	// Version increments on every recompute within a session.
	Version uint64 `json:"version"`

	// ComputedAt is when the profile was derived.
	ComputedAt time.Time `json:"computed_at"`

	// EventCount is the number of events in the window it was derived from.
	EventCount int `json:"event_count"`
}

// Clone returns a deep copy of the profile.
func (p PreferenceProfile) Clone() PreferenceProfile {
	out := p
	out.CulturalInterests = append([]WeightedKey(nil), p.CulturalInterests...)
	out.LanguageGoals = append([]WeightedKey(nil), p.LanguageGoals...)
	out.ContentTypeWeights = append([]WeightedKey(nil), p.ContentTypeWeights...)
	return out
}

// IsEmpty reports whether the profile carries no interests at all.
func (p PreferenceProfile) IsEmpty() bool {
	return len(p.CulturalInterests) == 0 && len(p.LanguageGoals) == 0 && len(p.ContentTypeWeights) == 0
}

// SectionKind selects a section's sort strategy.
type SectionKind string

// Section kinds.
const (
	KindRecommended SectionKind = "recommended"
	KindTrending    SectionKind = "trending"
	KindNew         SectionKind = "new"
	KindSimilar     SectionKind = "similar"
	KindInvestment  SectionKind = "investment"
	KindCommunity   SectionKind = "community"
)

// AllSectionKinds lists every supported kind.
var AllSectionKinds = []SectionKind{
	KindRecommended, KindTrending, KindNew, KindSimilar, KindInvestment, KindCommunity,
}

// Valid reports whether k is a known kind.
func (k SectionKind) Valid() bool {
	for _, known := range AllSectionKinds {
		if k == known {
			return true
		}
	}
	return false
}

// DependsOnProfile reports whether sections of this kind rank by score.
func (k SectionKind) DependsOnProfile() bool {
	switch k {
	case KindTrending, KindNew:
		return false
	default:
		return true
	}
}

// SectionState is the lifecycle state of a section.
type SectionState int

// Section states.
const (
	StateIdle SectionState = iota
	StateLoading
	StateReady
	StateRefreshing
	StateError
)

// String returns the state name.
func (s SectionState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateLoading:
		return "loading"
	case StateReady:
		return "ready"
	case StateRefreshing:
		return "refreshing"
	case StateError:
		return "error"
	default:
		return "unknown"
	}
}

// MarshalText renders the state name in JSON.
func (s SectionState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// SectionSnapshot is a point-in-time copy of a section.
type SectionSnapshot struct {
	SectionID string       `json:"section_id"`
	Kind      SectionKind  `json:"kind"`
	State     SectionState `json:"state"`
	Items     []ScoredItem `json:"items"`

	// Stale is set when the items are older than the latest refresh attempt
	// (failed refresh) or than the current profile.
	Stale bool `json:"stale"`

	// LastError is the message of the most recent failed fetch, if any.
	LastError string `json:"last_error,omitempty"`

	Epoch          uint64    `json:"epoch"`
	ProfileVersion uint64    `json:"profile_version"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// CatalogProvider supplies candidate items for a section kind.
//
// Implementations must tolerate repeated calls and honor ctx cancellation.
// No ordering is assumed from the result.
type CatalogProvider interface {
	FetchCandidates(ctx context.Context, kind SectionKind, limit int) ([]Item, error)
}

// CatalogFunc adapts a function to CatalogProvider.
type CatalogFunc func(ctx context.Context, kind SectionKind, limit int) ([]Item, error)

// FetchCandidates implements CatalogProvider.
func (f CatalogFunc) FetchCandidates(ctx context.Context, kind SectionKind, limit int) ([]Item, error) {
	return f(ctx, kind, limit)
}

// EventSink receives accepted interaction events, e.g. for analytics.
type EventSink interface {
	PublishInteraction(ctx context.Context, event InteractionEvent) error
}
