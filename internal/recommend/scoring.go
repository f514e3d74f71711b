// Culturefeed - Content Personalization and Ranking Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/culturefeed

package recommend

import (
	"math"
	"time"
)

// Scorer computes the personalization score of an item.
type Scorer struct {
	weights ScoringWeights
}

// NewScorer creates a scorer with the given weights.
func NewScorer(weights ScoringWeights) *Scorer {
	return &Scorer{weights: weights}
}

// Score returns the rounded score of item against profile at time now.
// It never fails: missing tags or zero engagement only lower the score.
//
//nolint:gocritic // Item and PreferenceProfile are passed by value for purity
func (s *Scorer) Score(item Item, profile PreferenceProfile, now time.Time) int {
	return s.ScoreWith(item, newProfileIndex(profile), now)
}

// ScoreWith is Score against a prebuilt profile index, for scoring many items.
//
//nolint:gocritic // Item is passed by value for purity
func (s *Scorer) ScoreWith(item Item, idx *profileIndex, now time.Time) int {
	w := s.weights
	var total float64

	if idx.anyCultural(item.CulturalTags) {
		total += w.CulturalMatch
	}
	if idx.anyLanguage(item.LanguageTags) {
		total += w.LanguageMatch
	}
	if idx.hasContentType(item.ContentType) {
		total += w.ContentTypeMatch
	}

	total += float64(clampInt(item.LearningValue, 0, 100)) * w.LearningValue / 100
	total += engagementRate(item.Engagement, w.EngagementCap)
	total *= s.freshness(item.CreatedAt, now)

	score := int(math.Round(total))
	if score < 0 {
		return 0
	}
	return score
}

// engagementRate is (likes+comments)/max(views,1)*100 capped at limit.
func engagementRate(e Engagement, limit float64) float64 {
	interactions := max(e.Likes, 0) + max(e.Comments, 0)
	views := max(e.Views, 1)
	rate := float64(interactions) / float64(views) * 100
	return math.Min(rate, limit)
}

// freshness returns the age multiplier of an item.
func (s *Scorer) freshness(createdAt, now time.Time) float64 {
	age := now.Sub(createdAt)
	switch {
	case age < s.weights.FreshWindow:
		return s.weights.FreshMultiplier
	case age > s.weights.StaleAfter:
		return s.weights.StaleMultiplier
	default:
		return 1
	}
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// profileIndex is a set view of a profile for constant-time membership tests.
type profileIndex struct {
	cultural     map[string]struct{}
	language     map[string]struct{}
	contentTypes map[string]struct{}
	keys         map[string]struct{}
}

//nolint:gocritic // profile is read once to build the index
func newProfileIndex(profile PreferenceProfile) *profileIndex {
	idx := &profileIndex{
		cultural:     toSet(profile.CulturalInterests),
		language:     toSet(profile.LanguageGoals),
		contentTypes: toSet(profile.ContentTypeWeights),
		keys:         make(map[string]struct{}),
	}
	for k := range idx.cultural {
		idx.keys[k] = struct{}{}
	}
	for k := range idx.language {
		idx.keys[k] = struct{}{}
	}
	return idx
}

func toSet(list []WeightedKey) map[string]struct{} {
	set := make(map[string]struct{}, len(list))
	for _, wk := range list {
		set[wk.Key] = struct{}{}
	}
	return set
}

func (p *profileIndex) anyCultural(tags []string) bool { return anyIn(p.cultural, tags) }

func (p *profileIndex) anyLanguage(tags []string) bool { return anyIn(p.language, tags) }

func (p *profileIndex) hasContentType(ct ContentType) bool {
	_, ok := p.contentTypes[string(ct)]
	return ok
}

func anyIn(set map[string]struct{}, tags []string) bool {
	for _, t := range tags {
		if _, ok := set[t]; ok {
			return true
		}
	}
	return false
}

// interestSimilarity is the Jaccard similarity between the item's tags and
// the profile's cultural and language interest keys.
func (p *profileIndex) interestSimilarity(item *Item) float64 {
	if len(p.keys) == 0 {
		return 0
	}
	tags := make(map[string]struct{}, len(item.CulturalTags)+len(item.LanguageTags))
	for _, t := range item.CulturalTags {
		tags[t] = struct{}{}
	}
	for _, t := range item.LanguageTags {
		tags[t] = struct{}{}
	}
	if len(tags) == 0 {
		return 0
	}

	intersection := 0
	for t := range tags {
		if _, ok := p.keys[t]; ok {
			intersection++
		}
	}
	union := len(tags) + len(p.keys) - intersection
	return float64(intersection) / float64(union)
}
