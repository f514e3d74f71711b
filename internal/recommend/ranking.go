// Culturefeed - Content Personalization and Ranking Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/culturefeed

package recommend

import (
	"math"
	"sort"
	"time"
)

// ranker orders candidates for one section kind.
type ranker struct {
	scorer          *Scorer
	secondaryWeight float64
}

// rank scores every candidate, stable-sorts by the kind's key and truncates
// to limit. Candidates keep catalog order on equal keys.
//
//nolint:gocritic // profile is read once to build the index
func (r *ranker) rank(kind SectionKind, candidates []Item, profile PreferenceProfile, now time.Time, limit int) []ScoredItem {
	idx := newProfileIndex(profile)
	scored := make([]ScoredItem, len(candidates))
	for i := range candidates {
		item := candidates[i]
		score := r.scorer.ScoreWith(item, idx, now)
		scored[i] = ScoredItem{
			Item:  item.clone(),
			Score: score,
			Rank:  r.rankValue(kind, &item, score, idx),
		}
	}

	switch kind {
	case KindNew:
		sort.SliceStable(scored, func(i, j int) bool {
			return scored[i].CreatedAt.After(scored[j].CreatedAt)
		})
	default:
		sort.SliceStable(scored, func(i, j int) bool {
			return scored[i].Rank > scored[j].Rank
		})
	}

	if limit >= 0 && len(scored) > limit {
		scored = scored[:limit]
	}
	return scored
}

// rankValue returns the sort key of an item for kind.
func (r *ranker) rankValue(kind SectionKind, item *Item, score int, idx *profileIndex) float64 {
	switch kind {
	case KindTrending:
		return float64(item.Engagement.Likes)
	case KindNew:
		return float64(item.CreatedAt.Unix())
	case KindSimilar:
		return float64(score) + r.secondaryWeight*idx.interestSimilarity(item)
	case KindInvestment:
		return float64(score) + r.secondaryWeight*shareMomentum(item.Engagement)
	case KindCommunity:
		return float64(score) + r.secondaryWeight*discussionDensity(item.Engagement)
	default:
		return float64(score)
	}
}

// shareMomentum is min(shares/max(views,1)*10, 1).
func shareMomentum(e Engagement) float64 {
	return math.Min(float64(max(e.Shares, 0))/float64(max(e.Views, 1))*10, 1)
}

// discussionDensity is min(comments/max(views,1)*10, 1).
func discussionDensity(e Engagement) float64 {
	return math.Min(float64(max(e.Comments, 0))/float64(max(e.Views, 1))*10, 1)
}
