// Culturefeed - Content Personalization and Ranking Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/culturefeed

package catalog

import (
	"context"
	"fmt"
	"hash/fnv"
	"math/rand/v2"
	"time"

	"github.com/tomtom215/culturefeed/internal/recommend"
)

// DefaultGeneratorSize is the number of synthetic items when none is given.
const DefaultGeneratorSize = 200

var (
	culturalPool = []string{"日本文化", "韩国文化", "中国文化", "法国文化", "意大利文化", "西班牙文化", "德国文化", "印度文化"}
	languagePool = []string{"日语", "韩语", "汉语", "法语", "意大利语", "西班牙语", "德语", "英语"}
	contentPool  = []recommend.ContentType{
		recommend.ContentArticle, recommend.ContentVideo, recommend.ContentAudio,
		recommend.ContentEvent, recommend.ContentCourse, recommend.ContentArtwork,
	}
)

// GeneratorProvider serves a deterministic synthetic catalog. The same seed
// always produces the same items; creation times are relative to the clock
// reading taken at construction.
type GeneratorProvider struct {
	seed  int64
	items []recommend.Item
}

// NewGeneratorProvider generates size items from seed.
func NewGeneratorProvider(seed int64, size int, now func() time.Time) *GeneratorProvider {
	if size <= 0 {
		size = DefaultGeneratorSize
	}
	if now == nil {
		now = time.Now
	}
	base := now()
	rng := rand.New(rand.NewPCG(uint64(seed), uint64(seed)^0x9e3779b97f4a7c15)) //nolint:gosec // synthetic data

	items := make([]recommend.Item, size)
	for i := range items {
		views := 50 + rng.IntN(20000)
		items[i] = recommend.Item{
			ID:            fmt.Sprintf("item-%04d", i+1),
			Title:         fmt.Sprintf("Synthetic item %d", i+1),
			ContentType:   contentPool[rng.IntN(len(contentPool))],
			CulturalTags:  pick(rng, culturalPool, 1+rng.IntN(2)),
			LanguageTags:  pick(rng, languagePool, 1+rng.IntN(2)),
			LearningValue: rng.IntN(101),
			Engagement: recommend.Engagement{
				Likes:    rng.IntN(views/4 + 1),
				Comments: rng.IntN(views/20 + 1),
				Shares:   rng.IntN(views/30 + 1),
				Views:    views,
			},
			CreatedAt: base.Add(-time.Duration(rng.IntN(30*24*60)) * time.Minute),
		}
	}
	return &GeneratorProvider{seed: seed, items: items}
}

// FetchCandidates returns up to limit items in an order that depends only on
// the seed and kind, so different sections see different slices.
func (g *GeneratorProvider) FetchCandidates(ctx context.Context, kind recommend.SectionKind, limit int) ([]recommend.Item, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	h := fnv.New64a()
	_, _ = h.Write([]byte(kind))
	rng := rand.New(rand.NewPCG(uint64(g.seed), h.Sum64())) //nolint:gosec // synthetic data
	order := rng.Perm(len(g.items))

	if limit <= 0 || limit > len(order) {
		limit = len(order)
	}
	out := make([]recommend.Item, limit)
	for i := 0; i < limit; i++ {
		it := g.items[order[i]]
		it.CulturalTags = append([]string(nil), it.CulturalTags...)
		it.LanguageTags = append([]string(nil), it.LanguageTags...)
		out[i] = it
	}
	return out, nil
}

// Len returns the catalog size.
func (g *GeneratorProvider) Len() int {
	return len(g.items)
}

// pick returns n distinct entries of pool.
func pick(rng *rand.Rand, pool []string, n int) []string {
	idx := rng.Perm(len(pool))[:n]
	out := make([]string, n)
	for i, j := range idx {
		out[i] = pool[j]
	}
	return out
}
