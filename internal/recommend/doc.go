// Culturefeed - Content Personalization and Ranking Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/culturefeed

// Package recommend implements the per-session personalization engine.
//
// # Architecture
//
// One Engine exists per user session. It is assembled from five parts, leaf
// first:
//
//   - InteractionStore: append-only log of feedback events
//   - PreferenceModel: weighted interest profile derived from the recent log window
//   - Scorer: integer score of one item against a profile
//   - SectionRetriever: named, independently refreshable ranked lists
//   - FeedbackLoop: routes feedback into the log, counters and the model
//
// Feedback flows UI -> FeedbackLoop.Record -> InteractionStore.Append and an
// optimistic counter bump -> debounced PreferenceModel.Recompute -> profile
// dependent sections marked stale -> next GetSection re-ranks.
//
// # Sections
//
// A section is fetched from a CatalogProvider, scored, sorted by a strategy
// fixed by its kind, and truncated to its limit. Every refresh bumps the
// section epoch; a fetch result is applied only while its epoch is current,
// so out-of-order responses never overwrite fresher data. When a refresh
// fails on a section that already holds items, the items are kept and the
// snapshot is flagged stale.
//
// # Determinism
//
// Scoring and profile computation are pure functions of their inputs. Sorts
// are stable over catalog order so equal keys never reorder between runs.
//
// # Usage
//
//	cfg := recommend.DefaultConfig()
//	engine, err := recommend.NewEngine(cfg, catalog, logger,
//	    recommend.WithPersistence(store))
//	if err != nil {
//	    return err
//	}
//	if err := engine.Start(ctx); err != nil {
//	    return err
//	}
//	defer engine.Close()
//
//	snap, _ := engine.GetSection("recommended")
//	_ = engine.RecordFeedback(ctx, itemID, recommend.EventLike, tags)
//
// # Thread Safety
//
// All Engine methods are safe for concurrent use. Appends hold the store
// mutex only for the slice append; persistence runs on a background writer.
// Fetches never hold a section lock.
package recommend
