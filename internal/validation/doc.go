// Culturefeed - Content Personalization and Ranking Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/culturefeed

// Package validation wraps go-playground/validator with a process-wide
// singleton and human-readable messages.
//
// Field names in messages use the struct's json tag, so an error on ItemID
// reads "item_id is required", matching what API clients sent.
//
// Usage:
//
//	type feedbackRequest struct {
//	    ItemID string `json:"item_id" validate:"required,max=256"`
//	}
//
//	if verr := validation.ValidateStruct(&req); verr != nil {
//	    return verr
//	}
package validation
