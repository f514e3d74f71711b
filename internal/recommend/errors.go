// Culturefeed - Content Personalization and Ranking Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/culturefeed

package recommend

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrUnknownSection is returned for a section id that is not configured.
	ErrUnknownSection = errors.New("unknown section")

	// ErrEngineClosed is returned by operations on a closed engine.
	ErrEngineClosed = errors.New("engine closed")
)

// FetchError reports a catalog failure for one section.
type FetchError struct {
	SectionID string
	Kind      SectionKind
	Err       error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch section %s (%s): %v", e.SectionID, e.Kind, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// FieldError describes one invalid field of a rejected event.
type FieldError struct {
	Field   string `json:"field"`
	Tag     string `json:"tag"`
	Message string `json:"message"`
}

// ValidationError reports a malformed interaction event.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return "invalid interaction event"
	}
	msgs := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		msgs[i] = f.Message
	}
	return "invalid interaction event: " + strings.Join(msgs, "; ")
}

// PersistenceOp names the persistence operation that failed.
type PersistenceOp string

// Persistence operations.
const (
	OpLoad PersistenceOp = "load"
	OpSave PersistenceOp = "save"
)

// PersistenceError reports a save or load failure. It is never returned by
// Append or RecordFeedback; the engine logs it and keeps running in memory.
type PersistenceError struct {
	Op  PersistenceOp
	Key string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence %s %q: %v", e.Op, e.Key, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// IsValidationError reports whether err is or wraps a *ValidationError.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
