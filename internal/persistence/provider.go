// Culturefeed - Content Personalization and Ranking Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/culturefeed

// Package persistence provides key/value blob storage backends for the
// personalization engine.
//
// The engine persists two blobs per session: the interaction log and the
// last-good preference profile. Every backend implements Provider, so the
// engine never knows whether it is talking to memory, a directory of files,
// BadgerDB or SQLite.
//
// # Backends
//
//   - MemoryProvider: process-local map, used in tests and for ephemeral runs
//   - FileProvider: one gzip-compressed, checksummed file per key
//   - BadgerProvider: embedded LSM key/value store
//   - SQLiteProvider: single table in a pure-Go SQLite database
//
// Namespace wraps any Provider so each user session gets its own key space.
package persistence

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
)

// ErrNotFound is returned by Load when no value is stored under the key.
var ErrNotFound = errors.New("persistence: key not found")

// Provider loads and saves opaque blobs by key.
//
// Implementations must be safe for concurrent use.
type Provider interface {
	// Load returns the value stored under key, or ErrNotFound.
	Load(ctx context.Context, key string) ([]byte, error)

	// Save stores value under key, replacing any previous value.
	Save(ctx context.Context, key string, value []byte) error
}

// Closer is implemented by providers holding an open handle (database, files).
type Closer interface {
	io.Closer
}

// Namespaced prefixes every key before delegating to the wrapped provider.
type Namespaced struct {
	inner  Provider
	prefix string
}

// Namespace returns a provider that stores keys under "<namespace>/".
// An empty namespace returns the inner provider unchanged.
func Namespace(inner Provider, namespace string) Provider {
	namespace = strings.Trim(namespace, "/")
	if namespace == "" {
		return inner
	}
	return &Namespaced{inner: inner, prefix: namespace + "/"}
}

// Load implements Provider.
func (n *Namespaced) Load(ctx context.Context, key string) ([]byte, error) {
	return n.inner.Load(ctx, n.prefix+key)
}

// Save implements Provider.
func (n *Namespaced) Save(ctx context.Context, key string, value []byte) error {
	return n.inner.Save(ctx, n.prefix+key, value)
}

// Prefix returns the namespace prefix including the trailing slash.
func (n *Namespaced) Prefix() string {
	return n.prefix
}

func validateKey(key string) error {
	if strings.TrimSpace(key) == "" {
		return fmt.Errorf("persistence: key is required")
	}
	return nil
}

// Open builds a provider for the named driver.
//
// Supported drivers: "memory", "file", "badger", "sqlite". The path is a
// directory for file and badger, and a database file for sqlite.
func Open(driver, path string) (Provider, error) {
	switch driver {
	case "", "memory":
		return NewMemoryProvider(), nil
	case "file":
		return NewFileProvider(path)
	case "badger":
		return NewBadgerProvider(path)
	case "sqlite":
		return NewSQLiteProvider(path)
	default:
		return nil, fmt.Errorf("unknown persistence driver %q", driver)
	}
}

// Close closes p if it holds resources.
func Close(p Provider) error {
	if c, ok := p.(Closer); ok {
		return c.Close()
	}
	return nil
}
