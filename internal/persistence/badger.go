// Culturefeed - Content Personalization and Ranking Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/culturefeed

package persistence

import (
	"context"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/options"
)

// badgerKeyPrefix separates engine blobs from anything else sharing the DB.
const badgerKeyPrefix = "feed:"

// BadgerProvider stores blobs in an embedded BadgerDB.
type BadgerProvider struct {
	db     *badger.DB
	ownsDB bool
}

// NewBadgerProvider opens (or creates) a BadgerDB at dir.
// An empty dir opens an in-memory database.
func NewBadgerProvider(dir string) (*BadgerProvider, error) {
	opts := badger.DefaultOptions(dir)
	if dir == "" {
		opts = badger.DefaultOptions("").WithInMemory(true)
	}
	opts.SyncWrites = true
	opts.Compression = options.Snappy
	opts.NumCompactors = 2
	// Disable badger's default logger; engine code logs persistence failures.
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger: %w", err)
	}
	return &BadgerProvider{db: db, ownsDB: true}, nil
}

// NewBadgerProviderWithDB wraps an already open database. Close leaves it open.
func NewBadgerProviderWithDB(db *badger.DB) *BadgerProvider {
	return &BadgerProvider{db: db}
}

// Load implements Provider.
func (b *BadgerProvider) Load(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var value []byte
	err := b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(badgerKeyPrefix + key))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("get %q: %w", key, err)
		}
		value, err = item.ValueCopy(nil)
		return err
	})
	if err != nil {
		return nil, err
	}
	return value, nil
}

// Save implements Provider.
func (b *BadgerProvider) Save(ctx context.Context, key string, value []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := validateKey(key); err != nil {
		return err
	}
	return b.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set([]byte(badgerKeyPrefix+key), value); err != nil {
			return fmt.Errorf("set %q: %w", key, err)
		}
		return nil
	})
}

// Close closes the database if this provider opened it.
func (b *BadgerProvider) Close() error {
	if !b.ownsDB {
		return nil
	}
	return b.db.Close()
}
