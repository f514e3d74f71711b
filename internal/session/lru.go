// Culturefeed - Content Personalization and Ranking Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/culturefeed

package session

import (
	"sync"
	"time"
)

// Eviction reasons reported to the eviction callback.
const (
	ReasonCapacity = "capacity"
	ReasonExpired  = "expired"
	ReasonRemoved  = "removed"
	ReasonClosed   = "closed"
)

// lruEntry is one node of the recency list.
type lruEntry[V any] struct {
	key        string
	value      V
	prev, next *lruEntry[V]
	lastAccess time.Time
}

// evicted is an entry removed from the cache, reported after the lock is
// released.
type evicted[V any] struct {
	key    string
	value  V
	reason string
}

// lru is a thread-safe least-recently-used cache with idle expiry. Access
// refreshes an entry's idle timer. Removed entries are handed to onEvict
// outside the lock.
type lru[V any] struct {
	mu sync.Mutex

	capacity int
	idleTTL  time.Duration
	now      func() time.Time
	onEvict  func(key string, value V, reason string)

	items map[string]*lruEntry[V]

	// head.next is the most recently used, tail.prev the least.
	head *lruEntry[V]
	tail *lruEntry[V]
}

func newLRU[V any](capacity int, idleTTL time.Duration, now func() time.Time,
	onEvict func(key string, value V, reason string)) *lru[V] {
	if capacity <= 0 {
		capacity = 1000
	}
	if now == nil {
		now = time.Now
	}
	c := &lru[V]{
		capacity: capacity,
		idleTTL:  idleTTL,
		now:      now,
		onEvict:  onEvict,
		items:    make(map[string]*lruEntry[V]),
		head:     &lruEntry[V]{},
		tail:     &lruEntry[V]{},
	}
	c.head.next = c.tail
	c.tail.prev = c.head
	return c
}

// get returns the value for key and marks it most recently used. An expired
// entry is evicted and reported as missing.
func (c *lru[V]) get(key string) (V, bool) {
	var zero V
	var out []evicted[V]
	defer func() { c.report(out) }()

	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.items[key]
	if !ok {
		return zero, false
	}
	now := c.now()
	if c.expired(entry, now) {
		c.removeEntry(entry)
		out = append(out, evicted[V]{key: key, value: entry.value, reason: ReasonExpired})
		return zero, false
	}
	entry.lastAccess = now
	c.moveToFront(entry)
	return entry.value, true
}

// add inserts key, evicting the least recently used entries over capacity.
// An existing entry for key is replaced and reported as removed.
func (c *lru[V]) add(key string, value V) {
	var out []evicted[V]
	defer func() { c.report(out) }()

	c.mu.Lock()
	defer c.mu.Unlock()

	if old, ok := c.items[key]; ok {
		c.removeEntry(old)
		out = append(out, evicted[V]{key: key, value: old.value, reason: ReasonRemoved})
	}

	entry := &lruEntry[V]{key: key, value: value, lastAccess: c.now()}
	c.addToFront(entry)
	c.items[key] = entry

	for len(c.items) > c.capacity {
		oldest := c.tail.prev
		c.removeEntry(oldest)
		out = append(out, evicted[V]{key: oldest.key, value: oldest.value, reason: ReasonCapacity})
	}
}

// remove evicts key. It reports whether the key was present.
func (c *lru[V]) remove(key string) bool {
	var out []evicted[V]
	defer func() { c.report(out) }()

	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.items[key]
	if !ok {
		return false
	}
	c.removeEntry(entry)
	out = append(out, evicted[V]{key: key, value: entry.value, reason: ReasonRemoved})
	return true
}

// cleanupExpired evicts every idle-expired entry and returns how many.
func (c *lru[V]) cleanupExpired() int {
	var out []evicted[V]
	defer func() { c.report(out) }()

	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	for entry := c.tail.prev; entry != c.head; {
		prev := entry.prev
		if c.expired(entry, now) {
			c.removeEntry(entry)
			out = append(out, evicted[V]{key: entry.key, value: entry.value, reason: ReasonExpired})
		}
		entry = prev
	}
	return len(out)
}

// clear evicts everything with the given reason.
func (c *lru[V]) clear(reason string) {
	var out []evicted[V]
	defer func() { c.report(out) }()

	c.mu.Lock()
	defer c.mu.Unlock()

	for entry := c.head.next; entry != c.tail; entry = entry.next {
		out = append(out, evicted[V]{key: entry.key, value: entry.value, reason: reason})
	}
	c.items = make(map[string]*lruEntry[V])
	c.head.next = c.tail
	c.tail.prev = c.head
}

// keys returns the live keys, most recently used first.
func (c *lru[V]) keys() []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]string, 0, len(c.items))
	for entry := c.head.next; entry != c.tail; entry = entry.next {
		out = append(out, entry.key)
	}
	return out
}

// peek returns the value for key without touching recency or expiry.
func (c *lru[V]) peek(key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if entry, ok := c.items[key]; ok {
		return entry.value, true
	}
	var zero V
	return zero, false
}

func (c *lru[V]) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

func (c *lru[V]) report(out []evicted[V]) {
	if c.onEvict == nil {
		return
	}
	for _, e := range out {
		c.onEvict(e.key, e.value, e.reason)
	}
}

// Internal methods (must be called with lock held)

func (c *lru[V]) expired(entry *lruEntry[V], now time.Time) bool {
	return c.idleTTL > 0 && now.Sub(entry.lastAccess) > c.idleTTL
}

func (c *lru[V]) addToFront(entry *lruEntry[V]) {
	entry.prev = c.head
	entry.next = c.head.next
	c.head.next.prev = entry
	c.head.next = entry
}

func (c *lru[V]) moveToFront(entry *lruEntry[V]) {
	entry.prev.next = entry.next
	entry.next.prev = entry.prev
	c.addToFront(entry)
}

func (c *lru[V]) removeEntry(entry *lruEntry[V]) {
	entry.prev.next = entry.next
	entry.next.prev = entry.prev
	delete(c.items, entry.key)
}
