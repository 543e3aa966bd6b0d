// Package querycache is a keyed in-process cache of server query results with
// per-entry expiration. One Cache instance serves one resource class; each
// class carries its own freshness window. Entries are never persisted and
// expire lazily at read time, there is no background sweep.
package querycache

import (
	"sync"
	"time"
)

type entry[T any] struct {
	payload   T
	writtenAt time.Time
	expiresAt time.Time
	issue     uint64
}

// Cache maps canonical query keys to cached payloads. Writes carry the
// issuance number handed out by Issue at request time; a write whose number
// is older than the stored entry's is rejected, so a slow response can never
// clobber a fresher one.
type Cache[T any] struct {
	mu      sync.Mutex
	entries map[string]entry[T]
	issued  uint64
	now     func() time.Time
}

func New[T any]() *Cache[T] {
	return &Cache[T]{
		entries: make(map[string]entry[T]),
		now:     time.Now,
	}
}

// Read returns the payload when an entry exists and has not expired. An
// expired entry is deleted and reported as a miss, exactly like a key that
// was never populated.
func (c *Cache[T]) Read(key string) (T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		var zero T
		return zero, false
	}
	if c.now().After(e.expiresAt) {
		delete(c.entries, key)
		var zero T
		return zero, false
	}
	return e.payload, true
}

// Issue hands out the monotonic issuance number for a request about to be
// sent. Pass it to Write when the response arrives.
func (c *Cache[T]) Issue() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.issued++
	return c.issued
}

// Write stores the payload with writtenAt = now and expiresAt = now + ttl,
// overwriting any previous entry. It reports false and leaves the cache
// untouched when the stored entry was written by a later-issued request.
func (c *Cache[T]) Write(key string, payload T, ttl time.Duration, issue uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.entries[key]; ok && e.issue > issue {
		return false
	}
	now := c.now()
	c.entries[key] = entry[T]{
		payload:   payload,
		writtenAt: now,
		expiresAt: now.Add(ttl),
		issue:     issue,
	}
	return true
}

// Replace swaps the payload of an existing entry in place, keeping its
// expiry and issuance number. It returns the previous payload so callers can
// restore it if a confirmation call fails. A missing or expired key is left
// untouched.
func (c *Cache[T]) Replace(key string, payload T) (T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok || c.now().After(e.expiresAt) {
		var zero T
		return zero, false
	}
	prev := e.payload
	e.payload = payload
	c.entries[key] = e
	return prev, true
}

// Invalidate drops a single entry.
func (c *Cache[T]) Invalidate(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
}

// Clear drops every entry in the cache.
func (c *Cache[T]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]entry[T])
}

// Len reports the number of stored entries, expired ones included.
func (c *Cache[T]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
