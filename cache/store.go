/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package cache

import (
	"sort"
	"sync"
)

type storeEntry[V any] struct {
	value V
	meta  EntryMetadata
	seq   uint64 // insertion order
}

// Store is a concurrency-safe map of cache entries.
// It has no expiration or eviction logic, all policies live in Service and CapacityManager.
// Values and metadata are copied on the way in and out.
type Store[V any] struct {
	mu      sync.RWMutex
	entries map[Key]*storeEntry[V]
	lastSeq uint64
}

// NewStore creates a new empty Store.
func NewStore[V any]() *Store[V] {
	return &Store[V]{entries: make(map[Key]*storeEntry[V])}
}

// Get returns a copy of the entry stored under the key.
func (s *Store[V]) Get(key Key) (Entry[V], bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[key]
	if !ok {
		return Entry[V]{}, false
	}
	return e.entry(), true
}

// Set stores the entry under the key replacing the previous one.
// A replaced entry is treated as a new one in terms of insertion order.
func (s *Store[V]) Set(key Key, entry Entry[V]) {
	meta := entry.Metadata.Clone()
	meta.Key = key

	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastSeq++
	s.entries[key] = &storeEntry[V]{value: entry.Value, meta: meta, seq: s.lastSeq}
}

// Update calls fn with the metadata of the entry under the key while holding the write lock.
// fn may modify the metadata and reports whether the entry should be returned.
func (s *Store[V]) Update(key Key, fn func(meta *EntryMetadata) bool) (Entry[V], bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[key]
	if !ok || !fn(&e.meta) {
		return Entry[V]{}, false
	}
	return e.entry(), true
}

// Delete removes the entry and reports whether it was present.
func (s *Store[V]) Delete(key Key) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.entries[key]; !ok {
		return false
	}
	delete(s.entries, key)
	return true
}

// DeleteFunc removes the entry only if fn returns true for its current metadata.
// It reports whether the entry was removed.
func (s *Store[V]) DeleteFunc(key Key, fn func(meta EntryMetadata) bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[key]
	if !ok || !fn(e.meta) {
		return false
	}
	delete(s.entries, key)
	return true
}

// Has reports whether an entry (expired or not) is stored under the key.
func (s *Store[V]) Has(key Key) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.entries[key]
	return ok
}

// Len returns the number of stored entries.
func (s *Store[V]) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Clear removes all entries and returns how many were removed.
func (s *Store[V]) Clear() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := len(s.entries)
	s.entries = make(map[Key]*storeEntry[V])
	return n
}

// Range calls fn for the metadata of every entry in insertion order until fn returns false.
// It iterates over a snapshot, so fn may safely call other Store methods.
func (s *Store[V]) Range(fn func(meta EntryMetadata) bool) {
	type item struct {
		meta EntryMetadata
		seq  uint64
	}
	s.mu.RLock()
	items := make([]item, 0, len(s.entries))
	for _, e := range s.entries {
		items = append(items, item{e.meta.Clone(), e.seq})
	}
	s.mu.RUnlock()

	sort.Slice(items, func(i, j int) bool { return items[i].seq < items[j].seq })
	for i := range items {
		if !fn(items[i].meta) {
			return
		}
	}
}

func (e *storeEntry[V]) entry() Entry[V] {
	return Entry[V]{Value: e.value, Metadata: e.meta.Clone()}
}
