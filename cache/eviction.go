/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package cache

import (
	"sort"
)

// Names of the built-in eviction strategies.
const (
	EvictionStrategyLRU  = "lru"
	EvictionStrategyLFU  = "lfu"
	EvictionStrategyFIFO = "fifo"
)

// EntrySource provides read access to the entries an EvictionStrategy chooses from.
// Range must iterate in insertion order.
type EntrySource interface {
	Len() int
	Range(fn func(meta EntryMetadata) bool)
}

// EvictionStrategy selects entries to remove when the cache exceeds its capacity.
type EvictionStrategy interface {
	// SelectVictims returns up to count keys in removal order.
	SelectVictims(entries EntrySource, count int) []Key
}

// EvictionStrategyFunc is an adapter to allow the use of ordinary functions as EvictionStrategy.
type EvictionStrategyFunc func(entries EntrySource, count int) []Key

// SelectVictims implements EvictionStrategy.
func (f EvictionStrategyFunc) SelectVictims(entries EntrySource, count int) []Key {
	return f(entries, count)
}

// LRUEvictionStrategy evicts the least recently accessed entries first.
// Ties are broken by the earliest creation time and then by insertion order.
type LRUEvictionStrategy struct{}

// SelectVictims implements EvictionStrategy.
func (LRUEvictionStrategy) SelectVictims(entries EntrySource, count int) []Key {
	return selectVictims(entries, count, lessByAccess)
}

// LFUEvictionStrategy evicts entries with the fewest hits first. Ties are resolved in LRU order.
type LFUEvictionStrategy struct{}

// SelectVictims implements EvictionStrategy.
func (LFUEvictionStrategy) SelectVictims(entries EntrySource, count int) []Key {
	return selectVictims(entries, count, func(a, b *EntryMetadata) bool {
		if a.Hits != b.Hits {
			return a.Hits < b.Hits
		}
		return lessByAccess(a, b)
	})
}

// FIFOEvictionStrategy evicts the oldest entries first regardless of how they are accessed.
type FIFOEvictionStrategy struct{}

// SelectVictims implements EvictionStrategy.
func (FIFOEvictionStrategy) SelectVictims(entries EntrySource, count int) []Key {
	return selectVictims(entries, count, func(a, b *EntryMetadata) bool {
		return a.CreatedAt.Before(b.CreatedAt)
	})
}

func lessByAccess(a, b *EntryMetadata) bool {
	if !a.LastAccessedAt.Equal(b.LastAccessedAt) {
		return a.LastAccessedAt.Before(b.LastAccessedAt)
	}
	return a.CreatedAt.Before(b.CreatedAt)
}

func selectVictims(entries EntrySource, count int, less func(a, b *EntryMetadata) bool) []Key {
	if count <= 0 || entries == nil {
		return nil
	}
	candidates := make([]EntryMetadata, 0, entries.Len())
	entries.Range(func(meta EntryMetadata) bool {
		candidates = append(candidates, meta)
		return true
	})
	sort.SliceStable(candidates, func(i, j int) bool {
		return less(&candidates[i], &candidates[j])
	})
	if count > len(candidates) {
		count = len(candidates)
	}
	victims := make([]Key, count)
	for i := 0; i < count; i++ {
		victims[i] = candidates[i].Key
	}
	return victims
}
