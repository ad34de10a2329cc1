/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package cache

import (
	"time"
)

// EntryMetadata describes a cache entry.
type EntryMetadata struct {
	Key            Key
	CreatedAt      time.Time
	LastAccessedAt time.Time

	// ExpiresAt is zero for entries that never expire.
	ExpiresAt time.Time

	// Hits is the number of successful reads since the entry was set.
	Hits int

	// Tags are free-form labels used for group invalidation (see HasTag).
	Tags []string
}

// IsExpired reports whether the entry is expired at the given moment.
func (m *EntryMetadata) IsExpired(now time.Time) bool {
	return !m.ExpiresAt.IsZero() && !now.Before(m.ExpiresAt)
}

// HasTag reports whether the entry is tagged with the given tag (case-sensitive).
func (m *EntryMetadata) HasTag(tag string) bool {
	for _, t := range m.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// Clone returns a deep copy of the metadata.
func (m EntryMetadata) Clone() EntryMetadata {
	if m.Tags != nil {
		m.Tags = append([]string(nil), m.Tags...)
	}
	return m
}

// Entry is a cached value together with its metadata.
type Entry[V any] struct {
	Value    V
	Metadata EntryMetadata
}

// LookupResult is the result of Service.Get and Service.GetOrSet.
// Hit is false when the value was not found in the cache (for GetOrSet it means the value was just produced).
type LookupResult[V any] struct {
	Hit      bool
	Value    V
	Metadata EntryMetadata
}

// uniqueTags removes exact duplicates keeping the first occurrence order.
func uniqueTags(tags []string) []string {
	if len(tags) == 0 {
		return nil
	}
	res := make([]string, 0, len(tags))
	seen := make(map[string]struct{}, len(tags))
	for _, tag := range tags {
		if _, ok := seen[tag]; ok {
			continue
		}
		seen[tag] = struct{}{}
		res = append(res, tag)
	}
	return res
}
