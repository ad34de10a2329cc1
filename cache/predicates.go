/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package cache

import (
	"github.com/vasayxtx/go-glob"
)

// InvalidationPredicate selects entries for Service.InvalidateWhere.
type InvalidationPredicate func(meta EntryMetadata) bool

// HasTag matches entries tagged with the tag.
func HasTag(tag string) InvalidationPredicate {
	return func(meta EntryMetadata) bool {
		return meta.HasTag(tag)
	}
}

// HasAnyTag matches entries tagged with at least one of the tags.
func HasAnyTag(tags ...string) InvalidationPredicate {
	return func(meta EntryMetadata) bool {
		for _, tag := range tags {
			if meta.HasTag(tag) {
				return true
			}
		}
		return false
	}
}

// KeyMatchesGlob matches entries whose key matches the pattern, where "*" stands for any sequence of characters
// (e.g. "my-plugin:notes:*").
func KeyMatchesGlob(pattern string) InvalidationPredicate {
	match := glob.Compile(pattern)
	return func(meta EntryMetadata) bool {
		return match(string(meta.Key))
	}
}

// AllOf matches entries that satisfy every predicate. With no predicates it matches everything.
func AllOf(predicates ...InvalidationPredicate) InvalidationPredicate {
	return func(meta EntryMetadata) bool {
		for _, p := range predicates {
			if !p(meta) {
				return false
			}
		}
		return true
	}
}
