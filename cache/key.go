/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package cache

import (
	"strings"
)

const keySeparator = ":"

// Key identifies a cache entry. Keys built from the same segments are always equal.
type Key string

// String returns the string representation of the key.
func (k Key) String() string {
	return string(k)
}

// KeyBuilder builds keys inside a namespace that belongs to an owner (e.g. a module or a plugin).
type KeyBuilder func(parts ...string) Key

// NewNamespace returns a KeyBuilder for keys in the given namespace of the given owner.
//
//	notes := cache.NewNamespace("Journal Notes", "my-plugin")
//	notes("list", "2024") // "my-plugin:journal-notes:list:2024"
func NewNamespace(namespace, ownerID string) KeyBuilder {
	prefix := normalizeKeySegment(ownerID) + keySeparator + normalizeKeySegment(namespace)
	return func(parts ...string) Key {
		var sb strings.Builder
		sb.WriteString(prefix)
		for _, part := range parts {
			sb.WriteString(keySeparator)
			sb.WriteString(normalizeKeySegment(part))
		}
		return Key(sb.String())
	}
}

// NewKey builds a single key. It's a shortcut for NewNamespace(namespace, ownerID)(parts...).
func NewKey(namespace, ownerID string, parts ...string) Key {
	return NewNamespace(namespace, ownerID)(parts...)
}

// normalizeKeySegment trims the segment, replaces whitespace runs with "-",
// drops everything except ASCII letters, digits, "-" and "_", and lower-cases the result.
func normalizeKeySegment(s string) string {
	s = strings.Join(strings.Fields(s), "-")
	var sb strings.Builder
	sb.Grow(len(s))
	for _, r := range s {
		switch {
		case r >= 'A' && r <= 'Z':
			sb.WriteRune(r + ('a' - 'A'))
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-', r == '_':
			sb.WriteRune(r)
		}
	}
	return sb.String()
}
