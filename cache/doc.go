/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

// Package cache provides an in-process, TTL-bounded, tag-addressable cache with an optional entry-count limit.
//
// A Service is the entry point. It stores values of a single type under namespaced keys (see NewNamespace),
// expires entries lazily on access (or in bulk with PurgeExpired/RunPeriodicCleanup),
// enforces the configured MaxEntries through a pluggable EvictionStrategy and supports group invalidation
// by arbitrary predicates over entry metadata (e.g. tags).
//
// Configuration lives in a ConfigManager that may be shared between several services and updated at runtime.
// Each service keeps its enabled flag, eviction strategy and capacity in sync with the manager.
// A disabled service keeps its entries but behaves as if it were empty.
package cache
