/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/acronis/go-cachekit/log"
)

// Clock returns the current time. All timestamps and expiration checks of a Service go through it.
type Clock func() time.Time

// Options represents options for the Service.
type Options struct {
	// Clock is used instead of time.Now if set.
	Clock Clock

	// Registry is used to resolve Config.EvictionStrategy.
	// If nil, a registry with the built-in strategies is used.
	Registry *EvictionStrategyRegistry

	// Logger is used for configuration changes, capacity enforcement and periodic cleanup.
	// If nil, logging is disabled.
	Logger log.FieldLogger
}

// Service is a cache of values of type V.
// All methods are safe for concurrent use.
type Service[V any] struct {
	configManager *ConfigManager
	store         *Store[V]
	capacity      *CapacityManager
	syncObserver  *ConfigSyncObserver
	gate          *Gate
	stats         statsCounters
	clock         Clock

	metrics        MetricsCollector
	entriesMetrics EntriesMetricsCollector
	logger         log.FieldLogger
}

// New creates a new Service with the provided configuration and metrics collector.
// Metrics collector can be nil, in this case, metrics will be disabled.
func New[V any](cfg Config, metricsCollector MetricsCollector) (*Service[V], error) {
	return NewWithOpts[V](cfg, metricsCollector, Options{})
}

// NewWithOpts creates a new Service with the provided configuration, metrics collector, and options.
func NewWithOpts[V any](cfg Config, metricsCollector MetricsCollector, opts Options) (*Service[V], error) {
	cm, err := NewConfigManager(cfg)
	if err != nil {
		return nil, err
	}
	return NewWithConfigManager[V](cm, metricsCollector, opts)
}

// NewWithConfigManager creates a new Service that follows the configuration held by the manager.
// The manager may be shared between several services. Close must be called to stop following it.
func NewWithConfigManager[V any](
	configManager *ConfigManager, metricsCollector MetricsCollector, opts Options,
) (*Service[V], error) {
	if configManager == nil {
		return nil, fmt.Errorf("config manager must not be nil")
	}
	if metricsCollector == nil {
		metricsCollector = disabledMetrics{}
	}
	entriesMetrics, ok := metricsCollector.(EntriesMetricsCollector)
	if !ok {
		entriesMetrics = disabledMetrics{}
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if opts.Registry == nil {
		opts.Registry = NewDefaultEvictionStrategyRegistry()
	}
	if opts.Logger == nil {
		opts.Logger = log.NewDisabledLogger()
	}

	cfg := configManager.Config()
	s := &Service[V]{
		configManager:  configManager,
		store:          NewStore[V](),
		gate:           NewGate(cfg.Enabled),
		clock:          opts.Clock,
		metrics:        metricsCollector,
		entriesMetrics: entriesMetrics,
		logger:         opts.Logger.With(log.String("cache_namespace", cfg.Namespace)),
	}
	s.capacity = NewCapacityManager(s.store, nil, EvictionRecorderFunc(s.recordEvictions), s.logger)
	s.syncObserver = NewConfigSyncObserver(s.gate, s.capacity, opts.Registry, s.logger)
	s.syncObserver.Bind(configManager)
	return s, nil
}

// SetOption customizes a single Set or GetOrSet call.
type SetOption func(*setOptions)

type setOptions struct {
	ttl  *time.Duration
	tags []string
}

// WithTTL sets the entry TTL instead of Config.DefaultTTL. Non-positive TTL means the entry never expires.
func WithTTL(ttl time.Duration) SetOption {
	return func(o *setOptions) { o.ttl = &ttl }
}

// WithTags attaches tags to the entry. Exact duplicates are dropped, the order is preserved.
func WithTags(tags ...string) SetOption {
	return func(o *setOptions) { o.tags = append(o.tags, tags...) }
}

// Get returns the value stored under the key.
// An expired entry is removed and reported as a miss.
func (s *Service[V]) Get(key Key) (LookupResult[V], bool) {
	if !s.gate.Enabled() {
		return LookupResult[V]{}, false
	}
	now := s.clock()
	entry, ok := s.store.Update(key, func(meta *EntryMetadata) bool {
		if meta.IsExpired(now) {
			return false
		}
		meta.Hits++
		meta.LastAccessedAt = now
		return true
	})
	if !ok {
		s.expire(key, now)
		s.stats.misses.Inc()
		s.metrics.RecordCacheAccess(false)
		return LookupResult[V]{}, false
	}
	s.stats.hits.Inc()
	s.metrics.RecordCacheAccess(true)
	return LookupResult[V]{Hit: true, Value: entry.Value, Metadata: entry.Metadata}, true
}

// Set stores the value under the key replacing the existing entry (its hits are reset).
// If the cache is over capacity afterwards, entries are evicted according to the eviction strategy.
// It returns the metadata of the new entry, or zero metadata if the cache is disabled.
func (s *Service[V]) Set(key Key, value V, opts ...SetOption) EntryMetadata {
	if !s.gate.Enabled() {
		return EntryMetadata{}
	}
	cfg := s.configManager.Config()

	options := setOptions{}
	for _, opt := range opts {
		opt(&options)
	}
	ttl := time.Duration(cfg.DefaultTTL)
	if options.ttl != nil {
		ttl = *options.ttl
	}

	now := s.clock()
	meta := EntryMetadata{
		Key:            key,
		CreatedAt:      now,
		LastAccessedAt: now,
		Tags:           uniqueTags(options.tags),
	}
	if ttl > 0 {
		meta.ExpiresAt = now.Add(ttl)
	}
	s.store.Set(key, Entry[V]{Value: value, Metadata: meta})

	if cfg.MaxEntries > 0 {
		s.capacity.EnforceCapacity(cfg.MaxEntries)
	}
	s.entriesMetrics.SetAmount(s.store.Len())
	return meta.Clone()
}

// GetOrSet returns the cached value or, on a miss, calls the factory and caches its result.
// If the factory fails (or panics), *FactoryError is returned and the key is left untouched.
// Concurrent calls for the same missing key are not coalesced: each of them calls the factory.
// If the cache is disabled, the factory result is returned without caching.
func (s *Service[V]) GetOrSet(ctx context.Context, key Key, factory Factory[V], opts ...SetOption) (LookupResult[V], error) {
	if !s.gate.Enabled() {
		val, err := callFactory(ctx, factory)
		if err != nil {
			return LookupResult[V]{}, err
		}
		return LookupResult[V]{Value: val}, nil
	}
	if res, ok := s.Get(key); ok {
		return res, nil
	}
	val, err := callFactory(ctx, factory)
	if err != nil {
		return LookupResult[V]{}, err
	}
	return LookupResult[V]{Value: val, Metadata: s.Set(key, val, opts...)}, nil
}

// Has reports whether a live entry is stored under the key.
// Unlike Get, it doesn't count hits and misses and doesn't update the access time.
func (s *Service[V]) Has(key Key) bool {
	_, ok := s.GetMetadata(key)
	return ok
}

// GetMetadata returns a copy of the entry metadata.
// Unlike Get, it doesn't count hits and misses and doesn't update the access time.
func (s *Service[V]) GetMetadata(key Key) (EntryMetadata, bool) {
	if !s.gate.Enabled() {
		return EntryMetadata{}, false
	}
	now := s.clock()
	entry, ok := s.store.Get(key)
	if !ok {
		return EntryMetadata{}, false
	}
	if entry.Metadata.IsExpired(now) {
		s.expire(key, now)
		return EntryMetadata{}, false
	}
	return entry.Metadata, true
}

// Delete removes the entry and reports whether it was present.
func (s *Service[V]) Delete(key Key) bool {
	if !s.gate.Enabled() {
		return false
	}
	if !s.store.Delete(key) {
		return false
	}
	s.recordEvictions(1)
	return true
}

// Clear removes all entries and returns how many were removed.
func (s *Service[V]) Clear() int {
	if !s.gate.Enabled() {
		return 0
	}
	n := s.store.Clear()
	s.recordEvictions(n)
	return n
}

// InvalidateWhere removes all entries whose metadata satisfies the predicate and returns how many were removed.
// The predicate is called once per entry and may be called concurrently with other cache operations.
func (s *Service[V]) InvalidateWhere(predicate InvalidationPredicate) int {
	if !s.gate.Enabled() || predicate == nil {
		return 0
	}
	var matched []Key
	s.store.Range(func(meta EntryMetadata) bool {
		if predicate(meta) {
			matched = append(matched, meta.Key)
		}
		return true
	})
	removed := 0
	for _, key := range matched {
		if s.store.Delete(key) {
			removed++
		}
	}
	s.recordEvictions(removed)
	return removed
}

// PurgeExpired removes all expired entries and returns how many were removed.
func (s *Service[V]) PurgeExpired() int {
	if !s.gate.Enabled() {
		return 0
	}
	now := s.clock()
	var expired []Key
	s.store.Range(func(meta EntryMetadata) bool {
		if meta.IsExpired(now) {
			expired = append(expired, meta.Key)
		}
		return true
	})
	removed := 0
	for _, key := range expired {
		if s.store.DeleteFunc(key, func(meta EntryMetadata) bool { return meta.IsExpired(now) }) {
			removed++
		}
	}
	s.recordEvictions(removed)
	return removed
}

// RunPeriodicCleanup removes expired entries every cleanupInterval until ctx is done.
// Entries without expiration time are not affected.
// It's supposed to be run in a separate goroutine.
// Non-positive cleanupInterval disables periodic cleanup, the method returns immediately.
func (s *Service[V]) RunPeriodicCleanup(ctx context.Context, cleanupInterval time.Duration) {
	if cleanupInterval <= 0 {
		s.logger.Warn("periodic cleanup of expired cache entries is disabled",
			log.Duration("cleanup_interval", cleanupInterval))
		return
	}
	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := s.PurgeExpired(); n > 0 {
				s.logger.Debug("expired cache entries purged", log.Int("purged", n))
			}
		}
	}
}

// Statistics returns the current usage counters.
func (s *Service[V]) Statistics() Statistics {
	return Statistics{
		Hits:      s.stats.hits.Load(),
		Misses:    s.stats.misses.Load(),
		Evictions: s.stats.evictions.Load(),
		Size:      s.store.Len(),
		Enabled:   s.gate.Enabled(),
	}
}

// Len returns the number of stored entries (including expired ones that were not removed yet).
func (s *Service[V]) Len() int {
	return s.store.Len()
}

// Enabled reports whether the cache is enabled.
func (s *Service[V]) Enabled() bool {
	return s.gate.Enabled()
}

// Config returns a copy of the current configuration.
func (s *Service[V]) Config() Config {
	return s.configManager.Config()
}

// UpdateConfig applies the updates to the configuration (see ConfigManager.UpdateConfig).
func (s *Service[V]) UpdateConfig(updates ...ConfigUpdate) Config {
	return s.configManager.UpdateConfig(updates...)
}

// ConfigManager returns the manager the service follows.
func (s *Service[V]) ConfigManager() *ConfigManager {
	return s.configManager
}

// Close stops following configuration updates. Entries remain accessible.
func (s *Service[V]) Close() {
	s.syncObserver.Unbind()
}

// expire removes the entry only if it's still expired, so a fresh entry set concurrently survives.
func (s *Service[V]) expire(key Key, now time.Time) {
	if s.store.DeleteFunc(key, func(meta EntryMetadata) bool { return meta.IsExpired(now) }) {
		s.recordEvictions(1)
	}
}

func (s *Service[V]) recordEvictions(n int) {
	if n <= 0 {
		return
	}
	s.stats.evictions.Add(uint64(n))
	s.entriesMetrics.AddEvictions(n)
	s.entriesMetrics.SetAmount(s.store.Len())
}
