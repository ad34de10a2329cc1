/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package cache

import (
	"sync"

	"go.uber.org/atomic"

	"github.com/acronis/go-cachekit/log"
)

// Gate is the enabled flag consulted by Service before every operation.
type Gate struct {
	enabled *atomic.Bool
}

// NewGate creates a new Gate in the given state.
func NewGate(enabled bool) *Gate {
	return &Gate{enabled: atomic.NewBool(enabled)}
}

// Enabled reports whether the gate is open.
func (g *Gate) Enabled() bool {
	return g.enabled.Load()
}

// SetEnabled opens or closes the gate and reports whether the state changed.
func (g *Gate) SetEnabled(enabled bool) (changed bool) {
	return g.enabled.Swap(enabled) != enabled
}

// ConfigSyncObserver applies configuration updates to a running cache:
// it keeps the Gate in sync with Config.Enabled, swaps the eviction strategy
// and enforces a changed MaxEntries immediately.
// Disabling the cache doesn't remove entries, they become reachable again once the cache is enabled.
type ConfigSyncObserver struct {
	gate     *Gate
	capacity *CapacityManager
	registry *EvictionStrategyRegistry
	logger   log.FieldLogger

	mu           sync.Mutex
	applied      bool
	maxEntries   int
	strategyName string
	unsubscribe  func()
}

var _ ConfigObserver = (*ConfigSyncObserver)(nil)

// NewConfigSyncObserver creates a new ConfigSyncObserver.
// Eviction strategies are resolved in the registry with fallback to LRU (see ResolveEvictionStrategy).
func NewConfigSyncObserver(
	gate *Gate, capacity *CapacityManager, registry *EvictionStrategyRegistry, logger log.FieldLogger,
) *ConfigSyncObserver {
	if logger == nil {
		logger = log.NewDisabledLogger()
	}
	return &ConfigSyncObserver{gate: gate, capacity: capacity, registry: registry, logger: logger}
}

// OnConfigUpdated implements ConfigObserver.
func (o *ConfigSyncObserver) OnConfigUpdated(cfg Config) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.gate.SetEnabled(cfg.Enabled) && o.applied {
		o.logger.Info("cache enabled state changed", log.Bool("enabled", cfg.Enabled))
	}

	strategyChanged := !o.applied || cfg.EvictionStrategy != o.strategyName
	if strategyChanged {
		o.capacity.SetStrategy(ResolveEvictionStrategy(o.registry, cfg.EvictionStrategy))
		o.strategyName = cfg.EvictionStrategy
		o.logger.Debug("cache eviction strategy changed", log.String("eviction_strategy", cfg.EvictionStrategy))
	}

	if !o.applied || cfg.MaxEntries != o.maxEntries {
		o.maxEntries = cfg.MaxEntries
		evicted := o.capacity.EnforceCapacity(cfg.MaxEntries)
		o.logger.Debug("cache capacity limit changed",
			log.Int("max_entries", cfg.MaxEntries), log.Int("evicted", evicted))
	}

	o.applied = true
}

// Bind subscribes the observer to the manager and applies its current configuration.
// An existing binding is replaced.
func (o *ConfigSyncObserver) Bind(manager *ConfigManager) {
	o.Unbind()
	unsubscribe := manager.subscribeAndNotify(o)
	o.mu.Lock()
	o.unsubscribe = unsubscribe
	o.mu.Unlock()
}

// Unbind unsubscribes the observer from the manager it's bound to. It's a no-op if the observer isn't bound.
func (o *ConfigSyncObserver) Unbind() {
	o.mu.Lock()
	unsubscribe := o.unsubscribe
	o.unsubscribe = nil
	o.mu.Unlock()
	if unsubscribe != nil {
		unsubscribe()
	}
}
