/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package cache

import (
	"sort"
	"sync"
)

// EvictionStrategyRegistry maps names to eviction strategies.
// It's safe for concurrent use and may be shared between several services.
type EvictionStrategyRegistry struct {
	mu         sync.RWMutex
	strategies map[string]EvictionStrategy
}

// NewEvictionStrategyRegistry creates an empty registry.
func NewEvictionStrategyRegistry() *EvictionStrategyRegistry {
	return &EvictionStrategyRegistry{strategies: make(map[string]EvictionStrategy)}
}

// NewDefaultEvictionStrategyRegistry creates a registry with the built-in strategies ("lru", "lfu" and "fifo").
func NewDefaultEvictionStrategyRegistry() *EvictionStrategyRegistry {
	r := NewEvictionStrategyRegistry()
	r.Register(EvictionStrategyLRU, LRUEvictionStrategy{})
	r.Register(EvictionStrategyLFU, LFUEvictionStrategy{})
	r.Register(EvictionStrategyFIFO, FIFOEvictionStrategy{})
	return r
}

// Register adds the strategy under the name and reports whether a previously registered one was replaced.
func (r *EvictionStrategyRegistry) Register(name string, strategy EvictionStrategy) (replaced bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, replaced = r.strategies[name]
	r.strategies[name] = strategy
	return replaced
}

// Unregister removes the strategy and reports whether it was registered.
func (r *EvictionStrategyRegistry) Unregister(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.strategies[name]; !ok {
		return false
	}
	delete(r.strategies, name)
	return true
}

// Get returns the strategy registered under the name.
func (r *EvictionStrategyRegistry) Get(name string) (EvictionStrategy, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.strategies[name]
	return s, ok
}

// Has reports whether a strategy is registered under the name.
func (r *EvictionStrategyRegistry) Has(name string) bool {
	_, ok := r.Get(name)
	return ok
}

// GetOrDefault returns the strategy registered under the name or, if there is none, under defaultName.
func (r *EvictionStrategyRegistry) GetOrDefault(name, defaultName string) (EvictionStrategy, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if s, ok := r.strategies[name]; ok {
		return s, true
	}
	s, ok := r.strategies[defaultName]
	return s, ok
}

// Names returns the sorted names of all registered strategies.
func (r *EvictionStrategyRegistry) Names() []string {
	r.mu.RLock()
	names := make([]string, 0, len(r.strategies))
	for name := range r.strategies {
		names = append(names, name)
	}
	r.mu.RUnlock()
	sort.Strings(names)
	return names
}

// Clear removes all registered strategies.
func (r *EvictionStrategyRegistry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.strategies = make(map[string]EvictionStrategy)
}

// ResolveEvictionStrategy returns the strategy registered under the name, falling back to the "lru" one.
// If the registry is nil or has neither, a new LRUEvictionStrategy is returned,
// so capacity is always enforced by some strategy.
func ResolveEvictionStrategy(registry *EvictionStrategyRegistry, name string) EvictionStrategy {
	if registry != nil {
		if s, ok := registry.GetOrDefault(name, EvictionStrategyLRU); ok && s != nil {
			return s
		}
	}
	return LRUEvictionStrategy{}
}
