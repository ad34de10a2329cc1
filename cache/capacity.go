/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package cache

import (
	"sync"

	"github.com/acronis/go-cachekit/log"
)

// EvictableStore is a store CapacityManager removes entries from.
type EvictableStore interface {
	EntrySource
	Delete(key Key) bool
}

// EvictionRecorder is notified about entries removed by capacity enforcement.
type EvictionRecorder interface {
	AddEvictions(n int)
}

// EvictionRecorderFunc is an adapter to allow the use of ordinary functions as EvictionRecorder.
type EvictionRecorderFunc func(n int)

// AddEvictions implements EvictionRecorder.
func (f EvictionRecorderFunc) AddEvictions(n int) {
	f(n)
}

// CapacityManager keeps the number of entries in a store within a limit using an EvictionStrategy.
type CapacityManager struct {
	store    EvictableStore
	recorder EvictionRecorder
	logger   log.FieldLogger

	mu       sync.RWMutex
	strategy EvictionStrategy
}

// NewCapacityManager creates a new CapacityManager.
// Nil strategy means LRU, nil recorder and logger are allowed.
func NewCapacityManager(
	store EvictableStore, strategy EvictionStrategy, recorder EvictionRecorder, logger log.FieldLogger,
) *CapacityManager {
	if strategy == nil {
		strategy = LRUEvictionStrategy{}
	}
	if recorder == nil {
		recorder = EvictionRecorderFunc(func(int) {})
	}
	if logger == nil {
		logger = log.NewDisabledLogger()
	}
	return &CapacityManager{store: store, strategy: strategy, recorder: recorder, logger: logger}
}

// Strategy returns the current eviction strategy.
func (cm *CapacityManager) Strategy() EvictionStrategy {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	return cm.strategy
}

// SetStrategy replaces the eviction strategy. Nil means LRU.
func (cm *CapacityManager) SetStrategy(strategy EvictionStrategy) {
	if strategy == nil {
		strategy = LRUEvictionStrategy{}
	}
	cm.mu.Lock()
	cm.strategy = strategy
	cm.mu.Unlock()
}

// EnforceCapacity removes entries chosen by the strategy until the store holds at most maxEntries.
// Non-positive maxEntries means no limit. It returns the number of removed entries.
// Keys that are already gone are skipped and not counted.
func (cm *CapacityManager) EnforceCapacity(maxEntries int) int {
	if maxEntries <= 0 {
		return 0
	}
	strategy := cm.Strategy()
	removed := 0
	for {
		excess := cm.store.Len() - maxEntries
		if excess <= 0 {
			break
		}
		victims := strategy.SelectVictims(cm.store, excess)
		if len(victims) > excess {
			victims = victims[:excess]
		}
		n := 0
		for _, key := range victims {
			if cm.store.Delete(key) {
				n++
			}
		}
		if n == 0 {
			break
		}
		removed += n
		cm.logger.Debug("cache capacity enforced", log.Int("evicted", n), log.Int("max_entries", maxEntries))
	}
	if removed > 0 {
		cm.recorder.AddEvictions(removed)
	}
	return removed
}
