/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package cache

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/acronis/go-cachekit/log"
	"github.com/acronis/go-cachekit/log/logtest"
)

func TestConfigSyncObserver(t *testing.T) {
	store := NewStore[int]()
	for _, key := range []Key{"a", "b", "c"} {
		store.Set(key, Entry[int]{})
	}
	gate := NewGate(true)
	capacity := NewCapacityManager(store, nil, nil, nil)
	logger := logtest.NewRecorder()
	observer := NewConfigSyncObserver(gate, capacity, NewDefaultEvictionStrategyRegistry(), logger)

	cm, err := NewConfigManager(Config{Enabled: true, MaxEntries: 10, EvictionStrategy: EvictionStrategyFIFO})
	require.NoError(t, err)
	observer.Bind(cm)
	require.IsType(t, FIFOEvictionStrategy{}, capacity.Strategy())
	require.Equal(t, 3, store.Len())

	t.Run("disabling keeps entries", func(t *testing.T) {
		cm.UpdateConfig(UpdateEnabled(false))
		require.False(t, gate.Enabled())
		require.Equal(t, 3, store.Len())

		entry, found := logger.FindEntry("cache enabled state changed")
		require.True(t, found)
		require.Equal(t, log.LevelInfo, entry.Level)

		cm.UpdateConfig(UpdateEnabled(true))
		require.True(t, gate.Enabled())
	})

	t.Run("shrinking limit is enforced immediately", func(t *testing.T) {
		cm.UpdateConfig(UpdateMaxEntries(2))
		require.Equal(t, 2, store.Len())
		require.Equal(t, []Key{"b", "c"}, rangeKeys(store))
	})

	t.Run("unknown strategy falls back to lru", func(t *testing.T) {
		cm.UpdateConfig(UpdateEvictionStrategy("unknown"))
		require.IsType(t, LRUEvictionStrategy{}, capacity.Strategy())
		cm.UpdateConfig(UpdateEvictionStrategy(EvictionStrategyLFU))
		require.IsType(t, LFUEvictionStrategy{}, capacity.Strategy())
	})

	t.Run("rebinding replaces the subscription", func(t *testing.T) {
		other, err := NewConfigManager(Config{Enabled: false})
		require.NoError(t, err)
		observer.Bind(other)
		require.False(t, gate.Enabled())
		require.IsType(t, LRUEvictionStrategy{}, capacity.Strategy())

		cm.UpdateConfig(UpdateEnabled(true), UpdateMaxEntries(1))
		require.False(t, gate.Enabled())
		require.Equal(t, 2, store.Len())

		observer.Unbind()
		observer.Unbind()
		other.UpdateConfig(UpdateEnabled(true))
		require.False(t, gate.Enabled())
	})
}

func TestGate(t *testing.T) {
	gate := NewGate(false)
	require.False(t, gate.Enabled())
	require.True(t, gate.SetEnabled(true))
	require.False(t, gate.SetEnabled(true))
	require.True(t, gate.Enabled())
}
