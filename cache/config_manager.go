/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package cache

import (
	"sync"
)

// ConfigObserver is notified after every configuration update.
type ConfigObserver interface {
	OnConfigUpdated(cfg Config)
}

// ConfigObserverFunc is an adapter to allow the use of ordinary functions as ConfigObserver.
type ConfigObserverFunc func(cfg Config)

// OnConfigUpdated implements ConfigObserver.
func (f ConfigObserverFunc) OnConfigUpdated(cfg Config) {
	f(cfg)
}

type configSubscription struct {
	id       uint64
	observer ConfigObserver
}

// ConfigManager holds the current cache configuration and notifies observers about its updates.
type ConfigManager struct {
	notifyMu sync.Mutex // serializes updates together with their notifications

	mu            sync.RWMutex
	cfg           Config
	subscriptions []configSubscription
	lastSubID     uint64
}

// NewConfigManager creates a new ConfigManager with the initial configuration.
func NewConfigManager(cfg Config) (*ConfigManager, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &ConfigManager{cfg: cfg}, nil
}

// Config returns a copy of the current configuration.
func (m *ConfigManager) Config() Config {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.cfg
}

// IsEnabled reports whether the cache is enabled by the current configuration.
func (m *ConfigManager) IsEnabled() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.cfg.Enabled
}

// UpdateConfig applies the updates over the current configuration and returns the new one.
// Settings without an update are preserved. Observers are called synchronously after the update
// (in the subscription order) and may call ConfigManager methods except UpdateConfig.
// Concurrent updates are delivered to observers in the order they were applied.
func (m *ConfigManager) UpdateConfig(updates ...ConfigUpdate) Config {
	m.notifyMu.Lock()
	defer m.notifyMu.Unlock()

	m.mu.Lock()
	cfg := m.cfg
	for _, update := range updates {
		if update != nil {
			update(&cfg)
		}
	}
	if cfg.MaxEntries < 0 {
		cfg.MaxEntries = 0
	}
	m.cfg = cfg
	subs := append([]configSubscription(nil), m.subscriptions...)
	m.mu.Unlock()

	for _, sub := range subs {
		sub.observer.OnConfigUpdated(cfg)
	}
	return cfg
}

// subscribeAndNotify registers the observer and passes it the current configuration.
// No update can be applied in between.
func (m *ConfigManager) subscribeAndNotify(observer ConfigObserver) (unsubscribe func()) {
	m.notifyMu.Lock()
	defer m.notifyMu.Unlock()
	unsubscribe = m.Subscribe(observer)
	observer.OnConfigUpdated(m.Config())
	return unsubscribe
}

// Subscribe registers the observer and returns a function that unsubscribes it.
// The returned function is idempotent.
func (m *ConfigManager) Subscribe(observer ConfigObserver) (unsubscribe func()) {
	m.mu.Lock()
	m.lastSubID++
	id := m.lastSubID
	m.subscriptions = append(m.subscriptions, configSubscription{id: id, observer: observer})
	m.mu.Unlock()

	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		for i := range m.subscriptions {
			if m.subscriptions[i].id == id {
				m.subscriptions = append(m.subscriptions[:i:i], m.subscriptions[i+1:]...)
				return
			}
		}
	}
}
