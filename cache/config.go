/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package cache

import (
	"fmt"
	"time"

	"github.com/acronis/go-cachekit/config"
)

const cfgDefaultKeyPrefix = "cache"

const (
	cfgKeyEnabled          = "enabled"
	cfgKeyDefaultTTL       = "defaultTTL"
	cfgKeyNamespace        = "namespace"
	cfgKeyMaxEntries       = "maxEntries"
	cfgKeyEvictionStrategy = "evictionStrategy"
)

// Default values.
const (
	DefaultTTL       = 5 * time.Minute
	DefaultNamespace = "global"
)

// Config represents a set of configuration parameters for a cache service.
// It's used as an immutable snapshot, ConfigManager hands out copies.
type Config struct {
	// Enabled gates all operations. A disabled cache keeps its entries but behaves as if it were empty.
	Enabled bool `mapstructure:"enabled" yaml:"enabled" json:"enabled"`

	// DefaultTTL is used when Set is called without WithTTL. Non-positive TTL means "never expires".
	DefaultTTL config.TimeDuration `mapstructure:"defaultTTL" yaml:"defaultTTL" json:"defaultTTL"`

	// Namespace identifies the cache instance (e.g. in logs). It doesn't affect keys.
	Namespace string `mapstructure:"namespace" yaml:"namespace" json:"namespace"`

	// MaxEntries limits the number of entries. Zero means no limit.
	MaxEntries int `mapstructure:"maxEntries" yaml:"maxEntries" json:"maxEntries"`

	// EvictionStrategy is a name of the strategy in the EvictionStrategyRegistry.
	// Empty or unknown name means LRU.
	EvictionStrategy string `mapstructure:"evictionStrategy" yaml:"evictionStrategy" json:"evictionStrategy"`
}

var _ config.Config = (*Config)(nil)
var _ config.KeyPrefixProvider = (*Config)(nil)

// NewDefaultConfig creates a new instance of the Config with default values.
func NewDefaultConfig() Config {
	return Config{
		Enabled:          true,
		DefaultTTL:       config.TimeDuration(DefaultTTL),
		Namespace:        DefaultNamespace,
		EvictionStrategy: EvictionStrategyLRU,
	}
}

// KeyPrefix returns a key prefix with which all configuration parameters should be presented.
func (c *Config) KeyPrefix() string {
	return cfgDefaultKeyPrefix
}

// SetProviderDefaults sets default configuration values for cache in config.DataProvider.
func (c *Config) SetProviderDefaults(dp config.DataProvider) {
	def := NewDefaultConfig()
	dp.SetDefault(cfgKeyEnabled, def.Enabled)
	dp.SetDefault(cfgKeyDefaultTTL, def.DefaultTTL.String())
	dp.SetDefault(cfgKeyNamespace, def.Namespace)
	dp.SetDefault(cfgKeyMaxEntries, def.MaxEntries)
	dp.SetDefault(cfgKeyEvictionStrategy, def.EvictionStrategy)
}

// Set sets cache configuration values from config.DataProvider.
func (c *Config) Set(dp config.DataProvider) error {
	updates, err := ConfigUpdatesFromProvider(dp)
	if err != nil {
		return err
	}
	for _, update := range updates {
		update(c)
	}
	return nil
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if c.MaxEntries < 0 {
		return fmt.Errorf("maxEntries must be greater than or equal to 0 (no limit)")
	}
	return nil
}

// ConfigUpdate changes a single setting of the Config.
// Settings without an update are preserved by ConfigManager.UpdateConfig.
type ConfigUpdate func(cfg *Config)

// UpdateEnabled returns an update that enables or disables the cache.
func UpdateEnabled(enabled bool) ConfigUpdate {
	return func(cfg *Config) { cfg.Enabled = enabled }
}

// UpdateDefaultTTL returns an update that changes the default TTL.
func UpdateDefaultTTL(ttl time.Duration) ConfigUpdate {
	return func(cfg *Config) { cfg.DefaultTTL = config.TimeDuration(ttl) }
}

// UpdateNamespace returns an update that changes the namespace.
func UpdateNamespace(namespace string) ConfigUpdate {
	return func(cfg *Config) { cfg.Namespace = namespace }
}

// UpdateMaxEntries returns an update that limits the number of entries.
// Non-positive value removes the limit, the same as ClearMaxEntries.
func UpdateMaxEntries(maxEntries int) ConfigUpdate {
	if maxEntries < 0 {
		maxEntries = 0
	}
	return func(cfg *Config) { cfg.MaxEntries = maxEntries }
}

// ClearMaxEntries returns an update that removes the limit on the number of entries.
func ClearMaxEntries() ConfigUpdate {
	return UpdateMaxEntries(0)
}

// UpdateEvictionStrategy returns an update that changes the eviction strategy name.
func UpdateEvictionStrategy(name string) ConfigUpdate {
	return func(cfg *Config) { cfg.EvictionStrategy = name }
}

// ClearEvictionStrategy returns an update that resets the eviction strategy to the default one.
func ClearEvictionStrategy() ConfigUpdate {
	return UpdateEvictionStrategy("")
}

// ConfigUpdatesFromProvider builds updates for the settings present in the data provider.
// Absent settings produce no update. Zero maxEntries and empty evictionStrategy clear the setting.
func ConfigUpdatesFromProvider(dp config.DataProvider) ([]ConfigUpdate, error) {
	var updates []ConfigUpdate

	if dp.IsSet(cfgKeyEnabled) {
		enabled, err := dp.GetBool(cfgKeyEnabled)
		if err != nil {
			return nil, err
		}
		updates = append(updates, UpdateEnabled(enabled))
	}

	if dp.IsSet(cfgKeyDefaultTTL) {
		ttl, err := dp.GetDuration(cfgKeyDefaultTTL)
		if err != nil {
			return nil, err
		}
		if ttl < 0 {
			return nil, dp.WrapKeyErr(cfgKeyDefaultTTL, fmt.Errorf("must be greater than or equal to 0 (no expiration)"))
		}
		updates = append(updates, UpdateDefaultTTL(ttl))
	}

	if dp.IsSet(cfgKeyNamespace) {
		namespace, err := dp.GetString(cfgKeyNamespace)
		if err != nil {
			return nil, err
		}
		updates = append(updates, UpdateNamespace(namespace))
	}

	if dp.IsSet(cfgKeyMaxEntries) {
		maxEntries, err := dp.GetInt(cfgKeyMaxEntries)
		if err != nil {
			return nil, err
		}
		if maxEntries < 0 {
			return nil, dp.WrapKeyErr(cfgKeyMaxEntries, fmt.Errorf("must be greater than or equal to 0 (no limit)"))
		}
		updates = append(updates, UpdateMaxEntries(maxEntries))
	}

	if dp.IsSet(cfgKeyEvictionStrategy) {
		name, err := dp.GetString(cfgKeyEvictionStrategy)
		if err != nil {
			return nil, err
		}
		updates = append(updates, UpdateEvictionStrategy(name))
	}

	return updates, nil
}
