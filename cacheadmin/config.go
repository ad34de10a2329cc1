/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package cacheadmin

import (
	"fmt"
	"time"

	"github.com/acronis/go-cachekit/config"
)

const cfgKeyPrefix = "admin"

const (
	cfgKeyEnabled            = "enabled"
	cfgKeyAddress            = "address"
	cfgKeyProfiling          = "profiling"
	cfgKeyTimeoutsWrite      = "timeouts.write"
	cfgKeyTimeoutsRead       = "timeouts.read"
	cfgKeyTimeoutsReadHeader = "timeouts.readHeader"
	cfgKeyTimeoutsIdle       = "timeouts.idle"
	cfgKeyTimeoutsShutdown   = "timeouts.shutdown"
)

const (
	defaultAddress            = ":9090"
	defaultTimeoutsWrite      = time.Second * 30
	defaultTimeoutsRead       = time.Second * 15
	defaultTimeoutsReadHeader = time.Second * 10
	defaultTimeoutsIdle       = time.Minute
	defaultTimeoutsShutdown   = time.Second * 5
)

// Config represents a set of configuration parameters for the admin HTTP server.
type Config struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled" json:"enabled"`
	Address string `mapstructure:"address" yaml:"address" json:"address"`

	// Profiling exposes pprof handlers under /debug of the admin server.
	Profiling bool `mapstructure:"profiling" yaml:"profiling" json:"profiling"`

	Timeouts TimeoutsConfig `mapstructure:"timeouts" yaml:"timeouts" json:"timeouts"`
}

// TimeoutsConfig represents timeouts of the admin HTTP server.
type TimeoutsConfig struct {
	Write      config.TimeDuration `mapstructure:"write" yaml:"write" json:"write"`
	Read       config.TimeDuration `mapstructure:"read" yaml:"read" json:"read"`
	ReadHeader config.TimeDuration `mapstructure:"readHeader" yaml:"readHeader" json:"readHeader"`
	Idle       config.TimeDuration `mapstructure:"idle" yaml:"idle" json:"idle"`
	Shutdown   config.TimeDuration `mapstructure:"shutdown" yaml:"shutdown" json:"shutdown"`
}

var _ config.Config = (*Config)(nil)
var _ config.KeyPrefixProvider = (*Config)(nil)

// NewDefaultConfig creates a new instance of the Config with default values.
func NewDefaultConfig() *Config {
	return &Config{
		Enabled: true,
		Address: defaultAddress,
		Timeouts: TimeoutsConfig{
			Write:      config.TimeDuration(defaultTimeoutsWrite),
			Read:       config.TimeDuration(defaultTimeoutsRead),
			ReadHeader: config.TimeDuration(defaultTimeoutsReadHeader),
			Idle:       config.TimeDuration(defaultTimeoutsIdle),
			Shutdown:   config.TimeDuration(defaultTimeoutsShutdown),
		},
	}
}

// KeyPrefix returns a key prefix with which all configuration parameters should be presented.
func (c *Config) KeyPrefix() string {
	return cfgKeyPrefix
}

// SetProviderDefaults sets default configuration values for the admin server in config.DataProvider.
func (c *Config) SetProviderDefaults(dp config.DataProvider) {
	dp.SetDefault(cfgKeyEnabled, true)
	dp.SetDefault(cfgKeyAddress, defaultAddress)
	dp.SetDefault(cfgKeyProfiling, false)
	dp.SetDefault(cfgKeyTimeoutsWrite, defaultTimeoutsWrite)
	dp.SetDefault(cfgKeyTimeoutsRead, defaultTimeoutsRead)
	dp.SetDefault(cfgKeyTimeoutsReadHeader, defaultTimeoutsReadHeader)
	dp.SetDefault(cfgKeyTimeoutsIdle, defaultTimeoutsIdle)
	dp.SetDefault(cfgKeyTimeoutsShutdown, defaultTimeoutsShutdown)
}

// Set sets admin server configuration values from config.DataProvider.
func (c *Config) Set(dp config.DataProvider) error {
	var err error

	if c.Enabled, err = dp.GetBool(cfgKeyEnabled); err != nil {
		return err
	}
	if c.Address, err = dp.GetString(cfgKeyAddress); err != nil {
		return err
	}
	if c.Profiling, err = dp.GetBool(cfgKeyProfiling); err != nil {
		return err
	}
	if c.Enabled && c.Address == "" {
		return dp.WrapKeyErr(cfgKeyAddress, fmt.Errorf("cannot be empty"))
	}

	for _, t := range []struct {
		key string
		dst *config.TimeDuration
	}{
		{cfgKeyTimeoutsWrite, &c.Timeouts.Write},
		{cfgKeyTimeoutsRead, &c.Timeouts.Read},
		{cfgKeyTimeoutsReadHeader, &c.Timeouts.ReadHeader},
		{cfgKeyTimeoutsIdle, &c.Timeouts.Idle},
		{cfgKeyTimeoutsShutdown, &c.Timeouts.Shutdown},
	} {
		var dur time.Duration
		if dur, err = dp.GetDuration(t.key); err != nil {
			return err
		}
		if dur < 0 {
			return dp.WrapKeyErr(t.key, fmt.Errorf("cannot be negative"))
		}
		*t.dst = config.TimeDuration(dur)
	}

	return nil
}
