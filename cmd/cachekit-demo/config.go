/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package main

import (
	"fmt"
	"time"

	"github.com/acronis/go-cachekit/cache"
	"github.com/acronis/go-cachekit/cacheadmin"
	"github.com/acronis/go-cachekit/config"
	"github.com/acronis/go-cachekit/log"
)

const envVarsPrefix = "CACHEKIT"

const (
	cfgKeyCleanupInterval  = "cleanupInterval"
	cfgKeyWorkloadInterval = "workload.interval"
	cfgKeyWorkloadDays     = "workload.days"
)

// demoConfig holds settings of the demo itself.
type demoConfig struct {
	CleanupInterval  time.Duration
	WorkloadInterval time.Duration
	WorkloadDays     int
}

func (c *demoConfig) KeyPrefix() string {
	return "demo"
}

func (c *demoConfig) SetProviderDefaults(dp config.DataProvider) {
	dp.SetDefault(cfgKeyCleanupInterval, time.Minute)
	dp.SetDefault(cfgKeyWorkloadInterval, time.Second)
	dp.SetDefault(cfgKeyWorkloadDays, 7)
}

func (c *demoConfig) Set(dp config.DataProvider) error {
	var err error
	if c.CleanupInterval, err = dp.GetDuration(cfgKeyCleanupInterval); err != nil {
		return err
	}
	if c.CleanupInterval <= 0 {
		return dp.WrapKeyErr(cfgKeyCleanupInterval, fmt.Errorf("must be positive"))
	}
	if c.WorkloadInterval, err = dp.GetDuration(cfgKeyWorkloadInterval); err != nil {
		return err
	}
	if c.WorkloadInterval <= 0 {
		return dp.WrapKeyErr(cfgKeyWorkloadInterval, fmt.Errorf("must be positive"))
	}
	if c.WorkloadDays, err = dp.GetInt(cfgKeyWorkloadDays); err != nil {
		return err
	}
	if c.WorkloadDays <= 0 {
		return dp.WrapKeyErr(cfgKeyWorkloadDays, fmt.Errorf("must be positive"))
	}
	return nil
}

type appConfig struct {
	Cache *cache.Config
	Log   *log.Config
	Admin *cacheadmin.Config
	Demo  *demoConfig
}

func loadAppConfig(path string) (*appConfig, error) {
	cacheCfg := cache.NewDefaultConfig()
	cfg := &appConfig{
		Cache: &cacheCfg,
		Log:   log.NewDefaultConfig(),
		Admin: cacheadmin.NewDefaultConfig(),
		Demo:  &demoConfig{},
	}
	loader := config.NewDefaultLoader(envVarsPrefix)
	var err error
	if path != "" {
		err = loader.LoadFromFile(path, config.DataTypeYAML, cfg.Cache, cfg.Log, cfg.Admin, cfg.Demo)
	} else {
		err = loader.Load(cfg.Cache, cfg.Log, cfg.Admin, cfg.Demo)
	}
	if err != nil {
		return nil, fmt.Errorf("load configuration: %w", err)
	}
	return cfg, nil
}

// loadCacheConfigUpdates re-reads the cache section of the configuration.
// Only the settings present in the file or in the environment are updated.
func loadCacheConfigUpdates(path string) ([]cache.ConfigUpdate, error) {
	dp := config.NewViperAdapter()
	dp.UseEnvVars(envVarsPrefix)
	if path != "" {
		if err := dp.SetFromFile(path, config.DataTypeYAML); err != nil {
			return nil, err
		}
	}
	var cacheCfg cache.Config
	return cache.ConfigUpdatesFromProvider(config.ScopedDataProvider(dp, &cacheCfg))
}
