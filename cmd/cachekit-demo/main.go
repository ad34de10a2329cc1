/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

// Command cachekit-demo runs a cache of journal notes under a synthetic workload and exposes it
// through the admin HTTP API. Send SIGHUP to re-read the cache section of the configuration file.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/acronis/go-cachekit/cache"
	"github.com/acronis/go-cachekit/cacheadmin"
	"github.com/acronis/go-cachekit/log"
	"github.com/acronis/go-cachekit/retry"
	"github.com/acronis/go-cachekit/service"
)

const ownerID = "cachekit-demo"

var errNoteSourceUnavailable = errors.New("note source is temporarily unavailable")

func main() {
	if err := runApp(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runApp() error {
	cfgPath := flag.String("config", "", "path to the YAML configuration file")
	flag.Parse()

	cfg, err := loadAppConfig(*cfgPath)
	if err != nil {
		return err
	}

	logger, closeLogger := log.NewLogger(cfg.Log)
	defer closeLogger()

	metrics := cache.NewPrometheusMetricsWithOpts(cache.PrometheusMetricsOpts{
		ConstLabels: prometheus.Labels{"owner": ownerID},
	})
	metrics.MustRegister()
	defer metrics.Unregister()

	notes, err := cache.NewWithOpts[string](*cfg.Cache, metrics, cache.Options{Logger: logger})
	if err != nil {
		return fmt.Errorf("create cache: %w", err)
	}
	defer notes.Close()

	units := []service.Unit{
		service.NewWorkerUnit(service.WorkerFunc(func(ctx context.Context) error {
			notes.RunPeriodicCleanup(ctx, cfg.Demo.CleanupInterval)
			return nil
		}), 0),
		service.NewWorkerUnit(newWorkload(notes, cfg.Demo, logger), 0),
	}
	if cfg.Admin.Enabled {
		handler := cacheadmin.NewHandler(notes, cacheadmin.HandlerOpts{
			Logger:          logger,
			MetricsGatherer: prometheus.DefaultGatherer,
			Profiling:       cfg.Admin.Profiling,
		})
		units = append(units, cacheadmin.NewServer(cfg.Admin, handler, logger, nil))
	}

	reload := func() error {
		updates, reloadErr := loadCacheConfigUpdates(*cfgPath)
		if reloadErr != nil {
			return fmt.Errorf("reload cache configuration: %w", reloadErr)
		}
		newCfg := notes.UpdateConfig(updates...)
		logger.Info("cache configuration reloaded",
			log.Bool("enabled", newCfg.Enabled),
			log.Int("max_entries", newCfg.MaxEntries),
			log.String("eviction_strategy", newCfg.EvictionStrategy),
		)
		return nil
	}

	return service.New(logger, service.NewCompositeUnit(units...), reload).Run(context.Background())
}

// newWorkload returns a worker that reads notes of random days through GetOrSet
// and periodically invalidates a day, as an editor saving a note would do.
func newWorkload(notes *cache.Service[string], cfg *demoConfig, logger log.FieldLogger) service.Worker {
	noteKeys := cache.NewNamespace("journal notes", ownerID)
	rnd := rand.New(rand.NewSource(time.Now().UnixNano())) //nolint:gosec // not a security context

	return service.WorkerFunc(func(ctx context.Context) error {
		ticker := time.NewTicker(cfg.WorkloadInterval)
		defer ticker.Stop()
		for tick := 1; ; tick++ {
			select {
			case <-ctx.Done():
				return nil
			case <-ticker.C:
			}

			day := strconv.Itoa(rnd.Intn(cfg.WorkloadDays) + 1)
			if tick%10 == 0 {
				removed := notes.InvalidateWhere(cache.HasTag("day:" + day))
				logger.Debug("journal day edited", log.String("day", day), log.Int("invalidated", removed))
				continue
			}

			factory := cache.RetryingFactory(func(ctx context.Context) (string, error) {
				if rnd.Intn(4) == 0 {
					return "", errNoteSourceUnavailable
				}
				return "notes of day " + day, nil
			}, retry.ExponentialPolicy(10*time.Millisecond, 3), nil)

			if _, err := notes.GetOrSet(ctx, noteKeys("day", day), factory, cache.WithTags("day:"+day)); err != nil {
				logger.Warn("failed to load journal notes", log.String("day", day), log.Error(err))
			}
		}
	})
}
