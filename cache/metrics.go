/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package cache

import (
	"github.com/prometheus/client_golang/prometheus"
)

// MetricsCollector is notified about every Service.Get call.
type MetricsCollector interface {
	// RecordCacheAccess is called exactly once per Get (Has and GetMetadata are not reported).
	RecordCacheAccess(hit bool)
}

// EntriesMetricsCollector may be additionally implemented by a MetricsCollector
// to track the number of entries and evictions.
type EntriesMetricsCollector interface {
	// SetAmount sets the total number of entries in the cache.
	SetAmount(int)

	// AddEvictions increments the total number of evicted entries.
	AddEvictions(int)
}

// PrometheusMetricsOpts represents options for PrometheusMetrics.
type PrometheusMetricsOpts struct {
	// Namespace is a namespace for metrics. It will be prepended to all metric names.
	Namespace string

	// ConstLabels is a set of labels that will be applied to all metrics.
	ConstLabels prometheus.Labels

	// CurriedLabelNames is a list of label names that will be curried with the provided labels.
	// If it's not empty, PrometheusMetrics.MustCurryWith must be called with the same labels before use.
	CurriedLabelNames []string
}

// PrometheusMetrics represents Prometheus metrics for the cache.
type PrometheusMetrics struct {
	EntriesAmount  *prometheus.GaugeVec
	HitsTotal      *prometheus.CounterVec
	MissesTotal    *prometheus.CounterVec
	EvictionsTotal *prometheus.CounterVec
}

var (
	_ MetricsCollector        = (*PrometheusMetrics)(nil)
	_ EntriesMetricsCollector = (*PrometheusMetrics)(nil)
)

// NewPrometheusMetrics creates a new instance of PrometheusMetrics with default options.
func NewPrometheusMetrics() *PrometheusMetrics {
	return NewPrometheusMetricsWithOpts(PrometheusMetricsOpts{})
}

// NewPrometheusMetricsWithOpts creates a new instance of PrometheusMetrics with the provided options.
func NewPrometheusMetricsWithOpts(opts PrometheusMetricsOpts) *PrometheusMetrics {
	newCounter := func(name, help string) *prometheus.CounterVec {
		return prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   opts.Namespace,
			Name:        name,
			Help:        help,
			ConstLabels: opts.ConstLabels,
		}, opts.CurriedLabelNames)
	}
	return &PrometheusMetrics{
		EntriesAmount: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace:   opts.Namespace,
			Name:        "cache_entries_amount",
			Help:        "Total number of entries in the cache.",
			ConstLabels: opts.ConstLabels,
		}, opts.CurriedLabelNames),
		HitsTotal:      newCounter("cache_hits_total", "Number of successfully found keys in the cache."),
		MissesTotal:    newCounter("cache_misses_total", "Number of not found or expired keys in the cache."),
		EvictionsTotal: newCounter("cache_evictions_total", "Number of removed entries."),
	}
}

// MustCurryWith curries the metrics collector with the provided labels.
func (pm *PrometheusMetrics) MustCurryWith(labels prometheus.Labels) *PrometheusMetrics {
	return &PrometheusMetrics{
		EntriesAmount:  pm.EntriesAmount.MustCurryWith(labels),
		HitsTotal:      pm.HitsTotal.MustCurryWith(labels),
		MissesTotal:    pm.MissesTotal.MustCurryWith(labels),
		EvictionsTotal: pm.EvictionsTotal.MustCurryWith(labels),
	}
}

// MustRegister registers the metrics in the default Prometheus registerer and panics if any error occurs.
func (pm *PrometheusMetrics) MustRegister() {
	pm.MustRegisterIn(prometheus.DefaultRegisterer)
}

// MustRegisterIn registers the metrics in the given registerer and panics if any error occurs.
func (pm *PrometheusMetrics) MustRegisterIn(registerer prometheus.Registerer) {
	registerer.MustRegister(pm.EntriesAmount, pm.HitsTotal, pm.MissesTotal, pm.EvictionsTotal)
}

// Unregister cancels registration of the metrics in the default Prometheus registerer.
func (pm *PrometheusMetrics) Unregister() {
	pm.UnregisterFrom(prometheus.DefaultRegisterer)
}

// UnregisterFrom cancels registration of the metrics in the given registerer.
func (pm *PrometheusMetrics) UnregisterFrom(registerer prometheus.Registerer) {
	registerer.Unregister(pm.EntriesAmount)
	registerer.Unregister(pm.HitsTotal)
	registerer.Unregister(pm.MissesTotal)
	registerer.Unregister(pm.EvictionsTotal)
}

// RecordCacheAccess increments hits or misses.
func (pm *PrometheusMetrics) RecordCacheAccess(hit bool) {
	if hit {
		pm.HitsTotal.With(nil).Inc()
		return
	}
	pm.MissesTotal.With(nil).Inc()
}

// SetAmount sets the total number of entries in the cache.
func (pm *PrometheusMetrics) SetAmount(amount int) {
	pm.EntriesAmount.With(nil).Set(float64(amount))
}

// AddEvictions increments the total number of evicted entries.
func (pm *PrometheusMetrics) AddEvictions(n int) {
	pm.EvictionsTotal.With(nil).Add(float64(n))
}

type disabledMetrics struct{}

func (disabledMetrics) RecordCacheAccess(bool) {}
func (disabledMetrics) SetAmount(int)          {}
func (disabledMetrics) AddEvictions(int)       {}
