/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package testutil

import (
	"github.com/prometheus/client_golang/prometheus"
	promtestutil "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// AssertMetricValue asserts that the collector (a counter or a gauge, possibly a vector with no free labels)
// has the value.
func AssertMetricValue(t assert.TestingT, collector prometheus.Collector, want float64, msgAndArgs ...interface{}) bool {
	if h, ok := t.(tHelper); ok {
		h.Helper()
	}
	return assert.Equal(t, want, promtestutil.ToFloat64(collector), msgAndArgs...)
}

// RequireMetricValue calls AssertMetricValue and fails the test immediately in case of mismatch.
func RequireMetricValue(t require.TestingT, collector prometheus.Collector, want float64, msgAndArgs ...interface{}) {
	if h, ok := t.(tHelper); ok {
		h.Helper()
	}
	if AssertMetricValue(t, collector, want, msgAndArgs...) {
		return
	}
	t.FailNow()
}
