/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package service

// Unit is a component with its own lifecycle.
type Unit interface {
	// Start runs the unit. It may block for the whole lifetime of the unit or return right after
	// the initialization. A unit that fails writes exactly one error to fatalErr; a successful one
	// never writes to it and doesn't use the channel after returning.
	Start(fatalErr chan<- error)

	// Stop halts the unit. It may be called even if Start has failed or has never been called.
	Stop(gracefully bool) error
}

// MetricsRegisterer is implemented by units that own Prometheus metrics.
type MetricsRegisterer interface {
	MustRegisterMetrics()
	UnregisterMetrics()
}
