/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

// Package service runs the long-living parts of an application (the admin HTTP server,
// the expired entries cleanup worker) as units and stops them when a shutdown signal arrives.
// Reload signals (SIGHUP by default) trigger a reload callback without stopping anything.
package service
